package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const filePrefix = "medigraph-"

var segmentRegex = regexp.MustCompile(`^medigraph-(\d{4}-W\d{2})(?:_(\d{2,}))?\.log$`)

// RotatingFile is an io.WriteCloser that starts a new file every ISO week
// and whenever the current file would grow past maxSize. Files older than
// the retention period are removed once a day.
type RotatingFile struct {
	dir       string
	retention time.Duration
	maxSize   int64
	now       func() time.Time

	mu   sync.Mutex
	file *os.File
	week string
	seq  int
	size int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// OpenRotatingFile creates dir if needed and opens the segment for the
// current week. maxSize <= 0 disables size rotation.
func OpenRotatingFile(dir string, retentionWeeks int, maxSize int64) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rf := &RotatingFile{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	rf.mu.Lock()
	err := rf.openSegment(weekKey(rf.now()), false)
	rf.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go rf.sweepLoop(24 * time.Hour)
	return rf, nil
}

// weekKey returns the ISO week as YYYY-Www
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func segmentName(week string, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("%s%s.log", filePrefix, week)
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, seq)
}

// Write appends p to the current segment, rotating first when the week
// changed or p would not fit.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	week := weekKey(rf.now())
	switch {
	case rf.file == nil || week != rf.week:
		if err := rf.openSegment(week, false); err != nil {
			return 0, err
		}
	case rf.maxSize > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize:
		if err := rf.openSegment(week, true); err != nil {
			return 0, err
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// openSegment switches to the newest segment of week, or to a fresh one when
// that segment is full or next is set. Caller holds mu.
func (rf *RotatingFile) openSegment(week string, next bool) error {
	seq, size, found := rf.lastSegment(week)
	switch {
	case !found:
		seq, size = 0, 0
	case next || (rf.maxSize > 0 && size >= rf.maxSize):
		seq, size = seq+1, 0
	}

	path := filepath.Join(rf.dir, segmentName(week, seq))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	if rf.file != nil {
		_ = rf.file.Close()
	}
	rf.file, rf.week, rf.seq, rf.size = file, week, seq, size
	return nil
}

// lastSegment returns the highest sequence number written for week.
func (rf *RotatingFile) lastSegment(week string) (seq int, size int64, found bool) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, 0, false
	}

	for _, entry := range entries {
		m := segmentRegex.FindStringSubmatch(entry.Name())
		if m == nil || m[1] != week {
			continue
		}
		n := 0
		if m[2] != "" {
			n, _ = strconv.Atoi(m[2])
		}
		if found && n <= seq {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		seq, size, found = n, info.Size(), true
	}
	return seq, size, found
}

func (rf *RotatingFile) sweepLoop(every time.Duration) {
	defer close(rf.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rf.stop:
			return
		case <-ticker.C:
			if _, err := rf.removeExpired(); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			}
		}
	}
}

// removeExpired deletes segments last modified before the retention cutoff.
// The open segment is never removed.
func (rf *RotatingFile) removeExpired() (int, error) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	rf.mu.Lock()
	current := ""
	if rf.file != nil {
		current = filepath.Base(rf.file.Name())
	}
	rf.mu.Unlock()

	cutoff := rf.now().Add(-rf.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == current || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rf.dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Close stops the cleanup loop and closes the current segment.
func (rf *RotatingFile) Close() error {
	rf.closeOnce.Do(func() { close(rf.stop) })
	<-rf.done

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

// Package scheduler runs medigraph's background jobs: ingesting package
// photographs dropped in an inbox directory and watching the graph store.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/giygas/medigraph/graph"
	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/logging"
	"github.com/giygas/medigraph/pipeline"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	scanTimeout = 5 * time.Minute
	pingTimeout = 10 * time.Second
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler handles inbox ingestion and store monitoring
type Scheduler struct {
	pipeline  interfaces.Pipeline
	store     graph.Store
	inbox     string
	interval  time.Duration
	scheduler *gocron.Scheduler
}

// NewScheduler creates a scheduler. The inbox job is only scheduled when
// both p and inbox are set.
func NewScheduler(p interfaces.Pipeline, store graph.Store, inbox string, interval time.Duration) *Scheduler {
	return &Scheduler{
		pipeline:  p,
		store:     store,
		inbox:     inbox,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start schedules the jobs and starts them asynchronously
func (s *Scheduler) Start() error {
	if s.pipeline != nil && s.inbox != "" {
		for _, dir := range []string{s.inbox, filepath.Join(s.inbox, ProcessedDir), filepath.Join(s.inbox, FailedDir)} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create inbox directory: %w", err)
			}
		}

		_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
			if _, _, err := s.ScanInbox(context.Background()); err != nil {
				logging.Error("Inbox scan failed", "error", err)
			}
		})
		if err != nil {
			logging.Error("Failed to schedule inbox scan", "error", err)
			return fmt.Errorf("failed to schedule inbox scan: %w", err)
		}
		logging.Info("Inbox scan scheduled", "dir", s.inbox, "interval", s.interval.String())
	}

	_, err := s.scheduler.Every(1).Hour().WaitForSchedule().Do(s.checkStore)
	if err != nil {
		logging.Error("Failed to schedule store health check", "error", err)
		return fmt.Errorf("failed to schedule store health check: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScanInbox runs every image waiting in the inbox through the pipeline, in
// name order, and moves each one to processed/ or failed/.
func (s *Scheduler) ScanInbox(ctx context.Context) (processed, failed int, err error) {
	entries, err := os.ReadDir(s.inbox)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read inbox: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		if s.scanFile(ctx, name) {
			processed++
		} else {
			failed++
		}
	}

	if len(names) > 0 {
		logging.Info("Inbox scan completed", "processed", processed, "failed", failed)
	}
	return processed, failed, nil
}

// scanFile processes one inbox file and reports whether it was imported.
func (s *Scheduler) scanFile(ctx context.Context, name string) bool {
	path := filepath.Join(s.inbox, name)

	image, err := os.ReadFile(path)
	if err == nil {
		runCtx, cancel := context.WithTimeout(ctx, scanTimeout)
		var result *interfaces.ScanResult
		result, err = s.pipeline.Run(runCtx, image)
		cancel()
		if err == nil {
			logging.Info("Inbox image imported", "file", name, "run_id", result.RunID, "brand_name", result.BrandName)
		}
	}

	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
		stage := pipeline.FailedStage(err)
		logging.Warn("Inbox image failed", "file", name, "stage", stage, "error", err)
		s.writeReason(name, err)
	}

	if mvErr := os.Rename(path, filepath.Join(s.inbox, dest, name)); mvErr != nil {
		logging.Error("Failed to move inbox image", "file", name, "dest", dest, "error", mvErr)
	}
	return err == nil
}

// writeReason leaves the failure next to the failed image.
func (s *Scheduler) writeReason(name string, cause error) {
	reason := filepath.Join(s.inbox, FailedDir, name+".error.txt")
	if err := os.WriteFile(reason, []byte(cause.Error()+"\n"), 0o644); err != nil {
		logging.Error("Failed to write failure reason", "file", name, "error", err)
	}
}

// checkStore warns when the graph store stops answering
func (s *Scheduler) checkStore() {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logging.Warn("Graph store ping timed out", "timeout", pingTimeout.String())
			return
		}
		logging.Warn("Graph store unreachable", "error", err)
	}
}

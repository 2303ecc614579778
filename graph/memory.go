package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Compile-time check to ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// StoredNode is a node held by the MemoryStore.
type StoredNode struct {
	Label string         `json:"label"`
	Props map[string]any `json:"props"`
}

// StoredRelationship is a relationship held by the MemoryStore.
type StoredRelationship struct {
	Type  string         `json:"type"`
	From  string         `json:"from"`
	To    string         `json:"to"`
	Props map[string]any `json:"props"`
}

// snapshot is never modified once published.
type snapshot struct {
	nodes         map[string]StoredNode
	relationships map[string]StoredRelationship
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		nodes:         make(map[string]StoredNode, len(s.nodes)),
		relationships: make(map[string]StoredRelationship, len(s.relationships)),
	}
	for id, n := range s.nodes {
		next.nodes[id] = StoredNode{Label: n.Label, Props: maps.Clone(n.Props)}
	}
	for id, r := range s.relationships {
		next.relationships[id] = StoredRelationship{Type: r.Type, From: r.From, To: r.To, Props: maps.Clone(r.Props)}
	}
	return next
}

// MemoryStore is an in-process Store. Each Write works on a private copy of
// the graph which replaces the published snapshot atomically on commit, so
// readers never observe a partial transaction.
type MemoryStore struct {
	current     atomic.Value // *snapshot
	lastUpdated atomic.Value // time.Time
	writeMu     sync.Mutex
	writing     atomic.Bool
}

// NewMemoryStore creates an empty in-memory graph.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.current.Store(&snapshot{
		nodes:         make(map[string]StoredNode),
		relationships: make(map[string]StoredRelationship),
	})
	s.lastUpdated.Store(time.Time{})
	return s
}

func (s *MemoryStore) load() *snapshot {
	return s.current.Load().(*snapshot)
}

// Write runs fn against a staged copy and publishes it only on success.
// Writers are serialised.
func (s *MemoryStore) Write(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (*Summary, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.writing.Store(true)
	defer s.writing.Store(false)

	tx := &memoryTx{staged: s.load().clone(), summary: &Summary{}}
	if err := fn(ctx, tx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("transaction aborted: %w", err)
	}

	s.current.Store(tx.staged)
	s.lastUpdated.Store(time.Now())
	return tx.summary, nil
}

// EnsureConstraints is a no-op: node identity is the key itself.
func (s *MemoryStore) EnsureConstraints(context.Context, []Constraint) error {
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close releases nothing.
func (s *MemoryStore) Close(context.Context) error {
	return nil
}

// IsWriting reports whether a transaction is in progress.
func (s *MemoryStore) IsWriting() bool {
	return s.writing.Load()
}

// GetLastUpdated returns the time of the last commit.
func (s *MemoryStore) GetLastUpdated() time.Time {
	if v, ok := s.lastUpdated.Load().(time.Time); ok {
		return v
	}
	return time.Time{}
}

// Nodes returns every node with the given label, ordered by identity.
func (s *MemoryStore) Nodes(label string) []StoredNode {
	snap := s.load()
	ids := make([]string, 0)
	for id, n := range snap.nodes {
		if n.Label == label {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]StoredNode, len(ids))
	for i, id := range ids {
		n := snap.nodes[id]
		out[i] = StoredNode{Label: n.Label, Props: maps.Clone(n.Props)}
	}
	return out
}

// Node looks a node up by reference.
func (s *MemoryStore) Node(ref NodeRef) (StoredNode, bool) {
	id, err := nodeID(ref)
	if err != nil {
		return StoredNode{}, false
	}
	n, ok := s.load().nodes[id]
	if !ok {
		return StoredNode{}, false
	}
	return StoredNode{Label: n.Label, Props: maps.Clone(n.Props)}, true
}

// Relationships returns every relationship of the given type.
func (s *MemoryStore) Relationships(relType string) []StoredRelationship {
	snap := s.load()
	ids := make([]string, 0)
	for id, r := range snap.relationships {
		if r.Type == relType {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]StoredRelationship, len(ids))
	for i, id := range ids {
		r := snap.relationships[id]
		out[i] = StoredRelationship{Type: r.Type, From: r.From, To: r.To, Props: maps.Clone(r.Props)}
	}
	return out
}

// Incoming counts relationships of relType ending at ref.
func (s *MemoryStore) Incoming(ref NodeRef, relType string) int {
	id, err := nodeID(ref)
	if err != nil {
		return 0
	}
	count := 0
	for _, r := range s.load().relationships {
		if r.Type == relType && r.To == id {
			count++
		}
	}
	return count
}

// NodeCount returns the total number of nodes.
func (s *MemoryStore) NodeCount() int {
	return len(s.load().nodes)
}

// RelationshipCount returns the total number of relationships.
func (s *MemoryStore) RelationshipCount() int {
	return len(s.load().relationships)
}

type memoryTx struct {
	staged  *snapshot
	summary *Summary
}

func (tx *memoryTx) MergeNode(ctx context.Context, n Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateNode(n); err != nil {
		return err
	}

	id, err := nodeID(n.Ref())
	if err != nil {
		return err
	}

	tx.summary.NodesMerged++
	stored, exists := tx.staged.nodes[id]
	if !exists {
		stored = StoredNode{Label: n.Label, Props: maps.Clone(n.Key)}
		maps.Copy(stored.Props, n.OnCreate)
		tx.summary.NodesCreated++
		tx.summary.PropertiesSet += len(n.Key) + len(n.OnCreate)
	}
	maps.Copy(stored.Props, n.Set)
	tx.summary.PropertiesSet += len(n.Set)

	tx.staged.nodes[id] = stored
	return nil
}

func (tx *memoryTx) MergeRelationship(ctx context.Context, r Relationship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateRelationship(r); err != nil {
		return err
	}

	fromID, err := nodeID(r.From)
	if err != nil {
		return err
	}
	toID, err := nodeID(r.To)
	if err != nil {
		return err
	}
	if _, ok := tx.staged.nodes[fromID]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingEndpoint, fromID)
	}
	if _, ok := tx.staged.nodes[toID]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingEndpoint, toID)
	}

	tx.summary.RelationshipsMerged++
	id := fromID + "-[" + r.Type + "]->" + toID
	stored, exists := tx.staged.relationships[id]
	if !exists {
		stored = StoredRelationship{Type: r.Type, From: fromID, To: toID, Props: map[string]any{}}
		tx.summary.RelationshipsCreated++
	}
	maps.Copy(stored.Props, r.Set)
	tx.summary.PropertiesSet += len(r.Set)

	tx.staged.relationships[id] = stored
	return nil
}

// nodeID is the label plus the canonical JSON of the key properties.
func nodeID(ref NodeRef) (string, error) {
	ordered := make([][2]any, 0, len(ref.Key))
	for _, name := range sortedKeys(ref.Key) {
		ordered = append(ordered, [2]any{name, ref.Key[name]})
	}
	raw, err := json.Marshal(ordered)
	if err != nil {
		return "", fmt.Errorf("failed to encode node key: %w", err)
	}
	return ref.Label + string(raw), nil
}

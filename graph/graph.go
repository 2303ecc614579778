// Package graph is the property-graph store boundary. It exposes two
// primitives, match-or-create a labeled node by its key properties and
// match-or-create a typed relationship between two existing nodes, grouped in
// a transaction that either commits entirely or not at all.
package graph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
)

var (
	// ErrNullKey is returned when a node key property is missing or nil.
	ErrNullKey = errors.New("node key property is null")

	// ErrMissingEndpoint is returned when a relationship endpoint does not
	// exist at merge time.
	ErrMissingEndpoint = errors.New("relationship endpoint not found")

	// ErrInvalidIdentifier is returned for labels, relationship types or
	// property names that are not plain identifiers.
	ErrInvalidIdentifier = errors.New("invalid graph identifier")
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NodeRef identifies a node by label and key properties.
type NodeRef struct {
	Label string         `json:"label"`
	Key   map[string]any `json:"key"`
}

// Node is a node upsert. Key selects the node; OnCreate is written only when
// the node is created; Set is written on every upsert.
type Node struct {
	Label    string         `json:"label"`
	Key      map[string]any `json:"key"`
	OnCreate map[string]any `json:"on_create,omitempty"`
	Set      map[string]any `json:"set,omitempty"`
}

// Ref returns the reference used to attach relationships to n.
func (n Node) Ref() NodeRef {
	return NodeRef{Label: n.Label, Key: n.Key}
}

// Relationship is a relationship upsert between two existing nodes.
type Relationship struct {
	From NodeRef        `json:"from"`
	Type string         `json:"type"`
	To   NodeRef        `json:"to"`
	Set  map[string]any `json:"set,omitempty"`
}

// Constraint declares that Keys identify a node of Label.
type Constraint struct {
	Label string
	Keys  []string
}

// Summary counts the effects of one committed transaction.
type Summary struct {
	NodesMerged          int `json:"nodes_merged"`
	RelationshipsMerged  int `json:"relationships_merged"`
	NodesCreated         int `json:"nodes_created"`
	RelationshipsCreated int `json:"relationships_created"`
	PropertiesSet        int `json:"properties_set"`
}

// Tx is the write side of one transaction.
type Tx interface {
	MergeNode(ctx context.Context, n Node) error
	MergeRelationship(ctx context.Context, r Relationship) error
}

// Store is a transactional property-graph store. Write runs fn inside a
// single transaction and commits only if fn returns nil.
type Store interface {
	Write(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (*Summary, error)
	EnsureConstraints(ctx context.Context, constraints []Constraint) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Querier runs read-only queries in the store's native query language.
type Querier interface {
	Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// ValidateNode checks identifiers and key values before anything reaches a
// store.
func ValidateNode(n Node) error {
	if err := validateRef(n.Ref()); err != nil {
		return err
	}
	for _, props := range []map[string]any{n.OnCreate, n.Set} {
		for name := range props {
			if !identifierRegex.MatchString(name) {
				return fmt.Errorf("%w: property %q", ErrInvalidIdentifier, name)
			}
		}
	}
	return nil
}

// ValidateRelationship checks both endpoints and the relationship type.
func ValidateRelationship(r Relationship) error {
	if !identifierRegex.MatchString(r.Type) {
		return fmt.Errorf("%w: relationship type %q", ErrInvalidIdentifier, r.Type)
	}
	if err := validateRef(r.From); err != nil {
		return err
	}
	if err := validateRef(r.To); err != nil {
		return err
	}
	for name := range r.Set {
		if !identifierRegex.MatchString(name) {
			return fmt.Errorf("%w: property %q", ErrInvalidIdentifier, name)
		}
	}
	return nil
}

func validateRef(ref NodeRef) error {
	if !identifierRegex.MatchString(ref.Label) {
		return fmt.Errorf("%w: label %q", ErrInvalidIdentifier, ref.Label)
	}
	if len(ref.Key) == 0 {
		return fmt.Errorf("%w: %s has no key", ErrNullKey, ref.Label)
	}
	for name, value := range ref.Key {
		if !identifierRegex.MatchString(name) {
			return fmt.Errorf("%w: property %q", ErrInvalidIdentifier, name)
		}
		if value == nil {
			return fmt.Errorf("%w: %s.%s", ErrNullKey, ref.Label, name)
		}
	}
	return nil
}

// sortedKeys returns map keys in a stable order so generated queries and
// identities do not depend on map iteration.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package graph

import (
	"context"
	"fmt"
)

// Operation is one step of a Plan: exactly one of Node or Relationship is set.
type Operation struct {
	Node         *Node         `json:"node,omitempty"`
	Relationship *Relationship `json:"relationship,omitempty"`
}

// Plan is an ordered list of upserts. Applying the same plan twice leaves
// the graph as applying it once.
type Plan struct {
	Operations []Operation `json:"operations"`
}

// AddNode appends a node upsert and returns its reference.
func (p *Plan) AddNode(n Node) NodeRef {
	p.Operations = append(p.Operations, Operation{Node: &n})
	return n.Ref()
}

// Link appends a relationship upsert.
func (p *Plan) Link(from NodeRef, relType string, to NodeRef, set map[string]any) {
	p.Operations = append(p.Operations, Operation{
		Relationship: &Relationship{From: from, Type: relType, To: to, Set: set},
	})
}

// CountNodes returns the number of node upserts per label.
func (p *Plan) CountNodes() map[string]int {
	counts := make(map[string]int)
	for _, op := range p.Operations {
		if op.Node != nil {
			counts[op.Node.Label]++
		}
	}
	return counts
}

// CountRelationships returns the number of relationship upserts per type.
func (p *Plan) CountRelationships() map[string]int {
	counts := make(map[string]int)
	for _, op := range p.Operations {
		if op.Relationship != nil {
			counts[op.Relationship.Type]++
		}
	}
	return counts
}

// Validate checks every operation without touching a store.
func (p *Plan) Validate() error {
	for i, op := range p.Operations {
		var err error
		switch {
		case op.Node != nil:
			err = ValidateNode(*op.Node)
		case op.Relationship != nil:
			err = ValidateRelationship(*op.Relationship)
		default:
			err = fmt.Errorf("empty operation")
		}
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

// Apply runs the operations in order inside tx, stopping at the first error.
func (p *Plan) Apply(ctx context.Context, tx Tx) error {
	for i, op := range p.Operations {
		switch {
		case op.Node != nil:
			if err := tx.MergeNode(ctx, *op.Node); err != nil {
				return fmt.Errorf("operation %d (%s): %w", i, op.Node.Label, err)
			}
		case op.Relationship != nil:
			if err := tx.MergeRelationship(ctx, *op.Relationship); err != nil {
				return fmt.Errorf("operation %d (%s): %w", i, op.Relationship.Type, err)
			}
		}
	}
	return nil
}

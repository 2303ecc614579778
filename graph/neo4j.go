package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/giygas/medigraph/logging"
)

// Compile-time checks to ensure Neo4jStore implements Store and Querier
var (
	_ Store   = (*Neo4jStore)(nil)
	_ Querier = (*Neo4jStore)(nil)
)

// Neo4jConfig is enough to open one driver.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore owns one driver for its whole lifetime. Open it with
// OpenNeo4j and release it with Close.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// OpenNeo4j creates the driver and verifies that the server is reachable.
func OpenNeo4j(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		if closeErr := driver.Close(ctx); closeErr != nil {
			logging.Warn("Failed to close neo4j driver", "error", closeErr)
		}
		return nil, fmt.Errorf("neo4j is unreachable at %s: %w", cfg.URI, err)
	}

	logging.Info("Connected to neo4j", "uri", cfg.URI, "database", cfg.Database)
	return &Neo4jStore{driver: driver, database: cfg.Database}, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// Write runs fn in one explicit transaction. The driver's managed retries are
// deliberately not used: a failed transaction is rolled back and reported.
func (s *Neo4jStore) Write(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (*Summary, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer func() {
		if err := session.Close(ctx); err != nil {
			logging.Warn("Failed to close neo4j session", "error", err)
		}
	}()

	explicit, err := session.BeginTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &neo4jTx{tx: explicit, summary: &Summary{}}
	if err := fn(ctx, tx); err != nil {
		if rbErr := explicit.Rollback(ctx); rbErr != nil {
			logging.Warn("Failed to roll back transaction", "error", rbErr)
		}
		return nil, err
	}

	if err := explicit.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return tx.summary, nil
}

// EnsureConstraints creates one uniqueness constraint per label key.
func (s *Neo4jStore) EnsureConstraints(ctx context.Context, constraints []Constraint) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer func() {
		if err := session.Close(ctx); err != nil {
			logging.Warn("Failed to close neo4j session", "error", err)
		}
	}()

	for _, c := range constraints {
		if err := validateConstraint(c); err != nil {
			return err
		}
		stmt := ConstraintStatement(c)
		result, err := session.Run(ctx, stmt.Query, stmt.Params)
		if err != nil {
			return fmt.Errorf("failed to create constraint for %s: %w", c.Label, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to create constraint for %s: %w", c.Label, err)
		}
		logging.Debug("Constraint ensured", "label", c.Label, "keys", c.Keys)
	}
	return nil
}

// Query runs a read-only query in a read transaction and returns each
// record as a map with nodes and relationships flattened to plain values.
func (s *Neo4jStore) Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer func() {
		if err := session.Close(ctx); err != nil {
			logging.Warn("Failed to close neo4j session", "error", err)
		}
	}()

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]map[string]any, 0, len(records))
		for _, record := range records {
			row := make(map[string]any, len(record.Keys))
			for key, value := range record.AsMap() {
				row[key] = plainValue(value)
			}
			out = append(out, row)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows.([]map[string]any), nil
}

// Ping verifies connectivity.
func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type neo4jTx struct {
	tx      neo4j.ExplicitTransaction
	summary *Summary
}

func (t *neo4jTx) MergeNode(ctx context.Context, n Node) error {
	if err := ValidateNode(n); err != nil {
		return err
	}

	stmt := MergeNodeStatement(n)
	result, err := t.tx.Run(ctx, stmt.Query, stmt.Params)
	if err != nil {
		return fmt.Errorf("failed to merge %s: %w", n.Label, err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to merge %s: %w", n.Label, err)
	}

	counters := summary.Counters()
	t.summary.NodesMerged++
	t.summary.NodesCreated += counters.NodesCreated()
	t.summary.PropertiesSet += counters.PropertiesSet()
	return nil
}

func (t *neo4jTx) MergeRelationship(ctx context.Context, r Relationship) error {
	if err := ValidateRelationship(r); err != nil {
		return err
	}

	stmt := MergeRelationshipStatement(r)
	result, err := t.tx.Run(ctx, stmt.Query, stmt.Params)
	if err != nil {
		return fmt.Errorf("failed to merge %s: %w", r.Type, err)
	}

	var linked int64
	if result.Next(ctx) {
		if value, ok := result.Record().Get("linked"); ok {
			linked, _ = value.(int64)
		}
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to merge %s: %w", r.Type, err)
	}
	if linked == 0 {
		return fmt.Errorf("%w: %s-[%s]->%s", ErrMissingEndpoint, r.From.Label, r.Type, r.To.Label)
	}

	counters := summary.Counters()
	t.summary.RelationshipsMerged++
	t.summary.RelationshipsCreated += counters.RelationshipsCreated()
	t.summary.PropertiesSet += counters.PropertiesSet()
	return nil
}

// IsRetryable reports whether err is a transient store failure, such as a
// lost connection or a deadlock, after which the whole write may be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return neo4j.IsRetryable(err) || neo4j.IsConnectivityError(err)
}

func validateConstraint(c Constraint) error {
	if !identifierRegex.MatchString(c.Label) {
		return fmt.Errorf("%w: label %q", ErrInvalidIdentifier, c.Label)
	}
	if len(c.Keys) == 0 {
		return fmt.Errorf("%w: constraint on %s has no keys", ErrInvalidIdentifier, c.Label)
	}
	for _, key := range c.Keys {
		if !identifierRegex.MatchString(key) {
			return fmt.Errorf("%w: property %q", ErrInvalidIdentifier, key)
		}
	}
	return nil
}

func plainValue(value any) any {
	switch v := value.(type) {
	case neo4j.Node:
		return map[string]any{"labels": v.Labels, "properties": v.Props}
	case neo4j.Relationship:
		return map[string]any{"type": v.Type, "properties": v.Props}
	case neo4j.Path:
		nodes := make([]any, len(v.Nodes))
		for i, n := range v.Nodes {
			nodes[i] = plainValue(n)
		}
		rels := make([]any, len(v.Relationships))
		for i, r := range v.Relationships {
			rels[i] = plainValue(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plainValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = plainValue(item)
		}
		return out
	}
	return value
}

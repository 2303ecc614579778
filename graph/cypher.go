package graph

import (
	"fmt"
	"strings"
)

// Statement is a parameterised Cypher statement.
type Statement struct {
	Query  string
	Params map[string]any
}

// MergeNodeStatement builds the MERGE for a node upsert. Identifiers must
// already be validated.
func MergeNodeStatement(n Node) Statement {
	params := make(map[string]any, len(n.Key)+2)
	pattern := keyPattern("key", n.Key, params)

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE (n:`%s` {%s})", n.Label, pattern)
	if len(n.OnCreate) > 0 {
		b.WriteString("\nON CREATE SET n += $onCreate")
		params["onCreate"] = n.OnCreate
	}
	if len(n.Set) > 0 {
		b.WriteString("\nSET n += $set")
		params["set"] = n.Set
	}

	return Statement{Query: b.String(), Params: params}
}

// MergeRelationshipStatement builds the MERGE for a relationship upsert. The
// statement returns a single "linked" column that is 0 when an endpoint is
// missing.
func MergeRelationshipStatement(r Relationship) Statement {
	params := make(map[string]any, len(r.From.Key)+len(r.To.Key)+1)
	from := keyPattern("from", r.From.Key, params)
	to := keyPattern("to", r.To.Key, params)

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (a:`%s` {%s})\n", r.From.Label, from)
	fmt.Fprintf(&b, "MATCH (b:`%s` {%s})\n", r.To.Label, to)
	fmt.Fprintf(&b, "MERGE (a)-[r:`%s`]->(b)\n", r.Type)
	if len(r.Set) > 0 {
		b.WriteString("SET r += $set\n")
		params["set"] = r.Set
	}
	b.WriteString("RETURN count(r) AS linked")

	return Statement{Query: b.String(), Params: params}
}

// ConstraintStatement builds an idempotent uniqueness constraint.
func ConstraintStatement(c Constraint) Statement {
	props := make([]string, len(c.Keys))
	for i, key := range c.Keys {
		props[i] = "n.`" + key + "`"
	}

	target := props[0]
	if len(props) > 1 {
		target = "(" + strings.Join(props, ", ") + ")"
	}

	name := strings.ToLower(c.Label) + "_key"
	query := fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:`%s`) REQUIRE %s IS UNIQUE", name, c.Label, target)
	return Statement{Query: query}
}

func keyPattern(prefix string, key map[string]any, params map[string]any) string {
	parts := make([]string, 0, len(key))
	for i, name := range sortedKeys(key) {
		param := fmt.Sprintf("%s%d", prefix, i)
		parts = append(parts, fmt.Sprintf("`%s`: $%s", name, param))
		params[param] = key[name]
	}
	return strings.Join(parts, ", ")
}

package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeNodeStatement(t *testing.T) {
	stmt := MergeNodeStatement(Node{
		Label:    "Ingredient",
		Key:      map[string]any{"name": "Paracetamol"},
		OnCreate: map[string]any{"composition_mg": 650.0},
	})

	assert.Equal(t, "MERGE (n:`Ingredient` {`name`: $key0})\nON CREATE SET n += $onCreate", stmt.Query)
	assert.Equal(t, map[string]any{
		"key0":     "Paracetamol",
		"onCreate": map[string]any{"composition_mg": 650.0},
	}, stmt.Params)
}

func TestMergeNodeStatementCompositeKeyIsOrdered(t *testing.T) {
	stmt := MergeNodeStatement(Node{
		Label: "AdministrationInstruction",
		Key:   map[string]any{"instruction_type": "before_or_after_food", "instruction": "After food"},
		Set:   map[string]any{"source": "ocr"},
	})

	assert.Equal(t,
		"MERGE (n:`AdministrationInstruction` {`instruction`: $key0, `instruction_type`: $key1})\nSET n += $set",
		stmt.Query)
	assert.Equal(t, "After food", stmt.Params["key0"])
	assert.Equal(t, "before_or_after_food", stmt.Params["key1"])
}

func TestMergeRelationshipStatement(t *testing.T) {
	stmt := MergeRelationshipStatement(Relationship{
		From: NodeRef{Label: "MechanismOfAction", Key: map[string]any{"description": "Inhibits COX"}},
		Type: "HAS_STEP",
		To:   NodeRef{Label: "MechanismStep", Key: map[string]any{"description": "step1"}},
		Set:  map[string]any{"position": 1},
	})

	want := "MATCH (a:`MechanismOfAction` {`description`: $from0})\n" +
		"MATCH (b:`MechanismStep` {`description`: $to0})\n" +
		"MERGE (a)-[r:`HAS_STEP`]->(b)\n" +
		"SET r += $set\n" +
		"RETURN count(r) AS linked"
	assert.Equal(t, want, stmt.Query)
	assert.Equal(t, "Inhibits COX", stmt.Params["from0"])
	assert.Equal(t, "step1", stmt.Params["to0"])
	assert.Equal(t, map[string]any{"position": 1}, stmt.Params["set"])
}

func TestConstraintStatement(t *testing.T) {
	single := ConstraintStatement(Constraint{Label: "SideEffect", Keys: []string{"name"}})
	assert.Equal(t, "CREATE CONSTRAINT sideeffect_key IF NOT EXISTS FOR (n:`SideEffect`) REQUIRE n.`name` IS UNIQUE", single.Query)

	composite := ConstraintStatement(Constraint{Label: "AdministrationInstruction", Keys: []string{"instruction_type", "instruction"}})
	assert.Equal(t,
		"CREATE CONSTRAINT administrationinstruction_key IF NOT EXISTS FOR (n:`AdministrationInstruction`) REQUIRE (n.`instruction_type`, n.`instruction`) IS UNIQUE",
		composite.Query)
}

func TestValidateNodeRejectsUnsafeIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want error
	}{
		{"label injection", Node{Label: "Medicine`) DETACH DELETE n //", Key: map[string]any{"name": "x"}}, ErrInvalidIdentifier},
		{"property injection", Node{Label: "Medicine", Key: map[string]any{"na me": "x"}}, ErrInvalidIdentifier},
		{"set property injection", Node{Label: "Medicine", Key: map[string]any{"name": "x"}, Set: map[string]any{"a-b": 1}}, ErrInvalidIdentifier},
		{"empty key", Node{Label: "Medicine"}, ErrNullKey},
		{"nil key value", Node{Label: "Medicine", Key: map[string]any{"brand_name": nil}}, ErrNullKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNode(tt.node)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestValidateRelationshipType(t *testing.T) {
	ref := NodeRef{Label: "Medicine", Key: map[string]any{"brand_name": "Dolo-650"}}

	err := ValidateRelationship(Relationship{From: ref, Type: "MAY CAUSE", To: ref})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	assert.NoError(t, ValidateRelationship(Relationship{From: ref, Type: "MAY_CAUSE", To: ref}))
}

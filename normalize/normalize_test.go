package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAbsent(t *testing.T) {
	var nilPtr *string
	empty := ""
	full := "x"

	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"whitespace string", " ", false},
		{"empty map", map[string]any{}, true},
		{"empty slice", []any{}, true},
		{"empty typed slice", []string{}, true},
		{"nil typed slice", []string(nil), true},
		{"empty typed map", map[string]string{}, true},
		{"nil pointer", nilPtr, true},
		{"pointer to empty", &empty, true},
		{"pointer to value", &full, false},
		{"zero int", 0, false},
		{"zero float", 0.0, false},
		{"false", false, false},
		{"string", "Nausea", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAbsent(tt.value))
		})
	}
}

func TestPruneRemovesAbsentEntriesRecursively(t *testing.T) {
	input := map[string]any{
		"generic_name": "Paracetamol",
		"brand_name":   "",
		"manufacturer": nil,
		"uses":         []any{},
		"side_effects": []any{"", "Nausea", nil},
		"dosage_guidelines": map[string]any{
			"max_daily_dosage": nil,
			"overdose_effects": []any{},
		},
		"ingredients": []any{
			map[string]any{"name": "Paracetamol", "composition_mg": 0.0},
			map[string]any{"name": "", "composition_mg": nil},
		},
		"administration_instructions": map[string]any{
			"before_or_after_food": "After food",
			"with_what_to_take":    []any{""},
		},
		"flags": map[string]any{"chewable": false},
	}

	got := PruneMap(input)

	want := map[string]any{
		"generic_name": "Paracetamol",
		"side_effects": []any{"Nausea"},
		"ingredients": []any{
			map[string]any{"name": "Paracetamol", "composition_mg": 0.0},
		},
		"administration_instructions": map[string]any{
			"before_or_after_food": "After food",
		},
		"flags": map[string]any{"chewable": false},
	}
	assert.Equal(t, want, got)
}

func TestPruneDoesNotMutateInput(t *testing.T) {
	raw := `{"brand_name":"","uses":["", "Fever"],"dosage_guidelines":{"max_daily_dosage":null}}`
	var input map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &input))

	var before map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &before))

	_ = PruneMap(input)

	assert.Equal(t, before, input)
}

func TestPruneEntirelyAbsentRecord(t *testing.T) {
	input := map[string]any{
		"a": map[string]any{"b": map[string]any{"c": ""}},
		"d": []any{nil, []any{}},
	}

	assert.Nil(t, Prune(input))
	assert.Equal(t, map[string]any{}, PruneMap(input))
}

func TestPruneTypedContainers(t *testing.T) {
	input := map[string]any{
		"uses":  []string{"Pain relief", ""},
		"notes": map[string]string{"a": "", "b": "kept"},
		"none":  []string{},
	}

	got := PruneMap(input)

	assert.Equal(t, map[string]any{
		"uses":  []any{"Pain relief"},
		"notes": map[string]any{"b": "kept"},
	}, got)
}

func TestAbsentPaths(t *testing.T) {
	input := map[string]any{
		"generic_name": "Paracetamol",
		"brand_name":   nil,
		"dosage_guidelines": map[string]any{
			"max_daily_dosage": "4000 mg",
			"overdose_effects": []any{},
		},
		"drug_interactions": []any{
			map[string]any{"drug_name": "Warfarin", "effects": "Bleeding"},
			map[string]any{"drug_name": "Alcohol", "effects": "Liver damage"},
			map[string]any{"drug_name": "Ibuprofen", "effects": ""},
		},
		"storage_and_shelf_life": map[string]any{
			"shelf_life": "",
		},
		"power_mg": 0,
	}

	got := AbsentPaths(input)

	assert.Equal(t, []string{
		"brand_name",
		"dosage_guidelines.overdose_effects",
		"drug_interactions[2].effects",
		"storage_and_shelf_life",
		"storage_and_shelf_life.shelf_life",
	}, got)
}

func TestAbsentPathsLeavesInputUntouched(t *testing.T) {
	input := map[string]any{"uses": []any{""}}

	got := AbsentPaths(input)

	assert.Equal(t, []string{"uses", "uses[0]"}, got)
	assert.Equal(t, map[string]any{"uses": []any{""}}, input)
}

func TestPruneAndAbsentPathsAgree(t *testing.T) {
	input := map[string]any{
		"a": "",
		"b": map[string]any{"c": nil, "d": 1},
		"e": []any{map[string]any{}},
	}

	pruned := PruneMap(input)
	for _, path := range AbsentPaths(input) {
		switch path {
		case "a", "e", "e[0]":
			_, ok := pruned[path]
			assert.False(t, ok, path)
		case "b.c":
			_, ok := pruned["b"].(map[string]any)["c"]
			assert.False(t, ok, path)
		default:
			t.Errorf("unexpected path %s", path)
		}
	}
}

package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPromptsAreComplete(t *testing.T) {
	set, err := Default()
	require.NoError(t, err)

	assert.NotEmpty(t, set.OCR)
	assert.NotEmpty(t, set.Details)
	assert.NotEmpty(t, set.Query)
	assert.NotEmpty(t, set.Answer)
	assert.Contains(t, set.Query, "{{schema}}")
}

func TestLoadOverridesOnlyGivenEntries(t *testing.T) {
	defaults, err := Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr: |\n  Read the label.\n"), 0o644))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Read the label.", set.OCR)
	assert.Equal(t, defaults.Details, set.Details)
	assert.Equal(t, defaults.Query, set.Query)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	defaults, err := Default()
	require.NoError(t, err)

	set, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaults, set)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr: [unterminated"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestQueryFor(t *testing.T) {
	set := &Set{Query: "Schema:\n{{schema}}\nEnd"}
	assert.Equal(t, "Schema:\n(:Medicine)\nEnd", set.QueryFor("(:Medicine)"))
}

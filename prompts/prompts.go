// Package prompts holds the instructions sent to the language model. A
// default set is embedded in the binary; a YAML file can override any of
// its entries.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Set is one complete set of prompts.
type Set struct {
	OCR     string `yaml:"ocr"`
	Details string `yaml:"details"`
	Query   string `yaml:"query"`
	Answer  string `yaml:"answer"`
}

// Default returns the embedded prompt set.
func Default() (*Set, error) {
	set, err := parse(defaultPromptsYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded prompts: %w", err)
	}
	return set, nil
}

// Load returns the embedded prompt set with the entries of path layered on
// top. An empty path returns the defaults.
func Load(path string) (*Set, error) {
	set, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	override, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	if override.OCR != "" {
		set.OCR = override.OCR
	}
	if override.Details != "" {
		set.Details = override.Details
	}
	if override.Query != "" {
		set.Query = override.Query
	}
	if override.Answer != "" {
		set.Answer = override.Answer
	}
	return set, nil
}

// QueryFor renders the query prompt for the given graph schema.
func (s *Set) QueryFor(schema string) string {
	return strings.ReplaceAll(s.Query, "{{schema}}", schema)
}

func parse(data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	set.OCR = strings.TrimSpace(set.OCR)
	set.Details = strings.TrimSpace(set.Details)
	set.Query = strings.TrimSpace(set.Query)
	set.Answer = strings.TrimSpace(set.Answer)
	return &set, nil
}

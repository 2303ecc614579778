// Package extraction turns package photographs into medicine documents using
// an OpenAI-compatible chat completion API: a vision call reads the package
// and a second call completes the full record.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/text/unicode/norm"

	"github.com/giygas/medigraph/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

var (
	ErrNoChoices         = errors.New("model returned no choices")
	ErrEmptyResponse     = errors.New("model returned an empty response")
	ErrMalformedResponse = errors.New("model returned malformed JSON")
)

// ChatCompleter is the subset of *openai.Client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient creates an OpenAI client. A non-empty baseURL points it at any
// compatible endpoint.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// schemaFor derives the response schema from a Go type's json and
// description tags.
func schemaFor(v any) (*jsonschema.Definition, error) {
	schema, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response schema: %w", err)
	}
	return schema, nil
}

// completeJSON runs one chat completion constrained to schema and decodes
// the answer as a JSON object with NFC-normalized strings.
func completeJSON(ctx context.Context, client ChatCompleter, model, name string, schema *jsonschema.Definition, messages []openai.ChatCompletionMessage) (map[string]any, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: schema,
				Strict: false,
			},
		},
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		logging.Error("Chat completion failed", "call", name, "model", model, "error", err)
		return nil, fmt.Errorf("%s completion failed: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoChoices)
	}
	logging.Debug("Chat completion received", "call", name, "finish_reason", resp.Choices[0].FinishReason)

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyResponse)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrMalformedResponse, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%s: %w: not an object", name, ErrMalformedResponse)
	}

	return NormalizeText(doc).(map[string]any), nil
}

// NormalizeText returns a copy of v with every string in NFC form and
// trimmed of surrounding whitespace.
func NormalizeText(v any) any {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(norm.NFC.String(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = NormalizeText(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeText(item)
		}
		return out
	default:
		return v
	}
}

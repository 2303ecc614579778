package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/logging"
)

// DetailGenerator completes identification fields into a full record.
type DetailGenerator struct {
	client ChatCompleter
	model  string
	prompt string
	schema *jsonschema.Definition
}

// Compile-time check to ensure DetailGenerator implements DetailGenerator
var _ interfaces.DetailGenerator = (*DetailGenerator)(nil)

func NewDetailGenerator(client ChatCompleter, model, prompt string) (*DetailGenerator, error) {
	schema, err := schemaFor(detailSchema{})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	return &DetailGenerator{client: client, model: model, prompt: prompt, schema: schema}, nil
}

// Generate returns the full medicine document for ocr. Identification
// fields read from the package win over whatever the model returns for them.
func (g *DetailGenerator) Generate(ctx context.Context, ocr map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(ocr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identification data: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: g.prompt},
		{Role: openai.ChatMessageRoleUser, Content: string(payload)},
	}

	doc, err := completeJSON(ctx, g.client, g.model, "medicine_details", g.schema, messages)
	if err != nil {
		return nil, err
	}

	for _, field := range []string{"generic_name", "brand_name", "manufacturer", "power_mg"} {
		if value, ok := ocr[field].(string); ok && value != "" {
			doc[field] = value
		}
	}

	logging.Info("Medicine details generated", "brand_name", doc["brand_name"])
	return doc, nil
}

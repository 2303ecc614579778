package extraction

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/logging"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// OCRExtractor reads the identification fields printed on a package.
type OCRExtractor struct {
	client ChatCompleter
	model  string
	prompt string
	schema *jsonschema.Definition
}

// Compile-time check to ensure OCRExtractor implements OCRExtractor
var _ interfaces.OCRExtractor = (*OCRExtractor)(nil)

// NewOCRExtractor creates an extractor sending prompt with each image.
func NewOCRExtractor(client ChatCompleter, model, prompt string) (*OCRExtractor, error) {
	schema, err := schemaFor(ocrSchema{})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	return &OCRExtractor{client: client, model: model, prompt: prompt, schema: schema}, nil
}

// Extract sends image to the vision model and returns the identification
// document it read.
func (e *OCRExtractor) Extract(ctx context.Context, image []byte) (map[string]any, error) {
	dataURL, err := ImageDataURL(image)
	if err != nil {
		return nil, err
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: e.prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					},
				},
			},
		},
	}

	doc, err := completeJSON(ctx, e.client, e.model, "medicine_ocr", e.schema, messages)
	if err != nil {
		return nil, err
	}

	logging.Info("Package read", "brand_name", doc["brand_name"], "generic_name", doc["generic_name"])
	return doc, nil
}

// ImageDataURL detects the image type of data and encodes it as a base64
// data URL.
func ImageDataURL(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mtype.String())
	}

	return fmt.Sprintf("data:%s;base64,%s", mtype.String(), base64.StdEncoding.EncodeToString(data)), nil
}

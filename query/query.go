// Package query answers natural-language questions from the graph: the
// model writes one read-only Cypher query, the store runs it in a read
// transaction and the model phrases the rows as an answer.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/giygas/medigraph/extraction"
	"github.com/giygas/medigraph/graph"
	"github.com/giygas/medigraph/importer"
	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/logging"
	"github.com/giygas/medigraph/prompts"
	"github.com/giygas/medigraph/validation"
)

const maxRows = 25

var (
	ErrInvalidQuestion = errors.New("invalid question")
	ErrWriteQuery      = errors.New("generated query is not read-only")
	ErrEmptyQuery      = errors.New("model returned no query")
)

var (
	literalRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`)
	writeRegex   = regexp.MustCompile(`(?i)\b(CREATE|MERGE|SET|DELETE|DETACH|REMOVE|DROP|LOAD\s+CSV|CALL|FOREACH)\b`)
	fenceRegex   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// Answerer implements interfaces.QuestionAnswerer.
type Answerer struct {
	client    extraction.ChatCompleter
	querier   graph.Querier
	validator interfaces.RecordValidator
	prompts   *prompts.Set
	model     string
}

// Compile-time check to ensure Answerer implements QuestionAnswerer
var _ interfaces.QuestionAnswerer = (*Answerer)(nil)

func New(client extraction.ChatCompleter, querier graph.Querier, set *prompts.Set, model string) *Answerer {
	if model == "" {
		model = extraction.DefaultModel
	}
	return &Answerer{
		client:    client,
		querier:   querier,
		validator: validation.NewRecordValidator(),
		prompts:   set,
		model:     model,
	}
}

// Ask answers question. The generated query is returned with the answer.
func (a *Answerer) Ask(ctx context.Context, question string) (*interfaces.Answer, error) {
	if err := a.validator.ValidateQuestion(question); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}

	raw, err := a.complete(ctx, a.prompts.QueryFor(importer.SchemaDescription()), question)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query: %w", err)
	}

	cypher := CleanQuery(raw)
	if cypher == "" {
		return nil, ErrEmptyQuery
	}
	if err := CheckReadOnly(cypher); err != nil {
		logging.Warn("Refused generated query", "query", cypher, "error", err)
		return nil, err
	}

	logging.Debug("Running generated query", "query", cypher)
	rows, err := a.querier.Query(ctx, cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to run generated query: %w", err)
	}
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	payload, err := json.Marshal(map[string]any{"question": question, "results": rows})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query results: %w", err)
	}

	text, err := a.complete(ctx, a.prompts.Answer, string(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to phrase answer: %w", err)
	}

	logging.Info("Question answered", "rows", len(rows))
	return &interfaces.Answer{
		Question: question,
		Query:    cypher,
		Rows:     rows,
		Text:     strings.TrimSpace(text),
	}, nil
}

func (a *Answerer) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", extraction.ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// CleanQuery strips code fences and a trailing semicolon from a generated
// query.
func CleanQuery(raw string) string {
	q := strings.TrimSpace(raw)
	if m := fenceRegex.FindStringSubmatch(q); m != nil {
		q = m[1]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(q), ";"))
}

// CheckReadOnly rejects queries containing write clauses outside string
// literals, and multiple statements.
func CheckReadOnly(cypher string) error {
	stripped := literalRegex.ReplaceAllString(cypher, "''")
	if kw := writeRegex.FindString(stripped); kw != "" {
		return fmt.Errorf("%w: contains %s", ErrWriteQuery, strings.ToUpper(kw))
	}
	if strings.Contains(stripped, ";") {
		return fmt.Errorf("%w: multiple statements", ErrWriteQuery)
	}
	return nil
}

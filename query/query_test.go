package query

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giygas/medigraph/prompts"
)

// scriptedCompleter returns its replies in order.
type scriptedCompleter struct {
	replies  []string
	requests []openai.ChatCompletionRequest
}

func (s *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no scripted reply left")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: reply}}},
	}, nil
}

type fakeQuerier struct {
	rows    []map[string]any
	err     error
	queries []string
}

func (f *fakeQuerier) Query(_ context.Context, query string, _ map[string]any) ([]map[string]any, error) {
	f.queries = append(f.queries, query)
	return f.rows, f.err
}

func newAnswerer(t *testing.T, completer *scriptedCompleter, querier *fakeQuerier) *Answerer {
	t.Helper()
	set, err := prompts.Default()
	require.NoError(t, err)
	return New(completer, querier, set, "")
}

func TestAskRunsGeneratedQuery(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		"```cypher\nMATCH (m:Medicine)-[:USED_FOR]->(u:Use) WHERE toLower(m.brand_name) CONTAINS toLower('Dolo-650') RETURN u.name AS use;\n```",
		"Dolo-650 is used for pain relief and fever reduction.",
	}}
	querier := &fakeQuerier{rows: []map[string]any{{"use": "Pain relief"}, {"use": "Fever reduction"}}}

	answer, err := newAnswerer(t, completer, querier).Ask(context.Background(), "In what cases should I take Dolo-650?")
	require.NoError(t, err)

	expectedQuery := "MATCH (m:Medicine)-[:USED_FOR]->(u:Use) WHERE toLower(m.brand_name) CONTAINS toLower('Dolo-650') RETURN u.name AS use"
	assert.Equal(t, expectedQuery, answer.Query)
	assert.Equal(t, []string{expectedQuery}, querier.queries)
	assert.Len(t, answer.Rows, 2)
	assert.Equal(t, "Dolo-650 is used for pain relief and fever reduction.", answer.Text)

	require.Len(t, completer.requests, 2)
	assert.Contains(t, completer.requests[0].Messages[0].Content, "(:Medicine)-[:USED_FOR]->(:Use)")
	assert.Contains(t, completer.requests[1].Messages[1].Content, "Fever reduction")
}

func TestAskRefusesWriteQueries(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"MATCH (m:Medicine) DETACH DELETE m"}}
	querier := &fakeQuerier{}

	_, err := newAnswerer(t, completer, querier).Ask(context.Background(), "Remove every medicine")
	assert.ErrorIs(t, err, ErrWriteQuery)
	assert.Empty(t, querier.queries)
}

func TestAskRejectsInvalidQuestion(t *testing.T) {
	completer := &scriptedCompleter{}
	_, err := newAnswerer(t, completer, &fakeQuerier{}).Ask(context.Background(), "<script>alert(1)</script>")
	assert.ErrorIs(t, err, ErrInvalidQuestion)
	assert.Empty(t, completer.requests)
}

func TestAskPropagatesQueryFailure(t *testing.T) {
	boom := errors.New("connection refused")
	completer := &scriptedCompleter{replies: []string{"MATCH (m:Medicine) RETURN m.brand_name"}}

	_, err := newAnswerer(t, completer, &fakeQuerier{err: boom}).Ask(context.Background(), "Which medicines are known?")
	assert.ErrorIs(t, err, boom)
}

func TestAskEmptyQuery(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"```\n```"}}
	_, err := newAnswerer(t, completer, &fakeQuerier{}).Ask(context.Background(), "Which medicines are known?")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		query string
		ok    bool
	}{
		{"MATCH (m:Medicine) RETURN m", true},
		{"MATCH (m:Medicine {brand_name: 'Create-500'}) RETURN m", true},
		{"MATCH (s:StorageCondition) WHERE s.condition CONTAINS \"set aside\" RETURN s", true},
		{"MATCH (m:Medicine) SET m.x = 1", false},
		{"MERGE (m:Medicine {brand_name: 'x'})", false},
		{"match (m) detach delete m", false},
		{"CALL db.labels()", false},
		{"LOAD CSV FROM 'file:///x' AS row RETURN row", false},
		{"MATCH (m) RETURN m; MATCH (n) RETURN n", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			err := CheckReadOnly(tt.query)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWriteQuery)
			}
		})
	}
}

func TestCleanQuery(t *testing.T) {
	assert.Equal(t, "MATCH (n) RETURN n", CleanQuery("```cypher\nMATCH (n) RETURN n;\n```"))
	assert.Equal(t, "MATCH (n) RETURN n", CleanQuery("  MATCH (n) RETURN n  "))
}

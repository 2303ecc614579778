package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giygas/medigraph/graph"
	"github.com/giygas/medigraph/health"
	"github.com/giygas/medigraph/importer"
	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/pipeline"
	"github.com/giygas/medigraph/query"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

const doloRecord = `{
	"generic_name": "Paracetamol",
	"brand_name": "Dolo-650",
	"manufacturer": "Micro Labs",
	"power_mg": "650 mg",
	"side_effects": ["Nausea", null],
	"uses": ["Fever"]
}`

type stubPipeline struct {
	image []byte
	err   error
}

func (s *stubPipeline) Run(ctx context.Context, image []byte) (*interfaces.ScanResult, error) {
	s.image = image
	if s.err != nil {
		return nil, s.err
	}
	return &interfaces.ScanResult{RunID: "run-1", BrandName: "Dolo-650", Summary: &graph.Summary{NodesCreated: 3}}, nil
}

type stubAnswerer struct {
	err error
}

func (s *stubAnswerer) Ask(ctx context.Context, question string) (*interfaces.Answer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &interfaces.Answer{Question: question, Query: "MATCH (m:Medicine) RETURN count(m)", Text: "There is one medicine."}, nil
}

// failingStore reports a transient failure on every write.
type failingStore struct {
	*graph.MemoryStore
	err error
}

func (f *failingStore) Write(ctx context.Context, fn func(ctx context.Context, tx graph.Tx) error) (*graph.Summary, error) {
	return nil, f.err
}

func newRouter(h *HTTPHandlerImpl) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/medicines", h.ImportMedicine)
	r.Post("/v1/medicines/plan", h.PlanMedicine)
	r.Post("/v1/scans", h.Scan)
	r.Post("/v1/questions", h.Ask)
	r.Get("/health", h.HealthCheck)
	r.NotFound(NotFound)
	return r
}

func newHandler(store graph.Store, p interfaces.Pipeline, a interfaces.QuestionAnswerer) *HTTPHandlerImpl {
	return NewHTTPHandler(importer.New(store), p, a, health.NewHealthChecker(store, "memory"))
}

func do(t *testing.T, handler http.Handler, method, target, contentType string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded), rr.Body.String())
	}
	return rr, decoded
}

func TestImportMedicine(t *testing.T) {
	store := graph.NewMemoryStore()
	router := newRouter(newHandler(store, nil, nil))

	rr, body := do(t, router, http.MethodPost, "/v1/medicines", "application/json", []byte(doloRecord))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.EqualValues(t, 3, body["nodes_created"])
	assert.EqualValues(t, 2, body["relationships_created"])
	assert.Equal(t, 3, store.NodeCount())
}

func TestImportMedicineValidation(t *testing.T) {
	store := graph.NewMemoryStore()
	router := newRouter(newHandler(store, nil, nil))

	rr, body := do(t, router, http.MethodPost, "/v1/medicines", "application/json", []byte(`{"generic_name":"Paracetamol"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "brand_name", body["field"])
	assert.Zero(t, store.NodeCount())
}

func TestImportMedicineBadBody(t *testing.T) {
	router := newRouter(newHandler(graph.NewMemoryStore(), nil, nil))

	for _, body := range []string{"", "   ", "[1,2]", "null", "{broken"} {
		rr, _ := do(t, router, http.MethodPost, "/v1/medicines", "application/json", []byte(body))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %q", body)
	}
}

func TestImportMedicineStoreFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"deadline is retryable", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"generic failure", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &failingStore{MemoryStore: graph.NewMemoryStore(), err: tt.err}
			router := newRouter(newHandler(store, nil, nil))

			rr, body := do(t, router, http.MethodPost, "/v1/medicines", "application/json", []byte(doloRecord))
			assert.Equal(t, tt.code, rr.Code)
			assert.Equal(t, "graph store failure", body["message"])
		})
	}
}

func TestRespondWithFailureRetryableStore(t *testing.T) {
	rr := httptest.NewRecorder()
	respondWithFailure(rr, &importer.StoreError{Retryable: true, Err: errors.New("leader switch")})

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"retryable":true`)
}

func TestPlanMedicine(t *testing.T) {
	store := graph.NewMemoryStore()
	router := newRouter(newHandler(store, nil, nil))

	rr, body := do(t, router, http.MethodPost, "/v1/medicines/plan", "application/json", []byte(doloRecord))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	nodes := body["nodes"].(map[string]any)
	assert.EqualValues(t, 1, nodes["Medicine"])
	assert.EqualValues(t, 1, nodes["SideEffect"])
	rels := body["relationships"].(map[string]any)
	assert.EqualValues(t, 1, rels["MAY_CAUSE"])
	assert.Len(t, body["operations"], 5)
	assert.Zero(t, store.NodeCount(), "dry run must not write")
}

func TestScanRawBody(t *testing.T) {
	p := &stubPipeline{}
	router := newRouter(newHandler(graph.NewMemoryStore(), p, nil))

	rr, body := do(t, router, http.MethodPost, "/v1/scans", "image/png", pngImage)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, pngImage, p.image)
}

func TestScanMultipart(t *testing.T) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(ImageField, "box.png")
	require.NoError(t, err)
	_, err = part.Write(pngImage)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	p := &stubPipeline{}
	router := newRouter(newHandler(graph.NewMemoryStore(), p, nil))

	rr, _ := do(t, router, http.MethodPost, "/v1/scans", form.FormDataContentType(), buf.Bytes())

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, pngImage, p.image)
}

func TestScanRejectsNonImage(t *testing.T) {
	p := &stubPipeline{}
	router := newRouter(newHandler(graph.NewMemoryStore(), p, nil))

	rr, body := do(t, router, http.MethodPost, "/v1/scans", "image/png", []byte("just some text"))

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	assert.True(t, strings.HasPrefix(body["detected_type"].(string), "text/plain"))
	assert.Nil(t, p.image, "pipeline must not run")
}

func TestScanEmptyBody(t *testing.T) {
	router := newRouter(newHandler(graph.NewMemoryStore(), &stubPipeline{}, nil))

	rr, _ := do(t, router, http.MethodPost, "/v1/scans", "image/png", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScanStageFailure(t *testing.T) {
	stageErr := &pipeline.StageError{
		RunID: "run-2",
		Stage: pipeline.StageImport,
		Err:   &importer.ValidationError{Field: "generic_name", Reason: "is required"},
	}
	router := newRouter(newHandler(graph.NewMemoryStore(), &stubPipeline{err: stageErr}, nil))

	rr, body := do(t, router, http.MethodPost, "/v1/scans", "image/png", pngImage)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "import", body["stage"])
	assert.Equal(t, "generic_name", body["field"])
}

func TestScanNotConfigured(t *testing.T) {
	router := newRouter(newHandler(graph.NewMemoryStore(), nil, nil))

	rr, _ := do(t, router, http.MethodPost, "/v1/scans", "image/png", pngImage)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAsk(t *testing.T) {
	router := newRouter(newHandler(graph.NewMemoryStore(), nil, &stubAnswerer{}))

	rr, body := do(t, router, http.MethodPost, "/v1/questions", "application/json", []byte(`{"question":"How many medicines?"}`))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "There is one medicine.", body["answer"])
	assert.Equal(t, "How many medicines?", body["question"])
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name     string
		answerer interfaces.QuestionAnswerer
		body     string
		code     int
	}{
		{"not configured", nil, `{"question":"How many medicines?"}`, http.StatusServiceUnavailable},
		{"bad json", &stubAnswerer{}, `{question`, http.StatusBadRequest},
		{"blank question", &stubAnswerer{}, `{"question":"  "}`, http.StatusBadRequest},
		{"invalid question", &stubAnswerer{err: query.ErrInvalidQuestion}, `{"question":"<script>"}`, http.StatusBadRequest},
		{"write query refused", &stubAnswerer{err: query.ErrWriteQuery}, `{"question":"Delete everything"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(newHandler(graph.NewMemoryStore(), nil, tt.answerer))

			rr, _ := do(t, router, http.MethodPost, "/v1/questions", "application/json", []byte(tt.body))
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	router := newRouter(newHandler(graph.NewMemoryStore(), nil, nil))

	rr, body := do(t, router, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", body["status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "memory", data["backend"])
}

func TestNotFound(t *testing.T) {
	router := newRouter(newHandler(graph.NewMemoryStore(), nil, nil))

	rr, body := do(t, router, http.MethodGet, "/v1/unknown", "", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.EqualValues(t, 404, body["code"])
}

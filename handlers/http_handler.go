package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/giygas/medigraph/graph"
	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/logging"
)

// DefaultMaxImageBytes bounds multipart parsing of scan uploads.
const DefaultMaxImageBytes = 10 << 20

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface.
// pipeline and answerer are optional; their endpoints answer 503 when unset.
type HTTPHandlerImpl struct {
	importer      interfaces.Importer
	pipeline      interfaces.Pipeline
	answerer      interfaces.QuestionAnswerer
	healthChecker interfaces.HealthChecker
	maxImageBytes int64
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	importer interfaces.Importer,
	pipeline interfaces.Pipeline,
	answerer interfaces.QuestionAnswerer,
	healthChecker interfaces.HealthChecker,
) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		importer:      importer,
		pipeline:      pipeline,
		answerer:      answerer,
		healthChecker: healthChecker,
		maxImageBytes: DefaultMaxImageBytes,
	}
}

// PlanResponse is the dry-run view of an import.
type PlanResponse struct {
	Nodes         map[string]int    `json:"nodes"`
	Relationships map[string]int    `json:"relationships"`
	Operations    []graph.Operation `json:"operations"`
}

// ImportMedicine imports one medicine record
func (h *HTTPHandlerImpl) ImportMedicine(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	summary, err := h.importer.ImportDocument(r.Context(), doc)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	RespondWithJSON(w, http.StatusCreated, summary)
}

// PlanMedicine returns the upserts an import of the record would issue
func (h *HTTPHandlerImpl) PlanMedicine(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	plan, err := h.importer.PlanDocument(doc)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, PlanResponse{
		Nodes:         plan.CountNodes(),
		Relationships: plan.CountRelationships(),
		Operations:    plan.Operations,
	})
}

// Scan runs a package photograph through the extraction pipeline
func (h *HTTPHandlerImpl) Scan(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "scanning is not configured", nil)
		return
	}

	image, err := readImage(r, h.maxImageBytes)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if detected, ok := isImage(image); !ok {
		logging.Warn("Rejected scan upload", "detected_type", detected)
		RespondWithError(w, http.StatusUnsupportedMediaType, "body is not an image", map[string]any{"detected_type": detected})
		return
	}

	result, err := h.pipeline.Run(r.Context(), image)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	RespondWithJSON(w, http.StatusCreated, result)
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask answers a question from the graph contents
func (h *HTTPHandlerImpl) Ask(w http.ResponseWriter, r *http.Request) {
	if h.answerer == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "questions are not configured", nil)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, errNotAnObject.Error(), nil)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		RespondWithError(w, http.StatusBadRequest, "question is required", nil)
		return
	}

	answer, err := h.answerer.Ask(r.Context(), req.Question)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, answer)
}

// HealthCheck returns the store health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, code := h.healthChecker.HealthCheck(r.Context())

	RespondWithJSON(w, code, map[string]any{
		"status": status,
		"data":   data,
	})
}

// NotFound answers unknown routes in the API error format
func NotFound(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusNotFound, "route not found", nil)
}


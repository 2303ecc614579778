// Package handlers provides the HTTP handlers of the medigraph API: record
// import and dry runs, package photograph scans and graph questions.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/giygas/medigraph/extraction"
	"github.com/giygas/medigraph/importer"
	"github.com/giygas/medigraph/logging"
	"github.com/giygas/medigraph/pipeline"
	"github.com/giygas/medigraph/query"
)

// ImageField is the multipart field carrying a scanned photograph.
const ImageField = "image"

var (
	errEmptyBody    = errors.New("request body is empty")
	errNotAnObject  = errors.New("request body must be a JSON object")
	errMissingImage = errors.New("missing image")
)

// RespondWithJSON writes payload as a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response. Extra fields are merged in.
func RespondWithError(w http.ResponseWriter, code int, message string, extra map[string]any) {
	body := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	for k, v := range extra {
		body[k] = v
	}
	RespondWithJSON(w, code, body)
}

// respondWithFailure maps domain errors to status codes.
func respondWithFailure(w http.ResponseWriter, err error) {
	extra := map[string]any{}
	if stage := pipeline.FailedStage(err); stage != "" {
		extra["stage"] = stage
	}

	var validationErr *importer.ValidationError
	switch {
	case errors.As(err, &validationErr):
		extra["field"] = validationErr.Field
		RespondWithError(w, http.StatusUnprocessableEntity, validationErr.Error(), extra)

	case errors.Is(err, importer.ErrStore):
		code := http.StatusInternalServerError
		if importer.IsRetryable(err) {
			code = http.StatusServiceUnavailable
			extra["retryable"] = true
		}
		RespondWithError(w, code, "graph store failure", extra)

	case errors.Is(err, query.ErrInvalidQuestion),
		errors.Is(err, extraction.ErrEmptyImage):
		RespondWithError(w, http.StatusBadRequest, err.Error(), extra)

	case errors.Is(err, extraction.ErrUnsupportedImage):
		RespondWithError(w, http.StatusUnsupportedMediaType, err.Error(), extra)

	case errors.Is(err, query.ErrWriteQuery),
		errors.Is(err, query.ErrEmptyQuery),
		errors.Is(err, extraction.ErrNoChoices),
		errors.Is(err, extraction.ErrEmptyResponse),
		errors.Is(err, extraction.ErrMalformedResponse):
		RespondWithError(w, http.StatusBadGateway, err.Error(), extra)

	default:
		logging.Error("Request failed", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "internal error", extra)
	}
}

// decodeDocument reads a JSON object body.
func decodeDocument(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errEmptyBody
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return nil, errNotAnObject
	}
	return doc, nil
}

// readImage returns the photograph of a scan request: the multipart field
// "image" for multipart bodies, the raw body otherwise.
func readImage(r *http.Request, maxBytes int64) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		if len(data) == 0 {
			return nil, errMissingImage
		}
		return data, nil
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	file, _, err := r.FormFile(ImageField)
	if err != nil {
		return nil, errMissingImage
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, errMissingImage
	}
	return data, nil
}

// isImage sniffs data instead of trusting the declared content type.
func isImage(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	return detected.String(), strings.HasPrefix(detected.String(), "image/")
}

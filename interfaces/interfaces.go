// Package interfaces defines core abstractions for medigraph
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"

	"github.com/giygas/medigraph/entities"
	"github.com/giygas/medigraph/graph"
)

// ScanResult is the outcome of one photograph going through the pipeline.
type ScanResult struct {
	RunID     string         `json:"run_id"`
	BrandName string         `json:"brand_name"`
	OCR       map[string]any `json:"ocr"`
	Record    map[string]any `json:"record"`
	Summary   *graph.Summary `json:"summary"`
}

// Answer is a natural-language answer to a question about the graph.
type Answer struct {
	Question string           `json:"question"`
	Query    string           `json:"query"`
	Rows     []map[string]any `json:"rows"`
	Text     string           `json:"answer"`
}

// RecordValidator defines the contract for validating records and user input.
type RecordValidator interface {
	// ValidateMedicine checks required fields of a pruned record
	ValidateMedicine(m *entities.Medicine) error

	// ValidateQuestion validates free-text questions
	ValidateQuestion(input string) error
}

// Importer materialises medicine records as graph nodes and relationships.
type Importer interface {
	Import(ctx context.Context, m *entities.Medicine) (*graph.Summary, error)
	ImportDocument(ctx context.Context, doc map[string]any) (*graph.Summary, error)

	// PlanDocument returns the upserts an import would issue, without writing
	PlanDocument(doc map[string]any) (*graph.Plan, error)
}

// OCRExtractor reads identification fields from a package photograph.
type OCRExtractor interface {
	Extract(ctx context.Context, image []byte) (map[string]any, error)
}

// DetailGenerator expands identification fields into a full medicine record.
type DetailGenerator interface {
	Generate(ctx context.Context, ocr map[string]any) (map[string]any, error)
}

// Pipeline runs a photograph through extraction and import.
type Pipeline interface {
	Run(ctx context.Context, image []byte) (*ScanResult, error)
}

// QuestionAnswerer answers questions from the graph contents.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*Answer, error)
}

// Scheduler defines the contract for background jobs.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ImportMedicine(w http.ResponseWriter, r *http.Request)
	PlanMedicine(w http.ResponseWriter, r *http.Request)
	Scan(w http.ResponseWriter, r *http.Request)
	Ask(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// Package pipeline runs a package photograph through OCR, detail generation
// and graph import, one stage after the other.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/logging"
	"github.com/giygas/medigraph/metrics"
)

// Stage names used in errors and metrics.
const (
	StageOCR     = "ocr"
	StageDetails = "details"
	StageImport  = "import"
)

// StageError reports which stage of a run failed.
type StageError struct {
	RunID string
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("scan %s failed at %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline implements interfaces.Pipeline.
type Pipeline struct {
	ocr      interfaces.OCRExtractor
	details  interfaces.DetailGenerator
	importer interfaces.Importer
}

// Compile-time check to ensure Pipeline implements Pipeline
var _ interfaces.Pipeline = (*Pipeline)(nil)

func New(ocr interfaces.OCRExtractor, details interfaces.DetailGenerator, importer interfaces.Importer) *Pipeline {
	return &Pipeline{ocr: ocr, details: details, importer: importer}
}

// Run processes one image. Nothing is written unless both model calls
// succeed.
func (p *Pipeline) Run(ctx context.Context, image []byte) (*interfaces.ScanResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	logging.Info("Scan started", "run_id", runID, "bytes", len(image))

	ocr, err := p.ocr.Extract(ctx, image)
	if err != nil {
		return nil, p.fail(runID, StageOCR, err)
	}

	record, err := p.details.Generate(ctx, ocr)
	if err != nil {
		return nil, p.fail(runID, StageDetails, err)
	}

	summary, err := p.importer.ImportDocument(ctx, record)
	if err != nil {
		return nil, p.fail(runID, StageImport, err)
	}

	brand, _ := record["brand_name"].(string)
	logging.Info("Scan completed",
		"run_id", runID,
		"brand_name", brand,
		"nodes_created", summary.NodesCreated,
		"duration", time.Since(start))

	return &interfaces.ScanResult{
		RunID:     runID,
		BrandName: brand,
		OCR:       ocr,
		Record:    record,
		Summary:   summary,
	}, nil
}

func (p *Pipeline) fail(runID, stage string, err error) error {
	metrics.ScanStageFailures.WithLabelValues(stage).Inc()
	logging.Error("Scan failed", "run_id", runID, "stage", stage, "error", err)
	return &StageError{RunID: runID, Stage: stage, Err: err}
}

// FailedStage returns the stage recorded in err, or "".
func FailedStage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

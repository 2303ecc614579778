// Package importer turns medicine records into nodes and relationships of the
// property graph. Every import runs in a single store transaction: either the
// whole record is materialised or nothing is.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/giygas/medigraph/entities"
	"github.com/giygas/medigraph/graph"
	"github.com/giygas/medigraph/interfaces"
	"github.com/giygas/medigraph/logging"
	"github.com/giygas/medigraph/metrics"
	"github.com/giygas/medigraph/normalize"
	"github.com/giygas/medigraph/validation"
)

// Importer implements interfaces.Importer on top of a graph.Store.
type Importer struct {
	store     graph.Store
	validator interfaces.RecordValidator
}

// Compile-time check to ensure Importer implements Importer
var _ interfaces.Importer = (*Importer)(nil)

// Option configures an Importer.
type Option func(*Importer)

// WithValidator replaces the default record validator.
func WithValidator(v interfaces.RecordValidator) Option {
	return func(im *Importer) {
		im.validator = v
	}
}

// New creates an importer writing to store.
func New(store graph.Store, opts ...Option) *Importer {
	im := &Importer{
		store:     store,
		validator: validation.NewRecordValidator(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import materialises m. Empty strings and empty collections in m are
// treated as absent.
func (im *Importer) Import(ctx context.Context, m *entities.Medicine) (*graph.Summary, error) {
	if m == nil {
		return nil, im.reject(&ValidationError{Field: "record", Reason: "is required"})
	}
	doc, err := m.Document()
	if err != nil {
		return nil, im.reject(&ValidationError{Field: "record", Reason: err.Error()})
	}
	return im.ImportDocument(ctx, doc)
}

// ImportJSON decodes raw as a medicine document and imports it.
func (im *Importer) ImportJSON(ctx context.Context, raw []byte) (*graph.Summary, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, im.reject(&ValidationError{Field: "record", Reason: fmt.Sprintf("is not a JSON object: %v", err)})
	}
	return im.ImportDocument(ctx, doc)
}

// ImportDocument normalises doc, validates it and writes its plan in one
// transaction. Validation failures return before the store is touched.
func (im *Importer) ImportDocument(ctx context.Context, doc map[string]any) (*graph.Summary, error) {
	start := time.Now()

	plan, record, err := im.prepare(doc)
	if err != nil {
		return nil, im.reject(err)
	}

	summary, err := im.store.Write(ctx, plan.Apply)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues(metrics.ResultStoreError).Inc()
		storeErr := &StoreError{Retryable: graph.IsRetryable(err), Err: err}
		logging.Error("Medicine import failed",
			"brand_name", record.Brand(),
			"retryable", storeErr.Retryable,
			"error", err)
		return nil, storeErr
	}

	duration := time.Since(start)
	metrics.ImportsTotal.WithLabelValues(metrics.ResultImported).Inc()
	metrics.ImportDuration.Observe(duration.Seconds())
	metrics.NodesCreatedTotal.Add(float64(summary.NodesCreated))
	metrics.RelationshipsCreatedTotal.Add(float64(summary.RelationshipsCreated))

	logging.Info("Medicine imported",
		"brand_name", record.Brand(),
		"nodes_created", summary.NodesCreated,
		"relationships_created", summary.RelationshipsCreated,
		"duration", duration)

	return summary, nil
}

// PlanDocument returns the upserts ImportDocument would issue for doc.
func (im *Importer) PlanDocument(doc map[string]any) (*graph.Plan, error) {
	plan, _, err := im.prepare(doc)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (im *Importer) prepare(doc map[string]any) (*graph.Plan, *entities.Medicine, error) {
	if absent := normalize.AbsentPaths(doc); len(absent) > 0 {
		logging.Debug("Skipping absent fields", "paths", absent)
	}

	record, err := entities.FromDocument(normalize.PruneMap(doc))
	if err != nil {
		return nil, nil, &ValidationError{Field: "record", Reason: err.Error()}
	}

	if record.BrandName == nil {
		return nil, nil, &ValidationError{Field: "brand_name", Reason: "is required"}
	}

	if err := im.validator.ValidateMedicine(record); err != nil {
		var fieldErr *validation.FieldError
		if errors.As(err, &fieldErr) {
			return nil, nil, &ValidationError{Field: fieldErr.Field, Reason: fieldErr.Reason}
		}
		return nil, nil, &ValidationError{Field: "record", Reason: err.Error()}
	}

	plan := Build(record)
	if err := plan.Validate(); err != nil {
		return nil, nil, &ValidationError{Field: "record", Reason: err.Error()}
	}
	return plan, record, nil
}

func (im *Importer) reject(err error) error {
	metrics.ImportsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
	logging.Warn("Medicine record rejected", "error", err)
	return err
}

// Build returns the upserts for an already pruned record. Callers must have
// checked that BrandName is set; absent fields produce no operations.
func Build(m *entities.Medicine) *graph.Plan {
	plan := &graph.Plan{}

	medicine := graph.Node{
		Label: LabelMedicine,
		Key:   map[string]any{"brand_name": *m.BrandName},
		Set:   map[string]any{"generic_name": m.GenericName},
	}
	if m.Manufacturer != nil {
		medicine.Set["manufacturer"] = *m.Manufacturer
	}
	if m.PowerMg != nil {
		medicine.Set["power_mg"] = *m.PowerMg
	}
	med := plan.AddNode(medicine)

	for _, ing := range m.Ingredients {
		node := named(LabelIngredient, "name", ing.Name)
		if ing.CompositionMg != nil {
			node.OnCreate = map[string]any{"composition_mg": *ing.CompositionMg}
		}
		plan.Link(med, RelContains, plan.AddNode(node), nil)
	}

	for _, use := range m.Uses {
		plan.Link(med, RelUsedFor, plan.AddNode(named(LabelUse, "name", use)), nil)
	}

	if dg := m.DosageGuidelines; dg != nil {
		guideline := plan.AddNode(named(LabelDosageGuideline, "max_daily_dosage", dg.MaxDailyDosage))
		plan.Link(med, RelHasDosageGuideline, guideline, nil)
		for _, effect := range dg.OverdoseEffects {
			plan.Link(guideline, RelMayLeadTo, plan.AddNode(named(LabelOverdoseEffect, "name", effect)), nil)
		}
	}

	if ai := m.AdministrationInstructions; ai != nil {
		for _, item := range ai.WithWhatToTake {
			plan.Link(med, RelHasAdministrationInstruction, plan.AddNode(instruction(InstructionWithWhatToTake, item)), nil)
		}
		if ai.BeforeOrAfterFood != nil {
			plan.Link(med, RelHasAdministrationInstruction, plan.AddNode(instruction(InstructionBeforeOrAfterFood, *ai.BeforeOrAfterFood)), nil)
		}
		for _, item := range ai.WithWhatToTake {
			plan.Link(med, RelTakeWith, plan.AddNode(named(LabelWithWhatToTake, "name", item)), nil)
		}
		if ai.BeforeOrAfterFood != nil {
			plan.Link(med, RelTakeWhen, plan.AddNode(named(LabelBeforeOrAfterFood, "timing", *ai.BeforeOrAfterFood)), nil)
		}
	}

	if moa := m.MechanismOfAction; moa != nil {
		mechanism := plan.AddNode(named(LabelMechanismOfAction, "description", moa.Description))
		plan.Link(med, RelHasMechanism, mechanism, nil)
		for i, step := range moa.DetailedSteps {
			plan.Link(mechanism, RelHasStep, plan.AddNode(named(LabelMechanismStep, "description", step)),
				map[string]any{"position": int64(i + 1)})
		}
	}

	for _, effect := range m.SideEffects {
		plan.Link(med, RelMayCause, plan.AddNode(named(LabelSideEffect, "name", effect)), nil)
	}

	for _, di := range m.DrugInteractions {
		node := named(LabelDrugInteraction, "drug_name", di.DrugName)
		onCreate := map[string]any{}
		if di.InteractionType != nil {
			onCreate["interaction_type"] = *di.InteractionType
		}
		if di.Effects != nil {
			onCreate["effects"] = *di.Effects
		}
		if len(onCreate) > 0 {
			node.OnCreate = onCreate
		}
		plan.Link(med, RelInteractsWith, plan.AddNode(node), nil)
	}

	if ss := m.StorageAndShelfLife; ss != nil {
		for _, cond := range ss.StorageConditions {
			plan.Link(med, RelStoreUnder, plan.AddNode(named(LabelStorageCondition, "condition", cond)), nil)
		}
		if ss.ShelfLife != nil {
			plan.Link(med, RelHasShelfLife, plan.AddNode(named(LabelShelfLife, "duration", *ss.ShelfLife)), nil)
		}
	}

	return plan
}

func named(label, key, value string) graph.Node {
	return graph.Node{Label: label, Key: map[string]any{key: value}}
}

func instruction(kind, text string) graph.Node {
	return graph.Node{
		Label: LabelAdministrationInstruction,
		Key:   map[string]any{"instruction_type": kind, "instruction": text},
	}
}

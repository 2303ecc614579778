// Package entities defines the medicine record produced by the extraction
// stage and consumed by the graph importer.
package entities

import (
	"encoding/json"
	"fmt"
)

// Medicine is one medicine profile. Optional scalars are pointers so that a
// decoded, pruned document keeps the difference between "absent" and a zero
// value such as composition_mg 0.
type Medicine struct {
	GenericName                string                      `json:"generic_name" validate:"required"`
	BrandName                  *string                     `json:"brand_name,omitempty"`
	Manufacturer               *string                     `json:"manufacturer,omitempty"`
	PowerMg                    *string                     `json:"power_mg,omitempty"`
	Ingredients                []Ingredient                `json:"ingredients,omitempty" validate:"dive"`
	Uses                       []string                    `json:"uses,omitempty"`
	DosageGuidelines           *DosageGuideline            `json:"dosage_guidelines,omitempty"`
	AdministrationInstructions *AdministrationInstructions `json:"administration_instructions,omitempty"`
	MechanismOfAction          *MechanismOfAction          `json:"mechanism_of_action,omitempty"`
	SideEffects                []string                    `json:"side_effects,omitempty"`
	DrugInteractions           []DrugInteraction           `json:"drug_interactions,omitempty" validate:"dive"`
	StorageAndShelfLife        *StorageAndShelfLife        `json:"storage_and_shelf_life,omitempty"`
}

type Ingredient struct {
	Name          string   `json:"name" validate:"required"`
	CompositionMg *float64 `json:"composition_mg,omitempty"`
}

type DosageGuideline struct {
	MaxDailyDosage  string   `json:"max_daily_dosage" validate:"required"`
	OverdoseEffects []string `json:"overdose_effects,omitempty"`
}

type AdministrationInstructions struct {
	WithWhatToTake    []string `json:"with_what_to_take,omitempty"`
	BeforeOrAfterFood *string  `json:"before_or_after_food,omitempty"`
}

type MechanismOfAction struct {
	Description   string   `json:"description" validate:"required"`
	DetailedSteps []string `json:"detailed_steps,omitempty"`
}

type DrugInteraction struct {
	DrugName        string  `json:"drug_name" validate:"required"`
	InteractionType *string `json:"interaction_type,omitempty"`
	Effects         *string `json:"effects,omitempty"`
}

type StorageAndShelfLife struct {
	StorageConditions []string `json:"storage_conditions,omitempty"`
	ShelfLife         *string  `json:"shelf_life,omitempty"`
}

// Brand returns the brand name, or "" when it is absent.
func (m *Medicine) Brand() string {
	if m == nil || m.BrandName == nil {
		return ""
	}
	return *m.BrandName
}

// Document converts the record to its generic JSON shape.
func (m *Medicine) Document() (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode medicine: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode medicine document: %w", err)
	}
	return doc, nil
}

// FromDocument decodes a generic JSON document into a Medicine. A nil
// document decodes to an empty record.
func FromDocument(doc map[string]any) (*Medicine, error) {
	m := &Medicine{}
	if doc == nil {
		return m, nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode medicine document: %w", err)
	}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("malformed medicine document: %w", err)
	}
	return m, nil
}

// StringPtr is a convenience for building records in code.
func StringPtr(s string) *string {
	return &s
}

// FloatPtr is a convenience for building records in code.
func FloatPtr(f float64) *float64 {
	return &f
}

package importer

import "github.com/giygas/medigraph/graph"

// Node labels.
const (
	LabelMedicine                  = "Medicine"
	LabelIngredient                = "Ingredient"
	LabelUse                       = "Use"
	LabelDosageGuideline           = "DosageGuideline"
	LabelOverdoseEffect            = "OverdoseEffect"
	LabelAdministrationInstruction = "AdministrationInstruction"
	LabelWithWhatToTake            = "WithWhatToTake"
	LabelBeforeOrAfterFood         = "BeforeOrAfterFood"
	LabelMechanismOfAction         = "MechanismOfAction"
	LabelMechanismStep             = "MechanismStep"
	LabelSideEffect                = "SideEffect"
	LabelDrugInteraction           = "DrugInteraction"
	LabelStorageCondition          = "StorageCondition"
	LabelShelfLife                 = "ShelfLife"
)

// Relationship types.
const (
	RelContains                     = "CONTAINS"
	RelUsedFor                      = "USED_FOR"
	RelHasDosageGuideline           = "HAS_DOSAGE_GUIDELINE"
	RelMayLeadTo                    = "MAY_LEAD_TO"
	RelHasAdministrationInstruction = "HAS_ADMINISTRATION_INSTRUCTION"
	RelTakeWith                     = "TAKE_WITH"
	RelTakeWhen                     = "TAKE_WHEN"
	RelHasMechanism                 = "HAS_MECHANISM"
	RelHasStep                      = "HAS_STEP"
	RelMayCause                     = "MAY_CAUSE"
	RelInteractsWith                = "INTERACTS_WITH"
	RelStoreUnder                   = "STORE_UNDER"
	RelHasShelfLife                 = "HAS_SHELF_LIFE"
)

// Instruction types recorded on generic AdministrationInstruction nodes.
const (
	InstructionWithWhatToTake    = "with_what_to_take"
	InstructionBeforeOrAfterFood = "before_or_after_food"
)

// keys lists the identity properties of every label.
var keys = []graph.Constraint{
	{Label: LabelMedicine, Keys: []string{"brand_name"}},
	{Label: LabelIngredient, Keys: []string{"name"}},
	{Label: LabelUse, Keys: []string{"name"}},
	{Label: LabelDosageGuideline, Keys: []string{"max_daily_dosage"}},
	{Label: LabelOverdoseEffect, Keys: []string{"name"}},
	{Label: LabelAdministrationInstruction, Keys: []string{"instruction_type", "instruction"}},
	{Label: LabelWithWhatToTake, Keys: []string{"name"}},
	{Label: LabelBeforeOrAfterFood, Keys: []string{"timing"}},
	{Label: LabelMechanismOfAction, Keys: []string{"description"}},
	{Label: LabelMechanismStep, Keys: []string{"description"}},
	{Label: LabelSideEffect, Keys: []string{"name"}},
	{Label: LabelDrugInteraction, Keys: []string{"drug_name"}},
	{Label: LabelStorageCondition, Keys: []string{"condition"}},
	{Label: LabelShelfLife, Keys: []string{"duration"}},
}

// Constraints returns one uniqueness constraint per label so that the store
// resolves concurrent upserts of shared vocabulary.
func Constraints() []graph.Constraint {
	out := make([]graph.Constraint, len(keys))
	for i, c := range keys {
		out[i] = graph.Constraint{Label: c.Label, Keys: append([]string(nil), c.Keys...)}
	}
	return out
}

// SchemaDescription is a plain-text outline of the graph used to prompt
// query generation.
func SchemaDescription() string {
	return `Node labels and properties:
  (:Medicine {brand_name, generic_name, manufacturer, power_mg})
  (:Ingredient {name, composition_mg})
  (:Use {name})
  (:DosageGuideline {max_daily_dosage})
  (:OverdoseEffect {name})
  (:AdministrationInstruction {instruction_type, instruction})
  (:WithWhatToTake {name})
  (:BeforeOrAfterFood {timing})
  (:MechanismOfAction {description})
  (:MechanismStep {description})
  (:SideEffect {name})
  (:DrugInteraction {drug_name, interaction_type, effects})
  (:StorageCondition {condition})
  (:ShelfLife {duration})
Relationships:
  (:Medicine)-[:CONTAINS]->(:Ingredient)
  (:Medicine)-[:USED_FOR]->(:Use)
  (:Medicine)-[:HAS_DOSAGE_GUIDELINE]->(:DosageGuideline)
  (:DosageGuideline)-[:MAY_LEAD_TO]->(:OverdoseEffect)
  (:Medicine)-[:HAS_ADMINISTRATION_INSTRUCTION]->(:AdministrationInstruction)
  (:Medicine)-[:TAKE_WITH]->(:WithWhatToTake)
  (:Medicine)-[:TAKE_WHEN]->(:BeforeOrAfterFood)
  (:Medicine)-[:HAS_MECHANISM]->(:MechanismOfAction)
  (:MechanismOfAction)-[:HAS_STEP {position}]->(:MechanismStep)
  (:Medicine)-[:MAY_CAUSE]->(:SideEffect)
  (:Medicine)-[:INTERACTS_WITH]->(:DrugInteraction)
  (:Medicine)-[:STORE_UNDER]->(:StorageCondition)
  (:Medicine)-[:HAS_SHELF_LIFE]->(:ShelfLife)`
}

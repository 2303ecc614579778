package extraction

// Response shapes requested from the model. They only drive schema
// generation; answers are decoded as generic documents and normalized by the
// importer.

type ingredientSchema struct {
	Name          string  `json:"name" description:"Name of the ingredient"`
	CompositionMg float64 `json:"composition_mg,omitempty" description:"Composition of the ingredient in mg"`
}

type storageSchema struct {
	StorageConditions []string `json:"storage_conditions,omitempty" description:"Recommended storage conditions (e.g., room temperature, refrigeration)"`
	ShelfLife         string   `json:"shelf_life,omitempty" description:"Shelf life of the medicine"`
}

type ocrSchema struct {
	GenericName         string             `json:"generic_name" description:"Generic name of the medicine"`
	BrandName           string             `json:"brand_name,omitempty" description:"Brand name of the medicine"`
	Manufacturer        string             `json:"manufacturer,omitempty" description:"Name of the manufacturer of the medicine"`
	PowerMg             string             `json:"power_mg,omitempty" description:"Power or dosage of the medicine in mg"`
	Ingredients         []ingredientSchema `json:"ingredients" description:"List of all active ingredients with their composition in mg"`
	StorageAndShelfLife storageSchema      `json:"storage_and_shelf_life,omitempty" description:"Storage recommendations and shelf life of the medicine"`
}

type dosageSchema struct {
	MaxDailyDosage  string   `json:"max_daily_dosage,omitempty" description:"Maximum allowed dosage per day"`
	OverdoseEffects []string `json:"overdose_effects,omitempty" description:"Effects and consequences of an overdose"`
}

type administrationSchema struct {
	WithWhatToTake    []string `json:"with_what_to_take,omitempty" description:"Liquids or foods with which the medicine should be taken (e.g., water, milk)"`
	BeforeOrAfterFood string   `json:"before_or_after_food,omitempty" description:"Whether to take before or after food"`
}

type mechanismSchema struct {
	Description   string   `json:"description" description:"How the medicine works in the body"`
	DetailedSteps []string `json:"detailed_steps" description:"Step-by-step mechanism of action"`
}

type interactionSchema struct {
	DrugName        string `json:"drug_name" description:"Name of the drug that interacts"`
	InteractionType string `json:"interaction_type" description:"Type of interaction (e.g., synergistic, antagonistic, dangerous)"`
	Effects         string `json:"effects" description:"Effects of the interaction"`
}

type detailSchema struct {
	GenericName                string               `json:"generic_name" description:"Generic name of the medicine"`
	BrandName                  string               `json:"brand_name,omitempty" description:"Brand name of the medicine"`
	Manufacturer               string               `json:"manufacturer,omitempty" description:"Name of the manufacturer of the medicine"`
	PowerMg                    string               `json:"power_mg,omitempty" description:"Power or dosage of the medicine in mg"`
	Ingredients                []ingredientSchema   `json:"ingredients" description:"List of all active ingredients with their composition in mg"`
	Uses                       []string             `json:"uses" description:"Medical conditions or symptoms this medicine is used for"`
	DosageGuidelines           dosageSchema         `json:"dosage_guidelines" description:"Dosage information including maximum daily dose and overdose effects"`
	AdministrationInstructions administrationSchema `json:"administration_instructions" description:"Guidelines on how to take the medicine"`
	MechanismOfAction          mechanismSchema      `json:"mechanism_of_action" description:"Detailed mechanism of action of the medicine"`
	SideEffects                []string             `json:"side_effects" description:"Possible side effects from taking the medicine"`
	DrugInteractions           []interactionSchema  `json:"drug_interactions" description:"Known drug interactions with other medicines"`
	StorageAndShelfLife        storageSchema        `json:"storage_and_shelf_life" description:"Storage recommendations and shelf life of the medicine"`
}

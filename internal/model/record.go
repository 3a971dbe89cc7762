package model

import "time"

// Confidence is the human-facing label classified from a numeric score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Stage names the pipeline step at which a state's processing failed.
type Stage string

const (
	StageConfig Stage = "config"
	StageFetch  Stage = "fetch"
	StageLLM    Stage = "llm"
	StageParse  Stage = "parse"
)

// ExtractionRecord is one successful state's report row. It is assembled by
// the pipeline and immutable afterwards.
type ExtractionRecord struct {
	StateName          string              `json:"state_name"`
	StateCode          string              `json:"state_code"`
	EntityType         string              `json:"entity_type"`
	Industry           string              `json:"industry"`
	NexusStandard      string              `json:"nexus_standard"`
	NexusEffectiveDate string              `json:"nexus_effective_date"`
	Fields             map[TaxField]string `json:"fields"` // requested, present, non-N/A descriptions only
	ShippingRule       string              `json:"shipping_rule,omitempty"`
	SourceSections     []string            `json:"source_sections,omitempty"`
	Reasoning          string              `json:"reasoning"`
	ConfidenceScore    float64             `json:"confidence_score"`
	Confidence         Confidence          `json:"confidence"`
	SourceURL          string              `json:"source_url"` // the URL that actually produced the page
	SalesFactorMethod  string              `json:"sales_factor_method"`
	SalesFactorDate    string              `json:"sales_factor_date"`
}

// StateOutcome is the per-state result of one pipeline run: exactly one per
// attempted state, success or failure.
type StateOutcome struct {
	StateCode string            `json:"state_code"`
	StateName string            `json:"state_name"`
	Record    *ExtractionRecord `json:"record,omitempty"`
	Stage     Stage             `json:"stage,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Duration  time.Duration     `json:"duration_ns"`
}

// Succeeded reports whether the state produced an extraction record.
func (o *StateOutcome) Succeeded() bool {
	return o.Record != nil
}

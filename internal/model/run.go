package model

import "time"

// RunStatus represents the lifecycle state of an extraction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// StateStatus represents the outcome of a single state within a run.
type StateStatus string

const (
	StateStatusSuccess StateStatus = "success"
	StateStatusFailed  StateStatus = "failed"
)

// Run is the audit record of one extraction batch.
type Run struct {
	ID              string     `json:"id"`
	Status          RunStatus  `json:"status"`
	EntityType      string     `json:"entity_type"`
	Industry        string     `json:"industry"`
	StatesRequested int        `json:"states_requested"`
	StatesSucceeded int        `json:"states_succeeded"`
	StatesFailed    int        `json:"states_failed"`
	ReportPath      string     `json:"report_path,omitempty"`
	EstimatedCost   float64    `json:"estimated_cost"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// StateResult is the audit record of one state's outcome within a run.
type StateResult struct {
	ID              string            `json:"id"`
	RunID           string            `json:"run_id"`
	Position        int               `json:"position"` // zero-based input order
	StateCode       string            `json:"state_code"`
	StateName       string            `json:"state_name"`
	Status          StateStatus       `json:"status"`
	Stage           Stage             `json:"stage,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	SourceURL       string            `json:"source_url,omitempty"`
	ConfidenceScore float64           `json:"confidence_score,omitempty"`
	Confidence      Confidence        `json:"confidence,omitempty"`
	Fields          map[string]string `json:"fields,omitempty"`
	Reasoning       string            `json:"reasoning,omitempty"`
	DurationMS      int64             `json:"duration_ms"`
	CreatedAt       time.Time         `json:"created_at"`
}

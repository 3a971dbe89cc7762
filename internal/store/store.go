package store

import (
	"context"

	"github.com/taxautomation/taxbot/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the extraction audit trail.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Per-state results
	AddStateResult(ctx context.Context, result *model.StateResult) error
	ListStateResults(ctx context.Context, runID string) ([]model.StateResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

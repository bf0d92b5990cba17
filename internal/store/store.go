// Package store persists filings, documents, and analysis records. Two
// backends implement the same interface: SQLite for single-host deployments
// and PostgreSQL for shared ones.
package store

import (
	"context"

	"github.com/sells-group/filing-monitor/internal/model"
)

// StageCounts summarizes the queue for one stage.
type StageCounts struct {
	Stage     model.Stage `json:"stage"`
	Ready     int         `json:"ready"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Exhausted int         `json:"exhausted"` // failed with no retry budget left
}

// Store defines the persistence interface for the filing pipeline.
type Store interface {
	// Filings
	CreateFiling(ctx context.Context, f *model.Filing) error
	CreateFilings(ctx context.Context, filings []model.Filing) (int64, error)
	FilingExists(ctx context.Context, filingID string) (bool, error)
	GetFiling(ctx context.Context, filingID string) (*model.Filing, error)

	// Stage queue
	SelectReady(ctx context.Context, stage model.Stage, maxRetries int) ([]model.Filing, error)
	ApplyOutcome(ctx context.Context, id int64, stage model.Stage, o model.Outcome) error
	StageSummary(ctx context.Context, maxRetries int) ([]StageCounts, error)

	// Analysis
	PersistAnalysis(ctx context.Context, filingID int64, rec *model.AnalysisRecord) error

	// Documents
	AddDocument(ctx context.Context, d *model.Document) error
	UpdateDocument(ctx context.Context, d *model.Document) error

	// Run history
	StartRun(ctx context.Context) (int64, error)
	FinishRun(ctx context.Context, runID int64, status model.RunStatus, summary model.RunSummary) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

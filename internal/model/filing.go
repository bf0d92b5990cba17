// Package model defines the core domain types shared across the pipeline:
// filings, documents, analysis records, stage outcomes, and batch results.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// StageStatus is the closed status enumeration for a pipeline stage.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusSuccess StageStatus = "success"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// Valid reports whether s is one of the four allowed status values.
func (s StageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Stage is one step of the per-filing pipeline. Stages are ordered; a stage
// may only succeed after its predecessor has succeeded.
type Stage string

const (
	StageScraped    Stage = "scraped"
	StageDownloaded Stage = "downloaded"
	StageExtracted  Stage = "extracted"
	StageAnalyzed   Stage = "analyzed"
	StageEmailed    Stage = "emailed"
)

// Stages lists all pipeline stages in execution order.
var Stages = []Stage{StageScraped, StageDownloaded, StageExtracted, StageAnalyzed, StageEmailed}

// Valid reports whether s names a known pipeline stage.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Prev returns the stage immediately before s. The first stage has no
// predecessor and returns ok=false.
func (s Stage) Prev() (Stage, bool) {
	for i, st := range Stages {
		if st == s {
			if i == 0 {
				return "", false
			}
			return Stages[i-1], true
		}
	}
	return "", false
}

// Filing is one regulatory submission tracked through the pipeline. Filings
// are never deleted; failure history is retained for audit.
type Filing struct {
	ID               int64      `json:"id"`
	FilingID         string     `json:"filing_id"`
	Date             *time.Time `json:"date,omitempty"`
	Applicant        string     `json:"applicant,omitempty"`
	FilingType       string     `json:"filing_type,omitempty"`
	ProceedingNumber string     `json:"proceeding_number,omitempty"`
	Title            string     `json:"title,omitempty"`
	URL              string     `json:"url,omitempty"`

	StatusScraped    StageStatus `json:"status_scraped"`
	StatusDownloaded StageStatus `json:"status_downloaded"`
	StatusExtracted  StageStatus `json:"status_extracted"`
	StatusAnalyzed   StageStatus `json:"status_analyzed"`
	StatusEmailed    StageStatus `json:"status_emailed"`

	// ErrorMessage and RetryCount are shared across stages: one budget per
	// filing, incremented on every Failure outcome regardless of stage.
	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`

	// ExtractedPath is the combined extracted-text artifact written by the
	// extraction stage, consumed by the analysis stage.
	ExtractedPath string `json:"extracted_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Documents []Document      `json:"documents,omitempty"`
	Analysis  *AnalysisRecord `json:"analysis,omitempty"`
}

// StageStatus returns the status of the given stage.
func (f *Filing) StageStatus(stage Stage) (StageStatus, error) {
	switch stage {
	case StageScraped:
		return f.StatusScraped, nil
	case StageDownloaded:
		return f.StatusDownloaded, nil
	case StageExtracted:
		return f.StatusExtracted, nil
	case StageAnalyzed:
		return f.StatusAnalyzed, nil
	case StageEmailed:
		return f.StatusEmailed, nil
	}
	return "", eris.Errorf("model: unknown stage %q", stage)
}

// SetStageStatus sets the status of the given stage.
func (f *Filing) SetStageStatus(stage Stage, status StageStatus) error {
	if !status.Valid() {
		return eris.Errorf("model: invalid status %q", status)
	}
	switch stage {
	case StageScraped:
		f.StatusScraped = status
	case StageDownloaded:
		f.StatusDownloaded = status
	case StageExtracted:
		f.StatusExtracted = status
	case StageAnalyzed:
		f.StatusAnalyzed = status
	case StageEmailed:
		f.StatusEmailed = status
	default:
		return eris.Errorf("model: unknown stage %q", stage)
	}
	return nil
}

// Done reports whether the filing has completed the full pipeline.
func (f *Filing) Done() bool {
	return f.StatusEmailed == StatusSuccess
}

// Document is one file belonging to a filing. A filing owns zero or more
// documents; documents are only ever mutated through their owning filing.
type Document struct {
	ID               int64       `json:"id"`
	FilingID         int64       `json:"filing_id"`
	DocumentURL      string      `json:"document_url"`
	Filename         string      `json:"filename,omitempty"`
	LocalPath        string      `json:"local_path,omitempty"`
	DownloadStatus   StageStatus `json:"download_status"`
	ExtractionStatus StageStatus `json:"extraction_status"`
	ExtractionMethod string      `json:"extraction_method,omitempty"`
	CharCount        int         `json:"char_count"`
	PageCount        int         `json:"page_count"`
	FileSizeBytes    int64       `json:"file_size_bytes,omitempty"`
	ContentType      string      `json:"content_type,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

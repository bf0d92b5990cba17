package model

import "fmt"

// OutcomeKind discriminates the three results a stage invocation can produce.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
	OutcomeSkip    OutcomeKind = "skip"
)

// Outcome is the result of running one stage for one filing.
//
// Success stores the stage payload and marks the stage success. Failure marks
// the stage failed, records the error, and consumes one retry. Skip marks the
// stage handled (success) without a payload and without consuming a retry:
// structurally-unusable input is not the same as a failed attempt.
type Outcome struct {
	Kind    OutcomeKind
	Payload string // stage-specific, e.g. extracted-text artifact path
	Err     error
	Reason  string  // populated for Skip
	CostUSD float64 // LLM/OCR spend attributable to this invocation
}

// Success returns a success outcome carrying an optional payload.
func Success(payload string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Payload: payload}
}

// Failure returns a failure outcome wrapping err.
func Failure(err error) Outcome {
	return Outcome{Kind: OutcomeFailure, Err: err}
}

// Skip returns a neutral outcome with a human-readable reason.
func Skip(reason string) Outcome {
	return Outcome{Kind: OutcomeSkip, Reason: reason}
}

// WithCost attaches the money spent producing this outcome.
func (o Outcome) WithCost(usd float64) Outcome {
	o.CostUSD = usd
	return o
}

// BatchResult aggregates the outcomes of one orchestrator stage run. It is
// the unit reported upward to the logging/notification layer.
type BatchResult struct {
	Stage     Stage    `json:"stage"`
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	CostUSD   float64  `json:"cost_usd"`
	Errors    []string `json:"errors,omitempty"`
}

// Record tallies one filing's outcome into the batch result.
func (b *BatchResult) Record(filingID string, o Outcome) {
	b.Attempted++
	b.CostUSD += o.CostUSD
	switch o.Kind {
	case OutcomeSuccess:
		b.Succeeded++
	case OutcomeSkip:
		b.Skipped++
	case OutcomeFailure:
		b.Failed++
		b.Errors = append(b.Errors, fmt.Sprintf("%s: %v", filingID, o.Err))
	}
}

// RunSummary is the audit record for one orchestrator run.
type RunSummary struct {
	Attempted int     `json:"attempted"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Skipped   int     `json:"skipped"`
	CostUSD   float64 `json:"cost_usd"`
}

// Add folds a batch result into the run summary.
func (r *RunSummary) Add(b *BatchResult) {
	r.Attempted += b.Attempted
	r.Succeeded += b.Succeeded
	r.Failed += b.Failed
	r.Skipped += b.Skipped
	r.CostUSD += b.CostUSD
}

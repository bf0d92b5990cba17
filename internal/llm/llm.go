// Package llm models the LLM-invocation capability consumed by the analysis
// engine: a single Invoke call with an explicit timeout and explicit error
// variants, so the engine is testable with a fake and the real mechanism is
// swappable.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sells-group/filing-monitor/internal/model"
)

// Sentinel error kinds for invocation failures. Wrapped errors carry detail;
// callers classify with errors.Is.
var (
	// ErrTimeout indicates the invocation exceeded its configured timeout.
	// The call is abandoned; no partial output is used.
	ErrTimeout = errors.New("llm: invocation timeout")

	// ErrInvocation indicates the invocation itself failed (API error,
	// transport failure, refusal).
	ErrInvocation = errors.New("llm: invocation error")
)

// Completion is the result of one successful invocation.
type Completion struct {
	Text    string
	CostUSD float64
	Usage   model.TokenUsage
}

// Invoker issues a single prompt to the language model and returns its text
// output with cost and token accounting.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, timeout time.Duration) (*Completion, error)
}

// IsTimeout reports whether err is (or wraps) an invocation timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

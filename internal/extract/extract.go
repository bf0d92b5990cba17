// Package extract converts downloaded PDF documents into validated plain
// text via an ordered fallback chain of strategies: native text extraction,
// layout-preserving extraction for table-heavy documents, and OCR as the
// last resort. Each strategy's output is checked by a uniform validation
// predicate; the chain short-circuits at the first strategy that passes.
package extract

import (
	"context"
	"fmt"
	"strings"
)

// Extraction method identifiers persisted on the document record.
const (
	MethodNative = "native"
	MethodLayout = "layout"
	MethodOCR    = "ocr"
)

// Strategy is one text-extraction method in the fallback chain. A strategy
// failure is non-fatal: the chain records the reason and advances.
type Strategy interface {
	// Method identifies the strategy (native, layout, ocr).
	Method() string

	// Extract produces candidate text for the PDF at path.
	Extract(ctx context.Context, path string) (string, error)
}

// Result is a successful extraction. CostUSD is the API spend incurred
// producing it; zero for the local strategies, per-page OCR pricing when the
// OCR strategy won.
type Result struct {
	Text      string
	Method    string
	CharCount int
	PageCount int
	CostUSD   float64
}

// UnreadableError marks a strategy-level parse failure (corrupt bytes,
// encrypted file). It advances the chain instead of aborting it.
type UnreadableError struct {
	Reason string
}

func (e *UnreadableError) Error() string {
	return "unreadable input: " + e.Reason
}

// ExhaustedError is returned when every strategy was attempted (or skipped)
// and none produced validated text. It names each strategy and why it was
// rejected, so the failure is diagnosable from the filing's error message.
type ExhaustedError struct {
	Attempts []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all extraction strategies exhausted: %s", strings.Join(e.Attempts, "; "))
}

package extract

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
)

// NativeStrategy extracts embedded text from machine-generated PDFs. It is
// the fastest strategy and the first in the chain.
type NativeStrategy struct{}

// NewNative creates the native text strategy.
func NewNative() *NativeStrategy {
	return &NativeStrategy{}
}

func (s *NativeStrategy) Method() string { return MethodNative }

// Extract reads the PDF's embedded text layer page by page. Pages that fail
// to decode are skipped; a document with no decodable text at all is
// unreadable and advances the chain.
func (s *NativeStrategy) Extract(ctx context.Context, path string) (_ string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = &UnreadableError{Reason: "native parser panic"}
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", &UnreadableError{Reason: err.Error()}
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", &UnreadableError{Reason: "no embedded text layer"}
	}
	return out, nil
}

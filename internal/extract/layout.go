package extract

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// LayoutStrategy shells out to pdftotext in layout mode, which preserves
// column and table structure far better than the native text layer. Slower
// than NativeStrategy; tried only when native output fails validation.
type LayoutStrategy struct {
	binPath string
}

// NewLayout creates a LayoutStrategy. If binPath is empty, "pdftotext" is used.
func NewLayout(binPath string) *LayoutStrategy {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &LayoutStrategy{binPath: binPath}
}

func (s *LayoutStrategy) Method() string { return MethodLayout }

// Extract runs pdftotext -layout on the given PDF and returns stdout.
func (s *LayoutStrategy) Extract(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, s.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return "", &UnreadableError{Reason: "pdftotext: " + reason}
	}

	return stdout.String(), nil
}

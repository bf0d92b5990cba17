package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku":  {Input: 0.80, Output: 4.00},
			"sonnet": {Input: 3.00, Output: 15.00},
		},
		MistralOCR: OCRRate{PerKPage: 1.00},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		model  string
		input  int
		output int
		want   float64
	}{
		{name: "haiku simple", model: "haiku", input: 1000000, output: 100000, want: 0.80 + 0.40},
		{name: "sonnet simple", model: "sonnet", input: 1000000, output: 100000, want: 3.00 + 1.50},
		{name: "unknown model returns 0", model: "unknown", input: 1000000, output: 1000000, want: 0},
		{name: "zero tokens returns 0", model: "haiku", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Claude(tt.model, tt.input, tt.output)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestOCRPages(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	assert.InDelta(t, 1.00, calc.OCRPages(1000), 0.0001)
	assert.InDelta(t, 0.05, calc.OCRPages(50), 0.0001)
	assert.InDelta(t, 0, calc.OCRPages(0), 0.0001)
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()

	assert.Contains(t, rates.Anthropic, "claude-haiku-4-5-20251001")
	assert.Contains(t, rates.Anthropic, "claude-sonnet-4-5-20250929")
	assert.InDelta(t, 1.00, rates.MistralOCR.PerKPage, 0.001)
}

// Package cost computes USD costs for LLM and OCR API usage.
package cost

// Rates holds per-provider pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	MistralOCR OCRRate              `yaml:"mistral_ocr" mapstructure:"mistral_ocr"`
}

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// OCRRate holds Mistral OCR pricing (USD per thousand pages).
type OCRRate struct {
	PerKPage float64 `yaml:"per_kpage" mapstructure:"per_kpage"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a Claude API call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// OCRPages computes the cost of OCRing n pages.
func (c *Calculator) OCRPages(n int) float64 {
	return (float64(n) / 1000.0) * c.rates.MistralOCR.PerKPage
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"claude-opus-4-5-20251101":   {Input: 5.00, Output: 25.00},
		},
		MistralOCR: OCRRate{PerKPage: 1.00},
	}
}

package extract

import (
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/sells-group/filing-monitor/internal/config"
	"github.com/sells-group/filing-monitor/internal/cost"
)

// Precheck holds cheap document facts gathered before any strategy runs.
type Precheck struct {
	PageCount int
	Encrypted bool
}

// PrecheckFunc inspects a PDF without extracting text.
type PrecheckFunc func(path string) (Precheck, error)

// pdfcpuPrecheck reads the PDF cross-reference table for page count and
// encryption without touching page content.
func pdfcpuPrecheck(path string) (Precheck, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return Precheck{}, err
	}
	return Precheck{
		PageCount: pdfCtx.PageCount,
		Encrypted: pdfCtx.Encrypt != nil,
	}, nil
}

// Engine runs the extraction fallback chain for one document.
type Engine struct {
	cfg        config.ExtractionConfig
	strategies []Strategy
	precheck   PrecheckFunc
	costCalc   *cost.Calculator
}

// NewEngine creates an Engine over the given strategies, tried in order.
func NewEngine(cfg config.ExtractionConfig, strategies ...Strategy) *Engine {
	return &Engine{
		cfg:        cfg,
		strategies: strategies,
		precheck:   pdfcpuPrecheck,
		costCalc:   cost.NewCalculator(cost.DefaultRates()),
	}
}

// WithPrecheck overrides the document precheck, for testing.
func (e *Engine) WithPrecheck(fn PrecheckFunc) *Engine {
	e.precheck = fn
	return e
}

// DefaultChain builds the production strategy order: native, layout, then
// OCR when a Mistral key is configured.
func DefaultChain(cfg config.ExtractionConfig, ocrCfg config.OCRConfig) []Strategy {
	chain := []Strategy{
		NewNative(),
		NewLayout(cfg.PdfToTextPath),
	}
	if ocrCfg.MistralKey != "" {
		chain = append(chain, NewOCR(ocrCfg.MistralKey, ocrCfg.MistralModel))
	}
	return chain
}

// Extract runs the chain against the PDF at path and returns the first
// validated result. A strategy failure or validation rejection advances the
// chain; when every strategy is rejected the returned error names each
// attempt and its reason.
func (e *Engine) Extract(ctx context.Context, path string) (*Result, error) {
	log := zap.L().With(zap.String("path", path))

	var attempts []string

	pre, err := e.precheck(path)
	if err != nil {
		// A PDF the precheck cannot open may still yield to a more
		// forgiving strategy; record the reason and continue.
		attempts = append(attempts, fmt.Sprintf("precheck: %v", err))
		log.Warn("extract: precheck failed", zap.Error(err))
	}
	if pre.Encrypted {
		attempts = append(attempts, "precheck: encrypted")
		log.Warn("extract: document is encrypted")
	}

	if e.cfg.MaxPages > 0 && pre.PageCount > e.cfg.MaxPages {
		return nil, &ExhaustedError{Attempts: []string{
			fmt.Sprintf("precheck: %d pages exceeds extraction ceiling %d", pre.PageCount, e.cfg.MaxPages),
		}}
	}

	for _, strat := range e.strategies {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		isOCR := strat.Method() == MethodOCR
		if isOCR && e.cfg.MaxPagesOCR > 0 && pre.PageCount > e.cfg.MaxPagesOCR {
			attempts = append(attempts, fmt.Sprintf("%s: skipped (%d pages > ceiling %d)", strat.Method(), pre.PageCount, e.cfg.MaxPagesOCR))
			continue
		}

		text, err := strat.Extract(ctx, path)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s: %v", strat.Method(), err))
			log.Warn("extract: strategy failed",
				zap.String("method", strat.Method()),
				zap.Error(err),
			)
			continue
		}

		if vErr := Validate(text, pre.PageCount, e.cfg, isOCR); vErr != nil {
			if isOCR && e.cfg.OCRFallbackMode == "best-effort" {
				log.Warn("extract: accepting OCR output despite failed validation",
					zap.Error(vErr),
				)
				return e.result(text, strat.Method(), pre.PageCount), nil
			}
			attempts = append(attempts, fmt.Sprintf("%s: %v", strat.Method(), vErr))
			log.Warn("extract: validation rejected output",
				zap.String("method", strat.Method()),
				zap.Error(vErr),
			)
			continue
		}

		res := e.result(text, strat.Method(), pre.PageCount)
		log.Info("extract: succeeded",
			zap.String("method", res.Method),
			zap.Int("chars", res.CharCount),
			zap.Int("pages", res.PageCount),
			zap.Float64("cost_usd", res.CostUSD),
		)
		return res, nil
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

func (e *Engine) result(text, method string, pages int) *Result {
	res := &Result{
		Text:      text,
		Method:    method,
		CharCount: MeaningfulChars(text),
		PageCount: pages,
	}
	if method == MethodOCR {
		res.CostUSD = e.costCalc.OCRPages(pages)
	}
	return res
}

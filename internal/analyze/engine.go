package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/filing-monitor/internal/config"
	"github.com/sells-group/filing-monitor/internal/llm"
	"github.com/sells-group/filing-monitor/internal/model"
)

// ErrInsufficientText marks documents too short to analyze. Callers treat it
// as a skip rather than a failure.
var ErrInsufficientText = errors.New("insufficient text for analysis")

// SchemaError reports an LLM response that parsed as JSON but violated the
// analysis schema.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string { return "analysis response failed schema validation: " + e.Err.Error() }

func (e *SchemaError) Unwrap() error { return e.Err }

// Engine runs the analysis workflow for one document's extracted text.
type Engine struct {
	invoker  llm.Invoker
	cfg      config.AnalysisConfig
	model    string
	validate *validator.Validate
}

// NewEngine creates an analysis Engine. modelName is recorded on every
// produced record for provenance.
func NewEngine(invoker llm.Invoker, cfg config.AnalysisConfig, modelName string) *Engine {
	return &Engine{
		invoker:  invoker,
		cfg:      cfg,
		model:    modelName,
		validate: validator.New(),
	}
}

// Analyze produces a structured record from extracted filing text. The
// filing's registry metadata (identifier, date, applicant, type, document
// count) is threaded into every prompt. Text below the minimum length
// returns ErrInsufficientText without an LLM call. Text over the single-call
// limit is chunked; any chunk failure discards all partial results and fails
// the whole analysis.
func (e *Engine) Analyze(ctx context.Context, f *model.Filing, text string) (*model.AnalysisRecord, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < e.cfg.MinTextLength {
		return nil, eris.Wrapf(ErrInsufficientText, "%d chars below minimum %d", len(trimmed), e.cfg.MinTextLength)
	}

	start := time.Now()
	timeout := time.Duration(e.cfg.TimeoutSecs) * time.Second
	chunks := SplitText(trimmed, e.cfg.MaxCallChars, e.cfg.ChunkOverlap, e.cfg.MaxChunks)

	log := zap.L()
	if f != nil {
		log = log.With(zap.String("filing_id", f.FilingID))
	}
	log.Info("analyze: starting",
		zap.Int("chars", len(trimmed)),
		zap.Int("chunks", len(chunks)),
	)

	var (
		parts []model.AnalysisRecord
		usage model.TokenUsage
		cost  float64
	)
	for i, chunk := range chunks {
		var prompt string
		if len(chunks) == 1 {
			prompt = buildPrompt(f, chunk)
		} else {
			prompt = buildChunkPrompt(f, chunk, i+1, len(chunks))
		}

		comp, err := e.invoker.Invoke(ctx, prompt, timeout)
		if err != nil {
			if llm.IsTimeout(err) {
				log.Warn("analyze: chunk timed out",
					zap.Int("chunk", i+1),
					zap.Duration("timeout", timeout),
				)
			}
			return nil, eris.Wrapf(err, "analyze: chunk %d/%d", i+1, len(chunks))
		}

		rec, err := e.parseRecord(comp.Text)
		if err != nil {
			return nil, eris.Wrapf(err, "analyze: chunk %d/%d", i+1, len(chunks))
		}

		usage.Add(comp.Usage)
		cost += comp.CostUSD
		parts = append(parts, *rec)
	}

	rec := Merge(parts)
	rec.Model = e.model
	rec.PromptVersion = PromptVersion
	rec.ChunkCount = len(chunks)
	rec.CostUSD = cost
	rec.Usage = usage
	rec.ProcessingSecs = time.Since(start).Seconds()

	log.Info("analyze: complete",
		zap.Int("entities", len(rec.Entities)),
		zap.Int("key_facts", len(rec.KeyFacts)),
		zap.Float64("cost_usd", cost),
	)
	return rec, nil
}

// parseRecord strips markdown fences, unmarshals the response, and validates
// it against the schema.
func (e *Engine) parseRecord(text string) (*model.AnalysisRecord, error) {
	cleaned := cleanJSON(text)

	var rec model.AnalysisRecord
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return nil, eris.Wrap(err, "unmarshal analysis response")
	}
	if err := e.validate.Struct(&rec); err != nil {
		return nil, &SchemaError{Err: err}
	}
	return &rec, nil
}

// cleanJSON strips markdown code fences and surrounding prose from an LLM
// response, leaving the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

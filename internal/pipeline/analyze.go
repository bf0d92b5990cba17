package pipeline

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/filing-monitor/internal/analyze"
	"github.com/sells-group/filing-monitor/internal/model"
	"github.com/sells-group/filing-monitor/internal/store"
)

// Analyzer produces a structured analysis record from a filing and its
// extracted text.
type Analyzer interface {
	Analyze(ctx context.Context, f *model.Filing, text string) (*model.AnalysisRecord, error)
}

// AnalyzeStage builds the engine for the analysis stage. It reads the
// extraction artifact, runs the analyzer, and persists the record before the
// stage is marked complete. Text too short to analyze is a skip, not a
// failure: there is nothing a retry could do about an empty filing.
func AnalyzeStage(eng Analyzer, st store.Store) StageFunc {
	return func(ctx context.Context, f *model.Filing) model.Outcome {
		if f.ExtractedPath == "" {
			return model.Skip("no extracted text artifact")
		}

		data, err := os.ReadFile(f.ExtractedPath)
		if err != nil {
			return model.Failure(eris.Wrapf(err, "analyze stage: read artifact for %s", f.FilingID))
		}

		rec, err := eng.Analyze(ctx, f, string(data))
		if err != nil {
			if errors.Is(err, analyze.ErrInsufficientText) {
				return model.Skip("insufficient_text")
			}
			return model.Failure(err)
		}

		if err := st.PersistAnalysis(ctx, f.ID, rec); err != nil {
			return model.Failure(err)
		}
		return model.Success("").WithCost(rec.CostUSD)
	}
}

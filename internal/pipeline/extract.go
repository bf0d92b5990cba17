package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/filing-monitor/internal/extract"
	"github.com/sells-group/filing-monitor/internal/model"
	"github.com/sells-group/filing-monitor/internal/store"
)

// Extractor runs the extraction fallback chain for one PDF.
type Extractor interface {
	Extract(ctx context.Context, path string) (*extract.Result, error)
}

// ExtractStage builds the engine for the extraction stage. It extracts every
// downloaded document of the filing, records per-document bookkeeping, and
// writes the combined text to one artifact under dataDir.
//
// The filing succeeds when at least one document yields text. Documents are
// independent: one unreadable attachment does not discard the others.
func ExtractStage(eng Extractor, st store.Store, dataDir string) StageFunc {
	return func(ctx context.Context, f *model.Filing) model.Outcome {
		var ready []*model.Document
		for i := range f.Documents {
			d := &f.Documents[i]
			if d.DownloadStatus == model.StatusSuccess && d.LocalPath != "" {
				ready = append(ready, d)
			}
		}
		if len(ready) == 0 {
			return model.Skip("no downloaded documents")
		}

		log := zap.L().With(zap.String("filing_id", f.FilingID))

		var sections []string
		var failures []string
		var costUSD float64
		for _, d := range ready {
			res, err := eng.Extract(ctx, d.LocalPath)
			if err != nil {
				d.ExtractionStatus = model.StatusFailed
				failures = append(failures, fmt.Sprintf("%s: %v", d.Filename, err))
				log.Warn("extract stage: document failed",
					zap.String("document", d.Filename),
					zap.Error(err),
				)
			} else {
				d.ExtractionStatus = model.StatusSuccess
				d.ExtractionMethod = res.Method
				d.CharCount = res.CharCount
				d.PageCount = res.PageCount
				costUSD += res.CostUSD
				sections = append(sections, fmt.Sprintf("===== %s =====\n\n%s", d.Filename, res.Text))
			}

			if updErr := st.UpdateDocument(ctx, d); updErr != nil {
				return model.Failure(updErr)
			}
		}

		if len(sections) == 0 {
			return model.Failure(eris.Errorf("all documents failed extraction: %s", strings.Join(failures, "; ")))
		}

		path, err := writeExtractedText(dataDir, f.FilingID, strings.Join(sections, "\n\n"))
		if err != nil {
			return model.Failure(err)
		}
		return model.Success(path).WithCost(costUSD)
	}
}

// writeExtractedText writes the combined text atomically: temp file in the
// target directory, then rename. A crash mid-write never leaves a partial
// artifact at the final path.
func writeExtractedText(dataDir, filingID, text string) (string, error) {
	dir := filepath.Join(dataDir, "extracted")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "extract stage: create artifact dir")
	}

	tmp, err := os.CreateTemp(dir, filingID+".*.tmp")
	if err != nil {
		return "", eris.Wrap(err, "extract stage: create temp file")
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", eris.Wrap(err, "extract stage: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", eris.Wrap(err, "extract stage: close temp file")
	}

	final := filepath.Join(dir, filingID+".txt")
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", eris.Wrap(err, "extract stage: rename artifact")
	}
	return final, nil
}

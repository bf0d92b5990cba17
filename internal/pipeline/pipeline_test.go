package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/filing-monitor/internal/extract"
	"github.com/sells-group/filing-monitor/internal/model"
	"github.com/sells-group/filing-monitor/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// seedFiling registers a filing ready for extraction: scraped and downloaded
// succeeded, with downloaded document files on disk.
func seedFiling(t *testing.T, st store.Store, filingID string, docTexts ...string) *model.Filing {
	t.Helper()
	dir := t.TempDir()

	date := time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC)
	f := model.Filing{
		FilingID:         filingID,
		Date:             &date,
		Applicant:        "TransCo Pipelines",
		FilingType:       "application",
		Title:            "Line 4 capacity expansion",
		StatusScraped:    model.StatusSuccess,
		StatusDownloaded: model.StatusSuccess,
	}
	for i := range docTexts {
		name := filingID + "-" + string(rune('a'+i)) + ".pdf"
		f.Documents = append(f.Documents, model.Document{
			DocumentURL:    "https://example.org/docs/" + name,
			Filename:       name,
			LocalPath:      filepath.Join(dir, name),
			DownloadStatus: model.StatusSuccess,
		})
	}
	require.NoError(t, st.CreateFiling(context.Background(), &f))
	return &f
}

// fakeExtractor maps local paths to canned results or errors.
type fakeExtractor struct {
	results map[string]*extract.Result
	errs    map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (*extract.Result, error) {
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	if res, ok := f.results[path]; ok {
		return res, nil
	}
	return &extract.Result{Text: "default text", Method: extract.MethodNative, CharCount: 12, PageCount: 1}, nil
}

// fakeAnalyzer returns a canned record or error.
type fakeAnalyzer struct {
	rec   *model.AnalysisRecord
	err   error
	calls int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ *model.Filing, _ string) (*model.AnalysisRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

package analyze

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/filing-monitor/internal/config"
	"github.com/sells-group/filing-monitor/internal/llm"
	"github.com/sells-group/filing-monitor/internal/model"
)

const validResponse = `{
  "summary": "TransCo applies to expand Line 4 capacity.",
  "entities": [{"name": "TransCo", "type": "company", "role": "applicant"}],
  "relationships": [{"subject": "TransCo", "predicate": "operates", "object": "Line 4"}],
  "classification": {"primary_type": "application", "tags": ["capacity"], "confidence": 88, "justification": "Filing requests approval."},
  "key_facts": ["Capacity increase of 50k barrels per day."]
}`

// fakeInvoker returns queued completions in order, or a fixed error.
type fakeInvoker struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt string, _ time.Duration) (*llm.Completion, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llm.Completion{
		Text:    f.responses[i],
		CostUSD: 0.01,
		Usage:   model.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		MinTextLength: 100,
		MaxCallChars:  150000,
		ChunkOverlap:  2000,
		MaxChunks:     8,
		TimeoutSecs:   300,
	}
}

func testFilingMeta() *model.Filing {
	date := time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC)
	return &model.Filing{
		FilingID:   "C12345",
		Date:       &date,
		Applicant:  "TransCo Pipelines",
		FilingType: "application",
		Documents:  []model.Document{{DocumentURL: "https://example.org/a.pdf"}},
	}
}

func filingText(n int) string {
	const sentence = "The applicant requests approval for additional pipeline capacity on the mainline system. "
	var sb strings.Builder
	for sb.Len() < n {
		sb.WriteString(sentence)
	}
	return sb.String()
}

func TestAnalyzeSingleCall(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{responses: []string{validResponse}}
	eng := NewEngine(inv, testAnalysisConfig(), "claude-sonnet-4-5-20250929")

	rec, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(500))
	require.NoError(t, err)

	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, "TransCo applies to expand Line 4 capacity.", rec.Summary)
	assert.Equal(t, "application", rec.Classification.PrimaryType)
	assert.Equal(t, 1, rec.ChunkCount)
	assert.Equal(t, "claude-sonnet-4-5-20250929", rec.Model)
	assert.Equal(t, PromptVersion, rec.PromptVersion)
	assert.InDelta(t, 0.01, rec.CostUSD, 1e-9)
	assert.Equal(t, int64(100), rec.Usage.InputTokens)
}

func TestAnalyzeInsufficientText(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{responses: []string{validResponse}}
	eng := NewEngine(inv, testAnalysisConfig(), "m")

	_, err := eng.Analyze(context.Background(), testFilingMeta(), "too short")
	require.ErrorIs(t, err, ErrInsufficientText)
	assert.Zero(t, inv.calls)
}

func TestAnalyzeChunked(t *testing.T) {
	t.Parallel()

	cfg := testAnalysisConfig()
	cfg.MaxCallChars = 1000
	cfg.ChunkOverlap = 100

	inv := &fakeInvoker{responses: []string{validResponse}}
	eng := NewEngine(inv, cfg, "m")

	rec, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(2500))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, inv.calls, 3)
	assert.Equal(t, inv.calls, rec.ChunkCount)
	assert.InDelta(t, float64(inv.calls)*0.01, rec.CostUSD, 1e-9)
	assert.Equal(t, int64(inv.calls)*100, rec.Usage.InputTokens)
	assert.Contains(t, inv.prompts[0], "part 1 of")
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	t.Parallel()

	fenced := "```json\n" + validResponse + "\n```"
	inv := &fakeInvoker{responses: []string{fenced}}
	eng := NewEngine(inv, testAnalysisConfig(), "m")

	rec, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(500))
	require.NoError(t, err)
	assert.Equal(t, "application", rec.Classification.PrimaryType)
}

func TestAnalyzeInvocationFailure(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{err: eris.Wrap(llm.ErrInvocation, "api returned 500")}
	eng := NewEngine(inv, testAnalysisConfig(), "m")

	_, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(500))
	require.ErrorIs(t, err, llm.ErrInvocation)
}

func TestAnalyzeTimeoutPropagates(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{err: eris.Wrap(llm.ErrTimeout, "deadline exceeded")}
	eng := NewEngine(inv, testAnalysisConfig(), "m")

	_, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(500))
	require.ErrorIs(t, err, llm.ErrTimeout)
}

func TestAnalyzeMalformedJSON(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{responses: []string{"I could not analyze this document."}}
	eng := NewEngine(inv, testAnalysisConfig(), "m")

	_, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(500))
	require.Error(t, err)
}

func TestAnalyzeSchemaViolation(t *testing.T) {
	t.Parallel()

	confidencePayload := func(confidence int) string {
		return fmt.Sprintf(`{
  "summary": "A filing.",
  "entities": [],
  "classification": {"primary_type": "application", "confidence": %d},
  "key_facts": []
}`, confidence)
	}

	tests := []struct {
		name     string
		response string
	}{
		{"missing summary and classification", `{"entities": [], "key_facts": []}`},
		{"confidence above 100", confidencePayload(101)},
		{"negative confidence", confidencePayload(-1)},
		{"entity missing name", `{
  "summary": "A filing.",
  "entities": [{"type": "company"}],
  "classification": {"primary_type": "application", "confidence": 80},
  "key_facts": []
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inv := &fakeInvoker{responses: []string{tt.response}}
			eng := NewEngine(inv, testAnalysisConfig(), "m")

			_, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(500))
			require.Error(t, err)

			var schemaErr *SchemaError
			assert.ErrorAs(t, err, &schemaErr)
		})
	}
}

func TestAnalyzePromptCarriesFilingMetadata(t *testing.T) {
	t.Parallel()

	inv := &fakeInvoker{responses: []string{validResponse}}
	eng := NewEngine(inv, testAnalysisConfig(), "m")

	_, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(500))
	require.NoError(t, err)

	require.Len(t, inv.prompts, 1)
	assert.Contains(t, inv.prompts[0], "C12345")
	assert.Contains(t, inv.prompts[0], "2026-05-12")
	assert.Contains(t, inv.prompts[0], "TransCo Pipelines")
	assert.Contains(t, inv.prompts[0], "application")
	assert.Contains(t, inv.prompts[0], "Documents: 1")
}

func TestFilingContextHandlesMissingFields(t *testing.T) {
	t.Parallel()

	assert.Empty(t, filingContext(nil))

	ctxLine := filingContext(&model.Filing{FilingID: "C9"})
	assert.Contains(t, ctxLine, "C9")
	assert.Contains(t, ctxLine, "unknown date")
	assert.Contains(t, ctxLine, "unknown applicant")
	assert.Contains(t, ctxLine, "unspecified")
}

func TestAnalyzeChunkFailureDiscardsPartials(t *testing.T) {
	t.Parallel()

	cfg := testAnalysisConfig()
	cfg.MaxCallChars = 1000
	cfg.ChunkOverlap = 0

	// First chunk parses, second does not.
	inv := &fakeInvoker{responses: []string{validResponse, "garbage"}}
	eng := NewEngine(inv, cfg, "m")

	rec, err := eng.Analyze(context.Background(), testFilingMeta(), filingText(1500))
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, 2, inv.calls)
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding prose", "Here is the result:\n{\"a\": 1}\nDone.", `{"a": 1}`},
		{"whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

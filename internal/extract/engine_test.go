package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/filing-monitor/internal/config"
)

func testOCRConfig(key string) config.OCRConfig {
	return config.OCRConfig{MistralKey: key, MistralModel: "pixtral-large-latest"}
}

// fakeStrategy returns canned output and records whether it was called.
type fakeStrategy struct {
	method string
	text   string
	err    error
	calls  int
}

func (f *fakeStrategy) Method() string { return f.method }

func (f *fakeStrategy) Extract(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func okPrecheck(pages int) PrecheckFunc {
	return func(string) (Precheck, error) {
		return Precheck{PageCount: pages}, nil
	}
}

func TestEngineFirstStrategyWins(t *testing.T) {
	t.Parallel()

	good := prose(1000)
	native := &fakeStrategy{method: MethodNative, text: good}
	layout := &fakeStrategy{method: MethodLayout, text: good}

	eng := NewEngine(testExtractionConfig(), native, layout).WithPrecheck(okPrecheck(3))

	res, err := eng.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodNative, res.Method)
	assert.Equal(t, 3, res.PageCount)
	assert.Positive(t, res.CharCount)
	assert.Zero(t, res.CostUSD)
	assert.Equal(t, 1, native.calls)
	assert.Zero(t, layout.calls)
}

func TestEngineFallsThroughOnRejection(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, text: "too short"}
	layout := &fakeStrategy{method: MethodLayout, err: &UnreadableError{Reason: "broken xref"}}
	ocr := &fakeStrategy{method: MethodOCR, text: prose(1000)}

	eng := NewEngine(testExtractionConfig(), native, layout, ocr).WithPrecheck(okPrecheck(2))

	res, err := eng.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, 1, native.calls)
	assert.Equal(t, 1, layout.calls)
	assert.Equal(t, 1, ocr.calls)
}

func TestEngineOCRResultCarriesCost(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, err: &UnreadableError{Reason: "no text layer"}}
	ocr := &fakeStrategy{method: MethodOCR, text: prose(1000)}
	eng := NewEngine(testExtractionConfig(), native, ocr).WithPrecheck(okPrecheck(20))

	res, err := eng.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodOCR, res.Method)
	// 20 pages at the default $1.00 per thousand.
	assert.InDelta(t, 0.02, res.CostUSD, 1e-9)
}

func TestEngineExhaustedNamesEveryAttempt(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, err: &UnreadableError{Reason: "no text layer"}}
	layout := &fakeStrategy{method: MethodLayout, text: "x"}
	ocr := &fakeStrategy{method: MethodOCR, err: errors.New("api down")}

	eng := NewEngine(testExtractionConfig(), native, layout, ocr).WithPrecheck(okPrecheck(1))

	_, err := eng.Extract(context.Background(), "doc.pdf")
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 3)
	assert.Contains(t, exhausted.Attempts[0], MethodNative)
	assert.Contains(t, exhausted.Attempts[0], "no text layer")
	assert.Contains(t, exhausted.Attempts[1], MethodLayout)
	assert.Contains(t, exhausted.Attempts[2], MethodOCR)
	assert.Contains(t, exhausted.Attempts[2], "api down")
}

func TestEnginePrecheckFailureStillTriesChain(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, text: prose(1000)}
	eng := NewEngine(testExtractionConfig(), native).WithPrecheck(func(string) (Precheck, error) {
		return Precheck{}, errors.New("cannot open")
	})

	res, err := eng.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodNative, res.Method)
	assert.Zero(t, res.PageCount)
}

func TestEngineEncryptedRecordedInAttempts(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, err: &UnreadableError{Reason: "encrypted stream"}}
	eng := NewEngine(testExtractionConfig(), native).WithPrecheck(func(string) (Precheck, error) {
		return Precheck{PageCount: 2, Encrypted: true}, nil
	})

	_, err := eng.Extract(context.Background(), "doc.pdf")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Contains(t, exhausted.Attempts[0], "encrypted")
}

func TestEnginePageCeiling(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, text: prose(100000)}
	eng := NewEngine(testExtractionConfig(), native).WithPrecheck(okPrecheck(501))

	_, err := eng.Extract(context.Background(), "doc.pdf")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Contains(t, exhausted.Attempts[0], "ceiling")
	assert.Zero(t, native.calls)
}

func TestEngineOCRPageCeiling(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, text: "x"}
	ocr := &fakeStrategy{method: MethodOCR, text: prose(100000)}
	eng := NewEngine(testExtractionConfig(), native, ocr).WithPrecheck(okPrecheck(60))

	_, err := eng.Extract(context.Background(), "doc.pdf")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Zero(t, ocr.calls)
	assert.Contains(t, exhausted.Attempts[1], MethodOCR)
	assert.Contains(t, exhausted.Attempts[1], "skipped")
}

func TestEngineOCRBestEffortMode(t *testing.T) {
	t.Parallel()

	cfg := testExtractionConfig()
	cfg.OCRFallbackMode = "best-effort"

	native := &fakeStrategy{method: MethodNative, err: &UnreadableError{Reason: "no text layer"}}
	ocr := &fakeStrategy{method: MethodOCR, text: "faint scan"}

	eng := NewEngine(cfg, native, ocr).WithPrecheck(okPrecheck(1))

	res, err := eng.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, "faint scan", res.Text)
}

func TestEngineOCRStrictModeRejectsBadOutput(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, err: &UnreadableError{Reason: "no text layer"}}
	ocr := &fakeStrategy{method: MethodOCR, text: "faint scan"}

	eng := NewEngine(testExtractionConfig(), native, ocr).WithPrecheck(okPrecheck(1))

	_, err := eng.Extract(context.Background(), "doc.pdf")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 2)
}

func TestEngineContextCancellation(t *testing.T) {
	t.Parallel()

	native := &fakeStrategy{method: MethodNative, text: prose(1000)}
	eng := NewEngine(testExtractionConfig(), native).WithPrecheck(okPrecheck(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Extract(ctx, "doc.pdf")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, native.calls)
}

func TestDefaultChainOrder(t *testing.T) {
	t.Parallel()

	cfg := testExtractionConfig()

	chain := DefaultChain(cfg, testOCRConfig(""))
	require.Len(t, chain, 2)
	assert.Equal(t, MethodNative, chain[0].Method())
	assert.Equal(t, MethodLayout, chain[1].Method())

	chain = DefaultChain(cfg, testOCRConfig("key"))
	require.Len(t, chain, 3)
	assert.Equal(t, MethodOCR, chain[2].Method())
}

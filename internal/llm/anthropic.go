package llm

import (
	"context"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/filing-monitor/internal/cost"
	"github.com/sells-group/filing-monitor/internal/model"
)

// AnthropicInvoker implements Invoker against the Anthropic Messages API.
// A rate limiter serializes request pacing: the API seat for this pipeline
// is licensed for low-volume use and must not burst.
type AnthropicInvoker struct {
	client    sdk.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	costCalc  *cost.Calculator
}

// AnthropicOptions configures an AnthropicInvoker.
type AnthropicOptions struct {
	APIKey            string
	Model             string
	MaxTokens         int64
	RequestsPerMinute int
}

// NewAnthropic creates an Invoker backed by the official SDK.
func NewAnthropic(opts AnthropicOptions) *AnthropicInvoker {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 8192
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &AnthropicInvoker{
		client:    sdk.NewClient(option.WithAPIKey(opts.APIKey)),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		costCalc:  cost.NewCalculator(cost.DefaultRates()),
	}
}

// Invoke sends a single user message and returns the model's text output.
// Exceeding timeout returns ErrTimeout; every other failure returns
// ErrInvocation. The timed-out request is abandoned, never reused.
func (a *AnthropicInvoker) Invoke(ctx context.Context, prompt string, timeout time.Duration) (*Completion, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(ErrInvocation, err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	msg, err := a.client.Messages.New(callCtx, sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			zap.L().Warn("llm: invocation timed out",
				zap.Duration("timeout", timeout),
				zap.String("model", a.model),
			)
			return nil, eris.Wrapf(ErrTimeout, "after %s", timeout)
		}
		return nil, eris.Wrap(ErrInvocation, err.Error())
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	usage := model.TokenUsage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
	costUSD := a.costCalc.Claude(a.model, int(usage.InputTokens), int(usage.OutputTokens))

	zap.L().Debug("llm: invocation complete",
		zap.String("model", a.model),
		zap.Int64("input_tokens", usage.InputTokens),
		zap.Int64("output_tokens", usage.OutputTokens),
		zap.Float64("cost_usd", costUSD),
		zap.Duration("duration", time.Since(start)),
	)

	return &Completion{Text: text, CostUSD: costUSD, Usage: usage}, nil
}

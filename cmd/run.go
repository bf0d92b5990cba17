package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/filing-monitor/internal/analyze"
	"github.com/sells-group/filing-monitor/internal/extract"
	"github.com/sells-group/filing-monitor/internal/llm"
	"github.com/sells-group/filing-monitor/internal/model"
	"github.com/sells-group/filing-monitor/internal/pipeline"
)

var runStage string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extraction and analysis over ready filings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		extractEngine := extract.NewEngine(cfg.Extraction, extract.DefaultChain(cfg.Extraction, cfg.OCR)...)
		analyzeEngine := analyze.NewEngine(llm.NewAnthropic(llm.AnthropicOptions{
			APIKey:            cfg.Anthropic.Key,
			Model:             cfg.Anthropic.Model,
			MaxTokens:         cfg.Anthropic.MaxTokens,
			RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
		}), cfg.Analysis, cfg.Anthropic.Model)

		o := pipeline.New(st, cfg.Pipeline.MaxRetries)
		o.Register(model.StageExtracted, pipeline.ExtractStage(extractEngine, st, cfg.Data.Dir), cfg.Extraction.Workers)
		// Analysis is serial: the API seat allows one in-flight call.
		o.Register(model.StageAnalyzed, pipeline.AnalyzeStage(analyzeEngine, st), 1)

		stages := []model.Stage{model.StageExtracted, model.StageAnalyzed}
		if runStage != "" {
			stage := model.Stage(runStage)
			if !stage.Valid() {
				return eris.Errorf("unknown stage: %s", runStage)
			}
			if !o.Registered(stage) {
				return eris.Errorf("stage %s has no engine in this binary", stage)
			}
			stages = []model.Stage{stage}
		}

		summary, err := o.RunStages(ctx, stages)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.Int("attempted", summary.Attempted),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped),
			zap.Float64("cost_usd", summary.CostUSD),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runStage, "stage", "", "run a single stage (extracted or analyzed)")
	rootCmd.AddCommand(runCmd)
}

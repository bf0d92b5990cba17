// Package pipeline orchestrates the per-filing stage machine: selecting
// ready filings, running the registered stage engine on each with error
// isolation, and committing every outcome independently.
package pipeline

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/filing-monitor/internal/model"
	"github.com/sells-group/filing-monitor/internal/store"
)

// StageFunc runs one stage for one filing and reports the outcome. It must
// not touch filing stage statuses itself; the orchestrator commits outcomes.
type StageFunc func(ctx context.Context, f *model.Filing) model.Outcome

type stageEntry struct {
	fn      StageFunc
	workers int
}

// Orchestrator drives registered stages over the filing queue.
type Orchestrator struct {
	store      store.Store
	maxRetries int
	stages     map[model.Stage]stageEntry
}

// New creates an Orchestrator. maxRetries bounds the shared per-filing retry
// budget used when selecting work.
func New(st store.Store, maxRetries int) *Orchestrator {
	return &Orchestrator{
		store:      st,
		maxRetries: maxRetries,
		stages:     make(map[model.Stage]stageEntry),
	}
}

// Register binds a stage to its engine. workers > 1 processes filings for
// that stage concurrently.
func (o *Orchestrator) Register(stage model.Stage, fn StageFunc, workers int) {
	if workers < 1 {
		workers = 1
	}
	o.stages[stage] = stageEntry{fn: fn, workers: workers}
}

// Registered reports whether an engine is bound to the stage.
func (o *Orchestrator) Registered(stage model.Stage) bool {
	_, ok := o.stages[stage]
	return ok
}

// RunStage selects every filing ready for the stage and runs its engine on
// each. A filing's failure (or panic) is recorded and does not affect the
// rest of the batch. Outcomes are committed per filing, so an interrupted
// run loses at most the filings still in flight. A store write failing is
// another matter: outcomes that cannot be persisted would silently repeat
// work, so the first commit error aborts the stage.
func (o *Orchestrator) RunStage(ctx context.Context, stage model.Stage) (*model.BatchResult, error) {
	entry, ok := o.stages[stage]
	if !ok {
		return nil, eris.Errorf("pipeline: no engine registered for stage %s", stage)
	}

	filings, err := o.store.SelectReady(ctx, stage, o.maxRetries)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("stage", string(stage)))
	log.Info("pipeline: stage starting",
		zap.Int("ready", len(filings)),
		zap.Int("workers", entry.workers),
	)

	result := &model.BatchResult{Stage: stage}
	var mu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(entry.workers)
	for i := range filings {
		f := &filings[i]
		g.Go(func() error {
			out := o.runOne(ctx, stage, entry.fn, f)

			if err := o.store.ApplyOutcome(ctx, f.ID, stage, out); err != nil {
				log.Error("pipeline: failed to commit outcome",
					zap.String("filing_id", f.FilingID),
					zap.Error(err),
				)
				return eris.Wrapf(err, "pipeline: commit %s outcome for %s", stage, f.FilingID)
			}

			mu.Lock()
			result.Record(f.FilingID, out)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("pipeline: stage finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Float64("cost_usd", result.CostUSD),
	)
	return result, nil
}

// RunStages runs the given stages in pipeline order under one run-history
// record. A stage-level error (not a per-filing failure) stops the run.
func (o *Orchestrator) RunStages(ctx context.Context, stages []model.Stage) (*model.RunSummary, error) {
	runID, err := o.store.StartRun(ctx)
	if err != nil {
		return nil, err
	}

	summary := &model.RunSummary{}
	for _, stage := range stages {
		batch, err := o.RunStage(ctx, stage)
		if err != nil {
			if finishErr := o.store.FinishRun(ctx, runID, model.RunStatusFailed, *summary); finishErr != nil {
				zap.L().Error("pipeline: failed to record failed run", zap.Error(finishErr))
			}
			return summary, err
		}
		summary.Add(batch)
	}

	if err := o.store.FinishRun(ctx, runID, model.RunStatusComplete, *summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// runOne isolates a single filing: a panicking engine becomes a failure
// outcome instead of taking down the batch.
func (o *Orchestrator) runOne(ctx context.Context, stage model.Stage, fn StageFunc, f *model.Filing) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline: stage engine panicked",
				zap.String("stage", string(stage)),
				zap.String("filing_id", f.FilingID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			out = model.Failure(eris.Errorf("stage %s panicked: %v", stage, r))
		}
	}()
	return fn(ctx, f)
}

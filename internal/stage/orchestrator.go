package stage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/imgpipe/internal/pipeline"
)

// Run is one ordered execution of stages.
type Run struct {
	ID     string
	Stages []Definition

	mu      sync.Mutex
	state   RunState
	results []*pipeline.StageResult
}

// NewRun returns a pending run of stages.
func NewRun(stages []Definition) *Run {
	return &Run{ID: uuid.NewString(), Stages: stages}
}

// State returns the current run state.
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Results returns the stage results recorded so far, in stage order.
func (r *Run) Results() []*pipeline.StageResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*pipeline.StageResult(nil), r.results...)
}

func (r *Run) record(res *pipeline.StageResult) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

// Orchestrator executes runs with shared collaborators and execution
// settings.
type Orchestrator struct {
	Deps    pipeline.Deps
	Workers int
	Timeout time.Duration
	DryRun  bool
}

// Execute runs the stages of run strictly in order and returns their
// results. A failing fail-fast stage halts the remaining stages; other
// failures are recorded and the run continues. Cancellation halts before
// the next stage starts. There are no retries.
func (o *Orchestrator) Execute(ctx context.Context, run *Run) []*pipeline.StageResult {
	log := o.Deps.Log
	if err := run.transition(RunPending, RunRunning); err != nil {
		log.Error("%v", err)
		return run.Results()
	}
	log.Debug(o.Deps.Verbose, "run %s: %d stage(s)", run.ID, len(run.Stages))

	halted := false
	failures := false
	for i, def := range run.Stages {
		if ctx.Err() != nil {
			log.Warn("Interrupted; %d stage(s) not started", len(run.Stages)-i)
			halted = true
			break
		}

		log.Stage("[%d/%d] %s", i+1, len(run.Stages), def.Name)
		res := o.runStage(ctx, def)
		run.record(res)

		if res.HasFailures() {
			failures = true
			if def.FailFast {
				log.Error("Stage %s failed; halting run", def.Name)
				halted = true
				break
			}
		}
	}
	if ctx.Err() != nil {
		halted = true
	}

	final := RunCompleted
	switch {
	case halted:
		final = RunFailed
	case failures:
		final = RunPartiallyCompleted
	}
	if err := run.transition(RunRunning, final); err != nil {
		log.Error("%v", err)
	}
	log.Debug(o.Deps.Verbose, "run %s: %s", run.ID, final)
	return run.Results()
}

// runStage dispatches one definition to the executor. The result is never
// nil; fatal stage errors are carried in StageResult.Err.
func (o *Orchestrator) runStage(ctx context.Context, def Definition) *pipeline.StageResult {
	name := string(def.Name)
	deps := o.Deps
	deps.Log = o.Deps.Log.WithPrefix(name)
	var res *pipeline.StageResult
	switch def.Kind {
	case KindClean:
		res, _ = pipeline.RemoveTree(ctx, name, def.Root, o.DryRun, deps)
	case KindDelete:
		res, _ = pipeline.DeleteMatching(ctx, o.job(def), deps)
	default:
		res, _ = pipeline.Run(ctx, o.job(def), deps)
	}
	return res
}

func (o *Orchestrator) job(def Definition) pipeline.Job {
	return pipeline.Job{
		Stage:      string(def.Name),
		SourceRoot: def.Root,
		Pattern:    def.Pattern,
		Spec:       def.Spec,
		Workers:    o.Workers,
		Timeout:    o.Timeout,
		DryRun:     o.DryRun,
	}
}

package pipeline

import (
	"time"

	"github.com/backmassage/imgpipe/internal/planner"
)

// StageResult aggregates the derivative outcomes of one stage run.
// Derivatives are in plan order. Skipped counts both enlargement skips and
// cancellations, so Succeeded+Failed+Skipped == Planned always holds once
// the stage has finished.
type StageResult struct {
	Stage       string
	Derivatives []planner.Derivative

	Planned            int
	Succeeded          int
	Failed             int
	Skipped            int
	SkippedEnlargement int
	Canceled           int

	// Err is the fatal stage error (enumeration or tree removal), if any.
	Err     error
	Elapsed time.Duration
	DryRun  bool

	// Byte totals over succeeded derivatives. InputBytes counts the source
	// size once per derivative.
	InputBytes  int64
	OutputBytes int64
}

// Tally recomputes the counters and byte totals from Derivatives.
func (r *StageResult) Tally() {
	r.Planned = len(r.Derivatives)
	r.Succeeded, r.Failed, r.Skipped = 0, 0, 0
	r.SkippedEnlargement, r.Canceled = 0, 0
	r.InputBytes, r.OutputBytes = 0, 0
	for i := range r.Derivatives {
		d := &r.Derivatives[i]
		switch d.Status {
		case planner.StatusSucceeded:
			r.Succeeded++
			r.InputBytes += d.Source.Size
			r.OutputBytes += d.OutBytes
		case planner.StatusFailed:
			r.Failed++
		case planner.StatusSkippedEnlargement:
			r.Skipped++
			r.SkippedEnlargement++
		case planner.StatusCanceled:
			r.Skipped++
			r.Canceled++
		}
	}
}

// Consistent reports whether every planned derivative reached a final status.
func (r *StageResult) Consistent() bool {
	return r.Succeeded+r.Failed+r.Skipped == r.Planned
}

// HasFailures reports a fatal error or any failed derivative.
func (r *StageResult) HasFailures() bool {
	return r.Err != nil || r.Failed > 0
}

// Failures returns the failed derivatives in plan order.
func (r *StageResult) Failures() []planner.Derivative {
	var out []planner.Derivative
	for _, d := range r.Derivatives {
		if d.Status == planner.StatusFailed {
			out = append(out, d)
		}
	}
	return out
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
// Positive means outputs are smaller; negative means they grew.
func (r *StageResult) SpaceSaved() int64 {
	return r.InputBytes - r.OutputBytes
}

package pipeline

import (
	"fmt"
	"time"

	"github.com/backmassage/imgpipe/internal/display"
	"github.com/backmassage/imgpipe/internal/logging"
)

// maxFailureLines caps the failure detail lines printed per stage.
const maxFailureLines = 20

// LogSummary prints the per-stage counts, failure details and space saved.
// It is printed for every run, including partial failures and halts.
func LogSummary(log *logging.Logger, results []*StageResult) {
	log.Info("==============================")
	log.Info("Summary report:")

	var total StageResult
	for _, r := range results {
		logStage(log, r)
		total.Planned += r.Planned
		total.Succeeded += r.Succeeded
		total.Failed += r.Failed
		total.Skipped += r.Skipped
	}
	log.Info("Done: %d stage(s), %d succeeded, %d skipped, %d failed",
		len(results), total.Succeeded, total.Skipped, total.Failed)
}

func logStage(log *logging.Logger, r *StageResult) {
	log.Info("  %s: %d planned, %d succeeded, %d failed, %d skipped (%d enlargement, %d canceled) in %s",
		r.Stage, r.Planned, r.Succeeded, r.Failed, r.Skipped,
		r.SkippedEnlargement, r.Canceled, r.Elapsed.Round(time.Millisecond))

	if r.Err != nil {
		log.Error("    fatal: %v", r.Err)
	}

	failures := r.Failures()
	for i, d := range failures {
		if i == maxFailureLines {
			log.Error("    … %d more failure(s)", len(failures)-maxFailureLines)
			break
		}
		if d.Err == r.Err {
			continue
		}
		log.Error("    %s [%s]: %v", d.Source.Rel, d.Descriptor.Label(), causeOf(d.Err))
	}

	if r.DryRun {
		log.Info("    Space saved: n/a (dry run)")
		return
	}
	if r.Succeeded == 0 || r.InputBytes == 0 {
		return
	}
	line := fmt.Sprintf("    %s (input %s -> output %s)",
		display.FormatSavings(r.InputBytes, r.OutputBytes),
		display.FormatBytes(r.InputBytes),
		display.FormatBytes(r.OutputBytes))
	if r.SpaceSaved() >= 0 {
		log.Success("%s", line)
	} else {
		log.Warn("%s", line)
	}
}

// causeOf strips the pipeline classification so the report line shows the
// underlying codec or filesystem message.
func causeOf(err error) error {
	if e, ok := err.(*Error); ok && e.Cause != nil {
		return e.Cause
	}
	return err
}

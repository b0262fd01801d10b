package pipeline

import (
	"context"
	"time"

	"github.com/backmassage/imgpipe/internal/planner"
)

// RemoveTree runs a clean stage: root and everything below it is removed.
// The result holds a single derivative for root; a removal failure is
// recorded on it and returned as the fatal stage error.
func RemoveTree(ctx context.Context, stage, root string, dryRun bool, deps Deps) (*StageResult, error) {
	start := time.Now()
	res := &StageResult{Stage: stage, DryRun: dryRun}
	d := planner.Derivative{Source: planner.Asset{Path: root, Rel: root}, Target: root}

	switch {
	case ctx.Err() != nil:
		d = canceled(d)
	case dryRun:
		d.Status = planner.StatusSucceeded
		deps.Log.Info("[DRY] Would remove %s", root)
	default:
		if err := deps.FS.RemoveTree(root); err != nil {
			d.Status = planner.StatusFailed
			d.Err = Wrap(KindWrite, "remove", root, "", err)
			res.Err = d.Err
		} else {
			d.Status = planner.StatusSucceeded
			deps.Log.Debug(deps.Verbose, "removed %s", root)
		}
	}

	res.Derivatives = []planner.Derivative{d}
	res.Tally()
	res.Elapsed = time.Since(start)
	return res, res.Err
}

// DeleteMatching runs a delete stage: every file below job.SourceRoot that
// matches job.Pattern is removed, one derivative per file. An unreadable
// root is fatal; individual removal failures are recorded.
func DeleteMatching(ctx context.Context, job Job, deps Deps) (*StageResult, error) {
	start := time.Now()
	res := &StageResult{Stage: job.Stage, DryRun: job.DryRun}

	assets, err := Discover(deps.FS, job.SourceRoot, job.Pattern)
	if err != nil {
		e := Wrap(KindEnumeration, "list", job.SourceRoot, "", err)
		res.Err = e
		res.Elapsed = time.Since(start)
		return res, e
	}

	for _, a := range assets {
		d := planner.Derivative{Source: a, Target: a.Path}
		switch {
		case ctx.Err() != nil:
			d = canceled(d)
		case job.DryRun:
			d.Status = planner.StatusSucceeded
			deps.Log.Info("[DRY] Would delete %s", a.Path)
		default:
			if err := deps.FS.RemoveTree(a.Path); err != nil {
				d.Status = planner.StatusFailed
				d.Err = Wrap(KindWrite, "delete", a.Rel, "", err)
				deps.Log.Error("%v", d.Err)
			} else {
				d.Status = planner.StatusSucceeded
				deps.Log.Debug(deps.Verbose, "deleted %s", a.Path)
			}
		}
		res.Derivatives = append(res.Derivatives, d)
	}
	res.Tally()
	res.Elapsed = time.Since(start)
	return res, nil
}

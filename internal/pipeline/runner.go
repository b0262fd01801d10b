package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/display"
	"github.com/backmassage/imgpipe/internal/fsys"
	"github.com/backmassage/imgpipe/internal/logging"
	"github.com/backmassage/imgpipe/internal/naming"
	"github.com/backmassage/imgpipe/internal/planner"
	"github.com/backmassage/imgpipe/internal/probe"
)

// Encoder is the codec capability the executor needs. *codec.Adapter
// satisfies it.
type Encoder interface {
	Encode(ctx context.Context, src []byte, f codec.Format, opts codec.Options) ([]byte, error)
}

// Deps are the collaborators of a stage run.
type Deps struct {
	FS      fsys.FS
	Codec   Encoder
	Log     *logging.Logger
	Verbose bool
}

// Job describes one transform stage: which files to enumerate and the
// variant spec to plan them with.
type Job struct {
	Stage      string
	SourceRoot string
	Pattern    string // Enumeration glob; DefaultPattern when empty.
	Spec       *planner.VariantSpec
	Workers    int           // Pool size; values below 1 mean 1.
	Timeout    time.Duration // Per-derivative encode timeout; 0 disables.
	DryRun     bool
}

func (j *Job) workers() int {
	if j.Workers < 1 {
		return 1
	}
	return j.Workers
}

// Run executes a transform stage. The returned result is never nil. The
// error is non-nil only for a fatal enumeration failure, in which case it
// is also recorded in StageResult.Err.
//
// Flow:
//  1. Enumerate assets below the source root, sorted by relative path
//  2. Probe dimensions (bounded pool) for assets whose rules need them
//  3. Plan every asset, then resolve target collisions in plan order
//  4. Produce each planned derivative as one unit on the bounded pool
//  5. Restore plan order and tally
func Run(ctx context.Context, job Job, deps Deps) (*StageResult, error) {
	start := time.Now()
	res := &StageResult{Stage: job.Stage, DryRun: job.DryRun}

	assets, err := Discover(deps.FS, job.SourceRoot, job.Pattern)
	if err != nil {
		e := Wrap(KindEnumeration, "list", job.SourceRoot, "", err)
		res.Err = e
		res.Elapsed = time.Since(start)
		return res, e
	}
	deps.Log.Debug(deps.Verbose, "%s: %d assets in %s", job.Stage, len(assets), job.SourceRoot)

	probeAssets(ctx, &job, deps, assets)

	var plan []planner.Derivative
	for _, a := range assets {
		plan = append(plan, planner.Plan(a, job.Spec)...)
	}
	resolveCollisions(plan, job.Spec.DestRoot, deps)

	res.Derivatives = execute(ctx, &job, deps, plan)
	res.Tally()
	res.Elapsed = time.Since(start)
	return res, nil
}

// probeAssets fills in format, dimensions and size for the assets whose
// plan depends on their width. Failures leave the width unknown; the
// encode will surface the underlying problem as a codec failure.
func probeAssets(ctx context.Context, job *Job, deps Deps, assets []planner.Asset) {
	var g errgroup.Group
	g.SetLimit(job.workers())
	for i := range assets {
		if !job.Spec.NeedsDimensions(assets[i]) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		a := &assets[i]
		g.Go(func() error {
			pr, err := probe.Probe(ctx, deps.FS, a.Path)
			if err != nil {
				deps.Log.Debug(deps.Verbose, "probe %s: %v", a.Rel, err)
				return nil
			}
			if pr.Format != "" {
				a.Format = pr.Format
			}
			a.Width, a.Height, a.Size = pr.Width, pr.Height, pr.Size
			deps.Log.Debug(deps.Verbose, "probe %s: %s", a.Rel, pr.Resolution())
			return nil
		})
	}
	_ = g.Wait()
}

// resolveCollisions gives every planned derivative a unique target.
// Skipped derivatives never write and do not claim a path.
func resolveCollisions(plan []planner.Derivative, destRoot string, deps Deps) {
	resolver := naming.NewCollisionResolver(naming.CaseInsensitiveHost())
	for i := range plan {
		d := &plan[i]
		if d.Status != planner.StatusPlanned {
			continue
		}
		if target, renamed := resolver.Resolve(d.ID(), d.Target); renamed {
			deps.Log.Warn("Target collision: %s -> %s",
				naming.RelTarget(destRoot, d.Target), naming.RelTarget(destRoot, target))
			d.Target = target
		}
	}
	deps.Log.Debug(deps.Verbose, "%d target(s) claimed below %s", resolver.Claimed(), destRoot)
}

// accumulator collects finished derivatives from concurrent units.
type accumulator struct {
	mu   sync.Mutex
	done []indexed
}

type indexed struct {
	i int
	d planner.Derivative
}

func (a *accumulator) add(i int, d planner.Derivative) {
	a.mu.Lock()
	a.done = append(a.done, indexed{i, d})
	a.mu.Unlock()
}

// ordered returns the collected derivatives in plan order.
func (a *accumulator) ordered() []planner.Derivative {
	a.mu.Lock()
	defer a.mu.Unlock()
	sort.Slice(a.done, func(x, y int) bool { return a.done[x].i < a.done[y].i })
	out := make([]planner.Derivative, len(a.done))
	for k, e := range a.done {
		out[k] = e.d
	}
	return out
}

// execute produces every planned derivative on a pool of job.Workers
// units. Once ctx is canceled no further units start; the remaining
// derivatives are recorded as canceled.
func execute(ctx context.Context, job *Job, deps Deps, plan []planner.Derivative) []planner.Derivative {
	acc := &accumulator{}
	var g errgroup.Group
	g.SetLimit(job.workers())

	for i := range plan {
		d := plan[i]
		if d.Status != planner.StatusPlanned {
			acc.add(i, d)
			continue
		}
		if job.DryRun {
			d.Status = planner.StatusSucceeded
			deps.Log.Info("[DRY] Would write %s (%s)", naming.RelTarget(job.Spec.DestRoot, d.Target), d.Descriptor.Label())
			acc.add(i, d)
			continue
		}
		if ctx.Err() != nil {
			acc.add(i, canceled(d))
			continue
		}
		g.Go(func() error {
			acc.add(i, produce(ctx, job, deps, d))
			return nil
		})
	}
	_ = g.Wait()
	return acc.ordered()
}

func canceled(d planner.Derivative) planner.Derivative {
	d.Status = planner.StatusCanceled
	d.Err = Wrap(KindCanceled, "queue", d.Source.Rel, d.Descriptor.Label(), context.Canceled)
	return d
}

// produce reads, encodes and atomically writes one derivative. Encoding and
// writing run detached from ctx so a started derivative is always finished
// (or fails on its own); ctx only decides whether the unit starts.
func produce(ctx context.Context, job *Job, deps Deps, d planner.Derivative) planner.Derivative {
	if ctx.Err() != nil {
		return canceled(d)
	}
	label := d.Descriptor.Label()
	fail := func(kind Kind, op string, err error) planner.Derivative {
		d.Status = planner.StatusFailed
		d.Err = Wrap(kind, op, d.Source.Rel, label, err)
		deps.Log.Error("%v", d.Err)
		return d
	}

	src, err := deps.FS.ReadBytes(d.Source.Path)
	if err != nil {
		return fail(KindRead, "read", err)
	}
	d.Source.Size = int64(len(src))

	work := context.WithoutCancel(ctx)
	out, err := encode(work, deps.Codec, src, d, job.Timeout)
	if err != nil {
		if errors.Is(err, ErrCodecTimeout) {
			return fail(KindTimeout, "encode", err)
		}
		return fail(KindCodec, "encode", err)
	}

	if err := deps.FS.EnsureDir(filepath.Dir(d.Target)); err != nil {
		return fail(KindWrite, "mkdir", err)
	}
	if err := deps.FS.WriteBytesAtomic(d.Target, out); err != nil {
		return fail(KindWrite, "write", err)
	}

	d.Status = planner.StatusSucceeded
	d.OutBytes = int64(len(out))
	deps.Log.Debug(deps.Verbose, "%s -> %s (%s, %s)", d.Source.Rel, d.Target, label,
		display.FormatRatio(d.OutBytes, d.Source.Size))
	return d
}

// encode runs the codec, bounded by timeout when positive. On timeout the
// unit returns ErrCodecTimeout immediately; the codec goroutine is left to
// finish on its own and its result is discarded.
func encode(ctx context.Context, enc Encoder, src []byte, d planner.Derivative, timeout time.Duration) ([]byte, error) {
	opts := d.Descriptor.Options()
	if timeout <= 0 {
		return enc.Encode(ctx, src, d.Format, opts)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := enc.Encode(tctx, src, d.Format, opts)
		ch <- result{out, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return nil, ErrCodecTimeout
		}
		return r.out, r.err
	case <-tctx.Done():
		return nil, ErrCodecTimeout
	}
}

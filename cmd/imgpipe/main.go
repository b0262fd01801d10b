// Command imgpipe is the CLI entrypoint for the image derivative pipeline.
//
// It loads configuration (defaults, YAML, environment, flags), validates
// paths, and either runs system diagnostics (--check), the analysis report
// (analyze) or the requested stages, optionally re-running them on source
// changes (--watch).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/backmassage/imgpipe/internal/check"
	"github.com/backmassage/imgpipe/internal/codec"
	"github.com/backmassage/imgpipe/internal/config"
	"github.com/backmassage/imgpipe/internal/display"
	"github.com/backmassage/imgpipe/internal/fsys"
	"github.com/backmassage/imgpipe/internal/logging"
	"github.com/backmassage/imgpipe/internal/pipeline"
	"github.com/backmassage/imgpipe/internal/stage"
	"github.com/backmassage/imgpipe/internal/watch"
)

// commit is injected at build time via -ldflags. The version lives in
// config.Version so that --help and --version agree.
var commit = "unknown"

const analyzeCommand = "analyze"

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgpipe: %v\n", err)
		return 1
	}
	if cfg.ShowHelp {
		config.PrintUsage(os.Stdout)
		return 0
	}
	if cfg.ShowVersion {
		fmt.Printf("imgpipe %s (%s)\n", config.Version, commit)
		return 0
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "imgpipe: %v\n", err)
		return 1
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgpipe: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available. All output goes through log from here on.
	display.PrintBanner(os.Stdout)
	if p := log.FilePath(); p != "" {
		log.Info("Logging to %s", p)
	}
	enc := codec.Default()

	if cfg.CheckOnly {
		check.RunCheck(&cfg, enc, log)
		return 0
	}

	// The destination must be neither the source nor nested with it: the
	// clean stage removes the destination tree.
	sourceAbs, err := absPath(cfg.SourceRoot)
	if err != nil {
		log.Error("Cannot resolve source path: %s", cfg.SourceRoot)
		return 1
	}
	destAbs, err := absPath(cfg.DestRoot)
	if err != nil {
		log.Error("Cannot resolve destination path: %s", cfg.DestRoot)
		return 1
	}
	if err := cfg.ValidatePaths(sourceAbs, destAbs); err != nil {
		log.Error("%v", err)
		log.Error("Choose a destination outside: %s", cfg.SourceRoot)
		return 1
	}

	if err := check.Preflight(&cfg, enc); err != nil {
		log.Error("%v", err)
		return 1
	}

	// Phase 3: Signal handling. Queued derivatives are canceled on
	// SIGINT/SIGTERM; running ones finish so no partial output is left.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, finishing running derivatives…")
			cancel()
		case <-ctx.Done():
		}
	}()

	deps := pipeline.Deps{FS: fsys.NewOS(), Codec: enc, Log: log, Verbose: cfg.Verbose}

	if len(cfg.Commands) == 1 && cfg.Commands[0] == analyzeCommand {
		return runAnalyze(ctx, &cfg, deps)
	}

	defs, err := stage.Resolve(&cfg, cfg.Commands...)
	if err != nil {
		log.Error("%v", err)
		if errors.Is(err, stage.ErrUnknownStage) {
			log.Error("Run imgpipe --help for the list of stages")
		}
		return 1
	}

	log.Info("=== imgpipe v%s (%s) ===", config.Version, commit)
	log.Info("Src:    %s", cfg.SourceRoot)
	log.Info("Dest:   %s", cfg.DestRoot)
	log.Info("Stages: %s", stageList(defs))
	if cfg.DryRun {
		log.Warn("DRY RUN, no files will be written")
	}
	log.Info("")

	// Phase 4: Run the stages, then keep re-running them on change in
	// watch mode.
	orch := &stage.Orchestrator{Deps: deps, Workers: cfg.Workers, Timeout: cfg.Timeout, DryRun: cfg.DryRun}
	ok := runStages(ctx, orch, defs, log)
	if !cfg.Watch || ctx.Err() != nil {
		return exitCode(ok)
	}

	w, err := watch.New(log, cfg.WatchDebounce, cfg.ImagesSource(), cfg.VectorsSource())
	if err != nil {
		log.Error("Watch: %v", err)
		return 1
	}
	log.Info("Watching %s (Ctrl+C to stop)", strings.Join(w.Roots(), ", "))
	if err := w.Run(ctx, func(ctx context.Context, paths []string) {
		log.Info("%d change(s) detected, re-running", len(paths))
		for _, p := range paths {
			log.Debug(cfg.Verbose, "  changed: %s", p)
		}
		ok = runStages(ctx, orch, defs, log)
	}); err != nil {
		log.Error("Watch: %v", err)
		return 1
	}
	return exitCode(ok)
}

// runStages executes one run of defs and prints its summary. It reports
// whether every stage completed without failures.
func runStages(ctx context.Context, orch *stage.Orchestrator, defs []stage.Definition, log *logging.Logger) bool {
	run := stage.NewRun(defs)
	results := orch.Execute(ctx, run)
	pipeline.LogSummary(log, results)
	switch run.State() {
	case stage.RunCompleted:
		log.Success("Run %s: %s", run.ID, run.State())
		return true
	default:
		log.Error("Run %s: %s", run.ID, run.State())
		return false
	}
}

// runAnalyze prints the analysis report for the image sources, previewing
// the resize stage.
func runAnalyze(ctx context.Context, cfg *config.Config, deps pipeline.Deps) int {
	catalog, err := stage.Catalog(cfg)
	if err != nil {
		deps.Log.Error("%v", err)
		return 1
	}
	if _, err := pipeline.Analyze(ctx, cfg.ImagesSource(), catalog[stage.Resize].Spec, deps, os.Stdout); err != nil {
		deps.Log.Error("%v", err)
		return 1
	}
	return 0
}

func stageList(defs []stage.Definition) string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = string(d.Name)
		if d.FailFast {
			names[i] += " (fail-fast)"
		}
	}
	return strings.Join(names, " → ")
}

func exitCode(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of source vs destination hierarchies. Missing trailing components (a
// destination that does not exist yet) are appended to the resolved
// existing prefix.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	var missing []string
	for cur := abs; ; {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		missing = append([]string{filepath.Base(cur)}, missing...)
		cur = parent
	}
}

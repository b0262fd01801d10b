// Package watch re-runs work when files below a set of source roots
// change. Directories created after start are watched as well; bursts of
// events are collapsed into one callback after a quiet period.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/backmassage/imgpipe/internal/fsys"
	"github.com/backmassage/imgpipe/internal/logging"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc receives the sorted, de-duplicated paths changed since the
// previous call.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher watches directory trees recursively.
type Watcher struct {
	roots    []string
	debounce time.Duration
	log      *logging.Logger
	fw       *fsnotify.Watcher
}

// New creates a watcher over roots. Roots that do not exist are skipped
// with a warning; at least one must exist.
func New(log *logging.Logger, debounce time.Duration, roots ...string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{debounce: debounce, log: log, fw: fw}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn("Not watching %s: directory does not exist", root)
				continue
			}
			_ = fw.Close()
			return nil, err
		}
		w.roots = append(w.roots, root)
	}
	if len(w.roots) == 0 {
		_ = fw.Close()
		return nil, errors.New("no directory to watch")
	}
	return w, nil
}

// Roots returns the watched roots.
func (w *Watcher) Roots() []string { return w.roots }

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// Run delivers debounced changes to onChange until ctx is done. onChange
// runs on a single goroutine; events arriving meanwhile are batched into
// the next call.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	defer w.fw.Close()

	changes := make(chan string, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		debounce(ctx, changes, w.debounce, onChange)
	}()
	defer func() {
		close(changes)
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.log.Warn("%v", err)
					}
				}
			}
			select {
			case changes <- ev.Name:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error: %v", err)
		}
	}
}

// relevant drops permission-only changes and the pipeline's own temp files.
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	return !fsys.IsTempName(ev.Name)
}

// debounce collects paths from in and calls fire once no new path has
// arrived for delay. It returns when ctx is done or in is closed; pending
// paths are then dropped.
func debounce(ctx context.Context, in <-chan string, delay time.Duration, fire ChangeFunc) {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-in:
			if !ok {
				return
			}
			pending[p] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			fire(ctx, paths)
		}
	}
}

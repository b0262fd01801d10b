package naming

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// CaseInsensitiveHost reports whether the host's default filesystem
// treats "Logo.png" and "logo.png" as the same file.
func CaseInsensitiveHost() bool {
	return runtime.GOOS == "darwin" || runtime.GOOS == "windows"
}

// CollisionResolver hands out unique target paths within one stage. A
// target already claimed by another derivative is renamed by inserting
// "-dupN" before the extension, N counting up from 1. All methods are
// goroutine-safe; the pipeline resolves in plan order so results are
// deterministic.
type CollisionResolver struct {
	mu       sync.Mutex
	foldCase bool
	owners   map[string]string // key(target) → owner ID
	next     map[string]int    // key(requested) → next dup number to try
}

// NewCollisionResolver returns an empty resolver. With foldCase, targets
// that differ only in letter case collide.
func NewCollisionResolver(foldCase bool) *CollisionResolver {
	return &CollisionResolver{
		foldCase: foldCase,
		owners:   make(map[string]string),
		next:     make(map[string]int),
	}
}

func (cr *CollisionResolver) key(p string) string {
	if cr.foldCase {
		return strings.ToLower(p)
	}
	return p
}

// claim records owner for p unless another owner holds it.
func (cr *CollisionResolver) claim(owner, p string) bool {
	k := cr.key(p)
	if prev, taken := cr.owners[k]; taken && prev != owner {
		return false
	}
	cr.owners[k] = owner
	return true
}

// Resolve returns the target owner should write. renamed is true when the
// requested path was held by another owner.
func (cr *CollisionResolver) Resolve(owner, requested string) (target string, renamed bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.claim(owner, requested) {
		return requested, false
	}

	ext := filepath.Ext(requested)
	stem := strings.TrimSuffix(requested, ext)
	rk := cr.key(requested)
	n := max(cr.next[rk], 1)
	for ; ; n++ {
		candidate := fmt.Sprintf("%s-dup%d%s", stem, n, ext)
		if cr.claim(owner, candidate) {
			cr.next[rk] = n + 1
			return candidate, true
		}
	}
}

// Claimed returns the number of targets claimed so far.
func (cr *CollisionResolver) Claimed() int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return len(cr.owners)
}

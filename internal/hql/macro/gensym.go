package macro

import (
	"fmt"
	"sync"
)

// gensymCounter is the process-wide monotone counter backing Gensym and
// the hygiene rename-alias generator, per spec.md §4.6 ("A process-wide
// monotone counter produces prefix_N names").
var (
	gensymMu      sync.Mutex
	gensymCounter int
)

// Gensym returns a freshly generated unique name prefix_N. prefix defaults
// to "g" when empty.
func Gensym(prefix string) string {
	if prefix == "" {
		prefix = "g"
	}
	gensymMu.Lock()
	gensymCounter++
	n := gensymCounter
	gensymMu.Unlock()
	return fmt.Sprintf("%s_%d", prefix, n)
}

// ResetGensym restarts the counter. Exposed for tests only; production
// callers should never need determinism across process lifetimes.
func ResetGensym() {
	gensymMu.Lock()
	gensymCounter = 0
	gensymMu.Unlock()
}

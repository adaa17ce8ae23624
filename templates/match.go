package templates

import (
	"sync"

	"github.com/gobwas/glob"
)

// Matcher decides whether a stored urlPattern covers a page address.
// The store's external contract does not change with the matcher; only
// which rows Match returns.
type Matcher interface {
	Match(pattern, url string) bool
}

// ExactMatcher matches on string equality. This is the default: a
// template saved on a page applies to exactly that address.
type ExactMatcher struct{}

func (ExactMatcher) Match(pattern, url string) bool { return pattern == url }

// GlobMatcher matches urlPattern as a glob (e.g. "https://example.com/
// articles/*"). Compiled patterns are cached; a pattern that fails to
// compile matches nothing.
type GlobMatcher struct {
	mu    sync.Mutex
	cache map[string]glob.Glob
}

func NewGlobMatcher() *GlobMatcher {
	return &GlobMatcher{cache: make(map[string]glob.Glob)}
}

func (m *GlobMatcher) Match(pattern, url string) bool {
	m.mu.Lock()
	g, ok := m.cache[pattern]
	if !ok {
		var err error
		g, err = glob.Compile(pattern)
		if err != nil {
			g = nil
		}
		m.cache[pattern] = g
	}
	m.mu.Unlock()

	if g == nil {
		return false
	}
	return g.Match(url)
}

package analyze

import (
	"sync"

	"github.com/tonshield/tonshield/internal/risk"
)

// Generations tracks a monotonic request counter per (userKey, kind). A
// response whose generation is no longer current is still returned to its
// caller, but it is not persisted to history and not broadcast: a newer
// request for the same user and kind has superseded it.
type Generations struct {
	mu      sync.Mutex
	current map[genKey]uint64
}

type genKey struct {
	userKey string
	kind    risk.Kind
}

// NewGenerations creates an empty tracker.
func NewGenerations() *Generations {
	return &Generations{current: make(map[genKey]uint64)}
}

// Next registers a new request and returns its generation.
func (g *Generations) Next(userKey string, kind risk.Kind) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := genKey{userKey: userKey, kind: kind}
	g.current[k]++
	return g.current[k]
}

// IsCurrent reports whether gen is still the newest generation for the pair.
func (g *Generations) IsCurrent(userKey string, kind risk.Kind, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current[genKey{userKey: userKey, kind: kind}] == gen
}

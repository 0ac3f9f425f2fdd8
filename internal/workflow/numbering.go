package workflow

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// NumberGenerator issues externally visible order numbers. The format
// embeds the creation second plus a process-wide sequence, so concurrent
// calls never collide; the database additionally enforces uniqueness.
// Callers must treat the format as opaque.
type NumberGenerator struct {
	seq atomic.Uint64
}

func NewNumberGenerator() *NumberGenerator {
	g := &NumberGenerator{}
	// random seed so restarts don't restart the visible suffix at 0001
	g.seq.Store(rand.Uint64N(10000))
	return g
}

func (g *NumberGenerator) Next(now time.Time) string {
	n := g.seq.Add(1)
	return fmt.Sprintf("ORD-%d-%04d", now.Unix(), n%10000)
}

package world

import (
	"sync/atomic"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
)

// TraceCounter wraps a tracer and counts the traces issued through it.
type TraceCounter struct {
	Tracer graph.Tracer
	traces atomic.Int64
}

// NewTraceCounter wraps tracer.
func NewTraceCounter(tracer graph.Tracer) *TraceCounter {
	return &TraceCounter{Tracer: tracer}
}

func (c *TraceCounter) TraceLine(start, end Vec3, mode graph.TraceMode, ignore graph.Entity) graph.TraceResult {
	c.traces.Add(1)
	return c.Tracer.TraceLine(start, end, mode, ignore)
}

// WalkMove forwards to the wrapped tracer when it can test walks.
func (c *TraceCounter) WalkMove(start, end Vec3, hull graph.Hull, ignore graph.Entity) bool {
	if walker, ok := c.Tracer.(graph.Walker); ok {
		return walker.WalkMove(start, end, hull, ignore)
	}
	return true
}

// Count returns the traces issued so far.
func (c *TraceCounter) Count() int64 {
	return c.traces.Load()
}

// Reset zeroes the count.
func (c *TraceCounter) Reset() {
	c.traces.Store(0)
}

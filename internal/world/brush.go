// Package world is a small brush world that answers the trace, walk and
// entity lookups the node graph needs from its host.
package world

import "github.com/UAVXP/SharpLife-Game-sub000/internal/graph"

// Vec3 aliases the graph vector type for world helpers.
type Vec3 = graph.Vec3

// Brush is an axis-aligned solid box. Brushes added with AddBrush are
// entities in their own right; geometry added with AddSolid belongs to
// worldspawn.
type Brush struct {
	Class  string
	Name   string
	Target string
	Flags  int
	State  graph.ToggleState
	Mins   Vec3
	Maxs   Vec3

	model   string
	graphed bool
}

func (b *Brush) ClassName() string { return b.Class }
func (b *Brush) Model() string { return b.model }
func (b *Brush) TargetName() string { return b.Name }
func (b *Brush) SpawnFlags() int { return b.Flags }
func (b *Brush) ToggleState() graph.ToggleState { return b.State }

// Center is the middle of the brush box.
func (b *Brush) Center() Vec3 {
	return b.Mins.Add(b.Maxs).Mul(0.5)
}

// SetGraphed records that some link references the brush.
func (b *Brush) SetGraphed(graphed bool) { b.graphed = graphed }

// Graphed reports whether some link references the brush.
func (b *Brush) Graphed() bool { return b.graphed }

// contains reports whether p lies strictly inside the box.
func (b *Brush) contains(p Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if p[axis] <= b.Mins[axis] || p[axis] >= b.Maxs[axis] {
			return false
		}
	}
	return true
}

var (
	_ graph.Entity  = (*Brush)(nil)
	_ graph.Grapher = (*Brush)(nil)
)

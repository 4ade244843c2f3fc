package world

import (
	"fmt"
	"math"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
)

const (
	// StepHeight is the ledge a walking hull steps over.
	StepHeight = 18.0
)

type solid struct {
	box   *Brush
	owner *Brush
}

// World holds the worldspawn entity, its geometry and brush entities.
type World struct {
	spawn    *Brush
	solids   []solid
	entities []*Brush
	models   int
}

// New returns an empty world.
func New() *World {
	spawn := &Brush{Class: graph.ClassWorld, model: "*0"}
	return &World{spawn: spawn, entities: []*Brush{spawn}}
}

// Worldspawn returns the entity that owns static geometry.
func (w *World) Worldspawn() *Brush {
	return w.spawn
}

// AddSolid adds a static geometry box owned by worldspawn.
func (w *World) AddSolid(mins, maxs Vec3) {
	w.solids = append(w.solids, solid{box: &Brush{Mins: mins, Maxs: maxs}, owner: w.spawn})
}

// AddBrush adds a brush entity and assigns its inline model name.
func (w *World) AddBrush(b *Brush) *Brush {
	w.models++
	b.model = fmt.Sprintf("*%d", w.models)
	w.entities = append(w.entities, b)
	w.solids = append(w.solids, solid{box: b, owner: b})
	return b
}

// RemoveEntity drops a brush entity, e.g. a breakable that was destroyed.
func (w *World) RemoveEntity(b *Brush) {
	for i, ent := range w.entities {
		if ent == b {
			w.entities = append(w.entities[:i], w.entities[i+1:]...)
			break
		}
	}
	kept := w.solids[:0]
	for _, s := range w.solids {
		if s.owner != b {
			kept = append(kept, s)
		}
	}
	w.solids = kept
}

// Entities returns every entity, worldspawn first.
func (w *World) Entities() []*Brush {
	return w.entities
}

// TraceLine sweeps a point from start to end against every solid.
func (w *World) TraceLine(start, end Vec3, mode graph.TraceMode, ignore graph.Entity) graph.TraceResult {
	result := graph.TraceResult{Fraction: 1, EndPos: end}
	delta := end.Sub(start)

	for _, s := range w.solids {
		if ignore != nil && graph.Entity(s.owner) == ignore {
			continue
		}
		if s.box.contains(start) {
			return graph.TraceResult{Fraction: 0, EndPos: start, Hit: s.owner, StartSolid: true}
		}
		frac, normal, ok := sweepBox(start, delta, s.box.Mins, s.box.Maxs)
		if !ok || frac >= result.Fraction {
			continue
		}
		result.Fraction = frac
		result.Hit = s.owner
		result.PlaneNormal = normal
	}

	if result.Fraction < 1 {
		result.EndPos = start.Add(delta.Mul(result.Fraction))
	}
	return result
}

// sweepBox is a slab test returning the entry fraction of the segment
// start + t*delta, t in [0, 1], into the closed box.
func sweepBox(start, delta, mins, maxs Vec3) (float64, Vec3, bool) {
	enter, exit := math.Inf(-1), math.Inf(1)
	enterAxis := -1
	for axis := 0; axis < 3; axis++ {
		if delta[axis] == 0 {
			if start[axis] < mins[axis] || start[axis] > maxs[axis] {
				return 0, Vec3{}, false
			}
			continue
		}
		t1 := (mins[axis] - start[axis]) / delta[axis]
		t2 := (maxs[axis] - start[axis]) / delta[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > enter {
			enter = t1
			enterAxis = axis
		}
		exit = math.Min(exit, t2)
		if enter > exit {
			return 0, Vec3{}, false
		}
	}
	if enterAxis < 0 || enter < 0 || enter > 1 || exit < 0 {
		return 0, Vec3{}, false
	}
	var normal Vec3
	if delta[enterAxis] > 0 {
		normal[enterAxis] = -1
	} else {
		normal[enterAxis] = 1
	}
	return enter, normal, true
}

// WalkMove reports whether a hull fits along the straight walk from start
// to end: parallel traces at the hull's sides and centre, at step height
// and at head height, must all be clear.
func (w *World) WalkMove(start, end Vec3, hull graph.Hull, ignore graph.Entity) bool {
	halfWidth, height := graph.HullExtents(hull)
	dir := end.Sub(start).Vec2()
	if dir.Len() == 0 {
		return true
	}
	dir = dir.Normalize()
	side := Vec3{-dir[1] * halfWidth, dir[0] * halfWidth, 0}

	for _, lift := range [...]float64{StepHeight, math.Max(height-1, StepHeight)} {
		up := Vec3{0, 0, lift}
		for _, offset := range [...]Vec3{{}, side, side.Mul(-1)} {
			from := start.Add(up).Add(offset)
			to := end.Add(up).Add(offset)
			tr := w.TraceLine(from, to, graph.TraceIgnoreMonsters, ignore)
			if tr.StartSolid || tr.Fraction < 1 {
				return false
			}
		}
	}
	return true
}

// FindEntityByModel returns the entity with the inline model name, or nil.
func (w *World) FindEntityByModel(model string) graph.Entity {
	for _, ent := range w.entities {
		if ent.model == model {
			return ent
		}
	}
	return nil
}

// FindEntitiesByTarget returns the entities whose target is targetName.
func (w *World) FindEntitiesByTarget(targetName string) []graph.Entity {
	if targetName == "" {
		return nil
	}
	var out []graph.Entity
	for _, ent := range w.entities {
		if ent.Target == targetName {
			out = append(out, ent)
		}
	}
	return out
}

var (
	_ graph.Tracer       = (*World)(nil)
	_ graph.Walker       = (*World)(nil)
	_ graph.EntityFinder = (*World)(nil)
)

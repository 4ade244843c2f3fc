package graph

import (
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/telemetry"
)

const cacheSize = 128

type cacheEntry struct {
	origin Vec3
	types  NodeType
	node   int32
	valid  bool
}

func cacheSlot(point Vec3) int {
	var buf [24]byte
	for axis := 0; axis < 3; axis++ {
		binary.LittleEndian.PutUint64(buf[axis*8:], math.Float64bits(point[axis]))
	}
	return int(crc32.ChecksumIEEE(buf[:]) & (cacheSize - 1))
}

func (g *Graph) clearCache() {
	g.cache = [cacheSize]cacheEntry{}
}

// ClearNearestCache forgets memoized nearest-node answers, e.g. after the
// world geometry changed.
func (g *Graph) ClearNearestCache() {
	g.clearCache()
}

// FindNearestNode returns the closest node of one of the given types whose
// peek origin is visible from point, ties going to the lower index. It
// returns NoNode when no such node exists.
func (g *Graph) FindNearestNode(point Vec3, types NodeType) int {
	if !g.ready("FindNearestNode") || !g.hasRegions() {
		return NoNode
	}
	g.opts.Metrics.Add(telemetry.KeyNearestQueries, 1)

	slot := cacheSlot(point)
	if entry := g.cache[slot]; entry.valid && entry.origin == point && entry.types == types {
		g.opts.Metrics.Add(telemetry.KeyNearestCacheHit, 1)
		return int(entry.node)
	}

	g.checkedCounter++
	if g.checkedCounter == 0 {
		for i := range g.checked {
			g.checked[i] = 0
		}
		g.checkedCounter = 1
	}

	s := nearestSearch{
		g:        g,
		point:    point,
		types:    types,
		best:     NoNode,
		bestDist: math.MaxFloat64,
	}
	for axis := 0; axis < 3; axis++ {
		s.boxMin[axis] = 0
		s.boxMax[axis] = numRanges - 1
		s.query[axis] = g.regionOf(point[axis], axis)
	}

	s.scan(0, s.query[0], -1)
	s.scan(1, s.query[1]+1, 1)
	s.scan(2, s.query[2], -1)
	s.scan(0, s.query[0]+1, 1)
	s.scan(1, s.query[1], -1)
	s.scan(2, s.query[2]+1, 1)

	if s.best == NoNode {
		g.opts.Metrics.Add(telemetry.KeyNearestMisses, 1)
	}
	g.cache[slot] = cacheEntry{origin: point, types: types, node: int32(s.best), valid: true}
	return s.best
}

type nearestSearch struct {
	g        *Graph
	point    Vec3
	types    NodeType
	best     int
	bestDist float64
	query    [3]int
	boxMin   [3]int
	boxMax   [3]int
}

// scan walks buckets along axis from start in direction dir while they stay
// inside the shrinking search box.
func (s *nearestSearch) scan(axis, start, dir int) {
	g := s.g
	b, c := (axis+1)%3, (axis+2)%3
	for r := start; r >= s.boxMin[axis] && r <= s.boxMax[axis]; r += dir {
		first, last := g.rangeStart[axis][r], g.rangeEnd[axis][r]
		if first < 0 {
			continue
		}
		for j := first; j <= last; j++ {
			node := int(g.sortedBy[axis][j])
			region := g.nodes[node].Region
			if int(region[b]) > s.boxMax[b] {
				break
			}
			if int(region[b]) < s.boxMin[b] {
				continue
			}
			if int(region[c]) < s.boxMin[c] || int(region[c]) > s.boxMax[c] {
				continue
			}
			if g.nodes[node].Info&s.types == 0 {
				continue
			}
			s.check(node)
		}
	}
}

func (s *nearestSearch) check(node int) {
	g := s.g
	if g.checked[node] == g.checkedCounter {
		return
	}
	g.checked[node] = g.checkedCounter

	dist := s.point.Sub(g.nodes[node].Origin).Len()
	if dist > s.bestDist || (dist == s.bestDist && node > s.best) {
		return
	}
	tr := g.trace(s.point, g.nodes[node].Peek, TraceIgnoreMonsters, nil)
	if tr.Fraction != 1 {
		return
	}
	s.best = node
	s.bestDist = dist
	for axis := 0; axis < 3; axis++ {
		s.boxMin[axis] = g.regionOf(s.point[axis]-dist, axis)
		s.boxMax[axis] = g.regionOf(s.point[axis]+dist, axis)
	}
}

package graph

import (
	"math"
	"sort"
)

const numRanges = 256

// BuildRegionTables buckets every node into 256 ranges per axis over the
// graph's bounding box and sorts one node index list per axis by the
// composite key of its primary, secondary and tertiary bucket.
func (g *Graph) BuildRegionTables() {
	n := len(g.nodes)
	if n == 0 {
		return
	}

	lo, hi := g.nodes[0].Origin, g.nodes[0].Origin
	for _, node := range g.nodes[1:] {
		for axis := 0; axis < 3; axis++ {
			lo[axis] = math.Min(lo[axis], node.Origin[axis])
			hi[axis] = math.Max(hi[axis], node.Origin[axis])
		}
	}
	g.regionMin, g.regionMax = lo, hi

	for i := range g.nodes {
		for axis := 0; axis < 3; axis++ {
			g.nodes[i].Region[axis] = uint8(g.regionOf(g.nodes[i].Origin[axis], axis))
		}
	}

	for axis := 0; axis < 3; axis++ {
		order := make([]int32, n)
		for i := range order {
			order[i] = int32(i)
		}
		sort.SliceStable(order, func(a, b int) bool {
			return g.regionKey(order[a], axis) < g.regionKey(order[b], axis)
		})
		g.sortedBy[axis] = order

		for r := 0; r < numRanges; r++ {
			g.rangeStart[axis][r] = -1
			g.rangeEnd[axis][r] = -1
		}
		for j, node := range order {
			r := g.nodes[node].Region[axis]
			if g.rangeStart[axis][r] == -1 {
				g.rangeStart[axis][r] = int32(j)
			}
			g.rangeEnd[axis][r] = int32(j)
		}
	}

	g.checked = make([]uint32, n)
	g.checkedCounter = 0
	g.clearCache()
}

// regionKey orders nodes by (axis, axis+1, axis+2) buckets.
func (g *Graph) regionKey(node int32, axis int) int {
	r := g.nodes[node].Region
	return int(r[axis])<<16 | int(r[(axis+1)%3])<<8 | int(r[(axis+2)%3])
}

// regionOf maps a coordinate to its bucket on axis, clamped to [0, 255].
func (g *Graph) regionOf(v float64, axis int) int {
	lo, hi := g.regionMin[axis], g.regionMax[axis]
	r := int(math.Floor(numRanges * (v - lo) / (hi - lo + 1)))
	return min(max(r, 0), numRanges-1)
}

func (g *Graph) hasRegions() bool {
	return g.sortedBy[0] != nil && len(g.checked) == len(g.nodes)
}

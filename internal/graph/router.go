package graph

import (
	"container/heap"
	"math"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/telemetry"
)

// FindShortestPath returns the node sequence from start to dest for an agent
// of the given hull and capabilities, beginning with start and ending with
// dest. start == dest yields [start, dest]. With compiled routing tables the
// path follows the stored next hops and is truncated to MaxPathSize nodes
// when that option is set; otherwise a live search runs. A nil result means
// no route.
func (g *Graph) FindShortestPath(start, dest int, hull Hull, caps Capability) []int {
	if !g.ready("FindShortestPath") {
		return nil
	}
	if !g.validNode(start) || !g.validNode(dest) || hull < 0 || hull >= NumHulls {
		return nil
	}
	g.opts.Metrics.Add(telemetry.KeyPathQueries, 1)
	if start == dest {
		return []int{start, dest}
	}

	var path []int
	if g.routingComplete {
		path = g.routeFromTables(start, dest, hull, CapIndex(caps))
	} else {
		path, _ = g.search(start, dest, hull, caps, QueryDynamic)
		if limit := g.opts.MaxPathSize; limit > 0 && len(path) > limit {
			path = path[:limit]
		}
	}
	if path == nil {
		g.opts.Metrics.Add(telemetry.KeyPathFailures, 1)
	}
	return path
}

func (g *Graph) routeFromTables(start, dest int, hull Hull, class int) []int {
	path := []int{start}
	limit := g.opts.MaxPathSize
	cur := start
	for cur != dest {
		if limit > 0 && len(path) >= limit {
			break
		}
		next := g.nextNodeInRoute(cur, dest, hull, class)
		if next == cur || len(path) > len(g.nodes) {
			return nil
		}
		path = append(path, next)
		cur = next
	}
	return path
}

// search is a Dijkstra over enabled links that carry the hull bit and whose
// blocking entity lets the capabilities through. It returns the path and its
// total weight, or nil when dest is unreachable.
func (g *Graph) search(start, dest int, hull Hull, caps Capability, kind QueryKind) ([]int, float64) {
	mask := HullMask(hull)
	best := make([]float64, len(g.nodes))
	for i := range best {
		best[i] = math.Inf(1)
	}
	closed := make([]bool, len(g.nodes))

	open := &searchQueue{}
	heap.Init(open)
	heap.Push(open, &searchNode{node: int32(start)})
	best[start] = 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)
		if closed[current.node] {
			continue
		}
		closed[current.node] = true
		if int(current.node) == dest {
			return reconstructRoute(current), current.cost
		}

		node := g.nodes[current.node]
		for k := int32(0); k < node.NumLinks; k++ {
			link := &g.links[node.FirstLink+k]
			if link.Info&mask == 0 || link.Info&LinkDisabled != 0 {
				continue
			}
			if closed[link.Dest] {
				continue
			}
			if link.Ent != nil && !g.handleLinkEnt(int(current.node), link.Ent, caps, kind) {
				continue
			}
			cost := current.cost + link.Weight
			if cost >= best[link.Dest] {
				continue
			}
			best[link.Dest] = cost
			heap.Push(open, &searchNode{node: link.Dest, cost: cost, parent: current})
		}
	}
	return nil, 0
}

// NextNodeInRoute decodes the compiled table row of cur and returns the next
// hop towards dest. It returns cur when no route exists.
func (g *Graph) NextNodeInRoute(cur, dest int, hull Hull, class int) int {
	if !g.routingComplete || !g.validNode(cur) || !g.validNode(dest) {
		return cur
	}
	if hull < 0 || hull >= NumHulls || class < 0 || class >= NumCapClasses {
		return cur
	}
	return g.nextNodeInRoute(cur, dest, hull, class)
}

func (g *Graph) nextNodeInRoute(cur, dest int, hull Hull, class int) int {
	blob := g.routeInfo
	pos := int(g.nodes[cur].NextBest[hull][class])
	count := dest + 1

	for count > 0 {
		if pos < 0 || pos >= len(blob) {
			return cur
		}
		ch := int(int8(blob[pos]))
		pos++
		if ch < 0 {
			ch = -ch
			if count <= ch {
				return dest
			}
			count -= ch
			continue
		}
		if count <= ch+1 {
			if pos >= len(blob) {
				return cur
			}
			return g.wrapNode(cur + int(int8(blob[pos])))
		}
		count -= ch + 1
		pos++
	}
	return cur
}

func (g *Graph) wrapNode(i int) int {
	n := len(g.nodes)
	if i < 0 {
		i += n
	} else if i >= n {
		i -= n
	}
	return i
}

// PathLength is the total link weight of the route FindShortestPath would
// take, or 0 when there is none. Without routing tables it uses a live search.
func (g *Graph) PathLength(start, dest int, hull Hull, caps Capability) float64 {
	if !g.ready("PathLength") {
		return 0
	}
	if !g.validNode(start) || !g.validNode(dest) || start == dest {
		return 0
	}
	if hull < 0 || hull >= NumHulls {
		return 0
	}
	if !g.routingComplete {
		_, cost := g.search(start, dest, hull, caps, QueryDynamic)
		return cost
	}

	class := CapIndex(caps)
	total := 0.0
	cur := start
	for steps := 0; cur != dest; steps++ {
		next := g.nextNodeInRoute(cur, dest, hull, class)
		if next == cur || steps > len(g.nodes) {
			return 0
		}
		link := g.HashSearch(cur, next)
		if link < 0 {
			return 0
		}
		total += g.links[link].Weight
		cur = next
	}
	return total
}

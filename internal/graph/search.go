package graph

// Cursor remembers where the previous round-robin node scan stopped so
// repeated searches spread over the whole graph.
type Cursor struct {
	Next int
}

// ScanNodes visits every node once starting at the cursor, wrapping around,
// and returns the first accepted node with the cursor advanced past it.
func (g *Graph) ScanNodes(cur Cursor, accept func(node int) bool) (int, Cursor) {
	n := len(g.nodes)
	if n == 0 || accept == nil {
		return NoNode, cur
	}
	start := cur.Next
	if start < 0 || start >= n {
		start = 0
	}
	for k := 0; k < n; k++ {
		node := (start + k) % n
		if accept(node) {
			return node, Cursor{Next: (node + 1) % n}
		}
	}
	return NoNode, cur
}

// CoverRequest describes a search for a node hidden from a threat.
type CoverRequest struct {
	// From is the searcher's current position.
	From Vec3
	// Threat is the eye position of whatever the searcher hides from.
	Threat Vec3
	// ViewOffset is added to a node origin to get the searcher's eyes there.
	ViewOffset Vec3
	MinDist    float64
	MaxDist    float64
	Hull       Hull
	Caps       Capability
	Types      NodeType
}

// FindCoverNode returns a node within [MinDist, MaxDist) of the searcher
// that the threat cannot see and that the searcher can route to.
func (g *Graph) FindCoverNode(cur Cursor, req CoverRequest) (int, Cursor) {
	if !g.ready("FindCoverNode") {
		return NoNode, cur
	}
	types := req.Types
	if types == 0 {
		types = NodeLand
	}
	start := g.FindNearestNode(req.From, types)
	if start == NoNode {
		return NoNode, cur
	}

	return g.ScanNodes(cur, func(node int) bool {
		n := g.nodes[node]
		if n.Info&types == 0 {
			return false
		}
		dist := req.From.Sub(n.Origin).Len()
		if dist < req.MinDist || dist >= req.MaxDist {
			return false
		}
		tr := g.trace(n.Origin.Add(req.ViewOffset), req.Threat, TraceIgnoreMonsters, nil)
		if tr.Fraction == 1 {
			return false
		}
		return node == start || g.FindShortestPath(start, node, req.Hull, req.Caps) != nil
	})
}

// HintRequest describes a search for a hint node near the searcher.
type HintRequest struct {
	From    Vec3
	MaxDist float64
	// Hints restricts the accepted hint types; empty accepts any hint.
	Hints []int32
}

// FindActiveIdleNode returns a visible node carrying a hint within MaxDist,
// the spot an idle agent walks to next.
func (g *Graph) FindActiveIdleNode(cur Cursor, req HintRequest) (int, Cursor) {
	if !g.ready("FindActiveIdleNode") {
		return NoNode, cur
	}
	return g.ScanNodes(cur, func(node int) bool {
		n := g.nodes[node]
		if n.HintType == 0 || !acceptsHint(req.Hints, n.HintType) {
			return false
		}
		if req.MaxDist > 0 && req.From.Sub(n.Origin).Len() > req.MaxDist {
			return false
		}
		return g.trace(req.From, n.Peek, TraceIgnoreMonsters, nil).Fraction == 1
	})
}

func acceptsHint(hints []int32, hint int32) bool {
	if len(hints) == 0 {
		return true
	}
	for _, h := range hints {
		if h == hint {
			return true
		}
	}
	return false
}

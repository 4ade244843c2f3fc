package graph

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/go-gl/mathgl/mgl64"

	lognodegraph "github.com/UAVXP/SharpLife-Game-sub000/logging/nodegraph"
)

// BuildReport summarises a Build run.
type BuildReport struct {
	Nodes    int
	Links    int
	Rejected int
	Duration time.Duration
}

// Build runs the whole construction pipeline over the nodes added so far.
// On a capacity error the graph is left without links; on a route
// compression error the graph stays usable through live searches.
func (g *Graph) Build(ctx context.Context) (BuildReport, error) {
	ctx, span := g.spans.Start(ctx, "graph.Build")
	defer span.End()
	started := time.Now()

	if len(g.nodes) == 0 {
		span.SetStatus(codes.Error, ErrNoNodes.Error())
		return BuildReport{}, ErrNoNodes
	}

	g.PlaceNodes()

	_, err := g.phase(ctx, "LinkVisibleNodes", func() (int, error) {
		return g.LinkVisibleNodes(g.opts.LinksPerNode)
	})
	if err != nil {
		var capErr *CapacityError
		if errors.As(err, &capErr) {
			lognodegraph.LinkCapacityExceeded(ctx, g.opts.Publisher, g.opts.MapName, capErr.Node, lognodegraph.LinkCapacityPayload{
				Links: capErr.Links,
				Limit: capErr.Limit,
				Pool:  capErr.Pool,
			})
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "link capacity")
		return BuildReport{Nodes: len(g.nodes)}, err
	}

	rejected, _ := g.phase(ctx, "RejectInlineLinks", func() (int, error) {
		return g.RejectInlineLinks(), nil
	})
	lognodegraph.InlineLinksRejected(ctx, g.opts.Publisher, g.opts.MapName, rejected)

	g.ComputeHullMasks()

	g.phase(ctx, "SortNodes", func() (int, error) {
		g.SortNodes()
		return len(g.nodes), nil
	})
	g.phase(ctx, "BuildRegionTables", func() (int, error) {
		g.BuildRegionTables()
		return len(g.nodes), nil
	})
	g.phase(ctx, "BuildLinkLookups", func() (int, error) {
		g.BuildLinkLookups()
		return len(g.hashLinks), nil
	})

	report := BuildReport{Nodes: len(g.nodes), Links: len(g.links), Rejected: rejected}
	if err := g.ComputeStaticRoutingTables(ctx); err != nil {
		report.Duration = time.Since(started)
		span.RecordError(err)
		span.SetStatus(codes.Error, "routing tables")
		return report, err
	}

	report.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("nodes", report.Nodes),
		attribute.Int("links", report.Links),
		attribute.Int("route_bytes", len(g.routeInfo)),
	)
	g.storeGauges()
	lognodegraph.GraphBuilt(ctx, g.opts.Publisher, g.opts.MapName, lognodegraph.GraphBuiltPayload{
		Nodes:         report.Nodes,
		Links:         report.Links,
		Rejected:      rejected,
		RouteBytes:    len(g.routeInfo),
		RoutingTables: g.routingComplete,
		DurationMS:    report.Duration.Milliseconds(),
	})
	return report, nil
}

func (g *Graph) phase(ctx context.Context, name string, fn func() (int, error)) (int, error) {
	_, span := g.spans.Start(ctx, "graph."+name)
	defer span.End()
	count, err := fn()
	span.SetAttributes(attribute.Int("count", count))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return count, err
}

// PlaceNodes drops land nodes onto the floor below them. The designer
// placed origin becomes the peek origin used for visibility checks.
func (g *Graph) PlaceNodes() {
	for i := range g.nodes {
		node := &g.nodes[i]
		node.Peek = node.Origin
		if node.Info&NodeLand == 0 {
			continue
		}
		below := node.Origin.Sub(Vec3{0, 0, NodeDropDistance})
		tr := g.trace(node.Origin, below, TraceIgnoreMonsters, nil)
		if tr.StartSolid || tr.Fraction >= 1 {
			continue
		}
		node.Origin = tr.EndPos.Add(Vec3{0, 0, NodeHeight})
	}
	g.invalidate()
}

// LinkVisibleNodes links every ordered pair of same-realm nodes that can
// see each other. A pair blocked by the same non-world entity in both
// directions is linked through that entity. It returns the total number of
// links, or a *CapacityError naming the node that overflowed.
func (g *Graph) LinkVisibleNodes(capPerNode int) (int, error) {
	if capPerNode <= 0 {
		capPerNode = g.opts.LinksPerNode
	}
	g.links = g.links[:0]
	g.invalidate()
	g.present = false

	for i := range g.nodes {
		src := &g.nodes[i]
		src.FirstLink = int32(len(g.links))
		src.NumLinks = 0
		count := 0

		for j := range g.nodes {
			if i == j {
				continue
			}
			dst := &g.nodes[j]
			if src.Info&NodeRealm != dst.Info&NodeRealm {
				continue
			}

			tr := g.trace(src.Origin, dst.Origin, TraceIgnoreMonsters, nil)
			if tr.StartSolid {
				continue
			}
			var blocker Entity
			if tr.Fraction != 1 {
				if isWorld(tr.Hit) {
					continue
				}
				back := g.trace(dst.Origin, src.Origin, TraceIgnoreMonsters, nil)
				if back.Hit != tr.Hit || isWorld(back.Hit) {
					continue
				}
				blocker = tr.Hit
			}

			if len(g.links) >= g.opts.LinkPoolSize {
				g.dropLinks()
				return 0, &CapacityError{Node: i, Links: g.opts.LinkPoolSize + 1, Limit: g.opts.LinkPoolSize, Pool: true}
			}
			count++
			if count > capPerNode {
				g.dropLinks()
				return 0, &CapacityError{Node: i, Links: count, Limit: capPerNode}
			}

			link := Link{
				Src:    int32(i),
				Dest:   int32(j),
				Weight: distance2D(src.Origin, dst.Origin),
				Info:   defaultHulls(src.Info),
			}
			if blocker != nil {
				link.Ent = blocker
				link.ModelName = blocker.Model()
				g.markGraphed(blocker)
			}
			g.links = append(g.links, link)
		}
		src.NumLinks = int32(count)
	}

	g.present = true
	g.pointersSet = true
	return len(g.links), nil
}

// dropLinks empties the link pool and detaches every node from it.
func (g *Graph) dropLinks() {
	g.links = g.links[:0]
	for i := range g.nodes {
		g.nodes[i].FirstLink = 0
		g.nodes[i].NumLinks = 0
	}
}

func defaultHulls(info NodeType) LinkInfo {
	if info&NodeLand != 0 {
		return LinkSmallHull | LinkHumanHull | LinkLargeHull
	}
	return LinkAllHulls
}

func (g *Graph) markGraphed(ent Entity) {
	if grapher, ok := ent.(Grapher); ok {
		grapher.SetGraphed(true)
	}
	if model := ent.Model(); model != "" {
		g.graphed[model] = struct{}{}
	}
}

// RejectInlineLinks removes, for every node, any link that heads in nearly
// the same horizontal direction as a strictly shorter link of the same
// node. The shorter link already reaches everything the longer one did.
func (g *Graph) RejectInlineLinks() int {
	threshold := g.opts.InlineThreshold
	rejected := 0

	for i := range g.nodes {
		src := &g.nodes[i]
		first := int(src.FirstLink)

		for j := 0; j < int(src.NumLinks); j++ {
			check := &g.links[first+j]
			checkDir, checkDist := direction2D(src.Origin, g.nodes[check.Dest].Origin)
			check.Weight = checkDist

			for k := 0; k < int(src.NumLinks); k++ {
				if k == j {
					continue
				}
				testDir, testDist := direction2D(src.Origin, g.nodes[g.links[first+k].Dest].Origin)
				if checkDir.Dot(testDir) < threshold || testDist >= checkDist {
					continue
				}
				last := first + int(src.NumLinks) - 1
				g.links[first+j] = g.links[last]
				src.NumLinks--
				j--
				rejected++
				break
			}
		}
	}

	g.compactLinks()
	return rejected
}

// compactLinks closes the holes inline rejection leaves in the pool.
func (g *Graph) compactLinks() {
	compacted := make([]Link, 0, len(g.links))
	for i := range g.nodes {
		node := &g.nodes[i]
		first := int(node.FirstLink)
		node.FirstLink = int32(len(compacted))
		compacted = append(compacted, g.links[first:first+int(node.NumLinks)]...)
	}
	g.links = compacted
	g.invalidate()
}

// ComputeHullMasks narrows land links to the hulls that can walk them when
// the tracer can test walks. Air and water links keep every hull.
func (g *Graph) ComputeHullMasks() {
	walker, ok := g.tracer.(Walker)
	if !ok {
		return
	}
	for i := range g.links {
		link := &g.links[i]
		src := g.nodes[link.Src]
		if src.Info&NodeLand == 0 {
			continue
		}
		dst := g.nodes[link.Dest]
		for _, hull := range [...]Hull{HullSmall, HullHuman, HullLarge} {
			if !walker.WalkMove(src.Origin, dst.Origin, hull, link.Ent) {
				link.Info &^= HullMask(hull)
			}
		}
	}
}

// SortNodes renumbers nodes breadth first so linked nodes get nearby
// indices, which keeps route offsets inside a signed byte.
func (g *Graph) SortNodes() {
	n := len(g.nodes)
	if n == 0 {
		return
	}
	renumber := make([]int32, n)
	for i := range renumber {
		renumber[i] = -1
	}
	order := make([]int32, 0, n)
	queue := make([]int32, 0, n)

	for root := 0; root < n; root++ {
		if renumber[root] >= 0 {
			continue
		}
		renumber[root] = int32(len(order))
		order = append(order, int32(root))
		queue = append(queue[:0], int32(root))
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			node := g.nodes[cur]
			for k := int32(0); k < node.NumLinks; k++ {
				dest := g.links[node.FirstLink+k].Dest
				if renumber[dest] >= 0 {
					continue
				}
				renumber[dest] = int32(len(order))
				order = append(order, dest)
				queue = append(queue, dest)
			}
		}
	}

	nodes := make([]Node, n)
	links := make([]Link, 0, len(g.links))
	for newIndex, oldIndex := range order {
		node := g.nodes[oldIndex]
		first := node.FirstLink
		node.FirstLink = int32(len(links))
		for k := int32(0); k < node.NumLinks; k++ {
			link := g.links[first+k]
			link.Src = int32(newIndex)
			link.Dest = renumber[link.Dest]
			links = append(links, link)
		}
		nodes[newIndex] = node
	}
	g.nodes = nodes
	g.links = links
	g.invalidate()
}

func distance2D(a, b Vec3) float64 {
	return b.Sub(a).Vec2().Len()
}

// direction2D returns the normalized horizontal direction from a to b and
// its length. Stacked nodes yield a zero direction.
func direction2D(a, b Vec3) (mgl64.Vec2, float64) {
	d := b.Sub(a).Vec2()
	length := d.Len()
	if length == 0 || math.IsNaN(length) {
		return mgl64.Vec2{}, 0
	}
	return d.Mul(1 / length), length
}

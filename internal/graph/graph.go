// Package graph builds and queries the waypoint node graph AI agents route
// over: visibility linking, inline link rejection, compressed all-pairs
// routing tables, a region index for nearest-node queries and the .nod file.
//
// A Graph is single threaded. Construction runs in strict phase order
// (link, prune, hull masks, sort, regions, hash, routes) and queries assume
// the graph is present with its link entities resolved.
package graph

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/telemetry"
	"github.com/UAVXP/SharpLife-Game-sub000/logging"
	lognodegraph "github.com/UAVXP/SharpLife-Game-sub000/logging/nodegraph"
)

const (
	DefaultMaxNodes        = 1024
	DefaultLinksPerNode    = 128
	DefaultLinkPoolSize    = 65536
	DefaultMaxPathSize     = 10
	DefaultInlineThreshold = 0.998

	// NodeHeight lifts land nodes off the floor after dropping them.
	NodeHeight = 8.0
	// NodeDropDistance is how far below a land node the floor is searched for.
	NodeDropDistance = 384.0
)

// DanglingPolicy decides what happens to a link whose blocking entity
// cannot be found again after a load.
type DanglingPolicy int

const (
	// DanglingKeepOpen clears the reference; the link becomes always traversable.
	DanglingKeepOpen DanglingPolicy = iota
	// DanglingDisable marks the link disabled; no route uses it.
	DanglingDisable
)

func (p DanglingPolicy) String() string {
	switch p {
	case DanglingDisable:
		return "disable"
	default:
		return "keep-open"
	}
}

// ParseDanglingPolicy maps a config value to a policy, defaulting to keep-open.
func ParseDanglingPolicy(value string) DanglingPolicy {
	if value == "disable" {
		return DanglingDisable
	}
	return DanglingKeepOpen
}

// Options tune capacities and wire diagnostics.
type Options struct {
	MapName         string
	MaxNodes        int
	LinksPerNode    int
	LinkPoolSize    int
	MaxPathSize     int
	InlineThreshold float64
	Dangling        DanglingPolicy

	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// DefaultOptions returns the stock capacities.
func DefaultOptions() Options {
	return Options{
		MaxNodes:        DefaultMaxNodes,
		LinksPerNode:    DefaultLinksPerNode,
		LinkPoolSize:    DefaultLinkPoolSize,
		MaxPathSize:     DefaultMaxPathSize,
		InlineThreshold: DefaultInlineThreshold,
	}
}

func (o Options) normalized() Options {
	n := o
	if n.MaxNodes <= 0 {
		n.MaxNodes = DefaultMaxNodes
	}
	if n.LinksPerNode <= 0 {
		n.LinksPerNode = DefaultLinksPerNode
	}
	if n.LinkPoolSize <= 0 {
		n.LinkPoolSize = DefaultLinkPoolSize
	}
	if n.MaxPathSize < 0 {
		n.MaxPathSize = 0
	}
	if n.InlineThreshold <= 0 || n.InlineThreshold > 1 {
		n.InlineThreshold = DefaultInlineThreshold
	}
	if n.Publisher == nil {
		n.Publisher = logging.NopPublisher()
	}
	if n.Metrics == nil {
		n.Metrics = telemetry.NopMetrics()
	}
	return n
}

// Graph owns the node array, the link pool and every derived table.
type Graph struct {
	opts   Options
	tracer Tracer
	finder EntityFinder
	spans  trace.Tracer

	nodes []Node
	links []Link

	present     bool
	pointersSet bool
	graphed     map[string]struct{}

	routeInfo       []byte
	routingComplete bool

	regionMin      Vec3
	regionMax      Vec3
	sortedBy       [3][]int32
	rangeStart     [3][numRanges]int32
	rangeEnd       [3][numRanges]int32
	checked        []uint32
	checkedCounter uint32
	cache          [cacheSize]cacheEntry

	hashPrimes [16]int32
	hashLinks  []int32
}

// New returns an empty graph that traces through tracer.
func New(tracer Tracer, opts Options) *Graph {
	g := &Graph{
		opts:    opts.normalized(),
		tracer:  tracer,
		spans:   otel.Tracer("github.com/UAVXP/SharpLife-Game-sub000/internal/graph"),
		graphed: make(map[string]struct{}),
	}
	g.invalidate()
	return g
}

// Options returns the normalized options the graph runs with.
func (g *Graph) Options() Options {
	return g.opts
}

// AddNode appends a node and returns its index. Peek starts equal to origin.
func (g *Graph) AddNode(origin Vec3, info NodeType) (int, error) {
	if len(g.nodes) >= g.opts.MaxNodes {
		return NoNode, ErrTooManyNodes
	}
	g.nodes = append(g.nodes, Node{Origin: origin, Peek: origin, Info: info})
	g.invalidate()
	return len(g.nodes) - 1, nil
}

// SetHint attaches hint data used by idle searches.
func (g *Graph) SetHint(node int, hintType, activity int32, yaw float64) {
	if !g.validNode(node) {
		return
	}
	g.nodes[node].HintType = hintType
	g.nodes[node].HintActivity = activity
	g.nodes[node].HintYaw = yaw
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) LinkCount() int { return len(g.links) }

// Node returns a copy of node i.
func (g *Graph) Node(i int) Node {
	return g.nodes[i]
}

// Link returns a copy of link i.
func (g *Graph) Link(i int) Link {
	return g.links[i]
}

// NodeLinks returns the link pool indices leaving node i.
func (g *Graph) NodeLinks(i int) []int {
	if !g.validNode(i) {
		return nil
	}
	n := g.nodes[i]
	out := make([]int, 0, n.NumLinks)
	for k := int32(0); k < n.NumLinks; k++ {
		out = append(out, int(n.FirstLink+k))
	}
	return out
}

// RoutingComplete reports whether the compressed route tables are usable.
func (g *Graph) RoutingComplete() bool { return g.routingComplete }

// RouteBytes is the size of the shared routing blob.
func (g *Graph) RouteBytes() int { return len(g.routeInfo) }

// Present reports whether the graph holds built or loaded data.
func (g *Graph) Present() bool { return g.present }

// PointersSet reports whether link entities have been resolved.
func (g *Graph) PointersSet() bool { return g.pointersSet }

// Graphed reports whether an entity model is referenced by some link.
func (g *Graph) Graphed(model string) bool {
	_, ok := g.graphed[model]
	return ok
}

func (g *Graph) validNode(i int) bool {
	return i >= 0 && i < len(g.nodes)
}

// ready gates queries and reports the misuse once per call.
func (g *Graph) ready(operation string) bool {
	if g.present && g.pointersSet {
		return true
	}
	lognodegraph.GraphNotReady(context.Background(), g.opts.Publisher, g.opts.MapName, operation)
	return false
}

// invalidate drops every table derived from node order or the link pool.
func (g *Graph) invalidate() {
	g.routeInfo = nil
	g.routingComplete = false
	for axis := range g.sortedBy {
		g.sortedBy[axis] = nil
		for r := 0; r < numRanges; r++ {
			g.rangeStart[axis][r] = -1
			g.rangeEnd[axis][r] = -1
		}
	}
	g.hashLinks = nil
	g.clearCache()
}

func (g *Graph) trace(start, end Vec3, mode TraceMode, ignore Entity) TraceResult {
	g.opts.Metrics.Add(telemetry.KeyTraces, 1)
	return g.tracer.TraceLine(start, end, mode, ignore)
}

func (g *Graph) storeGauges() {
	g.opts.Metrics.Store(telemetry.KeyNodes, uint64(len(g.nodes)))
	g.opts.Metrics.Store(telemetry.KeyLinks, uint64(len(g.links)))
	g.opts.Metrics.Store(telemetry.KeyRouteBytes, uint64(len(g.routeInfo)))
}

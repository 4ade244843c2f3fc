package app

import (
	"sync"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/net/proto"
)

// Service serialises access to a graph for concurrent callers. The graph
// itself assumes a single thread.
type Service struct {
	mu    sync.Mutex
	graph *graph.Graph
}

func NewService(g *graph.Graph) *Service {
	return &Service{graph: g}
}

func (s *Service) Summary() proto.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summaryOf(s.graph)
}

func summaryOf(g *graph.Graph) proto.Summary {
	return proto.Summary{
		Map:             g.Options().MapName,
		Nodes:           g.NodeCount(),
		Links:           g.LinkCount(),
		RoutingComplete: g.RoutingComplete(),
		RouteBytes:      g.RouteBytes(),
		PointersSet:     g.PointersSet(),
	}
}

// Snapshot copies every node and link.
func (s *Service) Snapshot() proto.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.graph
	snapshot := proto.Snapshot{
		Summary: summaryOf(g),
		Nodes:   make([]proto.NodeView, 0, g.NodeCount()),
		Links:   make([]proto.LinkView, 0, g.LinkCount()),
	}
	for i := 0; i < g.NodeCount(); i++ {
		node := g.Node(i)
		snapshot.Nodes = append(snapshot.Nodes, proto.NodeView{
			Origin: [3]float64(node.Origin),
			Info:   int32(node.Info),
			Hint:   node.HintType,
			Region: node.Region,
		})
	}
	for i := 0; i < g.LinkCount(); i++ {
		link := g.Link(i)
		snapshot.Links = append(snapshot.Links, proto.LinkView{
			Src:    link.Src,
			Dest:   link.Dest,
			Weight: link.Weight,
			Info:   int32(link.Info),
			Model:  link.ModelName,
		})
	}
	return snapshot
}

// Path returns the route and its length, or nil and 0 when none exists.
func (s *Service) Path(start, dest int, hull graph.Hull, caps graph.Capability) ([]int, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.graph.FindShortestPath(start, dest, hull, caps)
	if path == nil {
		return nil, 0
	}
	return path, s.graph.PathLength(start, dest, hull, caps)
}

func (s *Service) Nearest(point graph.Vec3, types graph.NodeType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.FindNearestNode(point, types)
}

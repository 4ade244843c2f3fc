package graph

import (
	"context"
	"math"
	"testing"
)

type openSpace struct{}

func (openSpace) TraceLine(start, end Vec3, _ TraceMode, _ Entity) TraceResult {
	return TraceResult{Fraction: 1, EndPos: end}
}

func TestFindNearestNodeSurvivesStampWraparound(t *testing.T) {
	g := New(openSpace{}, DefaultOptions())
	for _, origin := range []Vec3{{0, 0, 0}, {300, 0, 0}, {600, 0, 0}} {
		if _, err := g.AddNode(origin, NodeLand); err != nil {
			t.Fatalf("add node: %v", err)
		}
	}
	if _, err := g.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}

	near := func(x float64) int {
		for i, node := range g.nodes {
			if math.Abs(node.Origin[0]-x) < 1e-6 {
				return i
			}
		}
		t.Fatalf("no node at x=%v", x)
		return NoNode
	}

	// Stale stamps equal to the post-wrap counter would hide every node.
	g.checkedCounter = math.MaxUint32
	for i := range g.checked {
		g.checked[i] = 1
	}
	if got, want := g.FindNearestNode(Vec3{280, 10, 0}, NodeLand), near(300); got != want {
		t.Fatalf("expected node %d after the stamp wrapped, got %d", want, got)
	}
	if g.checkedCounter != 1 {
		t.Fatalf("expected the counter to restart at 1, got %d", g.checkedCounter)
	}
	if got, want := g.FindNearestNode(Vec3{590, -5, 0}, NodeLand), near(600); got != want {
		t.Fatalf("expected node %d on the next query, got %d", want, got)
	}
}

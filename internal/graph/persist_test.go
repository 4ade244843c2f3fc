package graph_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/world"
	"github.com/UAVXP/SharpLife-Game-sub000/logging/sinks"
	lognodegraph "github.com/UAVXP/SharpLife-Game-sub000/logging/nodegraph"
)

func roundTrip(t *testing.T, g *graph.Graph, w *world.World, opts graph.Options) *graph.Graph {
	t.Helper()
	var buf bytes.Buffer
	if err := graph.WriteGraph(&buf, g); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := graph.ReadGraph(&buf, w, opts)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if loaded.PointersSet() {
		t.Fatalf("expected a loaded graph to wait for entity resolution")
	}
	if _, err := loaded.ResolveLinkEntities(context.Background(), w); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return loaded
}

func TestGraphRoundTripPreservesRoutes(t *testing.T) {
	w, door := squareWorld(true)
	g := buildGraph(t, w, graph.DefaultOptions(), squareCorners)
	loaded := roundTrip(t, g, w, graph.DefaultOptions())

	if loaded.NodeCount() != g.NodeCount() || loaded.LinkCount() != g.LinkCount() {
		t.Fatalf("counts changed: %d/%d nodes, %d/%d links", loaded.NodeCount(), g.NodeCount(), loaded.LinkCount(), g.LinkCount())
	}
	if !loaded.RoutingComplete() || loaded.RouteBytes() != g.RouteBytes() {
		t.Fatalf("routing tables not restored")
	}
	for i := 0; i < g.NodeCount(); i++ {
		if !reflect.DeepEqual(loaded.Node(i), g.Node(i)) {
			t.Fatalf("node %d differs after load", i)
		}
	}

	a, b := nodeAt(t, loaded, 0, 0), nodeAt(t, loaded, 100, 0)
	link := loaded.HashSearch(a, b)
	if link < 0 || loaded.Link(link).Ent != graph.Entity(door) {
		t.Fatalf("expected the door link to resolve to the door")
	}

	for _, caps := range []graph.Capability{graph.CapNone, graph.CapOpenDoors} {
		for hull := graph.Hull(0); hull < graph.NumHulls; hull++ {
			for s := 0; s < g.NodeCount(); s++ {
				for d := 0; d < g.NodeCount(); d++ {
					want := g.FindShortestPath(s, d, hull, caps)
					got := loaded.FindShortestPath(s, d, hull, caps)
					if !reflect.DeepEqual(want, got) {
						t.Fatalf("route %d->%d hull %s caps %d: got %v, want %v", s, d, hull, caps, got, want)
					}
				}
			}
		}
	}
	if got, want := loaded.FindNearestNode(graph.Vec3{90, 10, 0}, graph.NodeLand), g.FindNearestNode(graph.Vec3{90, 10, 0}, graph.NodeLand); got != want {
		t.Fatalf("nearest node %d after load, want %d", got, want)
	}
}

func TestReadGraphRejectsVersionMismatch(t *testing.T) {
	w, _ := squareWorld(false)
	g := buildGraph(t, w, graph.DefaultOptions(), squareCorners)
	var buf bytes.Buffer
	if err := graph.WriteGraph(&buf, g); err != nil {
		t.Fatalf("write: %v", err)
	}
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[:4], uint32(graph.GraphVersion+1))

	if _, err := graph.ReadGraph(bytes.NewReader(data), w, graph.DefaultOptions()); !errors.Is(err, graph.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestReadGraphRejectsTruncatedFile(t *testing.T) {
	w, _ := squareWorld(false)
	g := buildGraph(t, w, graph.DefaultOptions(), squareCorners)
	var buf bytes.Buffer
	if err := graph.WriteGraph(&buf, g); err != nil {
		t.Fatalf("write: %v", err)
	}
	data := buf.Bytes()
	for _, cut := range []int{2, 12, len(data) / 2, len(data) - 1} {
		if _, err := graph.ReadGraph(bytes.NewReader(data[:cut]), w, graph.DefaultOptions()); err == nil {
			t.Fatalf("expected an error for a file cut at %d of %d bytes", cut, len(data))
		}
	}
}

func TestStoreSaveLoadAndStaleness(t *testing.T) {
	dir := t.TempDir()
	sink := sinks.NewMemorySink()
	store := graph.Store{
		MapsDir:   filepath.Join(dir, "maps"),
		GraphDir:  filepath.Join(dir, "graphs"),
		MapExt:    ".yaml",
		Publisher: sink,
	}
	if !store.NeedsRebuild("square") {
		t.Fatalf("expected a missing graph to need a rebuild")
	}
	if _, err := store.Load("square", world.New(), graph.DefaultOptions()); err == nil {
		t.Fatalf("expected loading a missing graph to fail")
	}
	if len(sink.OfType(lognodegraph.EventGraphLoadFailed)) != 1 {
		t.Fatalf("expected a load failure event")
	}

	if err := os.MkdirAll(store.MapsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(store.MapPath("square"), []byte("name: square\n"), 0o644); err != nil {
		t.Fatalf("write map: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(store.MapPath("square"), past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	w, _ := squareWorld(false)
	g := buildGraph(t, w, graph.DefaultOptions(), squareCorners)
	if err := store.Save(g, "square"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.NeedsRebuild("square") {
		t.Fatalf("expected a fresh graph not to need a rebuild")
	}

	loaded, err := store.Load("square", w, graph.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.NodeCount() != g.NodeCount() || loaded.Options().MapName != "square" {
		t.Fatalf("unexpected loaded graph: %d nodes, map %q", loaded.NodeCount(), loaded.Options().MapName)
	}
	if len(sink.OfType(lognodegraph.EventGraphLoaded)) != 1 {
		t.Fatalf("expected a graph loaded event")
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(store.MapPath("square"), future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if !store.NeedsRebuild("square") {
		t.Fatalf("expected an edited map to need a rebuild")
	}
}

func TestStoreSaveRefusesEmptyGraph(t *testing.T) {
	sink := sinks.NewMemorySink()
	store := graph.Store{GraphDir: t.TempDir(), Publisher: sink}
	err := store.Save(graph.New(world.New(), graph.DefaultOptions()), "empty")
	if !errors.Is(err, graph.ErrGraphNotReady) {
		t.Fatalf("expected ErrGraphNotReady, got %v", err)
	}
	if len(sink.OfType(lognodegraph.EventGraphSaveFailed)) != 1 {
		t.Fatalf("expected a save failure event")
	}
}

func TestDanglingPolicies(t *testing.T) {
	w, _ := squareWorld(true)
	g := buildGraph(t, w, graph.DefaultOptions(), squareCorners)
	var buf bytes.Buffer
	if err := graph.WriteGraph(&buf, g); err != nil {
		t.Fatalf("write: %v", err)
	}
	data := buf.Bytes()

	// The same map without its door.
	bare, _ := squareWorld(false)

	t.Run("keep open", func(t *testing.T) {
		sink := sinks.NewMemorySink()
		opts := graph.DefaultOptions()
		opts.Publisher = sink
		loaded, err := graph.ReadGraph(bytes.NewReader(data), bare, opts)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		unresolved, err := loaded.ResolveLinkEntities(context.Background(), bare)
		if err != nil || unresolved != 2 {
			t.Fatalf("expected 2 unresolved links, got %d (%v)", unresolved, err)
		}
		if len(sink.OfType(lognodegraph.EventLinkEntityUnresolved)) != 2 {
			t.Fatalf("expected an event per unresolved link")
		}
		a, b := nodeAt(t, loaded, 0, 0), nodeAt(t, loaded, 100, 0)
		link := loaded.Link(loaded.HashSearch(a, b))
		if link.Ent != nil || link.ModelName == "" || link.Info&graph.LinkDisabled != 0 {
			t.Fatalf("expected a cleared but enabled link, got %+v", link)
		}
		if !loaded.RoutingComplete() {
			t.Fatalf("expected routing tables to be recompiled")
		}
		for _, caps := range []graph.Capability{graph.CapNone, graph.CapOpenDoors} {
			if path := loaded.FindShortestPath(a, b, graph.HullHuman, caps); len(path) != 2 {
				t.Fatalf("caps %v: expected the door route to stay open, got %v", caps, path)
			}
			if length := loaded.PathLength(a, b, graph.HullHuman, caps); length != 100 {
				t.Fatalf("caps %v: expected direct length 100, got %v", caps, length)
			}
		}
	})

	t.Run("disable", func(t *testing.T) {
		opts := graph.DefaultOptions()
		opts.Dangling = graph.DanglingDisable
		loaded, err := graph.ReadGraph(bytes.NewReader(data), bare, opts)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if _, err := loaded.ResolveLinkEntities(context.Background(), bare); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !loaded.RoutingComplete() {
			t.Fatalf("expected routing tables to be recompiled")
		}
		a, b := nodeAt(t, loaded, 0, 0), nodeAt(t, loaded, 100, 0)
		if path := loaded.FindShortestPath(a, b, graph.HullHuman, graph.CapOpenDoors); len(path) != 4 {
			t.Fatalf("expected the disabled link to force a detour, got %v", path)
		}
		if length := loaded.PathLength(a, b, graph.HullHuman, graph.CapOpenDoors); length != 300 {
			t.Fatalf("expected detour length 300, got %v", length)
		}
	})
}

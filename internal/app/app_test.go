package app

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/config"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/mapdata"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/telemetry"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/world"
)

const squareMap = `
name: square
nodes:
  - origin: [0, 0, 0]
  - origin: [100, 0, 0]
  - origin: [100, 100, 0]
  - origin: [0, 100, 0]
solids:
  - mins: [-100, -100, -40]
    maxs: [200, 200, -30]
  - mins: [40, 40, -30]
    maxs: [60, 60, 100]
entities:
  - classname: func_door
    targetname: gate
    mins: [45, -5, -30]
    maxs: [55, 5, 100]
`

func writeMap(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "square.yaml"), []byte(squareMap), 0o644); err != nil {
		t.Fatalf("write map: %v", err)
	}
}

func TestLoadOrBuildCachesGraph(t *testing.T) {
	dir := t.TempDir()
	store := &graph.Store{MapsDir: filepath.Join(dir, "maps"), GraphDir: filepath.Join(dir, "graphs"), MapExt: ".yaml"}
	writeMap(t, store.MapsDir)

	m, err := mapdata.Load(store.MapPath("square"))
	if err != nil {
		t.Fatalf("load map: %v", err)
	}
	w := m.World()

	var logged []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		logged = append(logged, format)
	})

	first, err := LoadOrBuild(context.Background(), store, m, w, graph.DefaultOptions(), logger)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if !first.Rebuilt || first.Graph.LinkCount() != 8 {
		t.Fatalf("expected a fresh build with 8 links, got rebuilt=%v links=%d", first.Rebuilt, first.Graph.LinkCount())
	}
	if _, err := os.Stat(store.GraphPath("square")); err != nil {
		t.Fatalf("expected the graph file to be saved: %v", err)
	}

	second, err := LoadOrBuild(context.Background(), store, m, w, graph.DefaultOptions(), logger)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.Rebuilt {
		t.Fatalf("expected the cached graph to be used")
	}
	if !second.Graph.PointersSet() || second.Unresolved != 0 {
		t.Fatalf("expected link entities to resolve, %d unresolved", second.Unresolved)
	}
	if len(logged) != 0 {
		t.Fatalf("expected no warnings, got %v", logged)
	}
}

func TestLoadOrBuildRebuildsCorruptCache(t *testing.T) {
	dir := t.TempDir()
	store := &graph.Store{MapsDir: filepath.Join(dir, "maps"), GraphDir: filepath.Join(dir, "graphs"), MapExt: ".yaml"}
	writeMap(t, store.MapsDir)
	m, err := mapdata.Load(store.MapPath("square"))
	if err != nil {
		t.Fatalf("load map: %v", err)
	}
	if err := os.MkdirAll(store.GraphDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(store.GraphPath("square"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var logged int
	logger := telemetry.LoggerFunc(func(string, ...any) { logged++ })
	result, err := LoadOrBuild(context.Background(), store, m, m.World(), graph.DefaultOptions(), logger)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !result.Rebuilt || logged != 1 {
		t.Fatalf("expected a logged rebuild, got rebuilt=%v logged=%d", result.Rebuilt, logged)
	}
}

// hubScene only sees horizontally through the hub, so every route is a
// spoke in and a spoke out.
type hubScene struct {
	*world.World
	hub graph.Vec3
}

func (s hubScene) TraceLine(start, end graph.Vec3, _ graph.TraceMode, _ graph.Entity) graph.TraceResult {
	if start[2] != end[2] || start == s.hub || end == s.hub {
		return graph.TraceResult{Fraction: 1, EndPos: end}
	}
	return graph.TraceResult{Fraction: 0.5, EndPos: start.Add(end.Sub(start).Mul(0.5))}
}

func TestLoadOrBuildKeepsGraphWithoutRoutingTables(t *testing.T) {
	dir := t.TempDir()
	store := &graph.Store{MapsDir: filepath.Join(dir, "maps"), GraphDir: filepath.Join(dir, "graphs"), MapExt: ".yaml"}
	m := &mapdata.Map{Name: "star", Nodes: []mapdata.NodeSpec{{Realm: "air"}}}
	for i := 0; i < 300; i++ {
		angle := 2 * math.Pi * float64(i) / 300
		m.Nodes = append(m.Nodes, mapdata.NodeSpec{
			Origin: [3]float64{500 * math.Cos(angle), 500 * math.Sin(angle), 0},
			Realm:  "air",
		})
	}
	scene := hubScene{World: world.New()}
	opts := graph.DefaultOptions()
	opts.LinksPerNode = 1000
	opts.InlineThreshold = 1

	var logged []string
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	})

	for _, tc := range []struct {
		name    string
		rebuilt bool
	}{
		{name: "build", rebuilt: true},
		{name: "cached", rebuilt: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			result, err := LoadOrBuild(context.Background(), store, m, scene, opts, logger)
			if err != nil {
				t.Fatalf("load or build: %v", err)
			}
			g := result.Graph
			if result.Rebuilt != tc.rebuilt || g.RoutingComplete() {
				t.Fatalf("expected rebuilt=%v without tables, got rebuilt=%v tables=%v", tc.rebuilt, result.Rebuilt, g.RoutingComplete())
			}

			hub, leaves := graph.NoNode, []int{}
			for i := 0; i < g.NodeCount(); i++ {
				if g.Node(i).Origin == (graph.Vec3{}) {
					hub = i
				} else {
					leaves = append(leaves, i)
				}
			}
			a, b := leaves[10], leaves[len(leaves)-10]
			path := g.FindShortestPath(a, b, graph.HullFly, graph.CapNone)
			if len(path) != 3 || path[0] != a || path[1] != hub || path[2] != b {
				t.Fatalf("expected %d -> hub %d -> %d, got %v", a, hub, b, path)
			}
		})
	}

	if _, err := os.Stat(store.GraphPath("star")); err != nil {
		t.Fatalf("expected the graph file to be saved: %v", err)
	}
	if len(logged) != 1 || !strings.Contains(logged[0], "live search") {
		t.Fatalf("expected one live search warning, got %v", logged)
	}
}

func TestServiceAnswersQueries(t *testing.T) {
	m, err := mapdata.Parse([]byte(squareMap))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	w := m.World()
	g := graph.New(w, graph.DefaultOptions())
	if err := m.Populate(g); err != nil {
		t.Fatalf("populate: %v", err)
	}
	if _, err := g.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	svc := NewService(g)

	snapshot := svc.Snapshot()
	if len(snapshot.Nodes) != 4 || len(snapshot.Links) != 8 || !snapshot.Summary.RoutingComplete {
		t.Fatalf("unexpected snapshot: %+v", snapshot.Summary)
	}
	var doorLinks int
	for _, link := range snapshot.Links {
		if link.Model == "*1" {
			doorLinks++
		}
	}
	if doorLinks != 2 {
		t.Fatalf("expected both door links to carry the model name, got %d", doorLinks)
	}

	start := svc.Nearest(graph.Vec3{5, 5, 0}, graph.NodeLand)
	dest := svc.Nearest(graph.Vec3{95, 95, 0}, graph.NodeLand)
	path, length := svc.Path(start, dest, graph.HullHuman, graph.CapNone)
	if len(path) != 3 || length != 200 {
		t.Fatalf("expected a 200 unit two edge route, got %v (%v)", path, length)
	}
	if path, length := svc.Path(start, graph.NoNode, graph.HullHuman, graph.CapNone); path != nil || length != 0 {
		t.Fatalf("expected no route to an invalid node, got %v (%v)", path, length)
	}
}

func TestRunPrintsSummary(t *testing.T) {
	dir := t.TempDir()
	settings := config.Default()
	settings.Storage.MapsDir = filepath.Join(dir, "maps")
	settings.Storage.GraphDir = filepath.Join(dir, "graphs")
	settings.Logging.Sinks = []string{"zap"}
	settings.Logging.Level = "error"
	writeMap(t, settings.Storage.MapsDir)

	var out bytes.Buffer
	if err := Run(context.Background(), Config{Settings: settings, MapName: "square", Stdout: &out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "square: built 4 nodes, 8 links") {
		t.Fatalf("unexpected summary %q", out.String())
	}

	out.Reset()
	if err := Run(context.Background(), Config{Settings: settings, MapName: "square", Stdout: &out}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(out.String(), "square: loaded 4 nodes, 8 links") {
		t.Fatalf("unexpected summary %q", out.String())
	}

	if err := Run(context.Background(), Config{Settings: settings, MapName: "missing", Stdout: &out}); err == nil {
		t.Fatalf("expected an error for a missing map")
	}
}

package world

import (
	"math"
	"testing"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTraceLineHitsNearestSolid(t *testing.T) {
	w := New()
	w.AddSolid(Vec3{40, -10, -10}, Vec3{60, 10, 10})
	door := w.AddBrush(&Brush{Class: graph.ClassDoor, Mins: Vec3{20, -10, -10}, Maxs: Vec3{30, 10, 10}})

	tr := w.TraceLine(Vec3{0, 0, 0}, Vec3{100, 0, 0}, graph.TraceIgnoreMonsters, nil)
	if !almostEqual(tr.Fraction, 0.2) {
		t.Fatalf("expected fraction 0.2, got %v", tr.Fraction)
	}
	if tr.Hit != graph.Entity(door) {
		t.Fatalf("expected door hit, got %#v", tr.Hit)
	}
	if tr.PlaneNormal != (Vec3{-1, 0, 0}) {
		t.Fatalf("unexpected plane normal %v", tr.PlaneNormal)
	}
	if !almostEqual(tr.EndPos[0], 20) {
		t.Fatalf("expected end x 20, got %v", tr.EndPos[0])
	}

	ignored := w.TraceLine(Vec3{0, 0, 0}, Vec3{100, 0, 0}, graph.TraceIgnoreMonsters, door)
	if !almostEqual(ignored.Fraction, 0.4) {
		t.Fatalf("expected fraction 0.4 past the ignored door, got %v", ignored.Fraction)
	}
	if ignored.Hit != graph.Entity(w.Worldspawn()) {
		t.Fatalf("expected worldspawn hit, got %#v", ignored.Hit)
	}
}

func TestTraceLineClearAndStartSolid(t *testing.T) {
	w := New()
	w.AddSolid(Vec3{-10, -10, -10}, Vec3{10, 10, 10})

	tests := []struct {
		name       string
		start, end Vec3
		fraction   float64
		startSolid bool
	}{
		{name: "clear", start: Vec3{20, 20, 0}, end: Vec3{100, 20, 0}, fraction: 1},
		{name: "inside", start: Vec3{0, 0, 0}, end: Vec3{100, 0, 0}, fraction: 0, startSolid: true},
		{name: "miss above", start: Vec3{-50, 0, 20}, end: Vec3{50, 0, 20}, fraction: 1},
		{name: "beyond end", start: Vec3{-50, 0, 0}, end: Vec3{-20, 0, 0}, fraction: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := w.TraceLine(tc.start, tc.end, graph.TraceIgnoreMonsters, nil)
			if !almostEqual(tr.Fraction, tc.fraction) {
				t.Fatalf("expected fraction %v, got %v", tc.fraction, tr.Fraction)
			}
			if tr.StartSolid != tc.startSolid {
				t.Fatalf("expected start solid %v, got %v", tc.startSolid, tr.StartSolid)
			}
		})
	}
}

func TestWalkMoveRespectsHullWidth(t *testing.T) {
	w := New()
	// A corridor 40 units wide along +X.
	w.AddSolid(Vec3{0, 20, -10}, Vec3{200, 40, 200})
	w.AddSolid(Vec3{0, -40, -10}, Vec3{200, -20, 200})

	start, end := Vec3{-50, 0, 0}, Vec3{250, 0, 0}
	if !w.WalkMove(start, end, graph.HullSmall, nil) {
		t.Fatalf("expected small hull to fit the corridor")
	}
	if w.WalkMove(start, end, graph.HullLarge, nil) {
		t.Fatalf("expected large hull to be blocked by the corridor walls")
	}
}

func TestWalkMoveIgnoresEntity(t *testing.T) {
	w := New()
	door := w.AddBrush(&Brush{Class: graph.ClassDoor, Mins: Vec3{45, -50, -10}, Maxs: Vec3{55, 50, 200}})

	if w.WalkMove(Vec3{0, 0, 0}, Vec3{100, 0, 0}, graph.HullHuman, nil) {
		t.Fatalf("expected the door to block the walk")
	}
	if !w.WalkMove(Vec3{0, 0, 0}, Vec3{100, 0, 0}, graph.HullHuman, door) {
		t.Fatalf("expected the walk to pass when the door is ignored")
	}
}

func TestFindersAndRemoval(t *testing.T) {
	w := New()
	door := w.AddBrush(&Brush{Class: graph.ClassDoor, Name: "gate", Mins: Vec3{0, 0, 0}, Maxs: Vec3{10, 10, 10}})
	button := w.AddBrush(&Brush{Class: graph.ClassButton, Target: "gate", Mins: Vec3{20, 0, 0}, Maxs: Vec3{22, 4, 4}})

	if got := w.FindEntityByModel(door.Model()); got != graph.Entity(door) {
		t.Fatalf("expected door by model %q, got %#v", door.Model(), got)
	}
	if got := w.FindEntityByModel("*99"); got != nil {
		t.Fatalf("expected nil for unknown model, got %#v", got)
	}
	triggers := w.FindEntitiesByTarget("gate")
	if len(triggers) != 1 || triggers[0] != graph.Entity(button) {
		t.Fatalf("expected button targeting gate, got %#v", triggers)
	}

	w.RemoveEntity(door)
	if got := w.FindEntityByModel(door.Model()); got != nil {
		t.Fatalf("expected removed door to be gone, got %#v", got)
	}
	tr := w.TraceLine(Vec3{5, 5, -20}, Vec3{5, 5, 20}, graph.TraceIgnoreMonsters, nil)
	if tr.Fraction != 1 {
		t.Fatalf("expected removed door not to block traces, got fraction %v", tr.Fraction)
	}
}

func TestTraceCounter(t *testing.T) {
	w := New()
	counter := NewTraceCounter(w)
	counter.TraceLine(Vec3{}, Vec3{1, 0, 0}, graph.TraceIgnoreMonsters, nil)
	counter.TraceLine(Vec3{}, Vec3{0, 1, 0}, graph.TraceIgnoreMonsters, nil)
	if counter.Count() != 2 {
		t.Fatalf("expected 2 traces, got %d", counter.Count())
	}
	counter.Reset()
	if counter.Count() != 0 {
		t.Fatalf("expected reset count, got %d", counter.Count())
	}
	if !counter.WalkMove(Vec3{}, Vec3{10, 0, 0}, graph.HullHuman, nil) {
		t.Fatalf("expected walk through empty world")
	}
}

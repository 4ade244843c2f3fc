// Package mapdata loads map fixtures: designer placed nodes, static solids
// and brush entities described in YAML.
package mapdata

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/world"
)

// NodeSpec is one waypoint as placed in the map.
type NodeSpec struct {
	Origin   [3]float64 `yaml:"origin" json:"origin" jsonschema:"required"`
	Realm    string     `yaml:"realm" json:"realm,omitempty" jsonschema:"enum=land,enum=air,enum=water"`
	Hint     int32      `yaml:"hint" json:"hint,omitempty"`
	Activity int32      `yaml:"activity" json:"activity,omitempty"`
	Yaw      float64    `yaml:"yaw" json:"yaw,omitempty"`
}

// SolidSpec is a static world box.
type SolidSpec struct {
	Mins [3]float64 `yaml:"mins" json:"mins" jsonschema:"required"`
	Maxs [3]float64 `yaml:"maxs" json:"maxs" jsonschema:"required"`
}

// EntitySpec is a brush entity such as a door, button or breakable.
type EntitySpec struct {
	ClassName  string     `yaml:"classname" json:"classname" jsonschema:"required"`
	TargetName string     `yaml:"targetname" json:"targetname,omitempty"`
	Target     string     `yaml:"target" json:"target,omitempty"`
	SpawnFlags int        `yaml:"spawnflags" json:"spawnflags,omitempty"`
	Open       bool       `yaml:"open" json:"open,omitempty"` // starts fully open
	Mins       [3]float64 `yaml:"mins" json:"mins" jsonschema:"required"`
	Maxs       [3]float64 `yaml:"maxs" json:"maxs" jsonschema:"required"`
}

// Map is a parsed fixture.
type Map struct {
	Name     string       `yaml:"name" json:"name" jsonschema:"required"`
	Nodes    []NodeSpec   `yaml:"nodes" json:"nodes" jsonschema:"required"`
	Solids   []SolidSpec  `yaml:"solids" json:"solids,omitempty"`
	Entities []EntitySpec `yaml:"entities" json:"entities,omitempty"`
}

// Load reads and validates a fixture file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates fixture YAML.
func Parse(data []byte) (*Map, error) {
	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names, realms and box extents.
func (m *Map) Validate() error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("map name is empty"))
	}
	for i, node := range m.Nodes {
		if _, ok := realmOf(node.Realm); !ok {
			errs = append(errs, fmt.Errorf("node %d: unknown realm %q", i, node.Realm))
		}
	}
	for i, s := range m.Solids {
		if !validBox(s.Mins, s.Maxs) {
			errs = append(errs, fmt.Errorf("solid %d: mins must be below maxs", i))
		}
	}
	for i, e := range m.Entities {
		if e.ClassName == "" {
			errs = append(errs, fmt.Errorf("entity %d: classname is empty", i))
		}
		if !validBox(e.Mins, e.Maxs) {
			errs = append(errs, fmt.Errorf("entity %d: mins must be below maxs", i))
		}
	}
	return errors.Join(errs...)
}

func validBox(mins, maxs [3]float64) bool {
	for axis := 0; axis < 3; axis++ {
		if mins[axis] >= maxs[axis] {
			return false
		}
	}
	return true
}

func realmOf(realm string) (graph.NodeType, bool) {
	switch realm {
	case "", "land":
		return graph.NodeLand, true
	case "air":
		return graph.NodeAir, true
	case "water":
		return graph.NodeWater, true
	default:
		return 0, false
	}
}

// World builds the brush world the fixture describes. Entities keep their
// fixture order, so inline model names are stable between runs.
func (m *Map) World() *world.World {
	w := world.New()
	for _, s := range m.Solids {
		w.AddSolid(graph.Vec3(s.Mins), graph.Vec3(s.Maxs))
	}
	for _, e := range m.Entities {
		state := graph.ToggleAtBottom
		if e.Open {
			state = graph.ToggleAtTop
		}
		w.AddBrush(&world.Brush{
			Class:  e.ClassName,
			Name:   e.TargetName,
			Target: e.Target,
			Flags:  e.SpawnFlags,
			State:  state,
			Mins:   graph.Vec3(e.Mins),
			Maxs:   graph.Vec3(e.Maxs),
		})
	}
	return w
}

// Populate adds every fixture node, with its hint data, to g.
func (m *Map) Populate(g *graph.Graph) error {
	for i, spec := range m.Nodes {
		realm, ok := realmOf(spec.Realm)
		if !ok {
			return fmt.Errorf("node %d: unknown realm %q", i, spec.Realm)
		}
		node, err := g.AddNode(graph.Vec3(spec.Origin), realm)
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if spec.Hint != 0 {
			g.SetHint(node, spec.Hint, spec.Activity, spec.Yaw)
		}
	}
	return nil
}

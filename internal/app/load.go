package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/mapdata"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/telemetry"
)

// Scene is the world a graph is traced through and re-bound against.
type Scene interface {
	graph.Tracer
	graph.EntityFinder
}

// LoadResult reports how a graph was obtained.
type LoadResult struct {
	Graph      *graph.Graph
	Rebuilt    bool
	Report     graph.BuildReport
	Unresolved int
}

// LoadOrBuild returns the cached graph for the map when it is fresh and
// readable, and builds (then saves) a new one otherwise. A failed save is
// logged and does not fail the call, and neither does a graph whose routing
// tables could not be compressed: it still answers through live searches.
func LoadOrBuild(ctx context.Context, store *graph.Store, m *mapdata.Map, w Scene, opts graph.Options, logger telemetry.Logger) (LoadResult, error) {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	opts.MapName = m.Name

	if !store.NeedsRebuild(m.Name) {
		g, err := store.Load(m.Name, w, opts)
		if err == nil {
			unresolved, rerr := g.ResolveLinkEntities(ctx, w)
			if rerr == nil {
				return LoadResult{Graph: g, Unresolved: unresolved}, nil
			}
			logger.Printf("cached graph for %s unusable: %v", m.Name, rerr)
		} else {
			logger.Printf("cached graph for %s unreadable, rebuilding: %v", m.Name, err)
		}
	}

	g := graph.New(w, opts)
	if err := m.Populate(g); err != nil {
		return LoadResult{}, fmt.Errorf("populate %s: %w", m.Name, err)
	}
	report, err := g.Build(ctx)
	switch {
	case errors.Is(err, graph.ErrNodesNeedSorting):
		logger.Printf("graph for %s has no routing tables, using live search: %v", m.Name, err)
	case err != nil:
		return LoadResult{}, fmt.Errorf("build %s: %w", m.Name, err)
	}
	if err := store.Save(g, m.Name); err != nil {
		logger.Printf("failed to save graph for %s: %v", m.Name, err)
	}
	return LoadResult{Graph: g, Rebuilt: true, Report: report}, nil
}

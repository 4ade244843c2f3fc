// Command nodeview shows a map's node graph in the terminal.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/gdamore/tcell/v2"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/app"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/config"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/mapdata"
)

func main() {
	configPath := flag.String("config", config.Path("nodegraph.toml"), "path to the TOML config")
	mapName := flag.String("map", "", "map name to view")
	flag.Parse()

	if *mapName == "" {
		log.Fatalf("-map is required")
	}
	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	store := &graph.Store{
		MapsDir:  settings.Storage.MapsDir,
		GraphDir: settings.Storage.GraphDir,
		MapExt:   settings.Storage.MapExt,
	}
	m, err := mapdata.Load(store.MapPath(*mapName))
	if err != nil {
		log.Fatalf("%v", err)
	}
	result, err := app.LoadOrBuild(context.Background(), store, m, m.World(), settings.GraphOptions(m.Name), nil)
	if err != nil {
		log.Fatalf("%v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("%v", err)
	}
	defer screen.Fini()

	run(screen, newViewer(result.Graph))
}

func run(screen tcell.Screen, v *viewer) {
	v.draw(screen)
	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if v.handle(ev) {
				return
			}
			v.draw(screen)
		case *tcell.EventResize:
			screen.Sync()
			v.draw(screen)
		}
	}
}

// Command nodegraph builds, inspects and serves waypoint graphs for maps.
//
//	nodegraph [build] -map courtyard
//	nodegraph serve -map courtyard
//	nodegraph schema -out schema/map.schema.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/app"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/config"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/mapdata"
)

func main() {
	args := os.Args[1:]
	command := "build"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "build", "serve":
		err = runGraph(command == "serve", args)
	case "schema":
		err = runSchema(args)
	default:
		err = fmt.Errorf("unknown command %q (want build, serve or schema)", command)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func runGraph(serve bool, args []string) error {
	fs := flag.NewFlagSet("nodegraph", flag.ExitOnError)
	configPath := fs.String("config", config.Path("nodegraph.toml"), "path to the TOML config")
	mapName := fs.String("map", "", "map name to load or build")
	listen := fs.String("listen", "", "override the diagnostics listen address")
	fs.Parse(args)

	if *mapName == "" {
		return fmt.Errorf("-map is required")
	}
	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		settings.Server.Listen = *listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, app.Config{
		Settings: settings,
		MapName:  *mapName,
		Serve:    serve,
	})
}

func runSchema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	out := fs.String("out", "schema/map.schema.json", "output path for the generated JSON schema")
	fs.Parse(args)

	if err := mapdata.WriteSchema(*out); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

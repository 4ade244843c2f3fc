// Package app wires configuration, logging, metrics and storage around a
// node graph for the command line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/config"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/mapdata"
	servernet "github.com/UAVXP/SharpLife-Game-sub000/internal/net"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/telemetry"
	"github.com/UAVXP/SharpLife-Game-sub000/logging"
	loggingSinks "github.com/UAVXP/SharpLife-Game-sub000/logging/sinks"
)

// Config selects what Run does.
type Config struct {
	Settings *config.Config
	MapName  string
	Serve    bool
	Stdout   io.Writer
}

// Run loads or builds the graph for one map, prints a summary and, when
// asked, serves diagnostics until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	logger, err := NewLogger(settings.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	telemetryLogger := telemetry.WrapZap(logger)

	router, closeSinks, err := NewRouter(settings.RouterConfig(), logger, stdout)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
		closeSinks()
	}()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewPrometheusMetrics("nodegraph", registry)

	store := &graph.Store{
		MapsDir:   settings.Storage.MapsDir,
		GraphDir:  settings.Storage.GraphDir,
		MapExt:    settings.Storage.MapExt,
		Publisher: router,
	}
	m, err := mapdata.Load(store.MapPath(cfg.MapName))
	if err != nil {
		return err
	}
	w := m.World()

	opts := settings.GraphOptions(m.Name)
	opts.Publisher = router
	counters := &telemetry.Counters{}
	opts.Metrics = telemetry.Fanout(metrics, counters)

	result, err := LoadOrBuild(ctx, store, m, w, opts, telemetryLogger)
	if err != nil {
		return err
	}
	logger.Info("graph ready",
		zap.String("map", m.Name),
		zap.Int("nodes", result.Graph.NodeCount()),
		zap.Int("links", result.Graph.LinkCount()),
		zap.Bool("rebuilt", result.Rebuilt),
		zap.Bool("routing_tables", result.Graph.RoutingComplete()),
		zap.Uint64("traces", counters.Get(telemetry.KeyTraces)),
	)
	printSummary(stdout, result)

	if !cfg.Serve {
		return nil
	}

	handler := servernet.NewHTTPHandler(NewService(result.Graph), servernet.HTTPHandlerConfig{
		Logger:      telemetryLogger,
		Gatherer:    registry,
		EnablePprof: settings.Server.EnablePprof,
		Metrics:     settings.Server.Metrics,
	})
	srv := &http.Server{Addr: settings.Server.Listen, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetryLogger.Printf("diagnostics listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func printSummary(out io.Writer, result LoadResult) {
	g := result.Graph
	source := "loaded"
	if result.Rebuilt {
		source = "built"
	}
	fmt.Fprintf(out, "%s: %s %d nodes, %d links", g.Options().MapName, source, g.NodeCount(), g.LinkCount())
	if result.Rebuilt {
		fmt.Fprintf(out, " (%d inline links rejected in %s)", result.Report.Rejected, result.Report.Duration.Round(time.Millisecond))
	}
	if result.Unresolved > 0 {
		fmt.Fprintf(out, ", %d unresolved link entities", result.Unresolved)
	}
	if g.RoutingComplete() {
		fmt.Fprintf(out, ", %d route bytes\n", g.RouteBytes())
	} else {
		fmt.Fprintln(out, ", no routing tables")
	}
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// NewRouter starts a logging router with the sinks cfg enables. The
// returned func closes files the sinks write to.
func NewRouter(cfg logging.Config, logger *zap.Logger, console io.Writer) (*logging.Router, func(), error) {
	var named []logging.NamedSink
	var files []*os.File
	closeFiles := func() {
		for _, f := range files {
			f.Close()
		}
	}

	if cfg.HasSink("console") {
		named = append(named, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(console, cfg.Console)})
	}
	if cfg.HasSink("zap") && logger != nil {
		named = append(named, logging.NamedSink{Name: "zap", Sink: loggingSinks.NewZap(logger)})
	}
	if cfg.HasSink("json") {
		if cfg.JSON.FilePath == "" {
			return nil, closeFiles, errors.New("json sink enabled without a file path")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.JSON.FilePath), 0o755); err != nil {
			return nil, closeFiles, fmt.Errorf("create json log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closeFiles, fmt.Errorf("open json log: %w", err)
		}
		files = append(files, f)
		named = append(named, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(f, cfg.JSON.FlushInterval)})
	}

	if logger != nil {
		cfg.Fallback = logger.Named("logging")
	}
	router, err := logging.NewRouter(logging.ClockFunc(time.Now), cfg, named)
	if err != nil {
		closeFiles()
		return nil, func() {}, err
	}
	return router, closeFiles, nil
}

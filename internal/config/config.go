// Package config loads the node graph tool's TOML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/logging"
)

// EnvPath names the variable that overrides the config file path.
const EnvPath = "NODEGRAPH_CONFIG"

type Config struct {
	Graph   GraphConfig   `toml:"graph"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
	Server  ServerConfig  `toml:"server"`
}

type GraphConfig struct {
	MaxNodes        int     `toml:"max_nodes"`
	LinksPerNode    int     `toml:"links_per_node"`
	LinkPoolSize    int     `toml:"link_pool_size"`
	MaxPathSize     int     `toml:"max_path_size"`    // 0 disables truncation
	InlineThreshold float64 `toml:"inline_threshold"` // cosine above which a longer link is redundant
	Dangling        string  `toml:"dangling"`         // "keep-open" or "disable"
}

type StorageConfig struct {
	MapsDir  string `toml:"maps_dir"`
	GraphDir string `toml:"graph_dir"`
	MapExt   string `toml:"map_ext"`
}

type LoggingConfig struct {
	Level      string        `toml:"level"`
	Format     string        `toml:"format"` // "json" or "console"
	Sinks      []string      `toml:"sinks"`
	JSONPath   string        `toml:"json_path"`
	BufferSize int           `toml:"buffer_size"`
	FlushEvery time.Duration `toml:"flush_every"`
	Categories []string      `toml:"categories"` // empty passes every category
}

type ServerConfig struct {
	Listen      string `toml:"listen"`
	EnablePprof bool   `toml:"enable_pprof"`
	Metrics     bool   `toml:"metrics"`
}

// Path returns the config path from the environment, or fallback.
func Path(fallback string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return fallback
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaults()
}

func defaults() *Config {
	return &Config{
		Graph: GraphConfig{
			MaxNodes:        graph.DefaultMaxNodes,
			LinksPerNode:    graph.DefaultLinksPerNode,
			LinkPoolSize:    graph.DefaultLinkPoolSize,
			MaxPathSize:     graph.DefaultMaxPathSize,
			InlineThreshold: graph.DefaultInlineThreshold,
			Dangling:        graph.DanglingKeepOpen.String(),
		},
		Storage: StorageConfig{
			MapsDir:  "maps",
			GraphDir: "maps/graphs",
			MapExt:   ".yaml",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Sinks:      []string{"zap"},
			BufferSize: 512,
			FlushEvery: 2 * time.Second,
		},
		Server: ServerConfig{
			Listen:  ":8080",
			Metrics: true,
		},
	}
}

// applyEnv lets deployments adjust a few knobs without editing the file.
func (c *Config) applyEnv() error {
	if raw := os.Getenv("NODEGRAPH_MAX_NODES"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid NODEGRAPH_MAX_NODES=%q: %w", raw, err)
		}
		c.Graph.MaxNodes = value
	}
	if raw := os.Getenv("NODEGRAPH_MAX_PATH_SIZE"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid NODEGRAPH_MAX_PATH_SIZE=%q: %w", raw, err)
		}
		c.Graph.MaxPathSize = value
	}
	if raw := os.Getenv("NODEGRAPH_LISTEN"); raw != "" {
		c.Server.Listen = raw
	}
	if raw := os.Getenv("NODEGRAPH_ENABLE_PPROF"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid NODEGRAPH_ENABLE_PPROF=%q: %w", raw, err)
		}
		c.Server.EnablePprof = value
	}
	if raw := os.Getenv("NODEGRAPH_LOG_LEVEL"); raw != "" {
		c.Logging.Level = raw
	}
	return nil
}

// GraphOptions converts the graph section. Publisher and Metrics are left
// for the caller to wire.
func (c *Config) GraphOptions(mapName string) graph.Options {
	opts := graph.DefaultOptions()
	opts.MapName = mapName
	opts.MaxNodes = c.Graph.MaxNodes
	opts.LinksPerNode = c.Graph.LinksPerNode
	opts.LinkPoolSize = c.Graph.LinkPoolSize
	opts.MaxPathSize = c.Graph.MaxPathSize
	opts.InlineThreshold = c.Graph.InlineThreshold
	opts.Dangling = graph.ParseDanglingPolicy(c.Graph.Dangling)
	return opts
}

// RouterConfig converts the logging section into router settings.
func (c *Config) RouterConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if len(c.Logging.Sinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), c.Logging.Sinks...)
	}
	if c.Logging.BufferSize > 0 {
		cfg.BufferSize = c.Logging.BufferSize
	}
	cfg.MinimumSeverity = logging.ParseSeverity(c.Logging.Level)
	cfg.JSON.FilePath = c.Logging.JSONPath
	cfg.Categories = append([]string(nil), c.Logging.Categories...)
	if c.Logging.FlushEvery > 0 {
		cfg.JSON.FlushInterval = c.Logging.FlushEvery
	}
	return cfg
}

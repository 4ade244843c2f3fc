package net

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/net/proto"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/net/ws"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/telemetry"
)

// GraphService answers graph queries safely from concurrent handlers.
type GraphService interface {
	Summary() proto.Summary
	Snapshot() proto.Snapshot
	Path(start, dest int, hull graph.Hull, caps graph.Capability) ([]int, float64)
	Nearest(point graph.Vec3, types graph.NodeType) int
}

type HTTPHandlerConfig struct {
	Logger      telemetry.Logger
	Gatherer    prometheus.Gatherer
	Metrics     bool
	EnablePprof bool
}

func NewHTTPHandler(svc GraphService, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/graph", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, svc.Summary())
	})

	mux.HandleFunc("/path", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()
		start, err := strconv.Atoi(query.Get("start"))
		if err != nil {
			httpError(w, "invalid start", nethttp.StatusBadRequest)
			return
		}
		dest, err := strconv.Atoi(query.Get("dest"))
		if err != nil {
			httpError(w, "invalid dest", nethttp.StatusBadRequest)
			return
		}
		hull := graph.HullHuman
		if name := query.Get("hull"); name != "" {
			parsed, ok := graph.ParseHull(name)
			if !ok {
				httpError(w, "unknown hull", nethttp.StatusBadRequest)
				return
			}
			hull = parsed
		}
		var caps graph.Capability
		if raw := query.Get("caps"); raw != "" {
			value, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				httpError(w, "invalid caps", nethttp.StatusBadRequest)
				return
			}
			caps = graph.Capability(value)
		}

		path, length := svc.Path(start, dest, hull, caps)
		if path == nil {
			path = []int{}
		}
		writeJSON(w, proto.PathResult{Ver: proto.Version, Type: proto.TypePath, Path: path, Length: length})
	})

	mux.HandleFunc("/nearest", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()
		var point graph.Vec3
		for axis, key := range []string{"x", "y", "z"} {
			value, err := strconv.ParseFloat(query.Get(key), 64)
			if err != nil {
				httpError(w, "invalid "+key, nethttp.StatusBadRequest)
				return
			}
			point[axis] = value
		}
		types := graph.NodeRealm
		if raw := query.Get("types"); raw != "" {
			value, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				httpError(w, "invalid types", nethttp.StatusBadRequest)
				return
			}
			types = graph.NodeType(value)
		}
		node := svc.Nearest(point, types)
		writeJSON(w, proto.NearestResult{Ver: proto.Version, Type: proto.TypeNearest, Node: node})
	})

	if cfg.Metrics {
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	wsHandler := ws.NewHandler(svc, ws.HandlerConfig{Logger: logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	return mux
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}

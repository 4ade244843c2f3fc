package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/UAVXP/SharpLife-Game-sub000/logging"
	"github.com/UAVXP/SharpLife-Game-sub000/logging/sinks"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRouterFansOutAndFilters(t *testing.T) {
	memory := sinks.NewMemorySink()
	var buf bytes.Buffer
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	cfg.Fields = map[string]any{"build": "test"}

	router, err := logging.NewRouter(logging.ClockFunc(func() time.Time { return fixedTime }), cfg, []logging.NamedSink{
		{Name: "memory", Sink: memory},
		{Name: "json", Sink: sinks.NewJSON(&buf, 0)},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	ctx := context.Background()
	router.Publish(ctx, logging.Event{Type: "nodegraph.debug", Severity: logging.SeverityDebug})
	router.Publish(ctx, logging.Event{Type: "", Severity: logging.SeverityError})
	router.Publish(ctx, logging.Event{Type: "nodegraph.graph_built", Map: "c1a0", Severity: logging.SeverityInfo})
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected only the info event to pass, got %d", len(events))
	}
	event := events[0]
	if !event.Time.Equal(fixedTime) || event.Extra["build"] != "test" {
		t.Fatalf("expected clock time and config fields, got %+v", event)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var wire map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &wire); err != nil {
		t.Fatalf("decode json sink output %q: %v", buf.String(), err)
	}
	if wire["type"] != "nodegraph.graph_built" || wire["map"] != "c1a0" || wire["severity"] != "info" {
		t.Fatalf("unexpected json line %v", wire)
	}

	router.Publish(ctx, logging.Event{Type: "late", Severity: logging.SeverityError})
	if len(memory.Events()) != 1 {
		t.Fatalf("expected a closed router to ignore events")
	}
}

func TestRouterCategoryFilterAndStats(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityDebug
	cfg.Categories = []string{logging.CategoryBuild, logging.CategoryStorage}
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}, {Name: "missing"}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	if router.Sink("memory") != logging.Sink(memory) || router.Sink("missing") != nil {
		t.Fatalf("expected only the non-nil sink to be registered")
	}

	ctx := context.Background()
	for _, category := range []string{logging.CategoryBuild, logging.CategoryQuery, logging.CategoryStorage, logging.CategoryBuild} {
		router.Publish(ctx, logging.Event{Type: "nodegraph.test", Category: category, Severity: logging.SeverityInfo})
	}
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := len(memory.Events()); got != 3 {
		t.Fatalf("expected 3 events past the category filter, got %d", got)
	}
	stats := router.Stats()
	if stats.EventsTotal != 3 || stats.ByCategory[logging.CategoryBuild] != 2 || stats.ByCategory[logging.CategoryStorage] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, ok := stats.ByCategory[logging.CategoryQuery]; ok {
		t.Fatalf("expected filtered categories to stay uncounted, got %+v", stats.ByCategory)
	}
}

func TestWithFieldsKeepsEventKeys(t *testing.T) {
	memory := sinks.NewMemorySink()
	pub := logging.WithFields(memory, map[string]any{"map": "outer", "tool": "nodegraph"})
	pub.Publish(context.Background(), logging.Event{Type: "x", Extra: map[string]any{"map": "inner"}})

	got := memory.Events()
	if len(got) != 1 || got[0].Extra["map"] != "inner" || got[0].Extra["tool"] != "nodegraph" {
		t.Fatalf("unexpected merged extras %+v", got)
	}
}

func TestZapSinkMapsSeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := sinks.NewZap(zap.New(core))

	events := []logging.Event{
		{Type: "a", Severity: logging.SeverityDebug, Category: "build"},
		{Type: "b", Severity: logging.SeverityWarn, Map: "c1a0", Subject: logging.SubjectRef{ID: "7", Kind: logging.SubjectNode}},
		{Type: "c", Severity: logging.SeverityError, Payload: map[string]int{"links": 3}},
	}
	for _, event := range events {
		if err := sink.Write(event); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	entries := logs.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range entries {
		if entry.Level != wantLevels[i] || entry.Message != string(events[i].Type) {
			t.Fatalf("entry %d: got %s %q", i, entry.Level, entry.Message)
		}
	}
	if subject := entries[1].ContextMap()["subject"]; subject != "node:7" {
		t.Fatalf("expected subject field node:7, got %v", subject)
	}
}

func TestConsoleSinkFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := sinks.NewConsoleSink(&buf, logging.ConsoleConfig{ShowExtra: true})
	err := sink.Write(logging.Event{
		Type:     "nodegraph.graph_load_failed",
		Time:     fixedTime,
		Map:      "c1a0",
		Severity: logging.SeverityWarn,
		Extra:    map[string]any{"path": "maps/graphs/c1a0.nod"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"nodegraph.graph_load_failed", "c1a0", "maps/graphs/c1a0.nod"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

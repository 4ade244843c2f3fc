package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/UAVXP/SharpLife-Game-sub000/logging"
)

type ConsoleSink struct {
	logger    *log.Logger
	showExtra bool
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags), showExtra: cfg.ShowExtra}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	mapName := ""
	if event.Map != "" {
		mapName = " map=" + event.Map
	}
	extra := ""
	if s.showExtra {
		extra = formatExtra(event.Extra)
	}
	s.logger.Printf("[%s] severity=%s%s subject=%s%s%s", event.Type, event.Severity, mapName, formatSubject(event.Subject), formatPayload(event.Payload), extra)
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func formatSubject(ref logging.SubjectRef) string {
	if ref.ID == "" {
		if ref.Kind == "" {
			return string(logging.SubjectUnknown)
		}
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return fmt.Sprintf(" payload=%s", data)
}

func formatExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, extra[k]))
	}
	return " " + strings.Join(parts, " ")
}

// Package proto defines the diagnostics wire messages.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeSnapshot = "snapshot"
	typeError    = "error"
)

// Client request type identifiers.
const (
	TypePath    = "path"
	TypeNearest = "nearest"
	TypeSummary = "summary"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeSnapshot = typeSnapshot
	TypeError    = typeError
)

// Summary describes a loaded graph.
type Summary struct {
	Map             string `json:"map" msgpack:"map"`
	Nodes           int    `json:"nodes" msgpack:"nodes"`
	Links           int    `json:"links" msgpack:"links"`
	RoutingComplete bool   `json:"routingComplete" msgpack:"routingComplete"`
	RouteBytes      int    `json:"routeBytes" msgpack:"routeBytes"`
	PointersSet     bool   `json:"pointersSet" msgpack:"pointersSet"`
}

// NodeView is one node in a snapshot.
type NodeView struct {
	Origin [3]float64 `json:"origin" msgpack:"o"`
	Info   int32      `json:"info" msgpack:"i"`
	Hint   int32      `json:"hint,omitempty" msgpack:"h,omitempty"`
	Region [3]uint8   `json:"region" msgpack:"r"`
}

// LinkView is one directed link in a snapshot.
type LinkView struct {
	Src    int32   `json:"src" msgpack:"s"`
	Dest   int32   `json:"dest" msgpack:"d"`
	Weight float64 `json:"weight" msgpack:"w"`
	Info   int32   `json:"info" msgpack:"i"`
	Model  string  `json:"model,omitempty" msgpack:"m,omitempty"`
}

// Snapshot is the full graph sent to a websocket client on connect.
type Snapshot struct {
	Ver     int        `json:"ver" msgpack:"ver"`
	Type    string     `json:"type" msgpack:"type"`
	Summary Summary    `json:"summary" msgpack:"summary"`
	Nodes   []NodeView `json:"nodes" msgpack:"nodes"`
	Links   []LinkView `json:"links" msgpack:"links"`
}

// EncodeSnapshot renders the snapshot as a msgpack frame.
func EncodeSnapshot(snapshot Snapshot) ([]byte, error) {
	snapshot.Ver = Version
	snapshot.Type = typeSnapshot
	data, err := msgpack.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a msgpack snapshot frame.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}

// Request is a client query. Fields not used by Type are ignored.
type Request struct {
	Ver   int        `json:"ver,omitempty"`
	Type  string     `json:"type"`
	Seq   uint64     `json:"seq,omitempty"`
	Start int        `json:"start"`
	Dest  int        `json:"dest"`
	Hull  string     `json:"hull,omitempty"`
	Caps  int32      `json:"caps,omitempty"`
	Point [3]float64 `json:"point"`
	Types int32      `json:"types,omitempty"`
}

// PathResult answers a path query. Path is empty when no route exists.
type PathResult struct {
	Ver    int     `json:"ver"`
	Type   string  `json:"type"`
	Seq    uint64  `json:"seq,omitempty"`
	Path   []int   `json:"path"`
	Length float64 `json:"length"`
}

// NearestResult answers a nearest-node query. Node is -1 when nothing was visible.
type NearestResult struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`
	Node int    `json:"node"`
}

// SummaryResult wraps a summary for websocket clients.
type SummaryResult struct {
	Ver     int     `json:"ver"`
	Type    string  `json:"type"`
	Seq     uint64  `json:"seq,omitempty"`
	Summary Summary `json:"summary"`
}

// ErrorResult reports a rejected request.
type ErrorResult struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Reason string `json:"reason"`
}

// DecodeRequest parses a JSON request frame.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if req.Type == "" {
		return Request{}, fmt.Errorf("decode request: missing type")
	}
	return req, nil
}

// NewError builds an error response for seq.
func NewError(seq uint64, reason string) ErrorResult {
	return ErrorResult{Ver: Version, Type: typeError, Seq: seq, Reason: reason}
}

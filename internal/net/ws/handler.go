package ws

import (
	"encoding/json"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/net/proto"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/telemetry"
)

const writeWait = 10 * time.Second

// Service is the slice of the graph service a session uses.
type Service interface {
	Summary() proto.Summary
	Snapshot() proto.Snapshot
	Path(start, dest int, hull graph.Hull, caps graph.Capability) ([]int, float64)
	Nearest(point graph.Vec3, types graph.NodeType) int
}

type HandlerConfig struct {
	Logger telemetry.Logger
}

type Handler struct {
	svc      Service
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc Service, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		svc:      svc,
		logger:   logger,
		upgrader: upgrader,
	}
}

// session serialises writes to one connection.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

func (s *session) writeJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, data)
}

// Handle upgrades the request, sends a binary snapshot of the graph and
// then answers JSON queries until the client goes away.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()
	sess := &session{conn: conn}

	data, err := proto.EncodeSnapshot(h.svc.Snapshot())
	if err != nil {
		h.logger.Printf("failed to encode snapshot for %s: %v", r.RemoteAddr, err)
		message := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "snapshot unavailable")
		conn.WriteMessage(websocket.CloseMessage, message)
		return
	}
	if err := sess.write(websocket.BinaryMessage, data); err != nil {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		req, err := proto.DecodeRequest(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", r.RemoteAddr, err)
			if err := sess.writeJSON(proto.NewError(0, "malformed request")); err != nil {
				return
			}
			continue
		}

		if err := sess.writeJSON(h.answer(req)); err != nil {
			return
		}
	}
}

func (h *Handler) answer(req proto.Request) any {
	switch req.Type {
	case proto.TypePath:
		hull := graph.HullHuman
		if req.Hull != "" {
			parsed, ok := graph.ParseHull(req.Hull)
			if !ok {
				return proto.NewError(req.Seq, "unknown hull")
			}
			hull = parsed
		}
		path, length := h.svc.Path(req.Start, req.Dest, hull, graph.Capability(req.Caps))
		if path == nil {
			path = []int{}
		}
		return proto.PathResult{Ver: proto.Version, Type: proto.TypePath, Seq: req.Seq, Path: path, Length: length}
	case proto.TypeNearest:
		types := graph.NodeType(req.Types)
		if types == 0 {
			types = graph.NodeRealm
		}
		node := h.svc.Nearest(graph.Vec3(req.Point), types)
		return proto.NearestResult{Ver: proto.Version, Type: proto.TypeNearest, Seq: req.Seq, Node: node}
	case proto.TypeSummary:
		return proto.SummaryResult{Ver: proto.Version, Type: proto.TypeSummary, Seq: req.Seq, Summary: h.svc.Summary()}
	default:
		h.logger.Printf("unknown message type %q", req.Type)
		return proto.NewError(req.Seq, "unknown type")
	}
}

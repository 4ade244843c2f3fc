package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/UAVXP/SharpLife-Game-sub000/internal/graph"
	"github.com/UAVXP/SharpLife-Game-sub000/internal/net/proto"
)

type fakeService struct {
	lastHull graph.Hull
	lastCaps graph.Capability
}

func (f *fakeService) Summary() proto.Summary {
	return proto.Summary{Map: "square", Nodes: 2, Links: 2, RoutingComplete: true}
}

func (f *fakeService) Snapshot() proto.Snapshot {
	return proto.Snapshot{
		Summary: f.Summary(),
		Nodes: []proto.NodeView{
			{Origin: [3]float64{0, 0, 0}, Info: int32(graph.NodeLand)},
			{Origin: [3]float64{100, 0, 0}, Info: int32(graph.NodeLand)},
		},
		Links: []proto.LinkView{
			{Src: 0, Dest: 1, Weight: 100, Info: int32(graph.LinkAllHulls)},
			{Src: 1, Dest: 0, Weight: 100, Info: int32(graph.LinkAllHulls), Model: "*1"},
		},
	}
}

func (f *fakeService) Path(start, dest int, hull graph.Hull, caps graph.Capability) ([]int, float64) {
	f.lastHull, f.lastCaps = hull, caps
	if start == dest {
		return []int{start, dest}, 0
	}
	if start > 1 || dest > 1 {
		return nil, 0
	}
	return []int{start, dest}, 100
}

func (f *fakeService) Nearest(point graph.Vec3, types graph.NodeType) int {
	if point[0] > 50 {
		return 1
	}
	return 0
}

func dial(t *testing.T, svc Service) *websocket.Conn {
	t.Helper()
	handler := NewHandler(svc, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func TestHandleSendsBinarySnapshotFirst(t *testing.T) {
	conn := dial(t, &fakeService{})

	kind, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected a binary snapshot frame, got type %d", kind)
	}
	snapshot, err := proto.DecodeSnapshot(payload)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Type != proto.TypeSnapshot || snapshot.Ver != proto.Version {
		t.Fatalf("unexpected snapshot header: %s v%d", snapshot.Type, snapshot.Ver)
	}
	if len(snapshot.Nodes) != 2 || len(snapshot.Links) != 2 || snapshot.Links[1].Model != "*1" {
		t.Fatalf("unexpected snapshot body: %+v", snapshot)
	}
}

func TestHandleAnswersQueries(t *testing.T) {
	svc := &fakeService{}
	conn := dial(t, svc)
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}

	request := func(t *testing.T, body string) map[string]any {
		t.Helper()
		if err := conn.WriteMessage(websocket.TextMessage, []byte(body)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var out map[string]any
		if err := json.Unmarshal(payload, &out); err != nil {
			t.Fatalf("decode %s: %v", payload, err)
		}
		return out
	}

	t.Run("path", func(t *testing.T) {
		out := request(t, `{"type":"path","seq":7,"start":0,"dest":1,"hull":"large","caps":512}`)
		if out["type"] != proto.TypePath || out["seq"].(float64) != 7 || out["length"].(float64) != 100 {
			t.Fatalf("unexpected path response: %v", out)
		}
		if svc.lastHull != graph.HullLarge || svc.lastCaps != graph.CapOpenDoors {
			t.Fatalf("request parameters not forwarded: hull %s caps %d", svc.lastHull, svc.lastCaps)
		}
	})

	t.Run("no route", func(t *testing.T) {
		out := request(t, `{"type":"path","start":0,"dest":5}`)
		if path, ok := out["path"].([]any); !ok || len(path) != 0 {
			t.Fatalf("expected an empty path array, got %v", out["path"])
		}
	})

	t.Run("nearest", func(t *testing.T) {
		out := request(t, `{"type":"nearest","point":[90,0,0]}`)
		if out["type"] != proto.TypeNearest || out["node"].(float64) != 1 {
			t.Fatalf("unexpected nearest response: %v", out)
		}
	})

	t.Run("summary", func(t *testing.T) {
		out := request(t, `{"type":"summary"}`)
		summary, ok := out["summary"].(map[string]any)
		if !ok || summary["map"] != "square" {
			t.Fatalf("unexpected summary response: %v", out)
		}
	})

	t.Run("errors", func(t *testing.T) {
		for _, body := range []string{`{`, `{"type":"teleport"}`, `{"type":"path","hull":"giant"}`} {
			out := request(t, body)
			if out["type"] != proto.TypeError {
				t.Fatalf("expected an error response for %s, got %v", body, out)
			}
		}
	})
}

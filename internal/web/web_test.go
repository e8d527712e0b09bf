package web

import (
	"context"
	"image/color"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/render"
	"github.com/Versifine/critter/internal/scene"
	"github.com/Versifine/critter/internal/sim"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-gl/mathgl/mgl64"
)

type inbound struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func setup(t *testing.T) (*Hub, *scene.Scene, chan sim.KeyEvent, *httptest.Server) {
	t.Helper()
	s := scene.New()
	m := scene.NewMesh("c1", scene.Geometry{Kind: scene.GeometryBox, Size: mgl64.Vec3{2, 2, 2}}, color.RGBA{0x99, 0xee, 0xff, 0xff})
	m.SetPose(mgl64.Vec3{1, 2, 1}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	if err := s.Add(m); err != nil {
		t.Fatalf("Add: %v", err)
	}

	events := make(chan sim.KeyEvent, 8)
	status := func() render.Status {
		return render.Status{Playing: true, Held: []input.Action{input.ActionUp}, Frame: 42}
	}
	hub := NewHub(s, status, events, true)
	srv := httptest.NewServer(NewServer("", hub).Handler())
	t.Cleanup(srv.Close)
	return hub, s, events, srv
}

func dial(t *testing.T, srv *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	var hello inbound
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != MessageSystem || hello.Data["playing"] != true || hello.Data["client_id"] == nil {
		t.Fatalf("hello = %+v", hello)
	}
	return conn, ctx
}

// TestRenderBroadcastsFrame 测试渲染时向浏览器广播帧
func TestRenderBroadcastsFrame(t *testing.T) {
	hub, _, _, srv := setup(t)
	conn, ctx := dial(t, srv)

	if err := hub.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var msg struct {
		Type string `json:"type"`
		Data Frame  `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if msg.Type != MessageSync || msg.Data.Frame != 42 || !msg.Data.Playing {
		t.Fatalf("frame = %+v", msg)
	}
	if len(msg.Data.Held) != 1 || msg.Data.Held[0] != "up" {
		t.Fatalf("held = %v", msg.Data.Held)
	}
	if len(msg.Data.Meshes) != 1 {
		t.Fatalf("meshes = %+v", msg.Data.Meshes)
	}
	mesh := msg.Data.Meshes[0]
	if mesh.ID != "c1" || mesh.Kind != "box" || mesh.Color != "#99eeff" || mesh.Position != [3]float64{1, 2, 1} {
		t.Fatalf("mesh = %+v", mesh)
	}
	if math.Abs(mesh.Yaw-math.Pi/2) > 1e-9 {
		t.Fatalf("yaw = %v", mesh.Yaw)
	}
}

// TestClientKeysReachLoop 测试浏览器按键进入事件通道
func TestClientKeysReachLoop(t *testing.T) {
	_, _, events, srv := setup(t)
	conn, ctx := dial(t, srv)

	msgs := []ClientMessage{
		{Type: MessageKeyDown, Code: int(input.CodeW)},
		{Type: "chat", Code: 1},
		{Type: MessageKeyUp, Code: int(input.CodeW)},
	}
	for _, m := range msgs {
		if err := wsjson.Write(ctx, conn, m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	want := []sim.KeyEvent{{Code: input.CodeW, Down: true}, {Code: input.CodeW, Down: false}}
	for i, w := range want {
		select {
		case got := <-events:
			if got != w {
				t.Fatalf("event %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d not received", i)
		}
	}
}

func TestOnPauseBroadcastsSystem(t *testing.T) {
	hub, _, _, srv := setup(t)
	conn, ctx := dial(t, srv)

	hub.OnPause(false)
	var msg inbound
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != MessageSystem || msg.Data["playing"] != false {
		t.Fatalf("system message = %+v", msg)
	}
	if hub.Clients() != 1 {
		t.Fatalf("Clients() = %d, want 1", hub.Clients())
	}
}

func TestRenderWithoutClients(t *testing.T) {
	hub := NewHub(scene.New(), nil, make(chan sim.KeyEvent), false)
	if err := hub.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if f := hub.frame(); !f.Playing || len(f.Meshes) != 0 {
		t.Fatalf("frame = %+v", f)
	}
}

func TestViewerPageServed(t *testing.T) {
	_, _, _, srv := setup(t)
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "<canvas") {
		t.Fatalf("GET / = %d %q", resp.StatusCode, body)
	}
}

func TestServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer("127.0.0.1:0", NewHub(scene.New(), nil, make(chan sim.KeyEvent), false))
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Start() did not return after cancel")
	}
}

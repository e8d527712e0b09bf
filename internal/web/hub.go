// Package web serves the simulation to browsers: frames go out over a
// websocket as JSON and key events come back the same way.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/render"
	"github.com/Versifine/critter/internal/scene"
	"github.com/Versifine/critter/internal/sim"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const (
	MessageSync    = "sync"
	MessageSystem  = "system"
	MessageKeyDown = "keydown"
	MessageKeyUp   = "keyup"

	sendQueue    = 8
	writeTimeout = 5 * time.Second
)

// Message is the outbound envelope.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ClientMessage is what browsers send.
type ClientMessage struct {
	Type string `json:"type"`
	Code int    `json:"code"`
}

type MeshFrame struct {
	ID       string     `json:"id"`
	Kind     string     `json:"kind"`
	Size     [3]float64 `json:"size"`
	Color    string     `json:"color"`
	Position [3]float64 `json:"position"`
	Yaw      float64    `json:"yaw"`
}

type Frame struct {
	Frame   uint64      `json:"frame"`
	Playing bool        `json:"playing"`
	Held    []string    `json:"held"`
	Meshes  []MeshFrame `json:"meshes"`
}

type SystemData struct {
	Playing  bool   `json:"playing"`
	ClientID string `json:"client_id,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// Hub is a sim.Renderer that broadcasts every frame to connected
// browsers, and an http.Handler for the /ws endpoint.
type Hub struct {
	src      render.SceneSource
	status   render.StatusFunc
	events   chan<- sim.KeyEvent
	insecure bool

	playing atomic.Bool

	mu      sync.Mutex
	clients map[string]*client
}

// NewHub sends inbound key events to events. insecure skips the websocket
// origin check.
func NewHub(src render.SceneSource, status render.StatusFunc, events chan<- sim.KeyEvent, insecure bool) *Hub {
	h := &Hub{
		src:      src,
		status:   status,
		events:   events,
		insecure: insecure,
		clients:  make(map[string]*client),
	}
	h.playing.Store(true)
	return h
}

// Render never fails on network trouble; a client that can't keep up
// misses frames.
func (h *Hub) Render() error {
	h.broadcast(Message{Type: MessageSync, Data: h.frame()})
	return nil
}

// OnPause tells every client about a pause toggle.
func (h *Hub) OnPause(playing bool) {
	h.playing.Store(playing)
	h.broadcast(Message{Type: MessageSystem, Data: SystemData{Playing: playing}})
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) frame() Frame {
	snap := h.src.Snapshot()
	f := Frame{
		Playing: h.playing.Load(),
		Meshes:  make([]MeshFrame, 0, len(snap.Meshes)),
	}
	if h.status != nil {
		st := h.status()
		f.Frame = st.Frame
		f.Playing = st.Playing
		f.Held = make([]string, 0, len(st.Held))
		for _, a := range st.Held {
			f.Held = append(f.Held, string(a))
		}
	}
	for _, m := range snap.Meshes {
		f.Meshes = append(f.Meshes, meshFrame(m))
	}
	return f
}

func meshFrame(m scene.MeshState) MeshFrame {
	return MeshFrame{
		ID:       m.ID,
		Kind:     string(m.Geometry.Kind),
		Size:     m.Geometry.Size,
		Color:    fmt.Sprintf("#%02x%02x%02x", m.Color.R, m.Color.G, m.Color.B),
		Position: m.Position,
		Yaw:      m.Yaw(),
	}
}

func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Debug("Dropped message for slow client", "client", c.id, "type", msg.Type)
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		close(c.send)
		delete(h.clients, id)
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.insecure,
	})
	if err != nil {
		slog.Error("Failed to accept websocket", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan Message, sendQueue)}
	c.send <- Message{Type: MessageSystem, Data: SystemData{Playing: h.playing.Load(), ClientID: c.id}}
	h.add(c)
	defer h.remove(c.id)
	slog.Info("Viewer connected", "client", c.id, "remote", r.RemoteAddr)

	go func() {
		if err := h.writeLoop(ctx, c); err != nil {
			slog.Debug("Viewer write failed", "client", c.id, "error", err)
		}
		cancel()
	}()

	err = h.readLoop(ctx, c)
	switch {
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway,
		errors.Is(err, context.Canceled):
		slog.Info("Viewer disconnected", "client", c.id)
	default:
		slog.Warn("Viewer connection failed", "client", c.id, "error", err)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) writeLoop(ctx context.Context, c *client) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-c.send:
			if !ok {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, msg)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, c *client) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return err
		}
		var ev sim.KeyEvent
		switch msg.Type {
		case MessageKeyDown:
			ev = sim.KeyEvent{Code: input.Code(msg.Code), Down: true}
		case MessageKeyUp:
			ev = sim.KeyEvent{Code: input.Code(msg.Code), Down: false}
		default:
			slog.Debug("Unknown viewer message", "client", c.id, "type", msg.Type)
			continue
		}
		select {
		case h.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"
)

//go:embed viewer
var viewerFS embed.FS

const shutdownTimeout = 3 * time.Second

type Server struct {
	listenAddr string
	hub        *Hub
}

func NewServer(listenAddr string, hub *Hub) *Server {
	return &Server{listenAddr: listenAddr, hub: hub}
}

// Handler serves the viewer page at / and the websocket at /ws.
func (s *Server) Handler() http.Handler {
	static, err := fs.Sub(viewerFS, "viewer")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.Handle("/", http.FileServer(http.FS(static)))
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	slog.Info("Starting web viewer", "listenAddr", s.listenAddr)
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down web viewer")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		slog.Info("Web viewer stopped")
		return nil
	}
	return err
}

package opsstream

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// DashboardServer upgrades incoming HTTP connections on /ws to WebSocket
// connections managed by a Hub. Kept separate from Hub itself so Hub stays
// usable from any transport wiring (e.g. under an existing Echo mux) a
// caller prefers.
type DashboardServer struct {
	hub    *Hub
	server *http.Server
}

// NewDashboardServer builds a DashboardServer fronting hub.
func NewDashboardServer(hub *Hub) *DashboardServer {
	mux := http.NewServeMux()
	s := &DashboardServer{hub: hub}
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	s.server = &http.Server{Handler: mux}
	return s
}

func (s *DashboardServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	s.hub.HandleConnection(r.Context(), conn)
}

// Start runs the HTTP server at addr until ctx is cancelled.
func (s *DashboardServer) Start(ctx context.Context, addr string) error {
	s.server.Addr = addr
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

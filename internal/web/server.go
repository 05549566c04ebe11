// Package web provides an HTTP status server for the grinder daemon, with a
// websocket feed that pushes the status on every state change.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sweeney/grinder/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	hub        *Hub
	logger     *slog.Logger
}

var upgrader = websocket.Upgrader{
	// Status is read-only; any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{tracker: tracker, hub: NewHub(logger), logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown disconnects websocket clients and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Publish pushes the current status to every websocket client.
func (s *Server) Publish() {
	s.hub.Broadcast(status.FormatJSON(s.tracker.Snapshot()))
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return s.hub.Len()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.logger.Warn("render status page", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	c := newClient(conn, r.RemoteAddr)
	// The current status is queued before registration so it is always the
	// first frame a client sees.
	c.send <- status.FormatJSON(s.tracker.Snapshot())
	s.hub.add(c)

	// Pumps outlive the request; the hub and socket errors end them.
	go c.writePump(s.logger)
	go c.readPump(s.hub, s.logger)
}

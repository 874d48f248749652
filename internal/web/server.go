// Package web provides an HTTP status server for the sun-timer daemon.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sweeney/sun-timer/internal/astro"
	"github.com/sweeney/sun-timer/internal/status"
)

// EventsFunc returns today's catalog event times.
type EventsFunc func() []astro.Entry

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	events     EventsFunc
}

// New creates a Server that reads state from the given tracker. events
// and metrics may be nil, in which case their routes answer 404.
func New(addr string, tracker *status.Tracker, events EventsFunc, metrics http.Handler) *Server {
	s := &Server{tracker: tracker, events: events}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if events != nil {
		mux.HandleFunc("/events.json", s.handleEvents)
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	var entries []astro.Entry
	if s.events != nil {
		entries = s.events()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, entries)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// EventsJSON is the body of /events.json.
type EventsJSON struct {
	Events []astro.Entry `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	data, err := json.MarshalIndent(EventsJSON{Events: s.events()}, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

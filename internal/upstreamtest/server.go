// Package upstreamtest is an in-process stand-in for the College Mate backend
// that counts calls per route.
package upstreamtest

import (
	"collegemate/backend/internal/apiclient"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const Prefix = "/api/v1"

// Server routes "METHOD /path" (path without the /api/v1 prefix) to handlers.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
}

// New starts a server that is closed with the test.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		routes: make(map[string]http.HandlerFunc),
		calls:  make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + strings.TrimPrefix(r.URL.Path, Prefix)

	s.mu.Lock()
	s.calls[route]++
	h, ok := s.routes[route]
	s.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "route not found: " + route})
		return
	}
	h(w, r)
}

// Handle registers a handler for method and path, e.g. ("GET", "/my-complaints").
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	s.routes[method+" "+path] = h
	s.mu.Unlock()
}

// Reply registers a handler that answers with fn's status and JSON body.
func (s *Server) Reply(method, path string, fn func(r *http.Request) (int, any)) {
	s.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		status, body := fn(r)
		WriteJSON(w, status, body)
	})
}

// Calls returns how many requests reached method and path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// BaseURL is the value to hand to apiclient.New.
func (s *Server) BaseURL() string {
	return s.URL + Prefix
}

// Client returns an apiclient bound to this server.
func (s *Server) Client(t testing.TB, opts ...apiclient.Option) *apiclient.Client {
	t.Helper()
	c, err := apiclient.New(s.BaseURL(), opts...)
	if err != nil {
		t.Fatalf("upstreamtest: client: %v", err)
	}
	return c
}

// Envelope wraps data the way the backend does on most routes.
func Envelope(data any) map[string]any {
	return map[string]any{"success": true, "data": data}
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

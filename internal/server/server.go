package server

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"connwatch/internal/history"
	"connwatch/internal/metrics"
	"connwatch/internal/monitor"
	"connwatch/internal/peers"
)

//go:embed static/*
var embeddedStatic embed.FS

// maxTimelineMinutes caps the requested timeline range at 30 days.
const maxTimelineMinutes = 30 * 24 * 60

// Server wraps HTTP serving of the API, the live websocket and the
// dashboard assets.
type Server struct {
	httpServer   *http.Server
	source       monitor.Source
	staticFS     fs.FS
	node         peers.Node
	peerService  *peers.Service
	historyLimit int
}

// New creates a configured HTTP server for the watcher.
func New(addr string, node peers.Node, source monitor.Source, peerService *peers.Service) *Server {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic("static assets missing: " + err.Error())
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer:   &http.Server{Addr: addr, Handler: mux},
		source:       source,
		staticFS:     staticFS,
		node:         node,
		peerService:  peerService,
		historyLimit: 200,
	}
	s.registerRoutes(mux)
	return s
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	fileServer := http.FileServer(http.FS(s.staticFS))

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		data, err := fs.ReadFile(s.staticFS, "index.html")
		if err != nil {
			http.Error(w, "index missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	}))
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		icon, err := fs.ReadFile(s.staticFS, "favicon.ico")
		if err != nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "image/x-icon")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(icon)
	}))
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/uptime", s.handleUptime)
	mux.HandleFunc("/api/timeline", s.handleTimeline)
	mux.HandleFunc("/api/node/state", s.handleNodeState)
	mux.HandleFunc("/api/cluster", s.handleCluster)
	mux.HandleFunc("/ws/state", s.handleLiveWS)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state := s.source.Current()
	payload := map[string]any{
		"state":        state,
		"label":        state.Label(),
		"generated_at": time.Now().UTC(),
	}
	if latest, ok := s.source.Latest(); ok {
		payload["latest"] = latest
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, s.historyLimit)
	transitions := s.source.History()
	if len(transitions) > limit {
		transitions = transitions[len(transitions)-limit:]
	}
	writeJSON(w, http.StatusOK, transitions)
}

func (s *Server) handleUptime(w http.ResponseWriter, _ *http.Request) {
	summary := metrics.ComputeAvailability(s.source.History(), time.Now().UTC())
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	end := time.Now().UTC()
	minutes := parsePositive(r, "minutes", 30, maxTimelineMinutes)
	buckets := parsePositive(r, "buckets", history.DefaultBuckets, history.MaxBuckets)
	start := end.Add(-time.Duration(minutes) * time.Minute)

	timeline := history.BuildTimeline(s.source.HistorySince(time.Time{}), start, end, buckets)
	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": end,
		"range_start":  start,
		"range_end":    end,
		"buckets":      timeline,
	})
}

func (s *Server) handleNodeState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, peers.LocalState(s.node, s.source))
}

func (s *Server) handleCluster(w http.ResponseWriter, _ *http.Request) {
	if s.peerService == nil {
		local := peers.LocalState(s.node, s.source)
		writeJSON(w, http.StatusOK, peers.ClusterSnapshot{
			GeneratedAt: time.Now().UTC(),
			Nodes: []peers.PeerSnapshot{{
				Node:         local.Node,
				State:        local.State,
				Label:        local.Label,
				Latest:       local.Latest,
				Availability: local.Availability,
				UpdatedAt:    local.GeneratedAt,
				Source:       "local",
			}},
		})
		return
	}
	writeJSON(w, http.StatusOK, s.peerService.Snapshot())
}

func parseLimit(r *http.Request, fallback int) int {
	if fallback <= 0 {
		return fallback
	}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > fallback {
		return fallback
	}
	return value
}

func parsePositive(r *http.Request, key string, fallback, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

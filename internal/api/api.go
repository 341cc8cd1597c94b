// Package api exposes the engine over JSON HTTP endpoints: the route
// observer, transport controls, the mixer and its faders, and status.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/satindergrewal/soundstage/internal/clock"
	"github.com/satindergrewal/soundstage/internal/engine"
	"github.com/satindergrewal/soundstage/internal/fader"
	"github.com/satindergrewal/soundstage/internal/stream"
)

// Options configures New. Engine is required; the stream fields are
// optional and their endpoints are omitted when nil.
type Options struct {
	Engine      *engine.Engine
	Broadcaster *stream.Broadcaster
	Stream      http.Handler // GET /stream
	Offer       http.Handler // POST /offer

	Master fader.Config
	Music  fader.Config
	Sfx    fader.Config

	Clock  clock.Clock
	Logger *slog.Logger
}

// Server routes API requests to the engine.
type Server struct {
	engine      *engine.Engine
	broadcaster *stream.Broadcaster
	faders      map[string]*fader.Fader
	mux         *http.ServeMux
	logger      *slog.Logger
	started     time.Time
}

// New builds the handler tree. Zero fader configs take the stock master
// and channel configurations.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	s := &Server{
		engine:      opts.Engine,
		broadcaster: opts.Broadcaster,
		mux:         http.NewServeMux(),
		logger:      opts.Logger.With("component", "api"),
		started:     opts.Clock.Now(),
	}
	s.faders = newFaders(opts)

	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/ruler", s.handleRuler)
	s.mux.HandleFunc("/api/route", post(s.handleRoute))
	s.mux.HandleFunc("/api/leave", post(s.handleLeave))
	s.mux.HandleFunc("/api/transport/{action}", post(s.handleTransport))
	s.mux.HandleFunc("/api/track", post(s.handleTrack))
	s.mux.HandleFunc("/api/seek", post(s.handleSeek))
	s.mux.HandleFunc("/api/enable", post(s.handleEnable))
	s.mux.HandleFunc("/api/volume", post(s.handleVolume))
	s.mux.HandleFunc("/api/fader", post(s.handleFader))
	if opts.Stream != nil {
		s.mux.Handle("/stream", opts.Stream)
	}
	if opts.Offer != nil {
		s.mux.Handle("/offer", opts.Offer)
	}
	return s
}

// ServeHTTP tags each request with an ID before dispatching it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)
	w.Header().Set("Access-Control-Allow-Origin", "*")

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
}

func post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

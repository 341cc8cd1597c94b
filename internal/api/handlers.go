package api

import (
	"math"
	"net/http"
	"time"

	"github.com/satindergrewal/soundstage/internal/engine"
	"github.com/satindergrewal/soundstage/internal/stream"
)

type statusResponse struct {
	engine.Status
	Uptime    float64               `json:"uptime"`
	Listeners []stream.ListenerInfo `json:"listeners"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:    s.engine.Status(),
		Uptime:    time.Since(s.started).Seconds(),
		Listeners: []stream.ListenerInfo{},
	}
	if s.broadcaster != nil {
		resp.Listeners = s.broadcaster.Listeners()
	}
	writeJSON(w, resp)
}

// handleRoute is the route observer: the site reports every navigation.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Route string `json:"route"`
		Speed string `json:"speed"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Route == "" {
		http.Error(w, "route required", http.StatusBadRequest)
		return
	}
	s.engine.ChangeRouteWith(req.Route, engine.ParseSpeed(req.Speed))
	writeJSON(w, map[string]any{"ok": true, "route": s.engine.Status().Route})
}

// handleLeave fades out ahead of a navigation. With wait set it responds
// once the music is silent.
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed string `json:"speed"`
		Wait  bool   `json:"wait"`
	}
	if !decode(w, r, &req) {
		return
	}
	done := s.engine.LeavePage(engine.ParseSpeed(req.Speed))
	if req.Wait && !waitDone(r, done) {
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func waitDone(r *http.Request, done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-r.Context().Done():
		return false
	}
}

func (s *Server) handleTransport(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("action") {
	case "next":
		s.engine.NextTrack()
	case "prev":
		s.engine.PrevTrack()
	case "toggle":
		s.engine.TogglePause()
	case "stop":
		done := s.engine.StopAll()
		if r.URL.Query().Get("wait") == "1" && !waitDone(r, done) {
			return
		}
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	st := s.engine.Status()
	writeJSON(w, map[string]any{"ok": true, "playing": st.Playing, "index": st.Index})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Index == nil {
		http.Error(w, "index required", http.StatusBadRequest)
		return
	}
	s.engine.PlayTrack(*req.Index)
	writeJSON(w, map[string]any{"ok": true, "index": s.engine.Status().Index})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Position float64 `json:"position"`
	}
	if !decode(w, r, &req) {
		return
	}
	if math.IsNaN(req.Position) || req.Position < 0 {
		http.Error(w, "position must be non-negative", http.StatusBadRequest)
		return
	}
	s.engine.Seek(req.Position)
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bus     string `json:"bus"`
		Enabled bool   `json:"enabled"`
	}
	if !decode(w, r, &req) {
		return
	}
	switch req.Bus {
	case "music":
		s.engine.SetMusicEnabled(req.Enabled)
	case "sfx":
		s.engine.SetSfxEnabled(req.Enabled)
	default:
		http.Error(w, "bus must be music or sfx", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "settings": s.engine.Settings()})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string   `json:"channel"`
		Gain    *float64 `json:"gain"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Gain == nil || *req.Gain < 0 {
		http.Error(w, "gain must be a non-negative number", http.StatusBadRequest)
		return
	}
	if !s.setVolume(req.Channel, *req.Gain) {
		http.Error(w, "channel must be master, music or sfx", http.StatusBadRequest)
		return
	}
	settings := s.engine.Settings()
	s.faders[req.Channel].Set(volumeOf(settings, req.Channel))
	writeJSON(w, map[string]any{"ok": true, "settings": settings})
}

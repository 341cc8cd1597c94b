package api

import (
	"math"
	"net/http"

	"github.com/satindergrewal/soundstage/internal/fader"
	"github.com/satindergrewal/soundstage/internal/prefs"
)

var channels = []string{"master", "music", "sfx"}

func newFaders(opts Options) map[string]*fader.Fader {
	cfgs := map[string]fader.Config{
		"master": opts.Master,
		"music":  opts.Music,
		"sfx":    opts.Sfx,
	}
	e := opts.Engine
	setters := map[string]func(float64){
		"master": e.SetMasterVolume,
		"music":  e.SetMusicVolume,
		"sfx":    e.SetSfxVolume,
	}
	settings := e.Settings()
	out := make(map[string]*fader.Fader, len(channels))
	for _, ch := range channels {
		cfg := cfgs[ch]
		if cfg.Scale.MaxDb == cfg.Scale.MinDb {
			if ch == "master" {
				cfg = fader.MasterConfig()
			} else {
				cfg = fader.ChannelConfig()
			}
		}
		f := fader.New(cfg, opts.Clock, setters[ch])
		f.Set(volumeOf(settings, ch))
		out[ch] = f
	}
	return out
}

func volumeOf(s prefs.Settings, channel string) float64 {
	switch channel {
	case "master":
		return s.MasterVolume
	case "music":
		return s.MusicVolume
	case "sfx":
		return s.SfxVolume
	}
	return 0
}

func (s *Server) setVolume(channel string, g float64) bool {
	switch channel {
	case "master":
		s.engine.SetMasterVolume(g)
	case "music":
		s.engine.SetMusicVolume(g)
	case "sfx":
		s.engine.SetSfxVolume(g)
	default:
		return false
	}
	return true
}

type faderState struct {
	Channel  string   `json:"channel"`
	Position float64  `json:"position"`
	Gain     float64  `json:"gain"`
	Db       *float64 `json:"db"` // null at silence
	Dragging bool     `json:"dragging"`
}

func stateOf(channel string, f *fader.Fader) faderState {
	st := faderState{
		Channel:  channel,
		Position: f.Position(),
		Gain:     f.Gain(),
		Dragging: f.Dragging(),
	}
	if db := f.Db(); !math.IsInf(db, 0) && !math.IsNaN(db) {
		st.Db = &db
	}
	return st
}

// handleFader drives a fader from pointer events. Position is the handle
// position in [0,1]; alternatively y, top and height describe the pointer
// within the track in screen coordinates.
func (s *Server) handleFader(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel  string   `json:"channel"`
		Action   string   `json:"action"`
		Position *float64 `json:"position"`
		Y        float64  `json:"y"`
		Top      float64  `json:"top"`
		Height   float64  `json:"height"`
	}
	if !decode(w, r, &req) {
		return
	}
	f, ok := s.faders[req.Channel]
	if !ok {
		http.Error(w, "channel must be master, music or sfx", http.StatusBadRequest)
		return
	}

	position := func() (float64, bool) {
		if req.Position != nil {
			return *req.Position, true
		}
		if req.Height > 0 {
			return fader.PointerToPosition(req.Y, req.Top, req.Height), true
		}
		return 0, false
	}

	switch req.Action {
	case "begin":
		f.BeginDrag()
		if p, ok := position(); ok {
			f.MoveTo(p)
		}
	case "move":
		p, ok := position()
		if !ok {
			http.Error(w, "position or pointer required", http.StatusBadRequest)
			return
		}
		f.MoveTo(p)
	case "end":
		if p, ok := position(); ok {
			f.MoveTo(p)
		}
		f.EndDrag()
	case "mute":
		f.ToggleMute()
	default:
		http.Error(w, "action must be begin, move, end or mute", http.StatusBadRequest)
		return
	}
	writeJSON(w, stateOf(req.Channel, f))
}

type tickJSON struct {
	Db       *float64 `json:"db"` // null for the infinity mark
	Position float64  `json:"position"`
	Label    string   `json:"label"`
	ZeroDb   bool     `json:"zero_db,omitempty"`
}

func (s *Server) handleRuler(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = "music"
	}
	f, ok := s.faders[channel]
	if !ok {
		http.Error(w, "channel must be master, music or sfx", http.StatusBadRequest)
		return
	}
	ticks := f.Ticks()
	out := make([]tickJSON, 0, len(ticks))
	for _, t := range ticks {
		tj := tickJSON{Position: t.Position, Label: t.Label, ZeroDb: t.IsZeroDb}
		if !t.IsInfinity {
			v := t.Value
			tj.Db = &v
		}
		out = append(out, tj)
	}
	writeJSON(w, map[string]any{"channel": channel, "fader": stateOf(channel, f), "ticks": out})
}

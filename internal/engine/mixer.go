package engine

import (
	"math"
	"slices"

	"github.com/satindergrewal/soundstage/internal/bus"
	"github.com/satindergrewal/soundstage/internal/gain"
	"github.com/satindergrewal/soundstage/internal/prefs"
	"github.com/satindergrewal/soundstage/internal/routes"
)

// SetMusicEnabled turns the music bus on or off and persists the choice.
// Turning it on plays the current route's music, not what was playing when
// it was turned off.
func (e *Engine) SetMusicEnabled(on bool) {
	e.do(func() {
		if !e.setEnabled(e.music, on) {
			return
		}
		e.settings.MusicEnabled = on
		e.persist(prefs.KeyMusicEnabled, prefs.FormatBool(on))
		if on {
			e.applyMusic(e.timing.RouteFadeOut)
		}
	})
}

// SetSfxEnabled turns the sound-design bus on or off and persists the choice.
func (e *Engine) SetSfxEnabled(on bool) {
	e.do(func() {
		if !e.setEnabled(e.sfx, on) {
			return
		}
		e.settings.SfxEnabled = on
		e.persist(prefs.KeySfxEnabled, prefs.FormatBool(on))
		if on {
			e.applyAmbience(e.timing.RouteFadeOut)
		}
	})
}

// setEnabled flips the flag and silences a disabled bus. It reports whether
// anything changed.
func (e *Engine) setEnabled(s *slot, on bool) bool {
	if s.enabled == on {
		return false
	}
	s.enabled = on
	e.logger.Info("bus toggled", "bus", s.name, "enabled", on)
	if !on {
		e.silence(s, e.timing.ToggleFade)
	}
	return true
}

// SetMasterVolume sets the master linear gain, applied live to both buses.
func (e *Engine) SetMasterVolume(v float64) {
	e.do(func() {
		e.settings.MasterVolume = e.clampVolume(v)
		e.persist(prefs.KeyMasterVolume, prefs.FormatFloat(e.settings.MasterVolume))
		e.applyLive(e.music)
		e.applyLive(e.sfx)
	})
}

// SetMusicVolume sets the music channel gain.
func (e *Engine) SetMusicVolume(v float64) {
	e.do(func() {
		e.settings.MusicVolume = e.clampVolume(v)
		e.persist(prefs.KeyMusicVolume, prefs.FormatFloat(e.settings.MusicVolume))
		e.applyLive(e.music)
	})
}

// SetSfxVolume sets the sound-design channel gain.
func (e *Engine) SetSfxVolume(v float64) {
	e.do(func() {
		e.settings.SfxVolume = e.clampVolume(v)
		e.persist(prefs.KeySfxVolume, prefs.FormatFloat(e.settings.SfxVolume))
		e.applyLive(e.sfx)
	})
}

func (e *Engine) clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return gain.Clamp(v, 0, e.maxVolume)
}

// applyLive pushes the effective volume to the requested resource at once.
// Buses fading out are left alone.
func (e *Engine) applyLive(s *slot) {
	b := s.bus
	if s.outgoing || s.target == "" || b.URL() != s.target {
		return
	}
	b.CancelFade()
	b.SetVolume(e.effective(s))
}

func (e *Engine) persist(key, value string) {
	if err := e.store.Set(key, value); err != nil {
		e.logger.Warn("preference write failed", "key", key, "error", err)
	}
}

// Settings returns the current mixer preferences.
func (e *Engine) Settings() prefs.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// BusStatus describes one bus.
type BusStatus struct {
	State     string  `json:"state"`
	URL       string  `json:"url,omitempty"`
	Target    string  `json:"target,omitempty"`
	Enabled   bool    `json:"enabled"`
	Volume    float64 `json:"volume"`
	Effective float64 `json:"effective"`
	Position  float64 `json:"position"`
	Duration  float64 `json:"duration"`
	Cached    int     `json:"cached"`
}

// Status is a snapshot of the engine.
type Status struct {
	Route    string         `json:"route"`
	Playing  bool           `json:"playing"`
	Index    int            `json:"index"`
	Playlist []routes.Track `json:"playlist"`
	Music    BusStatus      `json:"music"`
	Sfx      BusStatus      `json:"sfx"`
	Settings prefs.Settings `json:"settings"`
}

// Status returns a snapshot of both buses and the playlist.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Route:    e.route,
		Playing:  !e.destroyed && e.music.bus.IsPlaying(),
		Index:    e.index,
		Playlist: slices.Clone(e.playlist),
		Music:    e.busStatus(e.music),
		Sfx:      e.busStatus(e.sfx),
		Settings: e.settings,
	}
}

func (e *Engine) busStatus(s *slot) BusStatus {
	b := s.bus
	st := BusStatus{
		State:     b.State().String(),
		Target:    s.target,
		Enabled:   s.enabled,
		Effective: e.effective(s),
	}
	if e.destroyed {
		st.State = bus.Idle.String()
		return st
	}
	st.URL = b.URL()
	st.Volume = b.Volume()
	st.Position = b.Position()
	st.Duration = b.Duration()
	st.Cached = b.Cached()
	return st
}

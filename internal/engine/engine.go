// Package engine orchestrates the music and sound-design buses: it resolves
// site routes to audio, crossfades on navigation, runs the mixer and
// persists the listener's preferences.
//
// One Engine is constructed at startup and handed to every collaborator that
// needs playback control. All state lives behind a single mutex; bus timers
// and resource events re-enter through the same lock, so operations behave as
// if they ran on one event loop. Listener callbacks run after the lock is
// released and may call back into the engine.
package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/satindergrewal/soundstage/internal/bus"
	"github.com/satindergrewal/soundstage/internal/clock"
	"github.com/satindergrewal/soundstage/internal/gain"
	"github.com/satindergrewal/soundstage/internal/media"
	"github.com/satindergrewal/soundstage/internal/prefs"
	"github.com/satindergrewal/soundstage/internal/routes"
)

// Speed selects the fade-out length of a transition.
type Speed int

const (
	// SpeedFast is the short fade used for ordinary navigation.
	SpeedFast Speed = iota
	// SpeedSlow is the deliberate fade used when leaving a detail page.
	SpeedSlow
)

// ParseSpeed maps "fast" and "slow"; anything else is fast.
func ParseSpeed(s string) Speed {
	if s == "slow" {
		return SpeedSlow
	}
	return SpeedFast
}

func (s Speed) String() string {
	if s == SpeedSlow {
		return "slow"
	}
	return "fast"
}

// Timing holds every fade and polling duration.
type Timing struct {
	RouteFadeOut time.Duration // fast transition fade-out
	SlowFadeOut  time.Duration // page-leave fade-out
	FadeIn       time.Duration // fade-in of newly started resources
	ToggleFade   time.Duration // enable/disable and stop-all fade-out
	TimeUpdate   time.Duration // position polling interval
	FadeStep     time.Duration // fade volume step
}

// DefaultTiming returns the stock durations.
func DefaultTiming() Timing {
	return Timing{
		RouteFadeOut: 300 * time.Millisecond,
		SlowFadeOut:  4 * time.Second,
		FadeIn:       500 * time.Millisecond,
		ToggleFade:   500 * time.Millisecond,
		TimeUpdate:   250 * time.Millisecond,
		FadeStep:     bus.DefaultFadeStep,
	}
}

// Options configures New. Zero numeric fields take defaults.
type Options struct {
	Routes   *routes.Table
	Loader   media.Loader
	Store    prefs.Store
	Defaults prefs.Settings
	Clock    clock.Clock
	Logger   *slog.Logger
	Timing   Timing
	Curve    bus.Curve

	MusicAttenuation    float64 // default 1
	AmbienceAttenuation float64 // default 0.35
	MaxVolume           float64 // per-channel ceiling, default 1.26 (+2 dB)
	SlowFadeAmbience    bool    // LeavePage also fades the sound-design bus
}

const (
	defaultAmbienceAttenuation = 0.35
	defaultMaxVolume           = 1.26
)

// Listener receives engine notifications. Nil fields are skipped.
type Listener struct {
	OnTimeUpdate          func(position, duration float64)
	OnTrackEnd            func()
	OnPlaybackStateChange func(playing bool)
	OnTrackChange         func(index int, playlist []routes.Track)
}

type subscription struct {
	l Listener
}

// slot is one bus plus the engine's view of what it should be playing.
type slot struct {
	name        string
	bus         *bus.Bus
	enabled     bool
	target      string // requested URL; "" requests silence
	attenuation float64

	outgoing bool   // an engine fade to silence is running
	next     func() // runs once the bus has gone silent
	waiters  []chan struct{}
}

func (s *slot) release() {
	for _, ch := range s.waiters {
		close(ch)
	}
	s.waiters = nil
}

// Engine is the audio playback and mixing engine.
type Engine struct {
	mu sync.Mutex

	clock            clock.Clock
	logger           *slog.Logger
	timing           Timing
	store            prefs.Store
	table            *routes.Table
	maxVolume        float64
	slowFadeAmbience bool

	music *slot
	sfx   *slot

	settings prefs.Settings
	route    string
	playlist []routes.Track
	index    int

	subs        []*subscription
	notes       []func()
	ticker      clock.Timer
	tickGen     uint64
	lastPlaying bool
	destroyed   bool
}

// New builds the engine, restoring preferences straight from the store.
func New(opts Options) (*Engine, error) {
	if opts.Routes == nil {
		return nil, errors.New("engine: route table required")
	}
	if opts.Loader == nil {
		return nil, errors.New("engine: media loader required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Store == nil {
		opts.Store = prefs.NewMemory()
	}
	if opts.Defaults == (prefs.Settings{}) {
		opts.Defaults = prefs.DefaultSettings()
	}
	opts.Timing = withDefaults(opts.Timing)
	if opts.MusicAttenuation <= 0 {
		opts.MusicAttenuation = 1
	}
	if opts.AmbienceAttenuation <= 0 {
		opts.AmbienceAttenuation = defaultAmbienceAttenuation
	}
	if opts.MaxVolume <= 0 {
		opts.MaxVolume = defaultMaxVolume
	}

	e := &Engine{
		clock:            opts.Clock,
		logger:           opts.Logger.With("component", "engine"),
		timing:           opts.Timing,
		store:            opts.Store,
		table:            opts.Routes,
		maxVolume:        opts.MaxVolume,
		slowFadeAmbience: opts.SlowFadeAmbience,
	}

	settings, err := prefs.Load(opts.Store, opts.Defaults)
	if err != nil {
		e.logger.Warn("preferences unavailable, using defaults", "error", err)
	}
	settings.MusicVolume = gain.Clamp(settings.MusicVolume, 0, e.maxVolume)
	settings.SfxVolume = gain.Clamp(settings.SfxVolume, 0, e.maxVolume)
	settings.MasterVolume = gain.Clamp(settings.MasterVolume, 0, e.maxVolume)
	e.settings = settings

	newBus := func(name string) *bus.Bus {
		return bus.New(bus.Options{
			Name:     name,
			Loader:   opts.Loader,
			Clock:    opts.Clock,
			Exec:     e.do,
			FadeStep: opts.Timing.FadeStep,
			Curve:    opts.Curve,
			Logger:   opts.Logger,
		})
	}
	e.music = &slot{name: "music", bus: newBus("music"), enabled: settings.MusicEnabled, attenuation: opts.MusicAttenuation}
	e.sfx = &slot{name: "sfx", bus: newBus("sfx"), enabled: settings.SfxEnabled, attenuation: opts.AmbienceAttenuation}
	e.music.bus.Subscribe(func(ev bus.Event) { e.onBusEvent(e.music, ev) })
	e.sfx.bus.Subscribe(func(ev bus.Event) { e.onBusEvent(e.sfx, ev) })

	e.logger.Info("audio engine ready",
		"music_enabled", settings.MusicEnabled,
		"sfx_enabled", settings.SfxEnabled,
		"master_volume", settings.MasterVolume)
	return e, nil
}

func withDefaults(t Timing) Timing {
	d := DefaultTiming()
	if t.RouteFadeOut <= 0 {
		t.RouteFadeOut = d.RouteFadeOut
	}
	if t.SlowFadeOut <= 0 {
		t.SlowFadeOut = d.SlowFadeOut
	}
	if t.FadeIn <= 0 {
		t.FadeIn = d.FadeIn
	}
	if t.ToggleFade <= 0 {
		t.ToggleFade = d.ToggleFade
	}
	if t.TimeUpdate <= 0 {
		t.TimeUpdate = d.TimeUpdate
	}
	if t.FadeStep <= 0 {
		t.FadeStep = d.FadeStep
	}
	return t
}

// do runs fn under the engine lock, then delivers queued notifications.
func (e *Engine) do(fn func()) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	fn()
	e.syncLocked()
	notes := e.notes
	e.notes = nil
	e.mu.Unlock()

	for _, n := range notes {
		n()
	}
}

// Subscribe registers l and returns a function that removes it.
func (e *Engine) Subscribe(l Listener) (cancel func()) {
	sub := &subscription{l: l}
	e.mu.Lock()
	e.subs = append(e.subs, sub)
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, other := range e.subs {
			if other == sub {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) notify(call func(l *Listener)) {
	subs := append([]*subscription(nil), e.subs...)
	e.notes = append(e.notes, func() {
		for _, s := range subs {
			call(&s.l)
		}
	})
}

func (e *Engine) notifyTrackChange() {
	index := e.index
	playlist := append([]routes.Track(nil), e.playlist...)
	e.notify(func(l *Listener) {
		if l.OnTrackChange != nil {
			l.OnTrackChange(index, playlist)
		}
	})
}

// syncLocked reports playback-state edges and keeps the position ticker
// running exactly while music plays.
func (e *Engine) syncLocked() {
	playing := e.music.bus.IsPlaying()
	if playing != e.lastPlaying {
		e.lastPlaying = playing
		e.notify(func(l *Listener) {
			if l.OnPlaybackStateChange != nil {
				l.OnPlaybackStateChange(playing)
			}
		})
	}

	switch {
	case playing && e.ticker == nil:
		e.tickGen++
		gen := e.tickGen
		e.ticker = e.clock.AfterFunc(e.timing.TimeUpdate, func() {
			e.do(func() { e.tick(gen) })
		})
	case !playing && e.ticker != nil:
		e.stopTickerLocked()
	}
}

func (e *Engine) stopTickerLocked() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
	e.tickGen++
}

func (e *Engine) tick(gen uint64) {
	if gen != e.tickGen {
		return
	}
	e.ticker = nil
	if !e.music.bus.IsPlaying() {
		return
	}
	pos, dur := e.music.bus.Position(), e.music.bus.Duration()
	e.notify(func(l *Listener) {
		if l.OnTimeUpdate != nil {
			l.OnTimeUpdate(pos, dur)
		}
	})
}

func (e *Engine) onBusEvent(s *slot, ev bus.Event) {
	switch ev.Type {
	case bus.EventError:
		e.logger.Warn("audio resource failed",
			"bus", s.name,
			"url", ev.URL,
			"error", ev.Err)
		if s.target == ev.URL {
			s.target = ""
		}
		// The failure cancelled any fade; the bus is silent now.
		if s.outgoing {
			e.silenced(s)
		}
	case bus.EventEnd:
		if s == e.music {
			e.notify(func(l *Listener) {
				if l.OnTrackEnd != nil {
					l.OnTrackEnd()
				}
			})
		}
		if s.bus.Loop() {
			return
		}
		if s.outgoing {
			e.silenced(s)
			return
		}
		if s == e.music && s.enabled && len(e.playlist) > 1 && s.target == ev.URL {
			s.target = ""
			e.playIndex(e.index + 1)
		}
	}
}

// Destroy stops both buses, releases every cached resource and cancels all
// pending timers. Nothing scheduled before Destroy runs afterwards.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.stopTickerLocked()
	for _, s := range []*slot{e.music, e.sfx} {
		s.target = ""
		s.outgoing = false
		s.next = nil
		s.bus.Destroy()
		s.release()
	}
	e.subs = nil
	e.notes = nil
	e.logger.Info("audio engine destroyed")
}

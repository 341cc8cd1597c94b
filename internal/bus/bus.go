// Package bus implements one audio signal path: a single current sound
// resource with transport controls, volume, timer-stepped fades and a
// per-bus cache of loaded resources keyed by URL.
//
// A Bus is not safe for concurrent use. Its owner serializes every method
// call and supplies Options.Exec, through which the bus delivers timer ticks
// and resource events, so all mutation happens on the owner's terms.
package bus

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/satindergrewal/soundstage/internal/clock"
	"github.com/satindergrewal/soundstage/internal/media"
)

// ErrDestroyed is returned by Load after Destroy.
var ErrDestroyed = errors.New("bus destroyed")

// DefaultFadeStep is the volume update interval of a fade.
const DefaultFadeStep = 50 * time.Millisecond

// State is the playback state of a bus.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
	FadingOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case FadingOut:
		return "fading_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventType identifies a bus event.
type EventType int

const (
	EventLoad EventType = iota
	EventPlay
	EventPause
	EventStop
	EventEnd
	EventError
)

// Event is delivered synchronously to subscribers.
type Event struct {
	Type EventType
	URL  string
	Err  error
}

// Options configures a Bus.
type Options struct {
	Name     string
	Loader   media.Loader
	Clock    clock.Clock
	Exec     func(func()) // serializes timer and resource callbacks; nil runs them inline
	FadeStep time.Duration
	Curve    Curve
	Logger   *slog.Logger
}

// LoadOptions configures Load.
type LoadOptions struct {
	Loop bool
}

type entry struct {
	url   string
	sound media.Sound
}

// Bus owns one sound resource's playback lifecycle.
type Bus struct {
	name     string
	loader   media.Loader
	clock    clock.Clock
	exec     func(func())
	step     time.Duration
	curve    Curve
	logger   *slog.Logger

	cache       map[string]*entry
	cur         *entry
	attachGen   uint64
	state       State
	volume      float64
	loop        bool
	pendingPlay bool
	fade        *fade
	listeners   []*listener
	destroyed   bool
}

type listener struct {
	fn func(Event)
}

// New creates a bus.
func New(opts Options) *Bus {
	b := &Bus{
		name:   opts.Name,
		loader: opts.Loader,
		clock:  opts.Clock,
		exec:   opts.Exec,
		step:   opts.FadeStep,
		curve:  opts.Curve,
		logger: opts.Logger,
		cache:  make(map[string]*entry),
	}
	if b.clock == nil {
		b.clock = clock.Real()
	}
	if b.exec == nil {
		b.exec = func(f func()) { f() }
	}
	if b.step <= 0 {
		b.step = DefaultFadeStep
	}
	if b.curve == nil {
		b.curve = Linear
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	b.logger = b.logger.With("bus", b.name)
	return b
}

// Name returns the bus name.
func (b *Bus) Name() string { return b.name }

// Subscribe registers fn for bus events and returns a function removing it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	l := &listener{fn: fn}
	b.listeners = append(b.listeners, l)
	return func() {
		for i, other := range b.listeners {
			if other == l {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) emit(ev Event) {
	for _, l := range append([]*listener(nil), b.listeners...) {
		l.fn(ev)
	}
}

// Load makes url the bus's current resource. A cached handle is rewound and
// its listeners replaced; otherwise a new handle is constructed and cached.
// The bus is left stopped; call Play to start it.
func (b *Bus) Load(url string, opts LoadOptions) error {
	if b.destroyed {
		return ErrDestroyed
	}
	b.cancelFade()
	if b.cur != nil && b.cur.url != url {
		b.cur.sound.Stop()
	}
	b.pendingPlay = false

	e, ok := b.cache[url]
	if ok {
		e.sound.Stop()
		e.sound.Seek(0)
		e.sound.SetLoop(opts.Loop)
		b.logger.Debug("reusing cached resource", "url", url)
	} else {
		sound, err := b.loader.Load(url, media.LoadOptions{Loop: opts.Loop})
		if err != nil {
			b.cur = nil
			b.state = Idle
			return fmt.Errorf("load %s: %w", url, err)
		}
		e = &entry{url: url, sound: sound}
		b.cache[url] = e
		b.logger.Debug("constructed resource", "url", url)
	}

	b.cur = e
	b.loop = opts.Loop
	b.attach(e)
	e.sound.SetVolume(b.volume)
	if e.sound.Loaded() {
		b.state = Idle
	} else {
		b.state = Loading
	}
	return nil
}

func (b *Bus) attach(e *entry) {
	b.attachGen++
	gen := b.attachGen
	current := func() bool {
		return !b.destroyed && b.cur == e && b.attachGen == gen
	}
	e.sound.SetHandlers(media.Handlers{
		OnLoad: func() {
			b.exec(func() {
				if current() {
					b.handleLoad()
				}
			})
		},
		OnEnd: func() {
			b.exec(func() {
				if current() {
					b.handleEnd()
				}
			})
		},
		OnError: func(err error) {
			b.exec(func() {
				if current() {
					b.handleError(err)
				}
			})
		},
	})
}

func (b *Bus) handleLoad() {
	url := b.cur.url
	if b.pendingPlay {
		b.pendingPlay = false
		b.cur.sound.Play()
		b.state = Playing
		b.emit(Event{Type: EventLoad, URL: url})
		b.emit(Event{Type: EventPlay, URL: url})
		return
	}
	if b.state == Loading {
		b.state = Idle
	}
	b.emit(Event{Type: EventLoad, URL: url})
}

func (b *Bus) handleEnd() {
	url := b.cur.url
	if !b.loop {
		b.cancelFade()
		b.state = Idle
	}
	b.emit(Event{Type: EventEnd, URL: url})
}

func (b *Bus) handleError(err error) {
	e := b.cur
	b.logger.Warn("resource failed", "url", e.url, "error", err)
	b.cancelFade()
	b.pendingPlay = false
	_ = e.sound.Close()
	delete(b.cache, e.url)
	b.cur = nil
	b.state = Idle
	b.emit(Event{Type: EventError, URL: e.url, Err: err})
}

// Play starts or resumes the current resource. If it has not finished
// loading, playback starts once it has.
func (b *Bus) Play() {
	if b.cur == nil || b.destroyed {
		return
	}
	if !b.cur.sound.Loaded() {
		b.pendingPlay = true
		b.state = Loading
		return
	}
	b.cur.sound.Play()
	if b.fade != nil && b.fade.to == 0 {
		b.state = FadingOut
	} else {
		b.state = Playing
	}
	b.emit(Event{Type: EventPlay, URL: b.cur.url})
}

// Pause holds the playhead. Any fade in flight is abandoned at its current level.
func (b *Bus) Pause() {
	if b.cur == nil {
		return
	}
	b.cancelFade()
	b.pendingPlay = false
	b.cur.sound.Pause()
	if b.state == Idle || b.state == Paused {
		return
	}
	b.state = Paused
	b.emit(Event{Type: EventPause, URL: b.cur.url})
}

// Stop halts playback and rewinds. The resource stays cached.
func (b *Bus) Stop() {
	b.cancelFade()
	b.pendingPlay = false
	if b.cur == nil {
		b.state = Idle
		return
	}
	b.cur.sound.Stop()
	prev := b.state
	b.state = Idle
	if prev != Idle {
		b.emit(Event{Type: EventStop, URL: b.cur.url})
	}
}

// Seek moves the playhead of the current resource.
func (b *Bus) Seek(seconds float64) {
	if b.cur == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	b.cur.sound.Seek(seconds)
}

// SetVolume applies g immediately. It does not cancel a running fade.
func (b *Bus) SetVolume(g float64) {
	if g < 0 {
		g = 0
	}
	b.volume = g
	if b.cur != nil {
		b.cur.sound.SetVolume(g)
	}
}

// Volume returns the last applied volume.
func (b *Bus) Volume() float64 { return b.volume }

// Position returns the playhead of the current resource in seconds.
func (b *Bus) Position() float64 {
	if b.cur == nil {
		return 0
	}
	return b.cur.sound.Position()
}

// Duration returns the length of the current resource in seconds.
func (b *Bus) Duration() float64 {
	if b.cur == nil {
		return 0
	}
	return b.cur.sound.Duration()
}

// IsPlaying reports whether the bus is audible or about to be.
func (b *Bus) IsPlaying() bool {
	return b.state == Playing || b.state == FadingOut
}

// Active reports whether the bus is playing or waiting to play.
func (b *Bus) Active() bool {
	return b.IsPlaying() || (b.state == Loading && b.pendingPlay)
}

// State returns the bus state.
func (b *Bus) State() State { return b.state }

// URL returns the current resource's URL, or "".
func (b *Bus) URL() string {
	if b.cur == nil {
		return ""
	}
	return b.cur.url
}

// Loop reports whether the current resource loops.
func (b *Bus) Loop() bool { return b.loop }

// Cached reports how many resources the bus holds.
func (b *Bus) Cached() int { return len(b.cache) }

// Destroy stops every cached resource, releases the handles and cancels
// pending timers. The bus is unusable afterwards.
func (b *Bus) Destroy() {
	if b.destroyed {
		return
	}
	b.cancelFade()
	for url, e := range b.cache {
		e.sound.Stop()
		if err := e.sound.Close(); err != nil {
			b.logger.Warn("close resource", "url", url, "error", err)
		}
	}
	b.cache = nil
	b.cur = nil
	b.state = Idle
	b.pendingPlay = false
	b.listeners = nil
	b.destroyed = true
}

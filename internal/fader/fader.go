// Package fader turns a vertical drag within a mixer track into gain updates.
//
// Position 0 is the bottom of the track (silence) and 1 the top (the scale's
// MaxDb). Updates to the change callback are throttled; a value that arrives
// inside the throttle window is deferred, never dropped, and releasing the
// drag flushes it immediately.
package fader

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/satindergrewal/soundstage/internal/clock"
	"github.com/satindergrewal/soundstage/internal/gain"
)

// Mapping selects how dB becomes linear gain.
type Mapping int

const (
	// Decibel applies the plain dB law: 0 dB is gain 1.
	Decibel Mapping = iota
	// Mixer applies gain.MixerScale: 0 dB sits below the top of the range.
	Mixer
)

// ParseMapping accepts "decibel" and "mixer".
func ParseMapping(s string) (Mapping, error) {
	switch s {
	case "decibel", "":
		return Decibel, nil
	case "mixer":
		return Mixer, nil
	}
	return Decibel, fmt.Errorf("unknown fader mapping %q", s)
}

func (m Mapping) String() string {
	if m == Mixer {
		return "mixer"
	}
	return "decibel"
}

// DefaultThrottle is one update per display frame at 60 Hz.
const DefaultThrottle = 16 * time.Millisecond

// DefaultSnapThreshold is the zero-dB detent width in dB.
const DefaultSnapThreshold = 0.5

// Config describes one fader.
type Config struct {
	Scale         gain.Scale
	Mapping       Mapping
	Mixer         gain.MixerScale
	Headroom      bool // allow gain above 1; otherwise clamp to [0,1]
	SnapThreshold float64
	Throttle      time.Duration
}

// ChannelConfig is a sub-channel fader: -60..0 dB, clamped to unity.
func ChannelConfig() Config {
	return Config{
		Scale:         gain.DefaultScale(),
		Mapping:       Decibel,
		Mixer:         gain.DefaultMixerScale(),
		SnapThreshold: DefaultSnapThreshold,
		Throttle:      DefaultThrottle,
	}
}

// MasterConfig is the master fader: -60..+10 dB on the mixer scale with headroom.
func MasterConfig() Config {
	return Config{
		Scale:         gain.MasterScale(),
		Mapping:       Mixer,
		Mixer:         gain.DefaultMixerScale(),
		Headroom:      true,
		SnapThreshold: DefaultSnapThreshold,
		Throttle:      DefaultThrottle,
	}
}

// Fader is safe for concurrent use. onChange is never called with the
// fader's lock held.
type Fader struct {
	mu       sync.Mutex
	cfg      Config
	clock    clock.Clock
	onChange func(gain float64)

	position float64
	gain     float64
	lastGain float64 // last audible gain, restored by ToggleMute
	dragging bool

	emitted    bool
	lastEmit   time.Time
	hasPending bool
	pending    float64
	timer      clock.Timer
	timerGen   uint64
}

// New returns a fader at unity gain. A nil clock uses the wall clock.
func New(cfg Config, clk clock.Clock, onChange func(gain float64)) *Fader {
	if clk == nil {
		clk = clock.Real()
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	if cfg.SnapThreshold < 0 {
		cfg.SnapThreshold = 0
	}
	if cfg.Mixer == (gain.MixerScale{}) {
		cfg.Mixer = gain.DefaultMixerScale()
	}
	if onChange == nil {
		onChange = func(float64) {}
	}
	f := &Fader{cfg: cfg, clock: clk, onChange: onChange}
	unity := f.dbToGain(0)
	f.gain = unity
	f.lastGain = unity
	f.position = f.gainToPosition(unity)
	return f
}

// PointerToPosition converts a pointer's vertical coordinate within a track
// spanning [top, top+height) to a fader position. Screen coordinates grow
// downwards, so the top edge maps to 1.
func PointerToPosition(y, top, height float64) float64 {
	if height <= 0 {
		return 0
	}
	return gain.Clamp(1-(y-top)/height, 0, 1)
}

func (f *Fader) dbToGain(db float64) float64 {
	if math.IsInf(db, -1) || math.IsNaN(db) {
		return 0
	}
	var g float64
	if f.cfg.Mapping == Mixer {
		g = f.cfg.Mixer.DbToMixerGain(db)
	} else {
		g = gain.DbToGain(db)
	}
	if f.cfg.Headroom {
		return math.Max(g, 0)
	}
	return gain.Clamp(g, 0, 1)
}

func (f *Fader) gainToDb(g float64) float64 {
	if f.cfg.Mapping == Mixer {
		return f.cfg.Mixer.MixerGainToDb(g)
	}
	return gain.GainToDb(g)
}

func (f *Fader) gainToPosition(g float64) float64 {
	return gain.DbToPosition(f.gainToDb(g), f.cfg.Scale)
}

// BeginDrag starts a drag; the zero-dB detent applies until EndDrag.
func (f *Fader) BeginDrag() {
	f.mu.Lock()
	f.dragging = true
	f.mu.Unlock()
}

// MoveTo moves the handle to position and reports the new gain, subject to
// the throttle.
func (f *Fader) MoveTo(position float64) {
	f.mu.Lock()
	if math.IsNaN(position) {
		position = 0
	}
	position = gain.Clamp(position, 0, 1)
	db := gain.PositionToDb(position, f.cfg.Scale)
	if f.dragging {
		db = gain.SnapToZeroDb(db, f.cfg.SnapThreshold)
		if db == 0 {
			position = gain.DbToPosition(0, f.cfg.Scale)
		}
	}
	g := f.dbToGain(db)
	f.position = position
	f.setGainLocked(g)
	emit := f.throttleLocked(g)
	f.mu.Unlock()

	if emit {
		f.onChange(g)
	}
}

// EndDrag finishes a drag and flushes any deferred update.
func (f *Fader) EndDrag() {
	f.mu.Lock()
	f.dragging = false
	g, ok := f.takePendingLocked()
	f.mu.Unlock()

	if ok {
		f.onChange(g)
	}
}

// Set moves the handle to g without reporting it, for syncing the fader to
// state changed elsewhere.
func (f *Fader) Set(g float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if math.IsNaN(g) || g < 0 {
		g = 0
	}
	if !f.cfg.Headroom && g > 1 {
		g = 1
	}
	f.position = f.gainToPosition(g)
	f.setGainLocked(g)
}

// ToggleMute switches between silence and the last audible gain. The change
// is reported at once, outside the throttle.
func (f *Fader) ToggleMute() float64 {
	f.mu.Lock()
	var g float64
	if f.gain == 0 {
		g = f.lastGain
	}
	f.position = f.gainToPosition(g)
	f.setGainLocked(g)
	f.takePendingLocked()
	f.emitted = true
	f.lastEmit = f.clock.Now()
	f.mu.Unlock()

	f.onChange(g)
	return g
}

func (f *Fader) setGainLocked(g float64) {
	f.gain = g
	if g > 0 {
		f.lastGain = g
	}
}

// throttleLocked reports whether g may be emitted now; otherwise it is
// stored and a timer flushes it when the window closes.
func (f *Fader) throttleLocked(g float64) bool {
	now := f.clock.Now()
	if !f.emitted || now.Sub(f.lastEmit) >= f.cfg.Throttle {
		f.takePendingLocked()
		f.emitted = true
		f.lastEmit = now
		return true
	}
	f.pending = g
	f.hasPending = true
	if f.timer == nil {
		f.timerGen++
		gen := f.timerGen
		f.timer = f.clock.AfterFunc(f.lastEmit.Add(f.cfg.Throttle).Sub(now), func() {
			f.flushDeferred(gen)
		})
	}
	return false
}

// takePendingLocked cancels the flush timer and returns the deferred value.
func (f *Fader) takePendingLocked() (float64, bool) {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.timerGen++
	if !f.hasPending {
		return 0, false
	}
	f.hasPending = false
	f.lastEmit = f.clock.Now()
	return f.pending, true
}

func (f *Fader) flushDeferred(gen uint64) {
	f.mu.Lock()
	if gen != f.timerGen {
		f.mu.Unlock()
		return
	}
	f.timer = nil
	g, ok := f.takePendingLocked()
	f.mu.Unlock()

	if ok {
		f.onChange(g)
	}
}

// Position returns the handle position in [0,1].
func (f *Fader) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

// Gain returns the current linear gain.
func (f *Fader) Gain() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gain
}

// Db returns the current level in dB.
func (f *Fader) Db() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gainToDb(f.gain)
}

// Dragging reports whether a drag is in progress.
func (f *Fader) Dragging() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dragging
}

// Ticks returns the ruler marks for this fader's scale.
func (f *Fader) Ticks() []gain.Tick {
	return gain.CalculateDbTicks(f.cfg.Scale)
}

// Config returns the fader's configuration.
func (f *Fader) Config() Config { return f.cfg }

package audio

import (
	"sync"

	"github.com/satindergrewal/soundstage/internal/media"
)

// Voice is one decoded resource in the mix. It implements media.Sound; its
// handlers fire from the decoder and renderer goroutines, never from inside
// a Voice method.
type Voice struct {
	mu       sync.Mutex
	url      string
	samples  []int16
	loaded   bool
	failed   bool
	playing  bool
	loop     bool
	volume   float64
	pos      int // interleaved sample offset
	closed   bool
	handlers media.Handlers
	detach   func(*Voice)
}

func newVoice(url string, loop bool, detach func(*Voice)) *Voice {
	return &Voice{url: url, loop: loop, detach: detach}
}

func (v *Voice) URL() string { return v.url }

func (v *Voice) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *Voice) Play() {
	v.mu.Lock()
	if !v.closed && v.loaded {
		v.playing = true
	}
	v.mu.Unlock()
}

func (v *Voice) Pause() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
}

func (v *Voice) Stop() {
	v.mu.Lock()
	v.playing = false
	v.pos = 0
	v.mu.Unlock()
}

func (v *Voice) Seek(seconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pos := secondsToSamples(seconds)
	if pos < 0 {
		pos = 0
	}
	if pos > len(v.samples) {
		pos = len(v.samples)
	}
	v.pos = pos
}

func (v *Voice) SetVolume(g float64) {
	v.mu.Lock()
	if g < 0 {
		g = 0
	}
	v.volume = g
	v.mu.Unlock()
}

func (v *Voice) SetLoop(loop bool) {
	v.mu.Lock()
	v.loop = loop
	v.mu.Unlock()
}

func (v *Voice) Position() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return samplesToSeconds(v.pos)
}

func (v *Voice) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return samplesToSeconds(len(v.samples))
}

func (v *Voice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *Voice) SetHandlers(h media.Handlers) {
	v.mu.Lock()
	v.handlers = h
	v.mu.Unlock()
}

// Close releases the decoded samples and removes the voice from the mix.
func (v *Voice) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.playing = false
	v.samples = nil
	detach := v.detach
	v.mu.Unlock()

	if detach != nil {
		detach(v)
	}
	return nil
}

// finish installs decoded samples and fires OnLoad.
func (v *Voice) finish(samples []int16) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.samples = samples
	v.loaded = true
	h := v.handlers.OnLoad
	v.mu.Unlock()

	if h != nil {
		h()
	}
}

// fail fires OnError.
func (v *Voice) fail(err error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.failed = true
	h := v.handlers.OnError
	v.mu.Unlock()

	if h != nil {
		h(err)
	}
}

// mixInto adds one frame of this voice into acc. It returns the end handler
// when the voice ran off the end of a non-looping resource; the caller runs
// it after mixing.
func (v *Voice) mixInto(acc []float64) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing || len(v.samples) == 0 {
		return nil
	}
	for i := range acc {
		if v.pos >= len(v.samples) {
			if !v.loop {
				v.playing = false
				return v.endHandler()
			}
			v.pos = 0
		}
		acc[i] += float64(v.samples[v.pos]) * v.volume
		v.pos++
	}
	if v.pos >= len(v.samples) && !v.loop {
		v.playing = false
		return v.endHandler()
	}
	return nil
}

func (v *Voice) endHandler() func() {
	if h := v.handlers.OnEnd; h != nil {
		return h
	}
	return func() {}
}

var _ media.Sound = (*Voice)(nil)

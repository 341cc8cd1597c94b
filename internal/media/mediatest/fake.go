// Package mediatest provides a scriptable media.Loader for tests.
package mediatest

import (
	"errors"
	"sync"

	"github.com/satindergrewal/soundstage/internal/media"
)

// ErrFailed is returned by Loader.Load for URLs registered with Fail.
var ErrFailed = errors.New("mediatest: load failed")

// Loader records every construction and hands out Sounds.
type Loader struct {
	mu       sync.Mutex
	sounds   []*Sound
	fail     map[string]bool
	async    bool
	duration float64
}

// NewLoader returns a loader whose sounds are loaded immediately.
func NewLoader() *Loader {
	return &Loader{fail: make(map[string]bool), duration: 180}
}

// NewAsyncLoader returns a loader whose sounds stay unloaded until
// Sound.FinishLoad or Sound.FailLoad is called.
func NewAsyncLoader() *Loader {
	l := NewLoader()
	l.async = true
	return l
}

// Fail makes Load return an error for url.
func (l *Loader) Fail(url string) {
	l.mu.Lock()
	l.fail[url] = true
	l.mu.Unlock()
}

// Load implements media.Loader.
func (l *Loader) Load(url string, opts media.LoadOptions) (media.Sound, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail[url] {
		return nil, ErrFailed
	}
	s := &Sound{url: url, loop: opts.Loop, loaded: !l.async, duration: l.duration}
	l.sounds = append(l.sounds, s)
	return s, nil
}

// Loads returns how many sounds were constructed for url.
func (l *Loader) Loads(url string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.sounds {
		if s.url == url {
			n++
		}
	}
	return n
}

// Latest returns the most recently constructed sound for url, or nil.
func (l *Loader) Latest(url string) *Sound {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.sounds) - 1; i >= 0; i-- {
		if l.sounds[i].url == url {
			return l.sounds[i]
		}
	}
	return nil
}

// Playing returns the URLs of every sound currently playing.
func (l *Loader) Playing() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, s := range l.sounds {
		if s.Playing() {
			out = append(out, s.url)
		}
	}
	return out
}

// Sound is an in-memory media.Sound.
type Sound struct {
	mu       sync.Mutex
	url      string
	loaded   bool
	playing  bool
	loop     bool
	volume   float64
	position float64
	duration float64
	closed   bool
	handlers media.Handlers

	Volumes []float64 // every SetVolume value, in order
}

func (s *Sound) URL() string { return s.url }

func (s *Sound) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Sound) Play() {
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
}

func (s *Sound) Pause() {
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
}

func (s *Sound) Stop() {
	s.mu.Lock()
	s.playing = false
	s.position = 0
	s.mu.Unlock()
}

func (s *Sound) Seek(seconds float64) {
	s.mu.Lock()
	s.position = seconds
	s.mu.Unlock()
}

func (s *Sound) SetVolume(g float64) {
	s.mu.Lock()
	s.volume = g
	s.Volumes = append(s.Volumes, g)
	s.mu.Unlock()
}

func (s *Sound) SetLoop(loop bool) {
	s.mu.Lock()
	s.loop = loop
	s.mu.Unlock()
}

func (s *Sound) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Sound) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Sound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Sound) SetHandlers(h media.Handlers) {
	s.mu.Lock()
	s.handlers = h
	s.mu.Unlock()
}

func (s *Sound) Close() error {
	s.mu.Lock()
	s.closed = true
	s.playing = false
	s.mu.Unlock()
	return nil
}

// Volume returns the last volume set.
func (s *Sound) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Loop reports the loop flag.
func (s *Sound) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// Closed reports whether Close was called.
func (s *Sound) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FinishLoad marks the sound loaded and fires OnLoad.
func (s *Sound) FinishLoad() {
	s.mu.Lock()
	s.loaded = true
	h := s.handlers.OnLoad
	s.mu.Unlock()
	if h != nil {
		h()
	}
}

// FailLoad fires OnError.
func (s *Sound) FailLoad(err error) {
	s.mu.Lock()
	h := s.handlers.OnError
	s.mu.Unlock()
	if h != nil {
		h(err)
	}
}

// End simulates natural end of the resource and fires OnEnd.
func (s *Sound) End() {
	s.mu.Lock()
	s.playing = false
	s.position = s.duration
	h := s.handlers.OnEnd
	s.mu.Unlock()
	if h != nil {
		h()
	}
}

// Advance moves the playhead forward if the sound is playing.
func (s *Sound) Advance(seconds float64) {
	s.mu.Lock()
	if s.playing {
		s.position += seconds
	}
	s.mu.Unlock()
}

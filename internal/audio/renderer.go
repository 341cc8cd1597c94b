package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Renderer mixes every playing voice into 20ms frames and emits them at
// real-time rate.
type Renderer struct {
	frameCh chan []int16
	logger  *slog.Logger

	mu     sync.Mutex
	voices []*Voice
	frames uint64
}

// NewRenderer creates a renderer with no voices.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{
		frameCh: make(chan []int16, 100),
		logger:  logger.With("component", "renderer"),
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (r *Renderer) Frames() <-chan []int16 {
	return r.frameCh
}

func (r *Renderer) add(v *Voice) {
	r.mu.Lock()
	r.voices = append(r.voices, v)
	r.mu.Unlock()
}

func (r *Renderer) remove(v *Voice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, other := range r.voices {
		if other == v {
			r.voices = append(r.voices[:i], r.voices[i+1:]...)
			return
		}
	}
}

// Voices returns how many voices are attached, playing or not.
func (r *Renderer) Voices() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.voices)
}

// Rendered returns how many frames have been mixed.
func (r *Renderer) Rendered() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Render mixes one frame. End handlers of voices that finished during the
// frame run after mixing, with no lock held.
func (r *Renderer) Render() []int16 {
	r.mu.Lock()
	voices := append([]*Voice(nil), r.voices...)
	r.frames++
	r.mu.Unlock()

	acc := make([]float64, FrameSamples)
	var ended []func()
	for _, v := range voices {
		if h := v.mixInto(acc); h != nil {
			ended = append(ended, h)
		}
	}
	for _, h := range ended {
		h()
	}
	return ClipFrame(acc)
}

// Run renders frames until ctx is cancelled. Blocks.
func (r *Renderer) Run(ctx context.Context) {
	defer close(r.frameCh)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	r.logger.Info("renderer started", "sample_rate", SampleRate, "frame", FrameDuration)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("renderer stopped", "frames", r.Rendered())
			return
		case <-ticker.C:
		}

		frame := r.Render()
		select {
		case r.frameCh <- frame:
		case <-ctx.Done():
			return
		}
	}
}

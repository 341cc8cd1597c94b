// Package audio is the server-side render backend: it decodes media files to
// PCM, exposes each decoded file as a media.Sound voice, and mixes every
// playing voice into fixed-size frames at real-time rate.
package audio

import (
	"context"
	"time"
)

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// Resolver turns a media URL into a local file path ready for decoding.
type Resolver func(ctx context.Context, url string) (string, error)

// Decoder turns a local file into interleaved stereo samples at SampleRate.
type Decoder func(ctx context.Context, path string) ([]int16, error)

func samplesToSeconds(n int) float64 {
	return float64(n/Channels) / SampleRate
}

func secondsToSamples(s float64) int {
	return int(s*SampleRate) * Channels
}

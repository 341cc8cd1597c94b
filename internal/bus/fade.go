package bus

import (
	"time"

	"github.com/satindergrewal/soundstage/internal/clock"
)

// Curve shapes fade progress; it maps [0,1] onto [0,1].
type Curve func(p float64) float64

// Linear is the identity curve.
func Linear(p float64) float64 { return p }

type fade struct {
	from, to float64
	start    time.Time
	dur      time.Duration
	timer    clock.Timer
	done     func()
}

// FadeTo ramps the volume to target over dur. Any fade already running on
// this bus is cancelled first and its onComplete never runs. onComplete runs
// once, after the full duration has elapsed.
func (b *Bus) FadeTo(target float64, dur time.Duration, onComplete func()) {
	b.cancelFade()
	if target < 0 {
		target = 0
	}
	if b.cur == nil || dur <= 0 || b.destroyed {
		b.SetVolume(target)
		if onComplete != nil {
			onComplete()
		}
		return
	}

	f := &fade{
		from:  b.volume,
		to:    target,
		start: b.clock.Now(),
		dur:   dur,
		done:  onComplete,
	}
	b.fade = f
	if target == 0 && b.state == Playing {
		b.state = FadingOut
	} else if target > 0 && b.state == FadingOut {
		b.state = Playing
	}
	b.scheduleStep(f)
}

func (b *Bus) scheduleStep(f *fade) {
	wait := b.step
	if remaining := f.dur - b.clock.Now().Sub(f.start); remaining < wait {
		wait = remaining
	}
	f.timer = b.clock.AfterFunc(wait, func() {
		b.exec(func() { b.stepFade(f) })
	})
}

func (b *Bus) stepFade(f *fade) {
	if b.fade != f || b.destroyed {
		return
	}
	p := float64(b.clock.Now().Sub(f.start)) / float64(f.dur)
	if p < 1 {
		b.SetVolume(f.from + (f.to-f.from)*b.curve(p))
		b.scheduleStep(f)
		return
	}

	b.fade = nil
	b.SetVolume(f.to)
	if b.state == FadingOut {
		b.state = Playing
	}
	if f.done != nil {
		f.done()
	}
}

// CancelFade abandons the running fade at its current level.
func (b *Bus) CancelFade() { b.cancelFade() }

func (b *Bus) cancelFade() {
	if b.fade == nil {
		return
	}
	if b.fade.timer != nil {
		b.fade.timer.Stop()
	}
	b.fade = nil
	if b.state == FadingOut {
		b.state = Playing
	}
}

// Fading reports whether a fade is running.
func (b *Bus) Fading() bool { return b.fade != nil }

// FadeTarget returns the running fade's target volume.
func (b *Bus) FadeTarget() (float64, bool) {
	if b.fade == nil {
		return 0, false
	}
	return b.fade.to, true
}

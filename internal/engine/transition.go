package engine

import (
	"slices"
	"time"

	"github.com/satindergrewal/soundstage/internal/bus"
	"github.com/satindergrewal/soundstage/internal/routes"
)

func (e *Engine) fadeOutDuration(speed Speed) time.Duration {
	if speed == SpeedSlow {
		return e.timing.SlowFadeOut
	}
	return e.timing.RouteFadeOut
}

func (e *Engine) ambienceFadeOut(speed Speed) time.Duration {
	if e.slowFadeAmbience {
		return e.fadeOutDuration(speed)
	}
	return e.timing.RouteFadeOut
}

// effective is master × channel volume × bus attenuation.
func (e *Engine) effective(s *slot) float64 {
	v := e.settings.MusicVolume
	if s == e.sfx {
		v = e.settings.SfxVolume
	}
	return e.settings.MasterVolume * v * s.attenuation
}

// request makes url the slot's target. Repeating the current target is a
// no-op. An audible bus is faded out first and the new resource started once
// it is silent; a later request replaces that continuation.
func (e *Engine) request(s *slot, url string, loop bool, out time.Duration) {
	if url == s.target {
		return
	}
	if url == "" {
		e.silence(s, out)
		return
	}
	s.target = url
	b := s.bus

	start := func() {
		if s.target != url {
			return
		}
		e.start(s, url, loop)
	}

	switch {
	case b.URL() == url && b.IsPlaying():
		// Back to the resource that is on its way out.
		e.abortFadeOut(s)
		b.FadeTo(e.effective(s), e.timing.FadeIn, nil)
	case s.outgoing || b.Active():
		e.fadeOut(s, out, start)
	default:
		b.Stop()
		start()
	}
}

func (e *Engine) start(s *slot, url string, loop bool) {
	b := s.bus
	if err := b.Load(url, bus.LoadOptions{Loop: loop}); err != nil {
		e.logger.Warn("audio load failed",
			"bus", s.name,
			"url", url,
			"error", err)
		s.target = ""
		return
	}
	b.SetVolume(0)
	b.Play()
	b.FadeTo(e.effective(s), e.timing.FadeIn, nil)
	e.logger.Debug("audio started", "bus", s.name, "url", url, "loop", loop)
}

// silence clears the slot's target and fades its bus out. The returned
// channel closes once the bus is silent and stopped, or once a later request
// brings the same resource back.
func (e *Engine) silence(s *slot, dur time.Duration) <-chan struct{} {
	done := make(chan struct{})
	s.target = ""
	if !s.outgoing && !s.bus.Active() {
		s.bus.Stop()
		close(done)
		return done
	}
	s.waiters = append(s.waiters, done)
	e.fadeOut(s, dur, nil)
	return done
}

// fadeOut fades the slot's bus to silence over dur and then runs next. When a
// fade-out is already running it keeps its timing and only next is replaced.
func (e *Engine) fadeOut(s *slot, dur time.Duration, next func()) {
	s.next = next
	if s.outgoing {
		return
	}
	s.outgoing = true
	s.bus.FadeTo(0, dur, func() { e.silenced(s) })
}

func (e *Engine) silenced(s *slot) {
	s.outgoing = false
	s.bus.Stop()
	next := s.next
	s.next = nil
	s.release()
	if next != nil {
		next()
	}
}

func (e *Engine) abortFadeOut(s *slot) {
	s.outgoing = false
	s.next = nil
	s.release()
}

func (e *Engine) applyMusic(out time.Duration) {
	if e.route == "" {
		return
	}
	m := e.table.ResolveMusic(e.route)
	if !slices.Equal(m.Tracks, e.playlist) {
		e.playlist = slices.Clone(m.Tracks)
		e.index = 0
		e.notifyTrackChange()
	}
	if !e.music.enabled {
		return
	}
	if len(e.playlist) == 0 {
		e.request(e.music, "", false, out)
		return
	}
	e.request(e.music, e.playlist[e.index].URL, len(e.playlist) == 1, out)
}

func (e *Engine) applyAmbience(out time.Duration) {
	if e.route == "" || !e.sfx.enabled {
		return
	}
	e.request(e.sfx, e.table.ResolveAmbience(e.route), true, out)
}

func (e *Engine) playIndex(i int) {
	n := len(e.playlist)
	if n <= 1 {
		return
	}
	e.index = ((i % n) + n) % n
	e.notifyTrackChange()
	if !e.music.enabled {
		return
	}
	e.request(e.music, e.playlist[e.index].URL, false, e.timing.RouteFadeOut)
}

// ChangeRoute moves both buses to the audio of route with the fast fade.
func (e *Engine) ChangeRoute(route string) {
	e.ChangeRouteWith(route, SpeedFast)
}

// ChangeRouteWith is ChangeRoute with an explicit fade-out speed. Music and
// ambience transition independently.
func (e *Engine) ChangeRouteWith(route string, speed Speed) {
	e.do(func() {
		e.route = routes.Normalize(route)
		e.logger.Debug("route change", "route", e.route, "speed", speed.String())
		e.applyMusic(e.fadeOutDuration(speed))
		e.applyAmbience(e.ambienceFadeOut(speed))
	})
}

// LeavePage fades the music bus out ahead of a page transition, slowly by
// default. The ambience bus follows only when configured to. The returned
// channel closes once the faded buses are silent.
func (e *Engine) LeavePage(speed Speed) <-chan struct{} {
	var chs []<-chan struct{}
	e.do(func() {
		chs = append(chs, e.silence(e.music, e.fadeOutDuration(speed)))
		if e.slowFadeAmbience {
			chs = append(chs, e.silence(e.sfx, e.fadeOutDuration(speed)))
		}
	})
	return join(chs...)
}

// StopAll fades both buses to silence. The returned channel closes once both
// fades have completed.
func (e *Engine) StopAll() <-chan struct{} {
	var chs []<-chan struct{}
	e.do(func() {
		chs = append(chs,
			e.silence(e.music, e.timing.ToggleFade),
			e.silence(e.sfx, e.timing.ToggleFade))
	})
	return join(chs...)
}

func join(chs ...<-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	if len(chs) == 0 {
		close(done)
		return done
	}
	go func() {
		for _, ch := range chs {
			<-ch
		}
		close(done)
	}()
	return done
}

// NextTrack advances the playlist, wrapping after the last track.
func (e *Engine) NextTrack() {
	e.do(func() { e.playIndex(e.index + 1) })
}

// PrevTrack steps back through the playlist, wrapping before the first track.
func (e *Engine) PrevTrack() {
	e.do(func() { e.playIndex(e.index - 1) })
}

// PlayTrack jumps to index i of the current playlist. Out-of-range indices
// are ignored.
func (e *Engine) PlayTrack(i int) {
	e.do(func() {
		if i < 0 || i >= len(e.playlist) {
			return
		}
		e.playIndex(i)
	})
}

// TogglePause pauses audible music, or resumes it. Resuming after the page
// changed underneath plays the current page's music instead.
func (e *Engine) TogglePause() {
	e.do(func() {
		s := e.music
		b := s.bus
		switch b.State() {
		case bus.Playing, bus.FadingOut, bus.Loading:
			e.abortFadeOut(s)
			b.Pause()
		case bus.Paused:
			if s.target != "" && b.URL() == s.target {
				b.SetVolume(e.effective(s))
				b.Play()
				return
			}
			s.target = ""
			e.applyMusic(e.timing.RouteFadeOut)
		default:
			s.target = ""
			e.applyMusic(e.timing.RouteFadeOut)
		}
	})
}

// Seek moves the music playhead.
func (e *Engine) Seek(seconds float64) {
	e.do(func() { e.music.bus.Seek(seconds) })
}

// SetRoutes swaps the route table and re-resolves the current route.
func (e *Engine) SetRoutes(t *routes.Table) {
	if t == nil {
		return
	}
	e.do(func() {
		e.table = t
		e.applyMusic(e.timing.RouteFadeOut)
		e.applyAmbience(e.timing.RouteFadeOut)
	})
}

package main

import (
	"time"

	"github.com/satindergrewal/soundstage/internal/audio"
	"github.com/satindergrewal/soundstage/internal/bus"
	"github.com/satindergrewal/soundstage/internal/config"
	"github.com/satindergrewal/soundstage/internal/engine"
	"github.com/satindergrewal/soundstage/internal/fader"
	"github.com/satindergrewal/soundstage/internal/gain"
	"github.com/satindergrewal/soundstage/internal/prefs"
)

func fadeCurve(name string) bus.Curve {
	if name == "smooth" {
		return audio.Smoothstep
	}
	return bus.Linear
}

func engineTiming(t config.Timing) engine.Timing {
	return engine.Timing{
		RouteFadeOut: config.Ms(t.RouteFadeOutMs),
		SlowFadeOut:  config.Ms(t.SlowFadeOutMs),
		FadeIn:       config.Ms(t.FadeInMs),
		ToggleFade:   config.Ms(t.ToggleFadeMs),
		TimeUpdate:   config.Ms(t.TimeUpdateMs),
		FadeStep:     config.Ms(t.FadeStepMs),
	}
}

func defaultSettings(d config.Defaults) prefs.Settings {
	return prefs.Settings{
		MusicVolume:  d.MusicVolume,
		SfxVolume:    d.SfxVolume,
		MasterVolume: d.MasterVolume,
		MusicEnabled: d.MusicEnabled,
		SfxEnabled:   d.SfxEnabled,
	}
}

func mixerScale(m config.Mixer) gain.MixerScale {
	return gain.MixerScale{UnityGain: m.UnityGain, MaxGain: m.MaxGain, MaxBoostDb: m.MaxBoostDb}
}

// faderConfigs returns the master, music and sfx fader configurations.
func faderConfigs(cfg *config.Config) (master, music, sfx fader.Config) {
	throttle := config.Ms(cfg.Timing.FaderThrottle)

	master = fader.MasterConfig()
	master.Mixer = mixerScale(cfg.Mixer)
	master.Throttle = throttle
	if m, err := fader.ParseMapping(cfg.Mixer.MasterMapping); err == nil {
		master.Mapping = m
	}

	music = fader.ChannelConfig()
	music.Throttle = throttle
	sfx = music
	return master, music, sfx
}

func fetchTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Audio.FetchTimeoutSeconds) * time.Second
}

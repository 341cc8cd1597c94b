package config

import (
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateMixer,
		c.validateDefaults,
		c.validateTiming,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

func (c *Config) validateServer() error {
	if c.Server.Addr == "" {
		return invalid("server.addr must be set")
	}
	if c.Paths.StateDir == "" {
		return invalid("paths.state_dir must be set")
	}
	if c.Audio.MaxDecodes < 1 {
		return invalid("audio.max_decodes must be at least 1")
	}
	if c.Audio.FetchTimeoutSeconds < 1 {
		return invalid("audio.fetch_timeout_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return invalid("logging.format %q must be console, json or auto", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateMixer() error {
	m := c.Mixer
	if !inRange(m.MusicAttenuation, 0, 1) {
		return invalid("mixer.music_attenuation must be between 0 and 1")
	}
	if !inRange(m.AmbienceAttenuation, 0, 1) {
		return invalid("mixer.ambience_attenuation must be between 0 and 1")
	}
	if math.IsNaN(m.MaxVolume) || m.MaxVolume < 1 {
		return invalid("mixer.max_volume must be at least 1")
	}
	switch m.FadeCurve {
	case "linear", "smooth":
	default:
		return invalid("mixer.fade_curve %q must be linear or smooth", m.FadeCurve)
	}
	switch m.MasterMapping {
	case "mixer", "decibel":
	default:
		return invalid("mixer.master_mapping %q must be mixer or decibel", m.MasterMapping)
	}
	if !(m.UnityGain > 0 && m.UnityGain <= m.MaxGain) {
		return invalid("mixer.unity_gain must be positive and not above mixer.max_gain")
	}
	if !(m.MaxBoostDb > 0) {
		return invalid("mixer.max_boost_db must be positive")
	}
	return nil
}

func (c *Config) validateDefaults() error {
	d := c.Defaults
	for name, v := range map[string]float64{
		"defaults.music_volume":  d.MusicVolume,
		"defaults.sfx_volume":    d.SfxVolume,
		"defaults.master_volume": d.MasterVolume,
	} {
		if !inRange(v, 0, c.Mixer.MaxVolume) {
			return invalid("%s must be between 0 and mixer.max_volume", name)
		}
	}
	return nil
}

func (c *Config) validateTiming() error {
	t := c.Timing
	for name, v := range map[string]int{
		"timing.route_fade_out_ms": t.RouteFadeOutMs,
		"timing.slow_fade_out_ms":  t.SlowFadeOutMs,
		"timing.fade_in_ms":        t.FadeInMs,
		"timing.toggle_fade_ms":    t.ToggleFadeMs,
	} {
		if v < 0 {
			return invalid("%s must not be negative", name)
		}
	}
	if t.TimeUpdateMs < 10 {
		return invalid("timing.time_update_ms must be at least 10")
	}
	if t.FadeStepMs < 1 {
		return invalid("timing.fade_step_ms must be at least 1")
	}
	if t.FaderThrottle < 1 {
		return invalid("timing.fader_throttle_ms must be at least 1")
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// Package config loads the server configuration: built-in defaults, then an
// optional TOML file, then SOUNDSTAGE_* environment overrides, then
// validation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// SampleConfig returns a commented configuration file with every default.
func SampleConfig() string { return sampleConfig }

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Server contains the HTTP listener settings.
type Server struct {
	Addr       string `toml:"addr"`
	StreamName string `toml:"stream_name"` // ICY name and WebRTC stream id
}

// Paths contains directory configuration.
type Paths struct {
	MediaDir   string `toml:"media_dir"`   // serves /audio/... site paths
	CacheDir   string `toml:"cache_dir"`   // remote downloads
	StateDir   string `toml:"state_dir"`   // preferences database and lock
	RoutesFile string `toml:"routes_file"` // empty uses the built-in table
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console, json or auto
}

// Mixer contains gain staging settings.
type Mixer struct {
	MusicAttenuation    float64 `toml:"music_attenuation"`
	AmbienceAttenuation float64 `toml:"ambience_attenuation"`
	MaxVolume           float64 `toml:"max_volume"`
	SlowFadeAmbience    bool    `toml:"slow_fade_ambience"`
	FadeCurve           string  `toml:"fade_curve"` // linear or smooth

	// Master fader mixer scale.
	MasterMapping string  `toml:"master_mapping"` // mixer or decibel
	UnityGain     float64 `toml:"unity_gain"`
	MaxGain       float64 `toml:"max_gain"`
	MaxBoostDb    float64 `toml:"max_boost_db"`
}

// Defaults are the preferences used before the listener changes anything.
type Defaults struct {
	MusicVolume  float64 `toml:"music_volume"`
	SfxVolume    float64 `toml:"sfx_volume"`
	MasterVolume float64 `toml:"master_volume"`
	MusicEnabled bool    `toml:"music_enabled"`
	SfxEnabled   bool    `toml:"sfx_enabled"`
}

// Timing contains fade and polling durations in milliseconds.
type Timing struct {
	RouteFadeOutMs int `toml:"route_fade_out_ms"`
	SlowFadeOutMs  int `toml:"slow_fade_out_ms"`
	FadeInMs       int `toml:"fade_in_ms"`
	ToggleFadeMs   int `toml:"toggle_fade_ms"`
	TimeUpdateMs   int `toml:"time_update_ms"`
	FadeStepMs     int `toml:"fade_step_ms"`
	FaderThrottle  int `toml:"fader_throttle_ms"`
}

// Audio contains render backend settings.
type Audio struct {
	MaxDecodes          int `toml:"max_decodes"`
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
}

// Config encapsulates all configuration values.
type Config struct {
	Server   Server   `toml:"server"`
	Paths    Paths    `toml:"paths"`
	Logging  Logging  `toml:"logging"`
	Mixer    Mixer    `toml:"mixer"`
	Defaults Defaults `toml:"defaults"`
	Timing   Timing   `toml:"timing"`
	Audio    Audio    `toml:"audio"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:       ":8080",
			StreamName: "soundstage",
		},
		Paths: Paths{
			MediaDir: "./media",
			CacheDir: "~/.cache/soundstage",
			StateDir: "~/.local/state/soundstage",
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
		Mixer: Mixer{
			MusicAttenuation:    1,
			AmbienceAttenuation: 0.35,
			MaxVolume:           1.26,
			FadeCurve:           "linear",
			MasterMapping:       "mixer",
			UnityGain:           0.9,
			MaxGain:             1,
			MaxBoostDb:          10,
		},
		Defaults: Defaults{
			MusicVolume:  0.8,
			SfxVolume:    0.5,
			MasterVolume: 0.9,
			MusicEnabled: true,
			SfxEnabled:   true,
		},
		Timing: Timing{
			RouteFadeOutMs: 300,
			SlowFadeOutMs:  4000,
			FadeInMs:       500,
			ToggleFadeMs:   500,
			TimeUpdateMs:   250,
			FadeStepMs:     50,
			FaderThrottle:  16,
		},
		Audio: Audio{
			MaxDecodes:          2,
			FetchTimeoutSeconds: 60,
		},
	}
}

// Load reads path, or ./soundstage.toml when path is empty and that file
// exists. It returns the resolved file path, which is empty when only
// defaults and environment were used.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if resolved != "" {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(expanded); err != nil {
			return "", fmt.Errorf("stat config: %w", err)
		}
		return expanded, nil
	}
	local, err := filepath.Abs("soundstage.toml")
	if err != nil {
		return "", err
	}
	info, err := os.Stat(local)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", nil
	}
	return local, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = envStr("SOUNDSTAGE_ADDR", c.Server.Addr)
	c.Server.StreamName = envStr("SOUNDSTAGE_STREAM_NAME", c.Server.StreamName)

	c.Paths.MediaDir = envStr("SOUNDSTAGE_MEDIA_DIR", c.Paths.MediaDir)
	c.Paths.CacheDir = envStr("SOUNDSTAGE_CACHE_DIR", c.Paths.CacheDir)
	c.Paths.StateDir = envStr("SOUNDSTAGE_STATE_DIR", c.Paths.StateDir)
	c.Paths.RoutesFile = envStr("SOUNDSTAGE_ROUTES_FILE", c.Paths.RoutesFile)

	c.Logging.Level = envStr("SOUNDSTAGE_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envStr("SOUNDSTAGE_LOG_FORMAT", c.Logging.Format)

	c.Mixer.AmbienceAttenuation = envFloat("SOUNDSTAGE_AMBIENCE_ATTENUATION", c.Mixer.AmbienceAttenuation)
	c.Mixer.MaxVolume = envFloat("SOUNDSTAGE_MAX_VOLUME", c.Mixer.MaxVolume)
	c.Mixer.SlowFadeAmbience = envBool("SOUNDSTAGE_SLOW_FADE_AMBIENCE", c.Mixer.SlowFadeAmbience)
	c.Mixer.FadeCurve = envStr("SOUNDSTAGE_FADE_CURVE", c.Mixer.FadeCurve)

	c.Timing.SlowFadeOutMs = envInt("SOUNDSTAGE_SLOW_FADE_OUT_MS", c.Timing.SlowFadeOutMs)
	c.Audio.MaxDecodes = envInt("SOUNDSTAGE_MAX_DECODES", c.Audio.MaxDecodes)
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.RoutesFile, err = expandPath(c.Paths.RoutesFile); err != nil {
		return fmt.Errorf("paths.routes_file: %w", err)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Mixer.FadeCurve = strings.ToLower(strings.TrimSpace(c.Mixer.FadeCurve))
	c.Mixer.MasterMapping = strings.ToLower(strings.TrimSpace(c.Mixer.MasterMapping))
	return nil
}

// EnsureDirectories creates the state and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PrefsPath is the SQLite preference database.
func (c *Config) PrefsPath() string {
	return filepath.Join(c.Paths.StateDir, "prefs.db")
}

// LockPath is the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "soundstage.lock")
}

// Ms converts a millisecond setting to a duration.
func Ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

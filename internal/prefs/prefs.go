// Package prefs persists the listener's mixer preferences: the enable flag
// of each bus and the music, sound-design and master volumes.
//
// Values travel through a plain string key-value Store so any backend can
// hold them; Load and the Save helpers own the (de)serialization.
package prefs

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrClosed is returned by a Store used after Close.
var ErrClosed = errors.New("preference store closed")

// Keys under which settings are stored.
const (
	KeyMusicEnabled = "music_enabled"
	KeySfxEnabled   = "sfx_enabled"
	KeyMusicVolume  = "music_volume"
	KeySfxVolume    = "sfx_volume"
	KeyMasterVolume = "master_volume"
)

// AllKeys lists every key in display order.
var AllKeys = []string{KeyMusicEnabled, KeySfxEnabled, KeyMusicVolume, KeySfxVolume, KeyMasterVolume}

// Store is a durable string key-value map.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Settings is the persisted mixer state.
type Settings struct {
	MusicVolume  float64 `json:"music_volume"`
	SfxVolume    float64 `json:"sfx_volume"`
	MasterVolume float64 `json:"master_volume"`
	MusicEnabled bool    `json:"music_enabled"`
	SfxEnabled   bool    `json:"sfx_enabled"`
}

// DefaultSettings has both buses enabled and master at mixer-scale unity.
func DefaultSettings() Settings {
	return Settings{
		MusicVolume:  0.8,
		SfxVolume:    0.5,
		MasterVolume: 0.9,
		MusicEnabled: true,
		SfxEnabled:   true,
	}
}

// Load reads settings from store, falling back to defaults for every key
// that is missing or unparsable. A store error aborts the load and returns
// defaults alongside the error.
func Load(store Store, defaults Settings) (Settings, error) {
	s := defaults
	var err error
	readFloat := func(key string, dst *float64) {
		if err != nil {
			return
		}
		raw, ok, getErr := store.Get(key)
		if getErr != nil {
			err = fmt.Errorf("read %s: %w", key, getErr)
			return
		}
		if !ok {
			return
		}
		if v, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil && v >= 0 {
			*dst = v
		}
	}
	readBool := func(key string, dst *bool) {
		if err != nil {
			return
		}
		raw, ok, getErr := store.Get(key)
		if getErr != nil {
			err = fmt.Errorf("read %s: %w", key, getErr)
			return
		}
		if !ok {
			return
		}
		if v, parseErr := strconv.ParseBool(raw); parseErr == nil {
			*dst = v
		}
	}

	readBool(KeyMusicEnabled, &s.MusicEnabled)
	readBool(KeySfxEnabled, &s.SfxEnabled)
	readFloat(KeyMusicVolume, &s.MusicVolume)
	readFloat(KeySfxVolume, &s.SfxVolume)
	readFloat(KeyMasterVolume, &s.MasterVolume)
	if err != nil {
		return defaults, err
	}
	return s, nil
}

// Save writes every field of s.
func Save(store Store, s Settings) error {
	pairs := [][2]string{
		{KeyMusicEnabled, FormatBool(s.MusicEnabled)},
		{KeySfxEnabled, FormatBool(s.SfxEnabled)},
		{KeyMusicVolume, FormatFloat(s.MusicVolume)},
		{KeySfxVolume, FormatFloat(s.SfxVolume)},
		{KeyMasterVolume, FormatFloat(s.MasterVolume)},
	}
	for _, p := range pairs {
		if err := store.Set(p[0], p[1]); err != nil {
			return fmt.Errorf("write %s: %w", p[0], err)
		}
	}
	return nil
}

// FormatFloat serializes a volume.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatBool serializes a flag.
func FormatBool(v bool) string {
	return strconv.FormatBool(v)
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

// Package routes maps site routes to the audio that should accompany them.
//
// Music for a route is a tagged variant: explicitly nothing, a single looping
// track, or a playlist. A route missing from the music table falls back to
// the home route's music unless it is a detail page, where a missing entry
// means silence. A route missing from the ambience table always falls back
// to the home route's ambience.
package routes

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidTable wraps every validation failure.
var ErrInvalidTable = errors.New("invalid route table")

// Track is one playable piece of music.
type Track struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
}

// Kind tags a Music value.
type Kind int

const (
	KindNone Kind = iota
	KindSingle
	KindPlaylist
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSingle:
		return "single"
	case KindPlaylist:
		return "playlist"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Music is what the music bus should play for a route.
type Music struct {
	Kind   Kind
	Tracks []Track
}

// None is explicit silence.
func None() Music { return Music{Kind: KindNone} }

// Single is one track played on loop.
func Single(t Track) Music { return Music{Kind: KindSingle, Tracks: []Track{t}} }

// Playlist plays tracks in order and wraps. One track degrades to Single and
// zero tracks to None.
func Playlist(tracks ...Track) Music {
	switch len(tracks) {
	case 0:
		return None()
	case 1:
		return Single(tracks[0])
	}
	return Music{Kind: KindPlaylist, Tracks: append([]Track(nil), tracks...)}
}

// Loop reports whether the music loops a single track.
func (m Music) Loop() bool { return m.Kind == KindSingle }

// Table is a read-only route mapping.
type Table struct {
	home           string
	detailPrefixes []string
	music          map[string]Music
	ambience       map[string]string
}

// Spec is the raw form of a Table.
type Spec struct {
	Home           string
	DetailPrefixes []string
	Music          map[string]Music
	Ambience       map[string]string
}

// New validates spec and builds a Table.
func New(spec Spec) (*Table, error) {
	home := Normalize(spec.Home)
	if strings.TrimSpace(spec.Home) == "" {
		home = "/"
	}
	t := &Table{
		home:     home,
		music:    make(map[string]Music, len(spec.Music)),
		ambience: make(map[string]string, len(spec.Ambience)),
	}
	for _, p := range spec.DetailPrefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		t.detailPrefixes = append(t.detailPrefixes, p)
	}

	for route, m := range spec.Music {
		key := Normalize(route)
		if _, dup := t.music[key]; dup {
			return nil, fmt.Errorf("%w: music route %q listed twice", ErrInvalidTable, key)
		}
		if err := validateTracks(key, m.Tracks); err != nil {
			return nil, err
		}
		t.music[key] = Playlist(m.Tracks...)
	}
	for route, url := range spec.Ambience {
		key := Normalize(route)
		url = strings.TrimSpace(url)
		if url == "" {
			return nil, fmt.Errorf("%w: ambience for %q has no url", ErrInvalidTable, key)
		}
		t.ambience[key] = url
	}
	return t, nil
}

func validateTracks(route string, tracks []Track) error {
	seen := make(map[string]bool, len(tracks))
	for i, tr := range tracks {
		if strings.TrimSpace(tr.ID) == "" {
			return fmt.Errorf("%w: track %d of %q has no id", ErrInvalidTable, i, route)
		}
		if strings.TrimSpace(tr.URL) == "" {
			return fmt.Errorf("%w: track %q of %q has no url", ErrInvalidTable, tr.ID, route)
		}
		if seen[tr.ID] {
			return fmt.Errorf("%w: track id %q repeated in %q", ErrInvalidTable, tr.ID, route)
		}
		seen[tr.ID] = true
	}
	return nil
}

// Normalize strips query and fragment, surrounding whitespace and a trailing
// slash, and guarantees a leading slash.
func Normalize(route string) string {
	route = strings.TrimSpace(route)
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	for len(route) > 1 && strings.HasSuffix(route, "/") {
		route = strings.TrimSuffix(route, "/")
	}
	return route
}

// Home returns the fallback route.
func (t *Table) Home() string { return t.home }

// IsDetail reports whether route is a detail page.
func (t *Table) IsDetail(route string) bool {
	route = Normalize(route)
	for _, p := range t.detailPrefixes {
		if strings.HasPrefix(route+"/", strings.TrimSuffix(p, "/")+"/") && route != Normalize(p) {
			return true
		}
	}
	return false
}

// ResolveMusic returns the music for route, applying the home fallback.
func (t *Table) ResolveMusic(route string) Music {
	route = Normalize(route)
	if m, ok := t.music[route]; ok {
		return m
	}
	if t.IsDetail(route) {
		return None()
	}
	if m, ok := t.music[t.home]; ok {
		return m
	}
	return None()
}

// ResolveAmbience returns the ambience URL for route, or "" when neither the
// route nor the home route has one.
func (t *Table) ResolveAmbience(route string) string {
	route = Normalize(route)
	if url, ok := t.ambience[route]; ok {
		return url
	}
	return t.ambience[t.home]
}

// MusicRoutes returns every route with a music entry, sorted.
func (t *Table) MusicRoutes() []string {
	return sortedKeys(t.music)
}

// AmbienceRoutes returns every route with an ambience entry, sorted.
func (t *Table) AmbienceRoutes() []string {
	return sortedKeys(t.ambience)
}

// Music returns the raw music entry for route without fallback.
func (t *Table) Music(route string) (Music, bool) {
	m, ok := t.music[Normalize(route)]
	return m, ok
}

// Ambience returns the raw ambience entry for route without fallback.
func (t *Table) Ambience(route string) (string, bool) {
	url, ok := t.ambience[Normalize(route)]
	return url, ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

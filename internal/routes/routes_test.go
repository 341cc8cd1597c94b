package routes

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// --- Normalize ---

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/", "/"},
		{"", "/"},
		{"//", "/"},
		{"/project/ma-short-film/", "/project/ma-short-film"},
		{"project/x", "/project/x"},
		{"/press-kit?ref=mail#top", "/press-kit"},
		{"  /contact  ", "/contact"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- Default table ---

func TestDefaultTableScenarios(t *testing.T) {
	tbl := Default()

	home := tbl.ResolveMusic("/")
	if home.Kind != KindSingle || home.Tracks[0].ID != "homepage" || home.Tracks[0].URL != "/audio/homepage.mp3" {
		t.Errorf("home music = %+v", home)
	}
	if !home.Loop() {
		t.Error("single track should loop")
	}
	if got := tbl.ResolveAmbience("/"); got != "/audio/vinyl.mp3" {
		t.Errorf("home ambience = %q", got)
	}

	idiot := tbl.ResolveMusic("/project/idiot-saratov-drama")
	if idiot.Kind != KindPlaylist || len(idiot.Tracks) != 4 || idiot.Loop() {
		t.Errorf("idiot music = %+v", idiot)
	}

	ma := tbl.ResolveMusic("/project/ma-short-film")
	if ma.Kind != KindNone {
		t.Errorf("ma music kind = %v, want none", ma.Kind)
	}
	if got := tbl.ResolveAmbience("/project/ma-short-film"); got != "/audio/vinyl.mp3" {
		t.Errorf("ma ambience = %q, want home fallback", got)
	}
}

func TestFallbackRules(t *testing.T) {
	tbl := Default()

	// Unknown non-detail page falls back to home music.
	if m := tbl.ResolveMusic("/contact"); m.Kind != KindSingle || m.Tracks[0].ID != "homepage" {
		t.Errorf("/contact music = %+v, want home fallback", m)
	}
	// Unknown detail page is silent.
	if m := tbl.ResolveMusic("/project/unknown"); m.Kind != KindNone {
		t.Errorf("/project/unknown music = %+v, want none", m)
	}
	// Route-specific ambience wins over the fallback.
	if got := tbl.ResolveAmbience("/press-kit/"); got != "/audio/room-tone.mp3" {
		t.Errorf("/press-kit ambience = %q", got)
	}
}

func TestIsDetail(t *testing.T) {
	tbl := Default()
	tests := []struct {
		route string
		want  bool
	}{
		{"/project/ma-short-film", true},
		{"/project/a/b", true},
		{"/project", false},
		{"/projects", false},
		{"/", false},
	}
	for _, tt := range tests {
		if got := tbl.IsDetail(tt.route); got != tt.want {
			t.Errorf("IsDetail(%q) = %v, want %v", tt.route, got, tt.want)
		}
	}
}

func TestNoHomeEntries(t *testing.T) {
	tbl, err := New(Spec{Home: "/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m := tbl.ResolveMusic("/anything"); m.Kind != KindNone {
		t.Errorf("music = %+v, want none", m)
	}
	if got := tbl.ResolveAmbience("/anything"); got != "" {
		t.Errorf("ambience = %q, want empty", got)
	}
}

// --- Playlist constructors ---

func TestPlaylistDegrades(t *testing.T) {
	if Playlist().Kind != KindNone {
		t.Error("empty playlist should be none")
	}
	if Playlist(Track{ID: "a", URL: "/a"}).Kind != KindSingle {
		t.Error("one-track playlist should be single")
	}
	if Playlist(Track{ID: "a", URL: "/a"}, Track{ID: "b", URL: "/b"}).Kind != KindPlaylist {
		t.Error("two-track playlist should be playlist")
	}
}

// --- Validation ---

func TestParseRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"duplicate ids", "music:\n  /:\n    - {id: a, url: /a.mp3}\n    - {id: a, url: /b.mp3}\n"},
		{"missing url", "music:\n  /:\n    - {id: a}\n"},
		{"missing id", "music:\n  /:\n    - {url: /a.mp3}\n"},
		{"empty ambience", "ambience:\n  /: \"\"\n"},
		{"duplicate normalized route", "music:\n  /x: []\n  /x/: []\n"},
		{"not yaml", "music: [unterminated"},
	}
	for _, tt := range tests {
		if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalidTable) {
			t.Errorf("%s: err = %v, want ErrInvalidTable", tt.name, err)
		}
	}
}

func TestDefaultTrackIDsUnique(t *testing.T) {
	tbl := Default()
	for _, route := range tbl.MusicRoutes() {
		m, _ := tbl.Music(route)
		seen := map[string]bool{}
		for _, tr := range m.Tracks {
			if seen[tr.ID] {
				t.Errorf("route %q repeats track %q", route, tr.ID)
			}
			seen[tr.ID] = true
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFile on missing file returned nil error")
	}
}

// --- Watch ---

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	if err := os.WriteFile(path, DefaultYAML(), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Table, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- Watch(ctx, path, slog.New(slog.DiscardHandler), func(t *Table) { got <- t })
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	updated := "ambience:\n  /: /audio/rain.mp3\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case tbl := <-got:
		if amb := tbl.ResolveAmbience("/"); amb != "/audio/rain.mp3" {
			t.Errorf("reloaded ambience = %q", amb)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

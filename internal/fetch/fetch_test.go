package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

// --- Share links ---

func TestRewriteShareLink(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{
			"https://www.dropbox.com/s/abc123/theme.mp3?dl=0",
			"https://dl.dropboxusercontent.com/s/abc123/theme.mp3",
		},
		{
			"https://www.dropbox.com/scl/fi/xyz/theme.mp3?rlkey=k9&dl=0",
			"https://dl.dropboxusercontent.com/scl/fi/xyz/theme.mp3?rlkey=k9",
		},
		{
			"https://drive.google.com/file/d/1AbC_dEf/view?usp=sharing",
			"https://drive.google.com/uc?export=download&id=1AbC_dEf",
		},
		{
			"https://drive.google.com/open?id=1AbC_dEf",
			"https://drive.google.com/uc?export=download&id=1AbC_dEf",
		},
		{"https://drive.google.com/drive/folders", "https://drive.google.com/drive/folders"},
		{"https://cdn.example.com/a.mp3", "https://cdn.example.com/a.mp3"},
		{"/audio/homepage.mp3", "/audio/homepage.mp3"},
	}
	for _, tt := range tests {
		if got := RewriteShareLink(tt.in); got != tt.want {
			t.Errorf("RewriteShareLink(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- Site paths ---

func TestResolveSitePath(t *testing.T) {
	media := t.TempDir()
	if err := os.MkdirAll(filepath.Join(media, "idiot"), 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(media, "idiot", "01.mp3")
	if err := os.WriteFile(want, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := New(Options{MediaDir: media})

	got, err := f.Resolve(context.Background(), "/audio/idiot/01.mp3?v=2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}

	for _, bad := range []string{"/audio/../../etc/passwd", "/other/a.mp3", "/audio/"} {
		if _, err := f.Resolve(context.Background(), bad); !errors.Is(err, ErrOutsideMedia) {
			t.Errorf("Resolve(%q) error = %v, want ErrOutsideMedia", bad, err)
		}
	}
	if _, err := f.Resolve(context.Background(), "/audio/missing.mp3"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}

// --- Remote cache ---

func TestFetchDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("ID3 fake mp3"))
	}))
	defer srv.Close()

	f := New(Options{CacheDir: filepath.Join(t.TempDir(), "cache"), Client: srv.Client()})
	url := srv.URL + "/tracks/theme.mp3"

	var wg sync.WaitGroup
	paths := make([]string, 4)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.Resolve(context.Background(), url)
			if err != nil {
				t.Errorf("Resolve: %v", err)
			}
			paths[i] = p
		}(i)
	}
	wg.Wait()

	if _, err := f.Fetch(context.Background(), url); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
	for _, p := range paths {
		if p != f.CachePath(url) {
			t.Errorf("path = %q, want %q", p, f.CachePath(url))
		}
	}
	if filepath.Ext(paths[0]) != ".mp3" {
		t.Errorf("cache path %q lost the extension", paths[0])
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || string(data) != "ID3 fake mp3" {
		t.Errorf("cached file = %q, %v", data, err)
	}
}

func TestFetchFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cache := t.TempDir()
	f := New(Options{CacheDir: cache, Client: srv.Client()})
	if _, err := f.Fetch(context.Background(), srv.URL+"/x.mp3"); err == nil {
		t.Fatal("Fetch of 404 returned nil error")
	}
	entries, _ := os.ReadDir(cache)
	if len(entries) != 0 {
		t.Errorf("cache holds %d entries after failed fetch", len(entries))
	}
}

func TestFetchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := New(Options{CacheDir: t.TempDir(), Client: srv.Client()})
	if _, err := f.Fetch(ctx, srv.URL+"/slow.mp3"); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch error = %v, want context.Canceled", err)
	}
}

func TestFetchWithoutCacheDir(t *testing.T) {
	f := New(Options{})
	if _, err := f.Fetch(context.Background(), "https://example.com/a.mp3"); err == nil {
		t.Error("Fetch without cache dir returned nil error")
	}
}

// Package fetch resolves media URLs to local files. Site paths map into the
// media directory; remote URLs, including Dropbox and Google Drive share
// links, are downloaded once into a cache directory.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrOutsideMedia is returned for site paths outside the media prefix.
var ErrOutsideMedia = errors.New("path outside media directory")

// RewriteShareLink turns a Dropbox or Google Drive share link into a direct
// download URL. Other URLs are returned unchanged.
func RewriteShareLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.ToLower(u.Host)
	switch {
	case host == "www.dropbox.com" || host == "dropbox.com":
		u.Host = "dl.dropboxusercontent.com"
		q := u.Query()
		q.Del("dl")
		q.Del("raw")
		u.RawQuery = q.Encode()
		return u.String()

	case host == "drive.google.com":
		id := driveFileID(u)
		if id == "" {
			return raw
		}
		return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(id)
	}
	return raw
}

// driveFileID handles /file/d/<id>/view and open?id=<id> forms.
func driveFileID(u *url.URL) string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "file" && parts[i+1] == "d" {
			return parts[i+2]
		}
	}
	return u.Query().Get("id")
}

// Options configures a Fetcher.
type Options struct {
	MediaDir   string // root for site paths like /audio/x.mp3
	SitePrefix string // URL prefix stripped before joining MediaDir, default "/audio/"
	CacheDir   string // remote downloads
	Timeout    time.Duration
	Client     *http.Client
	Logger     *slog.Logger
}

// Fetcher resolves media URLs to files on disk.
type Fetcher struct {
	mediaDir string
	prefix   string
	cacheDir string
	http     *http.Client
	logger   *slog.Logger
	group    singleflight.Group
}

// New creates a Fetcher. The cache directory is created on first download.
func New(opts Options) *Fetcher {
	if opts.SitePrefix == "" {
		opts.SitePrefix = "/audio/"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		mediaDir: opts.MediaDir,
		prefix:   opts.SitePrefix,
		cacheDir: opts.CacheDir,
		http:     opts.Client,
		logger:   opts.Logger.With("component", "fetch"),
	}
}

// Resolve returns a local path for rawURL: remote URLs are fetched, site
// paths are mapped under the media directory.
func (f *Fetcher) Resolve(ctx context.Context, rawURL string) (string, error) {
	if isRemote(rawURL) {
		return f.Fetch(ctx, rawURL)
	}
	return f.sitePath(rawURL)
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (f *Fetcher) sitePath(p string) (string, error) {
	if f.mediaDir == "" {
		return "", fmt.Errorf("resolve %s: no media directory", p)
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	rel, ok := strings.CutPrefix(path.Clean("/"+p), path.Clean(f.prefix)+"/")
	if !ok || rel == "" {
		return "", fmt.Errorf("resolve %s: %w", p, ErrOutsideMedia)
	}
	full := filepath.Join(f.mediaDir, filepath.FromSlash(rel))
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return full, nil
}

// CachePath returns where Fetch stores rawURL.
func (f *Fetcher) CachePath(rawURL string) string {
	direct := RewriteShareLink(rawURL)
	sum := sha256.Sum256([]byte(direct))
	ext := ""
	if u, err := url.Parse(direct); err == nil {
		ext = path.Ext(u.Path)
	}
	if len(ext) > 6 {
		ext = ""
	}
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:16])+ext)
}

// Fetch downloads rawURL into the cache unless it is already there and
// returns the cached path. Concurrent fetches of one URL share a download.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.cacheDir == "" {
		return "", fmt.Errorf("fetch %s: no cache directory", rawURL)
	}
	dst := f.CachePath(rawURL)
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}
	v, err, _ := f.group.Do(dst, func() (any, error) {
		if _, err := os.Stat(dst); err == nil {
			return dst, nil
		}
		return dst, f.download(ctx, RewriteShareLink(rawURL), dst)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *Fetcher) download(ctx context.Context, direct, dst string) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, direct, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", direct, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %s", direct, resp.Status)
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.cacheDir, "fetch-*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", direct, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("install %s: %w", dst, err)
	}
	f.logger.Info("fetched", "url", direct, "bytes", n, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

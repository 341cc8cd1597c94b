package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/satindergrewal/soundstage/internal/config"
	"github.com/satindergrewal/soundstage/internal/fader"
	"github.com/satindergrewal/soundstage/internal/prefs"
)

func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := "[paths]\n" +
		"state_dir = \"" + filepath.ToSlash(filepath.Join(dir, "state")) + "\"\n" +
		"cache_dir = \"" + filepath.ToSlash(filepath.Join(dir, "cache")) + "\"\n" + extra
	path := filepath.Join(dir, "soundstage.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// --- routes ---

func TestRoutesCommandListsDefaultTable(t *testing.T) {
	out, err := run(t, "--config", writeTestConfig(t, ""), "routes")
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	for _, want := range []string{"/ (home)", "idiot-overture", "playlist", "/audio/vinyl.mp3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRoutesResolve(t *testing.T) {
	out, err := run(t, "--config", writeTestConfig(t, ""), "routes",
		"--resolve", "/about/", "--resolve", "/project/unknown")
	if err != nil {
		t.Fatalf("routes --resolve: %v", err)
	}
	lines := strings.Split(out, "\n")
	var about, unknown string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "/about "):
			about = l
		case strings.Contains(l, "/project/unknown"):
			unknown = l
		}
	}
	if !strings.Contains(about, "homepage") {
		t.Errorf("/about should fall back to home music: %q", about)
	}
	if !strings.Contains(unknown, "true") || !strings.Contains(unknown, "none") {
		t.Errorf("unknown detail page should be silent: %q", unknown)
	}
}

func TestRoutesCommandRejectsBadFile(t *testing.T) {
	routesFile := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(routesFile, []byte("home: /\nmusic:\n  /:\n    - id: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := writeTestConfig(t, "routes_file = \""+filepath.ToSlash(routesFile)+"\"\n")
	if _, err := run(t, "--config", cfg, "routes"); err == nil {
		t.Error("routes accepted a track with no url")
	}
}

// --- ruler ---

func TestRulerCommand(t *testing.T) {
	out, err := run(t, "--config", writeTestConfig(t, ""), "ruler", "master")
	if err != nil {
		t.Fatalf("ruler: %v", err)
	}
	for _, want := range []string{"+10", "-∞", "unity", "0.9000", "1.0000"} {
		if !strings.Contains(out, want) {
			t.Errorf("master ruler missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, "--config", writeTestConfig(t, ""), "ruler", "aux"); err == nil {
		t.Error("ruler accepted an unknown channel")
	}
}

func TestFaderConfigsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Mixer.MasterMapping = "decibel"
	cfg.Mixer.UnityGain = 0.8
	cfg.Timing.FaderThrottle = 32

	master, music, sfx := faderConfigs(&cfg)
	if master.Mapping != fader.Decibel || master.Mixer.UnityGain != 0.8 {
		t.Errorf("master = %+v", master)
	}
	if music.Throttle != 32_000_000 || sfx.Throttle != music.Throttle {
		t.Errorf("throttle music=%v sfx=%v, want 32ms", music.Throttle, sfx.Throttle)
	}
	if music.Headroom || !master.Headroom {
		t.Error("only the master fader has headroom")
	}
}

// --- prefs ---

func TestPrefsShowAndReset(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	cfg, _, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store, err := prefs.OpenSQLite(cfg.PrefsPath())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(prefs.KeyMusicEnabled, "false"); err != nil {
		t.Fatal(err)
	}
	store.Close()

	out, err := run(t, "--config", cfgPath, "prefs", "show")
	if err != nil {
		t.Fatalf("prefs show: %v", err)
	}
	if !strings.Contains(out, "music_enabled") || !strings.Contains(out, "false") {
		t.Errorf("prefs show missing stored value:\n%s", out)
	}

	if _, err := run(t, "--config", cfgPath, "prefs", "reset"); err != nil {
		t.Fatalf("prefs reset: %v", err)
	}
	out, err = run(t, "--config", cfgPath, "prefs", "show")
	if err != nil {
		t.Fatalf("prefs show: %v", err)
	}
	if !strings.Contains(out, "(none stored)") {
		t.Errorf("prefs not cleared:\n%s", out)
	}
}

// --- config ---

func TestConfigInitSkipsBrokenConfig(t *testing.T) {
	broken := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(broken, []byte("[mixer\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(t.TempDir(), "new.toml")

	if _, err := run(t, "--config", broken, "config", "init", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != config.SampleConfig() {
		t.Errorf("written config differs from sample (err %v)", err)
	}
	if _, err := run(t, "config", "init", target); err == nil {
		t.Error("config init overwrote an existing file without --force")
	}
	if _, err := run(t, "--config", broken, "routes"); err == nil {
		t.Error("routes ran with a broken config")
	}
}

func TestConfigShow(t *testing.T) {
	cfgPath := writeTestConfig(t, "[server]\naddr = \":9999\"\n")
	out, err := run(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "loaded from") || !strings.Contains(out, ":9999") {
		t.Errorf("config show output:\n%s", out)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/satindergrewal/soundstage/internal/api"
	"github.com/satindergrewal/soundstage/internal/audio"
	"github.com/satindergrewal/soundstage/internal/config"
	"github.com/satindergrewal/soundstage/internal/engine"
	"github.com/satindergrewal/soundstage/internal/fetch"
	"github.com/satindergrewal/soundstage/internal/prefs"
	"github.com/satindergrewal/soundstage/internal/routes"
	"github.com/satindergrewal/soundstage/internal/stream"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine and stream the mix over HTTP and WebRTC",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if ctx.configPath != "" {
				logger.Info("config loaded", "path", ctx.configPath)
			}
			table, err := ctx.routeTable()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, table, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config, table *routes.Table, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another soundstage instance is already running")
	}
	defer lock.Unlock()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := prefs.OpenSQLite(cfg.PrefsPath())
	if err != nil {
		return err
	}
	defer store.Close()

	renderer := audio.NewRenderer(logger)
	fetcher := fetch.New(fetch.Options{
		MediaDir: cfg.Paths.MediaDir,
		CacheDir: cfg.Paths.CacheDir,
		Timeout:  fetchTimeout(cfg),
		Logger:   logger,
	})
	loader := audio.NewLoader(ctx, renderer, audio.LoaderOptions{
		Resolve:    fetcher.Resolve,
		MaxDecodes: cfg.Audio.MaxDecodes,
		Logger:     logger,
	})

	eng, err := engine.New(engine.Options{
		Routes:              table,
		Loader:              loader,
		Store:               store,
		Defaults:            defaultSettings(cfg.Defaults),
		Logger:              logger,
		Timing:              engineTiming(cfg.Timing),
		Curve:               fadeCurve(cfg.Mixer.FadeCurve),
		MusicAttenuation:    cfg.Mixer.MusicAttenuation,
		AmbienceAttenuation: cfg.Mixer.AmbienceAttenuation,
		MaxVolume:           cfg.Mixer.MaxVolume,
		SlowFadeAmbience:    cfg.Mixer.SlowFadeAmbience,
	})
	if err != nil {
		return err
	}
	defer eng.Destroy()

	cancelLog := eng.Subscribe(engine.Listener{
		OnTrackChange: func(index int, playlist []routes.Track) {
			if index >= 0 && index < len(playlist) {
				logger.Info("track changed", "index", index, "id", playlist[index].ID, "title", playlist[index].Title)
			}
		},
		OnPlaybackStateChange: func(playing bool) {
			logger.Debug("playback state", "playing", playing)
		},
	})
	defer cancelLog()

	broadcaster := stream.NewBroadcaster()
	go renderer.Run(ctx)
	go broadcaster.Run(ctx, renderer.Frames())

	webrtcHandler := stream.NewWebRTCHandler(broadcaster, cfg.Server.StreamName, logger)
	defer webrtcHandler.Close()

	master, music, sfx := faderConfigs(cfg)
	handler := api.New(api.Options{
		Engine:      eng,
		Broadcaster: broadcaster,
		Stream:      stream.NewHTTPHandler(broadcaster, cfg.Server.StreamName, logger),
		Offer:       webrtcHandler,
		Master:      master,
		Music:       music,
		Sfx:         sfx,
		Logger:      logger,
	})

	if cfg.Paths.RoutesFile != "" {
		go func() {
			err := routes.Watch(ctx, cfg.Paths.RoutesFile, logger, eng.SetRoutes)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("route watcher stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
		}
	}()

	logger.Info("soundstage live", "addr", cfg.Server.Addr, "media", cfg.Paths.MediaDir, "prefs", store.Path())
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

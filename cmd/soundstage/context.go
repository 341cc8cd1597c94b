package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/satindergrewal/soundstage/internal/config"
	"github.com/satindergrewal/soundstage/internal/logging"
	"github.com/satindergrewal/soundstage/internal/routes"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configPath, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
}

// routeTable returns the configured table, or the built-in one.
func (c *commandContext) routeTable() (*routes.Table, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Paths.RoutesFile == "" {
		return routes.Default(), nil
	}
	return routes.LoadFile(cfg.Paths.RoutesFile)
}

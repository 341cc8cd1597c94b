package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/soundstage/internal/config"
	"github.com/satindergrewal/soundstage/internal/prefs"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect or reset stored listener preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show stored preferences and the settings they produce",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := openPrefs(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			settings, err := prefs.Load(store, defaultSettings(cfg.Defaults))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderPrefs(entries))
			fmt.Fprintln(out, renderSettings(settings))
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete stored preferences so defaults apply on next start",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openPrefs(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preferences cleared: %s\n", store.Path())
			return nil
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}

func openPrefs(ctx *commandContext) (*prefs.SQLite, *config.Config, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}
	store, err := prefs.OpenSQLite(cfg.PrefsPath())
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func renderPrefs(entries []prefs.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Key, e.Value, e.UpdatedAt})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{"(none stored)", "", ""})
	}
	return renderTable([]string{"Key", "Stored", "Updated"}, rows, nil)
}

func renderSettings(s prefs.Settings) string {
	rows := [][]string{
		{prefs.KeyMasterVolume, prefs.FormatFloat(s.MasterVolume)},
		{prefs.KeyMusicVolume, prefs.FormatFloat(s.MusicVolume)},
		{prefs.KeySfxVolume, prefs.FormatFloat(s.SfxVolume)},
		{prefs.KeyMusicEnabled, prefs.FormatBool(s.MusicEnabled)},
		{prefs.KeySfxEnabled, prefs.FormatBool(s.SfxEnabled)},
	}
	return renderTable([]string{"Setting", "Effective"}, rows, []columnAlignment{alignLeft, alignRight})
}

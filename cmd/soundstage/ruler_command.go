package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/soundstage/internal/fader"
	"github.com/satindergrewal/soundstage/internal/gain"
)

func newRulerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "ruler [master|music|sfx]",
		Short:     "Show the dB ruler of a fader",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"master", "music", "sfx"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			channel := "master"
			if len(args) == 1 {
				channel = args[0]
			}
			master, music, sfx := faderConfigs(cfg)
			var fc fader.Config
			switch channel {
			case "master":
				fc = master
			case "music":
				fc = music
			case "sfx":
				fc = sfx
			default:
				return fmt.Errorf("unknown channel %q (want master, music or sfx)", channel)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuler(fc))
			return nil
		},
	}
}

func renderRuler(fc fader.Config) string {
	ticks := fader.New(fc, nil, nil).Ticks()
	rows := make([][]string, 0, len(ticks))
	for _, t := range ticks {
		g := "0"
		if !t.IsInfinity {
			f := fader.New(fc, nil, nil)
			f.MoveTo(gain.DbToPosition(t.Value, fc.Scale))
			g = strconv.FormatFloat(f.Gain(), 'f', 4, 64)
		}
		mark := ""
		if t.IsZeroDb {
			mark = "unity"
		}
		rows = append(rows, []string{
			t.Label,
			strconv.FormatFloat(t.Position, 'f', 1, 64) + "%",
			g,
			mark,
		})
	}
	return renderTable([]string{"dB", "Position", "Gain", ""}, rows, []columnAlignment{alignRight, alignRight, alignRight, alignLeft})
}

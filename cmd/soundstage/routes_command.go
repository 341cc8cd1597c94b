package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/soundstage/internal/routes"
)

func newRoutesCommand(ctx *commandContext) *cobra.Command {
	var resolve []string
	var dump bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Show the route to audio table",
		Long: "Show every route with music or ambience. With --resolve, show what each " +
			"given route plays after fallbacks are applied.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dump {
				_, err := cmd.OutOrStdout().Write(routes.DefaultYAML())
				return err
			}
			table, err := ctx.routeTable()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resolve) > 0 {
				fmt.Fprintln(out, renderResolution(table, resolve))
				return nil
			}
			fmt.Fprintln(out, renderRoutes(table))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&resolve, "resolve", nil, "Routes to resolve (repeatable)")
	cmd.Flags().BoolVar(&dump, "default-yaml", false, "Print the built-in table as YAML")
	return cmd
}

func renderRoutes(table *routes.Table) string {
	seen := map[string]bool{}
	var keys []string
	for _, r := range append(table.MusicRoutes(), table.AmbienceRoutes()...) {
		if !seen[r] {
			seen[r] = true
			keys = append(keys, r)
		}
	}

	rows := make([][]string, 0, len(keys))
	for _, route := range keys {
		kind, tracks := "-", "-"
		if m, ok := table.Music(route); ok {
			kind = m.Kind.String()
			tracks = trackList(m)
		}
		ambience, _ := table.Ambience(route)
		if ambience == "" {
			ambience = "-"
		}
		name := route
		if route == table.Home() {
			name += " (home)"
		}
		rows = append(rows, []string{name, kind, tracks, ambience})
	}
	return renderTable([]string{"Route", "Music", "Tracks", "Ambience"}, rows, nil)
}

func renderResolution(table *routes.Table, input []string) string {
	rows := make([][]string, 0, len(input))
	for _, raw := range input {
		route := routes.Normalize(raw)
		m := table.ResolveMusic(route)
		ambience := table.ResolveAmbience(route)
		if ambience == "" {
			ambience = "-"
		}
		rows = append(rows, []string{
			route,
			strconv.FormatBool(table.IsDetail(route)),
			m.Kind.String(),
			trackList(m),
			ambience,
		})
	}
	return renderTable([]string{"Route", "Detail", "Music", "Tracks", "Ambience"}, rows, nil)
}

func trackList(m routes.Music) string {
	if len(m.Tracks) == 0 {
		return "-"
	}
	ids := make([]string, len(m.Tracks))
	for i, t := range m.Tracks {
		ids[i] = t.ID
	}
	return strings.Join(ids, ", ")
}

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mac-app-monitor/internal/cache"
)

var errMemoryStore = errors.New("cache commands need DATABASE.type sqlite; the memory store lives only for one run")

// cachePrefixes 为可管理的存储分区。
var cachePrefixes = []struct {
	name   string
	prefix string
}{
	{"rankings", cache.RankingPrefix},
	{"details", cache.DetailPrefix},
	{"settings", cache.SettingsKey},
}

func newCacheCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspects or clears the persistent cache.",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Prints key counts and sizes per cache partition.",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			if a.sqlite == nil {
				return errMemoryStore
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Partition", "Keys", "Bytes", "Last write"})
			for _, p := range cachePrefixes {
				st, err := a.sqlite.Stats(cmd.Context(), p.prefix)
				if err != nil {
					return err
				}
				last := "-"
				if !st.UpdatedAt.IsZero() {
					last = st.UpdatedAt.Local().Format(time.DateTime)
				}
				t.AppendRow(table.Row{p.name, st.Keys, st.Bytes, last})
			}
			t.Render()
			return nil
		}),
	}

	var all bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Removes cached rankings and details; --all also resets preferences.",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			if a.sqlite == nil {
				return errMemoryStore
			}
			prefixes := []string{cache.RankingPrefix, cache.DetailPrefix}
			if all {
				prefixes = []string{""}
			}
			var total int64
			for _, p := range prefixes {
				n, err := a.sqlite.Reset(cmd.Context(), p)
				if err != nil {
					return err
				}
				total += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys\n", total)
			return nil
		}),
	}
	clearCmd.Flags().BoolVar(&all, "all", false, "remove every key including saved preferences")

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Removes cached rankings and details older than --older-than.",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			if a.sqlite == nil {
				return errMemoryStore
			}
			before := time.Now().Add(-olderThan)
			var total int64
			for _, p := range []string{cache.RankingPrefix, cache.DetailPrefix} {
				n, err := a.sqlite.Prune(cmd.Context(), p, before)
				if err != nil {
					return err
				}
				total += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d keys\n", total)
			return nil
		}),
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age threshold")

	cmd.AddCommand(stats, clearCmd, prune)
	return cmd
}

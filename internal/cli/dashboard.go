package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mac-app-monitor/internal/export"
	"mac-app-monitor/internal/logx"
	"mac-app-monitor/internal/model"
)

func newDashboardCmd(opts *options) *cobra.Command {
	var (
		country    string
		genre      string
		progress   bool
		exportPath string
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Loads every ranking section concurrently and prints them.",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			genreID, err := parseGenre(genre)
			if err != nil {
				return err
			}
			cc := a.country(country)
			w := cmd.OutOrStdout()
			// 导出到 stdout 时只输出 JSON
			tables := exportPath != "-"

			var onProgress func(model.Section)
			if progress && tables {
				onProgress = func(s model.Section) { renderSection(w, s) }
			}
			sections := a.mon.LoadSections(cmd.Context(), cc, genreID, onProgress)
			if !progress && tables {
				for _, s := range sections {
					renderSection(w, s)
				}
			}

			if exportPath != "" {
				prefs := a.mon.Preferences()
				prefs.Country = cc
				if err := export.ToJSON(sections, prefs, exportPath, w); err != nil {
					return err
				}
				logx.Infof("已导出 %s", exportPath)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&country, "country", "c", "", "storefront country code (defaults to the saved preference)")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "genre id or slug; games sections are only loaded without a genre")
	cmd.Flags().BoolVar(&progress, "progress", false, "print each section as soon as it settles")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the merged sections as JSON to this path (- for stdout)")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	var (
		country string
		genre   string
		tick    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reloads the dashboard whenever the preferred refresh interval has elapsed.",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			genreID, err := parseGenre(genre)
			if err != nil {
				return err
			}
			if tick <= 0 {
				return fmt.Errorf("tick must be positive")
			}
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			ticker := time.NewTicker(tick)
			defer ticker.Stop()

			var lastSync time.Time
			for {
				if now := time.Now(); a.mon.Due(lastSync, now) {
					cc := a.country(country)
					logx.Infof("开始刷新：%s 间隔=%s", cc, a.mon.Preferences().RefreshInterval)
					renderSummary(w, a.mon.LoadSections(ctx, cc, genreID, nil))
					lastSync = now
				}
				select {
				case <-ctx.Done():
					a.mon.Cancel()
					return nil
				case <-ticker.C:
				}
			}
		}),
	}
	cmd.Flags().StringVarP(&country, "country", "c", "", "storefront country code (defaults to the saved preference)")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "genre id or slug")
	cmd.Flags().DurationVar(&tick, "tick", time.Minute, "how often to check whether a refresh is due")
	return cmd
}

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"mac-app-monitor/internal/model"
)

func newPrefsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Shows or changes the saved preferences.",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Prints the current preferences.",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			renderPrefs(cmd.OutOrStdout(), a.mon.Preferences())
			return nil
		}),
	}

	var patch struct {
		interval time.Duration
		language string
		country  string
	}
	set := &cobra.Command{
		Use:   "set",
		Short: "Updates the given preference fields; omitted fields keep their value.",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			p, err := a.mon.UpdatePreferences(cmd.Context(), model.Preferences{
				RefreshInterval: patch.interval,
				Language:        patch.language,
				Country:         patch.country,
			})
			if err != nil {
				return err
			}
			renderPrefs(cmd.OutOrStdout(), p)
			return nil
		}),
	}
	set.Flags().DurationVar(&patch.interval, "interval", 0, "dashboard refresh interval: 1h, 6h, 12h or 24h")
	set.Flags().StringVar(&patch.language, "language", "", "display language: en or zh")
	set.Flags().StringVar(&patch.country, "country", "", "default storefront country code")

	cmd.AddCommand(show, set)
	return cmd
}

package cli

import (
	"github.com/spf13/cobra"

	"mac-app-monitor/internal/model"
)

func newSectionCmd(opts *options) *cobra.Command {
	var (
		country string
		genre   string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "section <type>",
		Short: "Prints a single ranking section (top-free, top-paid, top-grossing, top-free-games, top-paid-games).",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(cmd *cobra.Command, args []string, a *app) error {
			t, err := model.ParseSectionType(args[0])
			if err != nil {
				return err
			}
			genreID, err := parseGenre(genre)
			if err != nil {
				return err
			}
			s, err := a.mon.LoadSection(cmd.Context(), a.country(country), t, genreID, force)
			if err != nil {
				return err
			}
			renderSection(cmd.OutOrStdout(), s)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&country, "country", "c", "", "storefront country code (defaults to the saved preference)")
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "genre id or slug, e.g. 6002 or utilities")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the ranking cache")
	return cmd
}

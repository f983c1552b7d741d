package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDetailCmd(opts *options) *cobra.Command {
	var country string
	cmd := &cobra.Command{
		Use:   "detail <appId>",
		Short: "Prints the store details of one app.",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(cmd *cobra.Command, args []string, a *app) error {
			d, found, err := a.mon.LoadAppDetail(cmd.Context(), args[0], a.country(country))
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("app %s not found", args[0])
			}
			renderDetail(cmd.OutOrStdout(), d)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&country, "country", "c", "", "storefront country code (defaults to the saved preference)")
	return cmd
}

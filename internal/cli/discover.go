package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mac-app-monitor/internal/apple"
	"mac-app-monitor/internal/discover"
	"mac-app-monitor/internal/logx"
	"mac-app-monitor/internal/model"
)

func newDiscoverCmd(opts *options) *cobra.Command {
	var (
		country string
		label   string
		lookup  bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Debugs the store page scrape: prints the chart links found, the app ids extracted and the scraped sections.",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(cmd *cobra.Command, _ []string, a *app) error {
			ctx := cmd.Context()
			cc := strings.ToLower(a.country(country))
			w := cmd.OutOrStdout()

			anchor, types, labels := a.rules.Labels(cc)
			if label != "" {
				types = []model.SectionType{""}
				labels = map[model.SectionType]string{"": label}
			}
			if len(types) == 0 {
				return fmt.Errorf("no scrape labels configured for %s", cc)
			}

			pageURL := apple.DiscoverURL(cc)
			page, err := a.fetcher.FetchText(ctx, pageURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s  %q\n", pageURL, discover.Title(page))

			total := 0
			for _, t := range types {
				href := discover.FindLinkWith(page, pageURL, labels[t], anchor)
				if href == "" {
					logx.Warnf("未找到榜单链接：%q，请检查 rules.yaml 中的标签与选择器。", labels[t])
					continue
				}
				listing, err := a.fetcher.FetchText(ctx, href)
				if err != nil {
					logx.Errorf("榜单页获取失败：%s 错误=%v", href, err)
					continue
				}
				refs := discover.ExtractAppIDs(listing, cc, href)
				total += len(refs)

				tw := newTable(w)
				tw.SetTitle(fmt.Sprintf("%s → %s", labels[t], href))
				tw.AppendHeader(table.Row{"#", "ID", "URL"})
				for i, r := range refs {
					tw.AppendRow(table.Row{i + 1, r.ID, r.URL})
				}
				tw.AppendFooter(table.Row{"", fmt.Sprintf("%d ids", len(refs))})
				tw.Render()
			}
			if total == 0 {
				logx.Warnf("未提取到任何应用 id。")
			}

			if lookup {
				sections, err := a.mon.LoadWebSections(ctx, cc)
				if err != nil {
					return err
				}
				for _, s := range sections {
					renderSection(w, s)
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&country, "country", "c", "", "storefront country code (defaults to the saved preference)")
	cmd.Flags().StringVarP(&label, "label", "l", "", "look up a single link label instead of the configured ones")
	cmd.Flags().BoolVar(&lookup, "lookup", false, "also look up the extracted apps and print the scraped sections")
	return cmd
}

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mac-app-monitor/internal/model"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// renderSection 输出一个榜单；失败的榜单仍然输出标题与错误信息。
func renderSection(w io.Writer, s model.Section) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s (%s)", s.Title, s.Type))
	t.AppendHeader(table.Row{"#", "Name", "Developer", "Category", "Price", "ID"})
	for _, it := range s.Items {
		t.AppendRow(table.Row{it.Rank, truncate(it.Name, 40), truncate(it.DeveloperName, 28), it.CategoryLabel, it.PriceLabel, it.ID})
	}
	footer := fmt.Sprintf("%d apps", len(s.Items))
	if s.Source != "" {
		footer += " · " + s.Source
	}
	if !s.UpdatedAt.IsZero() {
		footer += " · " + s.UpdatedAt.Local().Format(time.DateTime)
	}
	t.AppendFooter(table.Row{"", footer})
	if s.Error != "" {
		t.AppendFooter(table.Row{"", "error: " + s.Error})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	t.Render()
}

// renderSummary 输出多个榜单的概况（定时刷新模式）。
func renderSummary(w io.Writer, sections []model.Section) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Section", "Title", "Apps", "Source", "#1", "Error"})
	for _, s := range sections {
		top := ""
		if len(s.Items) > 0 {
			top = truncate(s.Items[0].Name, 32)
		}
		t.AppendRow(table.Row{s.Type, s.Title, len(s.Items), s.Source, top, s.Error})
	}
	t.Render()
}

func renderDetail(w io.Writer, d model.AppDetail) {
	t := newTable(w)
	t.SetTitle(d.TrackName)
	rows := []table.Row{
		{"ID", d.TrackID},
		{"Seller", d.SellerName},
		{"Category", d.PrimaryGenreName},
		{"Genres", strings.Join(d.Genres, ", ")},
		{"Price", d.PriceLabel()},
		{"Rating", fmt.Sprintf("%.1f (%d)", d.AverageUserRating, d.UserRatingCount)},
		{"Version", d.Version},
		{"Released", d.CurrentVersionReleaseDate},
		{"Minimum OS", d.MinimumOSVersion},
		{"Bundle", d.BundleID},
		{"Store", d.TrackViewURL},
		{"Screenshots", len(d.ScreenshotURLs)},
	}
	t.AppendRows(rows)
	t.Render()
	if desc := strings.TrimSpace(d.Description); desc != "" {
		fmt.Fprintln(w, truncate(desc, 600))
	}
}

func renderPrefs(w io.Writer, p model.Preferences) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Key", "Value"})
	t.AppendRows([]table.Row{
		{"refresh-interval", p.RefreshInterval},
		{"language", p.Language},
		{"country", p.Country},
	})
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

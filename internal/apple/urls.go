// 包 apple 汇总上游端点：RSS 排行榜、iTunes Lookup、商店发现页，
// 以及榜单名称映射与商店链接的规范化。
package apple

import (
	"fmt"
	"net/url"
	"strings"

	"mac-app-monitor/internal/model"
)

const (
	RSSBase      = "https://itunes.apple.com"
	LookupBase   = "https://itunes.apple.com/lookup"
	StoreBase    = "https://" + StoreHost
	StoreHost    = "apps.apple.com"
	RankingLimit = 50

	// GamesGenreID 为 Mac 游戏分类，游戏榜单借助它从基础榜单派生。
	GamesGenreID = 6014

	// platformQualifier 追加到所有商店链接，保证打开 Mac 版页面。
	platformQualifier = "platform=mac"
)

// Format 为 RSS 响应格式。
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// chart 描述榜单类型对应的 RSS 名称与隐含分类。
type chart struct {
	name  string
	genre int
}

var charts = map[model.SectionType]chart{
	model.TopFree:      {name: "topfreemacapps"},
	model.TopPaid:      {name: "toppaidmacapps"},
	model.TopGrossing:  {name: "topgrossingmacapps"},
	model.NewApps:      {name: "topmacapps"},
	model.NewFree:      {name: "topfreemacapps"},
	model.NewPaid:      {name: "toppaidmacapps"},
	model.TopFreeGames: {name: "topfreemacapps", genre: GamesGenreID},
	model.TopPaidGames: {name: "toppaidmacapps", genre: GamesGenreID},
}

// ChartName 返回榜单在 RSS 中的名称。
func ChartName(t model.SectionType) (string, bool) {
	c, ok := charts[t]
	return c.name, ok
}

// RankingURL 构造排行榜地址：
// https://itunes.apple.com/{country}/rss/{chart}/limit=50[/genre={id}]/{json|xml}
// 游戏榜单自带分类，genreID 仅作用于非游戏榜单。
func RankingURL(country string, t model.SectionType, genreID int, format Format) (string, error) {
	c, ok := charts[t]
	if !ok {
		return "", fmt.Errorf("unsupported section type: %s", t)
	}
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return "", fmt.Errorf("country code required")
	}
	if format == "" {
		format = FormatJSON
	}
	genre := c.genre
	if genre == 0 {
		genre = genreID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s/rss/%s/limit=%d", RSSBase, country, c.name, RankingLimit)
	if genre > 0 {
		fmt.Fprintf(&b, "/genre=%d", genre)
	}
	b.WriteString("/")
	b.WriteString(string(format))
	return b.String(), nil
}

// LookupURL 构造 iTunes Lookup 地址（限定 macSoftware 实体）。
func LookupURL(appID, country string) string {
	q := url.Values{}
	q.Set("id", appID)
	q.Set("country", strings.ToLower(country))
	q.Set("entity", "macSoftware")
	return LookupBase + "?" + q.Encode()
}

// DiscoverURL 返回指定国家的 Mac 商店发现页。
func DiscoverURL(country string) string {
	return fmt.Sprintf("%s/%s/mac/discover", StoreBase, strings.ToLower(country))
}

// CanonicalStoreURL 去掉查询串与片段后追加平台限定参数。
// RSS 与网页抓取两条路径共用，保证输出链接形态一致。
func CanonicalStoreURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	return link + "?" + platformQualifier
}

// AppURL 在缺少原始链接时按 id 构造商店详情页链接。
func AppURL(country, appID string) string {
	return CanonicalStoreURL(fmt.Sprintf("%s/%s/app/id%s", StoreBase, strings.ToLower(country), appID))
}

package discover

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mac-app-monitor/internal/apple"
)

// AppRef 为榜单页中的一个应用引用。
type AppRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// id 必须是完整的路径段，避免匹配到 kid3、id3-editor 之类的应用名。
var (
	hrefAttr = regexp.MustCompile(`(?i)href="([^"]+)"`)
	appID    = regexp.MustCompile(`(?i)/id(\d+)(?:[/?#&]|$)`)
)

// ExtractAppIDs 提取当前国家的应用详情链接中的 id，按首次出现去重。
// 只接受 apps.apple.com 上的链接。
// 先扫描链接元素，无结果时依次回退到内嵌脚本中的转义链接与原始 href。
func ExtractAppIDs(page, country, baseURL string) []AppRef {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		country = "us"
	}
	c := &collector{seen: map[string]struct{}{}}

	pathRe := regexp.MustCompile(`(?i)/` + regexp.QuoteMeta(country) + `/app/(?:[^/?#"\s>]+/)*id(\d+)(?:[/?#&]|$)`)
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr("href")
			href := Resolve(baseURL, raw)
			if !onStore(href) {
				return
			}
			if m := pathRe.FindStringSubmatch(href); len(m) == 2 {
				c.add(m[1], href)
			}
		})
	}
	if len(c.out) > 0 {
		return c.out
	}

	escaped := regexp.MustCompile(`(?i)(https?:\\/\\/apps\.apple\.com\\/` + regexp.QuoteMeta(country) +
		`\\/app\\/(?:(?:[^"\s>\\/?#]|\\u[0-9a-f]{4})+\\/)*id(\d+))(?:[\\/?#"&\s]|$)`)
	for _, m := range escaped.FindAllStringSubmatch(page, -1) {
		c.add(m[2], NormalizeHref(m[1]))
	}
	if len(c.out) > 0 {
		return c.out
	}

	for _, m := range hrefAttr.FindAllStringSubmatch(page, -1) {
		href := m[1]
		if !strings.Contains(href, "/app/") {
			continue
		}
		link := Resolve(baseURL, href)
		if !onStore(link) {
			continue
		}
		if idm := appID.FindStringSubmatch(link); len(idm) == 2 {
			c.add(idm[1], link)
		}
	}
	return c.out
}

// onStore 判断链接是否指向商店主机。
func onStore(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), apple.StoreHost)
}

type collector struct {
	seen map[string]struct{}
	out  []AppRef
}

func (c *collector) add(id, link string) {
	if _, dup := c.seen[id]; dup {
		return
	}
	c.seen[id] = struct{}{}
	c.out = append(c.out, AppRef{ID: id, URL: apple.CanonicalStoreURL(link)})
}

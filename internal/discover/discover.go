// 包 discover 解析商店网页：
// - FindLink：在发现页中按标签文字定位榜单链接（结构化扫描 + 文本窗口回退）
// - ExtractAppIDs：从榜单页提取去重后的应用 id
// - Title：页面标题（用于日志）
package discover

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mac-app-monitor/internal/apple"
	"mac-app-monitor/internal/logx"
)

// DefaultAnchor 为默认的链接选择器；支持 "||" 连接多个候选选择器。
const DefaultAnchor = "a"

// maxMatches 为结构化扫描的命中上限，超过后停止扫描。
const maxMatches = 10

// 窗口扫描范围：标签首次出现位置之前/之后的字符数。
const (
	windowBefore = 800
	windowAfter  = 1200
)

// candidateAttrs 为承载可访问名称的属性，按优先级排列。
var candidateAttrs = []string{
	"aria-label",
	"data-analytics-title",
	"title",
	"data-test",
	"data-analytics-label",
}

// FindLink 使用默认选择器查找标签对应的链接，未找到返回空串。
func FindLink(page, baseURL, label string) string {
	return FindLinkWith(page, baseURL, label, DefaultAnchor)
}

// FindLinkWith 先做结构化扫描，失败后在标签附近的原始文本中按正则提取。
func FindLinkWith(page, baseURL, label, anchor string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	if href := scanAnchors(page, baseURL, label, anchor); href != "" {
		return href
	}
	return scanWindow(page, baseURL, label)
}

// scanAnchors 遍历链接元素，任一候选文本包含标签（不区分大小写）即命中。
func scanAnchors(page, baseURL, label, anchor string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		logx.Debugf("[发现页] HTML 解析失败，改用文本扫描：%v", err)
		return ""
	}
	if strings.TrimSpace(anchor) == "" {
		anchor = DefaultAnchor
	}
	needle := strings.ToLower(label)
	matched := 0
	var found string
	for _, sel := range strings.Split(anchor, "||") {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !matches(s, needle) {
				return true
			}
			matched++
			raw, _ := s.Attr("href")
			if href := Resolve(baseURL, raw); href != "" {
				logx.Debugf("[发现页] 链接命中：label=%s matched=%d href=%s", label, matched, href)
				found = href
				return false
			}
			return matched < maxMatches
		})
		if found != "" || matched >= maxMatches {
			break
		}
	}
	if found == "" {
		logx.Debugf("[发现页] 结构化扫描未找到可用链接：label=%s matched=%d", label, matched)
	}
	return found
}

// matches 计算元素的候选文本集合并做子串匹配。
func matches(s *goquery.Selection, needle string) bool {
	for _, attr := range candidateAttrs {
		if v, ok := s.Attr(attr); ok && strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	if strings.Contains(strings.ToLower(collapse(s.Text())), needle) {
		return true
	}
	href, _ := s.Attr("href")
	return strings.Contains(strings.ToLower(href), needle)
}

// scanWindow 在标签首次出现处截取窗口，依次尝试相邻的 href/url 键值对。
func scanWindow(page, baseURL, label string) string {
	idx := strings.Index(page, label)
	if idx < 0 {
		return ""
	}
	start := idx - windowBefore
	if start < 0 {
		start = 0
	}
	end := idx + windowAfter
	if end > len(page) {
		end = len(page)
	}
	window := page[start:end]
	q := regexp.QuoteMeta(label)
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)"label"\s*:\s*"` + q + `"[\s\S]{0,400}?"href"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)"label"\s*:\s*"` + q + `"[\s\S]{0,400}?"url"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?i)` + q + `[\s\S]{0,400}?href="([^"]+)"`),
	}
	for _, re := range patterns {
		m := re.FindStringSubmatch(window)
		if len(m) < 2 {
			continue
		}
		if href := Resolve(baseURL, m[1]); href != "" {
			logx.Debugf("[发现页] 文本窗口提取成功：label=%s href=%s", label, href)
			return href
		}
	}
	logx.Debugf("[发现页] 文本窗口未提取到链接：label=%s", label)
	return ""
}

// escapes 为内嵌脚本/JSON 中常见的转义分隔符。
var escapes = strings.NewReplacer(
	`\u002F`, "/", `\u002f`, "/",
	`\/`, "/",
	`\u0026`, "&",
	`\u003F`, "?", `\u003f`, "?",
	`\u003D`, "=", `\u003d`, "=",
)

// NormalizeHref 还原 HTML 实体与转义分隔符，协议相对地址补全为 https。
func NormalizeHref(raw string) string {
	s := strings.TrimSpace(escapes.Replace(html.UnescapeString(raw)))
	if strings.HasPrefix(s, "//") {
		return "https:" + s
	}
	return s
}

// Resolve 规范化 href 并基于 baseURL 转为绝对地址；不可解析时返回空串。
func Resolve(baseURL, raw string) string {
	ref := NormalizeHref(raw)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "javascript:") {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if baseURL == "" {
		baseURL = apple.StoreBase
	}
	bu, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return bu.ResolveReference(ru).String()
}

// Title 返回页面 <title> 文本（空白折叠）。
func Title(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	return collapse(doc.Find("title").First().Text())
}

var spaces = regexp.MustCompile(`\s+`)

func collapse(s string) string { return strings.TrimSpace(spaces.ReplaceAllString(s, " ")) }

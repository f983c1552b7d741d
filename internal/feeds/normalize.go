// 包 feeds 负责排行榜响应的归一化：
// - Classify：将上游 JSON 判定为有限的几种形态之一
// - Normalize：按字段回退规则映射为 []model.RankingItem
// - NormalizeXML：使用 gofeed 解析 Atom（/xml）变体
package feeds

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"mac-app-monitor/internal/apple"
	"mac-app-monitor/internal/model"
)

// ErrUnrecognizedPayload 表示响应不是任何已知的排行榜形态。
var ErrUnrecognizedPayload = errors.New("unrecognized ranking payload")

// Shape 为排行榜响应的形态。
type Shape int

const (
	ShapeAbsent      Shape = iota // 无条目（合法的空榜）
	ShapeEntryArray               // feed.entry 为数组
	ShapeEntrySingle              // feed.entry 为单个对象（仅一条结果）
	ShapeResults                  // feed.results 或顶层 results（新版接口）
)

func (s Shape) String() string {
	switch s {
	case ShapeEntryArray:
		return "entry-array"
	case ShapeEntrySingle:
		return "entry-single"
	case ShapeResults:
		return "results"
	default:
		return "absent"
	}
}

// 默认值
const (
	UnknownApp       = "Unknown App"
	UnknownDeveloper = "Unknown Developer"
	Unknown          = "Unknown"
)

// idPattern 只匹配完整的 id 路径段，应用名里的 kid3、id3 不算。
var idPattern = regexp.MustCompile(`/id(\d+)(?:[/?#&]|$)`)

// Classify 判定响应形态并返回原始条目列表。
func Classify(payload []byte) (Shape, []json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil || top == nil {
		return ShapeAbsent, nil, ErrUnrecognizedPayload
	}
	if raw, ok := top["feed"]; ok {
		var feed map[string]json.RawMessage
		if err := json.Unmarshal(raw, &feed); err != nil {
			return ShapeAbsent, nil, ErrUnrecognizedPayload
		}
		if entry, ok := feed["entry"]; ok {
			return classifyList(entry, ShapeEntryArray, ShapeEntrySingle)
		}
		if results, ok := feed["results"]; ok {
			return classifyList(results, ShapeResults, ShapeResults)
		}
		return ShapeAbsent, nil, nil
	}
	if results, ok := top["results"]; ok {
		return classifyList(results, ShapeResults, ShapeResults)
	}
	return ShapeAbsent, nil, ErrUnrecognizedPayload
}

// classifyList 处理 数组/单对象/null 三种取值。
func classifyList(raw json.RawMessage, arrayShape, singleShape Shape) (Shape, []json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "" || trimmed == "null":
		return ShapeAbsent, nil, nil
	case strings.HasPrefix(trimmed, "["):
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return ShapeAbsent, nil, ErrUnrecognizedPayload
		}
		if len(list) == 0 {
			return ShapeAbsent, nil, nil
		}
		return arrayShape, list, nil
	case strings.HasPrefix(trimmed, "{"):
		return singleShape, []json.RawMessage{raw}, nil
	default:
		return ShapeAbsent, nil, ErrUnrecognizedPayload
	}
}

// Normalize 将排行榜 JSON 转换为名次连续的条目列表。
// 单条异常只降级为默认值；缺少 id 的条目被丢弃；重复 id 保留首次出现。
func Normalize(payload []byte, country string) ([]model.RankingItem, error) {
	shape, raws, err := Classify(payload)
	if err != nil {
		return nil, err
	}
	items := make([]model.RankingItem, 0, len(raws))
	for _, raw := range raws {
		var it model.RankingItem
		if shape == ShapeResults {
			it = fromResult(raw)
		} else {
			it = fromEntry(raw)
		}
		if it.StoreURL == "" && it.ID != "" {
			it.StoreURL = apple.AppURL(country, it.ID)
		}
		items = append(items, it)
	}
	return Finalize(items), nil
}

// Finalize 去掉无 id 与重复条目，并按列表顺序重新编号。
func Finalize(items []model.RankingItem) []model.RankingItem {
	out := make([]model.RankingItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		it.Rank = len(out) + 1
		out = append(out, it)
	}
	return out
}

// node 为宽松解码的 JSON 对象。
type node map[string]json.RawMessage

func decodeNode(raw json.RawMessage) node {
	var n node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return n
}

// child 取子对象。
func (n node) child(key string) node {
	if n == nil {
		return nil
	}
	raw, ok := n[key]
	if !ok {
		return nil
	}
	return decodeNode(raw)
}

// str 取字符串或数字字段，其他类型视为空。
func (n node) str(key string) string {
	if n == nil {
		return ""
	}
	raw, ok := n[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f json.Number
	if err := json.Unmarshal(raw, &f); err == nil {
		return f.String()
	}
	return ""
}

// label 取 {"label": "..."} 形态的文本。
func (n node) label(key string) string { return n.child(key).str("label") }

// attr 取 {"attributes": {...}} 中的属性。
func (n node) attr(key, name string) string { return n.child(key).child("attributes").str(name) }

// list 将数组或单个对象统一为对象列表。
func (n node) list(key string) []node {
	if n == nil {
		return nil
	}
	raw, ok := n[key]
	if !ok {
		return nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		out := make([]node, 0, len(arr))
		for _, r := range arr {
			if c := decodeNode(r); c != nil {
				out = append(out, c)
			}
		}
		return out
	}
	if c := decodeNode(raw); c != nil {
		return []node{c}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// fromEntry 映射 RSS 条目（feed.entry 的元素）。
func fromEntry(raw json.RawMessage) model.RankingItem {
	e := decodeNode(raw)
	link := entryLink(e)
	idLabel := e.label("id")

	id := e.attr("id", "im:id")
	if id == "" {
		id = idFromURL(idLabel)
	}
	if id == "" {
		id = idFromURL(link)
	}

	icon := ""
	if imgs := e.list("im:image"); len(imgs) > 0 {
		// 上游按分辨率升序排列，最后一个即最大尺寸
		icon = imgs[len(imgs)-1].str("label")
	}

	return model.RankingItem{
		ID:            id,
		Name:          firstNonEmpty(e.label("im:name"), e.label("title"), UnknownApp),
		DeveloperName: firstNonEmpty(e.label("im:artist"), UnknownDeveloper),
		IconURL:       icon,
		CategoryLabel: firstNonEmpty(e.attr("category", "label"), e.attr("category", "term"), Unknown),
		PriceLabel:    firstNonEmpty(e.label("im:price"), Unknown),
		StoreURL:      apple.CanonicalStoreURL(firstNonEmpty(link, idLabel)),
		Summary:       e.label("summary"),
	}
}

// entryLink 选择条目的商店链接：优先 rel=alternate，其次第一个。
func entryLink(e node) string {
	links := e.list("link")
	if len(links) == 0 {
		return ""
	}
	for _, l := range links {
		if l.child("attributes").str("rel") == "alternate" {
			if href := l.child("attributes").str("href"); href != "" {
				return href
			}
		}
	}
	return links[0].child("attributes").str("href")
}

// fromResult 映射新版接口的 results 元素。
func fromResult(raw json.RawMessage) model.RankingItem {
	r := decodeNode(raw)
	id := r.str("id")
	if id == "" {
		id = idFromURL(r.str("url"))
	}
	category := firstGenreString(r)
	if genres := r.list("genres"); len(genres) > 0 {
		category = genres[0].str("name")
	}
	return model.RankingItem{
		ID:            id,
		Name:          firstNonEmpty(r.str("name"), UnknownApp),
		DeveloperName: firstNonEmpty(r.str("artistName"), UnknownDeveloper),
		IconURL:       r.str("artworkUrl100"),
		CategoryLabel: firstNonEmpty(category, Unknown),
		PriceLabel:    Unknown,
		StoreURL:      apple.CanonicalStoreURL(r.str("url")),
	}
}

// firstGenreString 兼容 genres 为字符串数组的情况。
func firstGenreString(r node) string {
	raw, ok := r["genres"]
	if !ok {
		return ""
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSpace(names[0])
}

// idFromURL 从商店链接中提取数字 id（.../id123456）。
func idFromURL(u string) string {
	m := idPattern.FindStringSubmatch(u)
	if len(m) < 2 {
		return ""
	}
	if _, err := strconv.ParseUint(m[1], 10, 64); err != nil {
		return ""
	}
	return m[1]
}

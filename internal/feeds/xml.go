package feeds

import (
	"fmt"
	"io"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"mac-app-monitor/internal/apple"
	"mac-app-monitor/internal/model"
)

// NormalizeXML 解析排行榜的 Atom 变体（/xml），字段规则与 JSON 一致。
// im: 命名空间的元素由 gofeed 收集在 Extensions["im"] 中。
func NormalizeXML(r io.Reader, country string) ([]model.RankingItem, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse ranking xml: %w", err)
	}
	items := make([]model.RankingItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		im := it.Extensions["im"]
		link := it.Link
		if link == "" && len(it.Links) > 0 {
			link = it.Links[0]
		}
		id := firstExtAttr(im, "id", "id")
		if id == "" {
			id = idFromURL(it.GUID)
		}
		if id == "" {
			id = idFromURL(link)
		}
		category := ""
		if len(it.Categories) > 0 {
			category = it.Categories[0]
		}
		icon := ""
		if imgs := im["image"]; len(imgs) > 0 {
			icon = imgs[len(imgs)-1].Value
		}
		storeURL := apple.CanonicalStoreURL(firstNonEmpty(link, it.GUID))
		if storeURL == "" && id != "" {
			storeURL = apple.AppURL(country, id)
		}
		items = append(items, model.RankingItem{
			ID:            id,
			Name:          firstNonEmpty(firstExt(im, "name"), it.Title, UnknownApp),
			DeveloperName: firstNonEmpty(firstExt(im, "artist"), UnknownDeveloper),
			IconURL:       icon,
			CategoryLabel: firstNonEmpty(category, Unknown),
			PriceLabel:    firstNonEmpty(firstExt(im, "price"), Unknown),
			StoreURL:      storeURL,
			Summary:       it.Description,
		})
	}
	return Finalize(items), nil
}

func firstExt(m map[string][]ext.Extension, name string) string {
	if v := m[name]; len(v) > 0 {
		return v[0].Value
	}
	return ""
}

func firstExtAttr(m map[string][]ext.Extension, name, attr string) string {
	if v := m[name]; len(v) > 0 {
		return v[0].Attrs[attr]
	}
	return ""
}

package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"mac-app-monitor/internal/apple"
	"mac-app-monitor/internal/cache"
	"mac-app-monitor/internal/discover"
	"mac-app-monitor/internal/feeds"
	"mac-app-monitor/internal/logx"
	"mac-app-monitor/internal/model"
)

// LoadWebSections 走网页抓取路径：发现页 → 按标签找榜单链接 → 榜单页提取应用 id → 查询详情。
// 找不到标签或提取不到 id 时得到空榜单；发现页本身取不到时返回错误。
func (m *Monitor) LoadWebSections(ctx context.Context, country string) ([]model.Section, error) {
	country = strings.ToLower(strings.TrimSpace(country))
	ctx, span := m.tracer.Start(ctx, "monitor.web_sections")
	defer span.End()
	span.SetAttributes(attribute.String("country", country))

	anchor, types, labels := m.rules.Labels(country)
	if len(types) == 0 {
		logx.Debugf("[网页] %s 未配置抓取标签", country)
		return nil, nil
	}

	pageURL := apple.DiscoverURL(country)
	page, err := m.fetcher.FetchText(ctx, pageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discover page failed")
		return nil, fmt.Errorf("fetch discover page: %w", err)
	}
	logx.Debugf("[网页] 发现页：%s 标题=%q", pageURL, discover.Title(page))

	lang := m.Preferences().Language
	out := make([]model.Section, 0, len(types))
	for _, t := range types {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		s := m.section(t, model.Title(t, lang), nil, model.SourceWeb)
		href := discover.FindLinkWith(page, pageURL, labels[t], anchor)
		if href == "" {
			logx.Warnf("[网页] 未找到榜单链接：%s %q", country, labels[t])
			out = append(out, s)
			continue
		}
		items, soft, err := m.scrapeListing(ctx, country, href)
		if err != nil {
			logx.Warnf("[网页] 榜单页获取失败：%s 错误=%v", href, err)
			s.Error = err.Error()
			out = append(out, s)
			continue
		}
		s.Items = items
		s.Error = soft
		logx.Infof("[网页] 抓取成功：%s %s 数量=%d", country, t, len(items))
		out = append(out, s)
	}
	span.SetAttributes(attribute.Int("sections", len(out)))
	return out, nil
}

// scrapeListing 提取榜单页中的应用并并发查询详情；部分查询失败时返回软错误描述。
func (m *Monitor) scrapeListing(ctx context.Context, country, href string) ([]model.RankingItem, string, error) {
	listing, err := m.fetcher.FetchText(ctx, href)
	if err != nil {
		return nil, "", err
	}
	refs := discover.ExtractAppIDs(listing, country, href)
	if len(refs) > m.webLimit {
		refs = refs[:m.webLimit]
	}
	if len(refs) == 0 {
		logx.Warnf("[网页] 榜单页未提取到应用：%s", href)
		return []model.RankingItem{}, "", nil
	}

	results := make([]*model.RankingItem, len(refs))
	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.lookups)
	for i, ref := range refs {
		i, ref := i, ref // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			d, found, err := m.LoadAppDetail(gctx, ref.ID, country)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				logx.Warnf("[详情] 查询失败：%s 错误=%v", ref.ID, err)
				return nil
			}
			if !found {
				logx.Debugf("[详情] 未找到应用：%s", ref.ID)
				return nil
			}
			item := itemFromDetail(ref, d)
			results[i] = &item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	items := make([]model.RankingItem, 0, len(refs))
	for _, it := range results {
		if it != nil {
			items = append(items, *it)
		}
	}
	items = feeds.Finalize(items)
	soft := ""
	if n := failed.Load(); n > 0 {
		soft = fmt.Sprintf("%d of %d app lookups failed", n, len(refs))
	}
	return items, soft, nil
}

func itemFromDetail(ref discover.AppRef, d model.AppDetail) model.RankingItem {
	id := ref.ID
	if d.TrackID > 0 {
		id = strconv.FormatInt(d.TrackID, 10)
	}
	link := d.TrackViewURL
	if link == "" {
		link = ref.URL
	}
	name := d.TrackName
	if name == "" {
		name = feeds.UnknownApp
	}
	dev := d.SellerName
	if dev == "" {
		dev = feeds.UnknownDeveloper
	}
	category := d.PrimaryGenreName
	if category == "" && len(d.Genres) > 0 {
		category = d.Genres[0]
	}
	if category == "" {
		category = feeds.Unknown
	}
	return model.RankingItem{
		ID:            id,
		Name:          name,
		DeveloperName: dev,
		IconURL:       d.ArtworkURL512,
		CategoryLabel: category,
		PriceLabel:    d.PriceLabel(),
		StoreURL:      apple.CanonicalStoreURL(link),
		Summary:       firstLine(d.Description),
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

// LoadAppDetail 查询应用详情：详情缓存不过期，未找到的应用不缓存。
func (m *Monitor) LoadAppDetail(ctx context.Context, appID, country string) (model.AppDetail, bool, error) {
	appID = strings.TrimSpace(appID)
	country = strings.ToLower(strings.TrimSpace(country))
	if appID == "" {
		return model.AppDetail{}, false, errors.New("app id required")
	}
	key := cache.DetailKey(country, appID)
	if d, ok, err := m.details.Get(ctx, key); err != nil {
		logx.Warnf("[缓存] 读取失败：%s 错误=%v", key, err)
	} else if ok {
		return d, true, nil
	}

	var payload json.RawMessage
	if err := m.fetcher.FetchJSON(ctx, apple.LookupURL(appID, country), &payload); err != nil {
		return model.AppDetail{}, false, err
	}
	d, found, err := apple.DecodeLookup(payload)
	if err != nil || !found {
		return d, found, err
	}
	if err := m.details.Put(ctx, key, d); err != nil {
		logx.Warnf("[缓存] 写入失败：%s 错误=%v", key, err)
	}
	return d, true, nil
}

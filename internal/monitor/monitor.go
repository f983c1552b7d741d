// 包 monitor 是对外的排行榜监控接口：
// - 单榜单加载（缓存 → 取数 → 归一化 → 回写缓存）
// - 全榜单并发加载，并与网页抓取结果按策略合并
// - 应用详情、偏好设置与刷新策略
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mac-app-monitor/internal/aggregate"
	"mac-app-monitor/internal/apple"
	"mac-app-monitor/internal/cache"
	"mac-app-monitor/internal/feeds"
	"mac-app-monitor/internal/logx"
	"mac-app-monitor/internal/model"
	"mac-app-monitor/internal/relay"
	"mac-app-monitor/internal/rules"
)

const tracerName = "mac-app-monitor/internal/monitor"

// DefaultWebLimit 为网页抓取路径每个榜单最多查询的应用数。
const DefaultWebLimit = 20

// Fetcher 为多级回退取数器，relay.Fetcher 满足该接口。
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, out any) error
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// Deps 为 Monitor 的依赖。
type Deps struct {
	Fetcher Fetcher
	Store   cache.Store
	Rules   *rules.Rules
	Prefs   model.Preferences // 默认偏好，存储中的偏好覆盖其非零字段
	Runner  *aggregate.Runner
	TTL     time.Duration // 排行榜缓存有效期，0 取 cache.DefaultRankingTTL
	Policy  aggregate.MergePolicy

	WebDisabled bool
	WebLimit    int
	Lookups     int // 详情查询并发数

	Now            func() time.Time
	TracerProvider trace.TracerProvider // 为空时使用全局 provider
}

// Monitor 串联取数、归一化、缓存与合并。
type Monitor struct {
	fetcher  Fetcher
	store    cache.Store
	rules    *rules.Rules
	runner   *aggregate.Runner
	policy   aggregate.MergePolicy
	rankings *cache.TTL[[]model.RankingItem]
	details  *cache.TTL[model.AppDetail]

	webDisabled bool
	webLimit    int
	lookups     int
	now         func() time.Time
	tracer      trace.Tracer

	mu    sync.RWMutex
	prefs model.Preferences
	gen   atomic.Uint64
}

// New 创建 Monitor 并读取已保存的偏好设置。
func New(ctx context.Context, d Deps) (*Monitor, error) {
	if d.Fetcher == nil {
		return nil, errors.New("monitor: fetcher required")
	}
	if d.Store == nil {
		d.Store = cache.NewMemory(0, 0)
	}
	if d.Rules == nil {
		d.Rules = rules.Default()
	}
	if d.Runner == nil {
		d.Runner = &aggregate.Runner{}
	}
	if d.TTL <= 0 {
		d.TTL = cache.DefaultRankingTTL
	}
	if d.WebLimit <= 0 {
		d.WebLimit = DefaultWebLimit
	}
	if d.Lookups <= 0 {
		d.Lookups = 4
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.TracerProvider == nil {
		d.TracerProvider = otel.GetTracerProvider()
	}
	if d.Prefs == (model.Preferences{}) {
		d.Prefs = model.DefaultPreferences()
	}
	m := &Monitor{
		fetcher:     d.Fetcher,
		store:       d.Store,
		rules:       d.Rules,
		runner:      d.Runner,
		policy:      d.Policy,
		rankings:    &cache.TTL[[]model.RankingItem]{Store: d.Store, Prefix: cache.RankingPrefix, TTL: d.TTL, Now: d.Now},
		details:     &cache.TTL[model.AppDetail]{Store: d.Store, Prefix: cache.DetailPrefix, Now: d.Now},
		webDisabled: d.WebDisabled,
		webLimit:    d.WebLimit,
		lookups:     d.Lookups,
		now:         d.Now,
		tracer:      d.TracerProvider.Tracer(tracerName),
	}
	prefs, err := m.loadPreferences(ctx, d.Prefs)
	if err != nil {
		return nil, err
	}
	m.prefs = prefs
	return m, nil
}

// SectionError 表示单个榜单加载失败。
type SectionError struct {
	Country string
	Type    model.SectionType
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("load %s/%s: %v", e.Country, e.Type, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }

// Retryable 在全部来源失败（多为网络问题）时返回 true。
func (e *SectionError) Retryable() bool {
	return errors.Is(e.Err, relay.ErrAllSourcesFailed)
}

// LoadSection 加载单个榜单：未强制刷新时优先读缓存，未命中再取数并回写。
func (m *Monitor) LoadSection(ctx context.Context, country string, t model.SectionType, genreID int, force bool) (model.Section, error) {
	country = strings.ToLower(strings.TrimSpace(country))
	gen := m.gen.Load()
	ctx, span := m.tracer.Start(ctx, "monitor.load_section")
	defer span.End()
	span.SetAttributes(
		attribute.String("country", country),
		attribute.String("section", string(t)),
		attribute.Int("genre", genreID),
	)

	key := cache.RankingKey(country, string(t), genreID)
	title := model.Title(t, m.Preferences().Language)
	if !force {
		items, ok, err := m.rankings.Get(ctx, key)
		if err != nil {
			logx.Warnf("[缓存] 读取失败：%s 错误=%v", key, err)
		}
		if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			logx.Debugf("[缓存] 命中：%s", key)
			return m.section(t, title, items, model.SourceRSS), nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	items, err := m.fetchRanking(ctx, country, t, genreID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load section failed")
		return model.Section{}, &SectionError{Country: country, Type: t, Err: err}
	}
	logx.Infof("[榜单] 获取成功：%s %s 数量=%d", country, t, len(items))

	if m.gen.Load() != gen {
		logx.Debugf("[缓存] 请求已过期，跳过写入：%s", key)
	} else if err := m.rankings.Put(ctx, key, items); err != nil {
		logx.Warnf("[缓存] 写入失败：%s 错误=%v", key, err)
	}
	return m.section(t, title, items, model.SourceRSS), nil
}

// fetchRanking 取 JSON 榜单；形态无法识别时改取 XML 版本。
func (m *Monitor) fetchRanking(ctx context.Context, country string, t model.SectionType, genreID int) ([]model.RankingItem, error) {
	jsonURL, err := apple.RankingURL(country, t, genreID, apple.FormatJSON)
	if err != nil {
		return nil, err
	}
	var payload json.RawMessage
	if err := m.fetcher.FetchJSON(ctx, jsonURL, &payload); err != nil {
		return nil, err
	}
	items, err := feeds.Normalize(payload, country)
	if err == nil {
		return items, nil
	}
	if !errors.Is(err, feeds.ErrUnrecognizedPayload) {
		return nil, err
	}

	logx.Warnf("[榜单] JSON 格式无法识别，改用 XML：%s", jsonURL)
	xmlURL, err := apple.RankingURL(country, t, genreID, apple.FormatXML)
	if err != nil {
		return nil, err
	}
	text, err := m.fetcher.FetchText(ctx, xmlURL)
	if err != nil {
		return nil, err
	}
	return feeds.NormalizeXML(strings.NewReader(text), country)
}

func (m *Monitor) section(t model.SectionType, title string, items []model.RankingItem, source string) model.Section {
	if items == nil {
		items = []model.RankingItem{}
	}
	return model.Section{
		Type:      t,
		Title:     title,
		Items:     items,
		Source:    source,
		UpdatedAt: m.now(),
	}
}

// LoadSections 并发加载全部榜单并与网页抓取结果合并。
// onProgress 非 nil 时每个榜单完成即回调合并后的结果；单个榜单失败不影响整体。
func (m *Monitor) LoadSections(ctx context.Context, country string, genreID int, onProgress aggregate.Progress) []model.Section {
	types := aggregate.Plan(genreID)
	merger := aggregate.NewMerger(m.policy)
	var mu sync.Mutex
	emit := func(s model.Section) {
		mu.Lock()
		defer mu.Unlock()
		merged := merger.Add(s)
		if onProgress != nil {
			onProgress(merged)
		}
	}

	runner := *m.runner
	runner.Language = m.Preferences().Language
	if runner.Now == nil {
		runner.Now = m.now
	}

	var g errgroup.Group
	g.Go(func() error {
		runner.Run(ctx, types, func(ctx context.Context, t model.SectionType) (model.Section, error) {
			return m.LoadSection(ctx, country, t, genreID, false)
		}, emit)
		return nil
	})
	if genreID == 0 && !m.webDisabled {
		g.Go(func() error {
			sections, err := m.LoadWebSections(ctx, country)
			if err != nil {
				logx.Warnf("[网页] 抓取失败，仅使用 RSS 结果：%v", err)
				return nil
			}
			for _, s := range sections {
				emit(s)
			}
			return nil
		})
	}
	_ = g.Wait()
	return merger.Snapshot(types)
}

// Cancel 使进行中的请求过期：其结果仍会返回，但不再写入缓存。
func (m *Monitor) Cancel() {
	m.gen.Add(1)
}

// Due 判断仪表板是否到了刷新时间（按偏好刷新间隔，与榜单缓存有效期无关）。
func (m *Monitor) Due(lastSync, now time.Time) bool {
	if lastSync.IsZero() {
		return true
	}
	return now.Sub(lastSync) >= m.Preferences().RefreshInterval
}

// 包 aggregate 负责榜单的并发编排：
// - Plan：根据分类筛选决定要加载的榜单
// - Runner：有界并发加载，单个榜单失败只影响自身
// - Merger：合并 RSS 与网页抓取两条路径的同类榜单
package aggregate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mac-app-monitor/internal/logx"
	"mac-app-monitor/internal/model"
)

// DefaultConcurrency 为默认的并发榜单数。
const DefaultConcurrency = 3

// Plan 返回要加载的榜单：三个基础榜单，未指定分类时追加两个游戏榜单。
func Plan(genreID int) []model.SectionType {
	types := []model.SectionType{model.TopFree, model.TopPaid, model.TopGrossing}
	if genreID == 0 {
		types = append(types, model.TopFreeGames, model.TopPaidGames)
	}
	return types
}

// Loader 加载单个榜单。
type Loader func(ctx context.Context, t model.SectionType) (model.Section, error)

// Progress 在每个榜单完成（成功或失败）时被调用，调用顺序为完成顺序。
type Progress func(s model.Section)

// Runner 为有界并发执行器。
type Runner struct {
	Concurrency int
	Language    string // 失败榜单的标题语言
	Now         func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run 并发加载全部榜单并按 types 的顺序返回；失败的榜单以 Error 字段表示。
// onProgress 为 nil 时即批量模式；非 nil 时逐个回调（串行化调用）。
func (r *Runner) Run(ctx context.Context, types []model.SectionType, load Loader, onProgress Progress) []model.Section {
	out := make([]model.Section, len(types))
	var mu sync.Mutex
	var g errgroup.Group
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for i, t := range types {
		i, t := i, t // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			s, err := load(ctx, t)
			if err != nil {
				logx.Warnf("[榜单] %s 加载失败：%v", t, err)
				s = model.Section{
					Type:      t,
					Title:     model.Title(t, r.Language),
					Items:     []model.RankingItem{},
					Error:     err.Error(),
					UpdatedAt: r.now(),
				}
			}
			if s.Type == "" {
				s.Type = t
			}
			if s.Items == nil {
				s.Items = []model.RankingItem{}
			}
			mu.Lock()
			out[i] = s
			if onProgress != nil {
				onProgress(s)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

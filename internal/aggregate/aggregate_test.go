package aggregate_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mac-app-monitor/internal/aggregate"
	"mac-app-monitor/internal/model"
)

func items(n int, prefix string) []model.RankingItem {
	out := make([]model.RankingItem, n)
	for i := range out {
		out[i] = model.RankingItem{ID: fmt.Sprintf("%s%d", prefix, i+1), Rank: i + 1}
	}
	return out
}

func TestPlan(t *testing.T) {
	assert.Equal(t, []model.SectionType{
		model.TopFree, model.TopPaid, model.TopGrossing, model.TopFreeGames, model.TopPaidGames,
	}, aggregate.Plan(0))
	assert.Equal(t, []model.SectionType{model.TopFree, model.TopPaid, model.TopGrossing}, aggregate.Plan(6002))
}

func TestRun_PartialFailureIsolated(t *testing.T) {
	types := aggregate.Plan(0)
	load := func(_ context.Context, st model.SectionType) (model.Section, error) {
		if st == types[2] {
			return model.Section{}, errors.New("all sources failed")
		}
		return model.Section{Type: st, Title: string(st), Items: items(3, string(st))}, nil
	}
	r := &aggregate.Runner{Concurrency: 5}
	got := r.Run(context.Background(), types, load, nil)

	require.Len(t, got, 5)
	for i, s := range got {
		assert.Equal(t, types[i], s.Type)
		if i == 2 {
			assert.Equal(t, "all sources failed", s.Error)
			assert.NotNil(t, s.Items)
			assert.Empty(t, s.Items)
			assert.Equal(t, "Top Grossing Apps", s.Title)
			continue
		}
		assert.Empty(t, s.Error)
		assert.Len(t, s.Items, 3)
	}
}

func TestRun_ProgressInCompletionOrder(t *testing.T) {
	types := aggregate.Plan(0)
	delays := map[model.SectionType]time.Duration{
		model.TopFree:      40 * time.Millisecond,
		model.TopPaid:      10 * time.Millisecond,
		model.TopGrossing:  30 * time.Millisecond,
		model.TopFreeGames: 0,
		model.TopPaidGames: 20 * time.Millisecond,
	}
	load := func(ctx context.Context, st model.SectionType) (model.Section, error) {
		time.Sleep(delays[st])
		if st == model.TopPaidGames {
			return model.Section{}, errors.New("boom")
		}
		return model.Section{Type: st, Items: items(1, "x")}, nil
	}
	var seen []model.SectionType
	r := &aggregate.Runner{Concurrency: 5}
	got := r.Run(context.Background(), types, load, func(s model.Section) {
		seen = append(seen, s.Type)
	})

	assert.ElementsMatch(t, types, seen, "every section reported exactly once")
	assert.Equal(t, model.TopFreeGames, seen[0])
	assert.Equal(t, model.TopFree, seen[len(seen)-1])
	assert.Equal(t, "boom", got[4].Error)
}

func TestRun_ConcurrencyBounded(t *testing.T) {
	var inflight, peak int32
	load := func(_ context.Context, st model.SectionType) (model.Section, error) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		return model.Section{Type: st}, nil
	}
	r := &aggregate.Runner{Concurrency: 2}
	got := r.Run(context.Background(), aggregate.Plan(0), load, nil)
	assert.Len(t, got, 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	for _, s := range got {
		assert.NotNil(t, s.Items)
	}
}

func TestMerger_PreferNonEmpty(t *testing.T) {
	m := aggregate.NewMerger(aggregate.PreferNonEmpty)
	web := model.Section{Type: model.TopPaid, Source: model.SourceWeb, Items: items(2, "w")}
	rss := model.Section{Type: model.TopPaid, Source: model.SourceRSS, Items: items(3, "r")}
	emptyRSS := model.Section{Type: model.TopFree, Source: model.SourceRSS, Items: []model.RankingItem{}, Error: "timeout"}
	webFree := model.Section{Type: model.TopFree, Source: model.SourceWeb, Items: items(1, "w")}

	m.Add(web)
	assert.Equal(t, web, m.Add(rss), "both non-empty keeps the first writer")
	m.Add(emptyRSS)
	assert.Equal(t, webFree, m.Add(webFree), "non-empty replaces empty")

	snap := m.Snapshot(aggregate.Plan(0))
	require.Len(t, snap, 2)
	assert.Equal(t, model.TopFree, snap[0].Type)
	assert.Equal(t, model.TopPaid, snap[1].Type)
}

func TestMerger_BothEmptyKeepsError(t *testing.T) {
	m := aggregate.NewMerger("")
	m.Add(model.Section{Type: model.TopPaid, Source: model.SourceWeb})
	got := m.Add(model.Section{Type: model.TopPaid, Source: model.SourceRSS, Error: "all sources failed"})
	assert.Equal(t, model.SourceWeb, got.Source)
	assert.Equal(t, "all sources failed", got.Error)
}

func TestMerger_PreferRSS(t *testing.T) {
	m := aggregate.NewMerger(aggregate.PreferRSS)
	web := model.Section{Type: model.TopPaid, Source: model.SourceWeb, Items: items(2, "w")}
	rss := model.Section{Type: model.TopPaid, Source: model.SourceRSS, Items: items(3, "r")}
	m.Add(web)
	assert.Equal(t, rss, m.Add(rss))
	assert.Equal(t, rss, m.Add(web), "rss result is kept once present")

	m2 := aggregate.NewMerger(aggregate.PreferRSS)
	m2.Add(web)
	got := m2.Add(model.Section{Type: model.TopPaid, Source: model.SourceRSS, Items: []model.RankingItem{}})
	assert.Equal(t, web, got, "empty rss result does not hide scraped data")
}

func TestMerger_ConcurrentAdds(t *testing.T) {
	m := aggregate.NewMerger(aggregate.PreferNonEmpty)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Add(model.Section{Type: model.AllSectionTypes[i%len(model.AllSectionTypes)], Items: items(i%3, "c")})
		}(i)
	}
	wg.Wait()
	assert.Len(t, m.Snapshot(nil), len(model.AllSectionTypes))
}

func TestParseMergePolicy(t *testing.T) {
	p, err := aggregate.ParseMergePolicy("")
	require.NoError(t, err)
	assert.Equal(t, aggregate.PreferNonEmpty, p)
	p, err = aggregate.ParseMergePolicy("Prefer-RSS")
	require.NoError(t, err)
	assert.Equal(t, aggregate.PreferRSS, p)
	_, err = aggregate.ParseMergePolicy("quality")
	assert.Error(t, err)
}

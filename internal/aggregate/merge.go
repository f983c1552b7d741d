package aggregate

import (
	"fmt"
	"strings"
	"sync"

	"mac-app-monitor/internal/model"
)

// MergePolicy 决定同一榜单类型出现两个结果时保留哪一个。
type MergePolicy string

const (
	// PreferNonEmpty：有数据者优先；都有数据时保留先写入者。
	PreferNonEmpty MergePolicy = "prefer-non-empty"
	// PreferRSS：RSS 结果只要有数据就覆盖网页抓取结果，其余同 PreferNonEmpty。
	PreferRSS MergePolicy = "prefer-rss"
)

// ParseMergePolicy 解析合并策略，空串取默认值。
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PreferNonEmpty:
		return PreferNonEmpty, nil
	case PreferRSS:
		return PreferRSS, nil
	}
	return "", fmt.Errorf("unknown merge policy %q", s)
}

// Merger 按榜单类型收集并合并结果（并发安全）。
type Merger struct {
	mu       sync.Mutex
	policy   MergePolicy
	sections map[model.SectionType]model.Section
}

func NewMerger(policy MergePolicy) *Merger {
	if policy == "" {
		policy = PreferNonEmpty
	}
	return &Merger{
		policy:   policy,
		sections: make(map[model.SectionType]model.Section),
	}
}

// Add 记录一个结果并返回该类型当前的合并结果。
func (m *Merger) Add(s model.Section) model.Section {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sections[s.Type]
	if !ok {
		m.sections[s.Type] = s
		return s
	}
	merged := m.pick(cur, s)
	m.sections[s.Type] = merged
	return merged
}

// pick 在已有结果 cur 与新结果 next 之间按策略选择。
func (m *Merger) pick(cur, next model.Section) model.Section {
	if m.policy == PreferRSS && !next.Empty() && next.Source == model.SourceRSS && cur.Source != model.SourceRSS {
		return next
	}
	switch {
	case cur.Empty() && !next.Empty():
		return next
	case !cur.Empty():
		return cur
	}
	// 都为空：保留先写入者，但不丢失后到的错误信息
	if cur.Error == "" && next.Error != "" {
		cur.Error = next.Error
	}
	return cur
}

// Get 返回指定类型的合并结果。
func (m *Merger) Get(t model.SectionType) (model.Section, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sections[t]
	return s, ok
}

// Snapshot 按 order 返回合并结果；不在 order 中的类型按声明顺序追加在后。
func (m *Merger) Snapshot(order []model.SectionType) []model.Section {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Section, 0, len(m.sections))
	used := make(map[model.SectionType]bool, len(order))
	for _, t := range order {
		if s, ok := m.sections[t]; ok && !used[t] {
			out = append(out, s)
			used[t] = true
		}
	}
	for _, t := range model.AllSectionTypes {
		if s, ok := m.sections[t]; ok && !used[t] {
			out = append(out, s)
			used[t] = true
		}
	}
	return out
}

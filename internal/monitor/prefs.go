package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dario.cat/mergo"

	"mac-app-monitor/internal/cache"
	"mac-app-monitor/internal/logx"
	"mac-app-monitor/internal/model"
)

// loadPreferences 读取已保存的偏好并覆盖到默认值上；内容损坏或不合法时使用默认值。
func (m *Monitor) loadPreferences(ctx context.Context, defaults model.Preferences) (model.Preferences, error) {
	raw, ok, err := m.store.Get(ctx, cache.SettingsKey)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	if !ok {
		return defaults, nil
	}
	var saved model.Preferences
	if err := json.Unmarshal(raw, &saved); err != nil {
		logx.Warnf("[设置] 偏好内容损坏，使用默认值：%v", err)
		return defaults, nil
	}
	prefs := defaults
	if err := mergo.Merge(&prefs, saved, mergo.WithOverride); err != nil {
		logx.Warnf("[设置] 偏好合并失败，使用默认值：%v", err)
		return defaults, nil
	}
	prefs.Country = strings.ToLower(prefs.Country)
	if err := prefs.Validate(); err != nil {
		logx.Warnf("[设置] 偏好不合法，使用默认值：%v", err)
		return defaults, nil
	}
	return prefs, nil
}

// Preferences 返回当前偏好。
func (m *Monitor) Preferences() model.Preferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs
}

// UpdatePreferences 合并 patch 中的非零字段、校验并持久化。
// 国家变化时使进行中的请求过期，避免旧国家的结果写入缓存。
func (m *Monitor) UpdatePreferences(ctx context.Context, patch model.Preferences) (model.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.prefs
	patch.Country = strings.ToLower(strings.TrimSpace(patch.Country))
	if err := mergo.Merge(&next, patch, mergo.WithOverride); err != nil {
		return m.prefs, fmt.Errorf("merge preferences: %w", err)
	}
	if err := next.Validate(); err != nil {
		return m.prefs, err
	}
	b, err := json.Marshal(next)
	if err != nil {
		return m.prefs, fmt.Errorf("encode preferences: %w", err)
	}
	if err := m.store.Put(ctx, cache.SettingsKey, b); err != nil {
		return m.prefs, fmt.Errorf("save preferences: %w", err)
	}
	if next.Country != m.prefs.Country {
		m.gen.Add(1)
		logx.Infof("[设置] 国家切换：%s → %s", m.prefs.Country, next.Country)
	}
	m.prefs = next
	return next, nil
}

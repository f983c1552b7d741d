// 包 cache 定义缓存端口与带 TTL 的条目读写：
// 端口只有 Get/Put/Delete 三个操作，可由 SQLite 或内存实现。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mac-app-monitor/internal/logx"
)

// 固定的存储前缀（排行榜、详情、偏好设置）。
const (
	RankingPrefix = "mac_app_monitor_charts_v2/"
	DetailPrefix  = "mac_app_monitor_details/"
	SettingsKey   = "mac_app_monitor_settings"
)

// DefaultRankingTTL 为排行榜缓存有效期。
const DefaultRankingTTL = 5 * time.Minute

// Store 为缓存端口，实现方只需保证单键读写的原子性。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Entry 为缓存条目：数据与写入时间（毫秒时间戳）。
type Entry[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// TTL 为带有效期的类型化缓存；TTL 为 0 表示永不过期。
type TTL[T any] struct {
	Store  Store
	Prefix string
	TTL    time.Duration
	Now    func() time.Time
}

func (c *TTL[T]) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Get 读取条目：过期视为未命中；无法解析视为未命中并删除该键。
func (c *TTL[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	raw, ok, err := c.Store.Get(ctx, c.Prefix+key)
	if err != nil || !ok {
		return zero, false, err
	}
	var e Entry[T]
	if err := json.Unmarshal(raw, &e); err != nil || e.Timestamp <= 0 {
		logx.Warnf("[缓存] 条目损坏，已移除：%s", c.Prefix+key)
		if derr := c.Store.Delete(ctx, c.Prefix+key); derr != nil {
			return zero, false, fmt.Errorf("drop corrupt entry %s: %w", key, derr)
		}
		return zero, false, nil
	}
	if c.TTL > 0 && c.now().UnixMilli()-e.Timestamp >= c.TTL.Milliseconds() {
		return zero, false, nil
	}
	return e.Data, true, nil
}

// Put 无条件覆盖写入。
func (c *TTL[T]) Put(ctx context.Context, key string, data T) error {
	b, err := json.Marshal(Entry[T]{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return c.Store.Put(ctx, c.Prefix+key, b)
}

// Delete 删除条目。
func (c *TTL[T]) Delete(ctx context.Context, key string) error {
	return c.Store.Delete(ctx, c.Prefix+key)
}

// RankingKey 组合排行榜缓存键：country|sectionType|genre（0 记为 all）。
func RankingKey(country, sectionType string, genreID int) string {
	genre := "all"
	if genreID > 0 {
		genre = fmt.Sprintf("%d", genreID)
	}
	return strings.ToLower(country) + "|" + sectionType + "|" + genre
}

// DetailKey 组合详情缓存键：country_appId。
func DetailKey(country, appID string) string {
	return strings.ToLower(country) + "_" + appID
}

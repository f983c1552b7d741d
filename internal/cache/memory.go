package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory 为进程内缓存存储（有界 LRU，可选整体过期时间）。
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory 创建内存存储；size<=0 时取 1024，ttl 为 0 表示不过期。
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 1024
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, append([]byte(nil), value...))
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len 返回当前条目数。
func (m *Memory) Len() int { return m.lru.Len() }

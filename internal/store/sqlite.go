// 包 store 提供持久化键值存储（SQLite），承载排行榜缓存、详情缓存与偏好设置。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// Stats 为存储概况。
type Stats struct {
	Keys      int
	Bytes     int64
	UpdatedAt time.Time // 最近一次写入时间，空库为零值
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	// 说明：modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value BLOB NOT NULL,
            updated_at INTEGER
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// Get 读取键值；不存在时 ok=false。
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// Put 插入或覆盖键值（后写入者生效）。
func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("key required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv(key, value, updated_at)
        VALUES(?,?,?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete 删除键；不存在时不报错。
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys 按前缀列出键（升序）。
func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan keys: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return out, nil
}

// Reset 清空指定前缀的键；prefix 为空时清空全部（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context, prefix string) (int64, error) {
	var res sql.Result
	var err error
	if prefix == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM kv`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM kv WHERE substr(key, 1, ?) = ?`, len(prefix), prefix)
	}
	if err != nil {
		return 0, fmt.Errorf("reset %q: %w", prefix, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Prune 清理早于 before 写入的键（updated_at 为毫秒时间戳）。
func (s *SQLite) Prune(ctx context.Context, prefix string, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE substr(key, 1, ?) = ? AND updated_at < ?`,
		len(prefix), prefix, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune %q: %w", prefix, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Stats 统计指定前缀下的键数量、总字节数与最近写入时间。
func (s *SQLite) Stats(ctx context.Context, prefix string) (Stats, error) {
	var st Stats
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(length(value)), 0), MAX(updated_at) FROM kv WHERE substr(key, 1, ?) = ?`,
		len(prefix), prefix).Scan(&st.Keys, &st.Bytes, &last)
	if err != nil {
		return st, fmt.Errorf("stats %q: %w", prefix, err)
	}
	if last.Valid {
		st.UpdatedAt = time.UnixMilli(last.Int64)
	}
	return st, nil
}

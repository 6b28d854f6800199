package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"limp/internal/gateway/provider"

	_ "modernc.org/sqlite"
)

// CallLogStore 持久化每次模型调用的输入/输出摘要，方便排查抽取
// 质量问题与重放提示词。
type CallLogStore struct {
	mu sync.Mutex
	db *sql.DB
}

// CallRecord 一条已落库的调用记录。
type CallRecord struct {
	ID         int64  `json:"id"`
	Timestamp  int64  `json:"ts"`
	ProviderID string `json:"provider_id"`
	System     string `json:"system_prompt"`
	User       string `json:"user_prompt"`
	ImageCount int    `json:"image_count"`
	Output     string `json:"raw_output"`
	Error      string `json:"error,omitempty"`
	LatencyMS  int64  `json:"latency_ms"`
	CreatedAt  int64  `json:"created_at"`
}

// NewCallLogStore 初始化 SQLite 审计库。
func NewCallLogStore(path string) (*CallLogStore, error) {
	if path == "" {
		return nil, fmt.Errorf("call log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureCallLogSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &CallLogStore{db: db}, nil
}

func ensureCallLogSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS model_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			provider_id TEXT,
			system_prompt TEXT,
			user_prompt TEXT,
			image_count INTEGER,
			raw_output TEXT,
			error TEXT,
			latency_ms INTEGER,
			created_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_model_calls_ts ON model_calls(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_model_calls_provider ON model_calls(provider_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordCall 实现 provider.CallSink。
func (s *CallLogStore) RecordCall(ctx context.Context, log provider.CallLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("call log store closed")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_calls (ts, provider_id, system_prompt, user_prompt, image_count, raw_output, error, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.Timestamp.UnixMilli(),
		log.ProviderID,
		log.System,
		log.User,
		log.ImageCount,
		log.Output,
		log.Err,
		log.Latency.Milliseconds(),
		time.Now().UnixMilli(),
	)
	return err
}

// Recent 按时间倒序返回最近的调用记录。
func (s *CallLogStore) Recent(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("call log store closed")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, provider_id, system_prompt, user_prompt, image_count, raw_output, error, latency_ms, created_at
		 FROM model_calls ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var rec CallRecord
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.ProviderID, &rec.System, &rec.User,
			&rec.ImageCount, &rec.Output, &rec.Error, &rec.LatencyMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close 关闭底层 DB。
func (s *CallLogStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

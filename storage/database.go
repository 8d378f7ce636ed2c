package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"sitegen/interfaces"

	_ "modernc.org/sqlite"
)

// --- DBStore ---

// DBStore は生成回数の台帳を保持するSQLiteストアです。
// プロンプトや生成されたHTMLは保存しません。
type DBStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ interfaces.UsageStore = (*DBStore)(nil)

func NewDBStore(dataSourceName string) (*DBStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}
	// SQLiteは書き込みが1本なので接続を1つに絞る
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	store := &DBStore{db: db}
	if err = store.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *DBStore) initTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS generation_usage (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			prompt_chars INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_generation_usage_user_time
			ON generation_usage (user_id, created_at);`,
	}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) Close() {
	s.db.Close()
}

func (s *DBStore) PingDB() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Ping()
}

// --- Usage ---

// RecordGeneration は生成1回分の記録を追加します。CreatedAt が空なら現在時刻を使います。
func (s *DBStore) RecordGeneration(ctx context.Context, rec interfaces.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_usage (user_id, outcome, prompt_chars, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.UserID, rec.Outcome, rec.PromptChars, rec.Duration.Milliseconds(), created.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("使用記録の保存に失敗: %w", err)
	}
	return nil
}

// CountGenerationsSince は since 以降にユーザーが成功させた生成の回数を返します。
// 上流の障害で失敗した分は数えません。
func (s *DBStore) CountGenerationsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM generation_usage WHERE user_id = ? AND outcome = ? AND created_at >= ?",
		userID, interfaces.OutcomeSuccess, since.UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("使用回数の取得に失敗: %w", err)
	}
	return count, nil
}

// PruneUsageBefore は before より古い記録を削除し、削除件数を返します。
func (s *DBStore) PruneUsageBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM generation_usage WHERE created_at < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("古い使用記録の削除に失敗: %w", err)
	}
	return res.RowsAffected()
}

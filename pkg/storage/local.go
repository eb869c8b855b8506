package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const localStoreName = "local"

// LocalStore は SQLite の kv テーブルに値を永続化します。
type LocalStore struct {
	db *sql.DB
}

// OpenLocal は path の SQLite ファイルを開き、テーブルがなければ作成します。
func OpenLocal(ctx context.Context, path string) (*LocalStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ストアのディレクトリ作成に失敗しました: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ストアのオープンに失敗しました: %w", err)
	}
	// 書き込みの競合を避けるため接続は1本に絞ります。
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ストアへの接続に失敗しました: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("テーブルの作成に失敗しました: %w", err)
	}
	return &LocalStore{db: db}, nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, wrapErr("get", localStoreName, key, err)
}

func (s *LocalStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP",
		key, value)
	return wrapErr("set", localStoreName, key, err)
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return wrapErr("delete", localStoreName, key, err)
}

// Take は1つのトランザクション内で読み出しと削除を行います。
func (s *LocalStore) Take(ctx context.Context, key string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", wrapErr("take", localStoreName, key, err)
	}
	defer tx.Rollback()

	var value string
	err = tx.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", wrapErr("take", localStoreName, key, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return "", wrapErr("take", localStoreName, key, err)
	}
	if err := tx.Commit(); err != nil {
		return "", wrapErr("take", localStoreName, key, err)
	}
	return value, nil
}

// Close はデータベースを閉じます。
func (s *LocalStore) Close() error {
	return s.db.Close()
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const sessionStoreName = "session"

// SessionStore はセッションの間だけ値を保持するストアです。
// TTL を過ぎた値は自動的に失われます。
// snapshotPath を指定すると、CLI の呼び出しをまたいで同じセッションを共有できます。
type SessionStore struct {
	mu           sync.Mutex
	cache        *cache.Cache
	snapshotPath string
}

// NewSessionStore はメモリ上のセッションストアを生成します。
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		cache: cache.New(ttl, 2*ttl),
	}
}

// OpenSessionStore はスナップショットファイルから期限内の値を復元したストアを返します。
func OpenSessionStore(path string, ttl time.Duration) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("セッションのディレクトリ作成に失敗しました: %w", err)
	}
	s := NewSessionStore(ttl)
	s.snapshotPath = path
	if err := s.cache.LoadFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("セッションの復元に失敗しました: %w", err)
	}
	return s, nil
}

func (s *SessionStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return v.(string), nil
}

func (s *SessionStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.SetDefault(key, value)
	return wrapErr("set", sessionStoreName, key, s.persist())
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(key)
	return wrapErr("delete", sessionStoreName, key, s.persist())
}

// Take はロックを保持したまま読み出しと削除を行うため、同時に呼ばれても値を返すのは1回だけです。
func (s *SessionStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	s.cache.Delete(key)
	if err := s.persist(); err != nil {
		return "", wrapErr("take", sessionStoreName, key, err)
	}
	return v.(string), nil
}

// persist はスナップショットファイルに期限内の値を書き出します。
// 同じディレクトリの一時ファイルに書いてから置き換えるので、中断されても前回の内容が残ります。
func (s *SessionStore) persist() error {
	if s.snapshotPath == "" {
		return nil
	}
	f, err := os.CreateTemp(filepath.Dir(s.snapshotPath), filepath.Base(s.snapshotPath)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := s.cache.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

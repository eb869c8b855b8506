// Package prefs はユーザーIDと保存先サブパスの読み書きを行います。
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-media-studio/pkg/domain"
	"github.com/shouni/go-media-studio/pkg/storage"
)

const (
	KeyUserID  = "userId"
	KeySubPath = "subPath"

	DefaultUserID       = "KTaivle"
	DefaultSubPath      = "examples"
	DefaultVideoSubPath = "videos"
)

// DefaultSubPathFor は画面ごとの既定のサブパスを返します。
func DefaultSubPathFor(page domain.Page) string {
	if page == domain.PageVideo {
		return DefaultVideoSubPath
	}
	return DefaultSubPath
}

// Defaults は画面の既定値を返します。
func Defaults(page domain.Page) domain.UserPreferences {
	return domain.UserPreferences{UserID: DefaultUserID, SubPath: DefaultSubPathFor(page)}
}

// Store は永続ストア上のユーザー設定です。
type Store struct {
	kv storage.KV
}

// New は Store を生成します。
func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Load は保存済みの設定を読み込みます。未保存や空文字の項目は画面の既定値で補います。
func (s *Store) Load(ctx context.Context, page domain.Page) (domain.UserPreferences, error) {
	p := Defaults(page)

	userID, err := s.get(ctx, KeyUserID)
	if err != nil {
		return p, err
	}
	if userID != "" {
		p.UserID = userID
	}

	subPath, err := s.get(ctx, KeySubPath)
	if err != nil {
		return p, err
	}
	if subPath != "" {
		p.SubPath = subPath
	}
	return p, nil
}

// Save は前後の空白を除いて両方の値を保存します。
func (s *Store) Save(ctx context.Context, p domain.UserPreferences) error {
	if err := s.kv.Set(ctx, KeyUserID, strings.TrimSpace(p.UserID)); err != nil {
		return fmt.Errorf("ユーザーIDの保存に失敗しました: %w", err)
	}
	if err := s.kv.Set(ctx, KeySubPath, strings.TrimSpace(p.SubPath)); err != nil {
		return fmt.Errorf("保存先パスの保存に失敗しました: %w", err)
	}
	return nil
}

// SetUserID はユーザーIDのみを更新します。入力欄の変更ごとに呼ばれます。
func (s *Store) SetUserID(ctx context.Context, userID string) error {
	if err := s.kv.Set(ctx, KeyUserID, strings.TrimSpace(userID)); err != nil {
		return fmt.Errorf("ユーザーIDの保存に失敗しました: %w", err)
	}
	return nil
}

// SetSubPath はサブパスのみを更新します。
func (s *Store) SetSubPath(ctx context.Context, subPath string) error {
	if err := s.kv.Set(ctx, KeySubPath, strings.TrimSpace(subPath)); err != nil {
		return fmt.Errorf("保存先パスの保存に失敗しました: %w", err)
	}
	return nil
}

// SavePath は現在の設定から "userId\subPath" を組み立てます。
func (s *Store) SavePath(ctx context.Context, page domain.Page) (string, error) {
	p, err := s.Load(ctx, page)
	if err != nil {
		return "", err
	}
	return p.SavePath()
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("設定 %s の読み込みに失敗しました: %w", key, err)
	}
	return strings.TrimSpace(v), nil
}

// Package transfer は画面間でプロンプトを一度だけ受け渡します。
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shouni/go-media-studio/pkg/storage"
)

const (
	// KeyTransferred は動画画面からプロンプト画面へ戻すときのキーです。
	KeyTransferred = "transferredPrompt"
	// KeyVideo はプロンプト画面から動画画面へ渡すときのキーです。
	KeyVideo = "videoPrompt"
	// KeyPrevious はプロンプト画面を離れるときに残す直前のプロンプトです（永続ストア）。
	KeyPrevious = "previousPrompt"
)

// Adapter はセッションストア上の一度きりの受け渡しを扱います。
type Adapter struct {
	kv storage.KV
}

// New は Adapter を生成します。
func New(kv storage.KV) *Adapter {
	return &Adapter{kv: kv}
}

// Put はプロンプトを key に預けます。
func (a *Adapter) Put(ctx context.Context, key, prompt string) error {
	if err := a.kv.Set(ctx, key, prompt); err != nil {
		return fmt.Errorf("プロンプトの受け渡しに失敗しました: %w", err)
	}
	return nil
}

// Take は預けられたプロンプトを取り出し、同時に削除します。
// 2回目以降の呼び出しでは ok が false になります。
func (a *Adapter) Take(ctx context.Context, key string) (prompt string, ok bool, err error) {
	v, err := a.kv.Take(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("プロンプトの取り出しに失敗しました: %w", err)
	}
	return v, true, nil
}

// HandOffToVideo は動画画面へプロンプトを渡します。空白のみのプロンプトは渡しません。
func (a *Adapter) HandOffToVideo(ctx context.Context, prompt string) (bool, error) {
	if strings.TrimSpace(prompt) == "" {
		return false, nil
	}
	return true, a.Put(ctx, KeyVideo, prompt)
}

// TakeVideoPrompt は動画画面の初期表示で受け取ったプロンプトを返します。
func (a *Adapter) TakeVideoPrompt(ctx context.Context) (string, bool, error) {
	return a.Take(ctx, KeyVideo)
}

// HandBackToPromptPage は動画画面からプロンプト画面へプロンプトを戻します。
func (a *Adapter) HandBackToPromptPage(ctx context.Context, prompt string) error {
	return a.Put(ctx, KeyTransferred, prompt)
}

// Source は復元されたプロンプトの出どころです。
type Source string

const (
	SourceNone        Source = ""
	SourceTransferred Source = "transferred"
	SourcePrevious    Source = "previous"
)

// Restorer はプロンプト画面を開いたときの初期値を決めます。
type Restorer struct {
	session *Adapter
	local   storage.KV
}

// NewRestorer は Restorer を生成します。
func NewRestorer(session *Adapter, local storage.KV) *Restorer {
	return &Restorer{session: session, local: local}
}

// Remember は画面を離れる前のプロンプトを永続ストアに残します。
func (r *Restorer) Remember(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}
	if err := r.local.Set(ctx, KeyPrevious, prompt); err != nil {
		return fmt.Errorf("直前のプロンプトの保存に失敗しました: %w", err)
	}
	return nil
}

// Restore は受け渡されたプロンプトがあればそれを優先し、なければ直前のプロンプトを返します。
// 使われた値だけが消費されます。
func (r *Restorer) Restore(ctx context.Context) (string, Source, error) {
	prompt, ok, err := r.session.Take(ctx, KeyTransferred)
	if err != nil {
		return "", SourceNone, err
	}
	if ok && prompt != "" {
		return prompt, SourceTransferred, nil
	}

	prev, err := r.local.Take(ctx, KeyPrevious)
	if errors.Is(err, storage.ErrNotFound) {
		return "", SourceNone, nil
	}
	if err != nil {
		return "", SourceNone, fmt.Errorf("直前のプロンプトの復元に失敗しました: %w", err)
	}
	if prev == "" {
		return "", SourceNone, nil
	}
	return prev, SourcePrevious, nil
}

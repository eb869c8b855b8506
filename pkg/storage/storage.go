// Package storage は設定値とプロンプトの受け渡しに使うキー・バリューストアを提供します。
//
// LocalStore はプロセスをまたいで残る値（ユーザーID、保存先、直前のプロンプト）を、
// SessionStore はセッション中だけ有効な一度きりの値（画面間で受け渡すプロンプト）を保持します。
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound はキーが存在しないことを表します。
var ErrNotFound = errors.New("キーが見つかりません")

// KV は文字列のキー・バリューストアです。
type KV interface {
	// Get はキーの値を返します。存在しない場合は ErrNotFound を返します。
	Get(ctx context.Context, key string) (string, error)
	// Set は値を上書き保存します。
	Set(ctx context.Context, key, value string) error
	// Delete はキーを削除します。存在しなくてもエラーにはなりません。
	Delete(ctx context.Context, key string) error
	// Take は値の読み出しと削除を一度に行います。2回目以降は ErrNotFound になります。
	Take(ctx context.Context, key string) (string, error)
}

// OpError はストア操作の失敗をキーとともに保持します。
type OpError struct {
	Op    string
	Store string
	Key   string
	Err   error
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s %q: %v", e.Op, e.Store, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func wrapErr(op, store, key string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &OpError{Op: op, Store: store, Key: key, Err: err}
}

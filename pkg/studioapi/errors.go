package studioapi

import (
	"fmt"

	"github.com/shouni/go-media-studio/pkg/domain"
)

// ErrValidation は送信前の入力検証で失敗したことを表します。
var ErrValidation = domain.ErrValidation

// ValidationError は送信前に検出された入力不備です。
type ValidationError = domain.ValidationError

// APIError はサーバーが 2xx 以外を返したときのエラーです。
// Message にはレスポンスボディの error フィールドが入ります。
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: サーバーエラー (status %d)", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, e.Message, e.StatusCode)
}

// TransportError は通信またはレスポンスのデコードに失敗したことを表します。
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: 通信に失敗しました: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

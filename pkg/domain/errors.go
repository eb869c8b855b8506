package domain

import (
	"errors"
	"fmt"
)

// ErrValidation は入力検証エラーを判定するための番兵エラーです。
// errors.Is(err, ErrValidation) で ValidationError を判別できます。
var ErrValidation = errors.New("入力が不正です")

// ValidationError は送信前に検出された入力不備です。ネットワーク通信は発生していません。
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError は ValidationError を生成します。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is は ErrValidation との比較を可能にします。
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

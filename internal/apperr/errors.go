// Package apperr は各コンポーネントで共有するエラー種別を定義します。
package apperr

import "errors"

var (
	// ドメインエラー（利用者起因。4xx に対応）
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrUnknownUser       = errors.New("unknown user")
	ErrWrongSecret       = errors.New("wrong secret")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrEmptyContent      = errors.New("empty content")

	// インフラエラー（ディスク・ネットワーク・DB 障害。5xx に対応）
	ErrStorage = errors.New("storage unavailable")
)

// StorageError はストレージ障害を原因付きで保持します。
// errors.Is(err, ErrStorage) と原因エラーの両方に一致します。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + ErrStorage.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorage}
	}
	return []error{ErrStorage, e.Err}
}

// Storage は err を StorageError で包みます。err が nil の場合は nil を返します。
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsDomain はリクエスト内容に起因するエラーかどうかを判定します。
func IsDomain(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrDuplicateUsername),
		errors.Is(err, ErrUnknownUser),
		errors.Is(err, ErrWrongSecret),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrEmptyContent):
		return !errors.Is(err, ErrStorage)
	default:
		return false
	}
}

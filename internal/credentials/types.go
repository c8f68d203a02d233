package credentials

import (
	"context"
	"time"
)

// User は登録済みユーザーの認証情報です。平文のパスワードは保持しません。
type User struct {
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository はユーザー情報の永続化先が実装します。
type Repository interface {
	// CreateUser はユーザー名の重複確認と保存を不可分に行います。
	// 重複時は apperr.ErrDuplicateUsername を返します。
	CreateUser(ctx context.Context, user User) error
	// GetUser は存在しない場合 nil, nil を返します。
	GetUser(ctx context.Context, username string) (*User, error)
}

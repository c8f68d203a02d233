package session

import (
	"context"
	"errors"
	"time"
)

// ErrTokenExists は Store.Insert で同じトークンが既に有効な場合に返されます。
var ErrTokenExists = errors.New("session token already exists")

// Session はログイン済みセッションの状態を表します。
type Session struct {
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Expired は now 時点で期限切れかどうかを返します。ExpiresAt がゼロ値なら期限はありません。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store はセッションの保存先が実装します。
type Store interface {
	// Insert はトークンが未使用の場合のみ保存します。使用中なら ErrTokenExists を返します。
	Insert(ctx context.Context, session *Session, ttl time.Duration) error
	// Get は存在しない場合 nil, nil を返します。
	Get(ctx context.Context, token string) (*Session, error)
	// Delete は存在しないトークンでもエラーにしません。
	Delete(ctx context.Context, token string) error
}

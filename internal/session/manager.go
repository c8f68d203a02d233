// Package session はログインセッションの発行・解決・破棄を提供します。
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/sennin-board/internal/apperr"
)

const (
	tokenBytes       = 32
	maxInsertAttempt = 3
)

// Manager は Store を使ってセッションを管理します。
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	rand  func([]byte) (int, error)
}

// NewManager は Manager を作成します。ttl が 0 以下ならセッションは期限切れになりません。
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Manager{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		rand:  rand.Read,
	}, nil
}

// TTL はセッションの有効期間を返します。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create は username に紐づく新しいトークンを発行します。
func (m *Manager) Create(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: username is required", apperr.ErrInvalidInput)
	}

	for attempt := 0; attempt < maxInsertAttempt; attempt++ {
		token, err := m.generateToken()
		if err != nil {
			return "", fmt.Errorf("failed to generate session token: %w", err)
		}

		now := m.now().UTC()
		sess := &Session{
			Token:     token,
			Username:  username,
			CreatedAt: now,
		}
		if m.ttl > 0 {
			sess.ExpiresAt = now.Add(m.ttl)
		}

		err = m.store.Insert(ctx, sess, m.ttl)
		if errors.Is(err, ErrTokenExists) {
			continue
		}
		if err != nil {
			return "", apperr.Storage("insert session", err)
		}
		return token, nil
	}
	return "", errors.New("failed to allocate a unique session token")
}

// Resolve はトークンに対応するセッションを返します。未知・破棄済み・期限切れの場合は nil, nil です。
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, apperr.Storage("get session", err)
	}
	if sess == nil {
		return nil, nil
	}
	if sess.Expired(m.now()) {
		if err := m.store.Delete(ctx, token); err != nil {
			return nil, apperr.Storage("delete expired session", err)
		}
		return nil, nil
	}
	sess.Token = token
	return sess, nil
}

// Destroy はトークンを無効化します。既に存在しない場合も成功します。
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return apperr.Storage("delete session", err)
	}
	return nil
}

// RequireAuthenticated は有効なセッションのユーザー名を返します。
// 無効な場合は apperr.ErrUnauthorized を返します。
func (m *Manager) RequireAuthenticated(ctx context.Context, token string) (string, error) {
	sess, err := m.Resolve(ctx, token)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", apperr.ErrUnauthorized
	}
	return sess.Username, nil
}

func (m *Manager) generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := m.rand(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

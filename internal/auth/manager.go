// Package auth は認証・認可機能を提供します。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	SessionCookieName = "sb_session"
	sessionKeyToken   = "token"
	sessionKeyCSRF    = "csrf_token"

	csrfHeader         = "X-CSRF-Token"
	sessionTokenHeader = "X-Session-Token"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザー名を共有するためのキーです。
const ContextUserKey = "auth.user"

// defaultCookieMaxAge は TTL 無期限時に使うクッキーの MaxAge です。
var defaultCookieMaxAge = 30 * 24 * time.Hour

// CredentialService はユーザー登録とパスワード検証を提供します。
type CredentialService interface {
	Register(ctx context.Context, username, secret string) error
	Verify(ctx context.Context, username, secret string) (string, error)
}

// SessionService はセッショントークンの発行と検証を提供します。
type SessionService interface {
	Create(ctx context.Context, username string) (string, error)
	RequireAuthenticated(ctx context.Context, token string) (string, error)
	Destroy(ctx context.Context, token string) error
}

// Options は Manager の動作設定です。
type Options struct {
	CSRFEnabled bool
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	credentials CredentialService
	sessions    SessionService
	opts        Options
	logger      *zap.Logger
}

// NewManager は認証マネージャーを作成します。
func NewManager(credentials CredentialService, sessions SessionService, opts Options, logger *zap.Logger) (*Manager, error) {
	if credentials == nil {
		return nil, errors.New("credential service is nil")
	}
	if sessions == nil {
		return nil, errors.New("session service is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		credentials: credentials,
		sessions:    sessions,
		opts:        opts,
		logger:      logger,
	}, nil
}

// CookieMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func CookieMaxAgeSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		ttl = defaultCookieMaxAge
	}
	return int(ttl.Seconds())
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GenerateSecret はクッキー署名用のランダムな秘密鍵を生成します。
func GenerateSecret() (string, error) {
	return generateToken()
}

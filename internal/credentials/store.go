// Package credentials はユーザー登録とパスワード検証を提供します。
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/sennin-board/internal/apperr"
)

const (
	// MaxUsernameLength はユーザー名の最大文字数です。
	MaxUsernameLength = 64
	// MaxSecretBytes は bcrypt が扱えるパスワードの最大バイト数です。
	MaxSecretBytes = 72
)

// Store は Repository の上で登録と認証を行います。
type Store struct {
	repo      Repository
	cost      int
	dummyHash []byte
	now       func() time.Time
}

// NewStore は Store を作成します。cost が範囲外の場合は bcrypt.DefaultCost を使います。
func NewStore(repo Repository, cost int) (*Store, error) {
	if repo == nil {
		return nil, errors.New("repository is nil")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// 存在しないユーザーでも同じ計算量で比較するためのハッシュ
	dummy, err := bcrypt.GenerateFromPassword([]byte("sennin-board-dummy"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &Store{
		repo:      repo,
		cost:      cost,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// Register は新しいユーザーを登録します。
func (s *Store) Register(ctx context.Context, username, secret string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validateSecret(secret); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return fmt.Errorf("%w: password too long", apperr.ErrInvalidInput)
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.CreateUser(ctx, User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
}

// Verify はユーザー名とパスワードの組を検証し、成功時はユーザー名を返します。
func (s *Store) Verify(ctx context.Context, username, secret string) (string, error) {
	if username == "" || secret == "" {
		return "", fmt.Errorf("%w: username and password are required", apperr.ErrInvalidInput)
	}

	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret))
		return "", apperr.ErrUnknownUser
	}
	// bcrypt は 72 バイトを超える部分を無視するため、登録できない長さは常に不一致とする
	if len(secret) > MaxSecretBytes {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret[:MaxSecretBytes]))
		return "", apperr.ErrWrongSecret
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", apperr.ErrWrongSecret
		}
		return "", apperr.Storage("verify password hash", err)
	}
	return user.Username, nil
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username must be at most %d characters", apperr.ErrInvalidInput, MaxUsernameLength)
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: username contains control characters", apperr.ErrInvalidInput)
		}
	}
	return nil
}

func validateSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: password is required", apperr.ErrInvalidInput)
	}
	if len(secret) > MaxSecretBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", apperr.ErrInvalidInput, MaxSecretBytes)
	}
	return nil
}

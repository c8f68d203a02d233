// Package posts は投稿の追加と取得を提供します。
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yourusername/sennin-board/internal/apperr"
)

// DefaultMaxLength は投稿本文の既定の最大文字数です。
const DefaultMaxLength = 1000

// Store は Repository の上で投稿の検証と保存を行います。
type Store struct {
	repo      Repository
	maxLength int
	now       func() time.Time
}

// NewStore は Store を作成します。maxLength <= 0 の場合は DefaultMaxLength を使います。
func NewStore(repo Repository, maxLength int) (*Store, error) {
	if repo == nil {
		return nil, errors.New("repository is nil")
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Store{
		repo:      repo,
		maxLength: maxLength,
		now:       time.Now,
	}, nil
}

// Append は認証済みユーザー author の投稿を追加します。
func (s *Store) Append(ctx context.Context, author, content string) (*Post, error) {
	if author == "" {
		return nil, apperr.ErrUnauthorized
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, apperr.ErrEmptyContent
	}
	if utf8.RuneCountInString(trimmed) > s.maxLength {
		return nil, fmt.Errorf("%w: content must be at most %d characters", apperr.ErrInvalidInput, s.maxLength)
	}

	return s.repo.AppendPost(ctx, Post{
		Author:    author,
		Content:   trimmed,
		CreatedAt: s.now().UTC(),
	})
}

// ListRecent は新しい順に最大 limit 件の投稿を返します。limit <= 0 の場合は全件です。
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	list, err := s.repo.ListRecentPosts(ctx, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Post{}
	}
	return list, nil
}

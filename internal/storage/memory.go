// Package storage はユーザーと投稿の永続化バックエンドを提供します。
//
// Memory, Local, Postgres の各実装は credentials.Repository と
// posts.Repository の両方を満たします。
package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yourusername/sennin-board/internal/apperr"
	"github.com/yourusername/sennin-board/internal/credentials"
	"github.com/yourusername/sennin-board/internal/posts"
)

// Memory はプロセス内メモリに保存するバックエンドです。テストや開発用です。
type Memory struct {
	mu    sync.RWMutex
	users map[string]credentials.User
	posts []posts.Post
}

// NewMemory は空の Memory を作成します。
func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]credentials.User),
	}
}

// CreateUser はユーザーを保存します。
func (m *Memory) CreateUser(ctx context.Context, user credentials.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Username]; exists {
		return apperr.ErrDuplicateUsername
	}
	user.PasswordHash = append([]byte(nil), user.PasswordHash...)
	m.users[user.Username] = user
	return nil
}

// GetUser はユーザーを取得します。
func (m *Memory) GetUser(ctx context.Context, username string) (*credentials.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// AppendPost は投稿を末尾に追加します。
func (m *Memory) AppendPost(ctx context.Context, post posts.Post) (*posts.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts = append(m.posts, post)
	return &post, nil
}

// ListRecentPosts は新しい順に投稿を返します。
func (m *Memory) ListRecentPosts(ctx context.Context, limit int) ([]posts.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return newestFirst(m.posts, limit), nil
}

// Close は何もしません。
func (m *Memory) Close() error {
	return nil
}

// newestFirst は追加順に並んだ list を逆順にし、先頭 limit 件のコピーを返します。
func newestFirst(list []posts.Post, limit int) []posts.Post {
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]posts.Post, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out
}

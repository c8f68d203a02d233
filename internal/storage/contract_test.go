package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sennin-board/internal/apperr"
	"github.com/yourusername/sennin-board/internal/credentials"
	"github.com/yourusername/sennin-board/internal/posts"
)

type backend interface {
	credentials.Repository
	posts.Repository
}

func backends(t *testing.T) map[string]func(t *testing.T) backend {
	t.Helper()
	return map[string]func(t *testing.T) backend{
		"memory": func(t *testing.T) backend {
			return NewMemory()
		},
		"local": func(t *testing.T) backend {
			l, err := NewLocal(t.TempDir())
			require.NoError(t, err)
			return l
		},
	}
}

func TestBackendUsers(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t)

			got, err := repo.GetUser(ctx, "alice")
			require.NoError(t, err)
			assert.Nil(t, got)

			user := credentials.User{Username: "alice", PasswordHash: []byte("$2a$04$hash"), CreatedAt: time.Now().UTC()}
			require.NoError(t, repo.CreateUser(ctx, user))

			got, err = repo.GetUser(ctx, "alice")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "alice", got.Username)
			assert.Equal(t, user.PasswordHash, got.PasswordHash)

			err = repo.CreateUser(ctx, credentials.User{Username: "alice", PasswordHash: []byte("other")})
			assert.ErrorIs(t, err, apperr.ErrDuplicateUsername)

			// 大文字小文字は区別する
			require.NoError(t, repo.CreateUser(ctx, credentials.User{Username: "Alice", PasswordHash: []byte("x")}))
		})
	}
}

func TestBackendConcurrentRegistration(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t)

			const callers = 16
			var (
				wg         sync.WaitGroup
				succeeded  atomic.Int32
				duplicates atomic.Int32
			)
			start := make(chan struct{})
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					err := repo.CreateUser(ctx, credentials.User{
						Username:     "bob",
						PasswordHash: []byte(fmt.Sprintf("hash-%d", i)),
					})
					switch {
					case err == nil:
						succeeded.Add(1)
					case assert.ErrorIs(t, err, apperr.ErrDuplicateUsername):
						duplicates.Add(1)
					}
				}(i)
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), succeeded.Load())
			assert.Equal(t, int32(callers-1), duplicates.Load())
		})
	}
}

func TestBackendPostsNewestFirst(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t)

			empty, err := repo.ListRecentPosts(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, empty)

			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				saved, err := repo.AppendPost(ctx, posts.Post{
					Author:    "alice",
					Content:   fmt.Sprintf("post-%d", i),
					CreatedAt: base.Add(time.Duration(i) * time.Second),
				})
				require.NoError(t, err)
				assert.NotEmpty(t, saved.ID)
			}

			all, err := repo.ListRecentPosts(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 5)
			for i, post := range all {
				assert.Equal(t, fmt.Sprintf("post-%d", 4-i), post.Content)
			}

			recent, err := repo.ListRecentPosts(ctx, 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, "post-4", recent[0].Content)
			assert.Equal(t, "post-3", recent[1].Content)

			more, err := repo.ListRecentPosts(ctx, 50)
			require.NoError(t, err)
			assert.Len(t, more, 5)
		})
	}
}

func TestBackendHonoursCanceledContext(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			assert.ErrorIs(t, repo.CreateUser(ctx, credentials.User{Username: "x"}), context.Canceled)
			_, err := repo.AppendPost(ctx, posts.Post{Author: "x", Content: "y"})
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

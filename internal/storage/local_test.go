package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sennin-board/internal/apperr"
	"github.com/yourusername/sennin-board/internal/credentials"
	"github.com/yourusername/sennin-board/internal/posts"
)

func TestLocalReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewLocal(dir)
	require.NoError(t, err)
	require.NoError(t, first.CreateUser(ctx, credentials.User{Username: "alice", PasswordHash: []byte("$2a$04$abc")}))
	_, err = first.AppendPost(ctx, posts.Post{Author: "alice", Content: "hello", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	second, err := NewLocal(dir)
	require.NoError(t, err)

	user, err := second.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, []byte("$2a$04$abc"), user.PasswordHash)

	list, err := second.ListRecentPosts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Content)
	assert.Equal(t, "alice", list[0].Author)
}

func TestLocalNeverStoresPlaintext(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	local, err := NewLocal(dir)
	require.NoError(t, err)
	store, err := credentials.NewStore(local, 4)
	require.NoError(t, err)
	require.NoError(t, store.Register(ctx, "alice", "secret1"))

	data, err := os.ReadFile(filepath.Join(dir, usersFilename))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret1")

	var users map[string]localUser
	require.NoError(t, json.Unmarshal(data, &users))
	assert.Contains(t, users, "alice")
}

func TestLocalWriteFailureLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	local, err := NewLocal(dir)
	require.NoError(t, err)
	local.writeFile = func(string, any) error {
		return errors.New("disk full")
	}

	err = local.CreateUser(ctx, credentials.User{Username: "alice", PasswordHash: []byte("h")})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	user, err := local.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, user)

	_, err = local.AppendPost(ctx, posts.Post{Author: "alice", Content: "hello"})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	list, err := local.ListRecentPosts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, statErr := os.Stat(filepath.Join(dir, usersFilename))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, postsFilename))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, postsFilename), []byte("{not json"), 0o640))

	_, err := NewLocal(dir)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestLocalRejectsUnrecognizedRecords(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"plaintext users", usersFilename, `{"alice":"pw"}`},
		{"user without hash", usersFilename, `{"alice":{"createdAt":"2024-01-01T00:00:00Z"}}`},
		{"posts without author", postsFilename, `[{"name":"alice","message":"hi","timestamp":"2024-01-01T00:00:00Z"}]`},
		{"post without content", postsFilename, `[{"id":"1","author":"alice","content":""}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.filename), []byte(tt.content), 0o640))

			_, err := NewLocal(dir)
			assert.ErrorIs(t, err, apperr.ErrStorage)
		})
	}
}

func TestLocalRequiresDirectory(t *testing.T) {
	_, err := NewLocal("")
	assert.Error(t, err)
}

func TestWriteJSONAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	require.NoError(t, writeJSONAtomic(path, map[string]int{"a": 1}))
	require.NoError(t, writeJSONAtomic(path, map[string]int{"a": 2}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())

	var got map[string]int
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got["a"])
}

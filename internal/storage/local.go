package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/sennin-board/internal/apperr"
	"github.com/yourusername/sennin-board/internal/credentials"
	"github.com/yourusername/sennin-board/internal/posts"
)

const (
	usersFilename = "users.json"
	postsFilename = "posts.json"
)

type localUser struct {
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Local はディレクトリ直下の users.json と posts.json に保存するバックエンドです。
//
// 変更のたびにファイル全体を一時ファイルへ書き出してから rename で置き換えます。
// 書き込みに失敗した場合はメモリ上の状態も元に戻します。
type Local struct {
	dir string

	usersMu sync.RWMutex
	users   map[string]localUser

	postsMu sync.RWMutex
	posts   []posts.Post

	writeFile func(path string, v any) error
}

// NewLocal は dir を作成し（存在しない場合）、既存のファイルを読み込みます。
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, apperr.Storage("create data directory", err)
	}

	l := &Local{
		dir:       dir,
		users:     make(map[string]localUser),
		writeFile: writeJSONAtomic,
	}
	if err := readJSON(l.usersPath(), &l.users); err != nil {
		return nil, apperr.Storage("load users", err)
	}
	if err := l.checkUsers(); err != nil {
		return nil, apperr.Storage("load users", err)
	}
	if err := readJSON(l.postsPath(), &l.posts); err != nil {
		return nil, apperr.Storage("load posts", err)
	}
	if err := l.checkPosts(); err != nil {
		return nil, apperr.Storage("load posts", err)
	}
	if l.users == nil {
		l.users = make(map[string]localUser)
	}
	return l, nil
}

// checkUsers は読み込んだユーザーがすべてハッシュを持っているか確認します。
func (l *Local) checkUsers() error {
	for name, u := range l.users {
		if name == "" || u.PasswordHash == "" {
			return fmt.Errorf("%s: user %q has no password hash", usersFilename, name)
		}
	}
	return nil
}

// checkPosts は読み込んだ投稿がすべて ID と投稿者と本文を持っているか確認します。
func (l *Local) checkPosts() error {
	for i, p := range l.posts {
		if p.ID == "" || p.Author == "" || p.Content == "" {
			return fmt.Errorf("%s: entry %d is missing id, author or content", postsFilename, i)
		}
	}
	return nil
}

// CreateUser はユーザーを追加し users.json を書き換えます。
func (l *Local) CreateUser(ctx context.Context, user credentials.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.usersMu.Lock()
	defer l.usersMu.Unlock()

	if _, exists := l.users[user.Username]; exists {
		return apperr.ErrDuplicateUsername
	}
	l.users[user.Username] = localUser{
		PasswordHash: string(user.PasswordHash),
		CreatedAt:    user.CreatedAt,
	}
	if err := l.writeFile(l.usersPath(), l.users); err != nil {
		delete(l.users, user.Username)
		return apperr.Storage("write users", err)
	}
	return nil
}

// GetUser はユーザーを取得します。
func (l *Local) GetUser(ctx context.Context, username string) (*credentials.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.usersMu.RLock()
	defer l.usersMu.RUnlock()

	rec, ok := l.users[username]
	if !ok {
		return nil, nil
	}
	return &credentials.User{
		Username:     username,
		PasswordHash: []byte(rec.PasswordHash),
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// AppendPost は投稿を末尾に追加し posts.json を書き換えます。
func (l *Local) AppendPost(ctx context.Context, post posts.Post) (*posts.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	l.postsMu.Lock()
	defer l.postsMu.Unlock()

	l.posts = append(l.posts, post)
	if err := l.writeFile(l.postsPath(), l.posts); err != nil {
		l.posts = l.posts[:len(l.posts)-1]
		return nil, apperr.Storage("write posts", err)
	}
	return &post, nil
}

// ListRecentPosts は新しい順に投稿を返します。
func (l *Local) ListRecentPosts(ctx context.Context, limit int) ([]posts.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.postsMu.RLock()
	defer l.postsMu.RUnlock()

	return newestFirst(l.posts, limit), nil
}

// Close は何もしません。書き込みは各操作で完了しています。
func (l *Local) Close() error {
	return nil
}

func (l *Local) usersPath() string {
	return filepath.Join(l.dir, usersFilename)
}

func (l *Local) postsPath() string {
	return filepath.Join(l.dir, postsFilename)
}

// readJSON は path が存在する場合のみ v に読み込みます。
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// rename 済みの場合は存在しないので失敗しても問題ない
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

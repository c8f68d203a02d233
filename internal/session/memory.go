package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore はプロセス内メモリにセッションを保存します。再起動で消えます。
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// Insert はトークンが未使用（または期限切れ）の場合に保存します。
func (s *MemoryStore) Insert(ctx context.Context, session *Session, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[session.Token]; ok && !existing.Expired(s.now()) {
		return ErrTokenExists
	}
	stored := *session
	if ttl > 0 && stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = s.now().Add(ttl)
	}
	s.sessions[session.Token] = stored
	return nil
}

// Get はセッションを取得します。
func (s *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, token)
		return nil, nil
	}
	return &sess, nil
}

// Delete はセッションを削除します。
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// size は保持しているセッション数を返します。
func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

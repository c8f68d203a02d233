package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
)

// RedisStore はセッションを Redis に保存します。複数プロセスで共有できます。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb: rdb,
	}
}

// Insert は SETNX でトークンを保存します。ttl > 0 ならキーに有効期限を設定します。
func (s *RedisStore) Insert(ctx context.Context, session *Session, ttl time.Duration) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	if session.Token == "" {
		return fmt.Errorf("session token is required")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, sessionKey(session.Token), payload, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenExists
	}
	return nil
}

// Get はセッションを取得します。
func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	sess.Token = token
	return &sess, nil
}

// Delete はセッションを削除します。
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, sessionKey(token)).Err()
}

// Close は Redis クライアントを閉じます。
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

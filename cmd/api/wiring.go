package main

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourusername/sennin-board/internal/auth"
	"github.com/yourusername/sennin-board/internal/config"
	"github.com/yourusername/sennin-board/internal/credentials"
	"github.com/yourusername/sennin-board/internal/posts"
	"github.com/yourusername/sennin-board/internal/session"
	"github.com/yourusername/sennin-board/internal/storage"
)

// backend はユーザーと投稿の両方を保存できるストレージです。
type backend interface {
	credentials.Repository
	posts.Repository
	Close() error
}

// App は各コンポーネントを束ねたアプリケーションです。
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	credentials *credentials.Store
	sessions    *session.Manager
	posts       *posts.Store
	auth        *auth.Manager

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{cfg: cfg, logger: logger}
	app.closers = append(app.closers, store.Close)

	sessionStore, closeSessions, err := setupSessions(cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if closeSessions != nil {
		app.closers = append(app.closers, closeSessions)
	}

	if app.credentials, err = credentials.NewStore(store, cfg.BcryptCost); err != nil {
		_ = app.Close()
		return nil, err
	}
	if app.sessions, err = session.NewManager(sessionStore, cfg.SessionTTL()); err != nil {
		_ = app.Close()
		return nil, err
	}
	if app.posts, err = posts.NewStore(store, cfg.MaxPostLength); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.auth, err = auth.NewManager(app.credentials, app.sessions, auth.Options{
		CSRFEnabled: cfg.CSRFEnabled,
	}, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

// Close はストレージとセッションストアの接続を閉じます。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func setupStorage(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	case config.StorageFile:
		local, err := storage.NewLocal(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	case config.StoragePostgres:
		pg, err := storage.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}

func setupSessions(cfg *config.Config) (session.Store, func() error, error) {
	switch cfg.SessionBackend {
	case config.SessionMemory:
		return session.NewMemoryStore(), nil, nil
	case config.SessionRedis:
		opt, err := redis.ParseURL(cfg.SessionRedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		store := session.NewRedisStore(redis.NewClient(opt))
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session backend: %s", cfg.SessionBackend)
	}
}

// sessionSecret はクッキー署名鍵を返します。未設定の場合は起動ごとにランダムな鍵を生成します。
func sessionSecret(cfg *config.Config, logger *zap.Logger) (string, error) {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecret, nil
	}
	secret, err := auth.GenerateSecret()
	if err != nil {
		return "", err
	}
	logger.Warn("SESSION_SECRET is not set; using a random key, sessions will not survive restarts")
	return secret, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/yourusername/sennin-board/internal/apperr"
	"github.com/yourusername/sennin-board/internal/credentials"
	"github.com/yourusername/sennin-board/internal/posts"
	"github.com/yourusername/sennin-board/internal/storage/migrations"
)

const pgUniqueViolation = "23505"

// DBTX は *sql.DB と *sql.Tx が共通して満たす操作です。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres は users / posts テーブルに保存するバックエンドです。
type Postgres struct {
	db     DBTX
	closer func() error
}

// NewPostgres は既存の接続から Postgres を作成します。
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// gooseUpContext はテストで差し替えるための継ぎ目です。
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// OpenPostgres は dsn に接続し、マイグレーションを適用します。
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, apperr.Storage("open database", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperr.Storage("ping database", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, apperr.Storage("run migrations", err)
	}

	p := NewPostgres(db)
	p.closer = db.Close
	return p, nil
}

// RunMigrations は埋め込まれたマイグレーションを db に適用します。
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// CreateUser は users に 1 行追加します。一意制約違反は重複として扱います。
func (p *Postgres) CreateUser(ctx context.Context, user credentials.User) error {
	query :=
		`INSERT INTO users (username, password_hash, created_at)
		 VALUES ($1, $2, $3)`

	_, err := p.db.ExecContext(ctx, query, user.Username, string(user.PasswordHash), user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.ErrDuplicateUsername
		}
		return apperr.Storage("insert user", err)
	}
	return nil
}

// GetUser は username に一致するユーザーを取得します。
func (p *Postgres) GetUser(ctx context.Context, username string) (*credentials.User, error) {
	query :=
		`SELECT username, password_hash, created_at FROM users
		 WHERE username = $1`

	var (
		user credentials.User
		hash string
	)
	err := p.db.QueryRowContext(ctx, query, username).Scan(&user.Username, &hash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Storage("select user", err)
	}
	user.PasswordHash = []byte(hash)
	return &user, nil
}

// AppendPost は posts に 1 行追加し、採番された ID を設定して返します。
func (p *Postgres) AppendPost(ctx context.Context, post posts.Post) (*posts.Post, error) {
	query :=
		`INSERT INTO posts (username, content, created_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`

	var id int64
	if err := p.db.QueryRowContext(ctx, query, post.Author, post.Content, post.CreatedAt).Scan(&id); err != nil {
		return nil, apperr.Storage("insert post", err)
	}
	post.ID = fmt.Sprintf("%d", id)
	return &post, nil
}

// ListRecentPosts は created_at の新しい順（同時刻は ID の大きい順）に返します。
func (p *Postgres) ListRecentPosts(ctx context.Context, limit int) ([]posts.Post, error) {
	query :=
		`SELECT id, username, content, created_at FROM posts
		 ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += `
		 LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("select posts", err)
	}
	defer rows.Close()

	list := []posts.Post{}
	for rows.Next() {
		var (
			post posts.Post
			id   int64
		)
		if err := rows.Scan(&id, &post.Author, &post.Content, &post.CreatedAt); err != nil {
			return nil, apperr.Storage("scan post", err)
		}
		post.ID = fmt.Sprintf("%d", id)
		list = append(list, post)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate posts", err)
	}
	return list, nil
}

// Close は OpenPostgres で開いた接続を閉じます。
func (p *Postgres) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

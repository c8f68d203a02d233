package posts

import (
	"context"
	"time"
)

// Post は投稿 1 件を表します。作成後は変更されません。
type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository は投稿の永続化先が実装します。
type Repository interface {
	// AppendPost は投稿を保存し、採番済みの投稿を返します。
	AppendPost(ctx context.Context, post Post) (*Post, error)
	// ListRecentPosts は新しい順に最大 limit 件を返します。limit <= 0 の場合は全件です。
	ListRecentPosts(ctx context.Context, limit int) ([]Post, error)
}

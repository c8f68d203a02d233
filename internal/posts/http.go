package posts

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sennin-board/internal/apperr"
	"github.com/yourusername/sennin-board/internal/auth"
)

// Lister は投稿一覧を返すサービスが実装します。
type Lister interface {
	ListRecent(ctx context.Context, limit int) ([]Post, error)
}

// Appender は投稿を追加するサービスが実装します。
type Appender interface {
	Append(ctx context.Context, author, content string) (*Post, error)
}

type createRequest struct {
	Content string `json:"content"`
	// 旧クライアントは message で送ってくる
	Message string `json:"message"`
}

// ListHandler は GET /api/posts のハンドラーを返します。limit <= 0 の場合は全件を返します。
func ListHandler(svc Lister, limit int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListRecent(c.Request.Context(), limit)
		if err != nil {
			apperr.Respond(c, logger, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, list)
	}
}

// CreateHandler は POST /api/posts のハンドラーを返します。auth.Manager.RequireLogin の後ろで使います。
func CreateHandler(svc Appender, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		author, ok := auth.CurrentUser(c)
		if !ok {
			apperr.Respond(c, logger, apperr.ErrUnauthorized)
			return
		}

		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, apperr.Response{
				Code:    "INVALID_INPUT",
				Message: "content を JSON で送ってください",
			})
			return
		}
		content := req.Content
		if content == "" {
			content = req.Message
		}

		post, err := svc.Append(c.Request.Context(), author, content)
		if err != nil {
			apperr.Respond(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"post":    post,
		})
	}
}

package apperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response はエラー応答の本体です。
type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Classify はエラーを HTTP ステータスと応答本体に変換します。
func Classify(err error) (int, Response) {
	switch {
	case errors.Is(err, ErrStorage):
		return http.StatusInternalServerError, Response{
			Code:    "INTERNAL_ERROR",
			Message: "サーバー内部でエラーが発生しました。",
		}
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, Response{
			Code:    "INVALID_INPUT",
			Message: "入力内容が正しくありません。",
		}
	case errors.Is(err, ErrEmptyContent):
		return http.StatusBadRequest, Response{
			Code:    "EMPTY_CONTENT",
			Message: "投稿内容を入力してください。",
		}
	case errors.Is(err, ErrDuplicateUsername):
		return http.StatusConflict, Response{
			Code:    "DUPLICATE_USERNAME",
			Message: "既に存在するユーザー名です。",
		}
	case errors.Is(err, ErrUnknownUser), errors.Is(err, ErrWrongSecret):
		// どちらの場合も同じ応答にしてユーザー名の存在を漏らさない
		return http.StatusBadRequest, Response{
			Code:    "INVALID_CREDENTIALS",
			Message: "ユーザー名またはパスワードが正しくありません。",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, Response{
			Code:    "UNAUTHORIZED",
			Message: "ログインが必要です。",
		}
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, Response{
			Code:    "REQUEST_CANCELED",
			Message: "リクエストがキャンセルされました。",
		}
	default:
		return http.StatusInternalServerError, Response{
			Code:    "INTERNAL_ERROR",
			Message: "サーバー内部でエラーが発生しました。",
		}
	}
}

// Respond はエラーを JSON で返し、後続のハンドラーを中断します。
// 5xx の場合は原因をログに残しますが、応答には含めません。
func Respond(c *gin.Context, logger *zap.Logger, err error) {
	status, body := Classify(err)
	if logger != nil {
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case IsDomain(err):
			logger.Debug("request rejected", fields...)
		default:
			logger.Warn("request aborted", fields...)
		}
	}
	c.AbortWithStatusJSON(status, body)
}

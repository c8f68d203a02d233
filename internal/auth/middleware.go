package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/sennin-board/internal/apperr"
)

// RequireLogin はセッションを検証するミドルウェアを返します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestToken(c)
		username, err := m.sessions.RequireAuthenticated(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, apperr.ErrUnauthorized) {
				clearStaleCookie(c)
			}
			apperr.Respond(c, m.logger, err)
			return
		}

		c.Set(ContextUserKey, username)
		c.Next()
	}
}

// VerifyCSRF は X-CSRF-Token ヘッダーを検証するミドルウェアです。
// CSRF 保護が無効な場合と Bearer トークンで認証するクライアントは検証しません。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.opts.CSRFEnabled || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if _, ok := bearerToken(c.GetHeader("Authorization")); ok {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, ok := session.Get(sessionKeyCSRF).(string)
		if !ok || expected == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, apperr.Response{
				Code:    "CSRF_MISSING",
				Message: "CSRF トークンが設定されていません",
			})
			return
		}

		received := c.GetHeader(csrfHeader)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, apperr.Response{
				Code:    "CSRF_INVALID",
				Message: "CSRF トークンが一致しません",
			})
			return
		}

		c.Next()
	}
}

// CurrentUser は RequireLogin が設定したユーザー名を返します。
func CurrentUser(c *gin.Context) (string, bool) {
	username := c.GetString(ContextUserKey)
	return username, username != ""
}

// clearStaleCookie は無効になったトークンをクッキーから取り除きます。
func clearStaleCookie(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get(sessionKeyToken) == nil {
		return
	}
	session.Clear()
	_ = session.Save()
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

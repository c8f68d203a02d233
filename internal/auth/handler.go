package auth

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sennin-board/internal/apperr"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Secret   string `json:"secret"`
}

func (r credentialsRequest) secret() string {
	if r.Password != "" {
		return r.Password
	}
	return r.Secret
}

func bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.secret() == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, apperr.Response{
			Code:    "INVALID_INPUT",
			Message: "username と password を JSON で送ってください",
		})
		return req, false
	}
	return req, true
}

// Register は /api/register のハンドラーです。登録に成功するとそのままログイン状態になります。
func (m *Manager) Register(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	if err := m.credentials.Register(c.Request.Context(), req.Username, req.secret()); err != nil {
		apperr.Respond(c, m.logger, err)
		return
	}
	m.logger.Info("user registered", zap.String("username", req.Username))

	// 登録自体は完了しているので、セッション発行に失敗しても成功として返す
	if err := m.startSession(c, req.Username); err != nil {
		m.logger.Warn("failed to start session after registration",
			zap.String("username", req.Username),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"username": req.Username,
	})
}

// Login は /api/login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	username, err := m.credentials.Verify(c.Request.Context(), req.Username, req.secret())
	if err != nil {
		apperr.Respond(c, m.logger, err)
		return
	}

	if err := m.startSession(c, username); err != nil {
		apperr.Respond(c, m.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": username,
	})
}

// Logout は /api/logout のハンドラーです。セッションが無くても成功します。
func (m *Manager) Logout(c *gin.Context) {
	token := requestToken(c)
	if err := m.sessions.Destroy(c.Request.Context(), token); err != nil {
		apperr.Respond(c, m.logger, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apperr.Respond(c, m.logger, apperr.Storage("clear session cookie", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "ログアウトしました",
	})
}

// Me は /api/me のハンドラーです。RequireLogin の後ろで使います。
func (m *Manager) Me(c *gin.Context) {
	username, ok := CurrentUser(c)
	if !ok {
		apperr.Respond(c, m.logger, apperr.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username": username,
	})
}

// startSession はトークンを発行し、署名付きクッキーとレスポンスヘッダーに載せます。
func (m *Manager) startSession(c *gin.Context, username string) error {
	ctx := c.Request.Context()
	session := sessions.Default(c)

	// 以前のセッションが残っていれば破棄する
	if previous, ok := session.Get(sessionKeyToken).(string); ok && previous != "" {
		if err := m.sessions.Destroy(ctx, previous); err != nil {
			m.logger.Warn("failed to destroy previous session", zap.Error(err))
		}
	}

	token, err := m.sessions.Create(ctx, username)
	if err != nil {
		return err
	}

	csrf, err := generateToken()
	if err != nil {
		_ = m.sessions.Destroy(ctx, token)
		return err
	}

	session.Set(sessionKeyToken, token)
	session.Set(sessionKeyCSRF, csrf)
	if err := session.Save(); err != nil {
		_ = m.sessions.Destroy(ctx, token)
		return apperr.Storage("save session cookie", err)
	}

	c.Header(sessionTokenHeader, token)
	c.Header(csrfHeader, csrf)
	return nil
}

// requestToken は Authorization: Bearer ヘッダー、なければセッションクッキーからトークンを取り出します。
func requestToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := bearerToken(header); ok {
			return token
		}
	}
	token, _ := sessions.Default(c).Get(sessionKeyToken).(string)
	return token
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

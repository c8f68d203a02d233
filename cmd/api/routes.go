package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/sennin-board/internal/apperr"
	"github.com/yourusername/sennin-board/internal/auth"
	"github.com/yourusername/sennin-board/internal/logging"
	"github.com/yourusername/sennin-board/internal/posts"
)

// Router はミドルウェアとルーティングを設定した Gin エンジンを返します。
func (a *App) Router(secret string) *gin.Engine {
	router := gin.New()
	router.Use(logging.Middleware(a.logger), gin.Recovery())

	// セッションストアの設定（クッキーにはセッショントークンのみを載せる）
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.CookieMaxAgeSeconds(a.sessions.TTL()),
		HttpOnly: true,
		Secure:   a.cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(a.cfg.CORSAllowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		"X-CSRF-Token", // CSRF保護用ヘッダー
	}
	// フロントエンドがレスポンスヘッダーからトークンを読み取れるように公開
	corsConfig.ExposeHeaders = []string{"X-CSRF-Token", "X-Session-Token"}
	router.Use(cors.New(corsConfig))

	a.setupRoutes(router)
	a.setupStatic(router)
	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "sennin-board-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループと認証周りの配線を行います。
func (a *App) setupRoutes(router *gin.Engine) {
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		// 登録・ログイン時はセッション未生成なので CSRF 検証は不要
		api.POST("/register", a.auth.Register)
		api.POST("/login", a.auth.Login)
		api.POST("/logout", a.auth.Logout)

		api.GET("/posts", posts.ListHandler(a.posts, a.cfg.PostsLimit, a.logger))

		protected := api.Group("")
		protected.Use(a.auth.RequireLogin(), a.auth.VerifyCSRF())
		{
			protected.GET("/me", a.auth.Me)
			protected.POST("/posts", posts.CreateHandler(a.posts, a.logger))
		}
	}
}

// setupStatic は STATIC_DIR が存在する場合に API 以外のパスで静的ファイルを配信します。
func (a *App) setupStatic(router *gin.Engine) {
	dir := a.cfg.StaticDir
	info, err := os.Stat(dir)
	hasStatic := dir != "" && err == nil && info.IsDir()

	var fileServer http.Handler
	if hasStatic {
		fileServer = http.FileServer(gin.Dir(dir, false))
	}

	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if fileServer == nil || strings.HasPrefix(path, "/api/") ||
			(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, apperr.Response{
				Code:    "NOT_FOUND",
				Message: "指定されたリソースは存在しません。",
			})
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	})
}

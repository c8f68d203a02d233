// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストレージバックエンドの種類
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// セッションバックエンドの種類
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// 静的ファイル
	StaticDir string // 掲示板フロントエンドの配信ディレクトリ（存在しない場合は配信しない）

	// 永続化設定
	StorageBackend string // memory, file, postgres
	DataDir        string // file バックエンドの保存先ディレクトリ
	DatabaseDSN    string // postgres バックエンドの接続文字列

	// セッション設定
	SessionSecret     string // セッションCookie署名用の秘密鍵
	SessionBackend    string // memory, redis
	SessionRedisURL   string // redis バックエンドの接続URL
	SessionTTLMinutes int    // セッションの有効期限（分）。0 で無期限
	CSRFEnabled       bool   // 状態変更系APIで X-CSRF-Token を要求するか

	// 認証設定
	BcryptCost int // パスワードハッシュのコスト

	// 投稿設定
	PostsLimit    int // GET /api/posts で返す最大件数。0 で全件
	MaxPostLength int // 投稿本文の最大文字数
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// 静的ファイル
		StaticDir: getEnv("STATIC_DIR", "public"),

		// 永続化設定
		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageFile)),
		DataDir:        getEnv("DATA_DIR", "data"),
		DatabaseDSN:    getEnv("DATABASE_DSN", ""),

		// セッション設定
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionBackend:    strings.ToLower(getEnv("SESSION_BACKEND", SessionMemory)),
		SessionRedisURL:   getEnv("SESSION_REDIS_URL", "redis://127.0.0.1:6379/0"),
		SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 720), // 12時間
		CSRFEnabled:       getEnvAsBool("CSRF_ENABLED", false),

		// 認証設定
		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),

		// 投稿設定
		PostsLimit:    getEnvAsInt("POSTS_LIMIT", 50),
		MaxPostLength: getEnvAsInt("MAX_POST_LENGTH", 1000),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory, StorageFile, StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %q", c.StorageBackend)
	}
	if c.StorageBackend == StorageFile && c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required for file storage")
	}
	if c.StorageBackend == StoragePostgres && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for postgres storage")
	}

	switch c.SessionBackend {
	case SessionMemory, SessionRedis:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND: %q", c.SessionBackend)
	}
	if c.SessionBackend == SessionRedis && c.SessionRedisURL == "" {
		return fmt.Errorf("SESSION_REDIS_URL is required for redis sessions")
	}

	if c.SessionTTLMinutes < 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must not be negative")
	}
	if c.PostsLimit < 0 {
		return fmt.Errorf("POSTS_LIMIT must not be negative")
	}

	// ローカル開発では起動時に秘密鍵を生成する
	if c.GinMode == "release" && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in release mode")
	}

	return nil
}

// SessionTTL はセッションの有効期限を返します。0 は無期限です。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

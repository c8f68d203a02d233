package posts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sennin-board/internal/apperr"
	"github.com/yourusername/sennin-board/internal/auth"
	"github.com/yourusername/sennin-board/internal/posts"
	"github.com/yourusername/sennin-board/internal/storage"
)

type stubPostService struct {
	list      []posts.Post
	listErr   error
	gotLimit  int
	appended  *posts.Post
	appendErr error
	gotAuthor string
	gotBody   string
}

func (s *stubPostService) ListRecent(ctx context.Context, limit int) ([]posts.Post, error) {
	s.gotLimit = limit
	return s.list, s.listErr
}

func (s *stubPostService) Append(ctx context.Context, author, content string) (*posts.Post, error) {
	s.gotAuthor = author
	s.gotBody = content
	return s.appended, s.appendErr
}

// withUser は RequireLogin の代わりにユーザー名をコンテキストへ設定します。
func withUser(username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if username != "" {
			c.Set(auth.ContextUserKey, username)
		}
		c.Next()
	}
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubPostService{list: []posts.Post{
		{ID: "2", Author: "bob", Content: "second", CreatedAt: created.Add(time.Minute)},
		{ID: "1", Author: "alice", Content: "first", CreatedAt: created},
	}}

	router := gin.New()
	router.GET("/api/posts", posts.ListHandler(svc, 50, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, svc.gotLimit)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[0]["author"])
	assert.Equal(t, "second", got[0]["content"])
	assert.Equal(t, "2024-03-01T10:01:00Z", got[0]["createdAt"])
	assert.Equal(t, "first", got[1]["content"])
}

func TestListHandlerEmptyArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := posts.NewStore(storage.NewMemory(), 0)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/api/posts", posts.ListHandler(store, 50, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListHandlerStorageError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubPostService{listErr: apperr.Storage("select posts", errors.New("pq: connection refused"))}

	router := gin.New()
	router.GET("/api/posts", posts.ListHandler(svc, 50, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCreateHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubPostService{appended: &posts.Post{ID: "p1", Author: "alice", Content: "hello"}}

	router := gin.New()
	router.POST("/api/posts", withUser("alice"), posts.CreateHandler(svc, nil))

	// クライアントが送った author は無視される
	rec := postJSON(t, router, "/api/posts", gin.H{"content": "hello", "author": "mallory"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", svc.gotAuthor)
	assert.Equal(t, "hello", svc.gotBody)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
}

func TestCreateHandlerAcceptsMessageField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubPostService{appended: &posts.Post{ID: "p1"}}

	router := gin.New()
	router.POST("/api/posts", withUser("alice"), posts.CreateHandler(svc, nil))

	rec := postJSON(t, router, "/api/posts", gin.H{"message": "legacy"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "legacy", svc.gotBody)
}

func TestCreateHandlerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		user   string
		err    error
		status int
		code   string
	}{
		{"unauthenticated", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty content", "alice", apperr.ErrEmptyContent, http.StatusBadRequest, "EMPTY_CONTENT"},
		{"too long", "alice", apperr.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{"storage", "alice", apperr.Storage("insert post", errors.New("disk")), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubPostService{appendErr: tc.err}
			router := gin.New()
			router.POST("/api/posts", withUser(tc.user), posts.CreateHandler(svc, nil))

			rec := postJSON(t, router, "/api/posts", gin.H{"content": "   "})
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestCreateHandlerInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubPostService{}
	router := gin.New()
	router.POST("/api/posts", withUser("alice"), posts.CreateHandler(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.gotAuthor)
}

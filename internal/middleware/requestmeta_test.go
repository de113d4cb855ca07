package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/linkcut/internal/handlers"
	"github.com/serroba/linkcut/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOutput struct {
	Body struct {
		OK bool `json:"ok"`
	}
}

// metaAPI registers a probe endpoint that captures the request metadata the
// middleware put into the context.
func metaAPI(t *testing.T) (*chi.Mux, *handlers.RequestMeta) {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMeta(api))

	captured := &handlers.RequestMeta{}

	huma.Get(api, "/probe", func(ctx context.Context, _ *struct{}) (*testOutput, error) {
		*captured = handlers.RequestMetaFromContext(ctx)

		out := &testOutput{}
		out.Body.OK = true

		return out, nil
	})

	return router, captured
}

func TestRequestMeta(t *testing.T) {
	t.Run("captures user-agent and referrer", func(t *testing.T) {
		router, captured := metaAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("User-Agent", "TestAgent/1.0")
		req.Header.Set("Referer", "https://news.example.com")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "TestAgent/1.0", captured.UserAgent)
		assert.Equal(t, "https://news.example.com", captured.Referrer)
	})

	t.Run("prefers X-Forwarded-For over X-Real-IP", func(t *testing.T) {
		router, captured := metaAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		req.Header.Set("X-Real-IP", "10.0.0.1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "203.0.113.7", captured.ClientIP)
	})

	t.Run("takes the first IP of a forwarding chain", func(t *testing.T) {
		router, captured := metaAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 172.16.0.1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "203.0.113.7", captured.ClientIP)
	})

	t.Run("falls back to X-Real-IP", func(t *testing.T) {
		router, captured := metaAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "10.0.0.1", captured.ClientIP)
	})

	t.Run("falls back to the host without proxy headers", func(t *testing.T) {
		router, captured := metaAPI(t)

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, captured.ClientIP)
	})
}

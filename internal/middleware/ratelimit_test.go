package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/linkcut/internal/middleware"
	"github.com/serroba/linkcut/internal/ratelimit"
	"github.com/serroba/linkcut/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func limitedAPI(t *testing.T, policy *ratelimit.Policy) (*chi.Mux, huma.API) {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))

	limiter := ratelimit.NewPolicyLimiter(store.NewRateLimitMemoryStore(), policy)
	api.UseMiddleware(middleware.PolicyRateLimiter(
		api, limiter, ratelimit.NewOperationScopeResolver(), zap.NewNop()))

	return router, api
}

func registerProbe(api huma.API, path string, metadata map[string]any) {
	huma.Register(api, huma.Operation{
		Method:   http.MethodGet,
		Path:     path,
		Metadata: metadata,
	}, func(_ context.Context, _ *struct{}) (*testOutput, error) {
		out := &testOutput{}
		out.Body.OK = true

		return out, nil
	})
}

func doGet(router *chi.Mux, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", "TestAgent/1.0")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w.Code
}

func TestPolicyRateLimiter(t *testing.T) {
	t.Run("allows requests under the limit", func(t *testing.T) {
		policy := &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{
			ratelimit.ScopeRead: {{Window: time.Minute, Max: 5}},
		}}
		router, api := limitedAPI(t, policy)
		registerProbe(api, "/probe", nil)

		for n := 0; n < 5; n++ {
			assert.Equal(t, http.StatusOK, doGet(router, "/probe"))
		}
	})

	t.Run("rejects requests over the limit", func(t *testing.T) {
		policy := &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{
			ratelimit.ScopeRead: {{Window: time.Minute, Max: 2}},
		}}
		router, api := limitedAPI(t, policy)
		registerProbe(api, "/probe", nil)

		require.Equal(t, http.StatusOK, doGet(router, "/probe"))
		require.Equal(t, http.StatusOK, doGet(router, "/probe"))
		assert.Equal(t, http.StatusTooManyRequests, doGet(router, "/probe"))
	})

	t.Run("clients with different user agents do not share limits", func(t *testing.T) {
		policy := &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{
			ratelimit.ScopeRead: {{Window: time.Minute, Max: 1}},
		}}
		router, api := limitedAPI(t, policy)
		registerProbe(api, "/probe", nil)

		require.Equal(t, http.StatusOK, doGet(router, "/probe"))
		require.Equal(t, http.StatusTooManyRequests, doGet(router, "/probe"))

		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("User-Agent", "OtherAgent/2.0")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("disabled endpoints skip rate limiting", func(t *testing.T) {
		policy := &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{
			ratelimit.ScopeRead: {{Window: time.Minute, Max: 1}},
		}}
		router, api := limitedAPI(t, policy)
		registerProbe(api, "/probe", map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		})

		for n := 0; n < 10; n++ {
			assert.Equal(t, http.StatusOK, doGet(router, "/probe"))
		}
	})

	t.Run("endpoint limits override the policy", func(t *testing.T) {
		policy := &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{
			ratelimit.ScopeRead: {{Window: time.Minute, Max: 100}},
		}}
		router, api := limitedAPI(t, policy)
		registerProbe(api, "/probe", map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{{Window: time.Minute, Max: 3}},
			},
		})

		for n := 0; n < 3; n++ {
			require.Equal(t, http.StatusOK, doGet(router, "/probe"))
		}

		assert.Equal(t, http.StatusTooManyRequests, doGet(router, "/probe"))
	})

	t.Run("scope override in metadata picks the configured limits", func(t *testing.T) {
		policy := &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{
			ratelimit.ScopeRead:  {{Window: time.Minute, Max: 100}},
			ratelimit.ScopeWrite: {{Window: time.Minute, Max: 1}},
		}}
		router, api := limitedAPI(t, policy)
		registerProbe(api, "/probe", map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeWrite},
		})

		require.Equal(t, http.StatusOK, doGet(router, "/probe"))
		assert.Equal(t, http.StatusTooManyRequests, doGet(router, "/probe"))
	})
}

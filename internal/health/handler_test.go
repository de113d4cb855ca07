package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/linkcut/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	err error
}

func (f *fakeChecker) Ping(_ context.Context) error {
	return f.err
}

func TestHealthCheck(t *testing.T) {
	t.Run("ok when every dependency answers", func(t *testing.T) {
		h := health.NewHandler(&fakeChecker{}, &fakeChecker{})

		resp, err := h.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Equal(t, "healthy", resp.Body.Redis)
		assert.Equal(t, "healthy", resp.Body.Postgres)
	})

	t.Run("degraded when redis is down", func(t *testing.T) {
		h := health.NewHandler(&fakeChecker{err: errors.New("connection refused")}, &fakeChecker{})

		resp, err := h.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "degraded", resp.Body.Status)
		assert.Equal(t, "unhealthy", resp.Body.Redis)
		assert.Equal(t, "healthy", resp.Body.Postgres)
	})

	t.Run("degraded when postgres is down", func(t *testing.T) {
		h := health.NewHandler(&fakeChecker{}, &fakeChecker{err: errors.New("connection refused")})

		resp, err := h.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "degraded", resp.Body.Status)
		assert.Equal(t, "unhealthy", resp.Body.Postgres)
	})

	t.Run("unconfigured dependencies are skipped", func(t *testing.T) {
		h := health.NewHandler(&fakeChecker{}, nil)

		resp, err := h.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Equal(t, "healthy", resp.Body.Redis)
		assert.Empty(t, resp.Body.Postgres)
	})
}

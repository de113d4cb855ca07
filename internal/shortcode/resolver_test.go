package shortcode_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/linkcut/internal/shortcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookup simulates persisted-state code lookups.
type fakeLookup struct {
	taken    map[string]bool
	err      error
	calls    int
	denyNext int // report the first denyNext distinct lookups as taken
}

func (f *fakeLookup) CodeTaken(_ context.Context, code string) (bool, error) {
	f.calls++

	if f.err != nil {
		return false, f.err
	}

	if f.calls <= f.denyNext {
		return true, nil
	}

	return f.taken[code], nil
}

func newTestResolver(t *testing.T, lookup shortcode.CodeLookup, maxAttempts int) *shortcode.Resolver {
	t.Helper()

	gen := newTestGenerator(t, 6)

	return shortcode.NewResolver(gen, lookup, shortcode.StrategyRandom, maxAttempts)
}

func TestChooseCode_Alias(t *testing.T) {
	t.Run("returns a free alias unchanged", func(t *testing.T) {
		lookup := &fakeLookup{taken: map[string]bool{}}
		resolver := newTestResolver(t, lookup, 0)

		code, err := resolver.ChooseCode(context.Background(), "https://example.com", "mypage")

		require.NoError(t, err)
		assert.Equal(t, "mypage", code)
		assert.Equal(t, 1, lookup.calls)
	})

	t.Run("rejects a malformed alias without touching the store", func(t *testing.T) {
		lookup := &fakeLookup{}
		resolver := newTestResolver(t, lookup, 0)

		_, err := resolver.ChooseCode(context.Background(), "https://example.com", "bad alias!")

		assert.ErrorIs(t, err, shortcode.ErrInvalidAlias)
		assert.Zero(t, lookup.calls)
	})

	t.Run("fails on a taken alias with no retries", func(t *testing.T) {
		lookup := &fakeLookup{taken: map[string]bool{"mypage": true}}
		resolver := newTestResolver(t, lookup, 0)

		_, err := resolver.ChooseCode(context.Background(), "https://example.com", "mypage")

		assert.ErrorIs(t, err, shortcode.ErrAliasExists)
		assert.Equal(t, 1, lookup.calls)
	})

	t.Run("surfaces alias lookup failures", func(t *testing.T) {
		lookup := &fakeLookup{err: errors.New("connection reset")}
		resolver := newTestResolver(t, lookup, 0)

		_, err := resolver.ChooseCode(context.Background(), "https://example.com", "mypage")

		require.Error(t, err)
		assert.NotErrorIs(t, err, shortcode.ErrAliasExists)
	})
}

func TestChooseCode_Random(t *testing.T) {
	t.Run("returns the first free candidate", func(t *testing.T) {
		lookup := &fakeLookup{taken: map[string]bool{}}
		resolver := newTestResolver(t, lookup, 0)

		code, err := resolver.ChooseCode(context.Background(), "https://example.com", "")

		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Equal(t, 1, lookup.calls)
	})

	t.Run("retries past colliding candidates", func(t *testing.T) {
		lookup := &fakeLookup{taken: map[string]bool{}, denyNext: 7}
		resolver := newTestResolver(t, lookup, 10)

		code, err := resolver.ChooseCode(context.Background(), "https://example.com", "")

		require.NoError(t, err)
		assert.NotEmpty(t, code)
		assert.Equal(t, 8, lookup.calls)
	})

	t.Run("fails terminally when every attempt collides", func(t *testing.T) {
		lookup := &fakeLookup{taken: map[string]bool{}, denyNext: 1 << 30}
		resolver := newTestResolver(t, lookup, 5)

		_, err := resolver.ChooseCode(context.Background(), "https://example.com", "")

		assert.ErrorIs(t, err, shortcode.ErrGeneration)
		assert.Equal(t, 5, lookup.calls)
	})

	t.Run("storage failures do not count as attempts", func(t *testing.T) {
		lookup := &fakeLookup{err: errors.New("connection refused")}
		resolver := newTestResolver(t, lookup, 5)

		_, err := resolver.ChooseCode(context.Background(), "https://example.com", "")

		require.Error(t, err)
		assert.NotErrorIs(t, err, shortcode.ErrGeneration)
		assert.Equal(t, 1, lookup.calls)
	})
}

func TestChooseCode_Strategies(t *testing.T) {
	const target = "https://example.com/some/long/path"

	t.Run("content hash yields a deterministic first candidate", func(t *testing.T) {
		gen := newTestGenerator(t, 6)
		lookup := &fakeLookup{taken: map[string]bool{}}
		resolver := shortcode.NewResolver(gen, lookup, shortcode.StrategyContentHash, 5)

		code, err := resolver.ChooseCode(context.Background(), target, "")

		require.NoError(t, err)
		assert.Equal(t, gen.FromURL(target), code)
		assert.Equal(t, 1, lookup.calls)
	})

	t.Run("falls back to random candidates after a hash collision", func(t *testing.T) {
		gen := newTestGenerator(t, 6)
		hashed := gen.FromURL(target)

		lookup := &fakeLookup{taken: map[string]bool{hashed: true}}
		resolver := shortcode.NewResolver(gen, lookup, shortcode.StrategyContentHash, 5)

		code, err := resolver.ChooseCode(context.Background(), target, "")

		require.NoError(t, err)
		assert.NotEqual(t, hashed, code)
		assert.Len(t, code, 6)
		assert.Equal(t, 2, lookup.calls)
	})

	t.Run("empty strategy defaults to random", func(t *testing.T) {
		gen := newTestGenerator(t, 6)
		lookup := &fakeLookup{taken: map[string]bool{}}
		resolver := shortcode.NewResolver(gen, lookup, "", 5)

		code, err := resolver.ChooseCode(context.Background(), target, "")

		require.NoError(t, err)
		assert.Len(t, code, 6)
	})
}

func TestMarkTakenAndRelease(t *testing.T) {
	lookup := &fakeLookup{taken: map[string]bool{}}
	resolver := newTestResolver(t, lookup, 0)

	code, err := resolver.ChooseCode(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	resolver.MarkTaken(code)
	resolver.Release(code)
}

package shortcode

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidAlias means a custom alias failed format validation.
	ErrInvalidAlias = errors.New("alias has invalid format")
	// ErrAliasExists means a custom alias is already bound to a record.
	ErrAliasExists = errors.New("alias is already taken")
	// ErrGeneration means the resolver exhausted its attempts against
	// persisted state without finding a free code.
	ErrGeneration = errors.New("unable to generate a unique short code")
)

// CodeLookup consults persisted state for a code. Implementations must treat
// system-issued codes and custom aliases as one namespace.
type CodeLookup interface {
	// CodeTaken reports whether code is bound to any record. Lookup failures
	// (e.g. a dropped connection) are returned as-is and are never folded
	// into a taken/free answer.
	CodeTaken(ctx context.Context, code string) (bool, error)
}

// Resolver produces a code guaranteed free against persisted state at the
// moment of the check, or fails deterministically. The persisted uniqueness
// constraint remains the authoritative guard; callers retry record creation
// with a fresh candidate on conflict.
type Resolver struct {
	gen         *Generator
	lookup      CodeLookup
	strategy    Strategy
	maxAttempts int
}

// NewResolver creates a resolver drawing first candidates with the given
// strategy. An empty strategy selects StrategyRandom; maxAttempts <= 0
// selects DefaultMaxAttempts.
func NewResolver(gen *Generator, lookup CodeLookup, strategy Strategy, maxAttempts int) *Resolver {
	if strategy == "" {
		strategy = StrategyRandom
	}

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Resolver{gen: gen, lookup: lookup, strategy: strategy, maxAttempts: maxAttempts}
}

// ChooseCode picks the short code for a new record. A supplied alias is
// validated and checked once, with no retries: the caller asked for exactly
// that code. Otherwise the first candidate comes from the configured
// strategy and any retry after a collision draws random candidates, since a
// deterministic strategy would just reproduce the colliding code.
func (r *Resolver) ChooseCode(ctx context.Context, targetURL, alias string) (string, error) {
	if alias != "" {
		return r.chooseAlias(ctx, alias)
	}

	for i := 0; i < r.maxAttempts; i++ {
		code, err := r.candidate(i, targetURL)
		if err != nil {
			return "", err
		}

		taken, err := r.lookup.CodeTaken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("code lookup: %w", err)
		}

		if !taken {
			r.gen.MarkUsed(code)

			return code, nil
		}
	}

	return "", ErrGeneration
}

// candidate produces the attempt-th candidate. Deterministic strategies get
// exactly one shot, on the first attempt.
func (r *Resolver) candidate(attempt int, targetURL string) (string, error) {
	if attempt == 0 && r.strategy != StrategyRandom {
		code, err := r.gen.Candidate(r.strategy, targetURL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrGeneration, err)
		}

		return code, nil
	}

	return r.nextCandidate()
}

// MarkTaken records a code the persistence layer rejected as a duplicate, so
// the in-process pre-filter skips it on the next attempt.
func (r *Resolver) MarkTaken(code string) {
	r.gen.MarkUsed(code)
}

// Release drops a code from the in-process pre-filter after its record was
// deleted.
func (r *Resolver) Release(code string) {
	r.gen.ReleaseUsed(code)
}

func (r *Resolver) chooseAlias(ctx context.Context, alias string) (string, error) {
	if !r.gen.IsValidCodeFormat(alias) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAlias, alias)
	}

	taken, err := r.lookup.CodeTaken(ctx, alias)
	if err != nil {
		return "", fmt.Errorf("alias lookup: %w", err)
	}

	if taken {
		return "", fmt.Errorf("%w: %q", ErrAliasExists, alias)
	}

	return alias, nil
}

// nextCandidate draws a random code unused by this process, absorbing one
// in-process exhaustion before escalating.
func (r *Resolver) nextCandidate() (string, error) {
	code, err := r.gen.GenerateUnique(r.maxAttempts)
	if err == nil {
		return code, nil
	}

	if errors.Is(err, ErrExhausted) {
		code, err = r.gen.GenerateUnique(r.maxAttempts)
		if err == nil {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w: %v", ErrGeneration, err)
}

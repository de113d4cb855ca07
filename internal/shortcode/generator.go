package shortcode

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaevor/go-nanoid"
)

// Strategy selects how a candidate code is produced.
type Strategy string

const (
	// StrategyRandom draws uniformly random symbols from the alphabet.
	StrategyRandom Strategy = "random"
	// StrategyContentHash derives the code deterministically from the target URL.
	StrategyContentHash Strategy = "content_hash"
	// StrategySequential encodes a per-generator monotonic counter.
	// Codes grow naturally with the counter and are not padded to the
	// configured length.
	StrategySequential Strategy = "sequential"
	// StrategyTimeBased encodes the current time in milliseconds, padded with
	// random symbols up to the configured length.
	StrategyTimeBased Strategy = "time_based"
)

// ErrExhausted is returned by GenerateUnique when every candidate within the
// attempt budget was already in the in-process used-code set.
var ErrExhausted = errors.New("exhausted attempts generating an unused code")

// MaxCodeLength bounds the accepted length of any code or alias.
const MaxCodeLength = 50

// DefaultMaxAttempts is the default candidate budget for GenerateUnique.
const DefaultMaxAttempts = 100

// Generator produces candidate short codes. It guarantees no repeat within
// its own used-code set for the lifetime of the process; uniqueness against
// persisted state is the Resolver's job.
type Generator struct {
	alphabet   *Alphabet
	length     int
	randomCode func() string
	randSymbol func() string
	now        func() time.Time
	counter    atomic.Uint64

	mu   sync.Mutex
	used map[string]struct{}
}

// NewGenerator creates a generator producing codes of the given length.
// Random symbols come from a cryptographically secure source.
func NewGenerator(alphabet *Alphabet, length int) (*Generator, error) {
	if length < 2 || length > MaxCodeLength {
		return nil, fmt.Errorf("code length %d out of range [2,%d]", length, MaxCodeLength)
	}

	randomCode, err := nanoid.CustomASCII(alphabet.Symbols(), length)
	if err != nil {
		return nil, fmt.Errorf("random code source: %w", err)
	}

	randSymbol, err := nanoid.CustomASCII(alphabet.Symbols(), 2)
	if err != nil {
		return nil, fmt.Errorf("random symbol source: %w", err)
	}

	return &Generator{
		alphabet:   alphabet,
		length:     length,
		randomCode: randomCode,
		randSymbol: func() string { return randSymbol()[:1] },
		now:        time.Now,
		used:       make(map[string]struct{}),
	}, nil
}

// Alphabet returns the alphabet codes are drawn from.
func (g *Generator) Alphabet() *Alphabet {
	return g.alphabet
}

// Length returns the configured code length.
func (g *Generator) Length() int {
	return g.length
}

// Candidate produces one code using the given strategy. For
// StrategyContentHash the targetURL is hashed; other strategies ignore it.
func (g *Generator) Candidate(strategy Strategy, targetURL string) (string, error) {
	switch strategy {
	case StrategyRandom:
		return g.Random(), nil
	case StrategyContentHash:
		return g.FromURL(targetURL), nil
	case StrategySequential:
		return g.Sequential(), nil
	case StrategyTimeBased:
		return g.TimeBased(), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", strategy)
	}
}

// Random returns length uniformly random alphabet symbols.
func (g *Generator) Random() string {
	return g.randomCode()
}

// FromURL derives a deterministic code from the target URL: identical input
// always yields an identical candidate.
func (g *Generator) FromURL(targetURL string) string {
	return g.alphabet.HashToCode([]byte(targetURL), g.length)
}

// Sequential encodes the next value of the per-instance counter.
func (g *Generator) Sequential() string {
	return g.alphabet.Encode(g.counter.Add(1))
}

// TimeBased encodes the current millisecond timestamp, extending with random
// symbols or truncating so the result is exactly the configured length.
func (g *Generator) TimeBased() string {
	code := g.alphabet.Encode(uint64(g.now().UnixMilli()))

	if len(code) >= g.length {
		return code[:g.length]
	}

	var b strings.Builder

	b.Grow(g.length)
	b.WriteString(code)

	for b.Len() < g.length {
		b.WriteString(g.randSymbol())
	}

	return b.String()
}

// GenerateUnique returns a random code not previously handed out by this
// generator, recording it in the used-code set. It fails with ErrExhausted
// after maxAttempts colliding candidates; maxAttempts <= 0 selects
// DefaultMaxAttempts.
func (g *Generator) GenerateUnique(maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for i := 0; i < maxAttempts; i++ {
		code := g.Random()

		g.mu.Lock()

		if _, taken := g.used[code]; !taken {
			g.used[code] = struct{}{}
			g.mu.Unlock()

			return code, nil
		}

		g.mu.Unlock()
	}

	return "", ErrExhausted
}

// IsValidCodeFormat reports whether code is non-empty, at most MaxCodeLength
// characters, and drawn entirely from the alphabet.
func (g *Generator) IsValidCodeFormat(code string) bool {
	if code == "" || len(code) > MaxCodeLength {
		return false
	}

	for i := 0; i < len(code); i++ {
		if !g.alphabet.Contains(code[i]) {
			return false
		}
	}

	return true
}

// MarkUsed records a code in the in-process set, typically after persisted
// state revealed it is already taken.
func (g *Generator) MarkUsed(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.used[code] = struct{}{}
}

// ReleaseUsed removes a code from the in-process set. Releasing is optional:
// the set is only a pre-filter, persisted state stays authoritative.
func (g *Generator) ReleaseUsed(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.used, code)
}

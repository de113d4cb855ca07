package shortcode

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"errors"
	"math/big"
	"strings"
)

// ErrFormat is returned by Decode when the input contains characters
// outside the alphabet.
var ErrFormat = errors.New("code contains characters outside the alphabet")

// DefaultSymbols is the code alphabet: ASCII letters and digits minus the
// visually ambiguous i, l, 1, L, o, 0 and O. 55 symbols.
const DefaultSymbols = "abcdefghjkmnpqrstuvwxyzABCDEFGHIJKMNPQRSTUVWXYZ23456789"

// Alphabet is a fixed symbol set used as the digits of a base-N encoding.
type Alphabet struct {
	symbols string
	index   map[byte]uint64
}

// NewAlphabet creates an alphabet from the given symbols.
// Symbols must be non-empty ASCII with no duplicates.
func NewAlphabet(symbols string) (*Alphabet, error) {
	if symbols == "" {
		return nil, errors.New("alphabet must not be empty")
	}

	index := make(map[byte]uint64, len(symbols))

	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if c > 127 {
			return nil, errors.New("alphabet must be ASCII")
		}

		if _, ok := index[c]; ok {
			return nil, errors.New("alphabet must not contain duplicate symbols")
		}

		index[c] = uint64(i)
	}

	return &Alphabet{symbols: symbols, index: index}, nil
}

// DefaultAlphabet returns the standard confusion-free alphabet.
func DefaultAlphabet() *Alphabet {
	a, err := NewAlphabet(DefaultSymbols)
	if err != nil {
		panic(err) // DefaultSymbols is a valid constant
	}

	return a
}

// Len returns the number of symbols in the alphabet.
func (a *Alphabet) Len() int {
	return len(a.symbols)
}

// Symbols returns the symbol set in digit order.
func (a *Alphabet) Symbols() string {
	return a.symbols
}

// Contains reports whether c is a symbol of the alphabet.
func (a *Alphabet) Contains(c byte) bool {
	_, ok := a.index[c]

	return ok
}

// Encode converts a non-negative integer to its canonical representation,
// most significant symbol first. Zero encodes to the first symbol.
func (a *Alphabet) Encode(n uint64) string {
	if n == 0 {
		return a.symbols[:1]
	}

	base := uint64(a.Len())

	var buf [64]byte

	i := len(buf)

	for n > 0 {
		i--
		buf[i] = a.symbols[n%base]
		n /= base
	}

	return string(buf[i:])
}

// Decode is the inverse of Encode. It returns ErrFormat when the input
// contains a character outside the alphabet.
func (a *Alphabet) Decode(s string) (uint64, error) {
	base := uint64(a.Len())

	var n uint64

	for i := 0; i < len(s); i++ {
		digit, ok := a.index[s[i]]
		if !ok {
			return 0, ErrFormat
		}

		n = n*base + digit
	}

	return n, nil
}

// HashToCode derives a fixed-length code from arbitrary bytes.
// It computes a 128-bit digest, encodes the digest as an integer, and takes
// the leading length characters. An encoded digest shorter than length is
// left-padded with the first alphabet symbol so the result is always exactly
// length characters.
func (a *Alphabet) HashToCode(data []byte, length int) string {
	sum := md5.Sum(data) //nolint:gosec // deterministic fingerprint only

	encoded := a.encodeBig(new(big.Int).SetBytes(sum[:]))

	if len(encoded) >= length {
		return encoded[:length]
	}

	return strings.Repeat(a.symbols[:1], length-len(encoded)) + encoded
}

func (a *Alphabet) encodeBig(n *big.Int) string {
	if n.Sign() == 0 {
		return a.symbols[:1]
	}

	base := big.NewInt(int64(a.Len()))
	rem := new(big.Int)

	var out []byte

	for n.Sign() > 0 {
		n.DivMod(n, base, rem)
		out = append(out, a.symbols[rem.Int64()])
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return string(out)
}

package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidURL means the target URL failed a policy or syntax check.
	ErrInvalidURL = errors.New("invalid url")
	// ErrURLTooLong means the target URL exceeds the configured length bound.
	ErrURLTooLong = errors.New("url exceeds maximum length")
)

// DefaultMaxURLLength bounds accepted target URLs.
const DefaultMaxURLLength = 2048

var allowedSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
}

var domainPattern = regexp.MustCompile(
	`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`,
)

// Validator applies target URL policy: length bound, scheme allowlist,
// domain syntax, denylisted domains, and private/loopback IP rejection.
type Validator struct {
	maxLength int
	denylist  map[string]struct{}
}

// New creates a validator. maxLength <= 0 selects DefaultMaxURLLength.
func New(maxLength int, denylist []string) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxURLLength
	}

	denied := make(map[string]struct{}, len(denylist))
	for _, d := range denylist {
		denied[strings.ToLower(d)] = struct{}{}
	}

	return &Validator{maxLength: maxLength, denylist: denied}
}

// ValidateURL checks a raw target URL against the policy.
func (v *Validator) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	if len(rawURL) > v.maxLength {
		return fmt.Errorf("%w: %d > %d", ErrURLTooLong, len(rawURL), v.maxLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if _, ok := allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	if _, denied := v.denylist[host]; denied {
		return fmt.Errorf("%w: domain is denylisted", ErrInvalidURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("%w: target resolves to a private address", ErrInvalidURL)
		}

		return nil
	}

	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") || !domainPattern.MatchString(host) {
		return fmt.Errorf("%w: malformed domain %q", ErrInvalidURL, host)
	}

	return nil
}

// Normalize canonicalizes a URL for storage and hashing.
// - Adds https:// when no scheme is present
// - Lowercases the scheme and host
// - Removes default ports (80 for http, 443 for https)
// - Removes trailing slashes from path (unless path is just "/")
// - Removes empty fragment
func (v *Validator) Normalize(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)

	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	host := u.Host
	if strings.HasSuffix(host, ":80") && u.Scheme == "http" {
		u.Host = strings.TrimSuffix(host, ":80")
	} else if strings.HasSuffix(host, ":443") && u.Scheme == "https" {
		u.Host = strings.TrimSuffix(host, ":443")
	}

	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	u.Fragment = ""

	return u.String(), nil
}

// HashURL computes a SHA256 hash of the normalized URL.
// Returns the hash as a hex-encoded string.
func HashURL(normalizedURL string) string {
	h := sha256.Sum256([]byte(normalizedURL))

	return hex.EncodeToString(h[:])
}

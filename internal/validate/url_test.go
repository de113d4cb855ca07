package validate_test

import (
	"strings"
	"testing"

	"github.com/serroba/linkcut/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	v := validate.New(0, []string{"malicious-site.com"})

	t.Run("accepts ordinary http and https urls", func(t *testing.T) {
		for _, raw := range []string{
			"https://example.com",
			"http://example.com/path?q=1",
			"https://sub.example.co.uk/a/b",
			"https://93.184.216.34/page",
		} {
			assert.NoError(t, v.ValidateURL(raw), "url %q", raw)
		}
	})

	t.Run("rejects empty and oversized urls", func(t *testing.T) {
		assert.ErrorIs(t, v.ValidateURL(""), validate.ErrInvalidURL)

		long := "https://example.com/" + strings.Repeat("a", validate.DefaultMaxURLLength)
		assert.ErrorIs(t, v.ValidateURL(long), validate.ErrURLTooLong)
	})

	t.Run("rejects disallowed schemes", func(t *testing.T) {
		for _, raw := range []string{
			"javascript:alert(1)",
			"data:text/html,hi",
			"ftp://example.com/file",
			"file:///etc/passwd",
		} {
			assert.ErrorIs(t, v.ValidateURL(raw), validate.ErrInvalidURL, "url %q", raw)
		}
	})

	t.Run("rejects denylisted domains", func(t *testing.T) {
		assert.ErrorIs(t, v.ValidateURL("https://malicious-site.com/login"), validate.ErrInvalidURL)
	})

	t.Run("rejects private and loopback targets", func(t *testing.T) {
		for _, raw := range []string{
			"http://127.0.0.1/admin",
			"http://10.0.0.8",
			"http://192.168.1.1",
			"http://172.16.0.1",
			"http://169.254.10.10",
			"http://0.0.0.0",
			"http://[::1]/",
		} {
			assert.ErrorIs(t, v.ValidateURL(raw), validate.ErrInvalidURL, "url %q", raw)
		}
	})

	t.Run("rejects malformed domains", func(t *testing.T) {
		for _, raw := range []string{
			"https://.example.com",
			"https://example..com",
			"https://-example.com",
		} {
			assert.ErrorIs(t, v.ValidateURL(raw), validate.ErrInvalidURL, "url %q", raw)
		}
	})
}

func TestNormalize(t *testing.T) {
	v := validate.New(0, nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds https scheme", "example.com/page", "https://example.com/page"},
		{"lowercases scheme and host", "HTTPS://EXAMPLE.COM/Path", "https://example.com/Path"},
		{"strips default http port", "http://example.com:80/x", "http://example.com/x"},
		{"strips default https port", "https://example.com:443/x", "https://example.com/x"},
		{"keeps non-default port", "https://example.com:8443/x", "https://example.com:8443/x"},
		{"strips trailing slash", "https://example.com/a/b/", "https://example.com/a/b"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"drops empty fragment", "https://example.com/a#", "https://example.com/a"},
		{"trims whitespace", "  https://example.com  ", "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashURL(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t,
			validate.HashURL("https://example.com"),
			validate.HashURL("https://example.com"),
		)
	})

	t.Run("hex encoded sha256", func(t *testing.T) {
		h := validate.HashURL("https://example.com")
		assert.Len(t, h, 64)
	})

	t.Run("different urls diverge", func(t *testing.T) {
		assert.NotEqual(t,
			validate.HashURL("https://example.com/a"),
			validate.HashURL("https://example.com/b"),
		)
	})
}

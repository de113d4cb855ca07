package shortener

import "time"

// Code represents a short URL code.
type Code string

// URLHash represents a hash of a normalized URL.
type URLHash string

// ShortURL represents a shortened URL record.
type ShortURL struct {
	ID             int64
	Code           Code
	OriginalURL    string
	URLHash        URLHash
	CustomAlias    string // empty unless the creator chose the code
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      *time.Time
	IsActive       bool
	ClickCount     int64
	LastAccessedAt *time.Time
	CreatorIP      string
	UserAgent      string
}

// Expired reports whether the record's expiry time has passed.
// Records without an expiry never expire.
func (s *ShortURL) Expired() bool {
	if s.ExpiresAt == nil {
		return false
	}

	return time.Now().After(*s.ExpiresAt)
}

// Analytics is the derived usage view computed from a record's counters.
type Analytics struct {
	ShortURL          *ShortURL
	DaysActive        int
	AvgClicksPerDay   float64
	PerformanceRating string
}

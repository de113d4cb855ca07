package analytics

import (
	"time"

	"github.com/google/uuid"
)

const (
	// TopicURLCreated carries events emitted when a URL is shortened.
	TopicURLCreated = "url.created"
	// TopicURLAccessed carries events emitted when a short URL is resolved.
	TopicURLAccessed = "url.accessed"
)

// URLCreatedEvent represents an event emitted when a URL is shortened.
type URLCreatedEvent struct {
	EventID     string     `json:"eventId"`
	Code        string     `json:"code"`
	OriginalURL string     `json:"originalUrl"`
	URLHash     string     `json:"urlHash,omitempty"`
	CustomAlias string     `json:"customAlias,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ClientIP    string     `json:"clientIp"`
	UserAgent   string     `json:"userAgent"`
}

// URLAccessedEvent represents an event emitted when a short URL is resolved.
type URLAccessedEvent struct {
	EventID    string    `json:"eventId"`
	Code       string    `json:"code"`
	AccessedAt time.Time `json:"accessedAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer,omitempty"`
}

// NewEventID returns a unique id for correlating events downstream.
func NewEventID() string {
	return uuid.NewString()
}

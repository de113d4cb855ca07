package handlers

import "time"

// ShortURLView is the JSON shape of a shortened URL record.
type ShortURLView struct {
	ID          int64      `doc:"Record id"                   json:"id"`
	OriginalURL string     `doc:"The original URL"            json:"originalUrl"`
	ShortURL    string     `doc:"The full short URL"          json:"shortUrl"`
	Code        string     `doc:"The short code"              json:"code"`
	CreatedAt   time.Time  `doc:"Creation time"               json:"createdAt"`
	ExpiresAt   *time.Time `doc:"Expiry time, if any"         json:"expiresAt,omitempty"`
	IsActive    bool       `doc:"Whether the link is active"  json:"isActive"`
	ClickCount  int64      `doc:"Number of recorded clicks"   json:"clickCount"`
	Description string     `doc:"Creator-supplied note"       json:"description,omitempty"`
	CustomAlias string     `doc:"Creator-chosen code, if any" json:"customAlias,omitempty"`
}

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		URL           string `doc:"The URL to shorten"             example:"https://example.com/very/long/path" json:"url"`
		CustomAlias   string `doc:"Custom code (optional)"         example:"my-page"                            json:"customAlias,omitempty" maxLength:"50" minLength:"3"`
		Description   string `doc:"Link description (optional)"    json:"description,omitempty"                 maxLength:"500"`
		ExpiresInDays int    `doc:"Days until expiry (optional)"   json:"expiresInDays,omitempty"               maximum:"3650" minimum:"1"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body ShortURLView
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc234" path:"code"`
}

// RedirectResponse redirects the client to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The original URL" header:"Location"`
	}
}

// InfoRequest asks for the stats of one short URL.
type InfoRequest struct {
	Code string `doc:"The short code" path:"code"`
}

// InfoResponse carries the full record view including access counters.
type InfoResponse struct {
	Body struct {
		ShortURLView
		UpdatedAt      time.Time  `doc:"Last modification time" json:"updatedAt"`
		LastAccessedAt *time.Time `doc:"Last resolve time"      json:"lastAccessedAt,omitempty"`
		IsExpired      bool       `doc:"Whether expiry passed"  json:"isExpired"`
	}
}

// AnalyticsRequest asks for derived click metrics of one short URL.
type AnalyticsRequest struct {
	Code string `doc:"The short code" path:"code"`
}

// AnalyticsResponse carries click-rate metrics.
type AnalyticsResponse struct {
	Body struct {
		ShortURLView
		DaysActive        int     `doc:"Days since creation"            json:"daysActive"`
		AvgClicksPerDay   float64 `doc:"Average clicks per day"         json:"avgClicksPerDay"`
		PerformanceRating string  `doc:"Qualitative click-rate bucket"  json:"performanceRating"`
	}
}

// ListRequest selects a page of short URLs.
type ListRequest struct {
	Page     int   `default:"1"  doc:"Page number"             minimum:"1"  query:"page"`
	Size     int   `default:"10" doc:"Page size (max 100)"     maximum:"100" minimum:"1" query:"size"`
	IsActive *bool `doc:"Filter by active state"               query:"is_active"`
}

// ListResponse is one page of records plus paging totals.
type ListResponse struct {
	Body struct {
		URLs  []ShortURLView `doc:"Records on this page" json:"urls"`
		Total int64          `doc:"Total matching records" json:"total"`
		Page  int            `doc:"Current page"           json:"page"`
		Size  int            `doc:"Page size"              json:"size"`
		Pages int            `doc:"Total pages"            json:"pages"`
	}
}

// DeactivateRequest turns one short URL off.
type DeactivateRequest struct {
	Code string `doc:"The short code" path:"code"`
}

// DeactivateResponse acknowledges the deactivation.
type DeactivateResponse struct {
	Body struct {
		Message string `doc:"Confirmation" json:"message"`
	}
}

// CleanupResponse reports how many expired records were removed.
type CleanupResponse struct {
	Body struct {
		Message string `doc:"Confirmation"            json:"message"`
		Count   int64  `doc:"Number of removed links" json:"count"`
	}
}

// DeleteRequest removes one short URL.
type DeleteRequest struct {
	Code string `doc:"The short code" path:"code"`
}

// DeleteResponse acknowledges the deletion.
type DeleteResponse struct {
	Body struct {
		Message string `doc:"Confirmation" json:"message"`
	}
}

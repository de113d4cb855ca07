package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkcut/internal/ratelimit"
)

// RegisterRoutes registers all URL shortener routes with per-endpoint rate
// limit configuration.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	// Writes get the strict budget.
	huma.Register(api, huma.Operation{
		Method:        http.MethodPost,
		Path:          "/shorten",
		Summary:       "Create short URL",
		Description:   "Creates a shortened URL, optionally under a custom alias.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, urlHandler.CreateShortURL)

	// Listing must not shadow the single-segment redirect route, so it gets
	// its own path prefix.
	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/api/urls",
		Summary:     "List short URLs",
		Description: "Returns a page of short URLs created by the requesting client.",
		Tags:        []string{"URLs"},
	}, urlHandler.ListURLs)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/info/{code}",
		Summary:     "Get short URL info",
		Description: "Returns the record and counters behind a short code.",
		Tags:        []string{"URLs"},
	}, urlHandler.GetURLInfo)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/analytics/{code}",
		Summary:     "Get short URL analytics",
		Description: "Returns derived click metrics for a short code.",
		Tags:        []string{"URLs"},
	}, urlHandler.GetURLAnalytics)

	huma.Register(api, huma.Operation{
		Method:      http.MethodPatch,
		Path:        "/deactivate/{code}",
		Summary:     "Deactivate short URL",
		Description: "Turns a short URL off without deleting its record.",
		Tags:        []string{"URLs"},
	}, urlHandler.DeactivateURL)

	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/cleanup-expired",
		Summary:     "Clean up expired URLs",
		Description: "Removes every short URL whose expiry has passed.",
		Tags:        []string{"URLs"},
	}, urlHandler.CleanupExpiredURLs)

	huma.Register(api, huma.Operation{
		Method:      http.MethodDelete,
		Path:        "/{code}",
		Summary:     "Delete short URL",
		Description: "Removes a short URL record permanently.",
		Tags:        []string{"URLs"},
	}, urlHandler.DeleteURL)

	// Redirects take the bulk of the traffic; keep their budget wide.
	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL associated with the short code.",
		Tags:        []string{"URLs"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, urlHandler.RedirectToURL)
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/linkcut/internal/analytics"
	"github.com/serroba/linkcut/internal/messaging"
	"github.com/serroba/linkcut/internal/shortcode"
	"github.com/serroba/linkcut/internal/shortener"
	"github.com/serroba/linkcut/internal/validate"
	"go.uber.org/zap"
)

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service            *shortener.Service
	baseURL            string
	publishURLCreated  messaging.Publish[analytics.URLCreatedEvent]
	publishURLAccessed messaging.Publish[analytics.URLAccessedEvent]
	logger             *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	service *shortener.Service,
	baseURL string,
	publishURLCreated messaging.Publish[analytics.URLCreatedEvent],
	publishURLAccessed messaging.Publish[analytics.URLAccessedEvent],
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		service:            service,
		baseURL:            baseURL,
		publishURLCreated:  publishURLCreated,
		publishURLAccessed: publishURLAccessed,
		logger:             logger,
	}
}

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for analytics.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	meta := RequestMetaFromContext(ctx)

	record, err := h.service.Create(ctx, shortener.CreateInput{
		OriginalURL:   req.Body.URL,
		CustomAlias:   req.Body.CustomAlias,
		Description:   req.Body.Description,
		ExpiresInDays: req.Body.ExpiresInDays,
		CreatorIP:     meta.ClientIP,
		UserAgent:     meta.UserAgent,
	})
	if err != nil {
		return nil, h.mapCreateError(err)
	}

	event := &analytics.URLCreatedEvent{
		EventID:     analytics.NewEventID(),
		Code:        string(record.Code),
		OriginalURL: record.OriginalURL,
		URLHash:     string(record.URLHash),
		CustomAlias: record.CustomAlias,
		CreatedAt:   record.CreatedAt,
		ExpiresAt:   record.ExpiresAt,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
	}

	if err := h.publishURLCreated(event); err != nil {
		h.logger.Error("failed to publish created event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &CreateShortURLResponse{Body: h.view(record)}
	resp.Headers.Location = resp.Body.ShortURL

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	originalURL, err := h.service.Resolve(ctx, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, shortener.ErrNotFound):
			return nil, huma.Error404NotFound("short url not found")
		case errors.Is(err, shortener.ErrExpired):
			return nil, huma.Error410Gone("short url expired")
		default:
			return nil, huma.Error500InternalServerError("failed to resolve url")
		}
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.URLAccessedEvent{
		EventID:    analytics.NewEventID(),
		Code:       req.Code,
		AccessedAt: time.Now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
	}

	if err = h.publishURLAccessed(event); err != nil {
		h.logger.Error("failed to publish access event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &RedirectResponse{Status: http.StatusFound}
	resp.Headers.Location = originalURL

	return resp, nil
}

func (h *URLHandler) GetURLInfo(ctx context.Context, req *InfoRequest) (*InfoResponse, error) {
	record, err := h.service.Info(ctx, req.Code)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short url not found")
		}

		return nil, huma.Error500InternalServerError("failed to get url info")
	}

	resp := &InfoResponse{}
	resp.Body.ShortURLView = h.view(record)
	resp.Body.UpdatedAt = record.UpdatedAt
	resp.Body.LastAccessedAt = record.LastAccessedAt
	resp.Body.IsExpired = record.Expired()

	return resp, nil
}

func (h *URLHandler) GetURLAnalytics(ctx context.Context, req *AnalyticsRequest) (*AnalyticsResponse, error) {
	stats, err := h.service.Analytics(ctx, req.Code)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short url not found")
		}

		return nil, huma.Error500InternalServerError("failed to get analytics")
	}

	resp := &AnalyticsResponse{}
	resp.Body.ShortURLView = h.view(stats.ShortURL)
	resp.Body.DaysActive = stats.DaysActive
	resp.Body.AvgClicksPerDay = stats.AvgClicksPerDay
	resp.Body.PerformanceRating = stats.PerformanceRating

	return resp, nil
}

func (h *URLHandler) ListURLs(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	meta := RequestMetaFromContext(ctx)

	page, err := h.service.List(ctx, shortener.ListQuery{
		Page:      req.Page,
		Size:      req.Size,
		IsActive:  req.IsActive,
		CreatorIP: meta.ClientIP, // listings are scoped to the requesting client
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list urls")
	}

	resp := &ListResponse{}
	resp.Body.URLs = make([]ShortURLView, 0, len(page.URLs))

	for _, record := range page.URLs {
		resp.Body.URLs = append(resp.Body.URLs, h.view(record))
	}

	resp.Body.Total = page.Total
	resp.Body.Page = page.Page
	resp.Body.Size = page.Size
	resp.Body.Pages = page.Pages

	return resp, nil
}

func (h *URLHandler) DeactivateURL(ctx context.Context, req *DeactivateRequest) (*DeactivateResponse, error) {
	if err := h.service.Deactivate(ctx, req.Code); err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short url not found")
		}

		return nil, huma.Error500InternalServerError("failed to deactivate url")
	}

	resp := &DeactivateResponse{}
	resp.Body.Message = "short url deactivated"

	return resp, nil
}

func (h *URLHandler) DeleteURL(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	if err := h.service.Delete(ctx, req.Code); err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short url not found")
		}

		return nil, huma.Error500InternalServerError("failed to delete url")
	}

	resp := &DeleteResponse{}
	resp.Body.Message = "short url deleted"

	return resp, nil
}

func (h *URLHandler) CleanupExpiredURLs(ctx context.Context, _ *struct{}) (*CleanupResponse, error) {
	count, err := h.service.CleanupExpired(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to clean up expired urls")
	}

	resp := &CleanupResponse{}
	resp.Body.Message = fmt.Sprintf("removed %d expired short urls", count)
	resp.Body.Count = count

	return resp, nil
}

func (h *URLHandler) mapCreateError(err error) error {
	switch {
	case errors.Is(err, validate.ErrURLTooLong):
		return huma.Error400BadRequest("url exceeds maximum length")
	case errors.Is(err, validate.ErrInvalidURL):
		return huma.Error400BadRequest("invalid url")
	case errors.Is(err, shortcode.ErrInvalidAlias):
		return huma.Error400BadRequest("custom alias has invalid format")
	case errors.Is(err, shortcode.ErrAliasExists):
		return huma.Error409Conflict("custom alias already taken")
	case errors.Is(err, shortcode.ErrGeneration):
		return huma.Error500InternalServerError("unable to generate a unique short code")
	default:
		return huma.Error500InternalServerError("failed to save url")
	}
}

func (h *URLHandler) view(record *shortener.ShortURL) ShortURLView {
	return ShortURLView{
		ID:          record.ID,
		OriginalURL: record.OriginalURL,
		ShortURL:    fmt.Sprintf("%s/%s", h.baseURL, record.Code),
		Code:        string(record.Code),
		CreatedAt:   record.CreatedAt,
		ExpiresAt:   record.ExpiresAt,
		IsActive:    record.IsActive,
		ClickCount:  record.ClickCount,
		Description: record.Description,
		CustomAlias: record.CustomAlias,
	}
}

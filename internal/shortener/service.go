package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/linkcut/internal/shortcode"
	"github.com/serroba/linkcut/internal/validate"
	"go.uber.org/zap"
)

// ErrExpired means the record exists but its expiry has passed.
var ErrExpired = errors.New("url expired")

// createConflictRetries bounds how often a creation that lost the race on the
// persisted uniqueness constraint is retried with a fresh code.
const createConflictRetries = 3

// maxPageSize caps the page size accepted by List.
const maxPageSize = 100

// CreateInput carries everything needed to shorten one URL.
type CreateInput struct {
	OriginalURL   string
	CustomAlias   string
	Description   string
	ExpiresInDays int
	CreatorIP     string
	UserAgent     string
}

// Service orchestrates the shortening workflow: validation, code choice,
// persistence, and the read paths.
type Service struct {
	repo              Repository
	resolver          *shortcode.Resolver
	validator         *validate.Validator
	defaultExpiryDays int
	logger            *zap.Logger
}

// NewService creates the orchestrator. defaultExpiryDays <= 0 disables the
// implicit expiry for records created without one.
func NewService(
	repo Repository,
	resolver *shortcode.Resolver,
	validator *validate.Validator,
	defaultExpiryDays int,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:              repo,
		resolver:          resolver,
		validator:         validator,
		defaultExpiryDays: defaultExpiryDays,
		logger:            logger,
	}
}

// Create validates and shortens a URL. Shortening the same URL twice returns
// the existing record while it is active and unexpired. A lost race on the
// persisted uniqueness constraint is retried with a fresh code; with a custom
// alias the conflict is surfaced instead, the caller asked for that exact
// code.
func (s *Service) Create(ctx context.Context, in CreateInput) (*ShortURL, error) {
	if err := s.validator.ValidateURL(in.OriginalURL); err != nil {
		return nil, err
	}

	normalized, err := s.validator.Normalize(in.OriginalURL)
	if err != nil {
		return nil, err
	}

	urlHash := URLHash(validate.HashURL(normalized))

	existing, err := s.repo.GetByHash(ctx, urlHash)
	if err == nil && existing.IsActive && !existing.Expired() && in.CustomAlias == "" {
		return existing, nil
	}

	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("hash lookup: %w", err)
	}

	expiresAt := s.expiry(in.ExpiresInDays)

	for attempt := 0; attempt < createConflictRetries; attempt++ {
		code, err := s.resolver.ChooseCode(ctx, normalized, in.CustomAlias)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		record := &ShortURL{
			Code:        Code(code),
			OriginalURL: normalized,
			URLHash:     urlHash,
			CustomAlias: in.CustomAlias,
			Description: in.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   expiresAt,
			IsActive:    true,
			CreatorIP:   in.CreatorIP,
			UserAgent:   in.UserAgent,
		}

		err = s.repo.Save(ctx, record)
		if err == nil {
			s.logger.Info("short url created",
				zap.String("code", code),
				zap.String("url", normalized),
			)

			return record, nil
		}

		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("save record: %w", err)
		}

		if in.CustomAlias != "" {
			return nil, fmt.Errorf("%w: %q", shortcode.ErrAliasExists, in.CustomAlias)
		}

		// Lost the race to a concurrent creator; skip this code from now on.
		s.resolver.MarkTaken(code)
		s.logger.Warn("code conflict on save, retrying",
			zap.String("code", code),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, shortcode.ErrGeneration
}

// Resolve returns the target URL for a code or alias, recording the click.
// Inactive records resolve as not found; expired ones as ErrExpired.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	record, err := s.get(ctx, code)
	if err != nil {
		return "", err
	}

	if !record.IsActive {
		return "", ErrNotFound
	}

	if record.Expired() {
		return "", fmt.Errorf("%w: %s", ErrExpired, code)
	}

	// Best effort: a failed counter bump must not block the redirect.
	if err := s.repo.IncrementClicks(ctx, record.Code); err != nil {
		s.logger.Error("click count update failed",
			zap.String("code", string(record.Code)),
			zap.Error(err),
		)
	}

	return record.OriginalURL, nil
}

// Info returns the full record for a code or alias.
func (s *Service) Info(ctx context.Context, code string) (*ShortURL, error) {
	return s.get(ctx, code)
}

// Analytics returns the record plus click-rate metrics.
func (s *Service) Analytics(ctx context.Context, code string) (*Analytics, error) {
	record, err := s.get(ctx, code)
	if err != nil {
		return nil, err
	}

	daysActive := int(time.Since(record.CreatedAt).Hours()/24) + 1

	var avg float64
	if daysActive > 0 {
		avg = float64(record.ClickCount) / float64(daysActive)
	}

	return &Analytics{
		ShortURL:          record,
		DaysActive:        daysActive,
		AvgClicksPerDay:   avg,
		PerformanceRating: performanceRating(record.ClickCount, daysActive),
	}, nil
}

// List returns a page of records. Size is capped at 100.
func (s *Service) List(ctx context.Context, query ListQuery) (*Page, error) {
	if query.Page < 1 {
		query.Page = 1
	}

	if query.Size < 1 {
		query.Size = 10
	}

	if query.Size > maxPageSize {
		query.Size = maxPageSize
	}

	return s.repo.List(ctx, query)
}

// Deactivate turns a record off without deleting it.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	record, err := s.get(ctx, code)
	if err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, record.Code); err != nil {
		return fmt.Errorf("deactivate %s: %w", record.Code, err)
	}

	s.logger.Info("short url deactivated", zap.String("code", string(record.Code)))

	return nil
}

// Delete removes a record and releases its code from the in-process
// pre-filter.
func (s *Service) Delete(ctx context.Context, code string) error {
	record, err := s.get(ctx, code)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, record.Code); err != nil {
		return fmt.Errorf("delete %s: %w", record.Code, err)
	}

	s.resolver.Release(string(record.Code))
	s.logger.Info("short url deleted", zap.String("code", string(record.Code)))

	return nil
}

// CleanupExpired removes expired records, returning how many went away.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.CleanupExpired(ctx)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.logger.Info("expired urls removed", zap.Int64("count", count))
	}

	return count, nil
}

// get looks a record up by code first, then by custom alias.
func (s *Service) get(ctx context.Context, code string) (*ShortURL, error) {
	record, err := s.repo.GetByCode(ctx, Code(code))
	if err == nil {
		return record, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	record, err = s.repo.GetByAlias(ctx, code)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *Service) expiry(requestedDays int) *time.Time {
	days := requestedDays
	if days <= 0 {
		days = s.defaultExpiryDays
	}

	if days <= 0 {
		return nil
	}

	t := time.Now().AddDate(0, 0, days)

	return &t
}

func performanceRating(clicks int64, daysActive int) string {
	if daysActive <= 0 {
		return "new"
	}

	avg := float64(clicks) / float64(daysActive)

	switch {
	case avg >= 10:
		return "excellent"
	case avg >= 5:
		return "good"
	case avg >= 1:
		return "average"
	default:
		return "low"
	}
}

package shortener

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means no record matches the lookup.
	ErrNotFound = errors.New("url not found")
	// ErrConflict means the store rejected a save because the code or alias
	// is already bound. The persisted uniqueness constraint is the
	// authoritative guard against concurrent creators.
	ErrConflict = errors.New("code already bound")
)

// ListQuery selects a page of records.
type ListQuery struct {
	Page      int
	Size      int
	IsActive  *bool
	CreatorIP string
}

// Page is one page of records plus paging totals.
type Page struct {
	URLs  []*ShortURL
	Total int64
	Page  int
	Size  int
	Pages int
}

// Repository defines the persistence contract for short URL records.
type Repository interface {
	// Save inserts a record, returning ErrConflict when the code or custom
	// alias is already taken.
	Save(ctx context.Context, shortURL *ShortURL) error
	GetByCode(ctx context.Context, code Code) (*ShortURL, error)
	GetByAlias(ctx context.Context, alias string) (*ShortURL, error)
	GetByHash(ctx context.Context, hash URLHash) (*ShortURL, error)
	List(ctx context.Context, query ListQuery) (*Page, error)
	// IncrementClicks bumps the click counter and last-access time.
	IncrementClicks(ctx context.Context, code Code) error
	Deactivate(ctx context.Context, code Code) error
	Delete(ctx context.Context, code Code) error
	// CleanupExpired removes records whose expiry has passed, returning the
	// number removed.
	CleanupExpired(ctx context.Context) (int64, error)
}

// CodeLookup adapts a Repository to the resolver's persisted-state check.
// System-issued codes and custom aliases share one namespace.
type CodeLookup struct {
	repo Repository
}

// NewCodeLookup creates a lookup over the given repository.
func NewCodeLookup(repo Repository) *CodeLookup {
	return &CodeLookup{repo: repo}
}

// CodeTaken reports whether code is bound as either a code or an alias.
// Historically issued records count as taken even when inactive or expired.
func (l *CodeLookup) CodeTaken(ctx context.Context, code string) (bool, error) {
	_, err := l.repo.GetByCode(ctx, Code(code))
	if err == nil {
		return true, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	_, err = l.repo.GetByAlias(ctx, code)
	if err == nil {
		return true, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	return false, nil
}

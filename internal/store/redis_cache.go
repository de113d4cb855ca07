package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/linkcut/internal/shortener"
)

// RedisCacheRepository wraps a Repository with Redis caching for reads.
// Writes go through to the underlying store first; the cache is best effort
// and entries carry a TTL so stale reads age out.
type RedisCacheRepository struct {
	store    shortener.Repository
	client   *redis.Client
	prefix   string
	hashKey  string
	aliasKey string
	ttl      time.Duration
}

// NewRedisCacheRepository creates a Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:    store,
		client:   client,
		prefix:   "url:",
		hashKey:  "url_hashes",
		aliasKey: "url_aliases",
		ttl:      ttl,
	}
}

func (r *RedisCacheRepository) Save(ctx context.Context, shortURL *shortener.ShortURL) error {
	if err := r.store.Save(ctx, shortURL); err != nil {
		return err
	}

	r.cacheURL(ctx, shortURL)

	return nil
}

func (r *RedisCacheRepository) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if url, err := r.getFromCache(ctx, code); err == nil {
		return url, nil
	}

	url, err := r.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, url)

	return url, nil
}

func (r *RedisCacheRepository) GetByAlias(ctx context.Context, alias string) (*shortener.ShortURL, error) {
	if code, err := r.client.HGet(ctx, r.aliasKey, alias).Result(); err == nil {
		if url, err := r.getFromCache(ctx, shortener.Code(code)); err == nil {
			return url, nil
		}
	}

	url, err := r.store.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, url)

	return url, nil
}

func (r *RedisCacheRepository) GetByHash(ctx context.Context, hash shortener.URLHash) (*shortener.ShortURL, error) {
	if code, err := r.client.HGet(ctx, r.hashKey, string(hash)).Result(); err == nil {
		if url, err := r.getFromCache(ctx, shortener.Code(code)); err == nil {
			return url, nil
		}
	}

	url, err := r.store.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, url)

	return url, nil
}

// List always hits the underlying store; paged scans are not worth caching.
func (r *RedisCacheRepository) List(ctx context.Context, query shortener.ListQuery) (*shortener.Page, error) {
	return r.store.List(ctx, query)
}

func (r *RedisCacheRepository) IncrementClicks(ctx context.Context, code shortener.Code) error {
	if err := r.store.IncrementClicks(ctx, code); err != nil {
		return err
	}

	// Drop the entry so the next read refetches fresh counters.
	r.invalidate(ctx, code)

	return nil
}

func (r *RedisCacheRepository) Deactivate(ctx context.Context, code shortener.Code) error {
	if err := r.store.Deactivate(ctx, code); err != nil {
		return err
	}

	r.invalidate(ctx, code)

	return nil
}

func (r *RedisCacheRepository) Delete(ctx context.Context, code shortener.Code) error {
	record, err := r.store.GetByCode(ctx, code)
	if err == nil {
		pipe := r.client.Pipeline()
		pipe.Del(ctx, r.prefix+string(code))

		if record.URLHash != "" {
			pipe.HDel(ctx, r.hashKey, string(record.URLHash))
		}

		if record.CustomAlias != "" {
			pipe.HDel(ctx, r.aliasKey, record.CustomAlias)
		}

		_, _ = pipe.Exec(ctx)
	}

	return r.store.Delete(ctx, code)
}

// CleanupExpired passes through; cached entries for removed records age out
// via their TTL.
func (r *RedisCacheRepository) CleanupExpired(ctx context.Context) (int64, error) {
	return r.store.CleanupExpired(ctx)
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	result, err := r.client.HGetAll(ctx, r.prefix+string(code)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortener.ErrNotFound
	}

	record := &shortener.ShortURL{
		Code:        shortener.Code(result["code"]),
		OriginalURL: result["original_url"],
		URLHash:     shortener.URLHash(result["url_hash"]),
		CustomAlias: result["custom_alias"],
		Description: result["description"],
		CreatorIP:   result["creator_ip"],
		UserAgent:   result["user_agent"],
	}

	record.ID, _ = strconv.ParseInt(result["id"], 10, 64)
	record.ClickCount, _ = strconv.ParseInt(result["click_count"], 10, 64)
	record.IsActive = result["is_active"] == "1"
	record.CreatedAt = parseNanos(result["created_at"])
	record.UpdatedAt = parseNanos(result["updated_at"])

	if ts := parseNanos(result["expires_at"]); !ts.IsZero() {
		record.ExpiresAt = &ts
	}

	if ts := parseNanos(result["last_accessed_at"]); !ts.IsZero() {
		record.LastAccessedAt = &ts
	}

	return record, nil
}

func (r *RedisCacheRepository) cacheURL(ctx context.Context, url *shortener.ShortURL) {
	pipe := r.client.Pipeline()
	key := r.prefix + string(url.Code)

	active := "0"
	if url.IsActive {
		active = "1"
	}

	fields := map[string]interface{}{
		"id":           url.ID,
		"code":         string(url.Code),
		"original_url": url.OriginalURL,
		"url_hash":     string(url.URLHash),
		"custom_alias": url.CustomAlias,
		"description":  url.Description,
		"created_at":   url.CreatedAt.UnixNano(),
		"updated_at":   url.UpdatedAt.UnixNano(),
		"is_active":    active,
		"click_count":  url.ClickCount,
		"creator_ip":   url.CreatorIP,
		"user_agent":   url.UserAgent,
	}

	if url.ExpiresAt != nil {
		fields["expires_at"] = url.ExpiresAt.UnixNano()
	}

	if url.LastAccessedAt != nil {
		fields["last_accessed_at"] = url.LastAccessedAt.UnixNano()
	}

	pipe.HSet(ctx, key, fields)

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if url.URLHash != "" {
		pipe.HSet(ctx, r.hashKey, string(url.URLHash), string(url.Code))
	}

	if url.CustomAlias != "" {
		pipe.HSet(ctx, r.aliasKey, url.CustomAlias, string(url.Code))
	}

	_, _ = pipe.Exec(ctx)
}

func (r *RedisCacheRepository) invalidate(ctx context.Context, code shortener.Code) {
	_ = r.client.Del(ctx, r.prefix+string(code)).Err()
}

func parseNanos(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	nanos, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}

	return time.Unix(0, nanos)
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)

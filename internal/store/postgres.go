package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migration source
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/serroba/linkcut/internal/shortener"
)

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
// Unique indexes on code and custom_alias are the authoritative guard against
// concurrent creators choosing the same code.
type PostgresStore struct {
	pool *pgxpool.Pool
	sb   squirrel.StatementBuilderType
}

// NewPostgresStore creates a PostgreSQL-backed repository over the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// RunMigrations applies the SQL migrations in sourceURL (e.g.
// "file://migrations") against the database at dsn.
func RunMigrations(dsn, sourceURL string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

const shortURLColumns = "id, code, original_url, url_hash, custom_alias, description, " +
	"created_at, updated_at, expires_at, is_active, click_count, last_accessed_at, " +
	"creator_ip, user_agent"

func (p *PostgresStore) Save(ctx context.Context, shortURL *shortener.ShortURL) error {
	query, args, err := p.sb.
		Insert("short_urls").
		Columns("code", "original_url", "url_hash", "custom_alias", "description",
			"created_at", "updated_at", "expires_at", "is_active",
			"creator_ip", "user_agent").
		Values(
			string(shortURL.Code),
			shortURL.OriginalURL,
			nullable(string(shortURL.URLHash)),
			nullable(shortURL.CustomAlias),
			nullable(shortURL.Description),
			shortURL.CreatedAt,
			shortURL.UpdatedAt,
			shortURL.ExpiresAt,
			shortURL.IsActive,
			nullable(shortURL.CreatorIP),
			nullable(shortURL.UserAgent),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = p.pool.QueryRow(ctx, query, args...).Scan(&shortURL.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return shortener.ErrConflict
		}

		return fmt.Errorf("insert record: %w", err)
	}

	return nil
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	return p.getWhere(ctx, squirrel.Eq{"code": string(code)})
}

func (p *PostgresStore) GetByAlias(ctx context.Context, alias string) (*shortener.ShortURL, error) {
	return p.getWhere(ctx, squirrel.Eq{"custom_alias": alias})
}

func (p *PostgresStore) GetByHash(ctx context.Context, hash shortener.URLHash) (*shortener.ShortURL, error) {
	return p.getWhere(ctx, squirrel.Eq{"url_hash": string(hash)})
}

func (p *PostgresStore) List(ctx context.Context, query shortener.ListQuery) (*shortener.Page, error) {
	where := squirrel.And{}

	if query.IsActive != nil {
		where = append(where, squirrel.Eq{"is_active": *query.IsActive})
	}

	if query.CreatorIP != "" {
		where = append(where, squirrel.Eq{"creator_ip": query.CreatorIP})
	}

	countSQL, countArgs, err := p.sb.Select("COUNT(*)").From("short_urls").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}

	var total int64
	if err := p.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	listSQL, listArgs, err := p.sb.
		Select(shortURLColumns).
		From("short_urls").
		Where(where).
		OrderBy("id DESC").
		Limit(uint64(query.Size)).
		Offset(uint64((query.Page - 1) * query.Size)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := p.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var urls []*shortener.ShortURL

	for rows.Next() {
		record, err := scanShortURL(rows)
		if err != nil {
			return nil, err
		}

		urls = append(urls, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	pages := int((total + int64(query.Size) - 1) / int64(query.Size))

	return &shortener.Page{
		URLs:  urls,
		Total: total,
		Page:  query.Page,
		Size:  query.Size,
		Pages: pages,
	}, nil
}

func (p *PostgresStore) IncrementClicks(ctx context.Context, code shortener.Code) error {
	query, args, err := p.sb.
		Update("short_urls").
		Set("click_count", squirrel.Expr("click_count + 1")).
		Set("last_accessed_at", time.Now()).
		Where(squirrel.Eq{"code": string(code)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) Deactivate(ctx context.Context, code shortener.Code) error {
	query, args, err := p.sb.
		Update("short_urls").
		Set("is_active", false).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"code": string(code)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deactivate record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, code shortener.Code) error {
	query, args, err := p.sb.
		Delete("short_urls").
		Where(squirrel.Eq{"code": string(code)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) CleanupExpired(ctx context.Context) (int64, error) {
	query, args, err := p.sb.
		Delete("short_urls").
		Where(squirrel.Expr("expires_at IS NOT NULL AND expires_at < now()")).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresStore) getWhere(ctx context.Context, where squirrel.Eq) (*shortener.ShortURL, error) {
	query, args, err := p.sb.
		Select(shortURLColumns).
		From("short_urls").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query record: %w", err)
		}

		return nil, shortener.ErrNotFound
	}

	return scanShortURL(rows)
}

func scanShortURL(row pgx.Row) (*shortener.ShortURL, error) {
	var (
		record      shortener.ShortURL
		urlHash     *string
		customAlias *string
		description *string
		creatorIP   *string
		userAgent   *string
	)

	err := row.Scan(
		&record.ID,
		&record.Code,
		&record.OriginalURL,
		&urlHash,
		&customAlias,
		&description,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.ExpiresAt,
		&record.IsActive,
		&record.ClickCount,
		&record.LastAccessedAt,
		&creatorIP,
		&userAgent,
	)
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	record.URLHash = shortener.URLHash(deref(urlHash))
	record.CustomAlias = deref(customAlias)
	record.Description = deref(description)
	record.CreatorIP = deref(creatorIP)
	record.UserAgent = deref(userAgent)

	return &record, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)

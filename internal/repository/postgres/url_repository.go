package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fcc-shorturl/internal/domain"
	"fcc-shorturl/internal/metrics"
	"fcc-shorturl/internal/repository"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const backend = "postgres"

// Constraint names from migrations/000001_create_urls.up.sql.
// A unique violation is mapped to a repository error by the constraint that fired.
const (
	constraintOriginalURL = "urls_original_url_key"
	constraintShortID     = "urls_short_id_key"
)

// urlRepository is the PostgreSQL implementation of repository.URLRepository
// The lowercase name means it's private to this package
type urlRepository struct {
	db *pgxpool.Pool
}

// NewURLRepository creates a PostgreSQL URL repository on top of an open pool.
// The repository owns the pool from here on: Close closes it.
func NewURLRepository(db *pgxpool.Pool) repository.URLRepository {
	return &urlRepository{db: db}
}

// FindByOriginalURL retrieves the record for an original URL
func (r *urlRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.URLRecord, bool, error) {
	query := `SELECT original_url, short_id FROM urls WHERE original_url = $1`
	return r.findOne(ctx, "find_by_original_url", query, originalURL)
}

// FindByShortID retrieves the record for a short id
func (r *urlRepository) FindByShortID(ctx context.Context, shortID int64) (*domain.URLRecord, bool, error) {
	query := `SELECT original_url, short_id FROM urls WHERE short_id = $1`
	return r.findOne(ctx, "find_by_short_id", query, shortID)
}

func (r *urlRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.URLRecord, bool, error) {
	start := time.Now()

	record := &domain.URLRecord{}
	err := r.db.QueryRow(ctx, query, arg).Scan(&record.OriginalURL, &record.ShortID)
	if err != nil {
		// pgx.ErrNoRows is returned when no rows match the query
		if errors.Is(err, pgx.ErrNoRows) {
			metrics.ObserveStore(backend, op, start, false)
			return nil, false, nil
		}
		metrics.ObserveStore(backend, op, start, true)
		return nil, false, fmt.Errorf("failed to query URL: %w", err)
	}

	metrics.ObserveStore(backend, op, start, false)
	return record, true, nil
}

// Insert stores a new record. Uniqueness is enforced by the table constraints,
// so two concurrent inserts of the same URL cannot both succeed.
func (r *urlRepository) Insert(ctx context.Context, record *domain.URLRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	start := time.Now()
	query := `INSERT INTO urls (original_url, short_id) VALUES ($1, $2)`

	_, err := r.db.Exec(ctx, query, record.OriginalURL, record.ShortID)
	if err != nil {
		translated := translateError(err)
		metrics.ObserveStore(backend, "insert", start, translated == err)
		if translated != err {
			return translated
		}
		return fmt.Errorf("failed to insert URL: %w", err)
	}

	metrics.ObserveStore(backend, "insert", start, false)
	return nil
}

// Update moves an existing original URL onto a new short id
func (r *urlRepository) Update(ctx context.Context, record *domain.URLRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	start := time.Now()
	query := `UPDATE urls SET short_id = $2 WHERE original_url = $1`

	result, err := r.db.Exec(ctx, query, record.OriginalURL, record.ShortID)
	if err != nil {
		translated := translateError(err)
		metrics.ObserveStore(backend, "update", start, translated == err)
		if translated != err {
			return translated
		}
		return fmt.Errorf("failed to update URL: %w", err)
	}

	metrics.ObserveStore(backend, "update", start, false)

	if result.RowsAffected() == 0 {
		return repository.ErrRecordNotFound
	}
	return nil
}

// NextShortID draws from urls_short_id_seq.
// Values already taken by explicitly inserted records (the seed fixtures) are skipped.
func (r *urlRepository) NextShortID(ctx context.Context) (int64, error) {
	start := time.Now()
	query := `
		SELECT s.id
		FROM (SELECT nextval('urls_short_id_seq') AS id) s
		WHERE NOT EXISTS (SELECT 1 FROM urls WHERE short_id = s.id)
	`

	for {
		var id int64
		err := r.db.QueryRow(ctx, query).Scan(&id)
		if err == nil {
			metrics.ObserveStore(backend, "next_short_id", start, false)
			return id, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.SequenceGeneratorLimitExceeded {
			metrics.ObserveStore(backend, "next_short_id", start, true)
			return 0, fmt.Errorf("%w: %s", repository.ErrSequenceExhausted, pgErr.Message)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			metrics.ObserveStore(backend, "next_short_id", start, true)
			return 0, fmt.Errorf("failed to advance short id sequence: %w", err)
		}
		// The drawn value is taken; draw again
	}
}

// Ping checks that a connection can be acquired
func (r *urlRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close closes every connection in the pool
func (r *urlRepository) Close() error {
	r.db.Close()
	return nil
}

// translateError maps unique violations onto repository errors.
// Any other error is returned unchanged.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case constraintOriginalURL:
		return repository.ErrDuplicateOriginalURL
	case constraintShortID:
		return repository.ErrDuplicateShortID
	default:
		return err
	}
}

// InitDB initializes the database connection pool
// This is called once at application startup
func InitDB(ctx context.Context, dsn string, maxConns, minConns int, maxLifetime time.Duration) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure connection pool settings
	config.MaxConns = int32(maxConns)
	config.MinConns = int32(minConns)
	config.MaxConnLifetime = maxLifetime
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

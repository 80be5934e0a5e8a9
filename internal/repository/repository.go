package repository

import (
	"context"
	"errors"

	"fcc-shorturl/internal/domain"
)

// Store-level errors. Implementations translate their driver-specific
// constraint violations into these so the service can react uniformly.
var (
	// ErrDuplicateOriginalURL is returned by Insert when the original URL already has a record.
	ErrDuplicateOriginalURL = errors.New("original url already stored")

	// ErrDuplicateShortID is returned by Insert or Update when the short id is taken.
	ErrDuplicateShortID = errors.New("short id already taken")

	// ErrRecordNotFound is returned by Update when there is no record to update.
	ErrRecordNotFound = errors.New("record not found")

	// ErrSequenceExhausted is returned by NextShortID once the sequence has reached math.MaxInt64.
	ErrSequenceExhausted = errors.New("short id sequence exhausted")
)

// URLRepository is the durable mapping between original URLs and short ids.
//
// Both OriginalURL and ShortID are unique; implementations enforce that at the
// storage layer so concurrent inserts cannot break the bijection.
// Lookups report absence as (nil, false, nil) rather than an error.
// All implementations are safe for concurrent use.
type URLRepository interface {
	// FindByOriginalURL returns the record for an original URL, if any
	FindByOriginalURL(ctx context.Context, originalURL string) (*domain.URLRecord, bool, error)

	// FindByShortID returns the record carrying a short id, if any
	FindByShortID(ctx context.Context, shortID int64) (*domain.URLRecord, bool, error)

	// Insert stores a new record.
	// Returns ErrDuplicateOriginalURL or ErrDuplicateShortID on a uniqueness violation.
	Insert(ctx context.Context, record *domain.URLRecord) error

	// Update moves an existing original URL onto record.ShortID.
	// Used only by the startup seed step.
	Update(ctx context.Context, record *domain.URLRecord) error

	// NextShortID hands out the next value of the store-owned monotonic sequence.
	// math.MaxInt64 is never handed out.
	NextShortID(ctx context.Context) (int64, error)

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error

	// Close releases the underlying resources
	Close() error
}

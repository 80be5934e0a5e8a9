package domain

import (
	"errors"
	"strconv"
	"strings"
)

// URLRecord is the persisted mapping between an original URL and its numeric short id.
// Records are immutable once created; the only mutation is the startup seed step
// which may move a fixture URL onto its reserved id.
type URLRecord struct {
	OriginalURL string // The full URL to redirect to (non-empty)
	ShortID     int64  // Non-negative, unique across all records
}

// Domain errors - the HTTP layer maps each of these onto a status code
// and a client-facing message. Callers classify with errors.Is.
var (
	// ErrInvalidURL means the submitted URL failed the configured validation policy.
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidRequest means the short id token is not a non-negative integer.
	ErrInvalidRequest = errors.New("invalid short url format")

	// ErrNotFound means no record carries the requested short id.
	ErrNotFound = errors.New("short url not found")

	// ErrStore wraps any failure of the underlying record store, including timeouts.
	ErrStore = errors.New("store failure")
)

// NewURLRecord builds a record for the given URL and id.
func NewURLRecord(originalURL string, shortID int64) *URLRecord {
	return &URLRecord{
		OriginalURL: originalURL,
		ShortID:     shortID,
	}
}

// Validate checks the record invariants before it is written to a store.
func (r *URLRecord) Validate() error {
	if strings.TrimSpace(r.OriginalURL) == "" {
		return ErrInvalidURL
	}
	if r.ShortID < 0 {
		return ErrInvalidRequest
	}
	return nil
}

// ParseShortID turns a path token into a short id.
// Only plain base-10 digits are accepted: signs, decimals and empty tokens are rejected.
func ParseShortID(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrInvalidRequest
	}

	for _, c := range token {
		if c < '0' || c > '9' {
			return 0, ErrInvalidRequest
		}
	}

	// Overflow is the only error left once the digit check passed
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, ErrInvalidRequest
	}

	return id, nil
}

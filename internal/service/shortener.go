package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fcc-shorturl/internal/domain"
	"fcc-shorturl/internal/metrics"
	"fcc-shorturl/internal/repository"
	"fcc-shorturl/pkg/validator"

	"golang.org/x/sync/singleflight"
)

// ErrIDSpaceExhausted is returned when every generated candidate id was already taken
var ErrIDSpaceExhausted = errors.New("no free short id after retries")

// URLValidator decides whether a submitted URL is acceptable
type URLValidator interface {
	Validate(ctx context.Context, candidate string) error
	Policy() validator.Policy
}

// Config tunes the shortener
type Config struct {
	// OperationTimeout bounds every single store call
	OperationTimeout time.Duration

	// MaxAttempts bounds id generation retries after a short id collision
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	return c
}

// Shortener handles the business logic of creating and resolving short URLs.
// This is the SERVICE LAYER: it sits between HTTP handlers and the record store.
//
// Find-or-create is idempotent per original URL. Concurrent creates of the same
// URL inside this process are merged by a singleflight group; races between
// processes are settled by the store's uniqueness constraints followed by a re-read.
type Shortener struct {
	repo      repository.URLRepository
	validator URLValidator
	ids       IDGenerator
	cfg       Config
	logger    *slog.Logger

	inflight singleflight.Group
}

// NewShortener creates a new shortener service
func NewShortener(repo repository.URLRepository, v URLValidator, ids IDGenerator, cfg Config, logger *slog.Logger) *Shortener {
	return &Shortener{
		repo:      repo,
		validator: v,
		ids:       ids,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

type createResult struct {
	record  *domain.URLRecord
	created bool
}

// Create returns the mapping for rawURL, storing a new one if the URL is unknown.
// created reports whether a new record was stored for this URL by this call
// or by a concurrent call it was merged with.
//
// Errors: domain.ErrInvalidURL for rejected input, domain.ErrStore for store failures.
func (s *Shortener) Create(ctx context.Context, rawURL string) (*domain.URLRecord, bool, error) {
	if err := s.validator.Validate(ctx, rawURL); err != nil {
		metrics.RecordValidationFailure(string(s.validator.Policy()))
		return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}

	// The shared call outlives any single caller; its store calls stay
	// bounded by OperationTimeout. Each caller waits only as long as its own ctx.
	leaderCtx := context.WithoutCancel(ctx)

	ch := s.inflight.DoChan(rawURL, func() (interface{}, error) {
		return s.findOrCreate(leaderCtx, rawURL)
	})

	var res createResult
	select {
	case <-ctx.Done():
		return nil, false, storeError("create", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		res = r.Val.(createResult)
	}

	// Hand each caller its own copy
	record := *res.record
	return &record, res.created, nil
}

func (s *Shortener) findOrCreate(ctx context.Context, originalURL string) (createResult, error) {
	existing, found, err := s.findByOriginalURL(ctx, originalURL)
	if err != nil {
		return createResult{}, err
	}
	if found {
		return createResult{record: existing}, nil
	}

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		id, err := s.nextID(ctx)
		if err != nil {
			return createResult{}, err
		}

		record := domain.NewURLRecord(originalURL, id)
		err = s.insert(ctx, record)

		switch {
		case err == nil:
			metrics.RecordURLCreated()
			s.logger.Info("Short URL created", "short_id", id, "original_url", originalURL)
			return createResult{record: record, created: true}, nil

		case errors.Is(err, repository.ErrDuplicateShortID):
			metrics.RecordIDCollision()
			s.logger.Debug("Short id collision, retrying", "short_id", id, "attempt", attempt)
			continue

		case errors.Is(err, repository.ErrDuplicateOriginalURL):
			// Another process stored this URL between our find and insert
			winner, found, err := s.findByOriginalURL(ctx, originalURL)
			if err != nil {
				return createResult{}, err
			}
			if !found {
				return createResult{}, storeError("find after duplicate", errors.New("record missing after duplicate insert"))
			}
			return createResult{record: winner}, nil

		default:
			return createResult{}, storeError("insert", err)
		}
	}

	s.logger.Error("Short id space exhausted", "original_url", originalURL, "attempts", s.cfg.MaxAttempts)
	return createResult{}, storeError("generate id", ErrIDSpaceExhausted)
}

// Resolve returns the original URL behind a short id token.
//
// Errors: domain.ErrInvalidRequest for a malformed token, domain.ErrNotFound for
// an unknown id, domain.ErrStore for store failures.
func (s *Shortener) Resolve(ctx context.Context, token string) (string, error) {
	id, err := domain.ParseShortID(token)
	if err != nil {
		return "", err
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	record, found, err := s.repo.FindByShortID(opCtx, id)
	if err != nil {
		return "", storeError("find by short id", err)
	}
	if !found {
		return "", domain.ErrNotFound
	}

	metrics.RecordRedirect()
	return record.OriginalURL, nil
}

// Ping checks that the record store is reachable
func (s *Shortener) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	if err := s.repo.Ping(opCtx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

func (s *Shortener) findByOriginalURL(ctx context.Context, originalURL string) (*domain.URLRecord, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	record, found, err := s.repo.FindByOriginalURL(opCtx, originalURL)
	if err != nil {
		return nil, false, storeError("find by original url", err)
	}
	return record, found, nil
}

func (s *Shortener) nextID(ctx context.Context) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	id, err := s.ids.NextID(opCtx)
	if errors.Is(err, repository.ErrSequenceExhausted) {
		s.logger.Error("Short id sequence exhausted", "error", err)
		return 0, storeError("next id", fmt.Errorf("%w: %w", ErrIDSpaceExhausted, err))
	}
	if err != nil {
		return 0, storeError("next id", err)
	}
	return id, nil
}

// insert returns repository duplicate errors unwrapped so the caller can branch on them
func (s *Shortener) insert(ctx context.Context, record *domain.URLRecord) error {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	return s.repo.Insert(opCtx, record)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStore, op, err)
}

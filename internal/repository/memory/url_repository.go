package memory

import (
	"context"
	"math"
	"sync"

	"fcc-shorturl/internal/domain"
	"fcc-shorturl/internal/repository"
)

// urlRepository keeps the mapping in two maps guarded by one mutex,
// so every check-and-write happens atomically with respect to both uniqueness rules.
type urlRepository struct {
	mu     sync.RWMutex
	byURL  map[string]int64
	byID   map[int64]string
	nextID int64
}

// NewURLRepository creates an empty in-memory repository.
// Its sequence starts at 1; 0 is still accepted through Insert.
func NewURLRepository() repository.URLRepository {
	return &urlRepository{
		byURL:  make(map[string]int64),
		byID:   make(map[int64]string),
		nextID: 1,
	}
}

func (r *urlRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.URLRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byURL[originalURL]
	if !ok {
		return nil, false, nil
	}
	return domain.NewURLRecord(originalURL, id), true, nil
}

func (r *urlRepository) FindByShortID(ctx context.Context, shortID int64) (*domain.URLRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	originalURL, ok := r.byID[shortID]
	if !ok {
		return nil, false, nil
	}
	return domain.NewURLRecord(originalURL, shortID), true, nil
}

func (r *urlRepository) Insert(ctx context.Context, record *domain.URLRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byURL[record.OriginalURL]; ok {
		return repository.ErrDuplicateOriginalURL
	}
	if _, ok := r.byID[record.ShortID]; ok {
		return repository.ErrDuplicateShortID
	}

	r.byURL[record.OriginalURL] = record.ShortID
	r.byID[record.ShortID] = record.OriginalURL
	r.advancePast(record.ShortID)

	return nil
}

func (r *urlRepository) Update(ctx context.Context, record *domain.URLRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	oldID, ok := r.byURL[record.OriginalURL]
	if !ok {
		return repository.ErrRecordNotFound
	}
	if oldID == record.ShortID {
		return nil
	}
	if _, taken := r.byID[record.ShortID]; taken {
		return repository.ErrDuplicateShortID
	}

	delete(r.byID, oldID)
	r.byURL[record.OriginalURL] = record.ShortID
	r.byID[record.ShortID] = record.OriginalURL
	r.advancePast(record.ShortID)

	return nil
}

// NextShortID skips ids that were inserted explicitly, e.g. by the seed step.
func (r *urlRepository) NextShortID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.nextID == math.MaxInt64 {
			return 0, repository.ErrSequenceExhausted
		}
		id := r.nextID
		r.nextID++
		if _, taken := r.byID[id]; !taken {
			return id, nil
		}
	}
}

func (r *urlRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op; the maps are reclaimed with the repository.
func (r *urlRepository) Close() error {
	return nil
}

// advancePast must be called with mu held.
// The counter parks at math.MaxInt64, which NextShortID treats as exhausted.
func (r *urlRepository) advancePast(id int64) {
	switch {
	case id == math.MaxInt64:
		r.nextID = math.MaxInt64
	case id >= r.nextID:
		r.nextID = id + 1
	}
}

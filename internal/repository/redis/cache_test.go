package redis

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"fcc-shorturl/internal/domain"
	"fcc-shorturl/internal/repository"
	"fcc-shorturl/internal/repository/memory"
	"fcc-shorturl/internal/repository/repotest"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ==================== FAKES ====================

// fakeClient is an in-memory stand-in for *redis.Client
type fakeClient struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failAll error
	closed  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll != nil {
		return redis.NewStringResult("", f.failAll)
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll != nil {
		return redis.NewStatusResult("", f.failAll)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll != nil {
		return redis.NewIntResult(0, f.failAll)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

// countingRepository counts lookups that reach the wrapped repository
type countingRepository struct {
	repository.URLRepository
	mu      sync.Mutex
	byIDHit int
}

func (c *countingRepository) FindByShortID(ctx context.Context, shortID int64) (*domain.URLRecord, bool, error) {
	c.mu.Lock()
	c.byIDHit++
	c.mu.Unlock()
	return c.URLRepository.FindByShortID(ctx, shortID)
}

// ==================== HELPER FUNCTIONS ====================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupCachedRepository(t *testing.T) (*CachedRepository, *countingRepository, *fakeClient) {
	t.Helper()

	inner := &countingRepository{URLRepository: memory.NewURLRepository()}
	client := newFakeClient()
	return NewCachedRepository(inner, client, time.Hour, testLogger()), inner, client
}

// ==================== TESTS ====================

func TestCachedRepository_Contract(t *testing.T) {
	suite.Run(t, &repotest.URLRepositorySuite{
		NewRepository: func() repository.URLRepository {
			return NewCachedRepository(memory.NewURLRepository(), newFakeClient(), time.Minute, testLogger())
		},
	})
}

func TestFindByShortID_ReadThrough(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cached, inner, client := setupCachedRepository(t)
	require.NoError(t, cached.Insert(ctx, domain.NewURLRecord("https://freecodecamp.org", 1)))

	// Act
	first, found, err := cached.FindByShortID(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)

	second, found, err := cached.FindByShortID(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)

	// Assert
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.byIDHit, "second lookup should be served from cache")
	assert.Contains(t, client.data, "shorturl:id:1")
	assert.Equal(t, time.Hour, client.ttls["shorturl:id:1"])
}

func TestFindByShortID_MissIsNotCached(t *testing.T) {
	ctx := context.Background()
	cached, inner, client := setupCachedRepository(t)

	_, found, err := cached.FindByShortID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, _ = cached.FindByShortID(ctx, 42)
	assert.Equal(t, 2, inner.byIDHit)
	assert.Empty(t, client.data)
}

func TestFindByShortID_CacheDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	cached, inner, client := setupCachedRepository(t)
	require.NoError(t, cached.Insert(ctx, domain.NewURLRecord("https://example.com", 3)))

	client.failAll = errors.New("connection refused")

	record, found, err := cached.FindByShortID(ctx, 3)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://example.com", record.OriginalURL)
	assert.Equal(t, 1, inner.byIDHit)
}

func TestFindByShortID_CorruptEntryFallsThrough(t *testing.T) {
	ctx := context.Background()
	cached, inner, client := setupCachedRepository(t)
	require.NoError(t, cached.Insert(ctx, domain.NewURLRecord("https://example.com", 3)))
	client.data["shorturl:id:3"] = "{not json"

	record, found, err := cached.FindByShortID(ctx, 3)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://example.com", record.OriginalURL)
	assert.Equal(t, 1, inner.byIDHit)
}

func TestUpdate_InvalidatesOldAndNewIDs(t *testing.T) {
	ctx := context.Background()
	cached, _, client := setupCachedRepository(t)

	require.NoError(t, cached.Insert(ctx, domain.NewURLRecord("https://freecodecamp.org", 7)))
	_, _, err := cached.FindByShortID(ctx, 7)
	require.NoError(t, err)
	require.Contains(t, client.data, "shorturl:id:7")

	require.NoError(t, cached.Update(ctx, domain.NewURLRecord("https://freecodecamp.org", 1)))

	assert.NotContains(t, client.data, "shorturl:id:7")
	_, found, err := cached.FindByShortID(ctx, 7)
	require.NoError(t, err)
	assert.False(t, found)

	record, found, err := cached.FindByShortID(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://freecodecamp.org", record.OriginalURL)
}

func TestClose_ClosesClient(t *testing.T) {
	cached, _, client := setupCachedRepository(t)

	require.NoError(t, cached.Close())
	assert.True(t, client.closed)
}

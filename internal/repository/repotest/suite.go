// Package repotest holds the behaviour every repository.URLRepository
// implementation must share. Backends run it from their own tests.
package repotest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"fcc-shorturl/internal/domain"
	"fcc-shorturl/internal/repository"

	"github.com/stretchr/testify/suite"
)

// URLRepositorySuite exercises a fresh repository per test.
// NewRepository must return an empty store.
type URLRepositorySuite struct {
	suite.Suite
	NewRepository func() repository.URLRepository

	repo repository.URLRepository
	ctx  context.Context
}

func (s *URLRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.NewRepository()
}

func (s *URLRepositorySuite) TearDownTest() {
	s.NoError(s.repo.Close())
}

func (s *URLRepositorySuite) TestFindOnEmptyStore() {
	rec, found, err := s.repo.FindByOriginalURL(s.ctx, "https://example.com")
	s.NoError(err)
	s.False(found)
	s.Nil(rec)

	rec, found, err = s.repo.FindByShortID(s.ctx, 1)
	s.NoError(err)
	s.False(found)
	s.Nil(rec)
}

func (s *URLRepositorySuite) TestInsertAndFind() {
	s.Require().NoError(s.repo.Insert(s.ctx, domain.NewURLRecord("https://freecodecamp.org", 1)))

	rec, found, err := s.repo.FindByOriginalURL(s.ctx, "https://freecodecamp.org")
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(int64(1), rec.ShortID)

	rec, found, err = s.repo.FindByShortID(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("https://freecodecamp.org", rec.OriginalURL)
}

func (s *URLRepositorySuite) TestInsertZeroID() {
	s.Require().NoError(s.repo.Insert(s.ctx, domain.NewURLRecord("https://zero.example.com", 0)))

	rec, found, err := s.repo.FindByShortID(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("https://zero.example.com", rec.OriginalURL)
}

func (s *URLRepositorySuite) TestInsertDuplicateOriginalURL() {
	s.Require().NoError(s.repo.Insert(s.ctx, domain.NewURLRecord("https://example.com", 5)))

	err := s.repo.Insert(s.ctx, domain.NewURLRecord("https://example.com", 6))
	s.ErrorIs(err, repository.ErrDuplicateOriginalURL)

	_, found, err := s.repo.FindByShortID(s.ctx, 6)
	s.NoError(err)
	s.False(found)
}

func (s *URLRepositorySuite) TestInsertDuplicateShortID() {
	s.Require().NoError(s.repo.Insert(s.ctx, domain.NewURLRecord("https://a.example.com", 7)))

	err := s.repo.Insert(s.ctx, domain.NewURLRecord("https://b.example.com", 7))
	s.ErrorIs(err, repository.ErrDuplicateShortID)

	_, found, err := s.repo.FindByOriginalURL(s.ctx, "https://b.example.com")
	s.NoError(err)
	s.False(found)
}

func (s *URLRepositorySuite) TestUpdate() {
	s.Require().NoError(s.repo.Insert(s.ctx, domain.NewURLRecord("https://freecodecamp.org", 9)))

	s.Require().NoError(s.repo.Update(s.ctx, domain.NewURLRecord("https://freecodecamp.org", 1)))

	rec, found, err := s.repo.FindByShortID(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("https://freecodecamp.org", rec.OriginalURL)

	_, found, err = s.repo.FindByShortID(s.ctx, 9)
	s.NoError(err)
	s.False(found, "old id must be released")
}

func (s *URLRepositorySuite) TestUpdateMissing() {
	err := s.repo.Update(s.ctx, domain.NewURLRecord("https://missing.example.com", 1))
	s.ErrorIs(err, repository.ErrRecordNotFound)
}

func (s *URLRepositorySuite) TestUpdateOntoTakenID() {
	s.Require().NoError(s.repo.Insert(s.ctx, domain.NewURLRecord("https://a.example.com", 1)))
	s.Require().NoError(s.repo.Insert(s.ctx, domain.NewURLRecord("https://b.example.com", 2)))

	err := s.repo.Update(s.ctx, domain.NewURLRecord("https://b.example.com", 1))
	s.ErrorIs(err, repository.ErrDuplicateShortID)
}

func (s *URLRepositorySuite) TestNextShortIDIsMonotonic() {
	prev, err := s.repo.NextShortID(s.ctx)
	s.Require().NoError(err)

	for i := 0; i < 10; i++ {
		next, err := s.repo.NextShortID(s.ctx)
		s.Require().NoError(err)
		s.Greater(next, prev)
		prev = next
	}
}

func (s *URLRepositorySuite) TestNextShortIDConcurrentUnique() {
	const workers = 20

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{})
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.repo.NextShortID(s.ctx)
			if err != nil {
				return
			}
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Len(ids, workers)
}

func (s *URLRepositorySuite) TestConcurrentInsertSameURL() {
	const workers = 10

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.repo.Insert(s.ctx, domain.NewURLRecord("https://race.example.com", int64(100+i)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, repository.ErrDuplicateOriginalURL, fmt.Sprintf("unexpected error: %v", err))
	}
	s.Equal(1, succeeded)
}

func (s *URLRepositorySuite) TestNextShortIDAfterMaxInsert() {
	s.Require().NoError(s.repo.Insert(s.ctx, domain.NewURLRecord("https://max.example.com", math.MaxInt64)))

	id, err := s.repo.NextShortID(s.ctx)
	if err != nil {
		s.ErrorIs(err, repository.ErrSequenceExhausted)
		return
	}
	s.GreaterOrEqual(id, int64(0))
	s.NotEqual(int64(math.MaxInt64), id)
}

func (s *URLRepositorySuite) TestPing() {
	s.NoError(s.repo.Ping(s.ctx))
}

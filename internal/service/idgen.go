package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"fcc-shorturl/internal/repository"
)

// ID generation strategies
const (
	StrategySequence = "sequence"
	StrategyRandom   = "random"
)

// DefaultRandomMax is the upper bound (inclusive) of the legacy random id range
const DefaultRandomMax = 99999

var ErrUnknownStrategy = errors.New("unknown id strategy")

// IDGenerator proposes a candidate short id.
// Candidates may collide; the store's uniqueness constraint is the final arbiter.
type IDGenerator interface {
	NextID(ctx context.Context) (int64, error)
}

// SequenceGenerator takes ids from the store-owned monotonic sequence
type SequenceGenerator struct {
	repo repository.URLRepository
}

func NewSequenceGenerator(repo repository.URLRepository) *SequenceGenerator {
	return &SequenceGenerator{repo: repo}
}

func (g *SequenceGenerator) NextID(ctx context.Context) (int64, error) {
	return g.repo.NextShortID(ctx)
}

// RandomGenerator draws uniformly from [0, max].
// Collisions grow likely as the range fills up; callers retry a bounded number of times.
type RandomGenerator struct {
	max int64
}

func NewRandomGenerator(max int64) *RandomGenerator {
	if max <= 0 {
		max = DefaultRandomMax
	}
	return &RandomGenerator{max: max}
}

func (g *RandomGenerator) NextID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return rand.Int63n(g.max + 1), nil
}

// NewIDGenerator builds the generator for a configured strategy name
func NewIDGenerator(strategy string, repo repository.URLRepository, randomMax int64) (IDGenerator, error) {
	switch strategy {
	case StrategySequence, "":
		return NewSequenceGenerator(repo), nil
	case StrategyRandom:
		return NewRandomGenerator(randomMax), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

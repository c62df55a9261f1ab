package service

import (
	"context"
	"fmt"
)

// ClickHandlerService applies consumed click events to both counters.
// The two increments are independent, not a transaction: a crash between
// them leaves the cache lagging until the next miss repopulates it. The
// handler is also not idempotent, so a redelivered event counts the same
// click twice; with at-least-once delivery that overcount is accepted.
type ClickHandlerService struct {
	repo  URLRepository
	cache CacheStore
}

func NewClickHandlerService(repo URLRepository, cache CacheStore) *ClickHandlerService {
	return &ClickHandlerService{
		repo:  repo,
		cache: cache,
	}
}

// HandleClick increments the durable counter and then the cached one.
// An unknown code is a silent no-op on both paths.
func (s *ClickHandlerService) HandleClick(ctx context.Context, code string) error {
	const op = "service.ClickHandlerService.HandleClick"

	if err := s.repo.IncrementClickCount(ctx, code); err != nil {
		return fmt.Errorf("%s: failed to increment durable click count: %w", op, err)
	}

	if _, err := s.cache.IncrementClickCount(ctx, code); err != nil {
		return fmt.Errorf("%s: failed to increment cached click count: %w", op, err)
	}

	return nil
}

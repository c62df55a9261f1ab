package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avbelov/url-shortener/internal/models"
)

// StatsService is the read-only side of the shortener. It follows the
// same cache-aside shape as resolution but never emits click events and
// never writes anything durable.
type StatsService struct {
	repo     URLRepository
	cache    CacheStore
	logger   *slog.Logger
	cacheTTL time.Duration
}

func NewStatsService(repo URLRepository, cache CacheStore, logger *slog.Logger, cacheTTL time.Duration) *StatsService {
	return &StatsService{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// GetStats returns the creation time and click count for code, surfacing
// database.ErrURLNotFound when the code exists nowhere.
func (s *StatsService) GetStats(ctx context.Context, code string) (*models.URLStats, error) {
	const op = "service.StatsService.GetStats"

	entry, err := s.cache.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to look up cache: %w", op, err)
	}

	if entry != nil {
		return &models.URLStats{
			CreatedAt:  entry.CreatedAt,
			ClickCount: entry.ClickCount,
		}, nil
	}

	url, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	if err := s.cache.Set(ctx, code, cacheEntryFromURL(url), s.cacheTTL); err != nil {
		s.logger.Warn("failed to populate cache",
			slog.String("code", code),
			slog.Any("err", err),
		)
	}

	return &models.URLStats{
		CreatedAt:  url.CreatedAt,
		ClickCount: url.ClickCount,
	}, nil
}

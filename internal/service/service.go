// Package service holds the orchestration logic of the shortener: the
// cache-aside resolution path, read-only stats, and the click handler
// that the queue consumer drives.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avbelov/url-shortener/internal/models"
	"github.com/avbelov/url-shortener/internal/tracing"
	"github.com/avbelov/url-shortener/pkg/shortcode"
)

// URLRepository is the durable store as seen by the services. The
// implementation injected here is expected to already run under the
// resilience pipeline.
type URLRepository interface {
	Create(ctx context.Context, code, originalURL string) (*models.URL, error)
	GetByCode(ctx context.Context, code string) (*models.URL, error)
	IncrementClickCount(ctx context.Context, code string) error
}

// CacheStore is the shared cache as seen by the services.
type CacheStore interface {
	Get(ctx context.Context, code string) (*models.CacheEntry, error)
	Set(ctx context.Context, code string, entry *models.CacheEntry, ttl time.Duration) error
	IncrementClickCount(ctx context.Context, code string) (int64, error)
}

// ClickProducer publishes click events for resolved reads.
type ClickProducer interface {
	SendClick(ctx context.Context, code string) error
}

// ShortenResult is what a successful shorten request returns.
type ShortenResult struct {
	Code     string
	ShortURL string
}

func cacheEntryFromURL(url *models.URL) *models.CacheEntry {
	return &models.CacheEntry{
		OriginalURL: url.OriginalURL,
		ClickCount:  url.ClickCount,
		CreatedAt:   url.CreatedAt,
	}
}

// URLService creates short URLs and resolves them back, emitting a click
// event for every resolved read.
type URLService struct {
	repo         URLRepository
	cache        CacheStore
	producer     ClickProducer
	generateCode shortcode.Generator
	tracer       *tracing.Tracer
	logger       *slog.Logger
	cacheTTL     time.Duration
}

func NewURLService(
	repo URLRepository,
	cache CacheStore,
	producer ClickProducer,
	generateCode shortcode.Generator,
	tracer *tracing.Tracer,
	logger *slog.Logger,
	cacheTTL time.Duration,
) *URLService {
	return &URLService{
		repo:         repo,
		cache:        cache,
		producer:     producer,
		generateCode: generateCode,
		tracer:       tracer,
		logger:       logger,
		cacheTTL:     cacheTTL,
	}
}

// CreateShortURL persists a new record under a freshly generated code and
// warms the cache with it, so the very first resolve is already a hit.
func (s *URLService) CreateShortURL(ctx context.Context, baseURL, originalURL string) (*ShortenResult, error) {
	const op = "service.URLService.CreateShortURL"

	code, err := s.generateCode()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	url, err := s.repo.Create(ctx, code, originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create short url: %w", op, err)
	}

	if err := s.cache.Set(ctx, url.Code, cacheEntryFromURL(url), s.cacheTTL); err != nil {
		// The record is durable already; the next resolve repopulates
		// the cache from the database.
		s.logger.Warn("failed to cache new short url",
			slog.String("code", url.Code),
			slog.Any("err", err),
		)
	}

	return &ShortenResult{
		Code:     url.Code,
		ShortURL: fmt.Sprintf("%s/%s", baseURL, url.Code),
	}, nil
}

// ResolveShortCode returns the original URL for code using the cache-aside
// read path: cache first, durable store on miss, cache populated after a
// successful fallback. A click event is emitted for every successful
// resolve; publish failures are logged and swallowed so analytics can
// never break redirects. An unknown code surfaces database.ErrURLNotFound
// without emitting an event or touching the cache.
func (s *URLService) ResolveShortCode(ctx context.Context, code string) (string, error) {
	const op = "service.URLService.ResolveShortCode"

	var originalURL string

	err := s.tracer.Trace(ctx, "ResolveShortCode", tracing.App, func(ctx context.Context) error {
		var entry *models.CacheEntry

		err := s.tracer.Trace(ctx, "cache lookup", tracing.Cache, func(ctx context.Context) error {
			var err error
			entry, err = s.cache.Get(ctx, code)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s: failed to look up cache: %w", op, err)
		}

		if entry != nil {
			s.emitClick(ctx, code)
			originalURL = entry.OriginalURL
			return nil
		}

		var url *models.URL

		err = s.tracer.Trace(ctx, "db fetch", tracing.Database, func(ctx context.Context) error {
			var err error
			url, err = s.repo.GetByCode(ctx, code)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s: failed to resolve short code: %w", op, err)
		}

		s.emitClick(ctx, code)

		err = s.tracer.Trace(ctx, "cache set", tracing.Cache, func(ctx context.Context) error {
			return s.cache.Set(ctx, code, cacheEntryFromURL(url), s.cacheTTL)
		})
		if err != nil {
			s.logger.Warn("failed to populate cache",
				slog.String("code", code),
				slog.Any("err", err),
			)
		}

		originalURL = url.OriginalURL
		return nil
	})
	if err != nil {
		return "", err
	}

	return originalURL, nil
}

func (s *URLService) emitClick(ctx context.Context, code string) {
	err := s.tracer.Trace(ctx, "send click", tracing.Messaging, func(ctx context.Context) error {
		return s.producer.SendClick(ctx, code)
	})
	if err != nil {
		s.logger.Error("failed to publish click event",
			slog.String("code", code),
			slog.Any("err", err),
		)
	}
}

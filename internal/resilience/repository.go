package resilience

import (
	"context"

	"github.com/avbelov/url-shortener/internal/models"
)

// Repository is the slice of the durable store the decorator guards.
type Repository interface {
	Create(ctx context.Context, code, originalURL string) (*models.URL, error)
	GetByCode(ctx context.Context, code string) (*models.URL, error)
	IncrementClickCount(ctx context.Context, code string) error
}

// URLRepository decorates a pipeline-agnostic repository so that every
// durable-store operation runs under retry and the circuit breaker.
type URLRepository struct {
	inner    Repository
	pipeline *Pipeline
}

func NewURLRepository(inner Repository, pipeline *Pipeline) *URLRepository {
	return &URLRepository{
		inner:    inner,
		pipeline: pipeline,
	}
}

func (r *URLRepository) Create(ctx context.Context, code, originalURL string) (*models.URL, error) {
	var url *models.URL

	err := r.pipeline.Execute(ctx, "repository.Create", func() error {
		var err error
		url, err = r.inner.Create(ctx, code, originalURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	return url, nil
}

func (r *URLRepository) GetByCode(ctx context.Context, code string) (*models.URL, error) {
	var url *models.URL

	err := r.pipeline.Execute(ctx, "repository.GetByCode", func() error {
		var err error
		url, err = r.inner.GetByCode(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}

	return url, nil
}

func (r *URLRepository) IncrementClickCount(ctx context.Context, code string) error {
	return r.pipeline.Execute(ctx, "repository.IncrementClickCount", func() error {
		return r.inner.IncrementClickCount(ctx, code)
	})
}

package resilience

import (
	"context"
	"testing"

	"github.com/avbelov/url-shortener/internal/database"
	"github.com/avbelov/url-shortener/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (r *MockRepository) Create(ctx context.Context, code, originalURL string) (*models.URL, error) {
	args := r.Called(ctx, code, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockRepository) GetByCode(ctx context.Context, code string) (*models.URL, error) {
	args := r.Called(ctx, code)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockRepository) IncrementClickCount(ctx context.Context, code string) error {
	args := r.Called(ctx, code)
	return args.Error(0)
}

func TestURLRepository(t *testing.T) {
	t.Run("passes results through", func(t *testing.T) {
		inner := new(MockRepository)
		repo := NewURLRepository(inner, New("test", testConfig(), testLogger()))

		wantURL := &models.URL{Code: "abc123", OriginalURL: "https://example.com"}

		inner.On("Create", context.TODO(), "abc123", "https://example.com").
			Once().
			Return(wantURL, nil)

		url, err := repo.Create(context.TODO(), "abc123", "https://example.com")

		assert.NoError(t, err)
		assert.Equal(t, wantURL, url)
		inner.AssertExpectations(t)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		inner := new(MockRepository)
		repo := NewURLRepository(inner, New("test", testConfig(), testLogger()))

		wantURL := &models.URL{Code: "abc123", OriginalURL: "https://example.com"}

		inner.On("GetByCode", context.TODO(), "abc123").
			Once().
			Return(nil, errTransient)
		inner.On("GetByCode", context.TODO(), "abc123").
			Once().
			Return(wantURL, nil)

		url, err := repo.GetByCode(context.TODO(), "abc123")

		assert.NoError(t, err)
		assert.Equal(t, wantURL, url)
		inner.AssertExpectations(t)
	})

	t.Run("not found is surfaced without retry", func(t *testing.T) {
		inner := new(MockRepository)
		repo := NewURLRepository(inner, New("test", testConfig(), testLogger()))

		inner.On("GetByCode", context.TODO(), "missing").
			Once().
			Return(nil, database.ErrURLNotFound)

		url, err := repo.GetByCode(context.TODO(), "missing")

		assert.ErrorIs(t, err, database.ErrURLNotFound)
		assert.Nil(t, url)
		inner.AssertExpectations(t)
	})

	t.Run("increment errors propagate", func(t *testing.T) {
		inner := new(MockRepository)
		cfg := testConfig()
		cfg.MaxAttempts = 1
		repo := NewURLRepository(inner, New("test", cfg, testLogger()))

		inner.On("IncrementClickCount", context.TODO(), "abc123").
			Once().
			Return(errTransient)

		err := repo.IncrementClickCount(context.TODO(), "abc123")

		assert.ErrorIs(t, err, errTransient)
		inner.AssertExpectations(t)
	})
}

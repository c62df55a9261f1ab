package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avbelov/url-shortener/internal/database"
	"github.com/avbelov/url-shortener/internal/models"
	"github.com/jmoiron/sqlx"
)

type urlRecord struct {
	Code        string    `db:"code"`
	OriginalURL string    `db:"original_url"`
	ClickCount  int64     `db:"click_count"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	return &models.URL{
		Code:        r.Code,
		OriginalURL: r.OriginalURL,
		ClickCount:  r.ClickCount,
		CreatedAt:   r.CreatedAt,
	}
}

// URLRepository provides access to short URL records stored in PostgreSQL.
// It knows nothing about retries or circuit breaking; callers are expected
// to wrap it with the resilience pipeline.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

func (r *URLRepository) Create(ctx context.Context, code, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(code, original_url)
		VALUES ($1, $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, code, originalURL)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByCode(ctx context.Context, code string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByCode"

	rec := new(urlRecord)
	query := `SELECT * FROM urls WHERE code = $1`

	err := r.db.GetContext(ctx, rec, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// IncrementClickCount bumps the click counter for code inside a single
// transaction. A missing code is a silent no-op.
func (r *URLRepository) IncrementClickCount(ctx context.Context, code string) error {
	const op = "database.postgres.URLRepository.IncrementClickCount"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	var count int64
	query := `SELECT click_count FROM urls WHERE code = $1 FOR UPDATE`

	err = tx.GetContext(ctx, &count, query, code)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%s: tx err: %v, rb err: %w", op, err, rbErr)
		}

		if err == sql.ErrNoRows {
			return nil
		}

		return fmt.Errorf("%s: failed to read url record: %w", op, err)
	}

	query = `UPDATE urls SET click_count = $1 WHERE code = $2`

	if _, err := tx.ExecContext(ctx, query, count+1, code); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%s: tx err: %v, rb err: %w", op, err, rbErr)
		}

		return fmt.Errorf("%s: failed to update url record: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

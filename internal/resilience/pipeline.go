// Package resilience wraps durable-store operations with retry and a
// circuit breaker. Transient failures are retried with exponential
// backoff; a failing dependency trips the breaker and callers fail fast
// until the break duration elapses.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avbelov/url-shortener/internal/database"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without touching the underlying store while
// the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type Config struct {
	// MaxAttempts is the total number of tries per operation, the first
	// call included.
	MaxAttempts uint64
	// InitialInterval is the backoff delay before the first retry.
	InitialInterval time.Duration
	// FailureRatio is the failure fraction at which the breaker opens.
	FailureRatio float64
	// MinimumSamples is the number of calls that must be observed within
	// the sampling window before the ratio is evaluated.
	MinimumSamples uint32
	// SamplingWindow is the rolling interval over which calls are counted.
	SamplingWindow time.Duration
	// BreakDuration is how long the breaker stays open before allowing
	// a single trial call.
	BreakDuration time.Duration
}

var defaultConfig = Config{
	MaxAttempts:     3,
	InitialInterval: 200 * time.Millisecond,
	FailureRatio:    0.5,
	MinimumSamples:  10,
	SamplingWindow:  30 * time.Second,
	BreakDuration:   15 * time.Second,
}

func (cfg *Config) setDefaults() {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultConfig.MaxAttempts
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = defaultConfig.InitialInterval
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = defaultConfig.FailureRatio
	}
	if cfg.MinimumSamples == 0 {
		cfg.MinimumSamples = defaultConfig.MinimumSamples
	}
	if cfg.SamplingWindow == 0 {
		cfg.SamplingWindow = defaultConfig.SamplingWindow
	}
	if cfg.BreakDuration == 0 {
		cfg.BreakDuration = defaultConfig.BreakDuration
	}
}

// Pipeline executes operations under a shared circuit breaker with
// per-operation retries. One pipeline instance guards one downstream
// dependency.
type Pipeline struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func New(name string, cfg Config, logger *slog.Logger) *Pipeline {
	cfg.setDefaults()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.SamplingWindow,
		Timeout:     cfg.BreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinimumSamples && ratio >= cfg.FailureRatio
		},
		// Business errors pass through the breaker without counting
		// against the dependency's health.
		IsSuccessful: func(err error) bool {
			return err == nil || isPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Pipeline{
		cfg:     cfg,
		breaker: breaker,
		logger:  logger,
	}
}

// isPermanent reports whether err is a business outcome that retrying can
// never fix.
func isPermanent(err error) bool {
	return errors.Is(err, database.ErrCodeExists) ||
		errors.Is(err, database.ErrURLNotFound)
}

// Execute runs fn under the pipeline. Transient errors are retried up to
// MaxAttempts with exponential backoff; permanent errors and an open
// circuit are surfaced immediately.
func (p *Pipeline) Execute(ctx context.Context, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.InitialInterval

	attempt := 0
	operation := func() error {
		attempt++

		_, err := p.breaker.Execute(func() (any, error) {
			return nil, fn()
		})
		if err == nil {
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%s: %w", op, ErrCircuitOpen))
		}

		if isPermanent(err) {
			return backoff.Permanent(err)
		}

		p.logger.Warn("transient failure, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Any("err", err),
		)

		return err
	}

	return backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(bo, p.cfg.MaxAttempts-1), ctx))
}

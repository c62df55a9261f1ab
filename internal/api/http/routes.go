package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/avbelov/url-shortener/internal/models"
	"github.com/avbelov/url-shortener/internal/ratelimit"
	"github.com/avbelov/url-shortener/internal/service"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// CreateShortURL registers the original URL under a freshly generated short code.
	// It returns the code together with the full short URL built from baseURL.
	CreateShortURL(ctx context.Context, baseURL, originalURL string) (*service.ShortenResult, error)

	// ResolveShortCode returns the original URL registered under the short code.
	// It returns database.ErrURLNotFound if the code is unknown.
	ResolveShortCode(ctx context.Context, code string) (string, error)
}

// StatsService defines the interface for the read-only statistics endpoint.
type StatsService interface {
	// GetStats returns the creation time and click count of the short code.
	GetStats(ctx context.Context, code string) (*models.URLStats, error)
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
//
// The redirect route lives at the root so short links stay short; everything else is
// versioned under /api/v1. A nil limiter disables rate limiting, which the tests rely on.
func NewRouter(logger *httplog.Logger, urlSvc URLService, statsSvc StatsService, limiter *ratelimit.Limiter, baseURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	if limiter != nil {
		r.Use(ratelimit.Middleware(limiter, logger.Logger))
	}

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/shorten", func(r chi.Router) {
			r.Post("/", handleShortenURL(urlSvc, validate, baseURL))

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/stats", handleGetURLStats(statsSvc))
			})
		})
	})

	r.Get("/{shortCode}", handleRedirect(urlSvc))

	return r
}

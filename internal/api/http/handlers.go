package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/avbelov/url-shortener/internal/database"
	"github.com/avbelov/url-shortener/internal/models"
	"github.com/avbelov/url-shortener/internal/resilience"
	"github.com/avbelov/url-shortener/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// shortenRequest represents the request payload for creating a shortened URL.
type shortenRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// shortenResponse represents the response payload for a successful shorten operation.
type shortenResponse struct {
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
}

// statsResponse represents the response payload for the statistics endpoint.
type statsResponse struct {
	CreatedAt  time.Time `json:"created_at"`
	ClickCount int64     `json:"click_count"`
}

func toStatsResponse(stats *models.URLStats) statsResponse {
	return statsResponse{
		CreatedAt:  stats.CreatedAt,
		ClickCount: stats.ClickCount,
	}
}

// handleShortenURL handles POST requests to shorten a URL.
//
// The request must contain a valid URL. The handler validates the input, calls the URL shortening
// service, and returns the generated short code together with the full short URL.
func handleShortenURL(svc URLService, validate *validator.Validate, baseURL string) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		result, err := svc.CreateShortURL(r.Context(), baseURL, req.URL)
		if err != nil {
			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			renderServerError(w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, shortenResponse{
			ShortCode: result.Code,
			ShortURL:  result.ShortURL,
		}))
	}
}

// handleRedirect handles GET requests on short links.
//
// Known codes answer with a 302 redirect to the original URL so browsers keep
// re-resolving the link and every visit is counted. Unknown codes return a 404.
func handleRedirect(svc URLService) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		originalURL, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			renderServerError(w, r, err)
			return
		}

		http.Redirect(w, r, originalURL, http.StatusFound)
	}
}

// handleGetURLStats handles GET requests to retrieve the statistics of the URL.
//
// The handler returns the creation time and click count of the URL associated with
// the short code, or a 404 error if the short code doesn't exist.
func handleGetURLStats(svc StatsService) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"
	const successMsg = "The URL stats were successfully retrieved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		stats, err := svc.GetStats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, database.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			renderServerError(w, r, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toStatsResponse(stats)))
	}
}

// renderServerError maps infrastructure failures to a response. An open circuit
// breaker answers 503 so clients know the outage is temporary.
func renderServerError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.ServerErrorResponse)
		return
	}

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, response.ServerErrorResponse)
}

package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/avbelov/url-shortener/internal/database"
	"github.com/avbelov/url-shortener/internal/models"
	"github.com/avbelov/url-shortener/internal/resilience"
	"github.com/avbelov/url-shortener/internal/service"
)

const testBaseURL = "http://short.ly"

type MockURLService struct {
	mock.Mock
}

func (s *MockURLService) CreateShortURL(ctx context.Context, baseURL, originalURL string) (*service.ShortenResult, error) {
	args := s.Called(ctx, baseURL, originalURL)
	result, _ := args.Get(0).(*service.ShortenResult)
	return result, args.Error(1)
}

func (s *MockURLService) ResolveShortCode(ctx context.Context, code string) (string, error) {
	args := s.Called(ctx, code)
	return args.String(0), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (s *MockStatsService) GetStats(ctx context.Context, code string) (*models.URLStats, error) {
	args := s.Called(ctx, code)
	stats, _ := args.Get(0).(*models.URLStats)
	return stats, args.Error(1)
}

type HandlersTestSuite struct {
	suite.Suite
	logger       *httplog.Logger
	urlSvcMock   *MockURLService
	statsSvcMock *MockStatsService
	server       *httptest.Server
	e            *httpexpect.Expect
}

func (suite *HandlersTestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *HandlersTestSuite) SetupSubTest() {
	suite.urlSvcMock = new(MockURLService)
	suite.statsSvcMock = new(MockStatsService)

	router := NewRouter(suite.logger, suite.urlSvcMock, suite.statsSvcMock, nil, testBaseURL)
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(func() {
		suite.server.Close()
	})

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *HandlersTestSuite) TearDownSubTest() {
	suite.urlSvcMock.AssertExpectations(suite.T())
	suite.statsSvcMock.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) TestPing() {
	const path = "/api/v1/ping"

	suite.Run("success", func() {
		suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong\n")
	})
}

func (suite *HandlersTestSuite) TestShortenURL() {
	const path = "/api/v1/shorten"

	suite.Run("empty request body", func() {
		resp := suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("invalid request body", func() {
		resp := suite.e.POST(path).
			WithJSON("invalid body").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("validation error", func() {
		resp := suite.e.POST(path).
			WithJSON(map[string]string{"url": "invalid url"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
		resp.ContainsKey("details")
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("CreateShortURL", mock.Anything, testBaseURL, "https://example.com").
			Once().
			Return(nil, errors.New("unknown error"))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://example.com"}).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("circuit open", func() {
		suite.urlSvcMock.
			On("CreateShortURL", mock.Anything, testBaseURL, "https://example.com").
			Once().
			Return(nil, fmt.Errorf("service.URLService.CreateShortURL: %w", resilience.ErrCircuitOpen))

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://example.com"}).
			Expect().
			Status(http.StatusServiceUnavailable).
			JSON().Object()

		resp.HasValue("status", "error")
	})

	suite.Run("success", func() {
		suite.urlSvcMock.
			On("CreateShortURL", mock.Anything, testBaseURL, "https://example.com").
			Once().
			Return(&service.ShortenResult{
				Code:     "abc123",
				ShortURL: testBaseURL + "/abc123",
			}, nil)

		resp := suite.e.POST(path).
			WithJSON(map[string]string{"url": "https://example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("status", "success")
		resp.ContainsKey("message")

		data := resp.Value("data").Object()
		data.HasValue("short_code", "abc123")
		data.HasValue("short_url", testBaseURL+"/abc123")
	})
}

func (suite *HandlersTestSuite) TestRedirect() {
	const path = "/abc123"

	suite.Run("short code not found", func() {
		suite.urlSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return("", database.ErrURLNotFound)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("server error", func() {
		suite.urlSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return("", errors.New("unknown error"))

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
	})

	suite.Run("circuit open", func() {
		suite.urlSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return("", fmt.Errorf("service.URLService.ResolveShortCode: %w", resilience.ErrCircuitOpen))

		suite.e.GET(path).
			Expect().
			Status(http.StatusServiceUnavailable)
	})

	suite.Run("success", func() {
		suite.urlSvcMock.
			On("ResolveShortCode", mock.Anything, "abc123").
			Once().
			Return("https://example.com", nil)

		suite.e.GET(path).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com")
	})
}

func (suite *HandlersTestSuite) TestGetURLStats() {
	const path = "/api/v1/shorten/abc123/stats"

	suite.Run("short code not found", func() {
		suite.statsSvcMock.
			On("GetStats", mock.Anything, "abc123").
			Once().
			Return(nil, database.ErrURLNotFound)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("server error", func() {
		suite.statsSvcMock.
			On("GetStats", mock.Anything, "abc123").
			Once().
			Return(nil, errors.New("unknown error"))

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusInternalServerError).
			JSON().Object()

		resp.HasValue("status", "error")
	})

	suite.Run("success", func() {
		createdAt := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

		suite.statsSvcMock.
			On("GetStats", mock.Anything, "abc123").
			Once().
			Return(&models.URLStats{
				CreatedAt:  createdAt,
				ClickCount: 42,
			}, nil)

		resp := suite.e.GET(path).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("status", "success")

		data := resp.Value("data").Object()
		data.HasValue("click_count", 42)
		data.HasValue("created_at", createdAt.Format(time.RFC3339))
	})
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

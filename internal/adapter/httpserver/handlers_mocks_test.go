package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/config"
)

const testSecret = "test-moderator-secret-0123456789"

// --- Mock implementations ---

type mockAppService struct {
	createPollFn    func(ctx context.Context, draft *domain.Poll) (*domain.Poll, error)
	getViewFn       func(ctx context.Context, sessionID, participant string) (*domain.PollView, error)
	respondPollFn   func(ctx context.Context, sessionID, participant string, responseIndex int) (*domain.Poll, error)
	closePollFn     func(ctx context.Context, sessionID string) (*domain.Poll, error)
	deletePollFn    func(ctx context.Context, sessionID string) error
	exportResultsFn func(ctx context.Context, sessionID string) (*domain.PollResults, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockAppService) CreatePoll(ctx context.Context, draft *domain.Poll) (*domain.Poll, error) {
	if m.createPollFn != nil {
		return m.createPollFn(ctx, draft)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) GetView(ctx context.Context, sessionID, participant string) (*domain.PollView, error) {
	if m.getViewFn != nil {
		return m.getViewFn(ctx, sessionID, participant)
	}
	return nil, domain.ErrPollNotFound
}

func (m *mockAppService) RespondPoll(ctx context.Context, sessionID, participant string, responseIndex int) (*domain.Poll, error) {
	if m.respondPollFn != nil {
		return m.respondPollFn(ctx, sessionID, participant, responseIndex)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) ClosePoll(ctx context.Context, sessionID string) (*domain.Poll, error) {
	if m.closePollFn != nil {
		return m.closePollFn(ctx, sessionID)
	}
	return nil, errNotImplemented
}

func (m *mockAppService) DeletePoll(ctx context.Context, sessionID string) error {
	if m.deletePollFn != nil {
		return m.deletePollFn(ctx, sessionID)
	}
	return errNotImplemented
}

func (m *mockAppService) ExportResults(ctx context.Context, sessionID string) (*domain.PollResults, error) {
	if m.exportResultsFn != nil {
		return m.exportResultsFn(ctx, sessionID)
	}
	return nil, errNotImplemented
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:               "test",
		Port:                 "0",
		ModeratorTokenSecret: testSecret,
		RateLimitPerSecond:   1000,
		RateLimitBurst:       1000,
	}
}

func newTestServer(t *testing.T, app appService, opts ...func(*config.Config, *Deps)) *Server {
	t.Helper()

	cfg := testConfig()
	deps := Deps{}
	for _, opt := range opts {
		opt(cfg, &deps)
	}
	return NewServer(cfg, app, deps)
}

func withoutModeratorAuth() func(*config.Config, *Deps) {
	return func(cfg *config.Config, _ *Deps) {
		cfg.ModeratorTokenSecret = ""
	}
}

func withHealthChecks(checks ...HealthCheck) func(*config.Config, *Deps) {
	return func(_ *config.Config, deps *Deps) {
		deps.HealthChecks = checks
	}
}

func withRateLimit(perSecond float64, burst int) func(*config.Config, *Deps) {
	return func(cfg *config.Config, _ *Deps) {
		cfg.RateLimitPerSecond = perSecond
		cfg.RateLimitBurst = burst
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

func moderatorToken(t *testing.T, sessionID string, mutate ...func(*ModeratorClaims)) string {
	t.Helper()

	claims := &ModeratorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "moderator-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Session: sessionID,
		Role:    RoleModerator,
	}
	for _, m := range mutate {
		m(claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(srv *Server, method, target, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "10.0.0.1:5555"
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

var _ http.Handler = (*Server)(nil)

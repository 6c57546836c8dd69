// Package httpserver exposes the poll lifecycle over a JSON API.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/metrics"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/config"
)

type appService interface {
	CreatePoll(ctx context.Context, draft *domain.Poll) (*domain.Poll, error)
	GetView(ctx context.Context, sessionID, participant string) (*domain.PollView, error)
	RespondPoll(ctx context.Context, sessionID, participant string, responseIndex int) (*domain.Poll, error)
	ClosePoll(ctx context.Context, sessionID string) (*domain.Poll, error)
	DeletePoll(ctx context.Context, sessionID string) error
	ExportResults(ctx context.Context, sessionID string) (*domain.PollResults, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app appService

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics

	moderatorSecret []byte
	healthChecks    []HealthCheck
	startTime       time.Time
}

// Deps are the optional collaborators of the server. Nil handlers leave
// their route unregistered.
type Deps struct {
	WebsocketHandler http.Handler
	MetricsHandler   http.Handler
	HTTPMetrics      *metrics.HTTPMetrics
	HealthChecks     []HealthCheck
}

func NewServer(cfg *config.Config, app appService, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              app,
		websocketHandler: deps.WebsocketHandler,
		metricsHandler:   deps.MetricsHandler,
		httpMetrics:      deps.HTTPMetrics,
		moderatorSecret:  []byte(cfg.ModeratorTokenSecret),
		healthChecks:     deps.HealthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

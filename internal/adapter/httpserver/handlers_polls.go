package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
	apperrors "github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/errors"
)

func (s *Server) registerPollRoutes() {
	limiter := newRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst)

	api := s.echo.Group("/api/polls", limiter)
	api.POST("", s.handleCreatePoll, s.requireModerator)
	api.GET("/:sessionId", s.handleGetPoll)
	api.POST("/:sessionId/responses", s.handleRespondPoll)
	api.POST("/:sessionId/close", s.handleClosePoll, s.requireModerator)
	api.DELETE("/:sessionId", s.handleDeletePoll, s.requireModerator)
	api.GET("/:sessionId/results", s.handleExportResults, s.requireModerator)
}

type respondRequest struct {
	Participant   string `json:"participant"`
	ResponseIndex *int   `json:"responseIndex"`
}

func bindJSON(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return WrapHTTPError(httpErr)
		}
		return apperrors.ValidationError("malformed request body").WithCause(err)
	}
	return nil
}

func (s *Server) handleCreatePoll(c echo.Context) error {
	var draft domain.Poll
	if err := bindJSON(c, &draft); err != nil {
		return err
	}
	if err := checkModeratorSession(c, draft.SessionID); err != nil {
		return err
	}

	p, err := s.app.CreatePoll(c.Request().Context(), &draft)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusCreated, p); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetPoll(c echo.Context) error {
	view, err := s.app.GetView(c.Request().Context(), c.Param("sessionId"), c.QueryParam("participant"))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, view); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleRespondPoll(c echo.Context) error {
	var req respondRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.ResponseIndex == nil {
		return apperrors.ValidationError("responseIndex is required").WithField("field", "responseIndex")
	}

	p, err := s.app.RespondPoll(c.Request().Context(), c.Param("sessionId"), req.Participant, *req.ResponseIndex)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, p); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleClosePoll(c echo.Context) error {
	p, err := s.app.ClosePoll(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, p); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeletePoll(c echo.Context) error {
	if err := s.app.DeletePoll(c.Request().Context(), c.Param("sessionId")); err != nil {
		return err
	}

	if err := c.NoContent(http.StatusNoContent); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}

// handleExportResults serves the results as a downloadable JSON file.
func (s *Server) handleExportResults(c echo.Context) error {
	sessionID := c.Param("sessionId")
	results, err := s.app.ExportResults(c.Request().Context(), sessionID)
	if err != nil {
		return err
	}

	slog.InfoContext(c.Request().Context(), "Poll results exported", "session_id", sessionID, "moderator", c.Get(contextKeySubject))

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", sessionID+".poll.json"))
	if err := c.JSONPretty(http.StatusOK, results, "  "); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

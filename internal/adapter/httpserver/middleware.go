package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/correlation"
	apperrors "github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/errors"
)

const correlationHeader = correlation.Header

// correlationMiddleware reuses a well-formed incoming correlation ID or mints
// one, and echoes it back to the caller.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlationHeader))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlationHeader, id)
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := toStructuredError(err)
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// toStructuredError maps domain errors onto client facing categories.
func toStructuredError(err error) *apperrors.Error {
	var structured *apperrors.Error
	if errors.As(err, &structured) {
		return structured
	}

	var fieldErr *domain.FieldError
	if errors.As(err, &fieldErr) {
		e := apperrors.ValidationError(fieldErr.Message).WithCause(err)
		if fieldErr.Field != "" {
			e = e.WithField("field", fieldErr.Field)
		}
		return e
	}

	switch {
	case errors.Is(err, domain.ErrPollNotFound):
		return apperrors.NotFoundError("poll not found").WithCause(err)
	case errors.Is(err, domain.ErrResultsNotFound):
		return apperrors.NotFoundError("poll results not found").WithCause(err)
	case errors.Is(err, domain.ErrPollExists):
		return apperrors.ConflictError("a poll is already open in this session").WithCause(err)
	case errors.Is(err, domain.ErrAlreadyResponded):
		return apperrors.ConflictError("participant already responded").WithCause(err)
	case errors.Is(err, domain.ErrPollNotPending):
		return apperrors.ConflictError("poll is not accepting responses").WithCause(err)
	case errors.Is(err, domain.ErrPollNotClosed):
		return apperrors.ConflictError("poll is still open").WithCause(err)
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return apperrors.ConflictError("poll changed concurrently, try again").WithCause(err)
	case errors.Is(err, domain.ErrOutOfRange):
		return apperrors.ValidationError("response index out of range").WithCause(err)
	case errors.Is(err, domain.ErrInvalidPoll):
		return apperrors.ValidationError("invalid poll").WithCause(err)
	default:
		return apperrors.InternalError("internal server error", err)
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if sessionID := c.Param("sessionId"); sessionID != "" {
		attrs = append(attrs, "session_id", sessionID)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound, apperrors.TypeUnauthorized, apperrors.TypeForbidden:
		slog.InfoContext(ctx, "Client error", attrs...)
	case apperrors.TypeConflict, apperrors.TypeRateLimited:
		slog.WarnContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeInternal, apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Request failed", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// WrapHTTPError converts an echo error into a structured one.
func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthorized
	case http.StatusForbidden:
		errType = apperrors.TypeForbidden
	case http.StatusNotFound:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusTooManyRequests:
		errType = apperrors.TypeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = apperrors.TypeExternal
	default:
		errType = apperrors.TypeInternal
	}

	return &apperrors.Error{
		Type:    errType,
		Message: message,
		Cause:   httpErr.Internal,
		Context: make(map[string]any),
	}
}

package httpserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apperrors "github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/errors"
)

// RoleModerator is the role claim that allows managing a session's polls.
const RoleModerator = "MODERATOR"

const (
	tokenLeeway       = 30 * time.Second
	contextKeySubject = "moderator"
	contextKeySession = "moderatorSession"
	bearerPrefix      = "bearer "
)

// ModeratorClaims are the claims of a moderator token. Session scopes the
// token to a single call session.
type ModeratorClaims struct {
	jwt.RegisteredClaims
	Session string `json:"session"`
	Role    string `json:"role"`
}

var errInvalidToken = errors.New("invalid moderator token")

func (s *Server) parseModeratorToken(tokenString string) (*ModeratorClaims, error) {
	claims := &ModeratorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.moderatorSecret, nil
	}, jwt.WithLeeway(tokenLeeway), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errors.Join(errInvalidToken, err)
	}

	if claims.Subject == "" || claims.Session == "" || claims.Role != RoleModerator {
		return nil, errInvalidToken
	}
	return claims, nil
}

// requireModerator checks the bearer token. Routes with a :sessionId param
// are matched against the token's session here; handlers whose session id
// comes from the body call checkModeratorSession themselves. Without a
// configured secret the check is skipped.
func (s *Server) requireModerator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(s.moderatorSecret) == 0 {
			return next(c)
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			return apperrors.UnauthorizedError("missing moderator token")
		}

		claims, err := s.parseModeratorToken(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			return apperrors.UnauthorizedError("invalid moderator token").WithCause(err)
		}

		c.Set(contextKeySubject, claims.Subject)
		c.Set(contextKeySession, claims.Session)

		if sessionID := c.Param("sessionId"); sessionID != "" {
			if err := checkModeratorSession(c, sessionID); err != nil {
				return err
			}
		}
		return next(c)
	}
}

func checkModeratorSession(c echo.Context, sessionID string) error {
	scoped, ok := c.Get(contextKeySession).(string)
	if !ok {
		return nil
	}
	if scoped != sessionID {
		return apperrors.ForbiddenError("token is not valid for this session").
			WithField("session_id", sessionID)
	}
	return nil
}

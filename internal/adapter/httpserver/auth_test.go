package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModeratorToken(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	claims, err := srv.parseModeratorToken(moderatorToken(t, "s1"))
	require.NoError(t, err)
	assert.Equal(t, "moderator-1", claims.Subject)
	assert.Equal(t, "s1", claims.Session)
}

func TestParseModeratorToken_Rejects(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong role", moderatorToken(t, "s1", func(c *ModeratorClaims) { c.Role = "PUBLISHER" })},
		{"no session", moderatorToken(t, "")},
		{"no subject", moderatorToken(t, "s1", func(c *ModeratorClaims) { c.Subject = "" })},
		{"expired", moderatorToken(t, "s1", func(c *ModeratorClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		})},
		{"no expiry", moderatorToken(t, "s1", func(c *ModeratorClaims) { c.ExpiresAt = nil })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.parseModeratorToken(tt.token)
			assert.ErrorIs(t, err, errInvalidToken)
		})
	}
}

func TestParseModeratorToken_WrongSecret(t *testing.T) {
	claims := &ModeratorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "moderator-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Session: "s1",
		Role:    RoleModerator,
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret-value"))
	require.NoError(t, err)

	srv := newTestServer(t, &mockAppService{})
	_, err = srv.parseModeratorToken(forged)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestParseModeratorToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := &ModeratorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "moderator-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Session: "s1",
		Role:    RoleModerator,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	srv := newTestServer(t, &mockAppService{})
	_, err = srv.parseModeratorToken(token)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestRequireModerator_HeaderForms(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	token := moderatorToken(t, "s1")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic abc", http.StatusUnauthorized},
		{"bare prefix", "Bearer ", http.StatusUnauthorized},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &mockAppService{deletePollFn: func(_ context.Context, _ string) error { return nil }}
			srv.app = app

			req := httptest.NewRequest(http.MethodDelete, "/api/polls/s1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier struct {
	uid string
	err error
}

func (v staticVerifier) Verify(ctx context.Context, token string) (string, error) {
	return v.uid, v.err
}

func runAuth(t *testing.T, verifier TokenVerifier, authHeader string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := NewAuthMiddleware(verifier).Authenticate(func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("uid").(string))
	})
	return rec, handler(c)
}

func TestAuthenticateSetsUID(t *testing.T) {
	rec, err := runAuth(t, staticVerifier{uid: "user-42"}, "Bearer good-token")

	require.NoError(t, err)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	_, err := runAuth(t, staticVerifier{uid: "user-42"}, "")

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAuthenticateRejectsBadFormat(t *testing.T) {
	_, err := runAuth(t, staticVerifier{uid: "user-42"}, "Token abc")

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	_, err := runAuth(t, staticVerifier{err: fmt.Errorf("expired")}, "Bearer stale")

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

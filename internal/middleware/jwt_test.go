package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnp/smart-parking-api/internal/utils"
)

func callJWT(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, JWTAuth(secret)(next)(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken("secret", 7, "manager", "m@example.com", 1)
	require.NoError(t, err)

	rec, c := callJWT(t, "secret", "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manager", c.Get("role"))
	assert.Equal(t, "m@example.com", c.Get("email"))
	// MapClaims round-trips numbers as float64.
	assert.Equal(t, float64(7), c.Get("user_id"))
}

func TestJWTAuthRejects(t *testing.T) {
	rec, _ := callJWT(t, "secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = callJWT(t, "secret", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = callJWT(t, "secret", "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := utils.NewAccessToken("other-secret", 7, "user", "u@example.com", 1)
	require.NoError(t, err)
	rec, _ = callJWT(t, "secret", "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

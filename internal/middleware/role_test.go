package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnp/smart-parking-api/internal/model"
)

func callWithRole(t *testing.T, mw echo.MiddlewareFunc, role interface{}) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	require.NoError(t, mw(next)(c))
	return rec
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(model.RoleManager, model.RoleAdmin)

	assert.Equal(t, http.StatusOK, callWithRole(t, mw, model.RoleManager).Code)
	assert.Equal(t, http.StatusOK, callWithRole(t, mw, model.RoleAdmin).Code)
	assert.Equal(t, http.StatusForbidden, callWithRole(t, mw, model.RoleUser).Code)
	assert.Equal(t, http.StatusForbidden, callWithRole(t, mw, nil).Code)
	// Anything other than a string role is rejected.
	assert.Equal(t, http.StatusForbidden, callWithRole(t, mw, 42).Code)
}

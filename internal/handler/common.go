package handler // handler defines http handlers

import (
	"errors"  // errors provides sentinel values used in getUserID
	"strconv" // strconv converts strings to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types
)

// Every endpoint answers with the same envelope: status is "success" or
// "error", message is human-readable, data carries the payload (omitted
// when empty).
type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, envelope{Status: "success", Message: message, Data: data})
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, envelope{Status: "error", Message: message})
}

// getUserID extracts the user_id from echo.Context and converts it to
// uint64. JWT numeric claims decode as float64, so every plausible type
// is handled.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// currentRole returns the role claim stored by the JWT middleware, or
// "" when absent.
func currentRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject, role and email claims into the request
// context. The provided secret must match the one used when issuing
// tokens. This middleware should wrap protected routes so that handlers
// can access authenticated user information via `c.Get("user_id")`,
// `c.Get("role")` and `c.Get("email")`.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header is "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"status": "error", "message": "missing bearer token",
				})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret; reject any other signing
			// method so an attacker cannot downgrade to "none".
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"status": "error", "message": "invalid token",
				})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"status": "error", "message": "invalid claims",
				})
			}

			// Leave type assertions to downstream consumers.
			c.Set("user_id", claims["sub"])
			c.Set("role", claims["role"])
			c.Set("email", claims["email"])
			return next(c)
		}
	}
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/hungnp/smart-parking-api/internal/handler"    // import the handlers that implement business logic
	"github.com/hungnp/smart-parking-api/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware. Unauthenticated operations live under
// /v1/auth, while the profile endpoints live under /v1 behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Google federated login: exchanges a verified id_token for our JWT.
	g.POST("/google", a.GoogleLogin)

	// Profile endpoints require a valid token but no particular role.
	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.PUT("/me", a.UpdateProfile)
	auth.PUT("/me/password", a.ChangePassword)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/handler"
	"github.com/hungnp/smart-parking-api/internal/middleware"
	"github.com/hungnp/smart-parking-api/internal/model"
)

// RegisterPublic registers the unauthenticated browse endpoints: the lot
// catalogue with live availability and the spot listings. Guests can
// inspect lots before registering.
func RegisterPublic(e *echo.Echo, lots *handler.ParkingLotHandler, spots *handler.ParkingSpotHandler) {
	e.GET("/v1/parking-lots", lots.List) // ?search=, ?maxPrice=, ?minAvailable=, ?lat=&lng=&radius=
	e.GET("/v1/parking-lots/:id", lots.Get)
	e.GET("/v1/parking-lots/:lotId/spots", spots.ListByLot)
	e.GET("/v1/parking-spots/:id", spots.Get)
}

// RegisterUser registers the endpoints an authenticated driver uses:
// reservations, deposit payments and personal history. All routes
// require a valid JWT; any role may call them.
func RegisterUser(e *echo.Echo, r *handler.ReservationHandler, p *handler.PaymentHandler,
	l *handler.ParkingLogHandler, s *handler.UserStatusHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleManager, model.RoleAdmin))

	// ---- Reservations ----
	g.POST("/reservations", r.Create)
	g.GET("/reservations", r.List)
	g.GET("/reservations/:id", r.Get)
	g.DELETE("/reservations/:id", r.Cancel)

	// ---- Payments ----
	g.GET("/payment/:reservationId", p.Info)
	g.GET("/payment/check/:reservationId", p.Check)
	g.POST("/payment/success", p.Success)
	// Test alias used by the "simulate payment" UI action.
	g.POST("/payment/test", p.Success)

	// ---- Personal history and status ----
	g.GET("/parking-logs", l.History)
	g.GET("/parking-logs/:id", l.Get)
	g.GET("/user/parking-status", s.ParkingStatus)
	g.GET("/user/history", s.History)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/handler"
	"github.com/hungnp/smart-parking-api/internal/middleware"
	"github.com/hungnp/smart-parking-api/internal/model"
)

// RegisterManager registers the endpoints managers and admins share:
// lot and spot CRUD, bank accounts for deposits, and the fleet-wide
// reservation and session listings.
func RegisterManager(e *echo.Echo, lots *handler.ParkingLotHandler, spots *handler.ParkingSpotHandler,
	banks *handler.BankAccountHandler, res *handler.ReservationHandler,
	logs *handler.ParkingLogHandler, payments *handler.PaymentHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleManager, model.RoleAdmin))

	// ---- Parking lots ----
	g.POST("/parking-lots", lots.Create)
	g.PUT("/parking-lots/:id", lots.Update)
	g.DELETE("/parking-lots/:id", lots.Delete)

	// ---- Parking spots ----
	g.POST("/parking-spots", spots.Create)
	g.PUT("/parking-spots/:id", spots.Update)
	g.DELETE("/parking-spots/:id", spots.Delete)

	// ---- Bank accounts for receiving deposits ----
	g.GET("/banks", banks.ListBanks)
	g.POST("/bank-accounts", banks.Create)
	g.GET("/bank-accounts", banks.List)
	g.PATCH("/bank-accounts/:id/activate", banks.Activate)
	g.DELETE("/bank-accounts/:id", banks.Delete)

	// ---- Fleet views ----
	g.GET("/admin/reservations", res.ListAll)
	g.PATCH("/admin/reservations/:id/status", res.UpdateStatus)
	g.GET("/admin/parking-logs", logs.ListAll)
	g.GET("/admin/payments/:reservationId", payments.History)
}

// RegisterAdmin registers admin-only administration: user accounts and
// hard deletion of reservations.
func RegisterAdmin(e *echo.Echo, users *handler.AdminUserHandler, res *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin))

	g.GET("/users", users.List)
	g.DELETE("/users/:id", users.Delete)
	g.DELETE("/reservations/:id", res.AdminDelete)
}

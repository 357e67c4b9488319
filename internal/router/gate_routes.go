package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/handler"
)

// RegisterGate registers the hardware-facing endpoints. The camera and
// the slot sensor live on a trusted local network segment and carry no
// JWT; the payment webhook authenticates with its HMAC signature
// instead.
func RegisterGate(e *echo.Echo, lp *handler.LicensePlateHandler, wh *handler.WebhookHandler) {
	g := e.Group("/v1/license-plate")
	g.POST("/entry", lp.Entry)
	g.POST("/exit", lp.Exit)
	g.POST("/confirm-slot", lp.ConfirmSlot)
	g.GET("/system-status", lp.SystemStatus)

	// The provider posts bank-transfer notifications here; the path is
	// registered at the root to match what is configured provider-side.
	e.POST("/webhook", wh.Handle)
}

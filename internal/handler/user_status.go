package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/payment"
	"github.com/hungnp/smart-parking-api/internal/repository"
)

// UserStatusHandler serves the aggregated "where am I and what have I
// spent" views backing the app's home screen.
type UserStatusHandler struct {
	Reservations *repository.ReservationRepo
	Logs         *repository.ParkingLogRepo
	Spots        *repository.ParkingSpotRepo
}

func NewUserStatusHandler(res *repository.ReservationRepo, logs *repository.ParkingLogRepo,
	spots *repository.ParkingSpotRepo) *UserStatusHandler {
	if res == nil || logs == nil || spots == nil {
		panic("nil repository passed to NewUserStatusHandler")
	}
	return &UserStatusHandler{Reservations: res, Logs: logs, Spots: spots}
}

// ParkingStatus reports the caller's current state: an active session
// with its running fee estimate, or an active reservation, or neither.
func (h *UserStatusHandler) ParkingStatus(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	data := echo.Map{"parking": false, "reserved": false}

	if plog, err := h.Logs.ActiveByUser(ctx, uid); err == nil {
		data["parking"] = true
		minutes := payment.Minutes(plog.EntryTime, time.Now().UTC())
		session := echo.Map{
			"logId":          plog.ID,
			"spotId":         plog.SpotID,
			"entryTime":      plog.EntryTime,
			"status":         plog.Status,
			"elapsedMinutes": minutes,
		}
		if sp, err := h.Spots.GetWithPrice(ctx, plog.SpotID); err == nil {
			session["spotNumber"] = sp.SpotNumber
			session["lotName"] = sp.LotName
			session["currentFee"] = payment.Fee(minutes, sp.PricePerHour)
		}
		data["session"] = session
	} else if err != sql.ErrNoRows {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	if res, err := h.Reservations.ActiveByUser(ctx, uid); err == nil {
		data["reserved"] = true
		data["reservation"] = echo.Map{
			"id":            res.ID,
			"spotId":        res.SpotID,
			"status":        res.Status,
			"expectedStart": res.ExpectedStart,
			"expectedEnd":   res.ExpectedEnd,
			"paymentAmount": res.PaymentAmount,
		}
	} else if err != sql.ErrNoRows {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	return respond(c, http.StatusOK, "parking status", data)
}

// History aggregates the caller's completed sessions with lifetime
// totals.
func (h *UserStatusHandler) History(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Logs.HistoryByUser(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	sessions, minutes, fees, err := h.Logs.TotalsByUser(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]logResp, 0, len(details))
	for _, d := range details {
		out = append(out, toLogResp(d))
	}
	return respond(c, http.StatusOK, "user history", echo.Map{
		"sessions": out,
		"totals": echo.Map{
			"completedSessions": sessions,
			"totalMinutes":      minutes,
			"totalFees":         fees,
		},
	})
}

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/repository"
)

// ParkingLogHandler serves session history views.
type ParkingLogHandler struct {
	Logs *repository.ParkingLogRepo
}

func NewParkingLogHandler(logs *repository.ParkingLogRepo) *ParkingLogHandler {
	if logs == nil {
		panic("nil repository passed to NewParkingLogHandler")
	}
	return &ParkingLogHandler{Logs: logs}
}

type logResp struct {
	ID           uint64     `json:"id"`
	SpotID       uint64     `json:"spotId"`
	SpotNumber   string     `json:"spotNumber"`
	LotName      string     `json:"lotName"`
	EntryTime    time.Time  `json:"entryTime"`
	ExitTime     *time.Time `json:"exitTime,omitempty"`
	TotalMinutes int        `json:"totalMinutes"`
	Fee          int64      `json:"fee"`
	Status       string     `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
}

func toLogResp(d repository.LogDetail) logResp {
	return logResp{
		ID: d.ID, SpotID: d.SpotID, SpotNumber: d.SpotNumber, LotName: d.LotName,
		EntryTime: d.EntryTime, ExitTime: d.ExitTime,
		TotalMinutes: d.TotalMinutes, Fee: d.Fee,
		Status: d.Status, PaymentStatus: d.PaymentStatus,
	}
}

// History returns the caller's sessions, newest first.
func (h *ParkingLogHandler) History(c echo.Context) error {
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
	out := make([]logResp, 0, len(details))
	for _, d := range details {
		out = append(out, toLogResp(d))
	}
	return respond(c, http.StatusOK, "parking history", out)
}

// ListAll returns every session with the owning user, for manager and
// admin dashboards.
func (h *ParkingLogHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Logs.ListAll(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]echo.Map, 0, len(details))
	for _, d := range details {
		out = append(out, echo.Map{
			"log":      toLogResp(d),
			"userId":   d.UserID,
			"userName": d.UserName,
		})
	}
	return respond(c, http.StatusOK, "parking logs", out)
}

// Get returns one session. Users see only their own.
func (h *ParkingLogHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid log id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	plog, err := h.Logs.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "parking log not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if plog.UserID != uid && currentRole(c) == "user" {
		return fail(c, http.StatusForbidden, "not your parking log")
	}
	return respond(c, http.StatusOK, "parking log", echo.Map{
		"id": plog.ID, "spotId": plog.SpotID,
		"entryTime": plog.EntryTime, "exitTime": plog.ExitTime,
		"totalMinutes": plog.TotalMinutes, "fee": plog.Fee,
		"status": plog.Status, "paymentStatus": plog.PaymentStatus,
	})
}

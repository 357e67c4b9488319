package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/model"
	"github.com/hungnp/smart-parking-api/internal/repository"
)

// ParkingLotHandler serves the public lot catalogue and the manager/admin
// lot CRUD.
type ParkingLotHandler struct {
	Lots *repository.ParkingLotRepo
}

func NewParkingLotHandler(lots *repository.ParkingLotRepo) *ParkingLotHandler {
	if lots == nil {
		panic("nil repository passed to NewParkingLotHandler")
	}
	return &ParkingLotHandler{Lots: lots}
}

type lotResp struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	TotalSpots     int     `json:"totalSpots"`
	AvailableSpots int     `json:"availableSpots"`
	PricePerHour   int64   `json:"pricePerHour"`
}

func toLotResp(l repository.LotWithAvailability) lotResp {
	return lotResp{
		ID: l.ID, Name: l.Name, Address: l.Address,
		Latitude: l.Latitude, Longitude: l.Longitude,
		TotalSpots: l.TotalSpots, AvailableSpots: l.AvailableSpots,
		PricePerHour: l.PricePerHour,
	}
}

// List returns lots with live availability. Supports ?search= (name or
// address substring), ?maxPrice=, ?minAvailable=, and a location query
// ?lat=&lng=&radius= (km, default 5) which returns lots ordered by
// distance instead.
func (h *ParkingLotHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if latS, lngS := c.QueryParam("lat"), c.QueryParam("lng"); latS != "" && lngS != "" {
		lat, errLat := strconv.ParseFloat(latS, 64)
		lng, errLng := strconv.ParseFloat(lngS, 64)
		if errLat != nil || errLng != nil {
			return fail(c, http.StatusBadRequest, "invalid coordinates")
		}
		radius := 5.0
		if rs := c.QueryParam("radius"); rs != "" {
			r, err := strconv.ParseFloat(rs, 64)
			if err != nil || r <= 0 {
				return fail(c, http.StatusBadRequest, "invalid radius")
			}
			radius = r
		}
		lots, err := h.Lots.Nearby(ctx, lat, lng, radius)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "query failed")
		}
		out := make([]echo.Map, 0, len(lots))
		for _, l := range lots {
			out = append(out, echo.Map{
				"lot":        toLotResp(l.LotWithAvailability),
				"distanceKm": l.DistanceKM,
			})
		}
		return respond(c, http.StatusOK, "parking lots", out)
	}

	q := repository.LotQuery{Term: c.QueryParam("search")}
	if ps := c.QueryParam("maxPrice"); ps != "" {
		p, err := strconv.ParseInt(ps, 10, 64)
		if err != nil || p < 0 {
			return fail(c, http.StatusBadRequest, "invalid maxPrice")
		}
		q.MaxPrice = p
	}
	if as := c.QueryParam("minAvailable"); as != "" {
		a, err := strconv.Atoi(as)
		if err != nil || a < 0 {
			return fail(c, http.StatusBadRequest, "invalid minAvailable")
		}
		q.MinAvailable = a
	}
	lots, err := h.Lots.Search(ctx, q)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]lotResp, 0, len(lots))
	for _, l := range lots {
		out = append(out, toLotResp(l))
	}
	return respond(c, http.StatusOK, "parking lots", out)
}

// Get returns one lot with availability.
func (h *ParkingLotHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid lot id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lot, err := h.Lots.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "parking lot not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	return respond(c, http.StatusOK, "parking lot", toLotResp(*lot))
}

type lotReq struct {
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	TotalSpots   int     `json:"totalSpots"`
	PricePerHour int64   `json:"pricePerHour"`
}

// Create registers a new lot owned by the calling manager.
func (h *ParkingLotHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req lotReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Address == "" || req.PricePerHour <= 0 {
		return fail(c, http.StatusBadRequest, "name, address and a positive pricePerHour are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lot := model.ParkingLot{
		Name: req.Name, Address: req.Address,
		Latitude: req.Latitude, Longitude: req.Longitude,
		TotalSpots: req.TotalSpots, PricePerHour: req.PricePerHour,
		ManagerID: uid,
	}
	if _, err := h.Lots.Create(ctx, &lot); err != nil {
		return fail(c, http.StatusInternalServerError, "create failed")
	}
	return respond(c, http.StatusCreated, "parking lot created", echo.Map{"id": lot.ID})
}

// Update edits a lot. Managers may only edit their own lots; admins may
// edit any.
func (h *ParkingLotHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid lot id")
	}
	var req lotReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Address == "" || req.PricePerHour <= 0 {
		return fail(c, http.StatusBadRequest, "name, address and a positive pricePerHour are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	managerID := uid
	if currentRole(c) == model.RoleAdmin {
		managerID = 0 // admins bypass the ownership check
	}
	lot := model.ParkingLot{
		ID: id, Name: req.Name, Address: req.Address,
		Latitude: req.Latitude, Longitude: req.Longitude,
		TotalSpots: req.TotalSpots, PricePerHour: req.PricePerHour,
	}
	if err := h.Lots.Update(ctx, &lot, managerID); err != nil {
		switch err {
		case sql.ErrNoRows:
			return fail(c, http.StatusNotFound, "parking lot not found")
		case repository.ErrForbidden:
			return fail(c, http.StatusForbidden, "not your parking lot")
		}
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	return respond(c, http.StatusOK, "parking lot updated", nil)
}

// Delete removes a lot with no dependent history.
func (h *ParkingLotHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid lot id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	managerID := uid
	if currentRole(c) == model.RoleAdmin {
		managerID = 0
	}
	if err := h.Lots.Delete(ctx, id, managerID); err != nil {
		switch err {
		case sql.ErrNoRows:
			return fail(c, http.StatusNotFound, "parking lot not found")
		case repository.ErrForbidden:
			return fail(c, http.StatusForbidden, "not your parking lot")
		case repository.ErrConflict:
			return fail(c, http.StatusConflict, "lot still has spots with history")
		}
		return fail(c, http.StatusInternalServerError, "delete failed")
	}
	return respond(c, http.StatusOK, "parking lot deleted", nil)
}

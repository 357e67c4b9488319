package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/model"
	"github.com/hungnp/smart-parking-api/internal/repository"
)

// ParkingSpotHandler serves spot listings and the manager/admin spot CRUD.
type ParkingSpotHandler struct {
	Spots *repository.ParkingSpotRepo
	Lots  *repository.ParkingLotRepo
}

func NewParkingSpotHandler(spots *repository.ParkingSpotRepo, lots *repository.ParkingLotRepo) *ParkingSpotHandler {
	if spots == nil || lots == nil {
		panic("nil repository passed to NewParkingSpotHandler")
	}
	return &ParkingSpotHandler{Spots: spots, Lots: lots}
}

type spotResp struct {
	ID         uint64 `json:"id"`
	LotID      uint64 `json:"lotId"`
	SpotNumber string `json:"spotNumber"`
	SpotType   string `json:"spotType"`
	IsOccupied bool   `json:"isOccupied"`
	IsReserved bool   `json:"isReserved"`
	Available  bool   `json:"available"`
}

func toSpotResp(s model.ParkingSpot) spotResp {
	return spotResp{
		ID: s.ID, LotID: s.LotID, SpotNumber: s.SpotNumber, SpotType: s.SpotType,
		IsOccupied: s.IsOccupied, IsReserved: s.IsReserved, Available: s.Available(),
	}
}

// ListByLot returns all spots of a lot with their live flags.
func (h *ParkingSpotHandler) ListByLot(c echo.Context) error {
	lotID, err := pathID(c, "lotId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid lot id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Lots.GetByID(ctx, lotID); err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "parking lot not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	spots, err := h.Spots.ListByLot(ctx, lotID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]spotResp, 0, len(spots))
	for _, s := range spots {
		out = append(out, toSpotResp(s))
	}
	return respond(c, http.StatusOK, "parking spots", out)
}

// Get returns one spot with its lot's price.
func (h *ParkingSpotHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid spot id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sp, err := h.Spots.GetWithPrice(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "parking spot not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := toSpotResp(sp.ParkingSpot)
	return respond(c, http.StatusOK, "parking spot", echo.Map{
		"spot":         out,
		"lotName":      sp.LotName,
		"pricePerHour": sp.PricePerHour,
	})
}

type spotReq struct {
	LotID      uint64 `json:"lotId"`
	SpotNumber string `json:"spotNumber"`
	SpotType   string `json:"spotType"`
}

func validSpotType(t string) bool {
	switch t {
	case model.SpotTypeStandard, model.SpotTypeVIP, model.SpotTypeEV:
		return true
	}
	return false
}

// Create adds a spot to a lot owned by the calling manager.
func (h *ParkingSpotHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req spotReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.SpotType == "" {
		req.SpotType = model.SpotTypeStandard
	}
	if req.LotID == 0 || req.SpotNumber == "" || !validSpotType(req.SpotType) {
		return fail(c, http.StatusBadRequest, "lotId, spotNumber and a valid spotType are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lot, err := h.Lots.GetByID(ctx, req.LotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "parking lot not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if currentRole(c) != model.RoleAdmin && lot.ManagerID != uid {
		return fail(c, http.StatusForbidden, "not your parking lot")
	}

	spot := model.ParkingSpot{LotID: req.LotID, SpotNumber: req.SpotNumber, SpotType: req.SpotType}
	if _, err := h.Spots.Create(ctx, &spot); err != nil {
		return fail(c, http.StatusInternalServerError, "create failed")
	}
	return respond(c, http.StatusCreated, "parking spot created", echo.Map{"id": spot.ID})
}

// Update renames or retypes a spot.
func (h *ParkingSpotHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid spot id")
	}
	var req spotReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.SpotNumber == "" || !validSpotType(req.SpotType) {
		return fail(c, http.StatusBadRequest, "spotNumber and a valid spotType are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.ownsSpot(ctx, c, uid, id); err != nil {
		return err
	}
	if err := h.Spots.Update(ctx, id, req.SpotNumber, req.SpotType); err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "parking spot not found")
		}
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	return respond(c, http.StatusOK, "parking spot updated", nil)
}

// Delete removes an unclaimed spot.
func (h *ParkingSpotHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid spot id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.ownsSpot(ctx, c, uid, id); err != nil {
		return err
	}
	if err := h.Spots.Delete(ctx, id); err != nil {
		switch err {
		case sql.ErrNoRows:
			return fail(c, http.StatusNotFound, "parking spot not found")
		case repository.ErrConflict:
			return fail(c, http.StatusConflict, "spot is reserved or occupied")
		}
		return fail(c, http.StatusInternalServerError, "delete failed")
	}
	return respond(c, http.StatusOK, "parking spot deleted", nil)
}

// ownsSpot verifies the caller manages the lot a spot belongs to. Admins
// always pass. Returns nil on success; otherwise it has already written
// the error response.
func (h *ParkingSpotHandler) ownsSpot(ctx context.Context, c echo.Context, uid, spotID uint64) error {
	spot, err := h.Spots.GetByID(ctx, spotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "parking spot not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if currentRole(c) == model.RoleAdmin {
		return nil
	}
	lot, err := h.Lots.GetByID(ctx, spot.LotID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if lot.ManagerID != uid {
		return fail(c, http.StatusForbidden, "not your parking lot")
	}
	return nil
}

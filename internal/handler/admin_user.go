package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/repository"
)

// AdminUserHandler exposes user administration to admins.
type AdminUserHandler struct {
	Users *repository.UserRepo
}

func NewAdminUserHandler(users *repository.UserRepo) *AdminUserHandler {
	if users == nil {
		panic("nil repository passed to NewAdminUserHandler")
	}
	return &AdminUserHandler{Users: users}
}

// List returns every user account.
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, toUserPart(u))
	}
	return respond(c, http.StatusOK, "users", out)
}

// Delete removes an account with no reservation or session history.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	if id == uid {
		return fail(c, http.StatusBadRequest, "cannot delete your own account")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		switch err {
		case sql.ErrNoRows:
			return fail(c, http.StatusNotFound, "user not found")
		case repository.ErrConflict:
			return fail(c, http.StatusConflict, "user has reservation or parking history")
		}
		return fail(c, http.StatusInternalServerError, "delete failed")
	}
	return respond(c, http.StatusOK, "user deleted", nil)
}

package handler

import (
	"context"      // provides context with cancellation for DB calls
	"database/sql" // SQL database interactions
	"encoding/json"
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/hungnp/smart-parking-api/internal/config"     // app configuration
	"github.com/hungnp/smart-parking-api/internal/model"      // domain types
	"github.com/hungnp/smart-parking-api/internal/repository" // DB repositories
	"github.com/hungnp/smart-parking-api/internal/utils"      // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	LicensePlate string `json:"licensePlate"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type googleLoginReq struct {
	IDToken string `json:"id_token"`
}

type userPart struct {
	ID           uint64 `json:"id"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	LicensePlate string `json:"licensePlate,omitempty"`
	Role         string `json:"role"`
}
type authData struct {
	User               userPart  `json:"user"`
	Token              string    `json:"token"`
	Expires            time.Time `json:"expires"`
	NeedsProfileUpdate bool      `json:"needsProfileUpdate,omitempty"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID: u.ID, FullName: u.FullName, Email: u.Email,
		Phone: u.Phone, LicensePlate: u.LicensePlate, Role: u.Role,
	}
}

// Register creates a user account and returns a token immediately.
// Every self-registered account gets the plain user role; managers and
// admins are promoted out of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return fail(c, http.StatusBadRequest, "fullName, email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "create user failed")
	}
	uid, err := h.Users.Create(ctx, req.FullName, req.Email, hash, req.Phone,
		strings.ToUpper(strings.TrimSpace(req.LicensePlate)), model.RoleUser)
	if err != nil {
		switch err {
		case repository.ErrEmailExists:
			return fail(c, http.StatusConflict, "email already exists")
		case repository.ErrPhoneExists:
			return fail(c, http.StatusConflict, "phone already exists")
		case repository.ErrPlateExists:
			return fail(c, http.StatusConflict, "license plate already registered")
		}
		return fail(c, http.StatusInternalServerError, "create user failed")
	}

	token, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, model.RoleUser, req.Email, h.Cfg.TokenTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue token failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	return respond(c, http.StatusCreated, "registered", authData{
		User: toUserPart(u), Token: token.Token, Expires: token.Exp,
	})
}

// Login verifies credentials and returns a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	// Federated accounts have no password hash and must use Google login.
	if u.PasswordHash == "" || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, u.Email, h.Cfg.TokenTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue token failed")
	}
	return respond(c, http.StatusOK, "logged in", authData{
		User: toUserPart(u), Token: token.Token, Expires: token.Exp,
	})
}

// googleTokenInfo is the subset of Google's tokeninfo response we need.
type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleLogin verifies a Google id_token and creates or fetches the
// matching account by email. Accounts created this way carry no password
// and are flagged needsProfileUpdate until they register a phone and
// license plate.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	if h.Cfg.GoogleClientID == "" {
		return fail(c, http.StatusNotImplemented, "google login is not configured")
	}
	var req googleLoginReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		return fail(c, http.StatusBadRequest, "id_token required")
	}

	info, err := h.verifyGoogleToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "invalid google token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, info.Email)
	if err == sql.ErrNoRows {
		name := info.Name
		if name == "" {
			name = info.Email
		}
		uid, cerr := h.Users.Create(ctx, name, info.Email, "", "", "", model.RoleUser)
		if cerr != nil {
			return fail(c, http.StatusInternalServerError, "create user failed")
		}
		u, err = h.Users.GetByID(ctx, uid)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}

	token, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, u.Email, h.Cfg.TokenTTLDays)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue token failed")
	}
	return respond(c, http.StatusOK, "logged in", authData{
		User:               toUserPart(u),
		Token:              token.Token,
		Expires:            token.Exp,
		NeedsProfileUpdate: u.Phone == "" || u.LicensePlate == "",
	})
}

// verifyGoogleToken checks an id_token against Google's tokeninfo
// endpoint and validates the audience matches our client id.
func (h *AuthHandler) verifyGoogleToken(ctx context.Context, idToken string) (*googleTokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://oauth2.googleapis.com/tokeninfo?id_token="+idToken, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, echo.ErrUnauthorized
	}
	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.Aud != h.Cfg.GoogleClientID || info.EmailVerified != "true" || info.Email == "" {
		return nil, echo.ErrUnauthorized
	}
	info.Email = strings.ToLower(info.Email)
	return &info, nil
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	return respond(c, http.StatusOK, "profile", toUserPart(u))
}

type updateProfileReq struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	LicensePlate string `json:"licensePlate"`
}

// UpdateProfile lets the user fill in or change their name, phone and
// license plate. Google accounts use this to complete their profile.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return fail(c, http.StatusBadRequest, "fullName is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Users.UpdateProfile(ctx, uid, req.FullName, req.Phone, req.LicensePlate); err != nil {
		switch err {
		case repository.ErrPhoneExists:
			return fail(c, http.StatusConflict, "phone already exists")
		case repository.ErrPlateExists:
			return fail(c, http.StatusConflict, "license plate already registered")
		}
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	return respond(c, http.StatusOK, "profile updated", toUserPart(u))
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword verifies the current password before storing a new
// hash. Federated accounts without a password may set one directly.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.NewPassword) == "" {
		return fail(c, http.StatusBadRequest, "newPassword required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	if u.PasswordHash != "" && !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return fail(c, http.StatusUnauthorized, "current password is incorrect")
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "hash failed")
	}
	if err := h.Users.UpdatePassword(ctx, uid, hash); err != nil {
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	return respond(c, http.StatusOK, "password changed", nil)
}

package api

import (
	"net/http"

	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new instance of AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a customer account --> POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	req := entity.RegisterRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}

	session, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusCreated, "Registration successful", session)
}

// Login --> POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	req := entity.LoginRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}

	session, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Login successful", session)
}

// Refresh --> POST /auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	req := entity.RefreshRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}
	if req.RefreshToken == "" {
		return fail(c, http.StatusBadRequest, "Refresh token is required")
	}

	session, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Token refreshed", session)
}

// GetProfile --> GET /auth/profile
func (h *AuthHandler) GetProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Profile fetched", user)
}

// UpdateProfile --> PUT /auth/profile
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	req := entity.UpdateProfileRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}

	user, err := h.authService.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Profile updated", user)
}

// ChangePassword --> PUT /auth/change-password
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	req := entity.ChangePasswordRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "Both current_password and new_password are required")
	}

	if err := h.authService.ChangePassword(c.Request().Context(), userID, req); err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Password changed successfully", nil)
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/middleware"
	"github.com/lac-hong-legacy/tutor_api/shared"
)

type AuthHandler struct {
	authSvc AuthServiceInterface
}

func NewAuthHandler(authSvc AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
	}
}

// @Summary Register a new user
// @Description Create a new user account and issue a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param registerRequest body dto.RegisterRequest true "Registration details"
// @Success 201 {object} shared.Response{data=dto.RegisterResponse}
// @Failure 400 {object} shared.Response
// @Router /api/v1/user/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.authSvc.Register(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "User registered successfully", resp)
}

// @Summary Login user
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body dto.LoginRequest true "Login credentials"
// @Success 200 {object} shared.Response{data=dto.LoginResponse}
// @Failure 400 {object} shared.Response
// @Router /api/v1/user/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.authSvc.Login(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Login successful", resp)
}

// @Summary Google sign-in
// @Description Exchange a Google authorization code for a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param googleRequest body dto.GoogleLoginRequest true "Authorization code"
// @Success 200 {object} shared.Response{data=dto.LoginResponse}
// @Router /api/v1/user/google [post]
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	var req dto.GoogleLoginRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.authSvc.GoogleLogin(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Login successful", resp)
}

// @Summary Refresh access token
// @Description Rotate a refresh token. Presenting an inactive token revokes every session of the user
// @Tags auth
// @Accept json
// @Produce json
// @Param refreshRequest body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} shared.Response{data=dto.TokenPair}
// @Failure 400 {object} shared.Response
// @Failure 403 {object} shared.Response
// @Router /api/v1/user/refresh [post]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.authSvc.RefreshToken(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Token refreshed successfully", resp)
}

// @Summary Logout user
// @Description Remove one refresh token from the active set
// @Tags auth
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param logoutRequest body dto.LogoutRequest true "Refresh token"
// @Success 200 {object} shared.Response
// @Failure 400 {object} shared.Response
// @Failure 403 {object} shared.Response
// @Failure 404 {object} shared.Response
// @Router /api/v1/user/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authSvc.Logout(middleware.UserIDFrom(c), req.RefreshToken); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Logout successful", nil)
}

// @Summary Delete account
// @Description Delete the caller's account. Google accounts skip the password check
// @Tags auth
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param deleteRequest body dto.DeleteUserRequest true "Account to delete"
// @Success 200 {object} shared.Response
// @Router /api/v1/user/deleteUser [put]
func (h *AuthHandler) DeleteUser(c *fiber.Ctx) error {
	var req dto.DeleteUserRequest
	if err := shared.ParseAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authSvc.DeleteUser(middleware.UserIDFrom(c), req); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "User deleted successfully", nil)
}

package dto

import "time"

// ==================== AUTHENTICATION REQUEST DTOs ====================

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"student@example.com"`
	Username string `json:"username" validate:"required,min=2,max=50" example:"noa"`
	Password string `json:"password" validate:"required,strong_password" example:"Secret123"`
}

func (r *RegisterRequest) Validate() error {
	return GetValidator().Struct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"student@example.com"`
	Password string `json:"password" validate:"required" example:"Secret123"`
}

func (l *LoginRequest) Validate() error {
	return GetValidator().Struct(l)
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

func (r *RefreshTokenRequest) Validate() error {
	return GetValidator().Struct(r)
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

func (l *LogoutRequest) Validate() error {
	return GetValidator().Struct(l)
}

// DeleteUserRequest.Password may be empty for Google accounts.
type DeleteUserRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"max=128"`
}

func (d *DeleteUserRequest) Validate() error {
	return GetValidator().Struct(d)
}

type GoogleLoginRequest struct {
	Code        string `json:"code" validate:"required"`
	RedirectURI string `json:"redirectUri" validate:"required,url"`
}

func (g *GoogleLoginRequest) Validate() error {
	return GetValidator().Struct(g)
}

// ==================== AUTHENTICATION RESPONSE DTOs ====================

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type RegisterResponse struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResponse struct {
	UserProfileResponse
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RateLimitInfo struct {
	Allowed   bool       `json:"allowed"`
	Remaining int        `json:"remaining"`
	ResetTime *time.Time `json:"resetTime,omitempty"`
}

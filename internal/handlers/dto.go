package handlers

import "github.com/Skotchmaster/product_api/internal/models"

type RegisterRequest struct {
	Username string `json:"username" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	UserID       string `json:"userId" validate:"required,uuid"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func newTokenResponse(p *models.TokenPair) TokenResponse {
	return TokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

type MeResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

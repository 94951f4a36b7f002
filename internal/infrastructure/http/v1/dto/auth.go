package dto

import (
	"rentory/internal/domain/auth"
)

// RefreshTokenRequest exchanges a refresh token for a new pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ChangePasswordRequest for changing own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// LoginResponse is the login payload: tokens plus the authenticated user.
type LoginResponse struct {
	Tokens *auth.TokenPair `json:"tokens"`
	User   *auth.User      `json:"user"`
}

// UserListQuery narrows user listings.
type UserListQuery struct {
	Email    string `form:"email"`
	IsActive *bool  `form:"isActive"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a user filter.
func (q *UserListQuery) ToFilter() auth.UserFilter {
	filter := auth.UserFilter{
		Email:    q.Email,
		IsActive: q.IsActive,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	return filter
}

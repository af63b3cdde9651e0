package dto

import (
	"time"

	"github.com/supportdesk/ticket-system/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the public view of an account; no credential material.
type UserResponse struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	Email    *string `json:"email"`
}

// LoginResponse carries the authenticated user and their token.
type LoginResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// FromUser maps a domain user.
func FromUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     string(u.Role),
		Email:    u.Email,
	}
}

// FromUsers maps a slice of users.
func FromUsers(users []domain.User) []UserResponse {
	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, FromUser(&users[i]))
	}
	return result
}

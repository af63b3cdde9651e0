package domain

import "time"

// UserRole separates regular requesters from administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

// User models an account that can create, work on, or be assigned tickets.
// The ticket core never mutates users; it resolves ids to display names on
// read paths.
type User struct {
	ID           int64
	Username     string
	FullName     string
	Role         UserRole
	Email        *string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

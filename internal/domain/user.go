package domain

import "time"

// UserRole enumerates operator roles.
type UserRole string

const (
	UserRoleAgent   UserRole = "agent"
	UserRoleManager UserRole = "manager"
	UserRoleAdmin   UserRole = "admin"
)

// User is an operator who works the queue and can be an escalation target.
type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
	ModifiedAt   time.Time
}

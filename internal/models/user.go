package models

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleRep   Role = "rep"
)

// ParseRole maps a client-supplied role string onto the closed enum.
// Empty defaults to rep.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleRep, "":
		return RoleRep, true
	default:
		return "", false
	}
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// Sanitized strips the password hash before a user leaves the service layer.
func (u User) Sanitized() User {
	u.PasswordHash = nil
	return u
}

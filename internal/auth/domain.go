package auth

import (
	"time"

	"github.com/naguara/naguara-pos/internal/shared"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	FullName     string
	PasswordHash string
	Role         string
	IsActive     bool
	LastLoginAt  *time.Time
}

// Current converts the account into the identity attached to requests.
func (u User) Current() shared.CurrentUser {
	return shared.CurrentUser{ID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role}
}

// UserView is the JSON shape returned by the auth endpoints.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func viewOf(u shared.CurrentUser) UserView {
	return UserView{ID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role}
}

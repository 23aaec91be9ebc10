package domain

import "time"

type UserRole string

const (
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleAccounting UserRole = "ACCOUNTING"
	UserRoleWarehouse  UserRole = "WAREHOUSE"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is the identity of the caller of an operation. It is passed down
// explicitly instead of being read from ambient storage.
type Session struct {
	UserID   int64
	Username string
	Role     UserRole
}

func (s Session) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

package models

import (
	"fmt"
	"time"
)

// Role is the closed set of user roles. Authorization decisions go through
// ParseRole / IsAdmin instead of ad-hoc string comparison.
type Role string

const (
	RoleSubmitter     Role = "Submitter"
	RoleModerator     Role = "Moderator"
	RoleAnalyst       Role = "Analyst"
	RoleSearcher      Role = "Searcher"
	RoleAdministrator Role = "Administrator"
)

// ParseRole validates a role string against the closed enum.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSubmitter, RoleModerator, RoleAnalyst, RoleSearcher, RoleAdministrator:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role: %q", s)
	}
}

// IsAdmin reports whether the role grants access to admin-only routes.
func (r Role) IsAdmin() bool {
	return r == RoleAdministrator
}

// User is a registered account. Password is always stored bcrypt-hashed.
type User struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`

	Role     Role `json:"role" gorm:"default:'Submitter'"`
	IsActive bool `json:"isActive" gorm:"default:true"`

	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// TableName sets the explicit table name.
func (User) TableName() string {
	return "users"
}

// PublicID is the identifier embedded in tokens and returned to clients.
func (u *User) PublicID() string {
	return fmt.Sprintf("%d", u.ID)
}

package user

import (
	"strconv"
	"time"
)

// User is a learner (or a service account) known to the LMS.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsService    bool      `json:"is_service" db:"is_service"`
	IDVerified   bool      `json:"id_verified" db:"id_verified"`
	IsRestricted bool      `json:"is_restricted" db:"is_restricted"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// StringID is the ID as reported to external services.
func (u User) StringID() string {
	return strconv.FormatInt(u.ID, 10)
}

// NewServiceUser holds the data needed to create or reactivate a service account.
type NewServiceUser struct {
	Username string `json:"username" validate:"required,username,max=150"`
	Email    string `json:"email" validate:"required,email"`
}

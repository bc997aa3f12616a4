package domain

import "time"

// User represents an authenticated identity in the platform.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the read-only view of the signed-in user shared by the services.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (u *User) Identity() Identity {
	if u == nil {
		return Identity{}
	}
	return Identity{UserID: u.ID, Email: u.Email}
}

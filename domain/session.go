package domain

import "time"

// Session is a signed-in session cached in Redis. It is the identity source
// every workspace re-reads when it needs a fresh identity.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

func (s *Session) Identity() Identity {
	if s == nil {
		return Identity{}
	}
	return Identity{UserID: s.UserID, Email: s.Email}
}

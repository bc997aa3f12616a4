package monitor

import "time"

// Status is the result of the last probe round.
type Status struct {
	PostgreSQL  bool      `json:"postgresql"`
	Redis       bool      `json:"redis"`
	Journal     bool      `json:"journal"`
	JournalSize int       `json:"journal_size"`
	LastCheck   time.Time `json:"last_check"`
}

// Healthy reports whether both remote stores answered.
func (s Status) Healthy() bool {
	return s.PostgreSQL && s.Redis
}

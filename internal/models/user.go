package models

import "time"

// User is an account row. Only the id is threaded through the core; the
// rest belongs to the auth boundary.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

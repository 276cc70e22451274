// Package store persists chat data through database/sql. All writes are
// append-only: messages are never updated or deleted for the lifetime of
// the account.
package store

import "database/sql"

// Store runs the SQL for users, the model catalog, and chat messages.
type Store struct {
	db *sql.DB
}

// New builds a Store over an opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

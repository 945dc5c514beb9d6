// Package store is the data access layer for crawled records.
//
// It treats SQLite as a record store with four primitives: get by unique
// key, upsert by unique key, delete by foreign key, and order-by-field
// queries. Products are keyed by canonical URL; search hits live and die
// with their parent search.
package store

import "database/sql"

// Store wraps an already-opened database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an open connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

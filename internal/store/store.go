package store

import (
	"database/sql"
	"errors"

	"go.uber.org/zap"
)

// Store is the Postgres-backed document store the engine consumes. One
// struct covers all entity collections; the engine depends on a narrow
// interface so tests can fake it.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var ErrNotFound = errors.New("not found")

func New(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Package storage implements the API service's persistence layer on
// PostgreSQL via sqlx.
package storage

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jobflowhq/jobflow/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// Cursor is a keyset pagination position: the (created_at, id) pair of
// the last row on the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

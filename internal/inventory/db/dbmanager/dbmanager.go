// Package dbmanager manages the PostgreSQL connection pool and hands out
// per-request connections with sane lock and statement timeouts.
package dbmanager

import (
	"context"
	"database/sql"
)

// Pool hands out per-request connections.
type Pool interface {
	Conn(ctx context.Context) (Conn, error)
	Stats() (requests, returns uint64)
}

// Conn is a single database connection checked out for one request.
type Conn interface {
	Conn() *sql.Conn
	Close(ctx context.Context)
}

package dbmanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/inventory/config"
)

type postgresConn struct {
	conn   *sql.Conn
	cancel context.CancelFunc
	pool   *postgresPool
}

type postgresPool struct {
	connRequests uint64
	connReturns  uint64
	db           *sql.DB
}

// NewPostgresqlDb opens the configured database and verifies connectivity.
func NewPostgresqlDb() (Pool, error) {
	dsn := config.Dsn()

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Error().Err(err).Msg("failed to open db")
		return nil, err
	}

	err = sqlDB.Ping()
	if err != nil {
		log.Error().Err(err).Msg("failed to ping db")
		return nil, err
	}

	return &postgresPool{db: sqlDB}, nil
}

// Conn returns a connection from the pool with lock and statement timeouts
// applied. Advisory locks taken during placement and number allocation are
// bounded by the lock timeout.
func (p *postgresPool) Conn(ctx context.Context) (Conn, error) {
	ctx, cancel := context.WithCancel(ctx)

	conn, err := p.db.Conn(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to obtain connection")
		cancel()
		return nil, err
	}

	if _, err = conn.ExecContext(ctx, "SET lock_timeout = '5s'"); err != nil {
		log.Error().Err(err).Msg("failed to set lock timeout")
		conn.Close()
		cancel()
		return nil, err
	}
	if _, err = conn.ExecContext(ctx, "SET statement_timeout = '5s'"); err != nil {
		log.Error().Err(err).Msg("failed to set statement timeout")
		conn.Close()
		cancel()
		return nil, err
	}

	h := &postgresConn{
		cancel: cancel,
		pool:   p,
		conn:   conn,
	}

	p.connRequests++
	return h, nil
}

// Stats returns the number of connection requests and returns.
func (p *postgresPool) Stats() (requests, returns uint64) {
	return p.connRequests, p.connReturns
}

// Close returns the connection to the pool.
func (h *postgresConn) Close(ctx context.Context) {
	if h.cancel != nil {
		h.cancel()
	}
	if h.conn != nil {
		h.conn.Close()
	}
	h.pool.connReturns++
}

// Conn returns the underlying connection.
func (h *postgresConn) Conn() *sql.Conn {
	return h.conn
}

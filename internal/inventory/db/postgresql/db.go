// Package postgresql implements the inventory database managers against
// PostgreSQL. Every multi-step mutation runs inside one transaction; rack
// occupancy writes and asset-number allocation additionally serialize on
// advisory locks so concurrent requests cannot both pass validation and both
// write.
package postgresql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/dbmanager"
)

type inventoryManager struct {
	c dbmanager.Conn
}

type changePlanManager struct {
	c dbmanager.Conn
}

type wiringManager struct {
	c dbmanager.Conn
}

type executionManager struct {
	c dbmanager.Conn
}

type connectionManager struct {
	c dbmanager.Conn
}

func (m *inventoryManager) conn() *sql.Conn  { return m.c.Conn() }
func (m *changePlanManager) conn() *sql.Conn { return m.c.Conn() }
func (m *wiringManager) conn() *sql.Conn     { return m.c.Conn() }
func (m *executionManager) conn() *sql.Conn  { return m.c.Conn() }

func (m *connectionManager) Close(ctx context.Context) {
	m.c.Close(ctx)
}

// NewInventoryDb returns the manager set bound to one checked-out
// connection.
func NewInventoryDb(c dbmanager.Conn) (*inventoryManager, *changePlanManager, *wiringManager, *executionManager, *connectionManager) {
	im := &inventoryManager{c: c}
	pm := &changePlanManager{c: c}
	wm := &wiringManager{c: c}
	xm := &executionManager{c: c}
	return im, pm, wm, xm, &connectionManager{c: c}
}

// Postgres error codes of interest.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapPgError translates a driver error into the dberror taxonomy.
func mapPgError(ctx context.Context, err error, what string) apperrors.Error {
	if err == sql.ErrNoRows {
		return dberror.ErrNotFound.Msg(what + " not found")
	}
	if pgErr, ok := err.(*pgconn.PgError); ok {
		switch pgErr.Code {
		case pgUniqueViolation:
			return dberror.ErrUniqueViolation.Msg(what + " violates a uniqueness constraint")
		case pgForeignKeyViolation:
			return dberror.ErrInvalidInput.Msg(what + " references a missing row")
		case pgCheckViolation:
			return dberror.ErrInvalidInput.Msg(what + " fails a check constraint")
		}
	}
	log.Ctx(ctx).Error().Err(err).Str("entity", what).Msg("database error")
	return dberror.ErrDatabase.Err(err)
}

// lockRack takes the per-rack advisory lock for the rest of the
// transaction. Placement checks and writes for a rack serialize on it.
func lockRack(ctx context.Context, tx *sql.Tx, rackID uuid.UUID) apperrors.Error {
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, rackID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("rack_id", rackID.String()).Msg("failed to lock rack")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// assetNumberLockKey serializes asset-number allocation across the pool.
const assetNumberLockKey = int64(0x7261636b644e554d) // "rackdNUM"

func lockAssetNumbers(ctx context.Context, tx *sql.Tx) apperrors.Error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, assetNumberLockKey); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to lock asset number pool")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// begin starts a transaction with rollback-on-error cleanup handled by the
// caller via the returned finish func: finish(&err) in a defer.
func begin(ctx context.Context, conn *sql.Conn) (*sql.Tx, func(*apperrors.Error), apperrors.Error) {
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to start transaction")
		return nil, nil, dberror.ErrDatabase.Err(err)
	}
	finish := func(errp *apperrors.Error) {
		if *errp != nil {
			tx.Rollback()
			return
		}
		if err := tx.Commit(); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to commit transaction")
			*errp = dberror.ErrDatabase.Err(err)
		}
	}
	return tx, finish, nil
}

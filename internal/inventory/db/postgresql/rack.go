package postgresql

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

const rackColumns = `rack_id, datacenter, row_letter, rack_num, height, created_at`

func scanRack(row interface{ Scan(...any) error }) (*models.Rack, error) {
	var r models.Rack
	err := row.Scan(&r.RackID, &r.Datacenter, &r.RowLetter, &r.RackNum, &r.Height, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRack inserts the rack and provisions its left and right PDU banks.
func (mm *inventoryManager) CreateRack(ctx context.Context, rack *models.Rack) (err apperrors.Error) {
	if rack.Height < 1 {
		return dberror.ErrInvalidInput.Msg("rack height must be at least 1")
	}
	if rack.RackID == uuid.Nil {
		rack.RackID = uuid.New()
	}
	tx, finish, err := begin(ctx, mm.conn())
	if err != nil {
		return err
	}
	defer finish(&err)

	query := `
		INSERT INTO racks (rack_id, datacenter, row_letter, rack_num, height)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at;
	`
	errdb := tx.QueryRowContext(ctx, query,
		rack.RackID, rack.Datacenter, rack.RowLetter, rack.RackNum, rack.Height).Scan(&rack.CreatedAt)
	if errdb != nil {
		return mapPgError(ctx, errdb, "rack")
	}

	// Provision both PDU banks up front; live outlets exist whether or not
	// anything is plugged into them.
	for _, side := range []string{models.PDULeft, models.PDURight} {
		for n := 1; n <= models.PDUPortsPerSide; n++ {
			_, errdb = tx.ExecContext(ctx, `
				INSERT INTO pdu_ports (pdu_port_id, rack_id, left_right, port_number)
				VALUES ($1, $2, $3, $4);
			`, uuid.New(), rack.RackID, side, n)
			if errdb != nil {
				return mapPgError(ctx, errdb, "pdu port")
			}
		}
	}
	return nil
}

func (mm *inventoryManager) GetRack(ctx context.Context, rackID uuid.UUID) (*models.Rack, apperrors.Error) {
	row := mm.conn().QueryRowContext(ctx,
		`SELECT `+rackColumns+` FROM racks WHERE rack_id = $1;`, rackID)
	rack, err := scanRack(row)
	if err != nil {
		return nil, mapPgError(ctx, err, "rack")
	}
	return rack, nil
}

func (mm *inventoryManager) GetRackByLocation(ctx context.Context, datacenter, rowLetter string, rackNum int) (*models.Rack, apperrors.Error) {
	row := mm.conn().QueryRowContext(ctx,
		`SELECT `+rackColumns+` FROM racks WHERE datacenter = $1 AND row_letter = $2 AND rack_num = $3;`,
		datacenter, rowLetter, rackNum)
	rack, err := scanRack(row)
	if err != nil {
		return nil, mapPgError(ctx, err, "rack")
	}
	return rack, nil
}

func (mm *inventoryManager) ListRacks(ctx context.Context, datacenter string) ([]*models.Rack, apperrors.Error) {
	query := `SELECT ` + rackColumns + ` FROM racks`
	var args []any
	if datacenter != "" {
		query += ` WHERE datacenter = $1`
		args = append(args, datacenter)
	}
	query += ` ORDER BY datacenter, row_letter, rack_num;`

	rows, errdb := mm.conn().QueryContext(ctx, query, args...)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "rack")
	}
	defer rows.Close()

	var racks []*models.Rack
	for rows.Next() {
		rack, err := scanRack(rows)
		if err != nil {
			return nil, mapPgError(ctx, err, "rack")
		}
		racks = append(racks, rack)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "rack")
	}
	return racks, nil
}

// DeleteRack removes an empty rack. Deletion is refused while any asset,
// live or draft, still occupies it.
func (mm *inventoryManager) DeleteRack(ctx context.Context, rackID uuid.UUID) (err apperrors.Error) {
	tx, finish, err := begin(ctx, mm.conn())
	if err != nil {
		return err
	}
	defer finish(&err)

	if err = lockRack(ctx, tx, rackID); err != nil {
		return err
	}

	var occupants int
	errdb := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE rack_id = $1;`, rackID).Scan(&occupants)
	if errdb != nil {
		return mapPgError(ctx, errdb, "rack")
	}
	if occupants > 0 {
		log.Ctx(ctx).Info().Str("rack_id", rackID.String()).Int("occupants", occupants).Msg("rack still occupied")
		return dberror.ErrInUse.Msg("rack still holds assets")
	}

	res, errdb := tx.ExecContext(ctx, `DELETE FROM racks WHERE rack_id = $1;`, rackID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "rack")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("rack not found")
	}
	return nil
}

package postgresql

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

const decommissionedColumns = `record_id, asset_number, hostname, owner, snapshot, decommissioned_by, decommissioned_at`

func scanDecommissioned(row interface{ Scan(...any) error }) (*models.DecommissionedAsset, error) {
	var d models.DecommissionedAsset
	err := row.Scan(&d.RecordID, &d.AssetNumber, &d.Hostname, &d.Owner, &d.Snapshot,
		&d.DecommissionedBy, &d.DecommissionedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DecommissionLiveAsset archives the frozen snapshot and deletes the live
// row in one transaction. The delete cascades the asset's ports; peers'
// connection pointers and drafts' related_asset back-references reset to
// NULL via their foreign keys, so nothing dangles.
func (mm *inventoryManager) DecommissionLiveAsset(ctx context.Context, assetID uuid.UUID, snapshot []byte, actingUser string) (rec *models.DecommissionedAsset, err apperrors.Error) {
	if len(snapshot) == 0 {
		return nil, dberror.ErrInvalidInput.Msg("empty decommission snapshot")
	}
	tx, finish, err := begin(ctx, mm.conn())
	if err != nil {
		return nil, err
	}
	defer finish(&err)

	row := tx.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1 AND change_plan_id IS NULL FOR UPDATE;`, assetID)
	live, errdb := scanAsset(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}

	rec = &models.DecommissionedAsset{
		RecordID:         uuid.New(),
		AssetNumber:      live.AssetNumber,
		Hostname:         live.Hostname,
		Owner:            live.Owner,
		Snapshot:         snapshot,
		DecommissionedBy: actingUser,
	}
	errdb = tx.QueryRowContext(ctx, `
		INSERT INTO decommissioned_assets (record_id, asset_number, hostname, owner, snapshot, decommissioned_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING decommissioned_at;
	`, rec.RecordID, rec.AssetNumber, rec.Hostname, rec.Owner, rec.Snapshot, rec.DecommissionedBy).
		Scan(&rec.DecommissionedAt)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "decommissioned asset")
	}

	if _, errdb = tx.ExecContext(ctx, `DELETE FROM assets WHERE asset_id = $1;`, assetID); errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}

	log.Ctx(ctx).Info().
		Str("asset_id", assetID.String()).
		Str("record_id", rec.RecordID.String()).
		Str("by", actingUser).
		Msg("asset decommissioned")
	return rec, nil
}

func (mm *inventoryManager) ListDecommissionedAssets(ctx context.Context) ([]*models.DecommissionedAsset, apperrors.Error) {
	rows, errdb := mm.conn().QueryContext(ctx,
		`SELECT `+decommissionedColumns+` FROM decommissioned_assets ORDER BY decommissioned_at DESC;`)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "decommissioned asset")
	}
	defer rows.Close()

	var records []*models.DecommissionedAsset
	for rows.Next() {
		rec, errdb := scanDecommissioned(rows)
		if errdb != nil {
			return nil, mapPgError(ctx, errdb, "decommissioned asset")
		}
		records = append(records, rec)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "decommissioned asset")
	}
	return records, nil
}

package postgresql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/config"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/placement"
)

const assetColumns = `asset_id, asset_number, hostname, rack_id, rack_position, model_id,
	chassis_id, chassis_slot, owner, comment, change_plan_id, related_asset_id,
	is_decommissioned, created_at, updated_at`

func scanAsset(row interface{ Scan(...any) error }) (*models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.AssetID, &a.AssetNumber, &a.Hostname, &a.RackID, &a.RackPosition,
		&a.ModelID, &a.ChassisID, &a.ChassisSlot, &a.Owner, &a.Comment,
		&a.ChangePlanID, &a.RelatedAssetID, &a.IsDecommissioned, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// effectiveOccupantsTx lists the assets occupying the rack in the given
// scope: live rows without a draft override in the plan, plus the plan's
// drafts, minus decommission drafts (their units free up on execution) and
// minus the excluded asset and its counterpart in the other scope.
func effectiveOccupantsTx(ctx context.Context, tx *sql.Tx, rackID uuid.UUID, planID uuid.NullUUID, exclude ...uuid.NullUUID) ([]placement.Occupant, apperrors.Error) {
	query := `
		SELECT a.asset_id, a.asset_number, a.rack_position, m.height
		FROM assets a
		JOIN it_models m ON m.model_id = a.model_id
		WHERE a.rack_id = $1
		  AND NOT a.is_decommissioned
		  AND (
		    ($2::uuid IS NULL AND a.change_plan_id IS NULL)
		    OR ($2::uuid IS NOT NULL AND (
		      a.change_plan_id = $2
		      OR (a.change_plan_id IS NULL AND NOT EXISTS (
		        SELECT 1 FROM assets d
		        WHERE d.change_plan_id = $2 AND d.related_asset_id = a.asset_id))))
		  );
	`
	rows, errdb := tx.QueryContext(ctx, query, rackID, planID)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}
	defer rows.Close()

	excluded := func(id uuid.UUID) bool {
		for _, e := range exclude {
			if e.Valid && e.UUID == id {
				return true
			}
		}
		return false
	}

	var occupants []placement.Occupant
	for rows.Next() {
		var (
			id     uuid.UUID
			number sql.NullInt64
			pos    int
			height int
		)
		if errdb := rows.Scan(&id, &number, &pos, &height); errdb != nil {
			return nil, mapPgError(ctx, errdb, "asset")
		}
		if excluded(id) {
			continue
		}
		label := (&models.Asset{AssetNumber: number}).NumberLabel()
		occupants = append(occupants, placement.Occupant{
			AssetID:  id,
			Label:    label,
			Position: pos,
			Height:   height,
		})
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}
	return occupants, nil
}

// checkPlacementTx re-runs the occupancy validation inside the write
// transaction, after the rack advisory lock is held.
func checkPlacementTx(ctx context.Context, tx *sql.Tx, rackID uuid.UUID, planID uuid.NullUUID, position, height int, exclude ...uuid.NullUUID) apperrors.Error {
	var rackHeight int
	if errdb := tx.QueryRowContext(ctx,
		`SELECT height FROM racks WHERE rack_id = $1;`, rackID).Scan(&rackHeight); errdb != nil {
		return mapPgError(ctx, errdb, "rack")
	}
	occupants, err := effectiveOccupantsTx(ctx, tx, rackID, planID, exclude...)
	if err != nil {
		return err
	}
	if errfit := placement.CheckFit(rackHeight, position, height, occupants); errfit != nil {
		return errfit.(apperrors.Error)
	}
	return nil
}

// allocateAssetNumberTx finds the smallest unused number in the configured
// pool. Index-backed gap scan instead of a linear sweep; the caller must
// hold the allocation advisory lock.
func allocateAssetNumberTx(ctx context.Context, tx *sql.Tx) (int64, apperrors.Error) {
	min := config.Config().AssetNumberMin
	max := config.Config().AssetNumberMax
	query := `
		SELECT MIN(candidate) FROM (
			SELECT $1::bigint AS candidate
			UNION ALL
			SELECT asset_number + 1 FROM assets
			WHERE asset_number >= $1 AND asset_number < $2
		) c
		WHERE NOT EXISTS (SELECT 1 FROM assets WHERE asset_number = c.candidate);
	`
	var number sql.NullInt64
	if errdb := tx.QueryRowContext(ctx, query, min, max).Scan(&number); errdb != nil {
		return 0, mapPgError(ctx, errdb, "asset number")
	}
	if !number.Valid || number.Int64 > max {
		return 0, dberror.ErrPoolExhausted
	}
	return number.Int64, nil
}

// CreateAsset inserts a live or draft asset. In one transaction it takes the
// rack advisory lock, re-validates occupancy, allocates an asset number for
// live rows when unset and provisions ports from the model template.
func (mm *inventoryManager) CreateAsset(ctx context.Context, asset *models.Asset) (err apperrors.Error) {
	if asset.RackPosition < 1 {
		return placement.ErrOutOfRackBounds.Msg("rack position starts below 1")
	}
	if asset.AssetID == uuid.Nil {
		asset.AssetID = uuid.New()
	}
	tx, finish, err := begin(ctx, mm.conn())
	if err != nil {
		return err
	}
	defer finish(&err)

	if err = mm.createAssetTx(ctx, tx, asset); err != nil {
		return err
	}
	return nil
}

func (mm *inventoryManager) createAssetTx(ctx context.Context, tx *sql.Tx, asset *models.Asset) apperrors.Error {
	if err := lockRack(ctx, tx, asset.RackID); err != nil {
		return err
	}

	model, err := getITModelTx(ctx, tx, asset.ModelID)
	if err != nil {
		return err
	}

	if err := checkPlacementTx(ctx, tx, asset.RackID, asset.ChangePlanID,
		asset.RackPosition, model.Height, asset.RelatedAssetID); err != nil {
		return err
	}

	if !asset.IsDraft() && !asset.AssetNumber.Valid {
		if err := lockAssetNumbers(ctx, tx); err != nil {
			return err
		}
		number, err := allocateAssetNumberTx(ctx, tx)
		if err != nil {
			return err
		}
		asset.AssetNumber = sql.NullInt64{Int64: number, Valid: true}
	}

	query := `
		INSERT INTO assets (asset_id, asset_number, hostname, rack_id, rack_position, model_id,
			chassis_id, chassis_slot, owner, comment, change_plan_id, related_asset_id, is_decommissioned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at;
	`
	errdb := tx.QueryRowContext(ctx, query,
		asset.AssetID, asset.AssetNumber, asset.Hostname, asset.RackID, asset.RackPosition,
		asset.ModelID, asset.ChassisID, asset.ChassisSlot, asset.Owner, asset.Comment,
		asset.ChangePlanID, asset.RelatedAssetID, asset.IsDecommissioned).
		Scan(&asset.CreatedAt, &asset.UpdatedAt)
	if errdb != nil {
		return mapPgError(ctx, errdb, "asset")
	}

	return provisionPortsTx(ctx, tx, asset, model)
}

func getITModelTx(ctx context.Context, tx *sql.Tx, modelID uuid.UUID) (*models.ITModel, apperrors.Error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+itModelColumns+` FROM it_models WHERE model_id = $1;`, modelID)
	model, errdb := scanITModel(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "model")
	}
	return model, nil
}

// UpdateAsset applies a partial update. Placement-relevant changes
// re-validate occupancy under the rack lock before writing.
func (mm *inventoryManager) UpdateAsset(ctx context.Context, assetID uuid.UUID, upd *models.AssetUpdate) (asset *models.Asset, err apperrors.Error) {
	tx, finish, err := begin(ctx, mm.conn())
	if err != nil {
		return nil, err
	}
	defer finish(&err)

	row := tx.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1 FOR UPDATE;`, assetID)
	asset, errdb := scanAsset(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}

	applyUpdate(asset, upd)

	model, err := getITModelTx(ctx, tx, asset.ModelID)
	if err != nil {
		return nil, err
	}

	if err = lockRack(ctx, tx, asset.RackID); err != nil {
		return nil, err
	}
	if err = checkPlacementTx(ctx, tx, asset.RackID, asset.ChangePlanID,
		asset.RackPosition, model.Height,
		uuid.NullUUID{UUID: asset.AssetID, Valid: true}, asset.RelatedAssetID); err != nil {
		return nil, err
	}

	query := `
		UPDATE assets SET asset_number = $2, hostname = $3, rack_id = $4, rack_position = $5,
			model_id = $6, chassis_id = $7, chassis_slot = $8, owner = $9, comment = $10,
			updated_at = now()
		WHERE asset_id = $1
		RETURNING updated_at;
	`
	errdb = tx.QueryRowContext(ctx, query,
		asset.AssetID, asset.AssetNumber, asset.Hostname, asset.RackID, asset.RackPosition,
		asset.ModelID, asset.ChassisID, asset.ChassisSlot, asset.Owner, asset.Comment).
		Scan(&asset.UpdatedAt)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}
	return asset, nil
}

func applyUpdate(asset *models.Asset, upd *models.AssetUpdate) {
	if upd.AssetNumber != nil {
		asset.AssetNumber = sql.NullInt64{Int64: *upd.AssetNumber, Valid: true}
	}
	if upd.ClearHostname {
		asset.Hostname = sql.NullString{}
	} else if upd.Hostname != nil {
		asset.Hostname = sql.NullString{String: *upd.Hostname, Valid: true}
	}
	if upd.RackID != nil {
		asset.RackID = *upd.RackID
	}
	if upd.RackPosition != nil {
		asset.RackPosition = *upd.RackPosition
	}
	if upd.ModelID != nil {
		asset.ModelID = *upd.ModelID
	}
	if upd.ClearChassis {
		asset.ChassisID = uuid.NullUUID{}
		asset.ChassisSlot = sql.NullInt32{}
	} else if upd.ChassisID != nil {
		asset.ChassisID = uuid.NullUUID{UUID: *upd.ChassisID, Valid: true}
	}
	if upd.ChassisSlot != nil {
		asset.ChassisSlot = sql.NullInt32{Int32: *upd.ChassisSlot, Valid: true}
	}
	if upd.Owner != nil {
		asset.Owner = *upd.Owner
	}
	if upd.Comment != nil {
		asset.Comment = *upd.Comment
	}
}

func (mm *inventoryManager) GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, apperrors.Error) {
	row := mm.conn().QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1;`, assetID)
	asset, errdb := scanAsset(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}
	return asset, nil
}

func (mm *inventoryManager) GetAssetByNumber(ctx context.Context, number int64) (*models.Asset, apperrors.Error) {
	row := mm.conn().QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_number = $1 AND change_plan_id IS NULL;`, number)
	asset, errdb := scanAsset(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}
	return asset, nil
}

// GetAssetByHostname resolves a hostname in the given scope. With a plan
// set, a draft in the plan shadows the live asset of the same hostname.
func (mm *inventoryManager) GetAssetByHostname(ctx context.Context, hostname string, planID uuid.NullUUID) (*models.Asset, apperrors.Error) {
	if planID.Valid {
		row := mm.conn().QueryRowContext(ctx,
			`SELECT `+assetColumns+` FROM assets WHERE hostname = $1 AND change_plan_id = $2;`,
			hostname, planID.UUID)
		asset, errdb := scanAsset(row)
		if errdb == nil {
			return asset, nil
		}
		if errdb != sql.ErrNoRows {
			return nil, mapPgError(ctx, errdb, "asset")
		}
	}
	row := mm.conn().QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE hostname = $1 AND change_plan_id IS NULL;`, hostname)
	asset, errdb := scanAsset(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}
	return asset, nil
}

func (mm *inventoryManager) ListLiveAssetsByRack(ctx context.Context, rackID uuid.UUID) ([]*models.Asset, apperrors.Error) {
	return mm.listAssets(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE rack_id = $1 AND change_plan_id IS NULL ORDER BY rack_position;`, rackID)
}

func (mm *inventoryManager) ListDraftAssetsByRack(ctx context.Context, rackID uuid.UUID, planID uuid.UUID) ([]*models.Asset, apperrors.Error) {
	return mm.listAssets(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE rack_id = $1 AND change_plan_id = $2 ORDER BY rack_position;`, rackID, planID)
}

func (mm *inventoryManager) listAssets(ctx context.Context, query string, args ...any) ([]*models.Asset, apperrors.Error) {
	rows, errdb := mm.conn().QueryContext(ctx, query, args...)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset, errdb := scanAsset(rows)
		if errdb != nil {
			return nil, mapPgError(ctx, errdb, "asset")
		}
		assets = append(assets, asset)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}
	return assets, nil
}

// DeleteAsset removes the row; ports cascade and peers' connection pointers
// reset via the FK.
func (mm *inventoryManager) DeleteAsset(ctx context.Context, assetID uuid.UUID) apperrors.Error {
	res, errdb := mm.conn().ExecContext(ctx, `DELETE FROM assets WHERE asset_id = $1;`, assetID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "asset")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("asset not found")
	}
	log.Ctx(ctx).Info().Str("asset_id", assetID.String()).Msg("asset deleted")
	return nil
}

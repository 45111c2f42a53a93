package postgresql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

const changePlanColumns = `plan_id, name, owner, execution_time, executed_at, created_at`

func scanChangePlan(row interface{ Scan(...any) error }) (*models.ChangePlan, error) {
	var p models.ChangePlan
	err := row.Scan(&p.PlanID, &p.Name, &p.Owner, &p.ExecutionTime, &p.ExecutedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (pm *changePlanManager) CreateChangePlan(ctx context.Context, plan *models.ChangePlan) apperrors.Error {
	if plan.Name == "" || plan.Owner == "" {
		return dberror.ErrInvalidInput.Msg("change plan needs a name and an owner")
	}
	if plan.PlanID == uuid.Nil {
		plan.PlanID = uuid.New()
	}
	query := `
		INSERT INTO change_plans (plan_id, name, owner, execution_time)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at;
	`
	errdb := pm.conn().QueryRowContext(ctx, query,
		plan.PlanID, plan.Name, plan.Owner, plan.ExecutionTime).Scan(&plan.CreatedAt)
	if errdb != nil {
		return mapPgError(ctx, errdb, "change plan")
	}
	return nil
}

func (pm *changePlanManager) GetChangePlan(ctx context.Context, planID uuid.UUID) (*models.ChangePlan, apperrors.Error) {
	row := pm.conn().QueryRowContext(ctx,
		`SELECT `+changePlanColumns+` FROM change_plans WHERE plan_id = $1;`, planID)
	plan, errdb := scanChangePlan(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "change plan")
	}
	return plan, nil
}

func (pm *changePlanManager) GetChangePlanByName(ctx context.Context, name, owner string) (*models.ChangePlan, apperrors.Error) {
	row := pm.conn().QueryRowContext(ctx,
		`SELECT `+changePlanColumns+` FROM change_plans WHERE name = $1 AND owner = $2;`, name, owner)
	plan, errdb := scanChangePlan(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "change plan")
	}
	return plan, nil
}

func (pm *changePlanManager) ListChangePlansByOwner(ctx context.Context, owner string) ([]*models.ChangePlan, apperrors.Error) {
	rows, errdb := pm.conn().QueryContext(ctx,
		`SELECT `+changePlanColumns+` FROM change_plans WHERE owner = $1 ORDER BY created_at;`, owner)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "change plan")
	}
	defer rows.Close()

	var plans []*models.ChangePlan
	for rows.Next() {
		plan, errdb := scanChangePlan(rows)
		if errdb != nil {
			return nil, mapPgError(ctx, errdb, "change plan")
		}
		plans = append(plans, plan)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "change plan")
	}
	return plans, nil
}

// DeleteChangePlan removes the plan; every scoped row (drafts, draft ports,
// draft PDU ports) goes with it via the cascade.
func (pm *changePlanManager) DeleteChangePlan(ctx context.Context, planID uuid.UUID) apperrors.Error {
	res, errdb := pm.conn().ExecContext(ctx, `DELETE FROM change_plans WHERE plan_id = $1;`, planID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "change plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("change plan not found")
	}
	return nil
}

func (pm *changePlanManager) MarkChangePlanExecuted(ctx context.Context, planID uuid.UUID) apperrors.Error {
	res, errdb := pm.conn().ExecContext(ctx,
		`UPDATE change_plans SET executed_at = now() WHERE plan_id = $1 AND executed_at IS NULL;`, planID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "change plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("change plan not found or already executed")
	}
	return nil
}

func (pm *changePlanManager) GetDraftForLive(ctx context.Context, planID uuid.UUID, liveAssetID uuid.UUID) (*models.Asset, apperrors.Error) {
	row := pm.conn().QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE change_plan_id = $1 AND related_asset_id = $2;`,
		planID, liveAssetID)
	asset, errdb := scanAsset(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "draft asset")
	}
	return asset, nil
}

func (pm *changePlanManager) ListDraftsByPlan(ctx context.Context, planID uuid.UUID) ([]*models.Asset, apperrors.Error) {
	rows, errdb := pm.conn().QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE change_plan_id = $1 ORDER BY created_at;`, planID)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "draft asset")
	}
	defer rows.Close()

	var drafts []*models.Asset
	for rows.Next() {
		draft, errdb := scanAsset(rows)
		if errdb != nil {
			return nil, mapPgError(ctx, errdb, "draft asset")
		}
		drafts = append(drafts, draft)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "draft asset")
	}
	return drafts, nil
}

func (pm *changePlanManager) SetDraftDecommissioned(ctx context.Context, draftID uuid.UUID, decommissioned bool) apperrors.Error {
	res, errdb := pm.conn().ExecContext(ctx,
		`UPDATE assets SET is_decommissioned = $2, updated_at = now()
		 WHERE asset_id = $1 AND change_plan_id IS NOT NULL;`, draftID, decommissioned)
	if errdb != nil {
		return mapPgError(ctx, errdb, "draft asset")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("draft asset not found")
	}
	return nil
}

// CloneAssetIntoPlan deep-copies a live asset into the plan scope in one
// transaction. Scalars and power connections come along (the referenced
// outlets are lazily copied into the plan); network port mac addresses are
// copied but live network connections are not. Draft wiring starts
// unconnected and is only established when the draft's own wiring is
// edited, so stale peer state is never adopted silently.
func (pm *changePlanManager) CloneAssetIntoPlan(ctx context.Context, liveAssetID uuid.UUID, planID uuid.UUID) (draft *models.Asset, err apperrors.Error) {
	tx, finish, err := begin(ctx, pm.conn())
	if err != nil {
		return nil, err
	}
	defer finish(&err)

	// Another request may have promoted the asset already.
	row := tx.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE change_plan_id = $1 AND related_asset_id = $2;`,
		planID, liveAssetID)
	existing, errdb := scanAsset(row)
	if errdb == nil {
		return existing, nil
	}
	if errdb != sql.ErrNoRows {
		return nil, mapPgError(ctx, errdb, "draft asset")
	}

	row = tx.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1 AND change_plan_id IS NULL;`, liveAssetID)
	live, errdb := scanAsset(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "asset")
	}

	draft = &models.Asset{
		AssetID:        uuid.New(),
		AssetNumber:    live.AssetNumber,
		Hostname:       live.Hostname,
		RackID:         live.RackID,
		RackPosition:   live.RackPosition,
		ModelID:        live.ModelID,
		ChassisID:      live.ChassisID,
		ChassisSlot:    live.ChassisSlot,
		Owner:          live.Owner,
		Comment:        live.Comment,
		ChangePlanID:   uuid.NullUUID{UUID: planID, Valid: true},
		RelatedAssetID: uuid.NullUUID{UUID: live.AssetID, Valid: true},
	}
	errdb = tx.QueryRowContext(ctx, `
		INSERT INTO assets (asset_id, asset_number, hostname, rack_id, rack_position, model_id,
			chassis_id, chassis_slot, owner, comment, change_plan_id, related_asset_id, is_decommissioned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false)
		RETURNING created_at, updated_at;
	`, draft.AssetID, draft.AssetNumber, draft.Hostname, draft.RackID, draft.RackPosition,
		draft.ModelID, draft.ChassisID, draft.ChassisSlot, draft.Owner, draft.Comment,
		draft.ChangePlanID, draft.RelatedAssetID).Scan(&draft.CreatedAt, &draft.UpdatedAt)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "draft asset")
	}

	if err = pm.cloneNetworkPortsTx(ctx, tx, live, draft); err != nil {
		return nil, err
	}
	if err = pm.clonePowerPortsTx(ctx, tx, live, draft, planID); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("asset_id", live.AssetID.String()).
		Str("draft_id", draft.AssetID.String()).
		Str("plan_id", planID.String()).
		Msg("asset promoted into change plan")
	return draft, nil
}

// cloneNetworkPortsTx copies names and mac addresses only; connections stay
// empty on purpose.
func (pm *changePlanManager) cloneNetworkPortsTx(ctx context.Context, tx *sql.Tx, live, draft *models.Asset) apperrors.Error {
	rows, errdb := tx.QueryContext(ctx,
		`SELECT port_name, mac_address FROM network_ports WHERE asset_id = $1;`, live.AssetID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	defer rows.Close()

	type portCopy struct {
		name string
		mac  sql.NullString
	}
	var copies []portCopy
	for rows.Next() {
		var c portCopy
		if errdb := rows.Scan(&c.name, &c.mac); errdb != nil {
			return mapPgError(ctx, errdb, "network port")
		}
		copies = append(copies, c)
	}
	if errdb := rows.Err(); errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}

	for _, c := range copies {
		if _, errdb := tx.ExecContext(ctx, `
			INSERT INTO network_ports (port_id, asset_id, port_name, mac_address, change_plan_id)
			VALUES ($1, $2, $3, $4, $5);
		`, uuid.New(), draft.AssetID, c.name, c.mac, draft.ChangePlanID); errdb != nil {
			return mapPgError(ctx, errdb, "network port")
		}
	}
	return nil
}

// clonePowerPortsTx copies power connections eagerly, resolving each
// referenced outlet to a draft copy.
func (pm *changePlanManager) clonePowerPortsTx(ctx context.Context, tx *sql.Tx, live, draft *models.Asset, planID uuid.UUID) apperrors.Error {
	rows, errdb := tx.QueryContext(ctx, `
		SELECT pp.port_name, q.rack_id, q.left_right, q.port_number
		FROM power_ports pp
		LEFT JOIN pdu_ports q ON q.pdu_port_id = pp.pdu_port_id
		WHERE pp.asset_id = $1;
	`, live.AssetID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "power port")
	}
	defer rows.Close()

	type portCopy struct {
		name       string
		rackID     uuid.NullUUID
		side       sql.NullString
		portNumber sql.NullInt32
	}
	var copies []portCopy
	for rows.Next() {
		var c portCopy
		if errdb := rows.Scan(&c.name, &c.rackID, &c.side, &c.portNumber); errdb != nil {
			return mapPgError(ctx, errdb, "power port")
		}
		copies = append(copies, c)
	}
	if errdb := rows.Err(); errdb != nil {
		return mapPgError(ctx, errdb, "power port")
	}

	for _, c := range copies {
		var pduRef uuid.NullUUID
		if c.rackID.Valid {
			draftPDU, err := getOrCreateDraftPDUPortTx(ctx, tx, c.rackID.UUID, c.side.String, int(c.portNumber.Int32), planID)
			if err != nil {
				return err
			}
			pduRef = uuid.NullUUID{UUID: draftPDU.PDUPortID, Valid: true}
		}
		if _, errdb := tx.ExecContext(ctx, `
			INSERT INTO power_ports (port_id, asset_id, port_name, pdu_port_id, change_plan_id)
			VALUES ($1, $2, $3, $4, $5);
		`, uuid.New(), draft.AssetID, c.name, pduRef, draft.ChangePlanID); errdb != nil {
			return mapPgError(ctx, errdb, "power port")
		}
	}
	return nil
}

package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/placement"
)

// ExecuteChangePlan commits a plan in one transaction.
//
// The pass structure keeps per-draft failure isolation without ever leaving
// a materialized asset with half its rewiring: drafts are validated first
// (reference resolution, occupancy, uniqueness, network and power
// destination conflicts) and failing drafts are excluded before any write.
// Because a failed draft leaves its live asset exactly where it is, the
// survivors are re-validated against the failed set until it stops growing;
// a draft that only fit under the assumption that a failed sibling would
// vacate its units or release its outlet fails with it. The stable
// survivor set is then applied as a unit — materialize scalars, resolve
// chassis references, rewire network and power ports, archive
// decommissions. An unexpected error during the apply passes rolls the
// whole plan back.
func (xm *executionManager) ExecuteChangePlan(ctx context.Context, plan *models.ChangePlan, actingUser string) (report *models.ExecutionReport, err apperrors.Error) {
	if plan.Executed() {
		return nil, dberror.ErrInvalidInput.Msg("change plan already executed")
	}
	report = &models.ExecutionReport{}

	tx, finish, err := begin(ctx, xm.conn())
	if err != nil {
		return nil, err
	}
	defer finish(&err)

	drafts, err := listDraftsTx(ctx, tx, plan.PlanID)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		if err = markExecutedTx(ctx, tx, plan.PlanID); err != nil {
			return nil, err
		}
		return report, nil
	}

	// Serialize against concurrent placement writes on every touched rack.
	if err = lockDraftRacksTx(ctx, tx, drafts); err != nil {
		return nil, err
	}

	ex := &planExecution{
		tx:     tx,
		planID: plan.PlanID,
		failed: make(map[uuid.UUID]string),
		liveOf: make(map[uuid.UUID]uuid.UUID),
	}

	// Each round can only add failures, so the loop ends after at most
	// len(drafts) rounds.
	for {
		grew := false
		for _, draft := range drafts {
			if _, bad := ex.failed[draft.AssetID]; bad {
				continue
			}
			if reason := ex.validateDraft(ctx, draft); reason != "" {
				ex.failed[draft.AssetID] = reason
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	var applied []*models.Asset
	for _, draft := range drafts {
		if _, bad := ex.failed[draft.AssetID]; bad {
			continue
		}
		if err = ex.materializeDraft(ctx, draft); err != nil {
			return nil, err
		}
		applied = append(applied, draft)
	}

	for _, draft := range applied {
		if err = ex.fixupChassis(ctx, draft); err != nil {
			return nil, err
		}
	}

	// Release every applied asset's live outlet claims before any are
	// reassigned; an outlet swap inside the plan must not depend on draft
	// apply order against the non-deferred unique index.
	for _, draft := range applied {
		if _, errdb := tx.ExecContext(ctx,
			`UPDATE power_ports SET pdu_port_id = NULL WHERE asset_id = $1 AND change_plan_id IS NULL;`,
			ex.liveOf[draft.AssetID]); errdb != nil {
			return nil, mapPgError(ctx, errdb, "power port")
		}
	}
	for _, draft := range applied {
		if err = ex.rewireDraft(ctx, draft); err != nil {
			return nil, err
		}
	}

	for _, draft := range applied {
		liveID := ex.liveOf[draft.AssetID]
		if draft.IsDecommissioned {
			if err = ex.archiveLive(ctx, liveID, actingUser); err != nil {
				return nil, err
			}
			report.Archived = append(report.Archived, liveID)
		} else {
			report.Materialized = append(report.Materialized, liveID)
		}
		// the applied draft row has served its purpose
		if _, errdb := tx.ExecContext(ctx, `DELETE FROM assets WHERE asset_id = $1;`, draft.AssetID); errdb != nil {
			return nil, mapPgError(ctx, errdb, "draft asset")
		}
	}

	// drop the plan's outlet copies, except those a failed draft still wires
	if _, errdb := tx.ExecContext(ctx, `
		DELETE FROM pdu_ports WHERE change_plan_id = $1
		AND NOT EXISTS (SELECT 1 FROM power_ports pp WHERE pp.pdu_port_id = pdu_ports.pdu_port_id);
	`, plan.PlanID); errdb != nil {
		return nil, mapPgError(ctx, errdb, "pdu port")
	}

	for draftID, reason := range ex.failed {
		report.Failed = append(report.Failed, models.DraftFailure{DraftID: draftID, Reason: reason})
	}
	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].DraftID.String() < report.Failed[j].DraftID.String()
	})

	if err = markExecutedTx(ctx, tx, plan.PlanID); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Str("plan_id", plan.PlanID.String()).
		Int("materialized", len(report.Materialized)).
		Int("archived", len(report.Archived)).
		Int("failed", len(report.Failed)).
		Msg("change plan executed")
	return report, nil
}

type planExecution struct {
	tx     *sql.Tx
	planID uuid.UUID
	failed map[uuid.UUID]string
	// liveOf maps a draft to the live asset it materialized into
	liveOf map[uuid.UUID]uuid.UUID
}

func listDraftsTx(ctx context.Context, tx *sql.Tx, planID uuid.UUID) ([]*models.Asset, apperrors.Error) {
	rows, errdb := tx.QueryContext(ctx,
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

func lockDraftRacksTx(ctx context.Context, tx *sql.Tx, drafts []*models.Asset) apperrors.Error {
	seen := make(map[uuid.UUID]bool)
	var racks []uuid.UUID
	for _, d := range drafts {
		if !seen[d.RackID] {
			seen[d.RackID] = true
			racks = append(racks, d.RackID)
		}
	}
	// stable order avoids lock-order inversion with concurrent executions
	sort.Slice(racks, func(i, j int) bool { return racks[i].String() < racks[j].String() })
	for _, rackID := range racks {
		if err := lockRack(ctx, tx, rackID); err != nil {
			return err
		}
	}
	return nil
}

func markExecutedTx(ctx context.Context, tx *sql.Tx, planID uuid.UUID) apperrors.Error {
	res, errdb := tx.ExecContext(ctx,
		`UPDATE change_plans SET executed_at = now() WHERE plan_id = $1 AND executed_at IS NULL;`, planID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "change plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrInvalidInput.Msg("change plan already executed")
	}
	return nil
}

// validateDraft returns a failure reason, or "" when the draft can be
// applied. Runs before any write.
func (ex *planExecution) validateDraft(ctx context.Context, draft *models.Asset) string {
	if draft.IsDecommissioned && !draft.RelatedAssetID.Valid {
		return "decommission draft has no live asset to retire"
	}
	if draft.RelatedAssetID.Valid {
		var exists bool
		errdb := ex.tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM assets WHERE asset_id = $1 AND change_plan_id IS NULL);`,
			draft.RelatedAssetID.UUID).Scan(&exists)
		if errdb != nil || !exists {
			return "related live asset no longer exists"
		}
	}

	if !draft.IsDecommissioned {
		var height int
		errdb := ex.tx.QueryRowContext(ctx,
			`SELECT height FROM it_models WHERE model_id = $1;`, draft.ModelID).Scan(&height)
		if errdb != nil {
			return "model no longer exists"
		}
		if reason := ex.checkDraftPlacement(ctx, draft, height); reason != "" {
			return reason
		}
		if reason := ex.validateUniqueness(ctx, draft); reason != "" {
			return reason
		}
	}

	if reason := ex.validateDraftConnections(ctx, draft); reason != "" {
		return reason
	}
	return ex.validateDraftPower(ctx, draft)
}

// checkDraftPlacement validates the draft's position against the rack as it
// will stand after execution: surviving drafts occupy their target units and
// live assets shadowed only by failed drafts stay where they are.
func (ex *planExecution) checkDraftPlacement(ctx context.Context, draft *models.Asset, height int) string {
	var rackHeight int
	errdb := ex.tx.QueryRowContext(ctx,
		`SELECT height FROM racks WHERE rack_id = $1;`, draft.RackID).Scan(&rackHeight)
	if errdb != nil {
		return "rack no longer exists"
	}

	rows, errdb := ex.tx.QueryContext(ctx, `
		SELECT a.asset_id, a.asset_number, a.rack_position, m.height,
			a.change_plan_id, a.related_asset_id, a.is_decommissioned
		FROM assets a
		JOIN it_models m ON m.model_id = a.model_id
		WHERE a.rack_id = $1 AND (a.change_plan_id IS NULL OR a.change_plan_id = $2);
	`, draft.RackID, ex.planID)
	if errdb != nil {
		return "failed to load rack occupants"
	}
	defer rows.Close()

	var entries []rackOccupantRow
	for rows.Next() {
		var e rackOccupantRow
		if errdb := rows.Scan(&e.assetID, &e.assetNumber, &e.position, &e.height,
			&e.planID, &e.relatedAssetID, &e.decommissioned); errdb != nil {
			return "failed to load rack occupants"
		}
		entries = append(entries, e)
	}
	if errdb := rows.Err(); errdb != nil {
		return "failed to load rack occupants"
	}

	occupants := survivingOccupants(entries, ex.failed, draft)
	if errfit := placement.CheckFit(rackHeight, draft.RackPosition, height, occupants); errfit != nil {
		return errfit.Error()
	}
	return ""
}

type rackOccupantRow struct {
	assetID        uuid.UUID
	assetNumber    sql.NullInt64
	position       int
	height         int
	planID         uuid.NullUUID
	relatedAssetID uuid.NullUUID
	decommissioned bool
}

// survivingOccupants computes the post-execution occupant set of one rack:
// surviving drafts minus decommissions, plus live assets not shadowed by a
// surviving draft. The draft under validation and its live asset are left
// out.
func survivingOccupants(entries []rackOccupantRow, failed map[uuid.UUID]string, draft *models.Asset) []placement.Occupant {
	shadowed := make(map[uuid.UUID]bool)
	for _, e := range entries {
		if !e.planID.Valid || !e.relatedAssetID.Valid {
			continue
		}
		if _, bad := failed[e.assetID]; bad {
			continue
		}
		shadowed[e.relatedAssetID.UUID] = true
	}

	var occupants []placement.Occupant
	for _, e := range entries {
		if e.assetID == draft.AssetID {
			continue
		}
		if draft.RelatedAssetID.Valid && e.assetID == draft.RelatedAssetID.UUID {
			continue
		}
		if e.planID.Valid {
			if _, bad := failed[e.assetID]; bad || e.decommissioned {
				continue
			}
		} else if shadowed[e.assetID] {
			continue
		}
		occupants = append(occupants, placement.Occupant{
			AssetID:  e.assetID,
			Label:    (&models.Asset{AssetNumber: e.assetNumber}).NumberLabel(),
			Position: e.position,
			Height:   e.height,
		})
	}
	return occupants
}

// validateDraftPower checks that every live outlet the draft's power wiring
// maps to is either free or held by an asset a surviving draft rewires; the
// apply pass releases those claims before it assigns any.
func (ex *planExecution) validateDraftPower(ctx context.Context, draft *models.Asset) string {
	rows, errdb := ex.tx.QueryContext(ctx, `
		SELECT live.left_right, live.port_number, pp.asset_id, d.asset_id
		FROM power_ports dpp
		JOIN pdu_ports dp ON dp.pdu_port_id = dpp.pdu_port_id
		JOIN pdu_ports live ON live.rack_id = dp.rack_id
			AND live.left_right = dp.left_right
			AND live.port_number = dp.port_number
			AND live.change_plan_id IS NULL
		JOIN power_ports pp ON pp.pdu_port_id = live.pdu_port_id AND pp.change_plan_id IS NULL
		LEFT JOIN assets d ON d.change_plan_id = $2 AND d.related_asset_id = pp.asset_id
		WHERE dpp.asset_id = $1;
	`, draft.AssetID, ex.planID)
	if errdb != nil {
		return "failed to load draft power connections"
	}
	defer rows.Close()

	for rows.Next() {
		var (
			side     string
			number   int
			claimant uuid.UUID
			covering uuid.NullUUID
		)
		if errdb := rows.Scan(&side, &number, &claimant, &covering); errdb != nil {
			return "failed to load draft power connections"
		}
		if draft.RelatedAssetID.Valid && claimant == draft.RelatedAssetID.UUID {
			// own live asset; its claims are replaced wholesale
			continue
		}
		released := false
		if covering.Valid {
			_, bad := ex.failed[covering.UUID]
			released = !bad
		}
		if !released {
			return fmt.Sprintf("pdu outlet %s/%d is already claimed outside the plan", side, number)
		}
	}
	if errdb := rows.Err(); errdb != nil {
		return "failed to load draft power connections"
	}
	return ""
}

func (ex *planExecution) validateUniqueness(ctx context.Context, draft *models.Asset) string {
	if draft.AssetNumber.Valid {
		var taken bool
		errdb := ex.tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM assets
				WHERE asset_number = $1 AND change_plan_id IS NULL AND asset_id IS DISTINCT FROM $2);
		`, draft.AssetNumber.Int64, draft.RelatedAssetID).Scan(&taken)
		if errdb != nil {
			return "failed to check asset number uniqueness"
		}
		if taken {
			return fmt.Sprintf("asset number %d already in use", draft.AssetNumber.Int64)
		}
	}
	if draft.Hostname.Valid && draft.Hostname.String != "" {
		var taken bool
		errdb := ex.tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM assets
				WHERE hostname = $1 AND change_plan_id IS NULL AND asset_id IS DISTINCT FROM $2);
		`, draft.Hostname.String, draft.RelatedAssetID).Scan(&taken)
		if errdb != nil {
			return "failed to check hostname uniqueness"
		}
		if taken {
			return fmt.Sprintf("hostname %q already in use", draft.Hostname.String)
		}
	}
	return ""
}

// validateDraftConnections checks that every draft network connection can be
// resolved and that no destination live port is wired to a peer outside the
// plan's reach.
func (ex *planExecution) validateDraftConnections(ctx context.Context, draft *models.Asset) string {
	rows, errdb := ex.tx.QueryContext(ctx, `
		SELECT np.port_name, peer.asset_id, peer.port_name
		FROM network_ports np
		JOIN network_ports peer ON peer.port_id = np.connected_port_id
		WHERE np.asset_id = $1;
	`, draft.AssetID)
	if errdb != nil {
		return "failed to load draft network connections"
	}
	defer rows.Close()

	type link struct {
		srcName      string
		peerAssetID  uuid.UUID
		peerPortName string
	}
	var links []link
	for rows.Next() {
		var l link
		if errdb := rows.Scan(&l.srcName, &l.peerAssetID, &l.peerPortName); errdb != nil {
			return "failed to load draft network connections"
		}
		links = append(links, l)
	}
	if errdb := rows.Err(); errdb != nil {
		return "failed to load draft network connections"
	}

	for _, l := range links {
		row := ex.tx.QueryRowContext(ctx,
			`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1;`, l.peerAssetID)
		peerAsset, errdb := scanAsset(row)
		if errdb != nil {
			return fmt.Sprintf("network peer of port %q cannot be resolved", l.srcName)
		}
		if peerAsset.IsDraft() {
			if _, bad := ex.failed[peerAsset.AssetID]; bad {
				return fmt.Sprintf("network peer of port %q belongs to a draft that failed", l.srcName)
			}
			if !peerAsset.RelatedAssetID.Valid {
				// a draft-only peer materializes in this same pass; nothing
				// further to check against live state
				continue
			}
		}
		liveAssetID := peerAsset.AssetID
		if peerAsset.IsDraft() {
			liveAssetID = peerAsset.RelatedAssetID.UUID
		}
		// the destination live port must not be claimed by a third party
		// the plan does not rewire
		var peerOfPeer uuid.NullUUID
		errdb = ex.tx.QueryRowContext(ctx, `
			SELECT connected_port_id FROM network_ports
			WHERE asset_id = $1 AND port_name = $2 AND change_plan_id IS NULL;
		`, liveAssetID, l.peerPortName).Scan(&peerOfPeer)
		if errdb == sql.ErrNoRows {
			return fmt.Sprintf("port %q on destination asset does not exist", l.peerPortName)
		}
		if errdb != nil {
			return "failed to resolve destination port"
		}
		if peerOfPeer.Valid {
			// coverage only counts when the covering draft survives: a failed
			// draft leaves its live asset's wiring in place
			var (
				claimPlan     uuid.NullUUID
				claimAssetID  uuid.UUID
				coveringDraft uuid.NullUUID
			)
			errdb = ex.tx.QueryRowContext(ctx, `
				SELECT a.change_plan_id, a.asset_id, d.asset_id
				FROM network_ports np
				JOIN assets a ON a.asset_id = np.asset_id
				LEFT JOIN assets d ON d.change_plan_id = $2 AND d.related_asset_id = a.asset_id
				WHERE np.port_id = $1;
			`, peerOfPeer.UUID, ex.planID).Scan(&claimPlan, &claimAssetID, &coveringDraft)
			if errdb != nil {
				return "failed to resolve destination port peer"
			}
			covered := false
			if claimPlan.Valid && claimPlan.UUID == ex.planID {
				_, bad := ex.failed[claimAssetID]
				covered = !bad
			} else if coveringDraft.Valid {
				_, bad := ex.failed[coveringDraft.UUID]
				covered = !bad
			}
			if !covered {
				return fmt.Sprintf("destination port %q is already connected outside the plan", l.peerPortName)
			}
		}
	}
	return ""
}

// materializeDraft updates the related live asset's scalars, or creates a
// brand-new live asset and backfills related_asset_id on the draft so the
// rewiring passes can find it. Chassis references are fixed up afterwards.
func (ex *planExecution) materializeDraft(ctx context.Context, draft *models.Asset) apperrors.Error {
	if draft.RelatedAssetID.Valid {
		liveID := draft.RelatedAssetID.UUID
		_, errdb := ex.tx.ExecContext(ctx, `
			UPDATE assets SET asset_number = $2, hostname = $3, rack_id = $4, rack_position = $5,
				model_id = $6, chassis_slot = $7, owner = $8, comment = $9, updated_at = now()
			WHERE asset_id = $1;
		`, liveID, draft.AssetNumber, draft.Hostname, draft.RackID, draft.RackPosition,
			draft.ModelID, draft.ChassisSlot, draft.Owner, draft.Comment)
		if errdb != nil {
			return mapPgError(ctx, errdb, "asset")
		}
		ex.liveOf[draft.AssetID] = liveID
		return nil
	}

	live := &models.Asset{
		AssetID:      uuid.New(),
		AssetNumber:  draft.AssetNumber,
		Hostname:     draft.Hostname,
		RackID:       draft.RackID,
		RackPosition: draft.RackPosition,
		ModelID:      draft.ModelID,
		ChassisSlot:  draft.ChassisSlot,
		Owner:        draft.Owner,
		Comment:      draft.Comment,
	}
	if !live.AssetNumber.Valid {
		if err := lockAssetNumbers(ctx, ex.tx); err != nil {
			return err
		}
		number, err := allocateAssetNumberTx(ctx, ex.tx)
		if err != nil {
			return err
		}
		live.AssetNumber = sql.NullInt64{Int64: number, Valid: true}
	}

	errdb := ex.tx.QueryRowContext(ctx, `
		INSERT INTO assets (asset_id, asset_number, hostname, rack_id, rack_position, model_id,
			chassis_slot, owner, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at;
	`, live.AssetID, live.AssetNumber, live.Hostname, live.RackID, live.RackPosition,
		live.ModelID, live.ChassisSlot, live.Owner, live.Comment).Scan(&live.CreatedAt)
	if errdb != nil {
		return mapPgError(ctx, errdb, "asset")
	}

	model, err := getITModelTx(ctx, ex.tx, live.ModelID)
	if err != nil {
		return err
	}
	if err := provisionPortsTx(ctx, ex.tx, live, model); err != nil {
		return err
	}

	// backfill so sibling drafts and the rewiring pass resolve this draft
	// to its new live asset
	if _, errdb := ex.tx.ExecContext(ctx,
		`UPDATE assets SET related_asset_id = $2 WHERE asset_id = $1;`,
		draft.AssetID, live.AssetID); errdb != nil {
		return mapPgError(ctx, errdb, "draft asset")
	}
	draft.RelatedAssetID = uuid.NullUUID{UUID: live.AssetID, Valid: true}
	ex.liveOf[draft.AssetID] = live.AssetID
	return nil
}

// fixupChassis resolves the draft's chassis reference to the live chassis —
// which may itself have just been materialized — and writes it to the live
// row.
func (ex *planExecution) fixupChassis(ctx context.Context, draft *models.Asset) apperrors.Error {
	liveID := ex.liveOf[draft.AssetID]
	var chassis uuid.NullUUID
	if draft.ChassisID.Valid {
		row := ex.tx.QueryRowContext(ctx,
			`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1;`, draft.ChassisID.UUID)
		ref, errdb := scanAsset(row)
		switch {
		case errdb == sql.ErrNoRows:
			chassis = uuid.NullUUID{}
		case errdb != nil:
			return mapPgError(ctx, errdb, "asset")
		case ref.IsDraft():
			chassis = ref.RelatedAssetID
		default:
			chassis = draft.ChassisID
		}
	}
	if _, errdb := ex.tx.ExecContext(ctx,
		`UPDATE assets SET chassis_id = $2 WHERE asset_id = $1;`, liveID, chassis); errdb != nil {
		return mapPgError(ctx, errdb, "asset")
	}
	return nil
}

// rewireDraft makes the live asset's wiring match the draft's: connected
// draft ports are linked to the live equivalent of their peers, unconnected
// draft ports disconnect the corresponding live port.
func (ex *planExecution) rewireDraft(ctx context.Context, draft *models.Asset) apperrors.Error {
	liveID := ex.liveOf[draft.AssetID]

	nports, err := listNetworkPortsTx(ctx, ex.tx, draft.AssetID)
	if err != nil {
		return err
	}
	for _, port := range nports {
		livePort, err := getNetworkPortByNameTx(ctx, ex.tx, liveID, port.PortName)
		if err != nil {
			// a port template mismatch after a model change; nothing to rewire
			log.Ctx(ctx).Warn().Str("port_name", port.PortName).Msg("no live counterpart for draft port")
			continue
		}
		if err := setMacTx(ctx, ex.tx, livePort.PortID, port.MacAddress); err != nil {
			return err
		}
		if !port.ConnectedPortID.Valid {
			if err := clearNetworkLinkTx(ctx, ex.tx, livePort.PortID); err != nil {
				return err
			}
			continue
		}
		livePeer, err := ex.resolveLivePeer(ctx, port.ConnectedPortID.UUID)
		if err != nil {
			return err
		}
		if err := forceNetworkLinkTx(ctx, ex.tx, livePort.PortID, livePeer); err != nil {
			return err
		}
	}

	pports, err := listPowerPortsTx(ctx, ex.tx, draft.AssetID)
	if err != nil {
		return err
	}
	for _, port := range pports {
		livePort, errdb := getPowerPortByNameTx(ctx, ex.tx, liveID, port.PortName)
		if errdb != nil {
			log.Ctx(ctx).Warn().Str("port_name", port.PortName).Msg("no live counterpart for draft power port")
			continue
		}
		var liveOutlet uuid.NullUUID
		if port.PDUPortID.Valid {
			// the draft references its plan-scoped outlet copy; map back to
			// the live outlet at the same coordinates
			var id uuid.UUID
			errdb := ex.tx.QueryRowContext(ctx, `
				SELECT live.pdu_port_id FROM pdu_ports draft
				JOIN pdu_ports live ON live.rack_id = draft.rack_id
					AND live.left_right = draft.left_right
					AND live.port_number = draft.port_number
					AND live.change_plan_id IS NULL
				WHERE draft.pdu_port_id = $1;
			`, port.PDUPortID.UUID).Scan(&id)
			if errdb != nil {
				return mapPgError(ctx, errdb, "pdu port")
			}
			liveOutlet = uuid.NullUUID{UUID: id, Valid: true}
		}
		if _, errdb := ex.tx.ExecContext(ctx,
			`UPDATE power_ports SET pdu_port_id = $2 WHERE port_id = $1;`,
			livePort.PortID, liveOutlet); errdb != nil {
			return mapPgError(ctx, errdb, "power port")
		}
	}
	return nil
}

// resolveLivePeer maps a draft network port to the live port it stands for.
func (ex *planExecution) resolveLivePeer(ctx context.Context, peerPortID uuid.UUID) (uuid.UUID, apperrors.Error) {
	peerPort, err := getNetworkPortTx(ctx, ex.tx, peerPortID)
	if err != nil {
		return uuid.Nil, err
	}
	row := ex.tx.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1;`, peerPort.AssetID)
	peerAsset, errdb := scanAsset(row)
	if errdb != nil {
		return uuid.Nil, mapPgError(ctx, errdb, "asset")
	}
	if !peerAsset.IsDraft() {
		return peerPort.PortID, nil
	}
	if !peerAsset.RelatedAssetID.Valid {
		return uuid.Nil, dberror.ErrNotFound.Msg("peer draft was not materialized")
	}
	livePeerPort, err := getNetworkPortByNameTx(ctx, ex.tx, peerAsset.RelatedAssetID.UUID, peerPort.PortName)
	if err != nil {
		return uuid.Nil, err
	}
	return livePeerPort.PortID, nil
}

// archiveLive snapshots the now-updated live asset and deletes it.
func (ex *planExecution) archiveLive(ctx context.Context, liveID uuid.UUID, actingUser string) apperrors.Error {
	row := ex.tx.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE asset_id = $1;`, liveID)
	live, errdb := scanAsset(row)
	if errdb != nil {
		return mapPgError(ctx, errdb, "asset")
	}
	snapshot, err := buildSnapshotTx(ctx, ex.tx, live)
	if err != nil {
		return err
	}
	rec := &models.DecommissionedAsset{
		RecordID:         uuid.New(),
		AssetNumber:      live.AssetNumber,
		Hostname:         live.Hostname,
		Owner:            live.Owner,
		Snapshot:         snapshot,
		DecommissionedBy: actingUser,
	}
	if _, errdb := ex.tx.ExecContext(ctx, `
		INSERT INTO decommissioned_assets (record_id, asset_number, hostname, owner, snapshot, decommissioned_by)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, rec.RecordID, rec.AssetNumber, rec.Hostname, rec.Owner, rec.Snapshot, rec.DecommissionedBy); errdb != nil {
		return mapPgError(ctx, errdb, "decommissioned asset")
	}
	if _, errdb := ex.tx.ExecContext(ctx, `DELETE FROM assets WHERE asset_id = $1;`, liveID); errdb != nil {
		return mapPgError(ctx, errdb, "asset")
	}
	return nil
}

// tx-scoped port helpers shared by the passes above

func getNetworkPortTx(ctx context.Context, tx *sql.Tx, portID uuid.UUID) (*models.NetworkPort, apperrors.Error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+networkPortColumns+` FROM network_ports WHERE port_id = $1;`, portID)
	port, errdb := scanNetworkPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "network port")
	}
	return port, nil
}

func getNetworkPortByNameTx(ctx context.Context, tx *sql.Tx, assetID uuid.UUID, name string) (*models.NetworkPort, apperrors.Error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+networkPortColumns+` FROM network_ports WHERE asset_id = $1 AND port_name = $2;`,
		assetID, name)
	port, errdb := scanNetworkPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "network port")
	}
	return port, nil
}

func getPowerPortByNameTx(ctx context.Context, tx *sql.Tx, assetID uuid.UUID, name string) (*models.PowerPort, apperrors.Error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+powerPortColumns+` FROM power_ports WHERE asset_id = $1 AND port_name = $2;`,
		assetID, name)
	port, errdb := scanPowerPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "power port")
	}
	return port, nil
}

func listNetworkPortsTx(ctx context.Context, tx *sql.Tx, assetID uuid.UUID) ([]*models.NetworkPort, apperrors.Error) {
	rows, errdb := tx.QueryContext(ctx,
		`SELECT `+networkPortColumns+` FROM network_ports WHERE asset_id = $1 ORDER BY port_name;`, assetID)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "network port")
	}
	defer rows.Close()
	var ports []*models.NetworkPort
	for rows.Next() {
		port, errdb := scanNetworkPort(rows)
		if errdb != nil {
			return nil, mapPgError(ctx, errdb, "network port")
		}
		ports = append(ports, port)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "network port")
	}
	return ports, nil
}

func listPowerPortsTx(ctx context.Context, tx *sql.Tx, assetID uuid.UUID) ([]*models.PowerPort, apperrors.Error) {
	rows, errdb := tx.QueryContext(ctx,
		`SELECT `+powerPortColumns+` FROM power_ports WHERE asset_id = $1 ORDER BY port_name;`, assetID)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "power port")
	}
	defer rows.Close()
	var ports []*models.PowerPort
	for rows.Next() {
		port, errdb := scanPowerPort(rows)
		if errdb != nil {
			return nil, mapPgError(ctx, errdb, "power port")
		}
		ports = append(ports, port)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "power port")
	}
	return ports, nil
}

func setMacTx(ctx context.Context, tx *sql.Tx, portID uuid.UUID, mac sql.NullString) apperrors.Error {
	if _, errdb := tx.ExecContext(ctx,
		`UPDATE network_ports SET mac_address = $2 WHERE port_id = $1;`, portID, mac); errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	return nil
}

func clearNetworkLinkTx(ctx context.Context, tx *sql.Tx, portID uuid.UUID) apperrors.Error {
	if _, errdb := tx.ExecContext(ctx, `
		UPDATE network_ports SET connected_port_id = NULL
		WHERE port_id = $1 OR connected_port_id = $1;
	`, portID); errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	return nil
}

// forceNetworkLinkTx sets the symmetric pair, detaching any previous peer on
// either side. Validation has already established the detached peers are
// covered by the plan.
func forceNetworkLinkTx(ctx context.Context, tx *sql.Tx, portA, portB uuid.UUID) apperrors.Error {
	if err := clearNetworkLinkTx(ctx, tx, portA); err != nil {
		return err
	}
	if err := clearNetworkLinkTx(ctx, tx, portB); err != nil {
		return err
	}
	if _, errdb := tx.ExecContext(ctx,
		`UPDATE network_ports SET connected_port_id = $2 WHERE port_id = $1;`, portA, portB); errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	if _, errdb := tx.ExecContext(ctx,
		`UPDATE network_ports SET connected_port_id = $2 WHERE port_id = $1;`, portB, portA); errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	return nil
}

// buildSnapshotTx collects the live asset's surroundings for the frozen
// archive document.
func buildSnapshotTx(ctx context.Context, tx *sql.Tx, live *models.Asset) ([]byte, apperrors.Error) {
	model, err := getITModelTx(ctx, tx, live.ModelID)
	if err != nil {
		return nil, err
	}
	var rack models.Rack
	errdb := tx.QueryRowContext(ctx,
		`SELECT `+rackColumns+` FROM racks WHERE rack_id = $1;`, live.RackID).
		Scan(&rack.RackID, &rack.Datacenter, &rack.RowLetter, &rack.RackNum, &rack.Height, &rack.CreatedAt)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "rack")
	}

	var network []models.SnapshotNetworkConnection
	nports, err := listNetworkPortsTx(ctx, tx, live.AssetID)
	if err != nil {
		return nil, err
	}
	for _, port := range nports {
		conn := models.SnapshotNetworkConnection{
			PortName:   port.PortName,
			MacAddress: port.MacAddress.String,
		}
		if port.ConnectedPortID.Valid {
			var peerNumber sql.NullInt64
			var peerPortName string
			errdb := tx.QueryRowContext(ctx, `
				SELECT a.asset_number, np.port_name FROM network_ports np
				JOIN assets a ON a.asset_id = np.asset_id
				WHERE np.port_id = $1;
			`, port.ConnectedPortID.UUID).Scan(&peerNumber, &peerPortName)
			if errdb != nil && errdb != sql.ErrNoRows {
				return nil, mapPgError(ctx, errdb, "network port")
			}
			if errdb == nil {
				conn.PeerAsset = (&models.Asset{AssetNumber: peerNumber}).NumberLabel()
				conn.PeerPortName = peerPortName
			}
		}
		network = append(network, conn)
	}

	var power []models.SnapshotPowerConnection
	pports, err := listPowerPortsTx(ctx, tx, live.AssetID)
	if err != nil {
		return nil, err
	}
	for _, port := range pports {
		if !port.PDUPortID.Valid {
			continue
		}
		var side string
		var number int
		errdb := tx.QueryRowContext(ctx,
			`SELECT left_right, port_number FROM pdu_ports WHERE pdu_port_id = $1;`,
			port.PDUPortID.UUID).Scan(&side, &number)
		if errdb != nil {
			return nil, mapPgError(ctx, errdb, "pdu port")
		}
		power = append(power, models.SnapshotPowerConnection{
			PortName:   port.PortName,
			Side:       side,
			PortNumber: number,
		})
	}

	snapshot, errb := models.BuildDecommissionSnapshot(live, model, &rack, network, power)
	if errb != nil {
		return nil, dberror.ErrDatabase.MsgErr("failed to build snapshot", errb)
	}
	return snapshot, nil
}

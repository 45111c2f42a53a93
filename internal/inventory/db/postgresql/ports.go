package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

const networkPortColumns = `port_id, asset_id, port_name, mac_address, connected_port_id, change_plan_id, created_at`
const powerPortColumns = `port_id, asset_id, port_name, pdu_port_id, change_plan_id, created_at`
const pduPortColumns = `pdu_port_id, rack_id, left_right, port_number, change_plan_id, created_at`

func scanNetworkPort(row interface{ Scan(...any) error }) (*models.NetworkPort, error) {
	var p models.NetworkPort
	err := row.Scan(&p.PortID, &p.AssetID, &p.PortName, &p.MacAddress, &p.ConnectedPortID, &p.ChangePlanID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPowerPort(row interface{ Scan(...any) error }) (*models.PowerPort, error) {
	var p models.PowerPort
	err := row.Scan(&p.PortID, &p.AssetID, &p.PortName, &p.PDUPortID, &p.ChangePlanID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPDUPort(row interface{ Scan(...any) error }) (*models.PDUPort, error) {
	var p models.PDUPort
	err := row.Scan(&p.PDUPortID, &p.RackID, &p.LeftRight, &p.PortNumber, &p.ChangePlanID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// provisionPortsTx creates the asset's ports from the model template,
// exactly once: it is a no-op when the asset already has any port. Draft
// assets get ports scoped to the same plan.
func provisionPortsTx(ctx context.Context, tx *sql.Tx, asset *models.Asset, model *models.ITModel) apperrors.Error {
	var existing int
	errdb := tx.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM network_ports WHERE asset_id = $1)
		     + (SELECT COUNT(*) FROM power_ports WHERE asset_id = $1);
	`, asset.AssetID).Scan(&existing)
	if errdb != nil {
		return mapPgError(ctx, errdb, "port")
	}
	if existing > 0 {
		return nil
	}

	var template models.PortTemplateSpec
	if model.PortTemplate.Status == pgtype.Present {
		if errdb := json.Unmarshal(model.PortTemplate.Bytes, &template); errdb != nil {
			return dberror.ErrInvalidInput.MsgErr("malformed port template", errdb)
		}
	}

	for _, name := range template.NetworkPorts {
		_, errdb = tx.ExecContext(ctx, `
			INSERT INTO network_ports (port_id, asset_id, port_name, change_plan_id)
			VALUES ($1, $2, $3, $4);
		`, uuid.New(), asset.AssetID, name, asset.ChangePlanID)
		if errdb != nil {
			return mapPgError(ctx, errdb, "network port")
		}
	}
	for n := 1; n <= template.PowerPorts; n++ {
		_, errdb = tx.ExecContext(ctx, `
			INSERT INTO power_ports (port_id, asset_id, port_name, change_plan_id)
			VALUES ($1, $2, $3, $4);
		`, uuid.New(), asset.AssetID, fmt.Sprintf("power%d", n), asset.ChangePlanID)
		if errdb != nil {
			return mapPgError(ctx, errdb, "power port")
		}
	}
	return nil
}

// ProvisionPorts is the standalone entry point for the two-step asset
// factory.
func (wm *wiringManager) ProvisionPorts(ctx context.Context, asset *models.Asset, model *models.ITModel) (err apperrors.Error) {
	tx, finish, err := begin(ctx, wm.conn())
	if err != nil {
		return err
	}
	defer finish(&err)
	return provisionPortsTx(ctx, tx, asset, model)
}

func (wm *wiringManager) GetNetworkPort(ctx context.Context, portID uuid.UUID) (*models.NetworkPort, apperrors.Error) {
	row := wm.conn().QueryRowContext(ctx,
		`SELECT `+networkPortColumns+` FROM network_ports WHERE port_id = $1;`, portID)
	port, errdb := scanNetworkPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "network port")
	}
	return port, nil
}

func (wm *wiringManager) GetNetworkPortByName(ctx context.Context, assetID uuid.UUID, portName string) (*models.NetworkPort, apperrors.Error) {
	row := wm.conn().QueryRowContext(ctx,
		`SELECT `+networkPortColumns+` FROM network_ports WHERE asset_id = $1 AND port_name = $2;`,
		assetID, portName)
	port, errdb := scanNetworkPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "network port")
	}
	return port, nil
}

func (wm *wiringManager) ListNetworkPorts(ctx context.Context, assetID uuid.UUID) ([]*models.NetworkPort, apperrors.Error) {
	rows, errdb := wm.conn().QueryContext(ctx,
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

func (wm *wiringManager) UpdateNetworkPortMac(ctx context.Context, portID uuid.UUID, mac string) apperrors.Error {
	var value sql.NullString
	if mac != "" {
		value = sql.NullString{String: mac, Valid: true}
	}
	res, errdb := wm.conn().ExecContext(ctx,
		`UPDATE network_ports SET mac_address = $2 WHERE port_id = $1;`, portID, value)
	if errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("network port not found")
	}
	return nil
}

// SetNetworkLink links portA and portB symmetrically. Within one
// transaction: both rows are locked, a conflicting peer on portB rejects the
// operation with no mutation, a previous peer of portA is detached on both
// sides, then both pointers are written. connect(a,b) twice is idempotent.
func (wm *wiringManager) SetNetworkLink(ctx context.Context, portA uuid.UUID, portB uuid.UUID) (err apperrors.Error) {
	if portA == portB {
		return dberror.ErrInvalidInput.Msg("cannot connect a port to itself")
	}
	tx, finish, err := begin(ctx, wm.conn())
	if err != nil {
		return err
	}
	defer finish(&err)

	a, err := lockNetworkPortTx(ctx, tx, portA)
	if err != nil {
		return err
	}
	b, err := lockNetworkPortTx(ctx, tx, portB)
	if err != nil {
		return err
	}

	if b.ConnectedPortID.Valid && b.ConnectedPortID.UUID != portA {
		return dberror.ErrAlreadyExists.Msg("destination port already connected to another port")
	}
	if a.ConnectedPortID.Valid && a.ConnectedPortID.UUID == portB {
		// already linked both ways
		return nil
	}
	if a.ConnectedPortID.Valid {
		// detach a's previous peer so no one-sided link survives
		if _, errdb := tx.ExecContext(ctx,
			`UPDATE network_ports SET connected_port_id = NULL WHERE port_id = $1;`,
			a.ConnectedPortID.UUID); errdb != nil {
			return mapPgError(ctx, errdb, "network port")
		}
	}

	if _, errdb := tx.ExecContext(ctx,
		`UPDATE network_ports SET connected_port_id = $2 WHERE port_id = $1;`, portA, portB); errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	if _, errdb := tx.ExecContext(ctx,
		`UPDATE network_ports SET connected_port_id = $2 WHERE port_id = $1;`, portB, portA); errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	log.Ctx(ctx).Info().Str("port_a", portA.String()).Str("port_b", portB.String()).Msg("network link set")
	return nil
}

// ClearNetworkLink clears the link on both sides. No-op when the port is
// unconnected.
func (wm *wiringManager) ClearNetworkLink(ctx context.Context, portID uuid.UUID) (err apperrors.Error) {
	tx, finish, err := begin(ctx, wm.conn())
	if err != nil {
		return err
	}
	defer finish(&err)

	port, err := lockNetworkPortTx(ctx, tx, portID)
	if err != nil {
		return err
	}
	if !port.ConnectedPortID.Valid {
		return nil
	}
	if _, errdb := tx.ExecContext(ctx,
		`UPDATE network_ports SET connected_port_id = NULL WHERE port_id = $1 OR port_id = $2;`,
		portID, port.ConnectedPortID.UUID); errdb != nil {
		return mapPgError(ctx, errdb, "network port")
	}
	return nil
}

func lockNetworkPortTx(ctx context.Context, tx *sql.Tx, portID uuid.UUID) (*models.NetworkPort, apperrors.Error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+networkPortColumns+` FROM network_ports WHERE port_id = $1 FOR UPDATE;`, portID)
	port, errdb := scanNetworkPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "network port")
	}
	return port, nil
}

func (wm *wiringManager) GetPowerPortByName(ctx context.Context, assetID uuid.UUID, portName string) (*models.PowerPort, apperrors.Error) {
	row := wm.conn().QueryRowContext(ctx,
		`SELECT `+powerPortColumns+` FROM power_ports WHERE asset_id = $1 AND port_name = $2;`,
		assetID, portName)
	port, errdb := scanPowerPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "power port")
	}
	return port, nil
}

func (wm *wiringManager) ListPowerPorts(ctx context.Context, assetID uuid.UUID) ([]*models.PowerPort, apperrors.Error) {
	rows, errdb := wm.conn().QueryContext(ctx,
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

// SetPowerLink assigns or clears the port's outlet. Clearing (invalid
// pduPortID) is unconditional; assignment relies on the unique index to
// reject an outlet already claimed in the same scope.
func (wm *wiringManager) SetPowerLink(ctx context.Context, portID uuid.UUID, pduPortID uuid.NullUUID) apperrors.Error {
	res, errdb := wm.conn().ExecContext(ctx,
		`UPDATE power_ports SET pdu_port_id = $2 WHERE port_id = $1;`, portID, pduPortID)
	if errdb != nil {
		return mapPgError(ctx, errdb, "power port")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dberror.ErrNotFound.Msg("power port not found")
	}
	return nil
}

func (wm *wiringManager) GetPDUPort(ctx context.Context, pduPortID uuid.UUID) (*models.PDUPort, apperrors.Error) {
	row := wm.conn().QueryRowContext(ctx,
		`SELECT `+pduPortColumns+` FROM pdu_ports WHERE pdu_port_id = $1;`, pduPortID)
	port, errdb := scanPDUPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "pdu port")
	}
	return port, nil
}

func (wm *wiringManager) GetPDUPortByCoords(ctx context.Context, rackID uuid.UUID, side string, portNumber int, planID uuid.NullUUID) (*models.PDUPort, apperrors.Error) {
	query := `SELECT ` + pduPortColumns + ` FROM pdu_ports
		WHERE rack_id = $1 AND left_right = $2 AND port_number = $3 AND change_plan_id IS NOT DISTINCT FROM $4;`
	row := wm.conn().QueryRowContext(ctx, query, rackID, side, portNumber, planID)
	port, errdb := scanPDUPort(row)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "pdu port")
	}
	return port, nil
}

// GetOrCreateDraftPDUPort copies a live outlet into the plan scope the first
// time a draft power connection references it.
func (wm *wiringManager) GetOrCreateDraftPDUPort(ctx context.Context, rackID uuid.UUID, side string, portNumber int, planID uuid.UUID) (port *models.PDUPort, err apperrors.Error) {
	tx, finish, err := begin(ctx, wm.conn())
	if err != nil {
		return nil, err
	}
	defer finish(&err)
	return getOrCreateDraftPDUPortTx(ctx, tx, rackID, side, portNumber, planID)
}

func getOrCreateDraftPDUPortTx(ctx context.Context, tx *sql.Tx, rackID uuid.UUID, side string, portNumber int, planID uuid.UUID) (*models.PDUPort, apperrors.Error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+pduPortColumns+` FROM pdu_ports
		 WHERE rack_id = $1 AND left_right = $2 AND port_number = $3 AND change_plan_id = $4;`,
		rackID, side, portNumber, planID)
	port, errdb := scanPDUPort(row)
	if errdb == nil {
		return port, nil
	}
	if errdb != sql.ErrNoRows {
		return nil, mapPgError(ctx, errdb, "pdu port")
	}

	// the live outlet must exist for the coordinates to be valid
	var liveID uuid.UUID
	errdb = tx.QueryRowContext(ctx,
		`SELECT pdu_port_id FROM pdu_ports
		 WHERE rack_id = $1 AND left_right = $2 AND port_number = $3 AND change_plan_id IS NULL;`,
		rackID, side, portNumber).Scan(&liveID)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "pdu port")
	}

	draft := &models.PDUPort{
		PDUPortID:    uuid.New(),
		RackID:       rackID,
		LeftRight:    side,
		PortNumber:   portNumber,
		ChangePlanID: uuid.NullUUID{UUID: planID, Valid: true},
	}
	errdb = tx.QueryRowContext(ctx, `
		INSERT INTO pdu_ports (pdu_port_id, rack_id, left_right, port_number, change_plan_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at;
	`, draft.PDUPortID, draft.RackID, draft.LeftRight, draft.PortNumber, draft.ChangePlanID).Scan(&draft.CreatedAt)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "pdu port")
	}
	return draft, nil
}

// ListAvailablePDUPorts lists the rack's outlets (by live row) that no power
// port claims in the effective scope: live ports without a draft override in
// the plan, plus the plan's own draft ports, compared by physical
// coordinates.
func (wm *wiringManager) ListAvailablePDUPorts(ctx context.Context, rackID uuid.UUID, planID uuid.NullUUID) ([]*models.PDUPort, apperrors.Error) {
	query := `
		SELECT ` + pduPortColumns + ` FROM pdu_ports p
		WHERE p.rack_id = $1 AND p.change_plan_id IS NULL
		  AND NOT EXISTS (
		    SELECT 1 FROM power_ports pp
		    JOIN pdu_ports q ON q.pdu_port_id = pp.pdu_port_id
		    WHERE q.rack_id = p.rack_id AND q.left_right = p.left_right AND q.port_number = p.port_number
		      AND (
		        ($2::uuid IS NULL AND pp.change_plan_id IS NULL)
		        OR ($2::uuid IS NOT NULL AND (
		          pp.change_plan_id = $2
		          OR (pp.change_plan_id IS NULL AND NOT EXISTS (
		            SELECT 1 FROM assets d
		            WHERE d.change_plan_id = $2 AND d.related_asset_id = pp.asset_id))))
		      )
		  )
		ORDER BY p.left_right, p.port_number;
	`
	rows, errdb := wm.conn().QueryContext(ctx, query, rackID, planID)
	if errdb != nil {
		return nil, mapPgError(ctx, errdb, "pdu port")
	}
	defer rows.Close()

	var ports []*models.PDUPort
	for rows.Next() {
		port, errdb := scanPDUPort(rows)
		if errdb != nil {
			return nil, mapPgError(ctx, errdb, "pdu port")
		}
		ports = append(ports, port)
	}
	if errdb := rows.Err(); errdb != nil {
		return nil, mapPgError(ctx, errdb, "pdu port")
	}
	return ports, nil
}

// Package assetsvc implements asset lifecycle operations on top of the db
// layer: creation, partial update, decommissioning and detail assembly. All
// operations are plan-aware through the overlay package: with an active
// change plan, writes land on drafts and reads see the effective view.
package assetsvc

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/invcommon"
	"github.com/rackhaus/rackd/internal/inventory/overlay"
)

// CreateRequest carries the fields for a new asset. AssetNumber nil means
// the service allocates the smallest free number; for drafts allocation is
// deferred to plan execution.
type CreateRequest struct {
	AssetNumber  *int64
	Hostname     string
	RackID       uuid.UUID
	RackPosition int
	ModelID      uuid.UUID
	ChassisID    *uuid.UUID
	ChassisSlot  *int32
	Owner        string
	Comment      string
}

// Create validates references and inserts the asset, as a draft when a
// change plan is active. Placement and uniqueness are enforced by the db
// layer inside the insert transaction.
func Create(ctx context.Context, req *CreateRequest) (*models.Asset, apperrors.Error) {
	if _, err := db.DB(ctx).GetITModel(ctx, req.ModelID); err != nil {
		if err.Is(dberror.ErrNotFound) {
			return nil, ErrUnknownModel
		}
		return nil, err
	}
	if _, err := db.DB(ctx).GetRack(ctx, req.RackID); err != nil {
		if err.Is(dberror.ErrNotFound) {
			return nil, ErrUnknownRack
		}
		return nil, err
	}

	asset := &models.Asset{
		AssetID:      uuid.New(),
		RackID:       req.RackID,
		RackPosition: req.RackPosition,
		ModelID:      req.ModelID,
		Owner:        req.Owner,
		Comment:      req.Comment,
	}
	if req.AssetNumber != nil {
		asset.AssetNumber = sql.NullInt64{Int64: *req.AssetNumber, Valid: true}
	}
	if req.Hostname != "" {
		asset.Hostname = sql.NullString{String: req.Hostname, Valid: true}
	}
	if req.ChassisSlot != nil {
		asset.ChassisSlot = sql.NullInt32{Int32: *req.ChassisSlot, Valid: true}
	}
	if req.ChassisID != nil {
		chassis, err := overlay.ResolveAsset(ctx, *req.ChassisID)
		if err != nil {
			return nil, err
		}
		asset.ChassisID = uuid.NullUUID{UUID: chassis.AssetID, Valid: true}
	}

	if planID := invcommon.ChangePlanFromContext(ctx); planID != uuid.Nil {
		if _, err := overlay.RequireActivePlan(ctx); err != nil {
			return nil, err
		}
		asset.ChangePlanID = uuid.NullUUID{UUID: planID, Valid: true}
	}

	if err := db.DB(ctx).CreateAsset(ctx, asset); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().
		Str("asset_id", asset.AssetID.String()).
		Str("asset", asset.NumberLabel()).
		Bool("draft", asset.IsDraft()).
		Msg("asset created")
	return asset, nil
}

// Update applies a partial update. Under an active plan the target is first
// promoted to a draft; the returned asset is the row that was written.
func Update(ctx context.Context, assetID uuid.UUID, upd *models.AssetUpdate) (*models.Asset, apperrors.Error) {
	target, err := overlay.EditableAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if upd.ChassisID != nil {
		chassis, err := overlay.ResolveAsset(ctx, *upd.ChassisID)
		if err != nil {
			return nil, err
		}
		resolved := chassis.AssetID
		upd.ChassisID = &resolved
	}
	return db.DB(ctx).UpdateAsset(ctx, target.AssetID, upd)
}

// Get returns the asset as seen in the effective view.
func Get(ctx context.Context, assetID uuid.UUID) (*models.Asset, apperrors.Error) {
	return overlay.ResolveAsset(ctx, assetID)
}

// GetByNumber returns the live asset with the given number, replaced by its
// draft when the active plan shadows it.
func GetByNumber(ctx context.Context, number int64) (*models.Asset, apperrors.Error) {
	asset, err := db.DB(ctx).GetAssetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return overlay.ResolveAsset(ctx, asset.AssetID)
}

// ListByRack returns the rack's assets in the effective view.
func ListByRack(ctx context.Context, rackID uuid.UUID) ([]*models.Asset, apperrors.Error) {
	return overlay.RackAssets(ctx, rackID)
}

// Detail bundles an asset with its model and wiring for display.
type Detail struct {
	Asset        *models.Asset
	Model        *models.ITModel
	NetworkPorts []*models.NetworkPort
	PowerPorts   []*models.PowerPort
}

// GetDetail assembles the asset's full view.
func GetDetail(ctx context.Context, assetID uuid.UUID) (*Detail, apperrors.Error) {
	asset, err := overlay.ResolveAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	model, err := db.DB(ctx).GetITModel(ctx, asset.ModelID)
	if err != nil {
		return nil, err
	}
	nports, err := db.DB(ctx).ListNetworkPorts(ctx, asset.AssetID)
	if err != nil {
		return nil, err
	}
	pports, err := db.DB(ctx).ListPowerPorts(ctx, asset.AssetID)
	if err != nil {
		return nil, err
	}
	return &Detail{Asset: asset, Model: model, NetworkPorts: nports, PowerPorts: pports}, nil
}

// Decommission retires an asset. Under an active plan the asset's draft is
// flagged so plan execution archives it; without a plan the live asset is
// snapshotted and archived immediately.
func Decommission(ctx context.Context, assetID uuid.UUID) apperrors.Error {
	if invcommon.ChangePlanFromContext(ctx) != uuid.Nil {
		draft, err := overlay.EditableAsset(ctx, assetID)
		if err != nil {
			return err
		}
		if !draft.RelatedAssetID.Valid {
			return ErrDecommissionDraft
		}
		return db.DB(ctx).SetDraftDecommissioned(ctx, draft.AssetID, true)
	}

	asset, err := db.DB(ctx).GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.IsDraft() {
		return ErrNotLive
	}
	snapshot, err := buildSnapshot(ctx, asset)
	if err != nil {
		return err
	}
	_, err = db.DB(ctx).DecommissionLiveAsset(ctx, asset.AssetID, snapshot, invcommon.UserIdFromContext(ctx))
	return err
}

// Delete removes an asset row outright. Live assets should normally go
// through Decommission; this is for discarding drafts.
func Delete(ctx context.Context, assetID uuid.UUID) apperrors.Error {
	return db.DB(ctx).DeleteAsset(ctx, assetID)
}

// buildSnapshot freezes the asset's current state and surroundings into the
// archive document.
func buildSnapshot(ctx context.Context, asset *models.Asset) ([]byte, apperrors.Error) {
	model, err := db.DB(ctx).GetITModel(ctx, asset.ModelID)
	if err != nil {
		return nil, err
	}
	rack, err := db.DB(ctx).GetRack(ctx, asset.RackID)
	if err != nil {
		return nil, err
	}

	var network []models.SnapshotNetworkConnection
	nports, err := db.DB(ctx).ListNetworkPorts(ctx, asset.AssetID)
	if err != nil {
		return nil, err
	}
	for _, port := range nports {
		conn := models.SnapshotNetworkConnection{
			PortName:   port.PortName,
			MacAddress: port.MacAddress.String,
		}
		if port.ConnectedPortID.Valid {
			peerPort, err := db.DB(ctx).GetNetworkPort(ctx, port.ConnectedPortID.UUID)
			if err == nil {
				if peer, err := db.DB(ctx).GetAsset(ctx, peerPort.AssetID); err == nil {
					conn.PeerAsset = peer.NumberLabel()
					conn.PeerPortName = peerPort.PortName
				}
			}
		}
		network = append(network, conn)
	}

	var power []models.SnapshotPowerConnection
	pports, err := db.DB(ctx).ListPowerPorts(ctx, asset.AssetID)
	if err != nil {
		return nil, err
	}
	for _, port := range pports {
		if !port.PDUPortID.Valid {
			continue
		}
		outlet, err := db.DB(ctx).GetPDUPort(ctx, port.PDUPortID.UUID)
		if err != nil {
			return nil, err
		}
		power = append(power, models.SnapshotPowerConnection{
			PortName:   port.PortName,
			Side:       outlet.LeftRight,
			PortNumber: outlet.PortNumber,
		})
	}

	snapshot, errb := models.BuildDecommissionSnapshot(asset, model, rack, network, power)
	if errb != nil {
		return nil, ErrAssetSvc.MsgErr("failed to build decommission snapshot", errb)
	}
	return snapshot, nil
}

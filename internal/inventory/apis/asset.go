package apis

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/common/httpx"
	"github.com/rackhaus/rackd/internal/inventory/assetsvc"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/diffengine"
	"github.com/rackhaus/rackd/internal/inventory/overlay"
	"github.com/rackhaus/rackd/internal/inventory/placement"
)

type assetRsp struct {
	AssetID        uuid.UUID  `json:"asset_id"`
	AssetNumber    *int64     `json:"asset_number,omitempty"`
	Hostname       string     `json:"hostname,omitempty"`
	RackID         uuid.UUID  `json:"rack_id"`
	RackPosition   int        `json:"rack_position"`
	ModelID        uuid.UUID  `json:"model_id"`
	ChassisID      *uuid.UUID `json:"chassis_id,omitempty"`
	ChassisSlot    *int32     `json:"chassis_slot,omitempty"`
	Owner          string     `json:"owner,omitempty"`
	Comment        string     `json:"comment,omitempty"`
	Draft          bool       `json:"draft"`
	RelatedAssetID *uuid.UUID `json:"related_asset_id,omitempty"`
	Decommissioned bool       `json:"decommissioned,omitempty"`
}

func toAssetRsp(asset *models.Asset) assetRsp {
	rsp := assetRsp{
		AssetID:        asset.AssetID,
		RackID:         asset.RackID,
		RackPosition:   asset.RackPosition,
		ModelID:        asset.ModelID,
		Owner:          asset.Owner,
		Comment:        asset.Comment,
		Draft:          asset.IsDraft(),
		Decommissioned: asset.IsDecommissioned,
	}
	if asset.AssetNumber.Valid {
		n := asset.AssetNumber.Int64
		rsp.AssetNumber = &n
	}
	if asset.Hostname.Valid {
		rsp.Hostname = asset.Hostname.String
	}
	if asset.ChassisID.Valid {
		id := asset.ChassisID.UUID
		rsp.ChassisID = &id
	}
	if asset.ChassisSlot.Valid {
		slot := asset.ChassisSlot.Int32
		rsp.ChassisSlot = &slot
	}
	if asset.RelatedAssetID.Valid {
		id := asset.RelatedAssetID.UUID
		rsp.RelatedAssetID = &id
	}
	return rsp
}

type createAssetReq struct {
	AssetNumber  *int64     `json:"asset_number" validate:"omitempty,min=100000,max=999999"`
	Hostname     string     `json:"hostname" validate:"omitempty,hostname_rfc1123,max=64"`
	RackID       uuid.UUID  `json:"rack_id" validate:"required"`
	RackPosition int        `json:"rack_position" validate:"required,min=1"`
	ModelID      uuid.UUID  `json:"model_id" validate:"required"`
	ChassisID    *uuid.UUID `json:"chassis_id"`
	ChassisSlot  *int32     `json:"chassis_slot" validate:"omitempty,min=1"`
	Owner        string     `json:"owner" validate:"omitempty,max=128"`
	Comment      string     `json:"comment"`
}

func createAsset(r *http.Request) (*httpx.Response, error) {
	req := &createAssetReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	asset, aerr := assetsvc.Create(r.Context(), &assetsvc.CreateRequest{
		AssetNumber:  req.AssetNumber,
		Hostname:     req.Hostname,
		RackID:       req.RackID,
		RackPosition: req.RackPosition,
		ModelID:      req.ModelID,
		ChassisID:    req.ChassisID,
		ChassisSlot:  req.ChassisSlot,
		Owner:        req.Owner,
		Comment:      req.Comment,
	})
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/assets/" + asset.AssetID.String(),
		Response:   toAssetRsp(asset),
	}, nil
}

type assetDetailRsp struct {
	assetRsp
	Model        modelRsp         `json:"model"`
	NetworkPorts []networkPortRsp `json:"network_ports"`
	PowerPorts   []powerPortRsp   `json:"power_ports"`
}

func getAsset(r *http.Request) (*httpx.Response, error) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		return nil, err
	}
	detail, aerr := assetsvc.GetDetail(r.Context(), assetID)
	if aerr != nil {
		return nil, aerr
	}
	rsp := assetDetailRsp{
		assetRsp: toAssetRsp(detail.Asset),
		Model:    toModelRsp(detail.Model),
	}
	rsp.NetworkPorts = make([]networkPortRsp, 0, len(detail.NetworkPorts))
	for _, port := range detail.NetworkPorts {
		rsp.NetworkPorts = append(rsp.NetworkPorts, toNetworkPortRsp(r.Context(), port))
	}
	rsp.PowerPorts = make([]powerPortRsp, 0, len(detail.PowerPorts))
	for _, port := range detail.PowerPorts {
		rsp.PowerPorts = append(rsp.PowerPorts, toPowerPortRsp(r.Context(), port))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

type updateAssetReq struct {
	AssetNumber   *int64     `json:"asset_number" validate:"omitempty,min=100000,max=999999"`
	Hostname      *string    `json:"hostname" validate:"omitempty,hostname_rfc1123,max=64"`
	ClearHostname bool       `json:"clear_hostname"`
	RackID        *uuid.UUID `json:"rack_id"`
	RackPosition  *int       `json:"rack_position" validate:"omitempty,min=1"`
	ModelID       *uuid.UUID `json:"model_id"`
	ChassisID     *uuid.UUID `json:"chassis_id"`
	ClearChassis  bool       `json:"clear_chassis"`
	ChassisSlot   *int32     `json:"chassis_slot" validate:"omitempty,min=1"`
	Owner         *string    `json:"owner" validate:"omitempty,max=128"`
	Comment       *string    `json:"comment"`
}

func updateAsset(r *http.Request) (*httpx.Response, error) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		return nil, err
	}
	req := &updateAssetReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	asset, aerr := assetsvc.Update(r.Context(), assetID, &models.AssetUpdate{
		AssetNumber:   req.AssetNumber,
		Hostname:      req.Hostname,
		ClearHostname: req.ClearHostname,
		RackID:        req.RackID,
		RackPosition:  req.RackPosition,
		ModelID:       req.ModelID,
		ChassisID:     req.ChassisID,
		ClearChassis:  req.ClearChassis,
		ChassisSlot:   req.ChassisSlot,
		Owner:         req.Owner,
		Comment:       req.Comment,
	})
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: toAssetRsp(asset)}, nil
}

func deleteAsset(r *http.Request) (*httpx.Response, error) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		return nil, err
	}
	if aerr := assetsvc.Delete(r.Context(), assetID); aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

func decommissionAsset(r *http.Request) (*httpx.Response, error) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		return nil, err
	}
	if aerr := assetsvc.Decommission(r.Context(), assetID); aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

// promoteAsset copies a live asset into the active plan and returns the
// draft, existing or new.
func promoteAsset(r *http.Request) (*httpx.Response, error) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		return nil, err
	}
	draft, aerr := overlay.GetOrCreateDraft(r.Context(), assetID)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: toAssetRsp(draft)}, nil
}

type diffRsp struct {
	ChangedFields []string `json:"changed_fields"`
}

// diffAsset reports the fields on which the active plan's draft diverges
// from the live asset. An uncovered asset yields an empty list.
func diffAsset(r *http.Request) (*httpx.Response, error) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		return nil, err
	}
	ctx := r.Context()
	plan, aerr := overlay.RequireActivePlan(ctx)
	if aerr != nil {
		return nil, aerr
	}
	live, aerr := db.DB(ctx).GetAsset(ctx, assetID)
	if aerr != nil {
		return nil, aerr
	}
	if live.IsDraft() {
		return nil, httpx.ErrInvalidRequest("diff target must be a live asset")
	}
	draft, aerr := db.DB(ctx).GetDraftForLive(ctx, plan.PlanID, live.AssetID)
	if aerr != nil {
		if aerr.Is(dberror.ErrNotFound) {
			return &httpx.Response{StatusCode: http.StatusOK, Response: diffRsp{ChangedFields: []string{}}}, nil
		}
		return nil, aerr
	}
	changed, aerr := diffengine.Changes(ctx, live, draft)
	if aerr != nil {
		return nil, aerr
	}
	if changed == nil {
		changed = []string{}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: diffRsp{ChangedFields: changed}}, nil
}

type validatePlacementReq struct {
	RackID         uuid.UUID  `json:"rack_id" validate:"required"`
	RackPosition   int        `json:"rack_position" validate:"required,min=1"`
	ModelID        uuid.UUID  `json:"model_id" validate:"required"`
	ExcludeAssetID *uuid.UUID `json:"exclude_asset_id"`
}

type validatePlacementRsp struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// validatePlacement checks a candidate placement against the effective view
// without writing anything. The same check runs again inside the write
// transaction, so a positive answer here is advisory.
func validatePlacement(r *http.Request) (*httpx.Response, error) {
	req := &validatePlacementReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	ctx := r.Context()
	rack, aerr := db.DB(ctx).GetRack(ctx, req.RackID)
	if aerr != nil {
		return nil, aerr
	}
	model, aerr := db.DB(ctx).GetITModel(ctx, req.ModelID)
	if aerr != nil {
		return nil, aerr
	}
	occupants, aerr := effectiveOccupants(ctx, req.RackID, req.ExcludeAssetID)
	if aerr != nil {
		return nil, aerr
	}
	rsp := validatePlacementRsp{Valid: true}
	if errp := placement.CheckFit(rack.Height, req.RackPosition, model.Height, occupants); errp != nil {
		rsp.Valid = false
		rsp.Reason = errp.Error()
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

// effectiveOccupants builds the occupant set of a rack in the effective
// view, leaving out the asset being placed and the row that shadows or is
// shadowed by it.
func effectiveOccupants(ctx context.Context, rackID uuid.UUID, exclude *uuid.UUID) ([]placement.Occupant, apperrors.Error) {
	assets, err := overlay.RackAssets(ctx, rackID)
	if err != nil {
		return nil, err
	}
	heights := make(map[uuid.UUID]int)
	catalog, err := db.DB(ctx).ListITModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range catalog {
		heights[m.ModelID] = m.Height
	}
	return occupantsExcluding(assets, heights, exclude), nil
}

func occupantsExcluding(assets []*models.Asset, heights map[uuid.UUID]int, exclude *uuid.UUID) []placement.Occupant {
	var occupants []placement.Occupant
	for _, asset := range assets {
		if exclude != nil {
			if asset.AssetID == *exclude {
				continue
			}
			if asset.RelatedAssetID.Valid && asset.RelatedAssetID.UUID == *exclude {
				continue
			}
		}
		occupants = append(occupants, placement.Occupant{
			AssetID:  asset.AssetID,
			Label:    asset.NumberLabel(),
			Position: asset.RackPosition,
			Height:   heights[asset.ModelID],
		})
	}
	return occupants
}

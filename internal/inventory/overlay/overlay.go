// Package overlay computes the effective view of the inventory under an
// active change plan: live assets whose drafts shadow them are replaced by
// the drafts, untouched live assets show through, and plan-only assets are
// added on top. Without an active plan the effective view is simply the live
// state.
package overlay

import (
	"context"

	"github.com/google/uuid"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/invcommon"
)

var (
	ErrOverlay    apperrors.Error = apperrors.New("overlay error").SetStatusCode(500)
	ErrNoPlan     apperrors.Error = ErrOverlay.New("no active change plan").SetStatusCode(400)
	ErrPlanClosed apperrors.Error = ErrOverlay.New("change plan already executed").SetStatusCode(409)
)

// PlanScope returns the active change plan as a nullable scope for db
// queries: invalid when no plan is active.
func PlanScope(ctx context.Context) uuid.NullUUID {
	planID := invcommon.ChangePlanFromContext(ctx)
	return uuid.NullUUID{UUID: planID, Valid: planID != uuid.Nil}
}

// RequireActivePlan returns the active plan and verifies it still accepts
// edits.
func RequireActivePlan(ctx context.Context) (*models.ChangePlan, apperrors.Error) {
	planID := invcommon.ChangePlanFromContext(ctx)
	if planID == uuid.Nil {
		return nil, ErrNoPlan
	}
	plan, err := db.DB(ctx).GetChangePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Executed() {
		return nil, ErrPlanClosed
	}
	return plan, nil
}

// RackAssets returns the rack's assets in the effective view: under an
// active plan a draft replaces the live asset it shadows and plan-only
// drafts appear alongside, otherwise the live assets are returned as-is.
// Decommission drafts hide their live asset without appearing themselves.
func RackAssets(ctx context.Context, rackID uuid.UUID) ([]*models.Asset, apperrors.Error) {
	live, err := db.DB(ctx).ListLiveAssetsByRack(ctx, rackID)
	if err != nil {
		return nil, err
	}
	planID := invcommon.ChangePlanFromContext(ctx)
	if planID == uuid.Nil {
		return live, nil
	}

	drafts, err := db.DB(ctx).ListDraftAssetsByRack(ctx, rackID, planID)
	if err != nil {
		return nil, err
	}
	overridden := make(map[uuid.UUID]bool, len(drafts))
	for _, draft := range drafts {
		if draft.RelatedAssetID.Valid {
			overridden[draft.RelatedAssetID.UUID] = true
		}
	}

	effective := make([]*models.Asset, 0, len(live)+len(drafts))
	for _, asset := range live {
		if !overridden[asset.AssetID] {
			effective = append(effective, asset)
		}
	}
	for _, draft := range drafts {
		if !draft.IsDecommissioned {
			effective = append(effective, draft)
		}
	}
	return effective, nil
}

// ResolveAsset returns the row that represents the given asset in the
// effective view: the shadowing draft when the ID names a live asset covered
// by the active plan, otherwise the asset itself.
func ResolveAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, apperrors.Error) {
	asset, err := db.DB(ctx).GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	planID := invcommon.ChangePlanFromContext(ctx)
	if planID == uuid.Nil || asset.IsDraft() {
		return asset, nil
	}
	draft, err := db.DB(ctx).GetDraftForLive(ctx, planID, asset.AssetID)
	if err != nil {
		if err.Is(dberror.ErrNotFound) {
			return asset, nil
		}
		return nil, err
	}
	return draft, nil
}

// GetOrCreateDraft promotes a live asset into the active plan, returning the
// existing draft when one already shadows it. Callers editing under a plan
// go through this before any write.
func GetOrCreateDraft(ctx context.Context, liveAssetID uuid.UUID) (*models.Asset, apperrors.Error) {
	plan, err := RequireActivePlan(ctx)
	if err != nil {
		return nil, err
	}
	draft, err := db.DB(ctx).GetDraftForLive(ctx, plan.PlanID, liveAssetID)
	if err == nil {
		return draft, nil
	}
	if !err.Is(dberror.ErrNotFound) {
		return nil, err
	}
	return db.DB(ctx).CloneAssetIntoPlan(ctx, liveAssetID, plan.PlanID)
}

// EditableAsset resolves an asset for a mutating operation: under an active
// plan a live asset is first promoted to a draft; without a plan the live
// asset is returned directly.
func EditableAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, apperrors.Error) {
	asset, err := db.DB(ctx).GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	planID := invcommon.ChangePlanFromContext(ctx)
	if planID == uuid.Nil {
		return asset, nil
	}
	if asset.IsDraft() {
		if asset.ChangePlanID.UUID != planID {
			return nil, ErrOverlay.Msg("asset belongs to a different change plan").SetStatusCode(409)
		}
		return asset, nil
	}
	return GetOrCreateDraft(ctx, asset.AssetID)
}

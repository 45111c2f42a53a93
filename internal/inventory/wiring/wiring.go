// Package wiring implements connection edits against the effective view:
// network links between asset ports, keyed by destination hostname and port
// name, and power links from asset power ports to PDU outlets. Under an
// active change plan both endpoints are promoted to drafts before any link
// is written, so live wiring is never touched by a plan edit.
package wiring

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/invcommon"
	"github.com/rackhaus/rackd/internal/inventory/overlay"
)

// NetworkEdit is one requested state for a named network port. An empty
// destination pair means the port should end up disconnected. Mac, when
// non-nil, replaces the recorded address.
type NetworkEdit struct {
	PortName     string
	Mac          *string
	DestHostname string
	DestPortName string
}

// PowerEdit is one requested state for a named power port. Connected false
// means the port should end up unplugged.
type PowerEdit struct {
	PortName   string
	Connected  bool
	Side       string
	PortNumber int
}

// EditFailure records why one edit in a batch was not applied.
type EditFailure struct {
	PortName string `json:"port_name"`
	Reason   string `json:"reason"`
}

// ApplyNetworkEdits applies the edits best-effort: each edit succeeds or
// fails on its own, and failures are returned per port. The returned error
// is reserved for systemic faults that abort the whole batch.
func ApplyNetworkEdits(ctx context.Context, assetID uuid.UUID, edits []NetworkEdit) ([]EditFailure, apperrors.Error) {
	asset, err := overlay.EditableAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	var failures []EditFailure
	for _, edit := range edits {
		if err := applyNetworkEdit(ctx, asset, edit); err != nil {
			if err.StatusCode() >= 500 {
				return failures, err
			}
			failures = append(failures, EditFailure{PortName: edit.PortName, Reason: err.Error()})
		}
	}
	return failures, nil
}

func applyNetworkEdit(ctx context.Context, asset *models.Asset, edit NetworkEdit) apperrors.Error {
	hasHost := edit.DestHostname != ""
	hasPort := edit.DestPortName != ""
	if hasHost != hasPort {
		return ErrMissingConnectionEndpoint
	}

	port, err := db.DB(ctx).GetNetworkPortByName(ctx, asset.AssetID, edit.PortName)
	if err != nil {
		if err.Is(dberror.ErrNotFound) {
			return ErrUnknownSourcePort.Msg("no such port " + edit.PortName)
		}
		return err
	}

	if edit.Mac != nil {
		if err := db.DB(ctx).UpdateNetworkPortMac(ctx, port.PortID, *edit.Mac); err != nil {
			return err
		}
	}

	if !hasHost {
		return db.DB(ctx).ClearNetworkLink(ctx, port.PortID)
	}

	dest, err := resolveDestination(ctx, edit.DestHostname)
	if err != nil {
		return err
	}
	if dest.AssetID == asset.AssetID {
		return ErrSelfConnection
	}
	destPort, err := db.DB(ctx).GetNetworkPortByName(ctx, dest.AssetID, edit.DestPortName)
	if err != nil {
		if err.Is(dberror.ErrNotFound) {
			return ErrUnknownDestinationPort.Msg("no such port " + edit.DestPortName + " on " + edit.DestHostname)
		}
		return err
	}
	if err := db.DB(ctx).SetNetworkLink(ctx, port.PortID, destPort.PortID); err != nil {
		if err.Is(dberror.ErrAlreadyExists) {
			return ErrConnectionConflict.Msg("port " + edit.DestPortName + " on " + edit.DestHostname + " is already connected")
		}
		return err
	}
	log.Ctx(ctx).Debug().
		Str("asset", asset.NumberLabel()).
		Str("port", edit.PortName).
		Str("dest", edit.DestHostname+"/"+edit.DestPortName).
		Msg("network link set")
	return nil
}

// resolveDestination finds the destination asset by hostname in the
// effective view and, under an active plan, promotes a live hit to a draft
// so the link lands between plan-scoped ports.
func resolveDestination(ctx context.Context, hostname string) (*models.Asset, apperrors.Error) {
	dest, err := db.DB(ctx).GetAssetByHostname(ctx, hostname, overlay.PlanScope(ctx))
	if err != nil {
		if err.Is(dberror.ErrNotFound) {
			return nil, ErrUnknownDestinationHost.Msg("unknown hostname " + hostname)
		}
		return nil, err
	}
	if invcommon.ChangePlanFromContext(ctx) != uuid.Nil && !dest.IsDraft() {
		return overlay.GetOrCreateDraft(ctx, dest.AssetID)
	}
	return dest, nil
}

// ApplyPowerEdits applies the edits best-effort, mirroring
// ApplyNetworkEdits.
func ApplyPowerEdits(ctx context.Context, assetID uuid.UUID, edits []PowerEdit) ([]EditFailure, apperrors.Error) {
	asset, err := overlay.EditableAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	var failures []EditFailure
	for _, edit := range edits {
		if err := applyPowerEdit(ctx, asset, edit); err != nil {
			if err.StatusCode() >= 500 {
				return failures, err
			}
			failures = append(failures, EditFailure{PortName: edit.PortName, Reason: err.Error()})
		}
	}
	return failures, nil
}

func applyPowerEdit(ctx context.Context, asset *models.Asset, edit PowerEdit) apperrors.Error {
	port, err := db.DB(ctx).GetPowerPortByName(ctx, asset.AssetID, edit.PortName)
	if err != nil {
		if err.Is(dberror.ErrNotFound) {
			return ErrUnknownSourcePort.Msg("no such power port " + edit.PortName)
		}
		return err
	}

	if !edit.Connected {
		return db.DB(ctx).SetPowerLink(ctx, port.PortID, uuid.NullUUID{})
	}

	outlet, err := resolveOutlet(ctx, asset.RackID, edit.Side, edit.PortNumber)
	if err != nil {
		return err
	}
	if err := db.DB(ctx).SetPowerLink(ctx, port.PortID, uuid.NullUUID{UUID: outlet.PDUPortID, Valid: true}); err != nil {
		if err.Is(dberror.ErrUniqueViolation) {
			return ErrOutletConflict.Msg("pdu outlet " + edit.Side + " " + strconv.Itoa(edit.PortNumber) + " is already in use")
		}
		return err
	}
	return nil
}

func resolveOutlet(ctx context.Context, rackID uuid.UUID, side string, number int) (*models.PDUPort, apperrors.Error) {
	planID := invcommon.ChangePlanFromContext(ctx)
	var outlet *models.PDUPort
	var err apperrors.Error
	if planID != uuid.Nil {
		outlet, err = db.DB(ctx).GetOrCreateDraftPDUPort(ctx, rackID, side, number, planID)
	} else {
		outlet, err = db.DB(ctx).GetPDUPortByCoords(ctx, rackID, side, number, uuid.NullUUID{})
	}
	if err != nil {
		if err.Is(dberror.ErrNotFound) {
			return nil, ErrUnknownOutlet.Msg("no outlet " + side + " " + strconv.Itoa(number) + " on this rack")
		}
		return nil, err
	}
	return outlet, nil
}

package diffengine

import (
	"context"
	"database/sql"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

// Changed field names reported by Changes.
const (
	FieldAssetNumber        = "asset_number"
	FieldHostname           = "hostname"
	FieldRack               = "rack"
	FieldRackPosition       = "rack_position"
	FieldModel              = "model"
	FieldChassis            = "chassis"
	FieldChassisSlot        = "chassis_slot"
	FieldOwner              = "owner"
	FieldComment            = "comment"
	FieldNetworkPorts       = "network_ports"
	FieldNetworkConnections = "network_connections"
	FieldPowerConnections   = "power_connections"
)

// PeerRef identifies the live-equivalent far end of a network cable.
type PeerRef struct {
	AssetID  uuid.UUID
	PortName string
	// NewAsset marks a peer on a draft asset with no live counterpart yet.
	// Such a connection always differs from any live state.
	NewAsset bool
}

// OutletRef is a PDU outlet by physical coordinates. Draft PDU port copies
// resolve to the same coordinates as their live originals.
type OutletRef struct {
	RackID     uuid.UUID
	Side       string
	PortNumber int
}

// ScalarChanges compares the scalar fields of an asset pair.
// draftChassisLive must be the live chassis the draft's chassis reference
// resolves to: a draft may point at another draft, so raw foreign keys do
// not compare.
func ScalarChanges(live, draft *models.Asset, draftChassisLive uuid.NullUUID) []string {
	var changed []string
	if live.AssetNumber != draft.AssetNumber {
		changed = append(changed, FieldAssetNumber)
	}
	if !LooseEqual(nullString(live.Hostname), nullString(draft.Hostname)) {
		changed = append(changed, FieldHostname)
	}
	if live.RackID != draft.RackID {
		changed = append(changed, FieldRack)
	}
	if live.RackPosition != draft.RackPosition {
		changed = append(changed, FieldRackPosition)
	}
	if live.ModelID != draft.ModelID {
		changed = append(changed, FieldModel)
	}
	if live.ChassisID != draftChassisLive {
		changed = append(changed, FieldChassis)
	}
	if live.ChassisSlot != draft.ChassisSlot {
		changed = append(changed, FieldChassisSlot)
	}
	if !LooseEqual(live.Owner, draft.Owner) {
		changed = append(changed, FieldOwner)
	}
	if !LooseEqual(live.Comment, draft.Comment) {
		changed = append(changed, FieldComment)
	}
	return changed
}

// NetworkChanged compares per-port peers keyed by port name. A draft peer on
// a not-yet-materialized asset is treated as changed relative to any live
// state.
func NetworkChanged(live, draft map[string]*PeerRef) bool {
	if len(live) != len(draft) {
		return true
	}
	for name, d := range draft {
		l, ok := live[name]
		if !ok {
			return true
		}
		if d == nil && l == nil {
			continue
		}
		if d == nil || l == nil {
			return true
		}
		if d.NewAsset {
			return true
		}
		if d.AssetID != l.AssetID || d.PortName != l.PortName {
			return true
		}
	}
	return false
}

// PowerChanged compares per-port outlet coordinates keyed by port name.
func PowerChanged(live, draft map[string]*OutletRef) bool {
	if len(live) != len(draft) {
		return true
	}
	for name, d := range draft {
		l, ok := live[name]
		if !ok {
			return true
		}
		if d == nil && l == nil {
			continue
		}
		if d == nil || l == nil {
			return true
		}
		if *d != *l {
			return true
		}
	}
	return false
}

// Changes computes the set of fields on which the draft diverges from its
// live counterpart. An empty result means executing the draft would be a
// no-op.
func Changes(ctx context.Context, live, draft *models.Asset) ([]string, apperrors.Error) {
	chassisLive, err := resolveDraftChassis(ctx, draft)
	if err != nil {
		return nil, err
	}
	changed := ScalarChanges(live, draft, chassisLive)

	liveNet, liveMacs, err := networkView(ctx, live.AssetID)
	if err != nil {
		return nil, err
	}
	draftNet, draftMacs, err := networkView(ctx, draft.AssetID)
	if err != nil {
		return nil, err
	}
	if NetworkChanged(liveNet, draftNet) {
		changed = append(changed, FieldNetworkConnections)
	}
	if macsChanged(liveMacs, draftMacs) {
		changed = append(changed, FieldNetworkPorts)
	}

	livePower, err := powerView(ctx, live.AssetID)
	if err != nil {
		return nil, err
	}
	draftPower, err := powerView(ctx, draft.AssetID)
	if err != nil {
		return nil, err
	}
	if PowerChanged(livePower, draftPower) {
		changed = append(changed, FieldPowerConnections)
	}

	sort.Strings(changed)
	return changed, nil
}

// resolveDraftChassis maps the draft's chassis reference to the live chassis
// that would result from executing the plan.
func resolveDraftChassis(ctx context.Context, draft *models.Asset) (uuid.NullUUID, apperrors.Error) {
	if !draft.ChassisID.Valid {
		return uuid.NullUUID{}, nil
	}
	chassis, err := db.DB(ctx).GetAsset(ctx, draft.ChassisID.UUID)
	if err != nil {
		return uuid.NullUUID{}, err
	}
	if !chassis.IsDraft() {
		return draft.ChassisID, nil
	}
	// Draft chassis: the live equivalent is its related asset, if any.
	return chassis.RelatedAssetID, nil
}

// networkView resolves each of the asset's network ports to the live
// equivalent of its current peer, keyed by port name. nil means unconnected.
func networkView(ctx context.Context, assetID uuid.UUID) (map[string]*PeerRef, map[string]string, apperrors.Error) {
	ports, err := db.DB(ctx).ListNetworkPorts(ctx, assetID)
	if err != nil {
		return nil, nil, err
	}
	peers := make(map[string]*PeerRef, len(ports))
	macs := make(map[string]string, len(ports))
	for _, port := range ports {
		macs[port.PortName] = port.MacAddress.String
		if !port.ConnectedPortID.Valid {
			peers[port.PortName] = nil
			continue
		}
		peerPort, err := db.DB(ctx).GetNetworkPort(ctx, port.ConnectedPortID.UUID)
		if err != nil {
			return nil, nil, err
		}
		peerAsset, err := db.DB(ctx).GetAsset(ctx, peerPort.AssetID)
		if err != nil {
			return nil, nil, err
		}
		ref := &PeerRef{AssetID: peerAsset.AssetID, PortName: peerPort.PortName}
		if peerAsset.IsDraft() {
			if peerAsset.RelatedAssetID.Valid {
				ref.AssetID = peerAsset.RelatedAssetID.UUID
			} else {
				ref.NewAsset = true
			}
		}
		peers[port.PortName] = ref
	}
	return peers, macs, nil
}

// powerView resolves each power port's outlet to physical coordinates,
// keyed by port name. nil means unconnected.
func powerView(ctx context.Context, assetID uuid.UUID) (map[string]*OutletRef, apperrors.Error) {
	ports, err := db.DB(ctx).ListPowerPorts(ctx, assetID)
	if err != nil {
		return nil, err
	}
	outlets := make(map[string]*OutletRef, len(ports))
	for _, port := range ports {
		if !port.PDUPortID.Valid {
			outlets[port.PortName] = nil
			continue
		}
		pdu, err := db.DB(ctx).GetPDUPort(ctx, port.PDUPortID.UUID)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("port_name", port.PortName).Msg("failed to resolve pdu port")
			return nil, err
		}
		outlets[port.PortName] = &OutletRef{
			RackID:     pdu.RackID,
			Side:       pdu.LeftRight,
			PortNumber: pdu.PortNumber,
		}
	}
	return outlets, nil
}

func macsChanged(live, draft map[string]string) bool {
	if len(live) != len(draft) {
		return true
	}
	for name, d := range draft {
		if l, ok := live[name]; !ok || !LooseEqual(l, d) {
			return true
		}
	}
	return false
}

func nullString(s sql.NullString) any {
	if !s.Valid {
		return nil
	}
	return s.String
}

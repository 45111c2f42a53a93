package diffengine

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

func sampleAsset() *models.Asset {
	return &models.Asset{
		AssetID:      uuid.New(),
		AssetNumber:  sql.NullInt64{Int64: 100001, Valid: true},
		Hostname:     sql.NullString{String: "srv-1", Valid: true},
		RackID:       uuid.New(),
		RackPosition: 1,
		ModelID:      uuid.New(),
		Owner:        "ops",
		Comment:      "first unit",
	}
}

func draftCopy(live *models.Asset, planID uuid.UUID) *models.Asset {
	draft := *live
	draft.AssetID = uuid.New()
	draft.ChangePlanID = uuid.NullUUID{UUID: planID, Valid: true}
	draft.RelatedAssetID = uuid.NullUUID{UUID: live.AssetID, Valid: true}
	return &draft
}

func TestScalarChangesIdenticalCopy(t *testing.T) {
	live := sampleAsset()
	draft := draftCopy(live, uuid.New())
	assert.Empty(t, ScalarChanges(live, draft, draft.ChassisID))
}

func TestScalarChangesMove(t *testing.T) {
	live := sampleAsset()
	draft := draftCopy(live, uuid.New())
	draft.RackPosition = 10
	assert.Equal(t, []string{FieldRackPosition}, ScalarChanges(live, draft, draft.ChassisID))
}

func TestScalarChangesMultipleFields(t *testing.T) {
	live := sampleAsset()
	draft := draftCopy(live, uuid.New())
	draft.Hostname = sql.NullString{String: "srv-2", Valid: true}
	draft.Owner = "neteng"
	changed := ScalarChanges(live, draft, draft.ChassisID)
	assert.ElementsMatch(t, []string{FieldHostname, FieldOwner}, changed)
}

func TestScalarChangesEmptyVsNullHostname(t *testing.T) {
	// "" and NULL are the same hostname under the loose equality rules.
	live := sampleAsset()
	live.Hostname = sql.NullString{}
	draft := draftCopy(live, uuid.New())
	draft.Hostname = sql.NullString{String: "", Valid: true}
	assert.Empty(t, ScalarChanges(live, draft, draft.ChassisID))
}

func TestScalarChangesChassisResolved(t *testing.T) {
	// The draft points at a draft chassis; comparison uses the live chassis
	// the draft resolves to, not the raw foreign key.
	liveChassis := uuid.New()
	live := sampleAsset()
	live.ChassisID = uuid.NullUUID{UUID: liveChassis, Valid: true}
	draft := draftCopy(live, uuid.New())
	draft.ChassisID = uuid.NullUUID{UUID: uuid.New(), Valid: true} // draft chassis row

	resolved := uuid.NullUUID{UUID: liveChassis, Valid: true}
	assert.Empty(t, ScalarChanges(live, draft, resolved))

	otherLive := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	assert.Equal(t, []string{FieldChassis}, ScalarChanges(live, draft, otherLive))
}

func TestNetworkChanged(t *testing.T) {
	peerAsset := uuid.New()
	live := map[string]*PeerRef{
		"eth0": {AssetID: peerAsset, PortName: "eth1"},
		"eth1": nil,
	}
	same := map[string]*PeerRef{
		"eth0": {AssetID: peerAsset, PortName: "eth1"},
		"eth1": nil,
	}
	assert.False(t, NetworkChanged(live, same))

	rewired := map[string]*PeerRef{
		"eth0": {AssetID: peerAsset, PortName: "eth2"},
		"eth1": nil,
	}
	assert.True(t, NetworkChanged(live, rewired))

	dropped := map[string]*PeerRef{
		"eth0": nil,
		"eth1": nil,
	}
	assert.True(t, NetworkChanged(live, dropped))
}

func TestNetworkChangedNewAssetPeer(t *testing.T) {
	// A connection to a not-yet-materialized asset always counts as changed.
	live := map[string]*PeerRef{"eth0": nil}
	draft := map[string]*PeerRef{"eth0": {NewAsset: true, PortName: "eth0"}}
	assert.True(t, NetworkChanged(live, draft))
}

func TestPowerChanged(t *testing.T) {
	rack := uuid.New()
	live := map[string]*OutletRef{
		"power1": {RackID: rack, Side: models.PDULeft, PortNumber: 3},
		"power2": nil,
	}
	same := map[string]*OutletRef{
		"power1": {RackID: rack, Side: models.PDULeft, PortNumber: 3},
		"power2": nil,
	}
	assert.False(t, PowerChanged(live, same))

	moved := map[string]*OutletRef{
		"power1": {RackID: rack, Side: models.PDURight, PortNumber: 3},
		"power2": nil,
	}
	assert.True(t, PowerChanged(live, moved))

	connected := map[string]*OutletRef{
		"power1": {RackID: rack, Side: models.PDULeft, PortNumber: 3},
		"power2": {RackID: rack, Side: models.PDULeft, PortNumber: 4},
	}
	assert.True(t, PowerChanged(live, connected))
}

package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestBuildDecommissionSnapshot(t *testing.T) {
	asset := &Asset{
		AssetNumber:  sql.NullInt64{Int64: 100042, Valid: true},
		Hostname:     sql.NullString{String: "web01", Valid: true},
		Owner:        "ops",
		Comment:      "primary frontend",
		RackPosition: 7,
	}
	model := &ITModel{Vendor: "Dell", ModelNumber: "R740", Height: 2}
	rack := &Rack{Datacenter: "east", RowLetter: "A", RackNum: 3}

	network := []SnapshotNetworkConnection{
		{PortName: "eth0", MacAddress: "00:11:22:33:44:55", PeerAsset: "100043", PeerPortName: "eth1"},
		{PortName: "eth1"},
	}
	power := []SnapshotPowerConnection{
		{PortName: "power1", Side: "L", PortNumber: 5},
	}

	doc, err := BuildDecommissionSnapshot(asset, model, rack, network, power)
	require.NoError(t, err)

	assert.Equal(t, "100042", SnapshotField(doc, "asset_number"))
	assert.Equal(t, "web01", SnapshotField(doc, "hostname"))
	assert.Equal(t, "Dell", SnapshotField(doc, "model.vendor"))
	assert.Equal(t, "R740", SnapshotField(doc, "model.model_number"))
	assert.Equal(t, int64(2), gjson.GetBytes(doc, "model.height").Int())
	assert.Equal(t, "east", SnapshotField(doc, "rack.datacenter"))
	assert.Equal(t, "A3", SnapshotField(doc, "rack.label"))
	assert.Equal(t, int64(7), gjson.GetBytes(doc, "rack_position").Int())

	conns := gjson.GetBytes(doc, "network_connections")
	require.True(t, conns.IsArray())
	require.Len(t, conns.Array(), 2)
	assert.Equal(t, "100043", conns.Get("0.peer_asset").String())
	assert.Equal(t, "eth1", conns.Get("0.peer_port_name").String())
	// unconnected port carries no peer fields
	assert.False(t, conns.Get("1.peer_asset").Exists())

	pconns := gjson.GetBytes(doc, "power_connections")
	require.Len(t, pconns.Array(), 1)
	assert.Equal(t, "L", pconns.Get("0.pdu_side").String())
	assert.Equal(t, int64(5), pconns.Get("0.pdu_port_number").Int())
}

func TestBuildDecommissionSnapshotUnnumbered(t *testing.T) {
	asset := &Asset{RackPosition: 1}
	model := &ITModel{Vendor: "HPE", ModelNumber: "DL380", Height: 2}
	rack := &Rack{Datacenter: "west", RowLetter: "B", RackNum: 1}

	doc, err := BuildDecommissionSnapshot(asset, model, rack, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "unnumbered asset", SnapshotField(doc, "asset_number"))
	assert.False(t, gjson.GetBytes(doc, "hostname").Exists())
	assert.False(t, gjson.GetBytes(doc, "network_connections").Exists())
}

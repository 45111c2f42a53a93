package models

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SnapshotNetworkConnection is one frozen network cable in a decommission
// snapshot. Peers are recorded by label, not by reference, so later deletes
// cannot invalidate the record.
type SnapshotNetworkConnection struct {
	PortName     string
	MacAddress   string
	PeerAsset    string // peer asset number label, "" when unconnected
	PeerPortName string
}

// SnapshotPowerConnection is one frozen power cable.
type SnapshotPowerConnection struct {
	PortName   string
	Side       string
	PortNumber int
}

// BuildDecommissionSnapshot renders the frozen JSON document stored on a
// DecommissionedAsset.
func BuildDecommissionSnapshot(asset *Asset, model *ITModel, rack *Rack,
	network []SnapshotNetworkConnection, power []SnapshotPowerConnection) ([]byte, error) {

	doc := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.SetBytes(doc, path, value)
	}

	set("asset_number", asset.NumberLabel())
	if asset.Hostname.Valid {
		set("hostname", asset.Hostname.String)
	}
	set("owner", asset.Owner)
	set("comment", asset.Comment)
	set("model.vendor", model.Vendor)
	set("model.model_number", model.ModelNumber)
	set("model.height", model.Height)
	set("rack.datacenter", rack.Datacenter)
	set("rack.label", rack.Label())
	set("rack_position", asset.RackPosition)

	for i, conn := range network {
		prefix := fmt.Sprintf("network_connections.%d.", i)
		set(prefix+"port_name", conn.PortName)
		if conn.MacAddress != "" {
			set(prefix+"mac_address", conn.MacAddress)
		}
		if conn.PeerAsset != "" {
			set(prefix+"peer_asset", conn.PeerAsset)
			set(prefix+"peer_port_name", conn.PeerPortName)
		}
	}
	for i, conn := range power {
		prefix := fmt.Sprintf("power_connections.%d.", i)
		set(prefix+"port_name", conn.PortName)
		set(prefix+"pdu_side", conn.Side)
		set(prefix+"pdu_port_number", conn.PortNumber)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SnapshotField reads one field back out of a stored snapshot.
func SnapshotField(snapshot []byte, path string) string {
	return gjson.GetBytes(snapshot, path).String()
}

package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

/*
 network_ports
   Column            |          Type          | Nullable |      Default
---------------------+------------------------+----------+--------------------
 port_id             | uuid                   | not null | uuid_generate_v4()
 asset_id            | uuid                   | not null |
 port_name           | character varying(64)  | not null |
 mac_address         | character varying(17)  |          |
 connected_port_id   | uuid                   |          |
 change_plan_id      | uuid                   |          |
 created_at          | timestamptz            | not null | now()

 UNIQUE (asset_id, port_name)
 FOREIGN KEY (asset_id) REFERENCES assets ON DELETE CASCADE
 FOREIGN KEY (connected_port_id) REFERENCES network_ports (port_id) ON DELETE SET NULL
 FOREIGN KEY (change_plan_id) REFERENCES change_plans ON DELETE CASCADE
*/

// NetworkPort belongs to exactly one asset. connected_port_id is one half of
// a symmetric pair: if A points at B then B points at A. The pair is only
// ever written inside one transaction; wiring.Connect and wiring.Disconnect
// are the sole writers.
type NetworkPort struct {
	PortID          uuid.UUID      `db:"port_id"`
	AssetID         uuid.UUID      `db:"asset_id"`
	PortName        string         `db:"port_name"`
	MacAddress      sql.NullString `db:"mac_address"`
	ConnectedPortID uuid.NullUUID  `db:"connected_port_id"`
	ChangePlanID    uuid.NullUUID  `db:"change_plan_id"`
	CreatedAt       time.Time      `db:"created_at"`
}

/*
 power_ports
   Column         |          Type          | Nullable |      Default
------------------+------------------------+----------+--------------------
 port_id          | uuid                   | not null | uuid_generate_v4()
 asset_id         | uuid                   | not null |
 port_name        | character varying(64)  | not null |
 pdu_port_id      | uuid                   |          |
 change_plan_id   | uuid                   |          |
 created_at       | timestamptz            | not null | now()

 UNIQUE (asset_id, port_name)
 UNIQUE (pdu_port_id) WHERE pdu_port_id IS NOT NULL
 FOREIGN KEY (asset_id) REFERENCES assets ON DELETE CASCADE
 FOREIGN KEY (pdu_port_id) REFERENCES pdu_ports ON DELETE SET NULL
 FOREIGN KEY (change_plan_id) REFERENCES change_plans ON DELETE CASCADE
*/

// PowerPort belongs to one asset and optionally references a PDU outlet.
// There is no back-pointer on the PDU side; the unique index on pdu_port_id
// keeps one outlet from being claimed twice.
type PowerPort struct {
	PortID       uuid.UUID     `db:"port_id"`
	AssetID      uuid.UUID     `db:"asset_id"`
	PortName     string        `db:"port_name"`
	PDUPortID    uuid.NullUUID `db:"pdu_port_id"`
	ChangePlanID uuid.NullUUID `db:"change_plan_id"`
	CreatedAt    time.Time     `db:"created_at"`
}

/*
 pdu_ports
   Column         |         Type          | Nullable |      Default
------------------+-----------------------+----------+--------------------
 pdu_port_id      | uuid                  | not null | uuid_generate_v4()
 rack_id          | uuid                  | not null |
 left_right       | character varying(1)  | not null |
 port_number      | integer               | not null |
 change_plan_id   | uuid                  |          |
 created_at       | timestamptz           | not null | now()

 UNIQUE (rack_id, left_right, port_number, change_plan_id)
 FOREIGN KEY (rack_id) REFERENCES racks ON DELETE CASCADE
 FOREIGN KEY (change_plan_id) REFERENCES change_plans ON DELETE CASCADE
*/

// PDUPort is a physical outlet addressed by (rack, side, number). Draft
// variants are copy-on-write: a live outlet is copied into a plan scope the
// first time a draft power connection references it.
type PDUPort struct {
	PDUPortID    uuid.UUID     `db:"pdu_port_id"`
	RackID       uuid.UUID     `db:"rack_id"`
	LeftRight    string        `db:"left_right"`
	PortNumber   int           `db:"port_number"`
	ChangePlanID uuid.NullUUID `db:"change_plan_id"`
	CreatedAt    time.Time     `db:"created_at"`
}

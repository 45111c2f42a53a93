package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
)

/*
   Column        |          Type           | Collation | Nullable |      Default
-----------------+-------------------------+-----------+----------+--------------------
 model_id        | uuid                    |           | not null | uuid_generate_v4()
 vendor          | character varying(128)  |           | not null |
 model_number    | character varying(128)  |           | not null |
 height          | integer                 |           | not null |
 display_color   | character varying(8)    |           |          |
 cpu             | character varying(128)  |           |          |
 memory          | integer                 |           |          |
 storage         | character varying(128)  |           |          |
 port_template   | jsonb                   |           |          |
 created_at      | timestamptz             |           | not null | now()

 UNIQUE (vendor, model_number)
*/

// ITModel is a hardware template. Height is load-bearing for occupancy math
// and is immutable once assets reference the model.
type ITModel struct {
	ModelID      uuid.UUID    `db:"model_id"`
	Vendor       string       `db:"vendor"`
	ModelNumber  string       `db:"model_number"`
	Height       int          `db:"height"`
	DisplayColor string       `db:"display_color"`
	CPU          string       `db:"cpu"`
	Memory       int          `db:"memory"`
	Storage      string       `db:"storage"`
	PortTemplate pgtype.JSONB `db:"port_template"`
	CreatedAt    time.Time    `db:"created_at"`
}

// PortTemplateSpec is the decoded form of the port_template column.
type PortTemplateSpec struct {
	// NetworkPorts lists the named network ports, e.g. ["eth0", "eth1"].
	NetworkPorts []string `json:"network_ports"`
	// PowerPorts is the number of power ports; names are generated as
	// "power1".."powerN".
	PowerPorts int `json:"power_ports"`
}

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

/*
   Column     |          Type          | Collation | Nullable |      Default
--------------+------------------------+-----------+----------+--------------------
 rack_id      | uuid                   |           | not null | uuid_generate_v4()
 datacenter   | character varying(64)  |           | not null |
 row_letter   | character varying(4)   |           | not null |
 rack_num     | integer                |           | not null |
 height       | integer                |           | not null | 42
 created_at   | timestamptz            |           | not null | now()

 UNIQUE (datacenter, row_letter, rack_num)
*/

// Rack model definition
type Rack struct {
	RackID     uuid.UUID `db:"rack_id"`
	Datacenter string    `db:"datacenter"`
	RowLetter  string    `db:"row_letter"`
	RackNum    int       `db:"rack_num"`
	Height     int       `db:"height"`
	CreatedAt  time.Time `db:"created_at"`
}

// Label renders the rack's human-readable coordinate, e.g. "A1".
func (r *Rack) Label() string {
	return fmt.Sprintf("%s%d", r.RowLetter, r.RackNum)
}

// PDU side designators. Each rack carries a left and a right PDU bank with
// ports numbered 1 through 24.
const (
	PDULeft  = "L"
	PDURight = "R"

	PDUPortsPerSide = 24
)

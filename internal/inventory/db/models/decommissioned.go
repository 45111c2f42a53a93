package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

/*
   Column             |          Type           | Nullable |      Default
----------------------+-------------------------+----------+--------------------
 record_id            | uuid                    | not null | uuid_generate_v4()
 asset_number         | bigint                  |          |
 hostname             | character varying(64)   |          |
 owner                | character varying(128)  |          |
 snapshot             | jsonb                   | not null |
 decommissioned_by    | character varying(128)  | not null |
 decommissioned_at    | timestamptz             | not null | now()

 No uniqueness on asset_number: history may repeat.
*/

// DecommissionedAsset is an append-only archival record. The snapshot column
// holds a frozen JSON document (model, rack, network and power connections)
// rather than live references, so later deletes cannot invalidate it.
type DecommissionedAsset struct {
	RecordID         uuid.UUID      `db:"record_id"`
	AssetNumber      sql.NullInt64  `db:"asset_number"`
	Hostname         sql.NullString `db:"hostname"`
	Owner            string         `db:"owner"`
	Snapshot         []byte         `db:"snapshot"`
	DecommissionedBy string         `db:"decommissioned_by"`
	DecommissionedAt time.Time      `db:"decommissioned_at"`
}

package models

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
)

/*
   Column            |          Type           | Collation | Nullable |      Default
---------------------+-------------------------+-----------+----------+--------------------
 asset_id            | uuid                    |           | not null | uuid_generate_v4()
 asset_number        | bigint                  |           |          |
 hostname            | character varying(64)   |           |          |
 rack_id             | uuid                    |           | not null |
 rack_position       | integer                 |           | not null |
 model_id            | uuid                    |           | not null |
 chassis_id          | uuid                    |           |          |
 chassis_slot        | integer                 |           |          |
 owner               | character varying(128)  |           |          |
 comment             | text                    |           |          |
 change_plan_id      | uuid                    |           |          |
 related_asset_id    | uuid                    |           |          |
 is_decommissioned   | boolean                 |           | not null | false
 created_at          | timestamptz             |           | not null | now()
 updated_at          | timestamptz             |           | not null | now()

 UNIQUE (asset_number) WHERE change_plan_id IS NULL
 UNIQUE (hostname) WHERE change_plan_id IS NULL AND hostname IS NOT NULL
 UNIQUE (change_plan_id, related_asset_id) WHERE related_asset_id IS NOT NULL
 FOREIGN KEY (change_plan_id) REFERENCES change_plans ON DELETE CASCADE
 FOREIGN KEY (related_asset_id) REFERENCES assets (asset_id) ON DELETE SET NULL
*/

// Asset is the unit of physical inventory. A row with a NULL change_plan_id
// is live; a row scoped to a change plan is a draft. A draft either shadows
// an existing live asset (related_asset_id set) or is new to the plan.
type Asset struct {
	AssetID        uuid.UUID      `db:"asset_id"`
	AssetNumber    sql.NullInt64  `db:"asset_number"`
	Hostname       sql.NullString `db:"hostname"`
	RackID         uuid.UUID      `db:"rack_id"`
	RackPosition   int            `db:"rack_position"`
	ModelID        uuid.UUID      `db:"model_id"`
	ChassisID      uuid.NullUUID  `db:"chassis_id"`
	ChassisSlot    sql.NullInt32  `db:"chassis_slot"`
	Owner          string         `db:"owner"`
	Comment        string         `db:"comment"`
	ChangePlanID   uuid.NullUUID  `db:"change_plan_id"`
	RelatedAssetID uuid.NullUUID  `db:"related_asset_id"`
	// IsDecommissioned is meaningful on drafts only: executing the plan
	// archives the related live asset instead of updating it.
	IsDecommissioned bool      `db:"is_decommissioned"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// IsDraft reports whether the asset row is scoped to a change plan.
func (a *Asset) IsDraft() bool {
	return a.ChangePlanID.Valid
}

// NumberLabel renders the asset number for messages, or a generic label for
// an unnumbered asset.
func (a *Asset) NumberLabel() string {
	if a.AssetNumber.Valid {
		return strconv.FormatInt(a.AssetNumber.Int64, 10)
	}
	return "unnumbered asset"
}

// AssetUpdate carries a partial update of an asset. Nil fields are left
// unchanged. Clearable fields use the dedicated Clear flags.
type AssetUpdate struct {
	AssetNumber   *int64
	Hostname      *string
	ClearHostname bool
	RackID        *uuid.UUID
	RackPosition  *int
	ModelID       *uuid.UUID
	ChassisID     *uuid.UUID
	ClearChassis  bool
	ChassisSlot   *int32
	Owner         *string
	Comment       *string
}

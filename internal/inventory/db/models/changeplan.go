package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

/*
   Column         |          Type           | Collation | Nullable |      Default
------------------+-------------------------+-----------+----------+--------------------
 plan_id          | uuid                    |           | not null | uuid_generate_v4()
 name             | character varying(128)  |           | not null |
 owner            | character varying(128)  |           | not null |
 execution_time   | timestamptz             |           |          |
 executed_at      | timestamptz             |           |          |
 created_at       | timestamptz             |           | not null | now()

 UNIQUE (name, owner)
*/

// ChangePlan is a named, user-owned bundle of staged modifications. Deleting
// a plan cascades to all rows scoped to it (drafts, draft ports, draft PDU
// ports).
type ChangePlan struct {
	PlanID        uuid.UUID    `db:"plan_id"`
	Name          string       `db:"name"`
	Owner         string       `db:"owner"`
	ExecutionTime sql.NullTime `db:"execution_time"`
	ExecutedAt    sql.NullTime `db:"executed_at"`
	CreatedAt     time.Time    `db:"created_at"`
}

// Executed reports whether the plan has already been committed.
func (p *ChangePlan) Executed() bool {
	return p.ExecutedAt.Valid
}

// ExecutionReport is the outcome of committing a change plan.
type ExecutionReport struct {
	// Materialized lists live asset IDs created or updated from drafts.
	Materialized []uuid.UUID `json:"materialized"`
	// Archived lists live asset IDs decommissioned by the plan.
	Archived []uuid.UUID `json:"archived"`
	// Failed lists drafts that could not be applied.
	Failed []DraftFailure `json:"failed"`
}

// DraftFailure records why a single draft was not applied. Sibling drafts
// are unaffected.
type DraftFailure struct {
	DraftID uuid.UUID `json:"draft_id"`
	Reason  string    `json:"reason"`
}

// Package placement implements the spatial occupancy checks for rack
// elevations. All functions are pure: callers supply the candidate range and
// the set of occupants to check against, and perform writes themselves. The
// same checks run again inside the write transaction in the db layer, which
// closes the validate/write race.
package placement

import (
	"fmt"

	"github.com/google/uuid"
)

// Occupant is an asset already occupying units in the rack under
// consideration.
type Occupant struct {
	AssetID  uuid.UUID
	Label    string // asset number, or a generic label when unnumbered
	Position int    // bottom occupied unit
	Height   int
}

// CheckFit validates that the candidate range [position, position+height-1]
// lies within [1, rackHeight] and overlaps none of the occupants. Callers
// must already have excluded the asset being moved (and its draft
// counterpart) from occupants.
func CheckFit(rackHeight, position, height int, occupants []Occupant) error {
	if height < 1 {
		return ErrOutOfRackBounds.Msg("asset height must be at least 1")
	}
	top := position + height - 1
	if position < 1 || top > rackHeight {
		return ErrOutOfRackBounds.Msg(fmt.Sprintf(
			"units %d-%d exceed rack bounds 1-%d", position, top, rackHeight))
	}
	for _, occ := range occupants {
		occTop := occ.Position + occ.Height - 1
		if position <= occTop && occ.Position <= top {
			return ErrLocationConflict.Msg(fmt.Sprintf(
				"units %d-%d overlap asset %s at units %d-%d",
				position, top, occ.Label, occ.Position, occTop))
		}
	}
	return nil
}

// BatchRow is one proposed placement in an incoming bulk batch.
type BatchRow struct {
	Label     string // identifies the row in conflict messages
	RackLabel string
	Position  int
	Height    int
}

// CheckBatch detects collisions between rows of one incoming batch,
// independent of existing state. It builds a rack -> unit -> label map and
// fails on the first in-batch collision, naming both rows. Runs before any
// database write.
func CheckBatch(rows []BatchRow) error {
	occupied := make(map[string]map[int]string)
	for _, row := range rows {
		units := occupied[row.RackLabel]
		if units == nil {
			units = make(map[int]string)
			occupied[row.RackLabel] = units
		}
		for u := row.Position; u < row.Position+row.Height; u++ {
			if other, taken := units[u]; taken {
				return ErrBatchConflict.Msg(fmt.Sprintf(
					"%s and %s both claim rack %s unit %d",
					other, row.Label, row.RackLabel, u))
			}
			units[u] = row.Label
		}
	}
	return nil
}

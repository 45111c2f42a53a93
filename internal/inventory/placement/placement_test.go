package placement

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occ(label string, position, height int) Occupant {
	return Occupant{
		AssetID:  uuid.New(),
		Label:    label,
		Position: position,
		Height:   height,
	}
}

func TestCheckFitEmptyRack(t *testing.T) {
	assert.NoError(t, CheckFit(42, 1, 4, nil))
	assert.NoError(t, CheckFit(42, 39, 4, nil))
	assert.NoError(t, CheckFit(42, 42, 1, nil))
}

func TestCheckFitOutOfBounds(t *testing.T) {
	err := CheckFit(42, 0, 2, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRackBounds))

	err = CheckFit(42, 40, 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRackBounds))

	err = CheckFit(42, -3, 2, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRackBounds))

	// Bounds failure takes priority regardless of occupants
	err = CheckFit(42, 43, 1, []Occupant{occ("100001", 1, 42)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRackBounds))
}

func TestCheckFitConflict(t *testing.T) {
	// Asset 100001 occupies units 1-4; height-2 candidate at 3 collides,
	// at 5 it fits.
	occupants := []Occupant{occ("100001", 1, 4)}

	err := CheckFit(42, 3, 2, occupants)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocationConflict))
	assert.Contains(t, err.Error(), "100001")

	assert.NoError(t, CheckFit(42, 5, 2, occupants))
}

func TestCheckFitOrderIndependent(t *testing.T) {
	// Two non-overlapping placements validate in either order; any shared
	// unit fails the second call.
	assert.NoError(t, CheckFit(42, 1, 4, []Occupant{occ("a", 10, 4)}))
	assert.NoError(t, CheckFit(42, 10, 4, []Occupant{occ("b", 1, 4)}))

	err := CheckFit(42, 4, 4, []Occupant{occ("c", 1, 4)})
	assert.True(t, errors.Is(err, ErrLocationConflict))
	err = CheckFit(42, 1, 4, []Occupant{occ("d", 4, 4)})
	assert.True(t, errors.Is(err, ErrLocationConflict))
}

func TestCheckFitEdgeAdjacency(t *testing.T) {
	// Touching ranges do not overlap.
	occupants := []Occupant{occ("100002", 5, 4)} // units 5-8
	assert.NoError(t, CheckFit(42, 1, 4, occupants))
	assert.NoError(t, CheckFit(42, 9, 4, occupants))

	err := CheckFit(42, 8, 2, occupants)
	assert.True(t, errors.Is(err, ErrLocationConflict))
}

func TestCheckBatch(t *testing.T) {
	rows := []BatchRow{
		{Label: "row1", RackLabel: "A1", Position: 1, Height: 4},
		{Label: "row2", RackLabel: "A1", Position: 5, Height: 2},
		{Label: "row3", RackLabel: "B1", Position: 1, Height: 4},
	}
	assert.NoError(t, CheckBatch(rows))
}

func TestCheckBatchCollision(t *testing.T) {
	rows := []BatchRow{
		{Label: "srv-1", RackLabel: "A1", Position: 1, Height: 4},
		{Label: "srv-2", RackLabel: "A1", Position: 1, Height: 4},
	}
	err := CheckBatch(rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBatchConflict))
	// Both conflicting labels are named
	assert.Contains(t, err.Error(), "srv-1")
	assert.Contains(t, err.Error(), "srv-2")
}

func TestCheckBatchSameUnitsDifferentRacks(t *testing.T) {
	rows := []BatchRow{
		{Label: "srv-1", RackLabel: "A1", Position: 1, Height: 4},
		{Label: "srv-2", RackLabel: "A2", Position: 1, Height: 4},
	}
	assert.NoError(t, CheckBatch(rows))
}

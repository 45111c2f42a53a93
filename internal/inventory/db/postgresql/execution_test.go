package postgresql

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/placement"
)

func TestSurvivingOccupants(t *testing.T) {
	planID := uuid.New()
	liveID := uuid.New()
	moverID := uuid.New()
	squatterID := uuid.New()

	// live asset on units 1-4, its draft moving it to 10-13, and a sibling
	// draft targeting the vacated units
	entries := []rackOccupantRow{
		{assetID: liveID, position: 1, height: 4},
		{
			assetID:        moverID,
			position:       10,
			height:         4,
			planID:         uuid.NullUUID{UUID: planID, Valid: true},
			relatedAssetID: uuid.NullUUID{UUID: liveID, Valid: true},
		},
		{
			assetID:  squatterID,
			position: 1,
			height:   4,
			planID:   uuid.NullUUID{UUID: planID, Valid: true},
		},
	}
	squatter := &models.Asset{
		AssetID:      squatterID,
		RackPosition: 1,
		ChangePlanID: uuid.NullUUID{UUID: planID, Valid: true},
	}

	// while the mover survives, the live asset is shadowed and units 1-4 are
	// free for the squatter
	occ := survivingOccupants(entries, map[uuid.UUID]string{}, squatter)
	assert.NoError(t, placement.CheckFit(42, squatter.RackPosition, 4, occ))

	// once the mover fails, the live asset keeps its units and the squatter
	// must fail with it
	failed := map[uuid.UUID]string{moverID: "hostname already in use"}
	occ = survivingOccupants(entries, failed, squatter)
	err := placement.CheckFit(42, squatter.RackPosition, 4, occ)
	assert.Error(t, err)
	assert.ErrorIs(t, err, placement.ErrLocationConflict)

	// the mover itself never collides with its own live asset
	mover := &models.Asset{
		AssetID:        moverID,
		RackPosition:   10,
		ChangePlanID:   uuid.NullUUID{UUID: planID, Valid: true},
		RelatedAssetID: uuid.NullUUID{UUID: liveID, Valid: true},
	}
	occ = survivingOccupants(entries, map[uuid.UUID]string{}, mover)
	assert.NoError(t, placement.CheckFit(42, mover.RackPosition, 4, occ))
}

func TestSurvivingOccupantsDecommission(t *testing.T) {
	planID := uuid.New()
	liveID := uuid.New()
	retireID := uuid.New()

	entries := []rackOccupantRow{
		{assetID: liveID, position: 1, height: 4},
		{
			assetID:        retireID,
			position:       1,
			height:         4,
			planID:         uuid.NullUUID{UUID: planID, Valid: true},
			relatedAssetID: uuid.NullUUID{UUID: liveID, Valid: true},
			decommissioned: true,
		},
	}
	incoming := &models.Asset{
		AssetID:      uuid.New(),
		RackPosition: 1,
		ChangePlanID: uuid.NullUUID{UUID: planID, Valid: true},
	}

	// a surviving decommission frees the units for the incoming draft
	occ := survivingOccupants(entries, map[uuid.UUID]string{}, incoming)
	assert.NoError(t, placement.CheckFit(42, incoming.RackPosition, 4, occ))

	// a failed decommission does not
	failed := map[uuid.UUID]string{retireID: "related live asset no longer exists"}
	occ = survivingOccupants(entries, failed, incoming)
	assert.ErrorIs(t, placement.CheckFit(42, incoming.RackPosition, 4, occ), placement.ErrLocationConflict)
}

package apis

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/placement"
)

func TestOccupantsExcluding(t *testing.T) {
	modelID := uuid.New()
	heights := map[uuid.UUID]int{modelID: 2}

	live := &models.Asset{
		AssetID:      uuid.New(),
		RackPosition: 1,
		ModelID:      modelID,
		AssetNumber:  sql.NullInt64{Int64: 100001, Valid: true},
	}
	other := &models.Asset{AssetID: uuid.New(), RackPosition: 5, ModelID: modelID}
	draft := &models.Asset{
		AssetID:        uuid.New(),
		RackPosition:   10,
		ModelID:        modelID,
		ChangePlanID:   uuid.NullUUID{UUID: uuid.New(), Valid: true},
		RelatedAssetID: uuid.NullUUID{UUID: live.AssetID, Valid: true},
	}
	assets := []*models.Asset{live, other, draft}

	occ := occupantsExcluding(assets, heights, nil)
	require.Len(t, occ, 3)
	assert.Equal(t, "100001", occ[0].Label)
	assert.Equal(t, 2, occ[0].Height)

	// excluding the live asset also drops the draft shadowing it
	occ = occupantsExcluding(assets, heights, &live.AssetID)
	require.Len(t, occ, 1)
	assert.Equal(t, other.AssetID, occ[0].AssetID)

	// the survivors feed straight into the fit check
	assert.NoError(t, placement.CheckFit(42, 1, 4, occ))
	assert.Error(t, placement.CheckFit(42, 4, 2, occ))
}

package db

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackhaus/rackd/internal/inventory/config"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

var skipDB bool

func TestMain(m *testing.M) {
	if err := config.LoadConfig(os.Getenv("RACKD_TEST_CONFIG")); err != nil {
		log.Error().Err(err).Msg("unable to load test config")
		os.Exit(1)
	}
	if err := Init(); err != nil {
		skipDB = true
	}
	os.Exit(m.Run())
}

func newDb(c ...context.Context) context.Context {
	var ctx context.Context
	if len(c) > 0 {
		ctx = ConnCtx(c[0])
	} else {
		ctx = ConnCtx(context.Background())
	}
	return ctx
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	if skipDB {
		t.Skip("database not available")
	}
	ctx := log.Logger.WithContext(context.Background())
	return newDb(ctx)
}

func uniq(prefix string) string {
	return prefix + "-" + strings.Split(uuid.New().String(), "-")[0]
}

func makeRack(t *testing.T, ctx context.Context, height int) *models.Rack {
	t.Helper()
	rack := &models.Rack{
		RackID:     uuid.New(),
		Datacenter: uniq("dc"),
		RowLetter:  "A",
		RackNum:    1,
		Height:     height,
	}
	require.NoError(t, DB(ctx).CreateRack(ctx, rack))
	t.Cleanup(func() { _ = DB(ctx).DeleteRack(ctx, rack.RackID) })
	return rack
}

func makeModel(t *testing.T, ctx context.Context, height int, networkPorts []string, powerPorts int) *models.ITModel {
	t.Helper()
	model := &models.ITModel{
		ModelID:     uuid.New(),
		Vendor:      uniq("vendor"),
		ModelNumber: uniq("model"),
		Height:      height,
	}
	spec := models.PortTemplateSpec{NetworkPorts: networkPorts, PowerPorts: powerPorts}
	require.NoError(t, model.PortTemplate.Set(spec))
	require.NoError(t, DB(ctx).CreateITModel(ctx, model))
	t.Cleanup(func() { _ = DB(ctx).DeleteITModel(ctx, model.ModelID) })
	return model
}

func makeAsset(t *testing.T, ctx context.Context, rack *models.Rack, model *models.ITModel, position int, hostname string) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		AssetID:      uuid.New(),
		RackID:       rack.RackID,
		RackPosition: position,
		ModelID:      model.ModelID,
		Owner:        "tester",
	}
	if hostname != "" {
		asset.Hostname = sql.NullString{String: hostname, Valid: true}
	}
	require.NoError(t, DB(ctx).CreateAsset(ctx, asset))
	t.Cleanup(func() { _ = DB(ctx).DeleteAsset(ctx, asset.AssetID) })
	return asset
}

func TestRackProvisioning(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)

	got, err := DB(ctx).GetRackByLocation(ctx, rack.Datacenter, rack.RowLetter, rack.RackNum)
	assert.NoError(t, err)
	assert.Equal(t, rack.RackID, got.RackID)
	assert.Equal(t, "A1", got.Label())

	// two PDUs with 24 outlets each, all free
	outlets, err := DB(ctx).ListAvailablePDUPorts(ctx, rack.RackID, uuid.NullUUID{})
	assert.NoError(t, err)
	assert.Len(t, outlets, 2*models.PDUPortsPerSide)

	// same location again collides
	dup := &models.Rack{
		RackID:     uuid.New(),
		Datacenter: rack.Datacenter,
		RowLetter:  rack.RowLetter,
		RackNum:    rack.RackNum,
		Height:     42,
	}
	err = DB(ctx).CreateRack(ctx, dup)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)
}

func TestAssetCreateAndPlacement(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 4, []string{"eth0", "eth1"}, 2)

	asset := makeAsset(t, ctx, rack, model, 1, uniq("host"))
	assert.True(t, asset.AssetNumber.Valid)
	assert.GreaterOrEqual(t, asset.AssetNumber.Int64, config.Config().AssetNumberMin)

	// ports provisioned from the template
	nports, err := DB(ctx).ListNetworkPorts(ctx, asset.AssetID)
	assert.NoError(t, err)
	assert.Len(t, nports, 2)
	pports, err := DB(ctx).ListPowerPorts(ctx, asset.AssetID)
	assert.NoError(t, err)
	assert.Len(t, pports, 2)

	// units 1-4 occupied; position 3 overlaps
	overlap := &models.Asset{
		AssetID:      uuid.New(),
		RackID:       rack.RackID,
		RackPosition: 3,
		ModelID:      model.ModelID,
	}
	err = DB(ctx).CreateAsset(ctx, overlap)
	assert.Error(t, err)

	// position 5 is adjacent and fine
	ok := makeAsset(t, ctx, rack, model, 5, "")

	// moving the first asset onto the second collides
	pos := 5
	_, err = DB(ctx).UpdateAsset(ctx, asset.AssetID, &models.AssetUpdate{RackPosition: &pos})
	assert.Error(t, err)

	// out of bounds
	pos = 40
	_, err = DB(ctx).UpdateAsset(ctx, asset.AssetID, &models.AssetUpdate{RackPosition: &pos})
	assert.Error(t, err)

	// a real move works
	pos = 20
	moved, err := DB(ctx).UpdateAsset(ctx, ok.AssetID, &models.AssetUpdate{RackPosition: &pos})
	assert.NoError(t, err)
	assert.Equal(t, 20, moved.RackPosition)
}

func TestHostnameUniqueness(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 1, nil, 0)
	hostname := uniq("web")
	makeAsset(t, ctx, rack, model, 1, hostname)

	dup := &models.Asset{
		AssetID:      uuid.New(),
		RackID:       rack.RackID,
		RackPosition: 2,
		ModelID:      model.ModelID,
		Hostname:     sql.NullString{String: hostname, Valid: true},
	}
	err := DB(ctx).CreateAsset(ctx, dup)
	assert.Error(t, err)

	got, err := DB(ctx).GetAssetByHostname(ctx, hostname, uuid.NullUUID{})
	assert.NoError(t, err)
	assert.Equal(t, hostname, got.Hostname.String)
}

func TestNetworkLinkSymmetry(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 1, []string{"eth0", "eth1"}, 0)
	a := makeAsset(t, ctx, rack, model, 1, uniq("a"))
	b := makeAsset(t, ctx, rack, model, 2, uniq("b"))
	c := makeAsset(t, ctx, rack, model, 3, uniq("c"))

	aEth0, err := DB(ctx).GetNetworkPortByName(ctx, a.AssetID, "eth0")
	require.NoError(t, err)
	bEth0, err := DB(ctx).GetNetworkPortByName(ctx, b.AssetID, "eth0")
	require.NoError(t, err)
	cEth0, err := DB(ctx).GetNetworkPortByName(ctx, c.AssetID, "eth0")
	require.NoError(t, err)

	require.NoError(t, DB(ctx).SetNetworkLink(ctx, aEth0.PortID, bEth0.PortID))

	// both sides point at each other
	aEth0, _ = DB(ctx).GetNetworkPort(ctx, aEth0.PortID)
	bEth0, _ = DB(ctx).GetNetworkPort(ctx, bEth0.PortID)
	assert.Equal(t, bEth0.PortID, aEth0.ConnectedPortID.UUID)
	assert.Equal(t, aEth0.PortID, bEth0.ConnectedPortID.UUID)

	// linking c to the occupied b port fails without touching anything
	err = DB(ctx).SetNetworkLink(ctx, cEth0.PortID, bEth0.PortID)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)
	cEth0, _ = DB(ctx).GetNetworkPort(ctx, cEth0.PortID)
	assert.False(t, cEth0.ConnectedPortID.Valid)

	// relinking a elsewhere detaches b
	require.NoError(t, DB(ctx).SetNetworkLink(ctx, aEth0.PortID, cEth0.PortID))
	bEth0, _ = DB(ctx).GetNetworkPort(ctx, bEth0.PortID)
	assert.False(t, bEth0.ConnectedPortID.Valid)

	// clear detaches both sides
	require.NoError(t, DB(ctx).ClearNetworkLink(ctx, aEth0.PortID))
	aEth0, _ = DB(ctx).GetNetworkPort(ctx, aEth0.PortID)
	cEth0, _ = DB(ctx).GetNetworkPort(ctx, cEth0.PortID)
	assert.False(t, aEth0.ConnectedPortID.Valid)
	assert.False(t, cEth0.ConnectedPortID.Valid)
}

func TestPowerLinkOutletClaim(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 1, nil, 1)
	a := makeAsset(t, ctx, rack, model, 1, "")
	b := makeAsset(t, ctx, rack, model, 2, "")

	outlet, err := DB(ctx).GetPDUPortByCoords(ctx, rack.RackID, models.PDULeft, 1, uuid.NullUUID{})
	require.NoError(t, err)

	aPower, err := DB(ctx).GetPowerPortByName(ctx, a.AssetID, "power1")
	require.NoError(t, err)
	bPower, err := DB(ctx).GetPowerPortByName(ctx, b.AssetID, "power1")
	require.NoError(t, err)

	claim := uuid.NullUUID{UUID: outlet.PDUPortID, Valid: true}
	require.NoError(t, DB(ctx).SetPowerLink(ctx, aPower.PortID, claim))

	// the outlet disappears from availability
	free, err := DB(ctx).ListAvailablePDUPorts(ctx, rack.RackID, uuid.NullUUID{})
	assert.NoError(t, err)
	assert.Len(t, free, 2*models.PDUPortsPerSide-1)

	// a second claim on the same outlet violates uniqueness
	err = DB(ctx).SetPowerLink(ctx, bPower.PortID, claim)
	assert.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrUniqueViolation)

	// unplugging frees it
	require.NoError(t, DB(ctx).SetPowerLink(ctx, aPower.PortID, uuid.NullUUID{}))
	free, err = DB(ctx).ListAvailablePDUPorts(ctx, rack.RackID, uuid.NullUUID{})
	assert.NoError(t, err)
	assert.Len(t, free, 2*models.PDUPortsPerSide)
}

func makePlan(t *testing.T, ctx context.Context) *models.ChangePlan {
	t.Helper()
	plan := &models.ChangePlan{
		PlanID: uuid.New(),
		Name:   uniq("plan"),
		Owner:  "tester",
	}
	require.NoError(t, DB(ctx).CreateChangePlan(ctx, plan))
	t.Cleanup(func() { _ = DB(ctx).DeleteChangePlan(ctx, plan.PlanID) })
	return plan
}

func TestCloneAssetIntoPlan(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 1, []string{"eth0"}, 1)
	a := makeAsset(t, ctx, rack, model, 1, uniq("a"))
	b := makeAsset(t, ctx, rack, model, 2, uniq("b"))

	// live wiring: network a<->b, power a->L1
	aEth0, err := DB(ctx).GetNetworkPortByName(ctx, a.AssetID, "eth0")
	require.NoError(t, err)
	bEth0, err := DB(ctx).GetNetworkPortByName(ctx, b.AssetID, "eth0")
	require.NoError(t, err)
	require.NoError(t, DB(ctx).SetNetworkLink(ctx, aEth0.PortID, bEth0.PortID))
	outlet, err := DB(ctx).GetPDUPortByCoords(ctx, rack.RackID, models.PDULeft, 1, uuid.NullUUID{})
	require.NoError(t, err)
	aPower, err := DB(ctx).GetPowerPortByName(ctx, a.AssetID, "power1")
	require.NoError(t, err)
	require.NoError(t, DB(ctx).SetPowerLink(ctx, aPower.PortID, uuid.NullUUID{UUID: outlet.PDUPortID, Valid: true}))

	plan := makePlan(t, ctx)
	draft, err := DB(ctx).CloneAssetIntoPlan(ctx, a.AssetID, plan.PlanID)
	require.NoError(t, err)
	assert.True(t, draft.IsDraft())
	assert.Equal(t, a.AssetID, draft.RelatedAssetID.UUID)
	assert.Equal(t, a.RackPosition, draft.RackPosition)

	// cloning twice returns the same draft
	again, err := DB(ctx).CloneAssetIntoPlan(ctx, a.AssetID, plan.PlanID)
	require.NoError(t, err)
	assert.Equal(t, draft.AssetID, again.AssetID)

	// network connections are not copied into the plan
	draftEth0, err := DB(ctx).GetNetworkPortByName(ctx, draft.AssetID, "eth0")
	require.NoError(t, err)
	assert.False(t, draftEth0.ConnectedPortID.Valid)

	// power connections are, through a plan-scoped outlet copy
	draftPower, err := DB(ctx).GetPowerPortByName(ctx, draft.AssetID, "power1")
	require.NoError(t, err)
	require.True(t, draftPower.PDUPortID.Valid)
	draftOutlet, err := DB(ctx).GetPDUPort(ctx, draftPower.PDUPortID.UUID)
	require.NoError(t, err)
	assert.Equal(t, plan.PlanID, draftOutlet.ChangePlanID.UUID)
	assert.Equal(t, outlet.LeftRight, draftOutlet.LeftRight)
	assert.Equal(t, outlet.PortNumber, draftOutlet.PortNumber)

	// live wiring is untouched
	aEth0, _ = DB(ctx).GetNetworkPort(ctx, aEth0.PortID)
	assert.True(t, aEth0.ConnectedPortID.Valid)
}

func TestExecuteChangePlan(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 2, []string{"eth0"}, 0)
	a := makeAsset(t, ctx, rack, model, 1, uniq("a"))

	plan := makePlan(t, ctx)
	draft, err := DB(ctx).CloneAssetIntoPlan(ctx, a.AssetID, plan.PlanID)
	require.NoError(t, err)

	// move the draft and rename it
	pos := 10
	newHost := uniq("renamed")
	_, err = DB(ctx).UpdateAsset(ctx, draft.AssetID, &models.AssetUpdate{
		RackPosition: &pos,
		Hostname:     &newHost,
	})
	require.NoError(t, err)

	report, err := DB(ctx).ExecuteChangePlan(ctx, plan, "tester")
	require.NoError(t, err)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []uuid.UUID{a.AssetID}, report.Materialized)

	// live asset carries the draft's state
	live, err := DB(ctx).GetAsset(ctx, a.AssetID)
	require.NoError(t, err)
	assert.Equal(t, 10, live.RackPosition)
	assert.Equal(t, newHost, live.Hostname.String)

	// plan is closed, drafts are gone
	got, err := DB(ctx).GetChangePlan(ctx, plan.PlanID)
	require.NoError(t, err)
	assert.True(t, got.Executed())
	_, err = DB(ctx).GetAsset(ctx, draft.AssetID)
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	// executing again is refused
	_, err = DB(ctx).ExecuteChangePlan(ctx, got, "tester")
	assert.Error(t, err)
}

func TestExecutePlanDecommission(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 1, nil, 0)
	a := makeAsset(t, ctx, rack, model, 1, uniq("gone"))

	plan := makePlan(t, ctx)
	draft, err := DB(ctx).CloneAssetIntoPlan(ctx, a.AssetID, plan.PlanID)
	require.NoError(t, err)
	require.NoError(t, DB(ctx).SetDraftDecommissioned(ctx, draft.AssetID, true))

	report, err := DB(ctx).ExecuteChangePlan(ctx, plan, "tester")
	require.NoError(t, err)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []uuid.UUID{a.AssetID}, report.Archived)

	_, err = DB(ctx).GetAsset(ctx, a.AssetID)
	assert.ErrorIs(t, err, dberror.ErrNotFound)

	records, err := DB(ctx).ListDecommissionedAssets(ctx)
	require.NoError(t, err)
	found := false
	for _, rec := range records {
		if rec.AssetNumber.Valid && rec.AssetNumber.Int64 == a.AssetNumber.Int64 {
			found = true
			assert.Equal(t, "tester", rec.DecommissionedBy)
			assert.NotEmpty(t, rec.Snapshot)
		}
	}
	assert.True(t, found)
}

func makeDraft(t *testing.T, ctx context.Context, rack *models.Rack, model *models.ITModel, plan *models.ChangePlan, position int) *models.Asset {
	t.Helper()
	draft := &models.Asset{
		AssetID:      uuid.New(),
		RackID:       rack.RackID,
		RackPosition: position,
		ModelID:      model.ModelID,
		ChangePlanID: uuid.NullUUID{UUID: plan.PlanID, Valid: true},
	}
	require.NoError(t, DB(ctx).CreateAsset(ctx, draft))
	t.Cleanup(func() { _ = DB(ctx).DeleteAsset(ctx, draft.AssetID) })
	return draft
}

func TestExecutePlanFailedDraftIsolation(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 2, nil, 0)
	victim := makeAsset(t, ctx, rack, model, 1, uniq("stay"))
	holder := makeAsset(t, ctx, rack, model, 5, uniq("held"))

	plan := makePlan(t, ctx)

	// this draft moves the victim away but steals a hostname that is live
	moving, err := DB(ctx).CloneAssetIntoPlan(ctx, victim.AssetID, plan.PlanID)
	require.NoError(t, err)
	pos := 10
	taken := holder.Hostname.String
	_, err = DB(ctx).UpdateAsset(ctx, moving.AssetID, &models.AssetUpdate{RackPosition: &pos, Hostname: &taken})
	require.NoError(t, err)

	// this one squats on the units the failed move would have vacated
	squatter := makeDraft(t, ctx, rack, model, plan, 1)
	// and this one sits on free units
	bystander := makeDraft(t, ctx, rack, model, plan, 20)

	report, err := DB(ctx).ExecuteChangePlan(ctx, plan, "tester")
	require.NoError(t, err)

	require.Len(t, report.Failed, 2)
	reasons := make(map[uuid.UUID]string)
	for _, f := range report.Failed {
		reasons[f.DraftID] = f.Reason
	}
	assert.Contains(t, reasons, moving.AssetID)
	assert.Contains(t, reasons, squatter.AssetID)
	assert.Contains(t, reasons[moving.AssetID], "hostname")
	assert.Contains(t, reasons[squatter.AssetID], "overlap")

	require.Len(t, report.Materialized, 1)
	newLive := report.Materialized[0]
	t.Cleanup(func() { _ = DB(ctx).DeleteAsset(ctx, newLive) })
	assert.NotEqual(t, victim.AssetID, newLive)

	// the victim never moved, never renamed, and no live overlap exists
	live, err := DB(ctx).GetAsset(ctx, victim.AssetID)
	require.NoError(t, err)
	assert.Equal(t, 1, live.RackPosition)
	assert.Equal(t, victim.Hostname.String, live.Hostname.String)

	byLive, err := DB(ctx).GetAsset(ctx, newLive)
	require.NoError(t, err)
	assert.Equal(t, bystander.RackPosition, byLive.RackPosition)

	// failed drafts stay around for inspection
	_, err = DB(ctx).GetAsset(ctx, moving.AssetID)
	assert.NoError(t, err)
	_, err = DB(ctx).GetAsset(ctx, squatter.AssetID)
	assert.NoError(t, err)
}

func TestExecutePlanOutletConflict(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 1, nil, 1)
	holder := makeAsset(t, ctx, rack, model, 1, "")
	mover := makeAsset(t, ctx, rack, model, 2, "")

	link := func(assetID uuid.UUID, number int, planID uuid.NullUUID) {
		t.Helper()
		port, err := DB(ctx).GetPowerPortByName(ctx, assetID, "power1")
		require.NoError(t, err)
		var outlet *models.PDUPort
		if planID.Valid {
			outlet, err = DB(ctx).GetOrCreateDraftPDUPort(ctx, rack.RackID, models.PDULeft, number, planID.UUID)
		} else {
			outlet, err = DB(ctx).GetPDUPortByCoords(ctx, rack.RackID, models.PDULeft, number, uuid.NullUUID{})
		}
		require.NoError(t, err)
		require.NoError(t, DB(ctx).SetPowerLink(ctx, port.PortID, uuid.NullUUID{UUID: outlet.PDUPortID, Valid: true}))
	}

	link(holder.AssetID, 1, uuid.NullUUID{})
	link(mover.AssetID, 2, uuid.NullUUID{})

	plan := makePlan(t, ctx)
	scope := uuid.NullUUID{UUID: plan.PlanID, Valid: true}

	// the mover's draft migrates from outlet 2 to outlet 3
	moverDraft, err := DB(ctx).CloneAssetIntoPlan(ctx, mover.AssetID, plan.PlanID)
	require.NoError(t, err)
	link(moverDraft.AssetID, 3, scope)

	// a new draft takes the outlet the mover is vacating: fine
	taker := makeDraft(t, ctx, rack, model, plan, 3)
	link(taker.AssetID, 2, scope)

	// another new draft takes the holder's outlet; the holder is not part of
	// the plan, so this draft must fail without aborting its siblings
	grabber := makeDraft(t, ctx, rack, model, plan, 4)
	link(grabber.AssetID, 1, scope)

	report, err := DB(ctx).ExecuteChangePlan(ctx, plan, "tester")
	require.NoError(t, err)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, grabber.AssetID, report.Failed[0].DraftID)
	assert.Contains(t, report.Failed[0].Reason, "outlet")
	require.Len(t, report.Materialized, 2)

	takerLive := report.Materialized[0]
	if takerLive == mover.AssetID {
		takerLive = report.Materialized[1]
	}
	t.Cleanup(func() { _ = DB(ctx).DeleteAsset(ctx, takerLive) })

	outletAt := func(assetID uuid.UUID) int {
		t.Helper()
		port, err := DB(ctx).GetPowerPortByName(ctx, assetID, "power1")
		require.NoError(t, err)
		require.True(t, port.PDUPortID.Valid)
		outlet, err := DB(ctx).GetPDUPort(ctx, port.PDUPortID.UUID)
		require.NoError(t, err)
		assert.False(t, outlet.ChangePlanID.Valid)
		return outlet.PortNumber
	}

	// the swap landed regardless of draft order, the holder kept its outlet
	assert.Equal(t, 3, outletAt(mover.AssetID))
	assert.Equal(t, 2, outletAt(takerLive))
	assert.Equal(t, 1, outletAt(holder.AssetID))
}

func TestDraftShadowsLiveInPlanScope(t *testing.T) {
	ctx := testCtx(t)
	defer DB(ctx).Close(ctx)

	rack := makeRack(t, ctx, 42)
	model := makeModel(t, ctx, 1, nil, 0)
	hostname := uniq("shadow")
	a := makeAsset(t, ctx, rack, model, 1, hostname)

	plan := makePlan(t, ctx)
	draft, err := DB(ctx).CloneAssetIntoPlan(ctx, a.AssetID, plan.PlanID)
	require.NoError(t, err)

	scope := uuid.NullUUID{UUID: plan.PlanID, Valid: true}
	got, err := DB(ctx).GetAssetByHostname(ctx, hostname, scope)
	require.NoError(t, err)
	assert.Equal(t, draft.AssetID, got.AssetID)

	// without scope the live row wins
	got, err = DB(ctx).GetAssetByHostname(ctx, hostname, uuid.NullUUID{})
	require.NoError(t, err)
	assert.Equal(t, a.AssetID, got.AssetID)
}

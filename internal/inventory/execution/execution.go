// Package execution commits change plans: it drives the transactional
// apply in the db layer and, after the commit, pushes the resulting outlet
// assignments of every touched rack to the PDU controller.
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/invcommon"
	"github.com/rackhaus/rackd/internal/inventory/pduclient"
)

var (
	ErrExecution apperrors.Error = apperrors.New("execution error").SetStatusCode(500)

	ErrAlreadyExecuted apperrors.Error = ErrExecution.New("change plan already executed").SetStatusCode(409)
	ErrNotDue          apperrors.Error = ErrExecution.New("change plan is scheduled for a later time").SetStatusCode(409)
)

// Execute commits the plan. A plan with a future execution_time is refused
// unless force is set. The PDU push runs after the commit and never affects
// the result; pdu may be nil when the controller is not configured.
func Execute(ctx context.Context, planID uuid.UUID, force bool, pdu *pduclient.Client) (*models.ExecutionReport, apperrors.Error) {
	plan, err := db.DB(ctx).GetChangePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Executed() {
		return nil, ErrAlreadyExecuted
	}
	if plan.ExecutionTime.Valid && plan.ExecutionTime.Time.After(time.Now()) && !force {
		return nil, ErrNotDue
	}

	// racks must be collected before the drafts are consumed
	racks, err := touchedRacks(ctx, planID)
	if err != nil {
		return nil, err
	}

	report, err := db.DB(ctx).ExecuteChangePlan(ctx, plan, invcommon.UserIdFromContext(ctx))
	if err != nil {
		return nil, err
	}

	for _, rackID := range racks {
		PushRackOutlets(ctx, rackID, pdu)
	}
	return report, nil
}

func touchedRacks(ctx context.Context, planID uuid.UUID) ([]uuid.UUID, apperrors.Error) {
	drafts, err := db.DB(ctx).ListDraftsByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	var racks []uuid.UUID
	for _, draft := range drafts {
		if !seen[draft.RackID] {
			seen[draft.RackID] = true
			racks = append(racks, draft.RackID)
		}
	}
	return racks, nil
}

// PushRackOutlets sends the rack's full desired outlet state — occupied and
// free — to the PDU controller. Failures are logged by the client.
func PushRackOutlets(ctx context.Context, rackID uuid.UUID, pdu *pduclient.Client) {
	if pdu == nil {
		return
	}
	rack, err := db.DB(ctx).GetRack(ctx, rackID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("rack_id", rackID.String()).Msg("skipping pdu push, rack lookup failed")
		return
	}

	assigned := make(map[uuid.UUID]string)
	assets, err := db.DB(ctx).ListLiveAssetsByRack(ctx, rackID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("rack_id", rackID.String()).Msg("skipping pdu push, asset listing failed")
		return
	}
	for _, asset := range assets {
		ports, err := db.DB(ctx).ListPowerPorts(ctx, asset.AssetID)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("asset_id", asset.AssetID.String()).Msg("skipping pdu push, port listing failed")
			return
		}
		for _, port := range ports {
			if port.PDUPortID.Valid {
				assigned[port.PDUPortID.UUID] = asset.NumberLabel()
			}
		}
	}

	var states []pduclient.OutletState
	for _, side := range []string{models.PDULeft, models.PDURight} {
		for number := 1; number <= models.PDUPortsPerSide; number++ {
			outlet, err := db.DB(ctx).GetPDUPortByCoords(ctx, rackID, side, number, uuid.NullUUID{})
			if err != nil {
				continue
			}
			states = append(states, pduclient.OutletState{
				Datacenter:  rack.Datacenter,
				RackLabel:   rack.Label(),
				Side:        side,
				PortNumber:  number,
				AssetNumber: assigned[outlet.PDUPortID],
			})
		}
	}
	pdu.PushOutletStates(ctx, states)
}

package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db/dbmanager"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/db/postgresql"
)

// The database surface is split into managers so each can be wrapped
// independently. All multi-step mutations (placement-checked writes, plan
// execution, symmetric link updates, copy-on-write promotion) run inside a
// single transaction in the postgresql layer; interface methods never leave
// partial state behind.

type InventoryManager interface {
	// Rack
	CreateRack(ctx context.Context, rack *models.Rack) apperrors.Error
	GetRack(ctx context.Context, rackID uuid.UUID) (*models.Rack, apperrors.Error)
	GetRackByLocation(ctx context.Context, datacenter, rowLetter string, rackNum int) (*models.Rack, apperrors.Error)
	ListRacks(ctx context.Context, datacenter string) ([]*models.Rack, apperrors.Error)
	DeleteRack(ctx context.Context, rackID uuid.UUID) apperrors.Error

	// ITModel
	CreateITModel(ctx context.Context, model *models.ITModel) apperrors.Error
	GetITModel(ctx context.Context, modelID uuid.UUID) (*models.ITModel, apperrors.Error)
	ListITModels(ctx context.Context) ([]*models.ITModel, apperrors.Error)
	DeleteITModel(ctx context.Context, modelID uuid.UUID) apperrors.Error

	// Asset. CreateAsset and UpdateAsset take the rack advisory lock,
	// re-check occupancy, allocate the asset number when unset and provision
	// ports from the model template, all in one transaction.
	CreateAsset(ctx context.Context, asset *models.Asset) apperrors.Error
	UpdateAsset(ctx context.Context, assetID uuid.UUID, upd *models.AssetUpdate) (*models.Asset, apperrors.Error)
	GetAsset(ctx context.Context, assetID uuid.UUID) (*models.Asset, apperrors.Error)
	GetAssetByNumber(ctx context.Context, number int64) (*models.Asset, apperrors.Error)
	GetAssetByHostname(ctx context.Context, hostname string, planID uuid.NullUUID) (*models.Asset, apperrors.Error)
	ListLiveAssetsByRack(ctx context.Context, rackID uuid.UUID) ([]*models.Asset, apperrors.Error)
	ListDraftAssetsByRack(ctx context.Context, rackID uuid.UUID, planID uuid.UUID) ([]*models.Asset, apperrors.Error)
	DeleteAsset(ctx context.Context, assetID uuid.UUID) apperrors.Error

	// DecommissionLiveAsset archives the snapshot, clears peers' network
	// links and drafts' related_asset back-references, and deletes the live
	// row, in one transaction.
	DecommissionLiveAsset(ctx context.Context, assetID uuid.UUID, snapshot []byte, actingUser string) (*models.DecommissionedAsset, apperrors.Error)
	ListDecommissionedAssets(ctx context.Context) ([]*models.DecommissionedAsset, apperrors.Error)
}

type ChangePlanManager interface {
	CreateChangePlan(ctx context.Context, plan *models.ChangePlan) apperrors.Error
	GetChangePlan(ctx context.Context, planID uuid.UUID) (*models.ChangePlan, apperrors.Error)
	GetChangePlanByName(ctx context.Context, name, owner string) (*models.ChangePlan, apperrors.Error)
	ListChangePlansByOwner(ctx context.Context, owner string) ([]*models.ChangePlan, apperrors.Error)
	DeleteChangePlan(ctx context.Context, planID uuid.UUID) apperrors.Error
	MarkChangePlanExecuted(ctx context.Context, planID uuid.UUID) apperrors.Error

	// Drafts
	GetDraftForLive(ctx context.Context, planID uuid.UUID, liveAssetID uuid.UUID) (*models.Asset, apperrors.Error)
	ListDraftsByPlan(ctx context.Context, planID uuid.UUID) ([]*models.Asset, apperrors.Error)
	SetDraftDecommissioned(ctx context.Context, draftID uuid.UUID, decommissioned bool) apperrors.Error

	// CloneAssetIntoPlan deep-copies a live asset into the plan scope:
	// scalar fields, power connections (lazily creating draft PDU ports) and
	// network port mac addresses. Live network connections are deliberately
	// not copied. Runs in one transaction.
	CloneAssetIntoPlan(ctx context.Context, liveAssetID uuid.UUID, planID uuid.UUID) (*models.Asset, apperrors.Error)
}

type WiringManager interface {
	// Network ports
	GetNetworkPort(ctx context.Context, portID uuid.UUID) (*models.NetworkPort, apperrors.Error)
	GetNetworkPortByName(ctx context.Context, assetID uuid.UUID, portName string) (*models.NetworkPort, apperrors.Error)
	ListNetworkPorts(ctx context.Context, assetID uuid.UUID) ([]*models.NetworkPort, apperrors.Error)
	UpdateNetworkPortMac(ctx context.Context, portID uuid.UUID, mac string) apperrors.Error
	// SetNetworkLink links the two ports symmetrically in one transaction,
	// first clearing a's previous peer. Fails with ErrAlreadyExists if b is
	// connected to some port other than a.
	SetNetworkLink(ctx context.Context, portA uuid.UUID, portB uuid.UUID) apperrors.Error
	// ClearNetworkLink clears the link on both sides; no-op when unlinked.
	ClearNetworkLink(ctx context.Context, portID uuid.UUID) apperrors.Error

	// Power ports
	GetPowerPortByName(ctx context.Context, assetID uuid.UUID, portName string) (*models.PowerPort, apperrors.Error)
	ListPowerPorts(ctx context.Context, assetID uuid.UUID) ([]*models.PowerPort, apperrors.Error)
	SetPowerLink(ctx context.Context, portID uuid.UUID, pduPortID uuid.NullUUID) apperrors.Error

	// PDU ports
	GetPDUPort(ctx context.Context, pduPortID uuid.UUID) (*models.PDUPort, apperrors.Error)
	GetPDUPortByCoords(ctx context.Context, rackID uuid.UUID, side string, portNumber int, planID uuid.NullUUID) (*models.PDUPort, apperrors.Error)
	GetOrCreateDraftPDUPort(ctx context.Context, rackID uuid.UUID, side string, portNumber int, planID uuid.UUID) (*models.PDUPort, apperrors.Error)
	ListAvailablePDUPorts(ctx context.Context, rackID uuid.UUID, planID uuid.NullUUID) ([]*models.PDUPort, apperrors.Error)

	// ProvisionPorts creates the asset's network and power ports from the
	// model template. It is a no-op when the asset already has ports.
	ProvisionPorts(ctx context.Context, asset *models.Asset, model *models.ITModel) apperrors.Error
}

type ExecutionManager interface {
	// ExecuteChangePlan commits the plan in one transaction: validates every
	// draft, materializes valid drafts into live assets, rewires ports,
	// archives decommissions and marks the plan executed. Invalid drafts are
	// reported in the returned report without aborting their siblings.
	ExecuteChangePlan(ctx context.Context, plan *models.ChangePlan, actingUser string) (*models.ExecutionReport, apperrors.Error)
}

type ConnectionManager interface {
	Close(ctx context.Context)
}

type DB_ interface {
	InventoryManager
	ChangePlanManager
	WiringManager
	ExecutionManager
	ConnectionManager
}

var pool dbmanager.Pool

// Init opens the database pool. Must be called once at startup before any
// request handling.
func Init() error {
	pg, err := dbmanager.NewPostgresqlDb()
	if err != nil {
		return err
	}
	pool = pg
	return nil
}

func Conn(ctx context.Context) dbmanager.Conn {
	if pool != nil {
		conn, err := pool.Conn(ctx)
		if err == nil {
			return conn
		}
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
	}
	return nil
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "RackdInventoryDb"

func ConnCtx(ctx context.Context) context.Context {
	conn := Conn(ctx)
	return context.WithValue(ctx, ctxDbKey, conn)
}

type inventoryDb struct {
	InventoryManager
	ChangePlanManager
	WiringManager
	ExecutionManager
	ConnectionManager
}

func DB(ctx context.Context) DB_ {
	if conn, ok := ctx.Value(ctxDbKey).(dbmanager.Conn); ok {
		im, pm, wm, xm, cm := postgresql.NewInventoryDb(conn)
		return &inventoryDb{
			InventoryManager:  im,
			ChangePlanManager: pm,
			WiringManager:     wm,
			ExecutionManager:  xm,
			ConnectionManager: cm,
		}
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}

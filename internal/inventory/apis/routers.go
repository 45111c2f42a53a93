package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rackhaus/rackd/internal/common/httpx"
	"github.com/rackhaus/rackd/internal/inventory/invcommon"
	"github.com/rackhaus/rackd/internal/inventory/pduclient"
)

var validate = validator.New()

// pdu is the controller client shared by the handlers that change power
// wiring. Nil disables pushes.
var pdu *pduclient.Client

func Init(client *pduclient.Client) {
	pdu = client
}

var resourceHandlers = []httpx.ResponseHandlerParam{
	{Method: http.MethodPost, Path: "/racks", Handler: createRack},
	{Method: http.MethodGet, Path: "/racks", Handler: listRacks},
	{Method: http.MethodGet, Path: "/racks/{rackID}", Handler: getRack},
	{Method: http.MethodDelete, Path: "/racks/{rackID}", Handler: deleteRack},
	{Method: http.MethodGet, Path: "/racks/{rackID}/assets", Handler: listRackAssets},
	{Method: http.MethodGet, Path: "/racks/{rackID}/outlets", Handler: listAvailableOutlets},

	{Method: http.MethodPost, Path: "/models", Handler: createModel},
	{Method: http.MethodGet, Path: "/models", Handler: listModels},
	{Method: http.MethodGet, Path: "/models/{modelID}", Handler: getModel},
	{Method: http.MethodDelete, Path: "/models/{modelID}", Handler: deleteModel},

	{Method: http.MethodPost, Path: "/assets", Handler: createAsset},
	{Method: http.MethodGet, Path: "/assets/{assetID}", Handler: getAsset},
	{Method: http.MethodPut, Path: "/assets/{assetID}", Handler: updateAsset},
	{Method: http.MethodDelete, Path: "/assets/{assetID}", Handler: deleteAsset},
	{Method: http.MethodPost, Path: "/assets/{assetID}/decommission", Handler: decommissionAsset},
	{Method: http.MethodPost, Path: "/assets/{assetID}/draft", Handler: promoteAsset},
	{Method: http.MethodGet, Path: "/assets/{assetID}/diff", Handler: diffAsset},
	{Method: http.MethodPost, Path: "/assets/{assetID}/network", Handler: editNetwork},
	{Method: http.MethodPost, Path: "/assets/{assetID}/power", Handler: editPower},

	{Method: http.MethodPost, Path: "/placement/validate", Handler: validatePlacement},

	{Method: http.MethodPost, Path: "/plans", Handler: createPlan},
	{Method: http.MethodGet, Path: "/plans", Handler: listPlans},
	{Method: http.MethodGet, Path: "/plans/{planID}", Handler: getPlan},
	{Method: http.MethodDelete, Path: "/plans/{planID}", Handler: deletePlan},
	{Method: http.MethodGet, Path: "/plans/{planID}/drafts", Handler: listPlanDrafts},
	{Method: http.MethodPost, Path: "/plans/{planID}/execute", Handler: executePlan},

	{Method: http.MethodGet, Path: "/decommissioned", Handler: listDecommissioned},
	{Method: http.MethodPost, Path: "/import", Handler: importAssets},
}

func Router(r chi.Router) {
	r.Use(loadRequestContext)
	for _, handler := range resourceHandlers {
		r.Method(handler.Method, handler.Path, httpx.WrapHttpRsp(handler.Handler))
	}
	// the export response is an xlsx stream, not the JSON envelope
	r.Get("/export", exportAssets)
}

// loadRequestContext lifts the acting user and the active change plan off
// the request. The plan scope applies to every read and write downstream of
// the handler.
func loadRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if user := r.Header.Get("X-User-Id"); user != "" {
			ctx = invcommon.SetUserIdInContext(ctx, user)
		}
		if planStr := r.Header.Get("X-Change-Plan"); planStr != "" {
			planID, err := uuid.Parse(planStr)
			if err != nil {
				httpx.ErrInvalidRequest("invalid X-Change-Plan header").Send(w)
				return
			}
			ctx = invcommon.SetChangePlanInContext(ctx, planID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, httpx.ErrInvalidRequest("invalid " + name)
	}
	return id, nil
}

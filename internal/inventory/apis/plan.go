package apis

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rackhaus/rackd/internal/common/httpx"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/execution"
	"github.com/rackhaus/rackd/internal/inventory/invcommon"
)

type planRsp struct {
	PlanID        uuid.UUID  `json:"plan_id"`
	Name          string     `json:"name"`
	Owner         string     `json:"owner"`
	ExecutionTime *time.Time `json:"execution_time,omitempty"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
}

func toPlanRsp(plan *models.ChangePlan) planRsp {
	rsp := planRsp{
		PlanID: plan.PlanID,
		Name:   plan.Name,
		Owner:  plan.Owner,
	}
	if plan.ExecutionTime.Valid {
		t := plan.ExecutionTime.Time
		rsp.ExecutionTime = &t
	}
	if plan.ExecutedAt.Valid {
		t := plan.ExecutedAt.Time
		rsp.ExecutedAt = &t
	}
	return rsp
}

type createPlanReq struct {
	Name          string     `json:"name" validate:"required,max=128"`
	ExecutionTime *time.Time `json:"execution_time"`
}

func createPlan(r *http.Request) (*httpx.Response, error) {
	req := &createPlanReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	ctx := r.Context()
	owner := invcommon.UserIdFromContext(ctx)
	if owner == "" {
		return nil, httpx.ErrInvalidRequest("X-User-Id header is required to own a plan")
	}
	plan := &models.ChangePlan{
		PlanID: uuid.New(),
		Name:   req.Name,
		Owner:  owner,
	}
	if req.ExecutionTime != nil {
		plan.ExecutionTime = sql.NullTime{Time: *req.ExecutionTime, Valid: true}
	}
	if err := db.DB(ctx).CreateChangePlan(ctx, plan); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/plans/" + plan.PlanID.String(),
		Response:   toPlanRsp(plan),
	}, nil
}

func getPlan(r *http.Request) (*httpx.Response, error) {
	planID, err := pathUUID(r, "planID")
	if err != nil {
		return nil, err
	}
	plan, aerr := db.DB(r.Context()).GetChangePlan(r.Context(), planID)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: toPlanRsp(plan)}, nil
}

func listPlans(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = invcommon.UserIdFromContext(ctx)
	}
	plans, err := db.DB(ctx).ListChangePlansByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	rsp := make([]planRsp, 0, len(plans))
	for _, plan := range plans {
		rsp = append(rsp, toPlanRsp(plan))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func deletePlan(r *http.Request) (*httpx.Response, error) {
	planID, err := pathUUID(r, "planID")
	if err != nil {
		return nil, err
	}
	if aerr := db.DB(r.Context()).DeleteChangePlan(r.Context(), planID); aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

func listPlanDrafts(r *http.Request) (*httpx.Response, error) {
	planID, err := pathUUID(r, "planID")
	if err != nil {
		return nil, err
	}
	drafts, aerr := db.DB(r.Context()).ListDraftsByPlan(r.Context(), planID)
	if aerr != nil {
		return nil, aerr
	}
	rsp := make([]assetRsp, 0, len(drafts))
	for _, draft := range drafts {
		rsp = append(rsp, toAssetRsp(draft))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

type executePlanReq struct {
	Force bool `json:"force"`
}

func executePlan(r *http.Request) (*httpx.Response, error) {
	planID, err := pathUUID(r, "planID")
	if err != nil {
		return nil, err
	}
	req := &executePlanReq{}
	if r.ContentLength > 0 {
		if err := httpx.GetRequestData(r, req); err != nil {
			return nil, err
		}
	}
	report, aerr := execution.Execute(r.Context(), planID, req.Force, pdu)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: report}, nil
}

type decommissionedRsp struct {
	RecordID         uuid.UUID `json:"record_id"`
	AssetNumber      *int64    `json:"asset_number,omitempty"`
	Hostname         string    `json:"hostname,omitempty"`
	Owner            string    `json:"owner,omitempty"`
	DecommissionedBy string    `json:"decommissioned_by"`
	DecommissionedAt time.Time `json:"decommissioned_at"`
	Snapshot         any       `json:"snapshot"`
}

func listDecommissioned(r *http.Request) (*httpx.Response, error) {
	records, err := db.DB(r.Context()).ListDecommissionedAssets(r.Context())
	if err != nil {
		return nil, err
	}
	rsp := make([]decommissionedRsp, 0, len(records))
	for _, rec := range records {
		d := decommissionedRsp{
			RecordID:         rec.RecordID,
			Owner:            rec.Owner,
			DecommissionedBy: rec.DecommissionedBy,
			DecommissionedAt: rec.DecommissionedAt,
			Snapshot:         json.RawMessage(rec.Snapshot),
		}
		if rec.AssetNumber.Valid {
			n := rec.AssetNumber.Int64
			d.AssetNumber = &n
		}
		if rec.Hostname.Valid {
			d.Hostname = rec.Hostname.String
		}
		rsp = append(rsp, d)
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

package apis

import (
	"net/http"

	"github.com/rackhaus/rackd/internal/common/httpx"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/overlay"

	"github.com/google/uuid"
)

type rackRsp struct {
	RackID     uuid.UUID `json:"rack_id"`
	Datacenter string    `json:"datacenter"`
	Label      string    `json:"label"`
	Height     int       `json:"height"`
}

func toRackRsp(rack *models.Rack) rackRsp {
	return rackRsp{
		RackID:     rack.RackID,
		Datacenter: rack.Datacenter,
		Label:      rack.Label(),
		Height:     rack.Height,
	}
}

type createRackReq struct {
	Datacenter string `json:"datacenter" validate:"required,max=64"`
	RowLetter  string `json:"row_letter" validate:"required,len=1,alpha"`
	RackNum    int    `json:"rack_num" validate:"required,min=1"`
	Height     int    `json:"height" validate:"required,min=1,max=100"`
}

func createRack(r *http.Request) (*httpx.Response, error) {
	req := &createRackReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	rack := &models.Rack{
		RackID:     uuid.New(),
		Datacenter: req.Datacenter,
		RowLetter:  req.RowLetter,
		RackNum:    req.RackNum,
		Height:     req.Height,
	}
	ctx := r.Context()
	if err := db.DB(ctx).CreateRack(ctx, rack); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/racks/" + rack.RackID.String(),
		Response:   toRackRsp(rack),
	}, nil
}

func getRack(r *http.Request) (*httpx.Response, error) {
	rackID, err := pathUUID(r, "rackID")
	if err != nil {
		return nil, err
	}
	rack, aerr := db.DB(r.Context()).GetRack(r.Context(), rackID)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: toRackRsp(rack)}, nil
}

func listRacks(r *http.Request) (*httpx.Response, error) {
	racks, err := db.DB(r.Context()).ListRacks(r.Context(), r.URL.Query().Get("datacenter"))
	if err != nil {
		return nil, err
	}
	rsp := make([]rackRsp, 0, len(racks))
	for _, rack := range racks {
		rsp = append(rsp, toRackRsp(rack))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func deleteRack(r *http.Request) (*httpx.Response, error) {
	rackID, err := pathUUID(r, "rackID")
	if err != nil {
		return nil, err
	}
	if aerr := db.DB(r.Context()).DeleteRack(r.Context(), rackID); aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

func listRackAssets(r *http.Request) (*httpx.Response, error) {
	rackID, err := pathUUID(r, "rackID")
	if err != nil {
		return nil, err
	}
	assets, aerr := overlay.RackAssets(r.Context(), rackID)
	if aerr != nil {
		return nil, aerr
	}
	rsp := make([]assetRsp, 0, len(assets))
	for _, asset := range assets {
		rsp = append(rsp, toAssetRsp(asset))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

type outletRsp struct {
	Side       string `json:"side"`
	PortNumber int    `json:"port_number"`
}

func listAvailableOutlets(r *http.Request) (*httpx.Response, error) {
	rackID, err := pathUUID(r, "rackID")
	if err != nil {
		return nil, err
	}
	ctx := r.Context()
	outlets, aerr := db.DB(ctx).ListAvailablePDUPorts(ctx, rackID, overlay.PlanScope(ctx))
	if aerr != nil {
		return nil, aerr
	}
	rsp := make([]outletRsp, 0, len(outlets))
	for _, outlet := range outlets {
		rsp = append(rsp, outletRsp{Side: outlet.LeftRight, PortNumber: outlet.PortNumber})
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

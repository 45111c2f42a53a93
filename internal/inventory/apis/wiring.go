package apis

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rackhaus/rackd/internal/common/httpx"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/execution"
	"github.com/rackhaus/rackd/internal/inventory/invcommon"
	"github.com/rackhaus/rackd/internal/inventory/wiring"
)

type networkPortRsp struct {
	PortName     string `json:"port_name"`
	MacAddress   string `json:"mac_address,omitempty"`
	DestHostname string `json:"dest_hostname,omitempty"`
	DestPortName string `json:"dest_port_name,omitempty"`
}

func toNetworkPortRsp(ctx context.Context, port *models.NetworkPort) networkPortRsp {
	rsp := networkPortRsp{
		PortName:   port.PortName,
		MacAddress: port.MacAddress.String,
	}
	if port.ConnectedPortID.Valid {
		if peerPort, err := db.DB(ctx).GetNetworkPort(ctx, port.ConnectedPortID.UUID); err == nil {
			rsp.DestPortName = peerPort.PortName
			if peer, err := db.DB(ctx).GetAsset(ctx, peerPort.AssetID); err == nil && peer.Hostname.Valid {
				rsp.DestHostname = peer.Hostname.String
			}
		}
	}
	return rsp
}

type powerPortRsp struct {
	PortName   string `json:"port_name"`
	Connected  bool   `json:"connected"`
	Side       string `json:"side,omitempty"`
	PortNumber int    `json:"port_number,omitempty"`
}

func toPowerPortRsp(ctx context.Context, port *models.PowerPort) powerPortRsp {
	rsp := powerPortRsp{PortName: port.PortName}
	if port.PDUPortID.Valid {
		if outlet, err := db.DB(ctx).GetPDUPort(ctx, port.PDUPortID.UUID); err == nil {
			rsp.Connected = true
			rsp.Side = outlet.LeftRight
			rsp.PortNumber = outlet.PortNumber
		}
	}
	return rsp
}

type networkEditReq struct {
	PortName     string  `json:"port_name" validate:"required,max=64"`
	Mac          *string `json:"mac_address" validate:"omitempty,mac"`
	DestHostname string  `json:"dest_hostname" validate:"omitempty,hostname_rfc1123"`
	DestPortName string  `json:"dest_port_name" validate:"omitempty,max=64"`
}

type editNetworkReq struct {
	Edits []networkEditReq `json:"edits" validate:"required,min=1,dive"`
}

type editRsp struct {
	Failures []wiring.EditFailure `json:"failures"`
}

func editNetwork(r *http.Request) (*httpx.Response, error) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		return nil, err
	}
	req := &editNetworkReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	edits := make([]wiring.NetworkEdit, 0, len(req.Edits))
	for _, e := range req.Edits {
		edits = append(edits, wiring.NetworkEdit{
			PortName:     e.PortName,
			Mac:          e.Mac,
			DestHostname: e.DestHostname,
			DestPortName: e.DestPortName,
		})
	}
	failures, aerr := wiring.ApplyNetworkEdits(r.Context(), assetID, edits)
	if aerr != nil {
		return nil, aerr
	}
	if failures == nil {
		failures = []wiring.EditFailure{}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: editRsp{Failures: failures}}, nil
}

type powerEditReq struct {
	PortName   string `json:"port_name" validate:"required,max=64"`
	Connected  bool   `json:"connected"`
	Side       string `json:"side" validate:"omitempty,oneof=L R"`
	PortNumber int    `json:"port_number" validate:"omitempty,min=1,max=24"`
}

type editPowerReq struct {
	Edits []powerEditReq `json:"edits" validate:"required,min=1,dive"`
}

func editPower(r *http.Request) (*httpx.Response, error) {
	assetID, err := pathUUID(r, "assetID")
	if err != nil {
		return nil, err
	}
	req := &editPowerReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	edits := make([]wiring.PowerEdit, 0, len(req.Edits))
	for _, e := range req.Edits {
		edits = append(edits, wiring.PowerEdit{
			PortName:   e.PortName,
			Connected:  e.Connected,
			Side:       e.Side,
			PortNumber: e.PortNumber,
		})
	}
	ctx := r.Context()
	failures, aerr := wiring.ApplyPowerEdits(ctx, assetID, edits)
	if aerr != nil {
		return nil, aerr
	}
	// live power wiring changed; draft wiring is pushed at plan execution
	if invcommon.ChangePlanFromContext(ctx) == uuid.Nil {
		if asset, err := db.DB(ctx).GetAsset(ctx, assetID); err == nil {
			execution.PushRackOutlets(ctx, asset.RackID, pdu)
		}
	}
	if failures == nil {
		failures = []wiring.EditFailure{}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: editRsp{Failures: failures}}, nil
}

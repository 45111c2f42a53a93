package apis

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/rackhaus/rackd/internal/common/httpx"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
)

type portTemplateReq struct {
	NetworkPorts []string `json:"network_ports" validate:"omitempty,dive,required,max=64"`
	PowerPorts   int      `json:"power_ports" validate:"min=0,max=16"`
}

type createModelReq struct {
	Vendor       string           `json:"vendor" validate:"required,max=128"`
	ModelNumber  string           `json:"model_number" validate:"required,max=128"`
	Height       int              `json:"height" validate:"required,min=1,max=100"`
	DisplayColor string           `json:"display_color" validate:"omitempty,hexcolor"`
	CPU          string           `json:"cpu" validate:"omitempty,max=128"`
	Memory       int              `json:"memory" validate:"min=0"`
	Storage      string           `json:"storage" validate:"omitempty,max=128"`
	PortTemplate *portTemplateReq `json:"port_template" validate:"omitempty"`
}

type modelRsp struct {
	ModelID      uuid.UUID                `json:"model_id"`
	Vendor       string                   `json:"vendor"`
	ModelNumber  string                   `json:"model_number"`
	Height       int                      `json:"height"`
	DisplayColor string                   `json:"display_color,omitempty"`
	CPU          string                   `json:"cpu,omitempty"`
	Memory       int                      `json:"memory,omitempty"`
	Storage      string                   `json:"storage,omitempty"`
	PortTemplate *models.PortTemplateSpec `json:"port_template,omitempty"`
}

func toModelRsp(m *models.ITModel) modelRsp {
	rsp := modelRsp{
		ModelID:      m.ModelID,
		Vendor:       m.Vendor,
		ModelNumber:  m.ModelNumber,
		Height:       m.Height,
		DisplayColor: m.DisplayColor,
		CPU:          m.CPU,
		Memory:       m.Memory,
		Storage:      m.Storage,
	}
	if len(m.PortTemplate.Bytes) > 0 {
		var spec models.PortTemplateSpec
		if err := json.Unmarshal(m.PortTemplate.Bytes, &spec); err == nil {
			rsp.PortTemplate = &spec
		}
	}
	return rsp
}

func createModel(r *http.Request) (*httpx.Response, error) {
	req := &createModelReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest(err.Error())
	}
	model := &models.ITModel{
		ModelID:      uuid.New(),
		Vendor:       req.Vendor,
		ModelNumber:  req.ModelNumber,
		Height:       req.Height,
		DisplayColor: req.DisplayColor,
		CPU:          req.CPU,
		Memory:       req.Memory,
		Storage:      req.Storage,
	}
	if req.PortTemplate != nil {
		spec := models.PortTemplateSpec{
			NetworkPorts: req.PortTemplate.NetworkPorts,
			PowerPorts:   req.PortTemplate.PowerPorts,
		}
		if err := model.PortTemplate.Set(spec); err != nil {
			return nil, httpx.ErrInvalidRequest("invalid port template")
		}
	} else {
		_ = model.PortTemplate.Set(nil)
	}

	ctx := r.Context()
	if err := db.DB(ctx).CreateITModel(ctx, model); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/models/" + model.ModelID.String(),
		Response:   toModelRsp(model),
	}, nil
}

func getModel(r *http.Request) (*httpx.Response, error) {
	modelID, err := pathUUID(r, "modelID")
	if err != nil {
		return nil, err
	}
	model, aerr := db.DB(r.Context()).GetITModel(r.Context(), modelID)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: toModelRsp(model)}, nil
}

func listModels(r *http.Request) (*httpx.Response, error) {
	list, err := db.DB(r.Context()).ListITModels(r.Context())
	if err != nil {
		return nil, err
	}
	rsp := make([]modelRsp, 0, len(list))
	for _, m := range list {
		rsp = append(rsp, toModelRsp(m))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func deleteModel(r *http.Request) (*httpx.Response, error) {
	modelID, err := pathUUID(r, "modelID")
	if err != nil {
		return nil, err
	}
	if aerr := db.DB(r.Context()).DeleteITModel(r.Context(), modelID); aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

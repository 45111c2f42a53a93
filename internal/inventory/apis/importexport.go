package apis

import (
	"net/http"

	"github.com/rackhaus/rackd/internal/common/httpx"
	"github.com/rackhaus/rackd/internal/inventory/bulkimport"
)

// importAssets accepts an xlsx workbook as the request body. With
// ?approve=true rows that modify existing assets are applied; otherwise they
// are only reported.
func importAssets(r *http.Request) (*httpx.Response, error) {
	if r.Body == nil {
		return nil, httpx.ErrInvalidRequest("request body must be an xlsx workbook")
	}
	assets, network, err := bulkimport.Parse(r.Body)
	if err != nil {
		return nil, err
	}
	approve := r.URL.Query().Get("approve") == "true"
	report, err := bulkimport.Apply(r.Context(), assets, network, approve)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: report}, nil
}

// exportAssets streams the inventory workbook. Mounted raw because the
// response is not JSON.
func exportAssets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	if err := bulkimport.Export(r.Context(), r.URL.Query().Get("datacenter"), w); err != nil {
		httpx.SendError(w, err)
	}
}

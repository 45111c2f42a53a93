package bulkimport

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/overlay"
)

// Export writes the current inventory of the given datacenter ("" for all)
// as a workbook in the same layout Parse accepts, so an exported file can be
// re-imported as-is.
func Export(ctx context.Context, datacenter string, w io.Writer) apperrors.Error {
	racks, err := db.DB(ctx).ListRacks(ctx, datacenter)
	if err != nil {
		return err
	}
	catalog := make(map[string]*models.ITModel)
	modelList, err := db.DB(ctx).ListITModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range modelList {
		catalog[m.ModelID.String()] = m
	}

	wb := excelize.NewFile()
	defer wb.Close()
	wb.SetSheetName(wb.GetSheetName(0), SheetAssets)
	if _, errx := wb.NewSheet(SheetNetwork); errx != nil {
		return ErrImport.MsgErr("failed to build workbook", errx).SetStatusCode(500)
	}
	writeRow(wb, SheetAssets, 1, toAny(assetHeader))
	writeRow(wb, SheetNetwork, 1, toAny(networkHeader))

	assetLine, networkLine := 2, 2
	for _, rack := range racks {
		assets, err := overlay.RackAssets(ctx, rack.RackID)
		if err != nil {
			return err
		}
		for _, asset := range assets {
			model := catalog[asset.ModelID.String()]
			vendor, modelNumber := "", ""
			if model != nil {
				vendor, modelNumber = model.Vendor, model.ModelNumber
			}
			number := ""
			if asset.AssetNumber.Valid {
				number = asset.NumberLabel()
			}
			writeRow(wb, SheetAssets, assetLine, []any{
				number, asset.Hostname.String, rack.Datacenter, rack.Label(),
				asset.RackPosition, vendor, modelNumber, asset.Owner, asset.Comment,
			})
			assetLine++

			n, err := exportConnections(ctx, wb, asset, networkLine)
			if err != nil {
				return err
			}
			networkLine += n
		}
	}

	if errx := wb.Write(w); errx != nil {
		return ErrImport.MsgErr("failed to write workbook", errx).SetStatusCode(500)
	}
	return nil
}

// exportConnections emits one network row per connected port, from the side
// with the lexically smaller hostname so each cable appears once.
func exportConnections(ctx context.Context, wb *excelize.File, asset *models.Asset, startLine int) (int, apperrors.Error) {
	ports, err := db.DB(ctx).ListNetworkPorts(ctx, asset.AssetID)
	if err != nil {
		return 0, err
	}
	line := startLine
	for _, port := range ports {
		if !port.ConnectedPortID.Valid {
			continue
		}
		peerPort, err := db.DB(ctx).GetNetworkPort(ctx, port.ConnectedPortID.UUID)
		if err != nil {
			return 0, err
		}
		peer, err := db.DB(ctx).GetAsset(ctx, peerPort.AssetID)
		if err != nil {
			return 0, err
		}
		if peer.Hostname.Valid && asset.Hostname.Valid && peer.Hostname.String < asset.Hostname.String {
			continue
		}
		writeRow(wb, SheetNetwork, line, []any{
			asset.Hostname.String, port.PortName, port.MacAddress.String,
			peer.Hostname.String, peerPort.PortName,
		})
		line++
	}
	return line - startLine, nil
}

func writeRow(wb *excelize.File, sheet string, line int, values []any) {
	cell, _ := excelize.CoordinatesToCellName(1, line)
	_ = wb.SetSheetRow(sheet, cell, &values)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Package bulkimport reads and writes asset inventories as xlsx workbooks.
// An import runs in three stages: parse the sheets into rows, check the
// batch for internal location conflicts before any write, then apply the
// rows best-effort with per-row error accumulation. Rows that would modify
// an existing asset are gated behind approval: without it they are reported,
// not applied.
package bulkimport

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/rackhaus/rackd/internal/common/apperrors"
	"github.com/rackhaus/rackd/internal/inventory/assetsvc"
	"github.com/rackhaus/rackd/internal/inventory/db"
	"github.com/rackhaus/rackd/internal/inventory/db/dberror"
	"github.com/rackhaus/rackd/internal/inventory/db/models"
	"github.com/rackhaus/rackd/internal/inventory/diffengine"
	"github.com/rackhaus/rackd/internal/inventory/overlay"
	"github.com/rackhaus/rackd/internal/inventory/placement"
	"github.com/rackhaus/rackd/internal/inventory/wiring"
)

var (
	ErrImport apperrors.Error = apperrors.New("import error").SetStatusCode(400)

	ErrBadWorkbook apperrors.Error = ErrImport.New("workbook cannot be parsed")
)

const (
	SheetAssets  = "assets"
	SheetNetwork = "network"
)

var assetHeader = []string{
	"asset_number", "hostname", "datacenter", "rack", "rack_position",
	"vendor", "model_number", "owner", "comment",
}

var networkHeader = []string{
	"src_hostname", "src_port", "mac_address", "dest_hostname", "dest_port",
}

// AssetRow is one parsed line of the assets sheet.
type AssetRow struct {
	Line         int // 1-based row in the sheet, for error reports
	AssetNumber  *int64
	Hostname     string
	Datacenter   string
	RackLabel    string
	RackPosition int
	Vendor       string
	ModelNumber  string
	Owner        string
	Comment      string
}

// NetworkRow is one parsed line of the network sheet.
type NetworkRow struct {
	Line         int
	SrcHostname  string
	SrcPort      string
	Mac          string
	DestHostname string
	DestPort     string
}

// RowIssue records why one row was not applied.
type RowIssue struct {
	Line   int    `json:"line"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// Report summarizes an import run. BatchID tags the run in logs so a
// support thread can name it.
type Report struct {
	BatchID       string     `json:"batch_id"`
	Created       int        `json:"created"`
	Updated       int        `json:"updated"`
	Skipped       int        `json:"skipped"`
	Connected     int        `json:"connected"`
	NeedsApproval []RowIssue `json:"needs_approval,omitempty"`
	Errors        []RowIssue `json:"errors,omitempty"`
}

// Parse reads the workbook into rows without touching the database.
func Parse(r io.Reader) ([]AssetRow, []NetworkRow, apperrors.Error) {
	wb, errx := excelize.OpenReader(r)
	if errx != nil {
		return nil, nil, ErrBadWorkbook.Err(errx)
	}
	defer wb.Close()

	assets, err := parseAssetSheet(wb)
	if err != nil {
		return nil, nil, err
	}
	network, err := parseNetworkSheet(wb)
	if err != nil {
		return nil, nil, err
	}
	return assets, network, nil
}

func parseAssetSheet(wb *excelize.File) ([]AssetRow, apperrors.Error) {
	rows, errx := wb.GetRows(SheetAssets)
	if errx != nil {
		return nil, ErrBadWorkbook.Msg("missing sheet " + SheetAssets)
	}
	if len(rows) == 0 || !headerMatches(rows[0], assetHeader) {
		return nil, ErrBadWorkbook.Msg("sheet " + SheetAssets + " must start with header " + strings.Join(assetHeader, ", "))
	}

	var parsed []AssetRow
	for i, cells := range rows[1:] {
		line := i + 2
		get := cellGetter(cells)
		if isBlankRow(cells) {
			continue
		}
		row := AssetRow{
			Line:        line,
			Hostname:    get(1),
			Datacenter:  get(2),
			RackLabel:   get(3),
			Vendor:      get(5),
			ModelNumber: get(6),
			Owner:       get(7),
			Comment:     get(8),
		}
		if s := get(0); s != "" {
			n, errp := strconv.ParseInt(s, 10, 64)
			if errp != nil {
				return nil, ErrBadWorkbook.Msg(fmt.Sprintf("row %d: asset_number %q is not a number", line, s))
			}
			row.AssetNumber = &n
		}
		pos, errp := strconv.Atoi(get(4))
		if errp != nil {
			return nil, ErrBadWorkbook.Msg(fmt.Sprintf("row %d: rack_position %q is not a number", line, get(4)))
		}
		row.RackPosition = pos
		parsed = append(parsed, row)
	}
	return parsed, nil
}

func parseNetworkSheet(wb *excelize.File) ([]NetworkRow, apperrors.Error) {
	rows, errx := wb.GetRows(SheetNetwork)
	if errx != nil {
		// the network sheet is optional
		return nil, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if !headerMatches(rows[0], networkHeader) {
		return nil, ErrBadWorkbook.Msg("sheet " + SheetNetwork + " must start with header " + strings.Join(networkHeader, ", "))
	}
	var parsed []NetworkRow
	for i, cells := range rows[1:] {
		if isBlankRow(cells) {
			continue
		}
		get := cellGetter(cells)
		parsed = append(parsed, NetworkRow{
			Line:         i + 2,
			SrcHostname:  get(0),
			SrcPort:      get(1),
			Mac:          get(2),
			DestHostname: get(3),
			DestPort:     get(4),
		})
	}
	return parsed, nil
}

func headerMatches(cells, want []string) bool {
	if len(cells) < len(want) {
		return false
	}
	for i, h := range want {
		if strings.TrimSpace(strings.ToLower(cells[i])) != h {
			return false
		}
	}
	return true
}

func cellGetter(cells []string) func(int) string {
	return func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// CheckBatch rejects the import up front when two rows claim overlapping
// units of the same rack. Heights come from the model catalog.
func CheckBatch(ctx context.Context, rows []AssetRow) apperrors.Error {
	catalog, err := modelCatalog(ctx)
	if err != nil {
		return err
	}
	var batch []placement.BatchRow
	for _, row := range rows {
		model, ok := catalog[modelKey(row.Vendor, row.ModelNumber)]
		if !ok {
			return ErrImport.Msg(fmt.Sprintf("row %d: unknown model %s %s", row.Line, row.Vendor, row.ModelNumber))
		}
		batch = append(batch, placement.BatchRow{
			Label:     rowLabel(row),
			RackLabel: row.Datacenter + "/" + row.RackLabel,
			Position:  row.RackPosition,
			Height:    model.Height,
		})
	}
	if errp := placement.CheckBatch(batch); errp != nil {
		return ErrImport.Err(errp)
	}
	return nil
}

// Apply writes the parsed rows. New assets are created; rows matching an
// existing asset by number are diff-gated: unchanged rows are skipped,
// changed rows are applied only when approve is set. Network rows run after
// all asset rows so both endpoints exist.
func Apply(ctx context.Context, assets []AssetRow, network []NetworkRow, approve bool) (*Report, apperrors.Error) {
	if err := CheckBatch(ctx, assets); err != nil {
		return nil, err
	}

	batchID, errn := gonanoid.New(10)
	if errn != nil {
		return nil, ErrImport.MsgErr("failed to generate batch id", errn)
	}
	report := &Report{BatchID: batchID}
	log.Ctx(ctx).Info().Str("batch_id", batchID).Int("asset_rows", len(assets)).Int("network_rows", len(network)).Msg("bulk import started")

	catalog, err := modelCatalog(ctx)
	if err != nil {
		return nil, err
	}

	for _, row := range assets {
		if err := applyAssetRow(ctx, row, catalog, approve, report); err != nil {
			report.Errors = append(report.Errors, RowIssue{Line: row.Line, Label: rowLabel(row), Reason: err.Error()})
		}
	}
	for _, row := range network {
		if err := applyNetworkRow(ctx, row); err != nil {
			report.Errors = append(report.Errors, RowIssue{Line: row.Line, Label: row.SrcHostname + "/" + row.SrcPort, Reason: err.Error()})
		} else {
			report.Connected++
		}
	}

	log.Ctx(ctx).Info().Str("batch_id", batchID).
		Int("created", report.Created).Int("updated", report.Updated).
		Int("skipped", report.Skipped).Int("errors", len(report.Errors)).
		Msg("bulk import finished")
	return report, nil
}

func applyAssetRow(ctx context.Context, row AssetRow, catalog map[string]*models.ITModel, approve bool, report *Report) apperrors.Error {
	model, ok := catalog[modelKey(row.Vendor, row.ModelNumber)]
	if !ok {
		return ErrImport.Msg("unknown model " + row.Vendor + " " + row.ModelNumber)
	}
	rowLetter, rackNum, err := ParseRackLabel(row.RackLabel)
	if err != nil {
		return err
	}
	rack, derr := db.DB(ctx).GetRackByLocation(ctx, row.Datacenter, rowLetter, rackNum)
	if derr != nil {
		if derr.Is(dberror.ErrNotFound) {
			return ErrImport.Msg("unknown rack " + row.Datacenter + "/" + row.RackLabel)
		}
		return derr
	}

	var existing *models.Asset
	if row.AssetNumber != nil {
		existing, derr = db.DB(ctx).GetAssetByNumber(ctx, *row.AssetNumber)
		if derr != nil && !derr.Is(dberror.ErrNotFound) {
			return derr
		}
	}

	if existing == nil {
		req := &assetsvc.CreateRequest{
			AssetNumber:  row.AssetNumber,
			Hostname:     row.Hostname,
			RackID:       rack.RackID,
			RackPosition: row.RackPosition,
			ModelID:      model.ModelID,
			Owner:        row.Owner,
			Comment:      row.Comment,
		}
		if _, err := assetsvc.Create(ctx, req); err != nil {
			return err
		}
		report.Created++
		return nil
	}

	candidate := *existing
	candidate.Hostname.String = row.Hostname
	candidate.Hostname.Valid = row.Hostname != ""
	candidate.RackID = rack.RackID
	candidate.RackPosition = row.RackPosition
	candidate.ModelID = model.ModelID
	candidate.Owner = row.Owner
	candidate.Comment = row.Comment
	changed := diffengine.ScalarChanges(existing, &candidate, existing.ChassisID)
	if len(changed) == 0 {
		report.Skipped++
		return nil
	}
	if !approve {
		report.NeedsApproval = append(report.NeedsApproval, RowIssue{
			Line:   row.Line,
			Label:  rowLabel(row),
			Reason: "would change " + strings.Join(changed, ", "),
		})
		return nil
	}

	upd := &models.AssetUpdate{
		RackID:       &rack.RackID,
		RackPosition: &row.RackPosition,
		ModelID:      &model.ModelID,
		Owner:        &row.Owner,
		Comment:      &row.Comment,
	}
	if row.Hostname != "" {
		upd.Hostname = &row.Hostname
	} else {
		upd.ClearHostname = true
	}
	if _, err := assetsvc.Update(ctx, existing.AssetID, upd); err != nil {
		return err
	}
	report.Updated++
	return nil
}

func applyNetworkRow(ctx context.Context, row NetworkRow) apperrors.Error {
	src, err := db.DB(ctx).GetAssetByHostname(ctx, row.SrcHostname, overlay.PlanScope(ctx))
	if err != nil {
		if err.Is(dberror.ErrNotFound) {
			return ErrImport.Msg("unknown hostname " + row.SrcHostname)
		}
		return err
	}
	edit := wiring.NetworkEdit{
		PortName:     row.SrcPort,
		DestHostname: row.DestHostname,
		DestPortName: row.DestPort,
	}
	if row.Mac != "" {
		mac := row.Mac
		edit.Mac = &mac
	}
	failures, err := wiring.ApplyNetworkEdits(ctx, src.AssetID, []wiring.NetworkEdit{edit})
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		return ErrImport.Msg(failures[0].Reason)
	}
	return nil
}

func modelCatalog(ctx context.Context) (map[string]*models.ITModel, apperrors.Error) {
	list, err := db.DB(ctx).ListITModels(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]*models.ITModel, len(list))
	for _, m := range list {
		catalog[modelKey(m.Vendor, m.ModelNumber)] = m
	}
	return catalog, nil
}

func modelKey(vendor, number string) string {
	return strings.ToLower(vendor) + "\x00" + strings.ToLower(number)
}

func rowLabel(row AssetRow) string {
	if row.AssetNumber != nil {
		return strconv.FormatInt(*row.AssetNumber, 10)
	}
	if row.Hostname != "" {
		return row.Hostname
	}
	return fmt.Sprintf("row %d", row.Line)
}

// ParseRackLabel splits a rack label like "A12" into its row letter and
// rack number.
func ParseRackLabel(label string) (string, int, apperrors.Error) {
	if len(label) < 2 {
		return "", 0, ErrImport.Msg("rack label " + label + " must be a row letter followed by a number")
	}
	rowLetter := strings.ToUpper(label[:1])
	if rowLetter[0] < 'A' || rowLetter[0] > 'Z' {
		return "", 0, ErrImport.Msg("rack label " + label + " must start with a row letter")
	}
	num, errp := strconv.Atoi(label[1:])
	if errp != nil || num < 1 {
		return "", 0, ErrImport.Msg("rack label " + label + " must end with a positive rack number")
	}
	return rowLetter, num, nil
}

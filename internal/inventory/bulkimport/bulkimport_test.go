package bulkimport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testWorkbook(t *testing.T, assetRows [][]any, networkRows [][]any) *bytes.Buffer {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	wb.SetSheetName(wb.GetSheetName(0), SheetAssets)
	writeRow(wb, SheetAssets, 1, toAny(assetHeader))
	for i, row := range assetRows {
		writeRow(wb, SheetAssets, i+2, row)
	}
	if networkRows != nil {
		_, err := wb.NewSheet(SheetNetwork)
		require.NoError(t, err)
		writeRow(wb, SheetNetwork, 1, toAny(networkHeader))
		for i, row := range networkRows {
			writeRow(wb, SheetNetwork, i+2, row)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	return &buf
}

func TestParse(t *testing.T) {
	buf := testWorkbook(t, [][]any{
		{"100001", "web01", "east", "A1", 5, "Dell", "R740", "ops", "primary"},
		{"", "web02", "east", "A2", 1, "Dell", "R740", "", ""},
	}, [][]any{
		{"web01", "eth0", "00:11:22:33:44:55", "web02", "eth1"},
	})

	assets, network, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Len(t, network, 1)

	first := assets[0]
	require.NotNil(t, first.AssetNumber)
	assert.Equal(t, int64(100001), *first.AssetNumber)
	assert.Equal(t, "web01", first.Hostname)
	assert.Equal(t, "east", first.Datacenter)
	assert.Equal(t, "A1", first.RackLabel)
	assert.Equal(t, 5, first.RackPosition)
	assert.Equal(t, 2, first.Line)

	// blank asset_number means "allocate"
	assert.Nil(t, assets[1].AssetNumber)

	conn := network[0]
	assert.Equal(t, "web01", conn.SrcHostname)
	assert.Equal(t, "eth0", conn.SrcPort)
	assert.Equal(t, "00:11:22:33:44:55", conn.Mac)
	assert.Equal(t, "web02", conn.DestHostname)
	assert.Equal(t, "eth1", conn.DestPort)
}

func TestParseRejectsBadNumbers(t *testing.T) {
	buf := testWorkbook(t, [][]any{
		{"not-a-number", "web01", "east", "A1", 5, "Dell", "R740", "", ""},
	}, nil)
	_, _, err := Parse(buf)
	assert.Error(t, err)

	buf = testWorkbook(t, [][]any{
		{"100001", "web01", "east", "A1", "five", "Dell", "R740", "", ""},
	}, nil)
	_, _, err = Parse(buf)
	assert.Error(t, err)
}

func TestParseMissingHeader(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	wb.SetSheetName(wb.GetSheetName(0), SheetAssets)
	writeRow(wb, SheetAssets, 1, []any{"wrong", "header"})
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	_, _, err := Parse(&buf)
	assert.Error(t, err)
}

func TestParseSkipsBlankRows(t *testing.T) {
	buf := testWorkbook(t, [][]any{
		{"100001", "web01", "east", "A1", 5, "Dell", "R740", "", ""},
		{"", "", "", "", "", "", "", "", ""},
	}, nil)
	assets, _, err := Parse(buf)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestParseRackLabel(t *testing.T) {
	row, num, err := ParseRackLabel("A12")
	require.NoError(t, err)
	assert.Equal(t, "A", row)
	assert.Equal(t, 12, num)

	row, num, err = ParseRackLabel("b1")
	require.NoError(t, err)
	assert.Equal(t, "B", row)
	assert.Equal(t, 1, num)

	for _, bad := range []string{"", "A", "12", "A0", "AX", "!3"} {
		_, _, err := ParseRackLabel(bad)
		assert.Error(t, err, "label %q", bad)
	}
}

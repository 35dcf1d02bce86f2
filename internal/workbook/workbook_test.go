package workbook

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ignite/offer-diagnostics/internal/datanorm"
	"github.com/ignite/offer-diagnostics/internal/report"
)

func day(d int) time.Time { return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC) }

func inputWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]any{
		"1--过去30天总流水": {
			{"Offer ID", "Adv Offer ID", "Advertiser", "App ID", "GEO", "Total Caps", "Total Clicks",
				"Total Conversions", "Total Revenue", "Total Cost", "Total Profit", "Online hour", "Status", "Affiliate", "Time", "Payin"},
			{101, "A1", "acme", "com.app", "US", 100, 200, 10, 100.5, 70.5, 30, 24, "ACTIVE", "aff1", day(12), 1.5},
			{101, "A1", "acme", "com.app", "US", 100, 100, 4, 40, 30, 10, 24, "ACTIVE", "aff1", day(13), 1.5},
		},
		"3--匹配业务负责广告主": {
			{"Advertiser", "二级广告主", "三级广告主", "流量匹配逻辑"},
			{"acme", "Acme", "Acme Group", "xdj"},
		},
		"notes": {
			{"free text"},
		},
	}
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReadTablesClassifiesSheets(t *testing.T) {
	tables, err := ReadTables(inputWorkbook(t))
	require.NoError(t, err)
	assert.Len(t, tables, 2)
	require.Contains(t, tables, datanorm.SheetMetrics)
	assert.Len(t, tables[datanorm.SheetMetrics].Rows, 2)
	assert.Contains(t, tables, datanorm.SheetAdvertisers)
}

func TestRead(t *testing.T) {
	in, err := Read(inputWorkbook(t), datanorm.Options{})
	require.NoError(t, err)
	require.Len(t, in.Metrics, 2)
	assert.Equal(t, "101", in.Metrics[0].OfferID)
	assert.Equal(t, day(12), in.Metrics[0].Date, "excel serial dates are decoded")
	assert.Equal(t, 100.5, in.Metrics[0].Revenue)
	require.Len(t, in.Advertisers, 1)
	assert.Equal(t, "xdj", in.Advertisers[0].TrafficLogic)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a workbook")), datanorm.Options{})
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	in, err := Read(inputWorkbook(t), datanorm.Options{})
	require.NoError(t, err)
	rep, err := report.Run(context.Background(), in, report.Options{Today: day(14)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		SheetTotals, SheetFluctuation, SheetAdvertisers, SheetAffiliates, SheetPeakDecline,
		SheetInfluence, SheetRejects, SheetEventRates, SheetActionItems,
	}, f.GetSheetList())

	rows, err := f.GetRows(SheetTotals)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "跟进广告主", rows[0][0])
	assert.Equal(t, "2026-10-13 总流水(美金)", rows[0][2])
	assert.Equal(t, "Acme Group", rows[1][0])

	rows, err = f.GetRows(SheetFluctuation)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, "101", rows[1][0])
	assert.Equal(t, budgetNewLabel, rows[1][len(rows[1])-1])

	rows, err = f.GetRows(SheetInfluence)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1][0], "profit")

	rows, err = f.GetRows(SheetActionItems)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "待办事项排序", rows[0][len(rows[0])-1])
}

func TestWriteEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &report.Report{}))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 9)
}

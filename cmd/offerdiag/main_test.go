package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/storage"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "offerdiag dev\n", out.String())
}

func TestBuildSourcePostgresNeedsDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Source = "postgres"
	_, err := buildRuntime(context.Background(), cfg, storage.NewMemoryStore())
	assert.ErrorContains(t, err, "database.url")
}

func TestBuildRuntimeWorkbookOnly(t *testing.T) {
	rt, err := buildRuntime(context.Background(), config.Default(), storage.NewMemoryStore())
	require.NoError(t, err)
	defer rt.close()
	assert.NotNil(t, rt.svc)
	assert.NotNil(t, rt.metrics)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "flow.xlsx")
	writeInput(t, input)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  type: none\nlogging:\n  level: error\n"), 0o644))

	out := filepath.Join(dir, "out.xlsx")
	js := filepath.Join(dir, "report.json")
	rootCmd.SetArgs([]string{"run", "--config", cfgPath, "--input", input, "--today", "2026-10-14", "--out", out, "--json", js})
	rootCmd.SetErr(&bytes.Buffer{})
	require.NoError(t, rootCmd.Execute())

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 9)

	data, err := os.ReadFile(js)
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.NotEmpty(t, rep["id"])
}

func writeInput(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]any{
		"1--过去30天总流水": {
			{"Offer ID", "Adv Offer ID", "Advertiser", "App ID", "GEO", "Total Caps", "Total Clicks",
				"Total Conversions", "Total Revenue", "Total Cost", "Total Profit", "Online hour", "Status", "Affiliate", "Time", "Payin"},
			{7, "A7", "acme", "com.app", "US", 100, 50, 5, 60, 40, 20, 24, "ACTIVE", "aff1", "2026-10-12", 12},
			{7, "A7", "acme", "com.app", "US", 100, 20, 2, 24, 20, 4, 24, "ACTIVE", "aff1", "2026-10-13", 12},
		},
		"3--匹配业务负责广告主": {
			{"Advertiser", "二级广告主", "三级广告主", "流量匹配逻辑"},
			{"acme", "Acme", "Acme Group", "xdj"},
		},
		"7--流量类型": {
			{"Affiliate", "流量类型-一级分类"},
			{"aff1", "xdj"},
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
	require.NoError(t, f.SaveAs(path))
}

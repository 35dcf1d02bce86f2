package datanorm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/offer-diagnostics/internal/domain"
)

var flowHeader = []string{
	"Offer ID", "Adv Offer ID", "Advertiser", "App ID", "GEO", "Total Caps",
	"Total Clicks", "Total Conversions", "Total Revenue", "Total Cost", "Total Profit",
	"Online hour", "Status", "Affiliate", "Time", "Payin",
}

func minimalTables() Tables {
	return Tables{
		SheetMetrics: {
			Header: flowHeader,
			Rows: [][]string{
				{"101.0", "A1", "acme", "com.app", "US", "", "100", "5", "50", "40", "10", "24", "ACTIVE", "aff1", "2026-10-13", "1.5"},
				{"101", "", "", "", "", "-3", "1,000", "x", "$25", "20", "5", "20", "paused", "aff2", "2026/10/12", ""},
				{"102", "B1", "beta", "com.b", "DE", "50", "", "", "", "", "", "", "", "aff1", "not a date", ""},
				{"", "", "", "", "", "", "", "", "", "", "", "", "", "", "", ""},
			},
		},
		SheetAdvertisers: {
			Header: []string{"Advertiser", "二级广告主", "三级广告主", "流量匹配规则"},
			Rows:   [][]string{{"acme", "Acme Group", "Acme", "xdj/inapp流量"}},
		},
	}
}

func TestNormalizeMetrics(t *testing.T) {
	n := NewNormalizer(Options{})
	in, err := n.Normalize(minimalTables())
	require.NoError(t, err)

	require.Len(t, in.Metrics, 2, "undated and blank rows are dropped")

	first := in.Metrics[0]
	assert.Equal(t, "101", first.OfferID)
	assert.Equal(t, 100.0, first.Cap, "empty cap defaults")
	assert.Equal(t, 1.5, first.UnitPrice)
	assert.Equal(t, domain.StatusActive, first.Status)
	assert.Equal(t, time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC), first.Date)

	second := in.Metrics[1]
	assert.Equal(t, 100.0, second.Cap, "non-positive cap defaults")
	assert.Equal(t, 1000.0, second.Clicks)
	assert.Equal(t, 0.0, second.Conversions, "invalid numbers coerce to zero")
	assert.Equal(t, 25.0, second.Revenue)
	assert.Equal(t, domain.StatusPause, second.Status)

	st := n.Stats()[SheetMetrics]
	assert.Equal(t, 1, st.DroppedRows)
	assert.Equal(t, 2, st.CoercedValues)

	require.Len(t, in.Advertisers, 1)
	assert.Equal(t, "xdj/inapp流量", in.Advertisers[0].TrafficLogic, "traffic logic alias resolved")
	assert.Empty(t, in.Blacklist, "missing optional sheet degrades to empty")
}

func TestNormalizeMissingRequiredSheet(t *testing.T) {
	tables := minimalTables()
	delete(tables, SheetAdvertisers)

	_, err := Normalize(tables, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingSheet))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, SheetNames[SheetAdvertisers], ve.Sheet)
}

func TestNormalizeMissingRequiredColumn(t *testing.T) {
	tables := minimalTables()
	tables[SheetMetrics] = Table{Name: "flow", Header: []string{"Offer ID", "Time", "Total Revenue"}}

	_, err := Normalize(tables, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.False(t, errors.Is(err, ErrMissingSheet))
	assert.Contains(t, err.Error(), "affiliate")
}

func TestNormalizeMissingOptionalColumn(t *testing.T) {
	tables := minimalTables()
	tables[SheetAdvertisers] = Table{Header: []string{"Advertiser"}, Rows: [][]string{{"acme"}}}

	n := NewNormalizer(Options{})
	in, err := n.Normalize(tables)
	require.NoError(t, err)
	assert.Equal(t, "", in.Advertisers[0].TrafficLogic)
	assert.Contains(t, n.Stats()[SheetAdvertisers].MissingColumns, string(FieldTrafficLogic))
}

func TestNormalizeReferenceOnly(t *testing.T) {
	tables := minimalTables()
	delete(tables, SheetMetrics)

	in, err := Normalize(tables, Options{ReferenceOnly: true})
	require.NoError(t, err)
	assert.Empty(t, in.Metrics)
	assert.Len(t, in.Advertisers, 1)
}

func TestNormalizeReferenceSheets(t *testing.T) {
	tables := minimalTables()
	tables[SheetRejectRules] = Table{Header: []string{"Event", "是否为reject"}, Rows: [][]string{{"rej", "TRUE"}, {"install", "FALSE"}, {"", "TRUE"}}}
	tables[SheetTargets] = Table{Header: []string{"三级广告主", "本月日均目标流水（美金）"}, Rows: [][]string{{"Acme", "1,200"}}}
	tables[SheetBlacklist] = Table{Header: []string{"Offer ID", "Affiliate"}, Rows: [][]string{{"101", "All"}}}
	tables[SheetTrafficTypes] = Table{
		Header: []string{"Affiliate", "流量类型--一级分类", "纯xdj新预算推量优先级", "非100% xdj新预算推量优先级"},
		Rows:   [][]string{{"aff1", "xdj", "high", "不沟通"}},
	}
	tables[SheetEvents] = Table{
		Header: []string{"Time", "Offer Name", "Advertiser", "Affiliate", "Event"},
		Rows:   [][]string{{"2026-10-13", "Game [101]", "acme", "aff1", "rej"}, {"2026-10-13", "x", "acme", "aff1", ""}},
	}

	in, err := Normalize(tables, Options{})
	require.NoError(t, err)

	assert.Equal(t, []domain.RejectRule{{Event: "rej", IsReject: true}, {Event: "install"}}, in.RejectRules)
	assert.Equal(t, []domain.DailyTarget{{Tier3: "Acme", Target: 1200}}, in.Targets, "full-width brackets fold")
	assert.Equal(t, domain.BlacklistAll, in.Blacklist[0].Affiliate)
	assert.Equal(t, domain.PriorityDoNotContact, in.TrafficTypes[0].MixedPriority)
	assert.Len(t, in.Events, 1, "events without a name are dropped")
}

func TestBuildOfferInfo(t *testing.T) {
	records := []domain.MetricRecord{
		{OfferID: "1", Status: domain.StatusUnknown, Cap: 0},
		{OfferID: "2", Advertiser: "b", Cap: 30, Status: domain.StatusActive},
		{OfferID: "1", Advertiser: "a", Geo: "US", Cap: 50, Status: domain.StatusPause, UnitPrice: 2},
		{OfferID: "1", Advertiser: "z", Geo: "DE", Cap: 70, Status: domain.StatusActive},
		{OfferID: "3"},
	}

	idx := BuildOfferInfo(records, 100)
	require.Equal(t, 3, idx.Len())

	one, ok := idx.Get("1")
	require.True(t, ok)
	assert.Equal(t, "a", one.Advertiser)
	assert.Equal(t, "US", one.Geo)
	assert.Equal(t, 50.0, one.Cap)
	assert.Equal(t, 2.0, one.UnitPrice)
	assert.Equal(t, domain.StatusPause, one.Status)

	three, _ := idx.Get("3")
	assert.Equal(t, 100.0, three.Cap)
	assert.Equal(t, domain.StatusUnknown, three.Status)

	_, ok = idx.Get("nope")
	assert.False(t, ok)

	var ids []string
	for _, info := range idx.All() {
		ids = append(ids, info.OfferID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

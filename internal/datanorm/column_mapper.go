package datanorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// CanonicalField is a normalized column name used across all input sheets.
type CanonicalField string

const (
	FieldOfferID      CanonicalField = "offer_id"
	FieldAdvOfferID   CanonicalField = "adv_offer_id"
	FieldAdvertiser   CanonicalField = "advertiser"
	FieldAppID        CanonicalField = "app_id"
	FieldGeo          CanonicalField = "geo"
	FieldCap          CanonicalField = "cap"
	FieldClicks       CanonicalField = "clicks"
	FieldConversions  CanonicalField = "conversions"
	FieldRevenue      CanonicalField = "revenue"
	FieldCost         CanonicalField = "cost"
	FieldProfit       CanonicalField = "profit"
	FieldOnlineHours  CanonicalField = "online_hours"
	FieldStatus       CanonicalField = "status"
	FieldAffiliate    CanonicalField = "affiliate"
	FieldDate         CanonicalField = "date"
	FieldPayin        CanonicalField = "payin"
	FieldTier2        CanonicalField = "tier2"
	FieldTier3        CanonicalField = "tier3"
	FieldTrafficLogic CanonicalField = "traffic_logic"
	FieldEvent        CanonicalField = "event"
	FieldIsReject     CanonicalField = "is_reject"
	FieldOfferName    CanonicalField = "offer_name"
	FieldTarget       CanonicalField = "target"
	FieldCategory     CanonicalField = "category"
	FieldPurePriority CanonicalField = "pure_priority"
	FieldMixedPrio    CanonicalField = "mixed_priority"
)

// columnAliases maps normalized header names to canonical fields.
// Keys are in NormalizeHeader form: folded case, no spaces or underscores.
var columnAliases = map[string]CanonicalField{
	// Flow identity
	"offerid":    FieldOfferID,
	"advofferid": FieldAdvOfferID,
	"advertiser": FieldAdvertiser,
	"appid":      FieldAppID,
	"geo":        FieldGeo,
	"country":    FieldGeo,
	"affiliate":  FieldAffiliate,
	"time":       FieldDate,
	"date":       FieldDate,
	"day":        FieldDate,

	// Flow metrics
	"totalcaps":        FieldCap,
	"totalcap":         FieldCap,
	"caps":             FieldCap,
	"cap":              FieldCap,
	"totalclicks":      FieldClicks,
	"clicks":           FieldClicks,
	"totalconversions": FieldConversions,
	"conversions":      FieldConversions,
	"totalrevenue":     FieldRevenue,
	"revenue":          FieldRevenue,
	"totalcost":        FieldCost,
	"cost":             FieldCost,
	"payout":           FieldCost,
	"totalprofit":      FieldProfit,
	"profit":           FieldProfit,
	"onlinehour":       FieldOnlineHours,
	"onlinehours":      FieldOnlineHours,
	"status":           FieldStatus,
	"payin":            FieldPayin,
	"unitprice":        FieldPayin,

	// Advertiser hierarchy
	"二级广告主":  FieldTier2,
	"三级广告主":  FieldTier3,
	"跟进广告主":  FieldTier3,
	"tier2":  FieldTier2,
	"tier3":  FieldTier3,
	"流量匹配逻辑": FieldTrafficLogic,
	"流量匹配规则": FieldTrafficLogic,
	"匹配逻辑":   FieldTrafficLogic,

	// Events and reject rules
	"event":       FieldEvent,
	"是否为reject":   FieldIsReject,
	"isreject":    FieldIsReject,
	"offername":   FieldOfferName,
	"本月日均目标流水":    FieldTarget,
	"本月日均目标流水(美金)": FieldTarget,
	"dailytarget": FieldTarget,
	"target":      FieldTarget,

	// Traffic types
	"流量类型-一级分类":       FieldCategory,
	"流量类型--一级分类":      FieldCategory,
	"流量类型":            FieldCategory,
	"category":        FieldCategory,
	"纯xdj新预算推量优先级":    FieldPurePriority,
	"非100%xdj新预算推量优先级": FieldMixedPrio,
}

// NormalizeHeader folds width and case and strips spacing so headers such as
// "Total Revenue", "total_revenue" and "ＴＯＴＡＬ　ＲＥＶＥＮＵＥ" compare equal.
func NormalizeHeader(h string) string {
	s := width.Fold.String(strings.TrimSpace(h))
	s = cases.Fold().String(s)
	s = strings.Trim(s, "\"'")
	s = strings.ReplaceAll(s, "—", "-")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '\t', '　':
			return -1
		}
		return r
	}, s)
}

// ColumnMapping holds the resolved mapping from canonical fields to column indices.
type ColumnMapping struct {
	FieldMap map[CanonicalField]int
	RawNames []string
	// Missing lists optional fields absent from the header.
	Missing []CanonicalField
}

// sheetSchema lists the fields a sheet must and may carry.
type sheetSchema struct {
	required []CanonicalField
	optional []CanonicalField
}

var schemas = map[SheetKind]sheetSchema{
	SheetMetrics: {
		required: []CanonicalField{FieldOfferID, FieldAffiliate, FieldDate, FieldRevenue, FieldProfit},
		optional: []CanonicalField{FieldAdvOfferID, FieldAdvertiser, FieldAppID, FieldGeo, FieldCap,
			FieldClicks, FieldConversions, FieldCost, FieldOnlineHours, FieldStatus, FieldPayin},
	},
	SheetRejectRules:  {required: []CanonicalField{FieldEvent}, optional: []CanonicalField{FieldIsReject}},
	SheetAdvertisers:  {required: []CanonicalField{FieldAdvertiser}, optional: []CanonicalField{FieldTier2, FieldTier3, FieldTrafficLogic}},
	SheetEvents:       {required: []CanonicalField{FieldDate, FieldOfferName, FieldEvent}, optional: []CanonicalField{FieldAdvertiser, FieldAffiliate}},
	SheetTargets:      {required: []CanonicalField{FieldTier3, FieldTarget}},
	SheetBlacklist:    {required: []CanonicalField{FieldOfferID}, optional: []CanonicalField{FieldAffiliate}},
	SheetTrafficTypes: {required: []CanonicalField{FieldAffiliate}, optional: []CanonicalField{FieldCategory, FieldPurePriority, FieldMixedPrio}},
}

// MapColumns resolves a header row for the given sheet. A missing required
// field is a *ValidationError; missing optional fields are listed in Missing
// and read back as empty values.
func MapColumns(kind SheetKind, sheetName string, header []string) (*ColumnMapping, error) {
	m := &ColumnMapping{
		FieldMap: make(map[CanonicalField]int, len(header)),
		RawNames: header,
	}
	for i, h := range header {
		field, ok := columnAliases[NormalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := m.FieldMap[field]; !dup {
			m.FieldMap[field] = i
		}
	}

	schema := schemas[kind]
	for _, f := range schema.required {
		if _, ok := m.FieldMap[f]; !ok {
			return nil, &ValidationError{Sheet: sheetName, Column: string(f)}
		}
	}
	for _, f := range schema.optional {
		if _, ok := m.FieldMap[f]; !ok {
			m.Missing = append(m.Missing, f)
		}
	}
	return m, nil
}

// Value returns the trimmed cell of row for field, "" when absent.
func (m *ColumnMapping) Value(row []string, field CanonicalField) string {
	i, ok := m.FieldMap[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Has reports whether the header carried field.
func (m *ColumnMapping) Has(field CanonicalField) bool {
	_, ok := m.FieldMap[field]
	return ok
}

package datanorm

// SheetKind identifies one of the input tables.
type SheetKind string

const (
	SheetMetrics      SheetKind = "metrics"
	SheetRejectRules  SheetKind = "reject_rules"
	SheetAdvertisers  SheetKind = "advertisers"
	SheetEvents       SheetKind = "events"
	SheetTargets      SheetKind = "targets"
	SheetBlacklist    SheetKind = "blacklist"
	SheetTrafficTypes SheetKind = "traffic_types"
)

// SheetNames are the sheet titles of the standard daily report template.
var SheetNames = map[SheetKind]string{
	SheetMetrics:      "1--过去30天总流水",
	SheetRejectRules:  "2--reject规则匹配",
	SheetAdvertisers:  "3--匹配业务负责广告主",
	SheetEvents:       "4--event事件",
	SheetTargets:      "5--本月日均目标流水",
	SheetBlacklist:    "6--预算黑名单",
	SheetTrafficTypes: "7--流量类型",
}

// AllSheets lists the kinds in template order.
var AllSheets = []SheetKind{
	SheetMetrics, SheetRejectRules, SheetAdvertisers, SheetEvents,
	SheetTargets, SheetBlacklist, SheetTrafficTypes,
}

// Table is a raw sheet: one header row and string cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Tables holds the raw sheets of one input, keyed by kind.
type Tables map[SheetKind]Table

// Options tunes normalization.
type Options struct {
	// DefaultCap replaces missing or non-positive caps. Zero means domain.DefaultCap.
	DefaultCap float64
	// ReferenceOnly skips the metric sheet, for inputs whose metrics come
	// from another source.
	ReferenceOnly bool
}

// Stats counts what normalization had to repair.
type Stats struct {
	Rows           int
	DroppedRows    int
	CoercedValues  int
	MissingColumns []string
}

package datanorm

import (
	"strings"
)

// Classifier determines the sheet kind from the sheet title and header row,
// for workbooks whose sheets were renamed or reordered.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// keyword order matters: the targets sheet title also contains 流水
var sheetKeywords = []struct {
	kind     SheetKind
	keywords []string
}{
	{SheetTargets, []string{"目标", "target"}},
	{SheetBlacklist, []string{"黑名单", "blacklist"}},
	{SheetTrafficTypes, []string{"流量类型", "traffic"}},
	{SheetRejectRules, []string{"reject"}},
	{SheetEvents, []string{"event"}},
	{SheetAdvertisers, []string{"广告主", "advertiser"}},
	{SheetMetrics, []string{"流水", "flow", "metric"}},
}

// Classify returns the kind, or "" when nothing matches.
func (c *Classifier) Classify(name string, header []string) SheetKind {
	if kind := kindByName(name); kind != "" {
		return kind
	}

	fields := make(map[CanonicalField]bool, len(header))
	for _, h := range header {
		if f, ok := columnAliases[NormalizeHeader(h)]; ok {
			fields[f] = true
		}
	}
	switch {
	case fields[FieldOfferID] && fields[FieldDate] && fields[FieldRevenue]:
		return SheetMetrics
	case fields[FieldOfferName] && fields[FieldEvent]:
		return SheetEvents
	case fields[FieldEvent] && fields[FieldIsReject]:
		return SheetRejectRules
	case fields[FieldTarget]:
		return SheetTargets
	case fields[FieldCategory]:
		return SheetTrafficTypes
	case fields[FieldTier2] || fields[FieldTrafficLogic]:
		return SheetAdvertisers
	}
	return ""
}

func kindByName(name string) SheetKind {
	lower := strings.ToLower(name)
	for _, sk := range sheetKeywords {
		for _, kw := range sk.keywords {
			if strings.Contains(lower, kw) {
				return sk.kind
			}
		}
	}
	return ""
}

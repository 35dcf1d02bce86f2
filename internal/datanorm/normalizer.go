package datanorm

import (
	"strings"

	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
)

// requiredSheets abort normalization when absent. The remaining reference
// sheets degrade to empty tables.
var requiredSheets = []SheetKind{SheetMetrics, SheetAdvertisers}

// Normalizer converts raw sheets into the domain input.
type Normalizer struct {
	opts  Options
	stats map[SheetKind]*Stats
}

func NewNormalizer(opts Options) *Normalizer {
	if opts.DefaultCap <= 0 {
		opts.DefaultCap = domain.DefaultCap
	}
	return &Normalizer{opts: opts, stats: make(map[SheetKind]*Stats)}
}

// Stats returns what was repaired per sheet during the last Normalize.
func (n *Normalizer) Stats() map[SheetKind]Stats {
	out := make(map[SheetKind]Stats, len(n.stats))
	for k, v := range n.stats {
		out[k] = *v
	}
	return out
}

// Normalize validates structure first, then parses every sheet. Structural
// problems return a *ValidationError before any row is read.
func (n *Normalizer) Normalize(tables Tables) (*domain.Input, error) {
	mappings := make(map[SheetKind]*ColumnMapping, len(AllSheets))
	for _, kind := range AllSheets {
		if kind == SheetMetrics && n.opts.ReferenceOnly {
			continue
		}
		t, ok := tables[kind]
		if !ok {
			if isRequired(kind) {
				return nil, &ValidationError{Sheet: SheetNames[kind]}
			}
			logger.Warn("datanorm: sheet missing, using empty table", "sheet", SheetNames[kind])
			continue
		}
		name := t.Name
		if name == "" {
			name = SheetNames[kind]
		}
		m, err := MapColumns(kind, name, t.Header)
		if err != nil {
			return nil, err
		}
		st := &Stats{}
		for _, f := range m.Missing {
			st.MissingColumns = append(st.MissingColumns, string(f))
		}
		if len(m.Missing) > 0 {
			logger.Warn("datanorm: optional columns missing, defaulting to empty",
				"sheet", name, "columns", strings.Join(st.MissingColumns, ","))
		}
		n.stats[kind] = st
		mappings[kind] = m
	}

	in := &domain.Input{}
	for kind, m := range mappings {
		rows := tables[kind].Rows
		st := n.stats[kind]
		switch kind {
		case SheetMetrics:
			in.Metrics = n.metrics(m, rows, st)
		case SheetRejectRules:
			in.RejectRules = rejectRules(m, rows, st)
		case SheetAdvertisers:
			in.Advertisers = advertisers(m, rows, st)
		case SheetEvents:
			in.Events = events(m, rows, st)
		case SheetTargets:
			in.Targets = targets(m, rows, st)
		case SheetBlacklist:
			in.Blacklist = blacklist(m, rows, st)
		case SheetTrafficTypes:
			in.TrafficTypes = trafficTypes(m, rows, st)
		}
		if st.DroppedRows > 0 || st.CoercedValues > 0 {
			logger.Warn("datanorm: repaired rows",
				"sheet", string(kind), "dropped", st.DroppedRows, "coerced", st.CoercedValues)
		}
		logger.Debug("datanorm: sheet normalized", "sheet", string(kind), "rows", st.Rows)
	}
	return in, nil
}

// Normalize is a convenience wrapper around a fresh Normalizer.
func Normalize(tables Tables, opts Options) (*domain.Input, error) {
	return NewNormalizer(opts).Normalize(tables)
}

func isRequired(kind SheetKind) bool {
	for _, k := range requiredSheets {
		if k == kind {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (n *Normalizer) metrics(m *ColumnMapping, rows [][]string, st *Stats) []domain.MetricRecord {
	out := make([]domain.MetricRecord, 0, len(rows))
	num := func(row []string, f CanonicalField) float64 {
		v, ok := ParseNumber(m.Value(row, f))
		if !ok {
			st.CoercedValues++
		}
		return v
	}
	for _, row := range rows {
		if blank(row) {
			continue
		}
		date, ok := ParseDate(m.Value(row, FieldDate))
		if !ok {
			st.DroppedRows++
			continue
		}
		capRaw := m.Value(row, FieldCap)
		capV := ParseCap(capRaw, n.opts.DefaultCap)
		if v, ok := ParseNumber(capRaw); capRaw != "" && (!ok || v <= 0) {
			st.CoercedValues++
		}
		out = append(out, domain.MetricRecord{
			OfferID:     NormalizeID(m.Value(row, FieldOfferID)),
			AdvOfferID:  NormalizeID(m.Value(row, FieldAdvOfferID)),
			Advertiser:  m.Value(row, FieldAdvertiser),
			AppID:       m.Value(row, FieldAppID),
			Geo:         m.Value(row, FieldGeo),
			Affiliate:   m.Value(row, FieldAffiliate),
			Date:        date,
			Clicks:      num(row, FieldClicks),
			Conversions: num(row, FieldConversions),
			Revenue:     num(row, FieldRevenue),
			Cost:        num(row, FieldCost),
			Profit:      num(row, FieldProfit),
			OnlineHours: num(row, FieldOnlineHours),
			Status:      domain.ParseStatus(m.Value(row, FieldStatus)),
			Cap:         capV,
			UnitPrice:   num(row, FieldPayin),
		})
	}
	st.Rows = len(out)
	return out
}

func rejectRules(m *ColumnMapping, rows [][]string, st *Stats) []domain.RejectRule {
	var out []domain.RejectRule
	for _, row := range rows {
		ev := m.Value(row, FieldEvent)
		if ev == "" {
			continue
		}
		out = append(out, domain.RejectRule{Event: ev, IsReject: ParseBool(m.Value(row, FieldIsReject))})
	}
	st.Rows = len(out)
	return out
}

func advertisers(m *ColumnMapping, rows [][]string, st *Stats) []domain.AdvertiserMapping {
	var out []domain.AdvertiserMapping
	for _, row := range rows {
		adv := m.Value(row, FieldAdvertiser)
		if adv == "" {
			continue
		}
		out = append(out, domain.AdvertiserMapping{
			Advertiser:   adv,
			Tier2:        m.Value(row, FieldTier2),
			Tier3:        m.Value(row, FieldTier3),
			TrafficLogic: m.Value(row, FieldTrafficLogic),
		})
	}
	st.Rows = len(out)
	return out
}

func events(m *ColumnMapping, rows [][]string, st *Stats) []domain.Event {
	var out []domain.Event
	for _, row := range rows {
		if blank(row) {
			continue
		}
		ev := m.Value(row, FieldEvent)
		date, ok := ParseDate(m.Value(row, FieldDate))
		if ev == "" || !ok {
			st.DroppedRows++
			continue
		}
		out = append(out, domain.Event{
			Date:       date,
			OfferName:  m.Value(row, FieldOfferName),
			Advertiser: m.Value(row, FieldAdvertiser),
			Affiliate:  m.Value(row, FieldAffiliate),
			Event:      ev,
		})
	}
	st.Rows = len(out)
	return out
}

func targets(m *ColumnMapping, rows [][]string, st *Stats) []domain.DailyTarget {
	var out []domain.DailyTarget
	for _, row := range rows {
		tier3 := m.Value(row, FieldTier3)
		if tier3 == "" {
			continue
		}
		v, ok := ParseNumber(m.Value(row, FieldTarget))
		if !ok {
			st.CoercedValues++
		}
		out = append(out, domain.DailyTarget{Tier3: tier3, Target: v})
	}
	st.Rows = len(out)
	return out
}

func blacklist(m *ColumnMapping, rows [][]string, st *Stats) []domain.BlacklistEntry {
	var out []domain.BlacklistEntry
	for _, row := range rows {
		id := NormalizeID(m.Value(row, FieldOfferID))
		if id == "" {
			continue
		}
		out = append(out, domain.BlacklistEntry{OfferID: id, Affiliate: m.Value(row, FieldAffiliate)})
	}
	st.Rows = len(out)
	return out
}

func trafficTypes(m *ColumnMapping, rows [][]string, st *Stats) []domain.TrafficType {
	var out []domain.TrafficType
	for _, row := range rows {
		aff := m.Value(row, FieldAffiliate)
		if aff == "" {
			continue
		}
		out = append(out, domain.TrafficType{
			Affiliate:     aff,
			Category:      m.Value(row, FieldCategory),
			PurePriority:  m.Value(row, FieldPurePriority),
			MixedPriority: m.Value(row, FieldMixedPrio),
		})
	}
	st.Rows = len(out)
	return out
}

// OfferIndex is the per-offer dimension lookup.
type OfferIndex struct {
	order []string
	byID  map[string]domain.OfferInfo
}

// BuildOfferInfo collects, per offer, the first non-empty value of each
// dimension across all rows. Caps fall back to defaultCap.
func BuildOfferInfo(records []domain.MetricRecord, defaultCap float64) *OfferIndex {
	if defaultCap <= 0 {
		defaultCap = domain.DefaultCap
	}
	idx := &OfferIndex{byID: make(map[string]domain.OfferInfo)}
	for _, r := range records {
		info, ok := idx.byID[r.OfferID]
		if !ok {
			idx.order = append(idx.order, r.OfferID)
			info.OfferID = r.OfferID
		}
		fill(&info.AdvOfferID, r.AdvOfferID)
		fill(&info.Advertiser, r.Advertiser)
		fill(&info.AppID, r.AppID)
		fill(&info.Geo, r.Geo)
		if info.Cap <= 0 && r.Cap > 0 {
			info.Cap = r.Cap
		}
		if info.UnitPrice == 0 && r.UnitPrice != 0 {
			info.UnitPrice = r.UnitPrice
		}
		if (info.Status == "" || info.Status == domain.StatusUnknown) && r.Status != domain.StatusUnknown && r.Status != "" {
			info.Status = r.Status
		}
		idx.byID[r.OfferID] = info
	}
	for id, info := range idx.byID {
		if info.Cap <= 0 {
			info.Cap = defaultCap
		}
		if info.Status == "" {
			info.Status = domain.StatusUnknown
		}
		idx.byID[id] = info
	}
	return idx
}

func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// Get returns the info for id; ok is false for offers never seen.
func (x *OfferIndex) Get(id string) (domain.OfferInfo, bool) {
	if x == nil {
		return domain.OfferInfo{}, false
	}
	info, ok := x.byID[id]
	return info, ok
}

// All returns every offer in first-seen order.
func (x *OfferIndex) All() []domain.OfferInfo {
	out := make([]domain.OfferInfo, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, x.byID[id])
	}
	return out
}

// Len is the number of offers.
func (x *OfferIndex) Len() int { return len(x.order) }

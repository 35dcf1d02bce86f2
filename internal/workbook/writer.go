package workbook

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ignite/offer-diagnostics/internal/analysis"
	"github.com/ignite/offer-diagnostics/internal/domain"
	"github.com/ignite/offer-diagnostics/internal/report"
	"github.com/ignite/offer-diagnostics/internal/rollup"
)

// Output sheet titles, in workbook order.
const (
	SheetTotals       = "1-总数据"
	SheetFluctuation  = "2-预算波动"
	SheetAdvertisers  = "3-Advertiser数据"
	SheetAffiliates   = "4-Affiliate数据"
	SheetPeakDecline  = "5-流水大幅下降预算"
	SheetInfluence    = "6-利润影响分析"
	SheetRejects      = "7-reject事件分析"
	SheetEventRates   = "8-非reject事件分析"
	SheetActionItems  = "9-今日待办事项"
	budgetNewLabel    = "新预算"
	budgetOldLabel    = "旧预算"
	defaultSheetTitle = "Sheet1"
)

type format int

const (
	fmtText format = iota
	fmtMoney
	fmtRatio
	fmtPoints
	fmtCount
)

type column[T any] struct {
	title string
	fmt   format
	value func(T) any
}

func col[T any](title string, f format, value func(T) any) column[T] {
	return column[T]{title: title, fmt: f, value: value}
}

type styles map[format]int

func newStyles(f *excelize.File) (styles, error) {
	codes := map[format]string{fmtMoney: "0.00", fmtRatio: "0.0%", fmtPoints: "0.0", fmtCount: "0"}
	s := make(styles, len(codes))
	for k, code := range codes {
		id, err := f.NewStyle(&excelize.Style{CustomNumFmt: &code})
		if err != nil {
			return nil, err
		}
		s[k] = id
	}
	return s, nil
}

func writeSheet[T any](f *excelize.File, st styles, name string, cols []column[T], rows []T) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %q: %w", name, err)
	}
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c.title
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	for r, row := range rows {
		values := make([]any, len(cols))
		for i, c := range cols {
			values[i] = c.value(row)
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	for i, c := range cols {
		id, ok := st[c.fmt]
		if !ok {
			continue
		}
		top, _ := excelize.CoordinatesToCellName(i+1, 2)
		bottom, _ := excelize.CoordinatesToCellName(i+1, len(rows)+1)
		if err := f.SetCellStyle(name, top, bottom, id); err != nil {
			return err
		}
	}
	return nil
}

func dateLabel(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(domain.DateLayout)
}

func budgetLabel(s string) string {
	if s == analysis.BudgetNew {
		return budgetNewLabel
	}
	return budgetOldLabel
}

// Write renders the report as the nine-sheet workbook.
func Write(w io.Writer, rep *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	dn, do := dateLabel(rep.DayNew), dateLabel(rep.DayOld)

	steps := []func() error{
		func() error { return writeSheet(f, st, SheetTotals, totalsColumns(dn, do), rep.Totals) },
		func() error { return writeSheet(f, st, SheetFluctuation, fluctuationColumns(dn, do), rep.Fluctuations) },
		func() error { return writeSheet(f, st, SheetAdvertisers, groupColumns("二级广告主", dn, do, fmtRatio), rep.Advertisers) },
		func() error { return writeSheet(f, st, SheetAffiliates, groupColumns("Affiliate", dn, do, fmtPoints), rep.Affiliates) },
		func() error { return writeSheet(f, st, SheetPeakDecline, peakColumns(), rep.PeakDeclines) },
		func() error {
			var rows []string
			if rep.Influence != nil {
				rows = []string{rep.Influence.Conclusion}
			}
			return writeSheet(f, st, SheetInfluence, []column[string]{col("利润影响因素分析", fmtText, func(s string) any { return s })}, rows)
		},
		func() error { return writeSheet(f, st, SheetRejects, rejectColumns(), rep.Rejects) },
		func() error { return writeSheet(f, st, SheetEventRates, eventColumns(), rep.Events) },
		func() error { return writeSheet(f, st, SheetActionItems, actionColumns(), rep.Actions) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("writing report workbook: %w", err)
		}
	}
	if err := f.DeleteSheet(defaultSheetTitle); err != nil {
		return err
	}
	if idx, err := f.GetSheetIndex(SheetTotals); err == nil {
		f.SetActiveSheet(idx)
	}
	_, err = f.WriteTo(w)
	return err
}

func totalsColumns(dn, do string) []column[rollup.TierTotal] {
	type T = rollup.TierTotal
	return []column[T]{
		col("跟进广告主", fmtText, func(t T) any { return t.Tier3 }),
		col("本月日均目标流水(美金)", fmtMoney, func(t T) any { return t.Target }),
		col(dn+" 总流水(美金)", fmtMoney, func(t T) any { return t.RevenueNew }),
		col(do+" 总流水(美金)", fmtMoney, func(t T) any { return t.RevenueOld }),
		col("流水日环比", fmtRatio, func(t T) any { return t.RevenueRatio }),
		col(dn+" 总利润(美金)", fmtMoney, func(t T) any { return t.ProfitNew }),
		col(do+" 总利润(美金)", fmtMoney, func(t T) any { return t.ProfitOld }),
		col("利润日环比", fmtRatio, func(t T) any { return t.ProfitRatio }),
		col(dn+" 利润率", fmtRatio, func(t T) any { return t.MarginNew }),
		col(do+" 利润率", fmtRatio, func(t T) any { return t.MarginOld }),
		col("利润率日环比", fmtRatio, func(t T) any { return t.MarginRatio }),
	}
}

func moveColumns(newTitle, oldTitle string) []column[analysis.OfferMove] {
	type M = analysis.OfferMove
	return []column[M]{
		col("offer id", fmtText, func(m M) any { return m.OfferID }),
		col("adv offer id", fmtText, func(m M) any { return m.AdvOfferID }),
		col("Advertiser", fmtText, func(m M) any { return m.Advertiser }),
		col("appid", fmtText, func(m M) any { return m.AppID }),
		col("country", fmtText, func(m M) any { return m.Geo }),
		col("Total cap", fmtMoney, func(m M) any { return m.Cap }),
		col("Payin", fmtMoney, func(m M) any { return m.UnitPrice }),
		col(newTitle+" online hour（小时）", fmtMoney, func(m M) any { return m.OnlineHoursNew }),
		col(oldTitle+" online hour（小时）", fmtMoney, func(m M) any { return m.OnlineHoursOld }),
		col(newTitle+" Total Revenue（美金）", fmtMoney, func(m M) any { return m.RevenueNew }),
		col(oldTitle+" Total Revenue（美金）", fmtMoney, func(m M) any { return m.RevenueOld }),
		col(newTitle+" Total Profit（美金）", fmtMoney, func(m M) any { return m.ProfitNew }),
		col(oldTitle+" Total Profit（美金）", fmtMoney, func(m M) any { return m.ProfitOld }),
		col(newTitle+" 利润率", fmtRatio, func(m M) any { return m.MarginNew }),
		col(oldTitle+" 利润率", fmtRatio, func(m M) any { return m.MarginOld }),
		col("Total Profit变化差值（美金）", fmtMoney, func(m M) any { return m.Delta }),
		col("online hour变化差值（小时）", fmtMoney, func(m M) any { return m.OnlineHoursDiff() }),
		col("预算status状态", fmtText, func(m M) any { return string(m.Status) }),
		col("在线时长和预算状态总结", fmtText, func(m M) any { return m.StatusSummary }),
		col("具体影响下游总结", fmtText, func(m M) any { return m.Downstream }),
		col("预算类型", fmtText, func(m M) any { return budgetLabel(m.BudgetType) }),
	}
}

func fluctuationColumns(dn, do string) []column[analysis.OfferMove] {
	return moveColumns(dn, do)
}

func peakColumns() []column[analysis.OfferMove] {
	cols := moveColumns("昨日", "历史最高利润当天")
	return append(cols[:5:5], append([]column[analysis.OfferMove]{
		col("历史最高利润日期", fmtText, func(m analysis.OfferMove) any { return dateLabel(m.OldDate) }),
	}, cols[5:]...)...)
}

func groupColumns(key, dn, do string, change format) []column[rollup.GroupRollup] {
	type G = rollup.GroupRollup
	return []column[G]{
		col(key, fmtText, func(g G) any { return g.Key }),
		col(dn+" Total Revenue", fmtMoney, func(g G) any { return g.RevenueNew }),
		col(do+" Total Revenue", fmtMoney, func(g G) any { return g.RevenueOld }),
		col(dn+" Total Profit", fmtMoney, func(g G) any { return g.ProfitNew }),
		col(do+" Total Profit", fmtMoney, func(g G) any { return g.ProfitOld }),
		col(dn+" 利润率", fmtRatio, func(g G) any { return g.MarginNew }),
		col(do+" 利润率", fmtRatio, func(g G) any { return g.MarginOld }),
		col("Total Revenue 变化幅度", change, func(g G) any { return g.RevenueChange }),
		col("Total Profit 变化幅度", change, func(g G) any { return g.ProfitChange }),
		col("利润率 变化幅度", change, func(g G) any { return g.MarginChange }),
		col(dn+" Total reject", fmtCount, func(g G) any { return g.RejectsNew }),
		col(dn+" reject率", fmtRatio, func(g G) any { return g.RejectRateNew }),
		col(do+" Total reject", fmtCount, func(g G) any { return g.RejectsOld }),
		col(do+" reject率", fmtRatio, func(g G) any { return g.RejectRateOld }),
	}
}

func rejectColumns() []column[rollup.RejectRow] {
	type R = rollup.RejectRow
	return []column[R]{
		col("Time", fmtText, func(r R) any { return dateLabel(r.Date) }),
		col("Offer Id", fmtText, func(r R) any { return r.OfferID }),
		col("Adv Offer ID", fmtText, func(r R) any { return r.AdvOfferID }),
		col("Advertiser", fmtText, func(r R) any { return r.Advertiser }),
		col("App ID", fmtText, func(r R) any { return r.AppID }),
		col("GEO", fmtText, func(r R) any { return r.Geo }),
		col("Affiliate", fmtText, func(r R) any { return r.Affiliate }),
		col("Total reject", fmtCount, func(r R) any { return r.Rejects }),
		col("Total Conversions", fmtCount, func(r R) any { return r.Conversions }),
		col("reject rate", fmtRatio, func(r R) any { return r.RejectRate }),
		col("总体 reject rate", fmtRatio, func(r R) any { return r.OfferRejectRate }),
	}
}

func eventColumns() []column[rollup.EventRow] {
	type E = rollup.EventRow
	return []column[E]{
		col("Time", fmtText, func(e E) any { return dateLabel(e.Date) }),
		col("Offer Id", fmtText, func(e E) any { return e.OfferID }),
		col("Adv Offer ID", fmtText, func(e E) any { return e.AdvOfferID }),
		col("Advertiser", fmtText, func(e E) any { return e.Advertiser }),
		col("App ID", fmtText, func(e E) any { return e.AppID }),
		col("GEO", fmtText, func(e E) any { return e.Geo }),
		col("Affiliate", fmtText, func(e E) any { return e.Affiliate }),
		col("Event", fmtText, func(e E) any { return e.Event }),
		col("Total event", fmtCount, func(e E) any { return e.Events }),
		col("Total Conversions", fmtCount, func(e E) any { return e.Conversions }),
		col("event rate", fmtRatio, func(e E) any { return e.EventRate }),
		col("总体 event rate", fmtRatio, func(e E) any { return e.OfferEventRate }),
	}
}

var tierLabels = map[domain.Tier]string{
	domain.Tier1: "今日第一优先级待办",
	domain.Tier2: "今日第二优先级待办",
}

func actionColumns() []column[domain.ActionItem] {
	type A = domain.ActionItem
	return []column[A]{
		col("Offer ID", fmtText, func(a A) any { return a.OfferID }),
		col("Advertiser", fmtText, func(a A) any { return a.Advertiser }),
		col("Adv Offer ID", fmtText, func(a A) any { return a.AdvOfferID }),
		col("App ID", fmtText, func(a A) any { return a.AppID }),
		col("GEO", fmtText, func(a A) any { return a.Geo }),
		col("Affiliate", fmtText, func(a A) any { return a.Affiliate }),
		col("Payin", fmtMoney, func(a A) any { return a.UnitPrice }),
		col("Total Caps", fmtCount, func(a A) any { return a.Cap }),
		col("30d_Total Clicks", fmtCount, func(a A) any { return a.Trailing.Clicks }),
		col("30d_Total Conversions", fmtCount, func(a A) any { return a.Trailing.Conversions }),
		col("30d_CR", fmtRatio, func(a A) any { return a.Trailing.CR() }),
		col("30d_Total Revenue", fmtMoney, func(a A) any { return a.Trailing.Revenue }),
		col("30d_Total Cost", fmtMoney, func(a A) any { return a.Trailing.Cost }),
		col("30d_Total Profit", fmtMoney, func(a A) any { return a.Trailing.Profit }),
		col("30d_STATUS", fmtText, func(a A) any { return string(a.Trailing.Status) }),
		col("30d_Affiliate_Summary", fmtText, func(a A) any { return a.TrailingAffiliates }),
		col("1d_Total Clicks", fmtCount, func(a A) any { return a.Latest.Clicks }),
		col("1d_Total Conversions", fmtCount, func(a A) any { return a.Latest.Conversions }),
		col("1d_Total Revenue", fmtMoney, func(a A) any { return a.Latest.Revenue }),
		col("1d_Total Cost", fmtMoney, func(a A) any { return a.Latest.Cost }),
		col("1d_Total Profit", fmtMoney, func(a A) any { return a.Latest.Profit }),
		col("1d_Affiliate_Summary", fmtText, func(a A) any { return a.LatestAffiliates }),
		col("1d_AffRevenue", fmtMoney, func(a A) any { return a.AffiliateRevenueLatest }),
		col("30d_AffRevenue", fmtMoney, func(a A) any { return a.AffiliateRevenueTrailing }),
		col("Remaining_Cap", fmtCount, func(a A) any { return a.RemainingCap }),
		col("排序", fmtCount, func(a A) any { return a.Rank }),
		col("待办事项标记", fmtText, func(a A) any { return a.Label }),
		col("待办事项排序", fmtText, func(a A) any { return tierLabels[a.Tier] }),
	}
}

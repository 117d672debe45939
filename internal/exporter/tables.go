package exporter

import (
	"p2pulse/internal/analytics"
	"p2pulse/pkg/contracts/domain"
)

// Metric table names as they appear in file names and the dashboard
// inclusion list.
const (
	TableAssetStats    = "asset_stats"
	TableFiatStats     = "fiat_stats"
	TablePriceStats    = "price_stats"
	TableFeesStats     = "fees_stats"
	TableMonthlyVolume = "monthly_volume"
	TableHourlyCounts  = "hourly_counts"
	TableWeekdayCounts = "weekday_counts"
	TableSalesSummary  = "sales_summary"
	TableStatusCounts  = "status_counts"
	TableSideCounts    = "side_counts"
	TableLiquidity     = "liquidity_index"
	TableWhaleTrades   = "whale_trades"
	TableOutliers      = "price_outliers"
	TableRiskSeries    = "rolling_pnl_sharpe"
	TableRiskSummary   = "risk_summary"
	TableEvent         = "event_comparison"
	TableCounterparty  = "counterparty_stats"
	TableSessions      = "session_stats"
)

// BuildTables converts a metric result into the ordered list of output
// tables. Tables whose metric was skipped or produced nothing are
// omitted.
func BuildTables(res *analytics.Result) []domain.Table {
	builders := []func(*analytics.Result) domain.Table{
		assetStatsTable,
		fiatStatsTable,
		priceStatsTable,
		feesStatsTable,
		monthlyVolumeTable,
		hourlyCountsTable,
		weekdayCountsTable,
		salesSummaryTable,
		statusCountsTable,
		sideCountsTable,
		liquidityTable,
		whaleTradesTable,
		outliersTable,
		riskSeriesTable,
		riskSummaryTable,
		eventTable,
		counterpartyTable,
		sessionsTable,
	}

	var out []domain.Table
	for _, build := range builders {
		if table := build(res); !table.Empty() {
			out = append(out, table)
		}
	}
	return out
}

func assetStatsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableAssetStats,
		Title:   "Volume by Asset and Side",
		Columns: []string{"asset", "side", "operations", "total_quantity", "total_amount", "total_fees"},
	}
	for _, s := range res.AssetStats {
		t.Rows = append(t.Rows, []string{
			s.Asset, string(s.Side), formatInt(s.Operations),
			formatFloat(s.TotalQty), formatFloat(s.TotalAmount), formatFloat(s.TotalFees),
		})
	}
	return t
}

func fiatStatsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableFiatStats,
		Title:   "Volume by Fiat and Side",
		Columns: []string{"fiat", "side", "operations", "total_amount", "mean_unit_price", "total_fees"},
	}
	for _, s := range res.FiatStats {
		t.Rows = append(t.Rows, []string{
			s.Fiat, string(s.Side), formatInt(s.Operations),
			formatFloat(s.TotalAmount), formatFloatPtr(s.MeanUnitPrice), formatFloat(s.TotalFees),
		})
	}
	return t
}

func priceStatsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:  TablePriceStats,
		Title: "Unit Price Distribution",
		Columns: []string{
			"asset", "fiat", "count", "mean", "median", "min", "max",
			"std_dev", "q1", "q3", "iqr", "p1", "p99", "vwap",
		},
	}
	for _, s := range res.PriceStats {
		t.Rows = append(t.Rows, []string{
			s.Asset, s.Fiat, formatInt(s.Count),
			formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.Min), formatFloat(s.Max),
			formatFloatPtr(s.StdDev), formatFloat(s.Q1), formatFloat(s.Q3), formatFloat(s.IQR),
			formatFloat(s.P1), formatFloat(s.P99), formatFloatPtr(s.VWAP),
		})
	}
	return t
}

func feesStatsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableFeesStats,
		Title:   "Fees by Asset",
		Columns: []string{"asset", "total_fees", "mean_fee", "positive_fee_count", "max_fee"},
	}
	for _, s := range res.FeesStats {
		t.Rows = append(t.Rows, []string{
			s.Asset, formatFloat(s.TotalFees), formatFloat(s.MeanFee),
			formatInt(s.PositiveFees), formatFloat(s.MaxFee),
		})
	}
	return t
}

func monthlyVolumeTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableMonthlyVolume,
		Title:   "Monthly Volume by Fiat",
		Columns: []string{"year_month", "fiat", "buy_volume", "sell_volume", "usd_volume"},
	}
	for _, s := range res.MonthlyVolume {
		t.Rows = append(t.Rows, []string{
			s.YearMonth, s.Fiat, formatFloat(s.BuyVolume), formatFloat(s.SellVolume),
			formatFloatPtr(s.USDVolume),
		})
	}
	return t
}

func hourlyCountsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableHourlyCounts,
		Title:   "Operations by Local Hour",
		Columns: []string{"hour", "operations"},
	}
	for _, s := range res.HourlyCounts {
		t.Rows = append(t.Rows, []string{formatInt(s.Hour), formatInt(s.Operations)})
	}
	return t
}

func weekdayCountsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableWeekdayCounts,
		Title:   "Operations by Local Weekday",
		Columns: []string{"weekday", "operations"},
	}
	for _, s := range res.WeekdayCounts {
		t.Rows = append(t.Rows, []string{s.Weekday.String(), formatInt(s.Operations)})
	}
	return t
}

func salesSummaryTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableSalesSummary,
		Title:   "Completed Sales Summary",
		Columns: []string{"asset", "fiat", "quantity_sold", "fiat_received", "avg_sell_price"},
	}
	for _, s := range res.SalesSummary {
		t.Rows = append(t.Rows, []string{
			s.Asset, s.Fiat, formatFloat(s.QuantitySold),
			formatFloat(s.FiatReceived), formatFloatPtr(s.AvgSellPrice),
		})
	}
	return t
}

func statusCountsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableStatusCounts,
		Title:   "Raw Status Counts",
		Columns: []string{"status", "operations"},
	}
	for _, s := range res.StatusCounts {
		t.Rows = append(t.Rows, []string{s.Value, formatInt(s.Count)})
	}
	return t
}

func sideCountsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableSideCounts,
		Title:   "Side Counts",
		Columns: []string{"side", "operations"},
	}
	for _, s := range res.SideCounts {
		t.Rows = append(t.Rows, []string{s.Value, formatInt(s.Count)})
	}
	return t
}

func liquidityTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableLiquidity,
		Title:   "Liquidity Index",
		Columns: []string{"mean_quantity", "median_quantity", "index"},
	}
	if res.Liquidity != nil {
		t.Rows = append(t.Rows, []string{
			formatFloat(res.Liquidity.MeanQty),
			formatFloat(res.Liquidity.MedianQty),
			formatRatio(res.Liquidity.Index),
		})
	}
	return t
}

func whaleTradesTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableWhaleTrades,
		Title:   "Whale Trades",
		Columns: []string{"order_id", "timestamp_local", "asset", "fiat", "total_amount", "threshold"},
	}
	for _, tx := range res.Rows {
		if !tx.WhaleTrade {
			continue
		}
		t.Rows = append(t.Rows, []string{
			tx.OrderID, formatTimePtr(tx.TimestampLocal), tx.AssetType, tx.FiatType,
			formatFloatPtr(tx.TotalAmount), formatFloatPtr(res.WhaleThreshold),
		})
	}
	return t
}

func outliersTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableOutliers,
		Title:   "Price Outliers",
		Columns: []string{"order_id", "timestamp_local", "asset", "fiat", "unit_price"},
	}
	for _, tx := range res.Rows {
		if !tx.PriceOutlier {
			continue
		}
		t.Rows = append(t.Rows, []string{
			tx.OrderID, formatTimePtr(tx.TimestampLocal), tx.AssetType, tx.FiatType,
			formatFloatPtr(tx.UnitPrice),
		})
	}
	return t
}

func riskSeriesTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableRiskSeries,
		Title:   "Rolling P&L",
		Columns: []string{"fiat", "date", "daily_mean_price", "daily_return", "rolling_pnl"},
	}
	for _, s := range res.Risk {
		for i, date := range s.Dates {
			row := []string{s.Fiat, date, formatFloat(s.DailyPrices[i]), "", ""}
			if i > 0 && i-1 < len(s.Returns) {
				row[3] = formatRatio(&s.Returns[i-1])
			}
			if i > 0 && i-1 < len(s.RollingPnL) {
				row[4] = formatFloat(s.RollingPnL[i-1])
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

func riskSummaryTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableRiskSummary,
		Title:   "Risk Summary",
		Columns: []string{"fiat", "days", "sharpe", "sortino", "max_drawdown"},
	}
	for _, s := range res.Risk {
		t.Rows = append(t.Rows, []string{
			s.Fiat, formatInt(s.Days),
			formatRatio(s.Sharpe), formatRatio(s.Sortino), formatRatio(s.MaxDrawdown),
		})
	}
	return t
}

func eventTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableEvent,
		Title:   "Event Window Comparison",
		Columns: []string{"window", "from", "to", "operations", "total_amount", "mean_amount"},
	}
	if res.Event == nil {
		return t
	}
	for _, w := range []struct {
		name   string
		window analytics.EventWindow
	}{
		{"before", res.Event.Before},
		{"after", res.Event.After},
	} {
		t.Rows = append(t.Rows, []string{
			w.name, formatTime(w.window.From), formatTime(w.window.To),
			formatInt(w.window.Operations),
			formatFloatPtr(w.window.Total), formatFloatPtr(w.window.MeanTotal),
		})
	}
	return t
}

func counterpartyTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableCounterparty,
		Title:   "Top Counterparties",
		Columns: []string{"counterparty", "operations", "total_volume", "mean_volume", "first_seen", "last_seen", "mean_tbt_hours"},
	}
	for _, s := range res.Counterparty {
		t.Rows = append(t.Rows, []string{
			s.Name, formatInt(s.Operations), formatFloat(s.TotalVolume),
			formatFloatPtr(s.MeanVolume), formatTimePtr(s.FirstSeen), formatTimePtr(s.LastSeen),
			formatFloatPtr(s.MeanTBTHours),
		})
	}
	return t
}

func sessionsTable(res *analytics.Result) domain.Table {
	t := domain.Table{
		Name:    TableSessions,
		Title:   "Trading Sessions",
		Columns: []string{"sessions", "mean_length_minutes", "mean_operations", "mean_volume", "peak_start_hour"},
	}
	if res.Sessions != nil {
		peak := ""
		if res.Sessions.PeakStartHour != nil {
			peak = formatInt(*res.Sessions.PeakStartHour)
		}
		t.Rows = append(t.Rows, []string{
			formatInt(res.Sessions.Sessions),
			formatFloat(res.Sessions.MeanLengthMinutes),
			formatFloat(res.Sessions.MeanOperations),
			formatFloat(res.Sessions.MeanVolume),
			peak,
		})
	}
	return t
}

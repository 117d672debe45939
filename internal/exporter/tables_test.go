package exporter

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p2pulse/internal/analytics"
	"p2pulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult() *analytics.Result {
	threshold := 5000.0
	vwap := 38.75
	ts := time.Date(2023, 6, 1, 14, 0, 0, 0, time.UTC)
	idx := 1.5

	hours := make([]analytics.HourlyCount, 24)
	for h := range hours {
		hours[h].Hour = h
	}
	hours[14].Operations = 2

	return &analytics.Result{
		Meta: domain.PartitionMeta{Period: "2023", Bucket: "completed", Rows: 2},
		AssetStats: []analytics.AssetStat{
			{Asset: "USDT", Side: domain.SideSell, Operations: 2, TotalQty: 200, TotalAmount: 7700, TotalFees: 3},
		},
		PriceStats: []analytics.PriceStat{
			{Asset: "USDT", Fiat: "UYU", Count: 2, Mean: 38.75, Median: 38.75, Min: 38.5, Max: 39, Q1: 38.625, Q3: 38.875, IQR: 0.25, P1: 38.505, P99: 38.995, VWAP: &vwap},
		},
		HourlyCounts:   hours,
		WhaleThreshold: &threshold,
		WhaleCount:     1,
		Liquidity:      &analytics.LiquidityIndex{MeanQty: 100, MedianQty: 100, Index: &idx},
		Rows: []domain.Transaction{
			{OrderID: "1001", WhaleTrade: true, AssetType: "USDT", FiatType: "UYU",
				TotalAmount: domain.Float(7000), TimestampLocal: &ts},
			{OrderID: "1002"},
		},
		Diagnostics: []analytics.Diagnostic{{Metric: "sales_summary", Reason: "no sell rows"}},
	}
}

func TestBuildTablesOmitsEmpty(t *testing.T) {
	tables := BuildTables(sampleResult())

	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
	}
	assert.Equal(t, []string{
		TableAssetStats, TablePriceStats, TableHourlyCounts,
		TableLiquidity, TableWhaleTrades,
	}, names)
}

func TestBuildTablesFormatting(t *testing.T) {
	tables := BuildTables(sampleResult())

	byName := make(map[string]domain.Table)
	for _, table := range tables {
		byName[table.Name] = table
	}

	asset := byName[TableAssetStats]
	require.Len(t, asset.Rows, 1)
	assert.Equal(t, []string{"USDT", "SELL", "2", "200.00", "7700.00", "3.00"}, asset.Rows[0])

	whales := byName[TableWhaleTrades]
	require.Len(t, whales.Rows, 1)
	assert.Equal(t, "1001", whales.Rows[0][0])
	assert.Equal(t, "2023-06-01 14:00:00", whales.Rows[0][1])
	assert.Equal(t, "5000.00", whales.Rows[0][5])

	hourly := byName[TableHourlyCounts]
	assert.Len(t, hourly.Rows, 24)
}

func TestMonthlyVolumeTableUSDColumn(t *testing.T) {
	usd := 20.0
	res := &analytics.Result{
		MonthlyVolume: []analytics.MonthlyVolumeRow{
			{YearMonth: "2023-06", Fiat: "UYU", SellVolume: 780, USDVolume: &usd},
			{YearMonth: "2023-06", Fiat: "EUR", SellVolume: 9},
		},
	}

	table := monthlyVolumeTable(res)
	assert.Equal(t, []string{"year_month", "fiat", "buy_volume", "sell_volume", "usd_volume"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"2023-06", "UYU", "0.00", "780.00", "20.00"}, table.Rows[0])
	assert.Equal(t, "", table.Rows[1][4])
}

func TestWeekdayCountsTable(t *testing.T) {
	res := &analytics.Result{
		WeekdayCounts: []analytics.WeekdayCount{
			{Weekday: time.Monday, Operations: 3},
			{Weekday: time.Sunday},
		},
	}

	table := weekdayCountsTable(res)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Monday", "3"}, table.Rows[0])
	assert.Equal(t, []string{"Sunday", "0"}, table.Rows[1])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "13.40", formatFloat(13.4))
	assert.Equal(t, "", formatFloatPtr(nil))
	assert.Equal(t, "0.2500", formatRatio(domain.Float(0.25)))
	assert.Equal(t, "", formatRatio(nil))
	assert.Equal(t, "7", formatInt(7))
	assert.Equal(t, "", formatTimePtr(nil))
}

func TestRiskTables(t *testing.T) {
	sharpe := 1.2
	res := &analytics.Result{
		Meta: domain.PartitionMeta{Period: "total", Bucket: "all"},
		Risk: []analytics.RiskSeries{{
			Fiat:        "UYU",
			Days:        3,
			Dates:       []string{"2023-06-01", "2023-06-02", "2023-06-03"},
			DailyPrices: []float64{100, 102, 101},
			Returns:     []float64{0.02, -0.0098},
			RollingPnL:  []float64{1020, 1009.8},
			Sharpe:      &sharpe,
		}},
	}

	tables := BuildTables(res)
	require.Len(t, tables, 2)

	series := tables[0]
	assert.Equal(t, TableRiskSeries, series.Name)
	require.Len(t, series.Rows, 3)
	assert.Equal(t, []string{"UYU", "2023-06-01", "100.00", "", ""}, series.Rows[0])
	assert.Equal(t, "0.0200", series.Rows[1][3])
	assert.Equal(t, "1020.00", series.Rows[1][4])

	summary := tables[1]
	assert.Equal(t, TableRiskSummary, summary.Name)
	assert.Equal(t, "1.2000", summary.Rows[0][2])
	assert.Equal(t, "", summary.Rows[0][3])
}

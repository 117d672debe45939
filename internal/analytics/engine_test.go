package analytics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p2pulse/internal/config"
	"p2pulse/internal/outliers"
	"p2pulse/internal/partition"
	"p2pulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Risk.Enabled = true
	return New(cfg, outliers.NewZScore(), testLogger())
}

// tx builds a completed trade with full time features.
func tx(ts time.Time, side domain.OrderSide, asset, fiat string, price, qty, total float64) domain.Transaction {
	hour := ts.Hour()
	weekday := ts.Weekday()
	year := ts.Year()
	return domain.Transaction{
		Side:           side,
		AssetType:      asset,
		FiatType:       fiat,
		UnitPrice:      domain.Float(price),
		Quantity:       domain.Float(qty),
		TotalAmount:    domain.Float(total),
		RawStatus:      "Completed",
		StatusClass:    domain.StatusCompleted,
		TimestampUTC:   &ts,
		TimestampLocal: &ts,
		HourLocal:      &hour,
		WeekdayLocal:   &weekday,
		Year:           &year,
		YearMonth:      ts.Format("2006-01"),
	}
}

func at(day, hour int) time.Time {
	return time.Date(2023, 6, day, hour, 0, 0, 0, time.UTC)
}

func compute(t *testing.T, e *Engine, rows []domain.Transaction, opts Options) *Result {
	t.Helper()
	res, err := e.Compute(context.Background(), partition.Partition{
		Period: "total", Bucket: partition.BucketAll, Rows: rows,
	}, opts)
	require.NoError(t, err)
	return res
}

func TestAssetStatsSortedByVolume(t *testing.T) {
	rows := []domain.Transaction{
		tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38.5, 100, 3850),
		tx(at(1, 11), domain.SideSell, "BTC", "UYU", 1000000, 0.01, 10000),
		tx(at(1, 12), domain.SideBuy, "USDT", "UYU", 38.0, 50, 1900),
	}
	res := compute(t, testEngine(t), rows, Options{})

	require.Len(t, res.AssetStats, 3)
	assert.Equal(t, "BTC", res.AssetStats[0].Asset)
	assert.Equal(t, "USDT", res.AssetStats[1].Asset)
	assert.Equal(t, domain.SideSell, res.AssetStats[1].Side)
	assert.InDelta(t, 3850, res.AssetStats[1].TotalAmount, 1e-9)
	assert.InDelta(t, 100, res.AssetStats[1].TotalQty, 1e-9)
}

func TestFiatStatsExcludesNullPrices(t *testing.T) {
	rows := []domain.Transaction{
		tx(at(1, 10), domain.SideBuy, "USDT", "USD", 1.0, 100, 100),
		{Side: domain.SideBuy, FiatType: "USD", AssetType: "USDT", TotalAmount: domain.Float(50)},
	}
	res := compute(t, testEngine(t), rows, Options{})

	require.Len(t, res.FiatStats, 1)
	stat := res.FiatStats[0]
	assert.Equal(t, 2, stat.Operations)
	assert.InDelta(t, 150, stat.TotalAmount, 1e-9)
	require.NotNil(t, stat.MeanUnitPrice)
	assert.InDelta(t, 1.0, *stat.MeanUnitPrice, 1e-9)
}

func TestPriceStatsVWAPGuard(t *testing.T) {
	rows := []domain.Transaction{
		tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38.0, 100, 3800),
		tx(at(1, 11), domain.SideSell, "USDT", "UYU", 40.0, 100, 4000),
		{AssetType: "BTC", FiatType: "UYU", UnitPrice: domain.Float(100), Quantity: domain.Float(0)},
	}
	res := compute(t, testEngine(t), rows, Options{})

	require.Len(t, res.PriceStats, 2)
	btc, usdt := res.PriceStats[0], res.PriceStats[1]

	assert.Equal(t, "BTC", btc.Asset)
	assert.Nil(t, btc.VWAP, "zero quantity must not produce a VWAP")
	assert.Nil(t, btc.StdDev)

	require.NotNil(t, usdt.VWAP)
	assert.InDelta(t, 39.0, *usdt.VWAP, 1e-9)
	assert.InDelta(t, 39.0, usdt.Mean, 1e-9)
	assert.InDelta(t, 38.0, usdt.Min, 1e-9)
	assert.InDelta(t, 40.0, usdt.Max, 1e-9)
	assert.InDelta(t, usdt.Q3-usdt.Q1, usdt.IQR, 1e-9)
}

func TestFeesStats(t *testing.T) {
	a := tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38, 10, 380)
	a.TotalFee = 2.5
	b := tx(at(1, 11), domain.SideSell, "USDT", "UYU", 38, 10, 380)
	// b keeps the zero fee from a null maker and taker fee.
	res := compute(t, testEngine(t), []domain.Transaction{a, b}, Options{})

	require.Len(t, res.FeesStats, 1)
	fee := res.FeesStats[0]
	assert.InDelta(t, 2.5, fee.TotalFees, 1e-9)
	assert.InDelta(t, 1.25, fee.MeanFee, 1e-9)
	assert.Equal(t, 1, fee.PositiveFees)
	assert.InDelta(t, 2.5, fee.MaxFee, 1e-9)
}

func TestMonthlyVolumePivotZeroFills(t *testing.T) {
	rows := []domain.Transaction{
		tx(time.Date(2023, 5, 2, 10, 0, 0, 0, time.UTC), domain.SideBuy, "USDT", "UYU", 38, 10, 380),
		tx(time.Date(2023, 6, 2, 10, 0, 0, 0, time.UTC), domain.SideSell, "USDT", "UYU", 38, 10, 380),
		tx(time.Date(2023, 6, 3, 10, 0, 0, 0, time.UTC), domain.SideSell, "USDT", "USD", 1, 50, 50),
	}
	res := compute(t, testEngine(t), rows, Options{})

	require.Len(t, res.MonthlyVolume, 3)
	may := res.MonthlyVolume[0]
	assert.Equal(t, "2023-05", may.YearMonth)
	assert.InDelta(t, 380, may.BuyVolume, 1e-9)
	assert.Zero(t, may.SellVolume)

	june := res.MonthlyVolume[2]
	assert.Equal(t, "2023-06", june.YearMonth)
	assert.Equal(t, "UYU", june.Fiat)
	assert.Zero(t, june.BuyVolume)
	assert.InDelta(t, 380, june.SellVolume, 1e-9)
}

func TestMonthlyVolumeUSDEquivalent(t *testing.T) {
	uyu1 := tx(time.Date(2023, 6, 2, 10, 0, 0, 0, time.UTC), domain.SideSell, "USDT", "UYU", 38, 10, 380)
	uyu1.USDEquivalent = domain.Float(10)
	uyu2 := tx(time.Date(2023, 6, 3, 10, 0, 0, 0, time.UTC), domain.SideSell, "USDT", "UYU", 40, 10, 400)
	uyu2.USDEquivalent = domain.Float(10)
	eur := tx(time.Date(2023, 6, 4, 10, 0, 0, 0, time.UTC), domain.SideSell, "USDT", "EUR", 0.9, 10, 9)
	// no USD conversion is defined for EUR

	res := compute(t, testEngine(t), []domain.Transaction{uyu1, uyu2, eur}, Options{})

	require.Len(t, res.MonthlyVolume, 2)
	assert.Equal(t, "EUR", res.MonthlyVolume[0].Fiat)
	assert.Nil(t, res.MonthlyVolume[0].USDVolume)

	uyu := res.MonthlyVolume[1]
	assert.Equal(t, "UYU", uyu.Fiat)
	require.NotNil(t, uyu.USDVolume)
	assert.InDelta(t, 20, *uyu.USDVolume, 1e-9)
}

func TestHourlyCountsAlwaysComplete(t *testing.T) {
	rows := []domain.Transaction{
		tx(at(1, 14), domain.SideBuy, "USDT", "UYU", 38, 10, 380),
		tx(at(2, 14), domain.SideBuy, "USDT", "UYU", 38, 10, 380),
		{}, // no timestamp
	}
	res := compute(t, testEngine(t), rows, Options{})

	require.Len(t, res.HourlyCounts, 24)
	total := 0
	for h, hc := range res.HourlyCounts {
		assert.Equal(t, h, hc.Hour)
		total += hc.Operations
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, res.HourlyCounts[14].Operations)
}

func TestWeekdayCountsAlwaysComplete(t *testing.T) {
	rows := []domain.Transaction{
		// 2023-06-01 is a Thursday, 2023-06-03 a Saturday.
		tx(at(1, 10), domain.SideBuy, "USDT", "UYU", 38, 10, 380),
		tx(at(1, 14), domain.SideBuy, "USDT", "UYU", 38, 10, 380),
		tx(at(3, 10), domain.SideSell, "USDT", "UYU", 38, 10, 380),
		{}, // no timestamp
	}
	res := compute(t, testEngine(t), rows, Options{})

	require.Len(t, res.WeekdayCounts, 7)
	assert.Equal(t, time.Monday, res.WeekdayCounts[0].Weekday)
	assert.Equal(t, time.Sunday, res.WeekdayCounts[6].Weekday)

	byDay := make(map[time.Weekday]int)
	total := 0
	for _, wc := range res.WeekdayCounts {
		byDay[wc.Weekday] = wc.Operations
		total += wc.Operations
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, byDay[time.Thursday])
	assert.Equal(t, 1, byDay[time.Saturday])
}

func TestSalesSummaryCompletedSellOnly(t *testing.T) {
	sell := tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38.5, 100, 3850)
	buy := tx(at(1, 11), domain.SideBuy, "USDT", "UYU", 38.5, 100, 3850)
	cancelled := tx(at(1, 12), domain.SideSell, "USDT", "UYU", 38.5, 100, 3850)
	cancelled.StatusClass = domain.StatusCancelled

	res := compute(t, testEngine(t), []domain.Transaction{sell, buy, cancelled}, Options{})

	require.Len(t, res.SalesSummary, 1)
	row := res.SalesSummary[0]
	assert.InDelta(t, 100, row.QuantitySold, 1e-9)
	assert.InDelta(t, 3850, row.FiatReceived, 1e-9)
	require.NotNil(t, row.AvgSellPrice)
	assert.InDelta(t, 38.5, *row.AvgSellPrice, 1e-9)
}

func TestSalesSummaryDivideGuard(t *testing.T) {
	sell := tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38.5, 0, 0)
	res := compute(t, testEngine(t), []domain.Transaction{sell}, Options{})

	require.Len(t, res.SalesSummary, 1)
	assert.Nil(t, res.SalesSummary[0].AvgSellPrice)
}

func TestWhaleFlagRelativeToPartition(t *testing.T) {
	rows := make([]domain.Transaction, 0, 21)
	for i := 0; i < 20; i++ {
		rows = append(rows, tx(at(1+i%5, 10), domain.SideSell, "USDT", "UYU", 38, 10, 380))
	}
	rows = append(rows, tx(at(6, 10), domain.SideSell, "USDT", "UYU", 38, 5000, 190000))

	res := compute(t, testEngine(t), rows, Options{})

	require.NotNil(t, res.WhaleThreshold)
	assert.Equal(t, 1, res.WhaleCount)
	assert.True(t, res.Rows[20].WhaleTrade)
	assert.False(t, res.Rows[0].WhaleTrade)
}

func TestStatusAndSideCounts(t *testing.T) {
	a := tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38, 10, 380)
	b := tx(at(1, 11), domain.SideSell, "USDT", "UYU", 38, 10, 380)
	c := tx(at(1, 12), domain.SideBuy, "USDT", "UYU", 38, 10, 380)
	c.RawStatus = "Cancelled"

	res := compute(t, testEngine(t), []domain.Transaction{a, b, c}, Options{})

	require.Len(t, res.StatusCounts, 2)
	assert.Equal(t, ValueCount{Value: "Completed", Count: 2}, res.StatusCounts[0])
	require.Len(t, res.SideCounts, 2)
	assert.Equal(t, ValueCount{Value: "SELL", Count: 2}, res.SideCounts[0])
}

func TestLiquidityIndex(t *testing.T) {
	rows := []domain.Transaction{
		tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38, 10, 380),
		tx(at(1, 11), domain.SideSell, "USDT", "UYU", 38, 20, 760),
		tx(at(1, 12), domain.SideSell, "USDT", "UYU", 38, 90, 3420),
	}
	res := compute(t, testEngine(t), rows, Options{})

	require.NotNil(t, res.Liquidity)
	assert.InDelta(t, 40, res.Liquidity.MeanQty, 1e-9)
	assert.InDelta(t, 20, res.Liquidity.MedianQty, 1e-9)
	require.NotNil(t, res.Liquidity.Index)
	assert.InDelta(t, 2, *res.Liquidity.Index, 1e-9)
}

func TestOutlierFlagging(t *testing.T) {
	rows := make([]domain.Transaction, 0, 16)
	for i := 0; i < 15; i++ {
		rows = append(rows, tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38+float64(i%3), 10, 380))
	}
	rows = append(rows, tx(at(1, 10), domain.SideSell, "USDT", "UYU", 50000, 10, 380))

	res := compute(t, testEngine(t), rows, Options{DetectOutliers: true})

	assert.Equal(t, 1, res.OutlierCount)
	assert.True(t, res.Rows[15].PriceOutlier)
	assert.False(t, res.Rows[0].PriceOutlier)
}

func TestEventComparisonEmptyWindow(t *testing.T) {
	rows := []domain.Transaction{
		tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38, 10, 380),
		tx(at(1, 12), domain.SideSell, "USDT", "UYU", 38, 10, 400),
	}
	event := at(2, 0)
	res := compute(t, testEngine(t), rows, Options{EventTime: &event})

	require.NotNil(t, res.Event)
	before, after := res.Event.Before, res.Event.After

	assert.Equal(t, 2, before.Operations)
	require.NotNil(t, before.Total)
	assert.InDelta(t, 780, *before.Total, 1e-9)
	require.NotNil(t, before.MeanTotal)
	assert.InDelta(t, 390, *before.MeanTotal, 1e-9)

	assert.Zero(t, after.Operations)
	assert.Nil(t, after.Total)
	assert.Nil(t, after.MeanTotal)
}

func TestCounterpartyStats(t *testing.T) {
	a := tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38, 10, 380)
	a.Counterparty = "alice"
	b := tx(at(1, 14), domain.SideSell, "USDT", "UYU", 38, 10, 420)
	b.Counterparty = "alice"
	c := tx(at(2, 10), domain.SideSell, "USDT", "UYU", 38, 10, 100)
	c.Counterparty = "bob"

	res := compute(t, testEngine(t), []domain.Transaction{a, b, c}, Options{})

	require.Len(t, res.Counterparty, 2)
	alice := res.Counterparty[0]
	assert.Equal(t, "alice", alice.Name)
	assert.Equal(t, 2, alice.Operations)
	assert.InDelta(t, 800, alice.TotalVolume, 1e-9)
	require.NotNil(t, alice.MeanTBTHours)
	assert.InDelta(t, 4, *alice.MeanTBTHours, 1e-9)
	require.NotNil(t, alice.FirstSeen)
	assert.Equal(t, at(1, 10), *alice.FirstSeen)

	bob := res.Counterparty[1]
	assert.Nil(t, bob.MeanTBTHours)
}

func TestCounterpartyTopN(t *testing.T) {
	cfg := config.Default()
	cfg.TopCounterparties = 1
	e := New(cfg, nil, testLogger())

	a := tx(at(1, 10), domain.SideSell, "USDT", "UYU", 38, 10, 1000)
	a.Counterparty = "big"
	b := tx(at(1, 11), domain.SideSell, "USDT", "UYU", 38, 10, 10)
	b.Counterparty = "small"

	res := compute(t, e, []domain.Transaction{a, b}, Options{})
	require.Len(t, res.Counterparty, 1)
	assert.Equal(t, "big", res.Counterparty[0].Name)
}

func TestSessionStats(t *testing.T) {
	rows := []domain.Transaction{
		tx(time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC), domain.SideSell, "USDT", "UYU", 38, 10, 100),
		tx(time.Date(2023, 6, 1, 10, 10, 0, 0, time.UTC), domain.SideSell, "USDT", "UYU", 38, 10, 100),
		// 31 minute gap opens a second session.
		tx(time.Date(2023, 6, 1, 10, 41, 0, 0, time.UTC), domain.SideSell, "USDT", "UYU", 38, 10, 200),
	}
	res := compute(t, testEngine(t), rows, Options{})

	require.NotNil(t, res.Sessions)
	assert.Equal(t, 2, res.Sessions.Sessions)
	assert.InDelta(t, 5, res.Sessions.MeanLengthMinutes, 1e-9)
	assert.InDelta(t, 1.5, res.Sessions.MeanOperations, 1e-9)
	assert.InDelta(t, 200, res.Sessions.MeanVolume, 1e-9)
	require.NotNil(t, res.Sessions.PeakStartHour)
	assert.Equal(t, 10, *res.Sessions.PeakStartHour)
}

func TestComputeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testEngine(t).Compute(ctx, partition.Partition{}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeEmptyPartitionRecordsDiagnostics(t *testing.T) {
	res := compute(t, testEngine(t), nil, Options{})

	assert.Empty(t, res.AssetStats)
	assert.Nil(t, res.Liquidity)
	require.NotEmpty(t, res.Diagnostics)

	d := res.Diagnostics[0]
	assert.NotEmpty(t, d.Metric)
	assert.Contains(t, d.Error(), d.Metric)
	assert.Contains(t, d.Error(), d.Reason)
}

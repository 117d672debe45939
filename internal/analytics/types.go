package analytics

import (
	"time"

	apperrors "p2pulse/internal/errors"
	"p2pulse/pkg/contracts/domain"
)

// Result holds every metric table computed for one partition. Slices are
// nil when the metric could not be computed; the corresponding reason is
// recorded in Diagnostics.
type Result struct {
	Meta domain.PartitionMeta

	AssetStats    []AssetStat
	FiatStats     []FiatStat
	PriceStats    []PriceStat
	FeesStats     []FeeStat
	MonthlyVolume []MonthlyVolumeRow
	HourlyCounts  []HourlyCount
	WeekdayCounts []WeekdayCount
	SalesSummary  []SalesSummaryRow
	StatusCounts  []ValueCount
	SideCounts    []ValueCount
	Liquidity     *LiquidityIndex

	WhaleThreshold *float64
	WhaleCount     int

	OutlierCount int

	Risk         []RiskSeries
	Event        *EventComparison
	Counterparty []CounterpartyStat
	Sessions     *SessionSummary

	// Rows are the partition's records after flagging, used by the
	// exporters that need per-record detail.
	Rows []domain.Transaction

	Diagnostics []Diagnostic
}

// Diagnostic records a metric that was skipped and why.
type Diagnostic = apperrors.MetricError

// AssetStat aggregates one (asset, side) group.
type AssetStat struct {
	Asset       string
	Side        domain.OrderSide
	Operations  int
	TotalQty    float64
	TotalAmount float64
	TotalFees   float64
}

// FiatStat aggregates one (fiat, side) group.
type FiatStat struct {
	Fiat          string
	Side          domain.OrderSide
	Operations    int
	TotalAmount   float64
	MeanUnitPrice *float64
	TotalFees     float64
}

// PriceStat describes the unit price distribution of one (asset, fiat)
// pair. VWAP is null when the summed quantity is zero.
type PriceStat struct {
	Asset  string
	Fiat   string
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	StdDev *float64
	Q1     float64
	Q3     float64
	IQR    float64
	P1     float64
	P99    float64
	VWAP   *float64
}

// FeeStat aggregates fees per asset.
type FeeStat struct {
	Asset        string
	TotalFees    float64
	MeanFee      float64
	PositiveFees int
	MaxFee       float64
}

// MonthlyVolumeRow is one (month, fiat) cell with the buy and sell
// volume pivoted to columns. A side with no trades is zero. USDVolume
// is the cell's volume converted to USD terms, null when no row in the
// cell had a USD equivalent.
type MonthlyVolumeRow struct {
	YearMonth  string
	Fiat       string
	BuyVolume  float64
	SellVolume float64
	USDVolume  *float64
}

// HourlyCount is the operation count for one local hour. All 24 hours
// are always present.
type HourlyCount struct {
	Hour       int
	Operations int
}

// WeekdayCount is the operation count for one local weekday. All seven
// days are always present, Monday first.
type WeekdayCount struct {
	Weekday    time.Weekday
	Operations int
}

// SalesSummaryRow summarizes completed sell-side trades for one
// (asset, fiat) pair. AvgSellPrice is null when no quantity was sold.
type SalesSummaryRow struct {
	Asset        string
	Fiat         string
	QuantitySold float64
	FiatReceived float64
	AvgSellPrice *float64
}

// ValueCount is a simple value frequency row.
type ValueCount struct {
	Value string
	Count int
}

// LiquidityIndex relates mean to median trade quantity. Index is null
// when the median is zero.
type LiquidityIndex struct {
	MeanQty   float64
	MedianQty float64
	Index     *float64
}

// RiskSeries holds the rolling P&L and risk ratios for one fiat
// currency, built from its daily mean price series.
type RiskSeries struct {
	Fiat        string
	Days        int
	Dates       []string
	DailyPrices []float64
	Returns     []float64
	RollingPnL  []float64
	Sharpe      *float64
	Sortino     *float64
	MaxDrawdown *float64
}

// EventWindow aggregates one side of an event comparison. Null fields
// mean the window had no trades.
type EventWindow struct {
	From       time.Time
	To         time.Time
	Operations int
	Total      *float64
	MeanTotal  *float64
}

// EventComparison contrasts the 24 hours before an event with the 24
// hours after it.
type EventComparison struct {
	EventTime time.Time
	Before    EventWindow
	After     EventWindow
}

// CounterpartyStat aggregates one counterparty. MeanTBTHours is the
// mean time between consecutive trades, null with fewer than two
// timestamped trades.
type CounterpartyStat struct {
	Name         string
	Operations   int
	TotalVolume  float64
	MeanVolume   *float64
	FirstSeen    *time.Time
	LastSeen     *time.Time
	MeanTBTHours *float64
}

// SessionSummary describes gap-delimited trading sessions.
type SessionSummary struct {
	Sessions          int
	MeanLengthMinutes float64
	MeanOperations    float64
	MeanVolume        float64
	PeakStartHour     *int
}

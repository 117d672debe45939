package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"p2pulse/internal/config"
	apperrors "p2pulse/internal/errors"
	"p2pulse/internal/outliers"
	"p2pulse/internal/partition"
	"p2pulse/pkg/contracts/domain"
)

// Engine computes the metric tables for one partition at a time. It is
// safe for concurrent use; each Compute call works only on the
// partition it is given.
type Engine struct {
	cfg      *config.Config
	detector outliers.Detector
	logger   *slog.Logger
}

// Options selects the optional metrics for a run.
type Options struct {
	DetectOutliers bool
	EventTime      *time.Time
}

// New builds an engine. The detector may be nil when outlier detection
// is never requested.
func New(cfg *config.Config, detector outliers.Detector, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, detector: detector, logger: logger}
}

// Compute runs every metric over the partition. Metrics fail
// independently: an empty or broken input skips that metric, records a
// diagnostic, and the rest continue.
func (e *Engine) Compute(ctx context.Context, part partition.Partition, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Meta: part.Meta(), Rows: part.Rows}
	rows := part.Rows

	e.flagWhales(res, rows)
	if opts.DetectOutliers {
		e.flagOutliers(res, rows)
	}

	res.AssetStats = e.assetStats(rows)
	res.FiatStats = e.fiatStats(rows)
	res.PriceStats = e.priceStats(res, rows)
	res.FeesStats = e.feesStats(rows)
	res.MonthlyVolume = e.monthlyVolume(res, rows)
	res.HourlyCounts = e.hourlyCounts(rows)
	res.WeekdayCounts = e.weekdayCounts(rows)
	res.SalesSummary = e.salesSummary(rows)
	res.StatusCounts = valueCounts(rows, func(tx domain.Transaction) string { return tx.RawStatus })
	res.SideCounts = valueCounts(rows, func(tx domain.Transaction) string { return string(tx.Side) })
	res.Liquidity = e.liquidityIndex(res, rows)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.cfg.Risk.Enabled {
		res.Risk = e.riskSeries(res, rows)
	}
	if opts.EventTime != nil {
		res.Event = e.eventComparison(rows, *opts.EventTime)
	}
	res.Counterparty = e.counterpartyStats(res, rows)
	res.Sessions = e.sessionStats(res, rows)

	e.logger.Info("partition metrics computed",
		slog.String("period", part.Period),
		slog.String("bucket", part.Bucket),
		slog.Int("rows", len(rows)),
		slog.Int("diagnostics", len(res.Diagnostics)))
	return res, nil
}

func (r *Result) diag(metric, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, *apperrors.NewMetricError(metric, fmt.Sprintf(format, args...)))
}

// flagWhales marks trades whose total amount exceeds mean + sigma*stddev
// of this partition's own totals.
func (e *Engine) flagWhales(res *Result, rows []domain.Transaction) {
	totals := collect(rows, func(tx domain.Transaction) *float64 { return tx.TotalAmount })
	mean, okMean := Mean(totals)
	std, okStd := SampleStdDev(totals)
	if !okMean || !okStd {
		res.diag("whale_trade_flag", "need at least 2 non-null total amounts, have %d", len(totals))
		return
	}

	threshold := mean + e.cfg.WhaleSigma*std
	res.WhaleThreshold = &threshold
	for i := range rows {
		if v, ok := domain.FloatValue(rows[i].TotalAmount); ok && v > threshold {
			rows[i].WhaleTrade = true
			res.WhaleCount++
		}
	}
}

// flagOutliers runs the configured detector over the non-null unit
// prices and marks the flagged rows.
func (e *Engine) flagOutliers(res *Result, rows []domain.Transaction) {
	if e.detector == nil {
		res.diag("price_outliers", "no detector configured")
		return
	}

	var values []float64
	var positions []int
	for i := range rows {
		if v, ok := domain.FloatValue(rows[i].UnitPrice); ok {
			values = append(values, v)
			positions = append(positions, i)
		}
	}

	flags, err := e.detector.Detect(values)
	if err != nil {
		res.diag("price_outliers", "%s: %v", e.detector.Name(), err)
		return
	}
	for j, flagged := range flags {
		if flagged {
			rows[positions[j]].PriceOutlier = true
			res.OutlierCount++
		}
	}
}

func (e *Engine) assetStats(rows []domain.Transaction) []AssetStat {
	type key struct {
		asset string
		side  domain.OrderSide
	}
	groups := make(map[key]*AssetStat)
	for _, tx := range rows {
		k := key{tx.AssetType, tx.Side}
		g, ok := groups[k]
		if !ok {
			g = &AssetStat{Asset: tx.AssetType, Side: tx.Side}
			groups[k] = g
		}
		g.Operations++
		if v, ok := domain.FloatValue(tx.Quantity); ok {
			g.TotalQty += v
		}
		if v, ok := domain.FloatValue(tx.TotalAmount); ok {
			g.TotalAmount += v
		}
		g.TotalFees += tx.TotalFee
	}

	out := make([]AssetStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAmount != out[j].TotalAmount {
			return out[i].TotalAmount > out[j].TotalAmount
		}
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		return out[i].Side < out[j].Side
	})
	return out
}

func (e *Engine) fiatStats(rows []domain.Transaction) []FiatStat {
	type key struct {
		fiat string
		side domain.OrderSide
	}
	groups := make(map[key]*FiatStat)
	prices := make(map[key][]float64)
	for _, tx := range rows {
		k := key{tx.FiatType, tx.Side}
		g, ok := groups[k]
		if !ok {
			g = &FiatStat{Fiat: tx.FiatType, Side: tx.Side}
			groups[k] = g
		}
		g.Operations++
		if v, ok := domain.FloatValue(tx.TotalAmount); ok {
			g.TotalAmount += v
		}
		if v, ok := domain.FloatValue(tx.UnitPrice); ok {
			prices[k] = append(prices[k], v)
		}
		g.TotalFees += tx.TotalFee
	}

	out := make([]FiatStat, 0, len(groups))
	for k, g := range groups {
		if mean, ok := Mean(prices[k]); ok {
			g.MeanUnitPrice = &mean
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fiat != out[j].Fiat {
			return out[i].Fiat < out[j].Fiat
		}
		return out[i].Side < out[j].Side
	})
	return out
}

func (e *Engine) priceStats(res *Result, rows []domain.Transaction) []PriceStat {
	type key struct{ asset, fiat string }
	prices := make(map[key][]float64)
	sumQty := make(map[key]float64)
	sumTotal := make(map[key]float64)
	for _, tx := range rows {
		k := key{tx.AssetType, tx.FiatType}
		if v, ok := domain.FloatValue(tx.UnitPrice); ok {
			prices[k] = append(prices[k], v)
		}
		if v, ok := domain.FloatValue(tx.Quantity); ok {
			sumQty[k] += v
		}
		if v, ok := domain.FloatValue(tx.TotalAmount); ok {
			sumTotal[k] += v
		}
	}
	if len(prices) == 0 {
		res.diag("price_stats", "no usable unit prices")
		return nil
	}

	out := make([]PriceStat, 0, len(prices))
	for k, vals := range prices {
		mean, _ := Mean(vals)
		median, _ := Median(vals)
		min, max, _ := MinMax(vals)
		q1, _ := Quantile(vals, 0.25)
		q3, _ := Quantile(vals, 0.75)
		p1, _ := Quantile(vals, 0.01)
		p99, _ := Quantile(vals, 0.99)

		stat := PriceStat{
			Asset: k.asset, Fiat: k.fiat, Count: len(vals),
			Mean: mean, Median: median, Min: min, Max: max,
			Q1: q1, Q3: q3, IQR: q3 - q1, P1: p1, P99: p99,
		}
		if std, ok := SampleStdDev(vals); ok {
			stat.StdDev = &std
		}
		if qty := sumQty[k]; qty != 0 {
			vwap := sumTotal[k] / qty
			stat.VWAP = &vwap
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		return out[i].Fiat < out[j].Fiat
	})
	return out
}

func (e *Engine) feesStats(rows []domain.Transaction) []FeeStat {
	groups := make(map[string]*FeeStat)
	counts := make(map[string]int)
	for _, tx := range rows {
		g, ok := groups[tx.AssetType]
		if !ok {
			g = &FeeStat{Asset: tx.AssetType}
			groups[tx.AssetType] = g
		}
		counts[tx.AssetType]++
		g.TotalFees += tx.TotalFee
		if tx.TotalFee > 0 {
			g.PositiveFees++
		}
		if tx.TotalFee > g.MaxFee {
			g.MaxFee = tx.TotalFee
		}
	}

	out := make([]FeeStat, 0, len(groups))
	for asset, g := range groups {
		g.MeanFee = g.TotalFees / float64(counts[asset])
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func (e *Engine) monthlyVolume(res *Result, rows []domain.Transaction) []MonthlyVolumeRow {
	type key struct{ month, fiat string }
	groups := make(map[key]*MonthlyVolumeRow)
	usable := 0
	for _, tx := range rows {
		if tx.YearMonth == "" {
			continue
		}
		usable++
		k := key{tx.YearMonth, tx.FiatType}
		g, ok := groups[k]
		if !ok {
			g = &MonthlyVolumeRow{YearMonth: tx.YearMonth, Fiat: tx.FiatType}
			groups[k] = g
		}
		if usd, ok := domain.FloatValue(tx.USDEquivalent); ok {
			if g.USDVolume == nil {
				g.USDVolume = new(float64)
			}
			*g.USDVolume += usd
		}
		v, ok := domain.FloatValue(tx.TotalAmount)
		if !ok {
			continue
		}
		switch tx.Side {
		case domain.SideBuy:
			g.BuyVolume += v
		case domain.SideSell:
			g.SellVolume += v
		}
	}
	if usable == 0 {
		res.diag("monthly_volume", "no rows with a valid timestamp")
		return nil
	}

	out := make([]MonthlyVolumeRow, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].YearMonth != out[j].YearMonth {
			return out[i].YearMonth < out[j].YearMonth
		}
		return out[i].Fiat < out[j].Fiat
	})
	return out
}

// hourlyCounts always emits all 24 hours, zero-filled.
func (e *Engine) hourlyCounts(rows []domain.Transaction) []HourlyCount {
	out := make([]HourlyCount, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, tx := range rows {
		if tx.HourLocal != nil {
			out[*tx.HourLocal].Operations++
		}
	}
	return out
}

// weekdayCounts always emits all seven days, Monday first, zero-filled.
func (e *Engine) weekdayCounts(rows []domain.Transaction) []WeekdayCount {
	out := make([]WeekdayCount, 7)
	for i := range out {
		out[i].Weekday = time.Weekday((i + 1) % 7)
	}
	for _, tx := range rows {
		if tx.WeekdayLocal != nil {
			out[(int(*tx.WeekdayLocal)+6)%7].Operations++
		}
	}
	return out
}

// salesSummary covers completed sell-side trades only. The sell side is
// identified by the configured indicator column and value.
func (e *Engine) salesSummary(rows []domain.Transaction) []SalesSummaryRow {
	type key struct{ asset, fiat string }
	groups := make(map[key]*SalesSummaryRow)
	for _, tx := range rows {
		if tx.StatusClass != domain.StatusCompleted || !e.isSell(tx) {
			continue
		}
		k := key{tx.AssetType, tx.FiatType}
		g, ok := groups[k]
		if !ok {
			g = &SalesSummaryRow{Asset: tx.AssetType, Fiat: tx.FiatType}
			groups[k] = g
		}
		if v, ok := domain.FloatValue(tx.Quantity); ok {
			g.QuantitySold += v
		}
		if v, ok := domain.FloatValue(tx.TotalAmount); ok {
			g.FiatReceived += v
		}
	}

	out := make([]SalesSummaryRow, 0, len(groups))
	for _, g := range groups {
		if g.QuantitySold != 0 {
			avg := g.FiatReceived / g.QuantitySold
			g.AvgSellPrice = &avg
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		return out[i].Fiat < out[j].Fiat
	})
	return out
}

func (e *Engine) isSell(tx domain.Transaction) bool {
	sell := e.cfg.SellOperation
	var cell string
	switch sell.Column {
	case "side":
		cell = string(tx.Side)
	case "asset_type":
		cell = tx.AssetType
	case "fiat_type":
		cell = tx.FiatType
	case "raw_status":
		cell = tx.RawStatus
	}
	return cell == sell.Value
}

func (e *Engine) liquidityIndex(res *Result, rows []domain.Transaction) *LiquidityIndex {
	quantities := collect(rows, func(tx domain.Transaction) *float64 { return tx.Quantity })
	mean, okMean := Mean(quantities)
	median, okMedian := Median(quantities)
	if !okMean || !okMedian {
		res.diag("liquidity_index", "no usable quantities")
		return nil
	}

	idx := &LiquidityIndex{MeanQty: mean, MedianQty: median}
	if median != 0 {
		ratio := mean / median
		idx.Index = &ratio
	}
	return idx
}

func valueCounts(rows []domain.Transaction, pick func(domain.Transaction) string) []ValueCount {
	counts := make(map[string]int)
	for _, tx := range rows {
		counts[pick(tx)]++
	}
	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func collect(rows []domain.Transaction, pick func(domain.Transaction) *float64) []float64 {
	var out []float64
	for _, tx := range rows {
		if v, ok := domain.FloatValue(pick(tx)); ok {
			out = append(out, v)
		}
	}
	return out
}

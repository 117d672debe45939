package analytics

import (
	"math"
	"sort"

	"p2pulse/pkg/contracts/domain"
)

// initialInvestment is the notional used for the rolling portfolio
// value series.
const initialInvestment = 1000.0

// riskSeries builds one series per fiat currency: daily mean unit
// prices, daily returns, rolling windowed P&L, annualized Sharpe and
// Sortino, and the max drawdown over the full period.
func (e *Engine) riskSeries(res *Result, rows []domain.Transaction) []RiskSeries {
	byFiat := make(map[string][]domain.Transaction)
	for _, tx := range rows {
		if tx.HasTimeFeatures() && tx.UnitPrice != nil {
			byFiat[tx.FiatType] = append(byFiat[tx.FiatType], tx)
		}
	}

	fiats := make([]string, 0, len(byFiat))
	for fiat := range byFiat {
		fiats = append(fiats, fiat)
	}
	sort.Strings(fiats)

	var out []RiskSeries
	for _, fiat := range fiats {
		dates, prices := dailyMeanPrices(byFiat[fiat])
		if len(prices) < e.cfg.Risk.MinDataPoints {
			res.diag("rolling_pnl_sharpe", "fiat %s has %d daily points, need %d",
				fiat, len(prices), e.cfg.Risk.MinDataPoints)
			continue
		}

		returns := dailyReturns(prices)
		series := RiskSeries{
			Fiat:        fiat,
			Days:        len(prices),
			Dates:       dates,
			DailyPrices: prices,
			Returns:     returns,
			RollingPnL:  rollingPnL(returns, e.cfg.Risk.WindowDays),
		}
		if s := sharpeRatio(returns, e.cfg.Risk.PeriodsPerYear); s != nil {
			series.Sharpe = s
		}
		if s := sortinoRatio(returns, e.cfg.Risk.PeriodsPerYear); s != nil {
			series.Sortino = s
		}
		if dd := maxDrawdown(prices); dd != nil {
			series.MaxDrawdown = dd
		}
		out = append(out, series)
	}
	return out
}

// dailyMeanPrices groups by local calendar date and averages the unit
// price, returning parallel date and price slices sorted ascending.
func dailyMeanPrices(txs []domain.Transaction) ([]string, []float64) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, tx := range txs {
		day := tx.TimestampLocal.Format("2006-01-02")
		sums[day] += *tx.UnitPrice
		counts[day]++
	}

	dates := make([]string, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	prices := make([]float64, len(dates))
	for i, d := range dates {
		prices[i] = sums[d] / float64(counts[d])
	}
	return dates, prices
}

// dailyReturns is price[i]/price[i-1] - 1; one element shorter than the
// input. A zero previous price yields a zero return.
func dailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			out[i-1] = prices[i]/prices[i-1] - 1
		}
	}
	return out
}

// rollingPnL is the rolling portfolio value over a compounding window:
// initialInvestment * Π(1+r) over the trailing window. Positions before
// the first full window carry the first computed value forward.
func rollingPnL(returns []float64, window int) []float64 {
	if len(returns) < window || window < 1 {
		return nil
	}
	out := make([]float64, len(returns))
	for i := window - 1; i < len(returns); i++ {
		value := initialInvestment
		for _, r := range returns[i-window+1 : i+1] {
			value *= 1 + r
		}
		out[i] = value
	}
	for i := 0; i < window-1; i++ {
		out[i] = out[window-1]
	}
	return out
}

// sharpeRatio annualizes mean/std of the returns; nil on zero variance.
func sharpeRatio(returns []float64, periodsPerYear int) *float64 {
	mean, okMean := Mean(returns)
	std, okStd := SampleStdDev(returns)
	if !okMean || !okStd || std == 0 {
		return nil
	}
	s := mean / std * math.Sqrt(float64(periodsPerYear))
	return &s
}

// sortinoRatio uses only the downside deviation; nil when there are no
// negative returns or the downside variance is zero.
func sortinoRatio(returns []float64, periodsPerYear int) *float64 {
	mean, ok := Mean(returns)
	if !ok {
		return nil
	}
	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	if downside == 0 {
		return nil
	}
	dd := math.Sqrt(downside / float64(len(returns)))
	s := mean / dd * math.Sqrt(float64(periodsPerYear))
	return &s
}

// maxDrawdown is the largest peak-to-trough decline of the price
// series, as a negative fraction; nil for fewer than two points.
func maxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}
	peak := prices[0]
	worst := 0.0
	for _, p := range prices[1:] {
		if p > peak {
			peak = p
			continue
		}
		if peak != 0 {
			if dd := p/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return &worst
}

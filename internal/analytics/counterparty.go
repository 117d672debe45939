package analytics

import (
	"sort"
	"time"

	"p2pulse/pkg/contracts/domain"
)

// counterpartyStats aggregates per counterparty and keeps the top N by
// volume. Mean time between trades needs at least two timestamped
// operations.
func (e *Engine) counterpartyStats(res *Result, rows []domain.Transaction) []CounterpartyStat {
	type acc struct {
		stat  CounterpartyStat
		times []time.Time
	}
	groups := make(map[string]*acc)
	for _, tx := range rows {
		if tx.Counterparty == "" {
			continue
		}
		g, ok := groups[tx.Counterparty]
		if !ok {
			g = &acc{stat: CounterpartyStat{Name: tx.Counterparty}}
			groups[tx.Counterparty] = g
		}
		g.stat.Operations++
		if v, ok := domain.FloatValue(tx.TotalAmount); ok {
			g.stat.TotalVolume += v
		}
		if tx.TimestampLocal != nil {
			g.times = append(g.times, *tx.TimestampLocal)
		}
	}
	if len(groups) == 0 {
		res.diag("counterparty_stats", "no counterparty names in dataset")
		return nil
	}

	out := make([]CounterpartyStat, 0, len(groups))
	for _, g := range groups {
		if g.stat.Operations > 0 {
			mean := g.stat.TotalVolume / float64(g.stat.Operations)
			g.stat.MeanVolume = &mean
		}
		if len(g.times) > 0 {
			sort.Slice(g.times, func(i, j int) bool { return g.times[i].Before(g.times[j]) })
			first, last := g.times[0], g.times[len(g.times)-1]
			g.stat.FirstSeen = &first
			g.stat.LastSeen = &last
		}
		if len(g.times) >= 2 {
			total := 0.0
			for i := 1; i < len(g.times); i++ {
				total += g.times[i].Sub(g.times[i-1]).Hours()
			}
			tbt := total / float64(len(g.times)-1)
			g.stat.MeanTBTHours = &tbt
		}
		out = append(out, g.stat)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalVolume != out[j].TotalVolume {
			return out[i].TotalVolume > out[j].TotalVolume
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > e.cfg.TopCounterparties {
		out = out[:e.cfg.TopCounterparties]
	}
	return out
}

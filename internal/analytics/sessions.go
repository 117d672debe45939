package analytics

import (
	"sort"
	"time"

	"p2pulse/pkg/contracts/domain"
)

type session struct {
	start      time.Time
	end        time.Time
	operations int
	volume     float64
}

// sessionStats groups timestamped trades into sessions separated by the
// configured inactivity gap and summarizes them.
func (e *Engine) sessionStats(res *Result, rows []domain.Transaction) *SessionSummary {
	var timed []domain.Transaction
	for _, tx := range rows {
		if tx.HasTimeFeatures() {
			timed = append(timed, tx)
		}
	}
	if len(timed) == 0 {
		res.diag("session_stats", "no timestamped rows")
		return nil
	}
	sort.Slice(timed, func(i, j int) bool {
		return timed[i].TimestampLocal.Before(*timed[j].TimestampLocal)
	})

	gap := time.Duration(e.cfg.SessionGapMinutes) * time.Minute
	var sessions []session
	for _, tx := range timed {
		ts := *tx.TimestampLocal
		if len(sessions) == 0 || ts.Sub(sessions[len(sessions)-1].end) > gap {
			sessions = append(sessions, session{start: ts, end: ts})
		}
		cur := &sessions[len(sessions)-1]
		cur.end = ts
		cur.operations++
		if v, ok := domain.FloatValue(tx.TotalAmount); ok {
			cur.volume += v
		}
	}

	summary := &SessionSummary{Sessions: len(sessions)}
	lengthSum, opsSum, volumeSum := 0.0, 0.0, 0.0
	startHours := make(map[int]int)
	for _, s := range sessions {
		lengthSum += s.end.Sub(s.start).Minutes()
		opsSum += float64(s.operations)
		volumeSum += s.volume
		startHours[s.start.Hour()]++
	}
	n := float64(len(sessions))
	summary.MeanLengthMinutes = lengthSum / n
	summary.MeanOperations = opsSum / n
	summary.MeanVolume = volumeSum / n

	peak, best := 0, -1
	for h := 0; h < 24; h++ {
		if startHours[h] > best {
			best = startHours[h]
			peak = h
		}
	}
	if best > 0 {
		summary.PeakStartHour = &peak
	}
	return summary
}

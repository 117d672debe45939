package analytics

import (
	"time"

	"p2pulse/pkg/contracts/domain"
)

// eventWindowHours is the span of each comparison window.
const eventWindowHours = 24

// eventComparison contrasts activity in [T-24h, T) against [T, T+24h).
// A window without trades keeps its aggregate fields null.
func (e *Engine) eventComparison(rows []domain.Transaction, eventTime time.Time) *EventComparison {
	span := eventWindowHours * time.Hour
	cmp := &EventComparison{
		EventTime: eventTime,
		Before:    EventWindow{From: eventTime.Add(-span), To: eventTime},
		After:     EventWindow{From: eventTime, To: eventTime.Add(span)},
	}

	fillWindow := func(w *EventWindow) {
		sum := 0.0
		withTotal := 0
		for _, tx := range rows {
			if tx.TimestampUTC == nil {
				continue
			}
			ts := *tx.TimestampUTC
			if ts.Before(w.From) || !ts.Before(w.To) {
				continue
			}
			w.Operations++
			if v, ok := domain.FloatValue(tx.TotalAmount); ok {
				sum += v
				withTotal++
			}
		}
		if w.Operations > 0 {
			w.Total = &sum
			if withTotal > 0 {
				mean := sum / float64(withTotal)
				w.MeanTotal = &mean
			}
		}
	}

	fillWindow(&cmp.Before)
	fillWindow(&cmp.After)
	return cmp
}

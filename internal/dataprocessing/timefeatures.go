package dataprocessing

import (
	"log/slog"
	"time"

	"p2pulse/pkg/contracts/domain"
)

// timestampLayout matches the Binance export "Match time(UTC)" format.
const timestampLayout = "2006-01-02 15:04:05"

// ApplyTimeFeatures parses each record's UTC timestamp and derives the
// local-timezone features used by time-bucketed aggregates. Records with
// a missing or unparseable timestamp keep all time fields nil and still
// feed the non-temporal metrics.
func ApplyTimeFeatures(txs []domain.Transaction, idx ColumnIndex, raw *RawDataset, loc *time.Location, logger *slog.Logger) {
	unparsed := 0
	for i := range txs {
		cell := idx.field(raw.Rows[i], "timestamp_utc")
		if cell == "" {
			continue
		}
		ts, err := time.ParseInLocation(timestampLayout, cell, time.UTC)
		if err != nil {
			logger.Debug("unparseable timestamp",
				slog.String("order_id", txs[i].OrderID),
				slog.Int("row", i+1),
				slog.String("value", cell))
			unparsed++
			continue
		}

		local := ts.In(loc)
		hour := local.Hour()
		weekday := local.Weekday()
		year := local.Year()

		txs[i].TimestampUTC = &ts
		txs[i].TimestampLocal = &local
		txs[i].HourLocal = &hour
		txs[i].WeekdayLocal = &weekday
		txs[i].Year = &year
		txs[i].YearMonth = local.Format("2006-01")
	}

	if unparsed > 0 {
		logger.Warn("timestamps could not be parsed; affected rows excluded from time aggregates",
			slog.Int("rows", unparsed))
	}
}

// Package partition segments the normalized dataset along the
// (period, status bucket) grid the report tree is organized by.
package partition

import (
	"log/slog"
	"sort"
	"strconv"

	"p2pulse/pkg/contracts/domain"
)

// PeriodTotal is the whole-dataset period.
const PeriodTotal = "total"

// Status bucket names. Pending and unknown records participate in the
// "all" bucket but never form a bucket of their own.
const (
	BucketAll       = "all"
	BucketCompleted = "completed"
	BucketCancelled = "cancelled"
)

// Partition is one (period, bucket) cell with its own copy of the rows.
// Mutating a partition's rows never affects another partition.
type Partition struct {
	Period string
	Bucket string
	Rows   []domain.Transaction
}

// Meta returns the partition's descriptor.
func (p Partition) Meta() domain.PartitionMeta {
	return domain.PartitionMeta{Period: p.Period, Bucket: p.Bucket, Rows: len(p.Rows)}
}

// Build produces the ordered partition list: the total period first,
// then each distinct year ascending when annual breakdown is on, each
// crossed with the all/completed/cancelled buckets. Empty cells are
// skipped.
func Build(txs []domain.Transaction, annualBreakdown bool, logger *slog.Logger) []Partition {
	periods := []periodKey{{name: PeriodTotal, year: nil}}
	if annualBreakdown {
		for _, y := range distinctYears(txs) {
			year := y
			periods = append(periods, periodKey{name: strconv.Itoa(y), year: &year})
		}
	}

	var parts []Partition
	for _, period := range periods {
		inPeriod := selectPeriod(txs, period.year)
		for _, bucket := range []string{BucketAll, BucketCompleted, BucketCancelled} {
			rows := selectBucket(inPeriod, bucket)
			if len(rows) == 0 {
				logger.Debug("skipping empty partition",
					slog.String("period", period.name),
					slog.String("bucket", bucket))
				continue
			}
			parts = append(parts, Partition{Period: period.name, Bucket: bucket, Rows: rows})
		}
	}

	logger.Info("dataset partitioned",
		slog.Int("rows", len(txs)),
		slog.Int("partitions", len(parts)))
	return parts
}

type periodKey struct {
	name string
	year *int
}

func distinctYears(txs []domain.Transaction) []int {
	seen := make(map[int]struct{})
	for _, tx := range txs {
		if tx.Year != nil {
			seen[*tx.Year] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func selectPeriod(txs []domain.Transaction, year *int) []domain.Transaction {
	if year == nil {
		return txs
	}
	var out []domain.Transaction
	for _, tx := range txs {
		if tx.Year != nil && *tx.Year == *year {
			out = append(out, tx)
		}
	}
	return out
}

// selectBucket always copies, including for the "all" bucket, so every
// partition owns its rows.
func selectBucket(txs []domain.Transaction, bucket string) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range txs {
		switch bucket {
		case BucketAll:
			out = append(out, tx)
		case BucketCompleted:
			if tx.StatusClass == domain.StatusCompleted {
				out = append(out, tx)
			}
		case BucketCancelled:
			if tx.StatusClass == domain.StatusCancelled {
				out = append(out, tx)
			}
		}
	}
	return out
}

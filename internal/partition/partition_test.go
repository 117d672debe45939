package partition

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p2pulse/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixture() []domain.Transaction {
	y22, y23 := 2022, 2023
	var txs []domain.Transaction
	for i := 0; i < 60; i++ {
		txs = append(txs, domain.Transaction{StatusClass: domain.StatusCompleted, Year: &y22})
	}
	for i := 0; i < 40; i++ {
		txs = append(txs, domain.Transaction{StatusClass: domain.StatusCompleted, Year: &y23})
	}
	return txs
}

func TestBuildAllCompletedNoCancelled(t *testing.T) {
	parts := Build(fixture(), true, testLogger())

	// total, 2022 and 2023, each with all and completed; cancelled is
	// empty everywhere and skipped.
	require.Len(t, parts, 6)

	assert.Equal(t, PeriodTotal, parts[0].Period)
	assert.Equal(t, BucketAll, parts[0].Bucket)
	assert.Len(t, parts[0].Rows, 100)
	assert.Equal(t, BucketCompleted, parts[1].Bucket)
	assert.Len(t, parts[1].Rows, 100)

	assert.Equal(t, "2022", parts[2].Period)
	assert.Len(t, parts[2].Rows, 60)
	assert.Equal(t, "2023", parts[4].Period)
	assert.Len(t, parts[4].Rows, 40)

	for _, p := range parts {
		assert.NotEqual(t, BucketCancelled, p.Bucket)
	}
}

func TestBuildYearsAscending(t *testing.T) {
	y23, y21 := 2023, 2021
	txs := []domain.Transaction{
		{StatusClass: domain.StatusCompleted, Year: &y23},
		{StatusClass: domain.StatusCompleted, Year: &y21},
	}
	parts := Build(txs, true, testLogger())

	var periods []string
	for _, p := range parts {
		periods = append(periods, p.Period)
	}
	assert.Equal(t, []string{"total", "total", "2021", "2021", "2023", "2023"}, periods)
}

func TestBuildWithoutAnnualBreakdown(t *testing.T) {
	parts := Build(fixture(), false, testLogger())
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.Equal(t, PeriodTotal, p.Period)
	}
}

func TestBuildPartitionsOwnTheirRows(t *testing.T) {
	y := 2023
	txs := []domain.Transaction{
		{OrderID: "1", StatusClass: domain.StatusCompleted, Year: &y},
	}
	parts := Build(txs, false, testLogger())
	require.Len(t, parts, 2)

	parts[0].Rows[0].WhaleTrade = true
	assert.False(t, parts[1].Rows[0].WhaleTrade)
	assert.False(t, txs[0].WhaleTrade)
}

func TestBuildPendingAndUnknownOnlyInAll(t *testing.T) {
	txs := []domain.Transaction{
		{StatusClass: domain.StatusPendingOrAppeal},
		{StatusClass: domain.StatusUnknown},
		{StatusClass: domain.StatusCancelled},
	}
	parts := Build(txs, false, testLogger())
	require.Len(t, parts, 2)

	assert.Equal(t, BucketAll, parts[0].Bucket)
	assert.Len(t, parts[0].Rows, 3)
	assert.Equal(t, BucketCancelled, parts[1].Bucket)
	assert.Len(t, parts[1].Rows, 1)
}

func TestBuildNilYearOnlyInTotal(t *testing.T) {
	y := 2023
	txs := []domain.Transaction{
		{StatusClass: domain.StatusCompleted, Year: &y},
		{StatusClass: domain.StatusCompleted}, // no timestamp
	}
	parts := Build(txs, true, testLogger())

	for _, p := range parts {
		if p.Period == PeriodTotal {
			assert.Len(t, p.Rows, 2)
		} else {
			assert.Len(t, p.Rows, 1)
		}
	}
}

func TestMeta(t *testing.T) {
	p := Partition{Period: "2023", Bucket: BucketAll, Rows: make([]domain.Transaction, 5)}
	meta := p.Meta()
	assert.Equal(t, domain.PartitionMeta{Period: "2023", Bucket: BucketAll, Rows: 5}, meta)
}

// Package files owns the output directory layout: one directory per
// (period, status bucket) partition, each with tables, reports and
// dashboards subdirectories.
package files

import (
	"fmt"
	"os"
	"path/filepath"
)

// Subdirectory names inside a partition directory.
const (
	TablesDir     = "tables"
	ReportsDir    = "reports"
	DashboardsDir = "dashboards"
)

// Layout builds paths under the output root. Suffix identifies the
// active pre-filters and is carried in every emitted file name.
type Layout struct {
	Root   string
	Suffix string
}

// PartitionDir is `<root>/<period>/<bucket>`.
func (l Layout) PartitionDir(period, bucket string) string {
	return filepath.Join(l.Root, period, bucket)
}

// TablePath is the CSV path for one metric table.
func (l Layout) TablePath(period, bucket, table string) string {
	return filepath.Join(l.PartitionDir(period, bucket), TablesDir,
		fmt.Sprintf("%s%s.csv", table, l.Suffix))
}

// WorkbookPath is the Excel summary path for a partition.
func (l Layout) WorkbookPath(period, bucket string) string {
	return filepath.Join(l.PartitionDir(period, bucket), ReportsDir,
		fmt.Sprintf("summary%s.xlsx", l.Suffix))
}

// DashboardPath is the HTML dashboard path for a partition.
func (l Layout) DashboardPath(period, bucket string) string {
	return filepath.Join(l.PartitionDir(period, bucket), DashboardsDir,
		fmt.Sprintf("index%s.html", l.Suffix))
}

// EnsurePartitionDirs creates the partition directory and its
// subdirectories.
func (l Layout) EnsurePartitionDirs(period, bucket string) error {
	base := l.PartitionDir(period, bucket)
	for _, sub := range []string{TablesDir, ReportsDir, DashboardsDir} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return nil
}

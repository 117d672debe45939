package exporter

import (
	"fmt"
	"strconv"
	"time"
)

// formatFloat renders a float with exactly 2 decimal places so values
// like 13.4 appear as 13.40 in every output format.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatFloatPtr renders a nullable float; null becomes an empty cell.
func formatFloatPtr(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}

// formatRatio keeps 4 decimal places for dimensionless ratios where 2
// would round away the signal.
func formatRatio(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *p)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatTimePtr(p *time.Time) string {
	if p == nil {
		return ""
	}
	return formatTime(*p)
}

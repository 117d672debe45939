package dataprocessing

import (
	"strconv"
	"strings"
)

// ParseAmount converts a raw amount cell to a float, tolerating both
// "1,234.56" and "1.234,56" style separators. The separator that appears
// last is taken as the decimal mark; a lone comma followed by at most two
// digits is treated as a decimal comma, otherwise commas are thousands
// separators. Returns nil when the value is empty or not numeric.
func ParseAmount(raw string) *float64 {
	val := strings.TrimSpace(raw)
	if val == "" {
		return nil
	}

	lastDot := strings.LastIndex(val, ".")
	lastComma := strings.LastIndex(val, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0 && lastDot < lastComma:
		// European style: dots group thousands, comma is decimal.
		val = strings.ReplaceAll(val, ".", "")
		val = strings.ReplaceAll(val, ",", ".")
	case lastDot >= 0 && lastComma >= 0:
		// US style: commas group thousands.
		val = strings.ReplaceAll(val, ",", "")
	case lastComma >= 0:
		if strings.Count(val, ",") == 1 && len(val)-lastComma-1 <= 2 {
			val = strings.Replace(val, ",", ".", 1)
		} else {
			val = strings.ReplaceAll(val, ",", "")
		}
	case lastDot >= 0:
		// Multiple dots: all but the last are thousands separators.
		if strings.Count(val, ".") > 1 {
			intPart := strings.ReplaceAll(val[:lastDot], ".", "")
			val = intPart + val[lastDot:]
		}
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}

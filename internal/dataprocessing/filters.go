package dataprocessing

import (
	"log/slog"
	"strconv"
	"strings"

	"p2pulse/pkg/contracts/domain"
)

// Filters narrows the dataset before segmentation. Each non-empty list
// is a case-insensitive membership test; empty lists pass everything.
// Filters compose with the period and status segmentation rather than
// replacing it.
type Filters struct {
	Years          []int
	Fiats          []string
	Assets         []string
	Statuses       []string
	PaymentMethods []string
}

// Empty reports whether no filter is active.
func (f Filters) Empty() bool {
	return len(f.Years) == 0 && len(f.Fiats) == 0 && len(f.Assets) == 0 &&
		len(f.Statuses) == 0 && len(f.PaymentMethods) == 0
}

// Apply returns the records passing every active filter.
func (f Filters) Apply(txs []domain.Transaction, logger *slog.Logger) []domain.Transaction {
	if f.Empty() {
		return txs
	}

	fiats := toSet(f.Fiats)
	assets := toSet(f.Assets)
	statuses := toSet(f.Statuses)
	payments := toSet(f.PaymentMethods)
	years := make(map[int]struct{}, len(f.Years))
	for _, y := range f.Years {
		years[y] = struct{}{}
	}

	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if len(years) > 0 {
			if tx.Year == nil {
				continue
			}
			if _, ok := years[*tx.Year]; !ok {
				continue
			}
		}
		if !inSet(fiats, tx.FiatType) || !inSet(assets, tx.AssetType) ||
			!inSet(statuses, tx.RawStatus) || !inSet(payments, tx.PaymentMethod) {
			continue
		}
		out = append(out, tx)
	}

	logger.Info("pre-filters applied",
		slog.Int("rows_in", len(txs)),
		slog.Int("rows_out", len(out)))
	return out
}

// Suffix returns the file name suffix identifying the active filters,
// e.g. "_uyu_completed". Empty when no filter is active.
func (f Filters) Suffix() string {
	var parts []string
	for _, y := range f.Years {
		parts = append(parts, strconv.Itoa(y))
	}
	for _, group := range [][]string{f.Fiats, f.Assets, f.Statuses, f.PaymentMethods} {
		for _, v := range group {
			parts = append(parts, strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), " ", "_"))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "_" + strings.Join(parts, "_")
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, value string) bool {
	if set == nil {
		return true
	}
	_, ok := set[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

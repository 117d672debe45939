package dataprocessing

import (
	"log/slog"
	"strings"

	"p2pulse/internal/config"
	"p2pulse/pkg/contracts/domain"
)

// ColumnIndex maps each canonical field name to its position in the CSV
// header, or -1 when the source column is absent.
type ColumnIndex map[string]int

// MapColumns resolves the configured source headers against the actual
// CSV header. Matching is case-insensitive and ignores surrounding
// whitespace. Missing columns are logged and mapped to -1 so the
// corresponding fields come out null.
func MapColumns(header []string, mapping config.ColumnMapping, logger *slog.Logger) ColumnIndex {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idx := make(ColumnIndex)
	for canonical, source := range mapping.Pairs() {
		pos, ok := byName[strings.ToLower(strings.TrimSpace(source))]
		if !ok {
			logger.Warn("mapped column not found in CSV header",
				slog.String("field", canonical),
				slog.String("source_column", source))
			pos = -1
		}
		idx[canonical] = pos
	}
	return idx
}

// field returns the trimmed cell for a canonical column, or "" when the
// column is unmapped or the row is short.
func (c ColumnIndex) field(row []string, name string) string {
	pos, ok := c[name]
	if !ok || pos < 0 || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// BuildTransactions converts raw CSV rows into domain transactions.
// Numeric cells that fail to parse become null; the combined fee is
// always concrete, treating a null maker or taker fee as zero.
func BuildTransactions(ds *RawDataset, idx ColumnIndex) []domain.Transaction {
	txs := make([]domain.Transaction, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		tx := domain.Transaction{
			OrderID:       idx.field(row, "order_id"),
			Side:          normalizeSide(idx.field(row, "side")),
			AssetType:     idx.field(row, "asset_type"),
			FiatType:      idx.field(row, "fiat_type"),
			UnitPrice:     ParseAmount(idx.field(row, "unit_price")),
			Quantity:      ParseAmount(idx.field(row, "quantity")),
			TotalAmount:   ParseAmount(idx.field(row, "total_amount")),
			MakerFee:      ParseAmount(idx.field(row, "maker_fee")),
			TakerFee:      ParseAmount(idx.field(row, "taker_fee")),
			RawStatus:     idx.field(row, "raw_status"),
			PaymentMethod: idx.field(row, "payment_method"),
			Counterparty:  idx.field(row, "counterparty"),
		}

		if v, ok := domain.FloatValue(tx.MakerFee); ok {
			tx.TotalFee += v
		}
		if v, ok := domain.FloatValue(tx.TakerFee); ok {
			tx.TotalFee += v
		}

		txs = append(txs, tx)
	}
	return txs
}

func normalizeSide(raw string) domain.OrderSide {
	switch strings.ToUpper(raw) {
	case "BUY":
		return domain.SideBuy
	case "SELL":
		return domain.SideSell
	default:
		return domain.OrderSide(raw)
	}
}

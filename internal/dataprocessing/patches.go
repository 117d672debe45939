package dataprocessing

import (
	"log/slog"

	"p2pulse/pkg/contracts/domain"
)

// PatchPrices corrects known data quality defects in place. Binance
// occasionally reports USDT/USD unit prices scaled by 1000; any such
// price above 10 is divided back down.
func PatchPrices(txs []domain.Transaction, logger *slog.Logger) {
	patched := 0
	for i := range txs {
		tx := &txs[i]
		if tx.AssetType != "USDT" || tx.FiatType != "USD" || tx.UnitPrice == nil {
			continue
		}
		if *tx.UnitPrice > 10 {
			fixed := *tx.UnitPrice / 1000
			tx.UnitPrice = &fixed
			patched++
		}
	}
	if patched > 0 {
		logger.Info("applied USDT/USD price scale patch", slog.Int("rows", patched))
	}
}

// ComputeUSDEquivalent derives the USD value of each trade's total
// amount. USD and USDT fiat totals pass through unchanged; UYU totals
// for USDT trades are converted through the unit price. Everything else
// stays null.
func ComputeUSDEquivalent(txs []domain.Transaction) {
	for i := range txs {
		tx := &txs[i]
		if tx.TotalAmount == nil {
			continue
		}
		switch {
		case tx.FiatType == "USD" || tx.FiatType == "USDT":
			v := *tx.TotalAmount
			tx.USDEquivalent = &v
		case tx.FiatType == "UYU" && tx.AssetType == "USDT" &&
			tx.UnitPrice != nil && *tx.UnitPrice != 0:
			v := *tx.TotalAmount / *tx.UnitPrice
			tx.USDEquivalent = &v
		}
	}
}

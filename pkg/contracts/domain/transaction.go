package domain

import (
	"time"
)

// Transaction is the canonical in-memory representation of one P2P trade
// row after normalization. Numeric and time fields that can be absent or
// unparseable in the source export are pointers; nil means "no value" and
// is excluded from aggregates rather than being coerced to zero.
type Transaction struct {
	OrderID       string      `json:"order_id"`
	Side          OrderSide   `json:"side"`
	AssetType     string      `json:"asset_type"`
	FiatType      string      `json:"fiat_type"`
	UnitPrice     *float64    `json:"unit_price"`
	Quantity      *float64    `json:"quantity"`
	TotalAmount   *float64    `json:"total_amount"`
	MakerFee      *float64    `json:"maker_fee"`
	TakerFee      *float64    `json:"taker_fee"`
	TotalFee      float64     `json:"total_fee"` // coalesce(maker,0)+coalesce(taker,0), never null
	RawStatus     string      `json:"raw_status"`
	StatusClass   StatusClass `json:"status_class"`
	PaymentMethod string      `json:"payment_method"`
	Counterparty  string      `json:"counterparty"`

	// USDEquivalent is the total amount expressed in USD where a
	// conversion is defined; nil otherwise.
	USDEquivalent *float64 `json:"usd_equivalent"`

	// Time features. All of them are nil together when the source
	// timestamp is missing or unparseable; such a record still feeds
	// non-temporal aggregates.
	TimestampUTC   *time.Time    `json:"timestamp_utc"`
	TimestampLocal *time.Time    `json:"timestamp_local"`
	HourLocal      *int          `json:"hour_local"`
	WeekdayLocal   *time.Weekday `json:"weekday_local"`
	Year           *int          `json:"year"`
	YearMonth      string        `json:"year_month"` // "2006-01", empty when unknown

	// Partition-relative flags. Set by the metrics engine on the
	// partition's own row copies, never on the shared dataset.
	WhaleTrade   bool `json:"whale_trade"`
	PriceOutlier bool `json:"price_outlier"`
}

// HasTimeFeatures reports whether the record can participate in
// time-bucketed aggregates.
func (t Transaction) HasTimeFeatures() bool {
	return t.TimestampLocal != nil
}

// OrderSide is the direction of the order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// StatusClass is the canonical status bucket a raw status string maps to.
type StatusClass string

const (
	StatusCompleted       StatusClass = "completed"
	StatusCancelled       StatusClass = "cancelled"
	StatusPendingOrAppeal StatusClass = "pending_or_appeal"
	StatusUnknown         StatusClass = "unknown"
)

// Float returns a pointer to v. Convenience for building records.
func Float(v float64) *float64 { return &v }

// FloatValue dereferences p, returning 0 and false when p is nil.
func FloatValue(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

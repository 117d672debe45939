package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "p2pulse/internal/errors"
)

// Config is the complete, immutable application configuration. It is
// constructed once at startup and passed by reference into every
// component; nothing reads ambient global state.
type Config struct {
	ColumnMapping ColumnMapping  `yaml:"column_mapping" envconfig:"COLUMNS"`
	StatusBuckets []StatusBucket `yaml:"status_buckets" ignored:"true"`
	SellOperation SellOperation  `yaml:"sell_operation" envconfig:"SELL"`
	Timezone      string         `yaml:"timezone" envconfig:"TIMEZONE" validate:"required"`

	WhaleSigma        float64 `yaml:"whale_sigma" envconfig:"WHALE_SIGMA" validate:"gt=0"`
	SessionGapMinutes int     `yaml:"session_gap_minutes" envconfig:"SESSION_GAP_MINUTES" validate:"gt=0"`
	TopCounterparties int     `yaml:"top_counterparties" envconfig:"TOP_COUNTERPARTIES" validate:"gt=0"`
	AnnualBreakdown   bool    `yaml:"annual_breakdown" envconfig:"ANNUAL_BREAKDOWN"`
	MaxConcurrency    int     `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"gt=0"`

	Risk     RiskConfig    `yaml:"risk" envconfig:"RISK"`
	Outliers OutlierConfig `yaml:"outliers" envconfig:"OUTLIERS"`
	Report   ReportConfig  `yaml:"report" envconfig:"REPORT"`
	Logging  LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Tracing  TracingConfig `yaml:"tracing" envconfig:"TRACING"`
}

// ColumnMapping maps each canonical field to the source CSV header that
// carries it. An empty source means the column is absent from the export
// and is synthesized as a null column during normalization.
type ColumnMapping struct {
	OrderID       string `yaml:"order_id" envconfig:"ORDER_ID"`
	Side          string `yaml:"side" envconfig:"SIDE"`
	AssetType     string `yaml:"asset_type" envconfig:"ASSET_TYPE"`
	FiatType      string `yaml:"fiat_type" envconfig:"FIAT_TYPE"`
	UnitPrice     string `yaml:"unit_price" envconfig:"UNIT_PRICE"`
	Quantity      string `yaml:"quantity" envconfig:"QUANTITY"`
	TotalAmount   string `yaml:"total_amount" envconfig:"TOTAL_AMOUNT"`
	MakerFee      string `yaml:"maker_fee" envconfig:"MAKER_FEE"`
	TakerFee      string `yaml:"taker_fee" envconfig:"TAKER_FEE"`
	RawStatus     string `yaml:"raw_status" envconfig:"RAW_STATUS"`
	TimestampUTC  string `yaml:"timestamp_utc" envconfig:"TIMESTAMP_UTC"`
	PaymentMethod string `yaml:"payment_method" envconfig:"PAYMENT_METHOD"`
	Counterparty  string `yaml:"counterparty" envconfig:"COUNTERPARTY"`
}

// Pairs returns the (canonical, source) pairs with a non-empty source.
func (m ColumnMapping) Pairs() map[string]string {
	pairs := map[string]string{
		"order_id":       m.OrderID,
		"side":           m.Side,
		"asset_type":     m.AssetType,
		"fiat_type":      m.FiatType,
		"unit_price":     m.UnitPrice,
		"quantity":       m.Quantity,
		"total_amount":   m.TotalAmount,
		"maker_fee":      m.MakerFee,
		"taker_fee":      m.TakerFee,
		"raw_status":     m.RawStatus,
		"timestamp_utc":  m.TimestampUTC,
		"payment_method": m.PaymentMethod,
		"counterparty":   m.Counterparty,
	}
	for k, v := range pairs {
		if strings.TrimSpace(v) == "" {
			delete(pairs, k)
		}
	}
	return pairs
}

// StatusBucket is one ordered classification bucket: the first bucket
// whose match set contains a raw status string wins.
type StatusBucket struct {
	Tag     string   `yaml:"tag" validate:"required"`
	Matches []string `yaml:"matches" validate:"required,min=1"`
}

// SellOperation identifies sell-side records for the sales summary.
type SellOperation struct {
	Column string `yaml:"column" envconfig:"COLUMN" validate:"oneof=side asset_type fiat_type raw_status"`
	Value  string `yaml:"value" envconfig:"VALUE" validate:"required"`
}

// RiskConfig controls the rolling P&L / Sharpe computation.
type RiskConfig struct {
	Enabled        bool `yaml:"enabled" envconfig:"ENABLED"`
	WindowDays     int  `yaml:"window_days" envconfig:"WINDOW_DAYS" validate:"gt=1"`
	PeriodsPerYear int  `yaml:"periods_per_year" envconfig:"PERIODS_PER_YEAR" validate:"gt=0"`
	MinDataPoints  int  `yaml:"min_data_points" envconfig:"MIN_DATA_POINTS" validate:"gt=1"`
}

// OutlierConfig controls isolation-forest price outlier detection.
// Contamination is either "auto" or a fraction in (0, 0.5].
type OutlierConfig struct {
	Contamination string `yaml:"contamination" envconfig:"CONTAMINATION"`
	Estimators    int    `yaml:"estimators" envconfig:"ESTIMATORS" validate:"gt=0"`
	SampleSize    int    `yaml:"sample_size" envconfig:"SAMPLE_SIZE" validate:"gt=1"`
	Seed          int64  `yaml:"seed" envconfig:"SEED"`
}

// ContaminationFraction returns the configured fraction and whether the
// "auto" threshold mode is active instead.
func (o OutlierConfig) ContaminationFraction() (float64, bool, error) {
	if strings.EqualFold(strings.TrimSpace(o.Contamination), "auto") {
		return 0, true, nil
	}
	f, err := strconv.ParseFloat(o.Contamination, 64)
	if err != nil || f <= 0 || f > 0.5 {
		return 0, false, apperrors.NewConfigError("outliers.contamination",
			fmt.Sprintf("must be \"auto\" or a fraction in (0, 0.5], got %q", o.Contamination))
	}
	return f, false, nil
}

// ReportConfig selects which metric tables the HTML dashboard includes.
// All tables are always written as CSV; the inclusion list only narrows
// the dashboard.
type ReportConfig struct {
	IncludeTables []string `yaml:"include_tables" envconfig:"INCLUDE_TABLES"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TracingConfig enables the stdout span exporter.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
}

// Load builds the configuration: defaults, then the optional YAML file,
// then environment overrides (prefix P2P), then validation. The returned
// Config is treated as immutable by every consumer.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, apperrors.NewConfigError("config_file", fmt.Sprintf("cannot read %s: %v", configPath, err))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.NewConfigError("config_file", fmt.Sprintf("invalid YAML in %s: %v", configPath, err))
		}
	}

	if err := envconfig.Process("P2P", cfg); err != nil {
		return nil, apperrors.NewConfigError("environment", err.Error())
	}

	if len(cfg.StatusBuckets) == 0 {
		cfg.StatusBuckets = defaultStatusBuckets()
	}
	if len(cfg.Report.IncludeTables) == 0 {
		cfg.Report.IncludeTables = defaultIncludeTables()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration, matching a Binance P2P
// order export.
func Default() *Config {
	return &Config{
		ColumnMapping: ColumnMapping{
			OrderID:       "Order Number",
			Side:          "Order Type",
			AssetType:     "Asset Type",
			FiatType:      "Fiat Type",
			UnitPrice:     "Price",
			Quantity:      "Quantity",
			TotalAmount:   "Total Price",
			MakerFee:      "Maker Fee",
			TakerFee:      "Taker Fee",
			RawStatus:     "Status",
			TimestampUTC:  "Match time(UTC)",
			PaymentMethod: "Payment Method",
			Counterparty:  "Counterparty",
		},
		StatusBuckets: defaultStatusBuckets(),
		SellOperation: SellOperation{Column: "side", Value: "SELL"},
		Timezone:      "America/Montevideo",

		WhaleSigma:        3,
		SessionGapMinutes: 30,
		TopCounterparties: 20,
		AnnualBreakdown:   true,
		MaxConcurrency:    4,

		Risk: RiskConfig{
			Enabled:        true,
			WindowDays:     7,
			PeriodsPerYear: 252,
			MinDataPoints:  3,
		},
		Outliers: OutlierConfig{
			Contamination: "auto",
			Estimators:    100,
			SampleSize:    256,
			Seed:          42,
		},
		Report: ReportConfig{IncludeTables: defaultIncludeTables()},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/p2pulse.log",
		},
		Tracing: TracingConfig{Enabled: false},
	}
}

func defaultStatusBuckets() []StatusBucket {
	return []StatusBucket{
		{Tag: "completed", Matches: []string{"Completed"}},
		{Tag: "cancelled", Matches: []string{"Cancelled", "Canceled"}},
		{Tag: "pending_or_appeal", Matches: []string{"Pending", "Appealing", "Appeal"}},
	}
}

func defaultIncludeTables() []string {
	return []string{"asset_stats", "fiat_stats", "price_stats", "monthly_volume", "hourly_counts", "weekday_counts", "sales_summary"}
}

// Validate checks structural validity plus the constraints the struct
// tags cannot express: duplicate mapping sources, duplicate bucket tags,
// known bucket tags, a resolvable timezone, and a parseable
// contamination value.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("", err.Error())
	}

	seenSource := make(map[string]string)
	for canonical, source := range c.ColumnMapping.Pairs() {
		key := strings.ToLower(strings.TrimSpace(source))
		if prev, ok := seenSource[key]; ok {
			return apperrors.NewConfigError("column_mapping",
				fmt.Sprintf("source column %q mapped by both %s and %s", source, prev, canonical))
		}
		seenSource[key] = canonical
	}

	known := map[string]bool{"completed": true, "cancelled": true, "pending_or_appeal": true}
	seenTag := make(map[string]bool)
	for _, b := range c.StatusBuckets {
		if seenTag[b.Tag] {
			return apperrors.NewConfigError("status_buckets", fmt.Sprintf("duplicate bucket tag %q", b.Tag))
		}
		seenTag[b.Tag] = true
		if !known[b.Tag] {
			return apperrors.NewConfigError("status_buckets", fmt.Sprintf("unknown bucket tag %q", b.Tag))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return apperrors.NewConfigError("timezone", fmt.Sprintf("unknown timezone %q", c.Timezone))
	}

	if _, _, err := c.Outliers.ContaminationFraction(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone. Validate has already
// rejected unknown zones, so failures here fall back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

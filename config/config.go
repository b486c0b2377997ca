// Package config loads the autopricer configuration from a YAML file with
// CLI flag overrides for the basics.
package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the fully parsed runtime configuration.
type Config struct {
	PostgresDSN    string
	RedisAddr      string
	BaselineURL    string
	ListingFeedURL string

	ItemListPath  string
	PricelistPath string
	WalDir        string

	ListenAddr   string
	TLSDomains   []string
	CertCacheDir string

	PriceInterval           time.Duration
	BaselineRefreshInterval time.Duration
	EmitDelay               time.Duration

	ExcludedSteamIDs     []string
	TrustedSteamIDs      []string
	ExcludedDescriptions []string
	BlockedAttributes    map[string]float64

	MaxBuyPremium   decimal.Decimal
	MinSellDiscount decimal.Decimal
}

type configTmp struct {
	PostgresDSN    string `yaml:"postgres_dsn"`
	RedisAddr      string `yaml:"redis_addr"`
	BaselineURL    string `yaml:"baseline_url"`
	ListingFeedURL string `yaml:"listing_feed_url"`

	ItemListPath  string `yaml:"item_list_path"`
	PricelistPath string `yaml:"pricelist_path"`
	WalDir        string `yaml:"wal_dir"`

	ListenAddr   string   `yaml:"listen_addr"`
	TLSDomains   []string `yaml:"tls_domains,omitempty"`
	CertCacheDir string   `yaml:"cert_cache_dir,omitempty"`

	PriceIntervalStr           string `yaml:"price_interval,omitempty"`
	BaselineRefreshIntervalStr string `yaml:"baseline_refresh_interval,omitempty"`
	EmitDelayStr               string `yaml:"emit_delay,omitempty"`

	ExcludedSteamIDs     []string           `yaml:"excluded_steam_ids,omitempty"`
	TrustedSteamIDs      []string           `yaml:"trusted_steam_ids,omitempty"`
	ExcludedDescriptions []string           `yaml:"excluded_descriptions,omitempty"`
	BlockedAttributes    map[string]float64 `yaml:"blocked_attributes,omitempty"`

	MaxBuyPremiumStr   string `yaml:"max_buy_premium,omitempty"`
	MinSellDiscountStr string `yaml:"min_sell_discount,omitempty"`
}

// Get parses CLI flags and loads the YAML config. The second return value is
// true when the user asked for the interactive setup wizard instead.
func Get() (*Config, bool, error) {
	path := flag.String("config", "config.yaml", "path to yaml config")
	runInit := flag.Bool("init", false, "run the interactive setup wizard and exit")
	flag.Parse()

	if *runInit {
		return nil, true, nil
	}
	cfg, err := Load(*path)
	return cfg, false, err
}

// Load reads and validates one YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var tmp configTmp
	if err := yaml.Unmarshal(raw, &tmp); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return fromTmp(tmp)
}

func fromTmp(tmp configTmp) (*Config, error) {
	cfg := &Config{
		PostgresDSN:             tmp.PostgresDSN,
		RedisAddr:               tmp.RedisAddr,
		BaselineURL:             tmp.BaselineURL,
		ListingFeedURL:          tmp.ListingFeedURL,
		ItemListPath:            tmp.ItemListPath,
		PricelistPath:           tmp.PricelistPath,
		WalDir:                  tmp.WalDir,
		ListenAddr:              tmp.ListenAddr,
		TLSDomains:              tmp.TLSDomains,
		CertCacheDir:            tmp.CertCacheDir,
		ExcludedSteamIDs:        tmp.ExcludedSteamIDs,
		TrustedSteamIDs:         tmp.TrustedSteamIDs,
		BlockedAttributes:       tmp.BlockedAttributes,
	}

	if cfg.PostgresDSN == "" {
		return nil, errors.New("'postgres_dsn' is required")
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.BaselineURL == "" {
		return nil, errors.New("'baseline_url' is required")
	}
	if cfg.ItemListPath == "" {
		cfg.ItemListPath = "files/item_list.json"
	}
	if cfg.PricelistPath == "" {
		cfg.PricelistPath = "files/pricelist.json"
	}
	if cfg.WalDir == "" {
		cfg.WalDir = "wal"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	var err error
	if cfg.PriceInterval, err = parseDuration(tmp.PriceIntervalStr, 15*time.Minute); err != nil {
		return nil, errors.Wrap(err, "incorrect 'price_interval' param in yaml config")
	}
	if cfg.BaselineRefreshInterval, err = parseDuration(tmp.BaselineRefreshIntervalStr, 30*time.Minute); err != nil {
		return nil, errors.Wrap(err, "incorrect 'baseline_refresh_interval' param in yaml config")
	}
	if cfg.EmitDelay, err = parseDuration(tmp.EmitDelayStr, 300*time.Millisecond); err != nil {
		return nil, errors.Wrap(err, "incorrect 'emit_delay' param in yaml config")
	}

	// Descriptions are matched case-insensitively against normalized text.
	cfg.ExcludedDescriptions = make([]string, 0, len(tmp.ExcludedDescriptions))
	for _, d := range tmp.ExcludedDescriptions {
		cfg.ExcludedDescriptions = append(cfg.ExcludedDescriptions, strings.ToLower(strings.TrimSpace(d)))
	}

	if cfg.MaxBuyPremium, err = parseDecimal(tmp.MaxBuyPremiumStr, "10"); err != nil {
		return nil, errors.Wrap(err, "incorrect 'max_buy_premium' param in yaml config")
	}
	if cfg.MinSellDiscount, err = parseDecimal(tmp.MinSellDiscountStr, "-10"); err != nil {
		return nil, errors.Wrap(err, "incorrect 'min_sell_discount' param in yaml config")
	}
	if cfg.MinSellDiscount.IsPositive() {
		return nil, errors.New("'min_sell_discount' must be zero or negative")
	}

	return cfg, nil
}

func parseDecimal(s, fallback string) (decimal.Decimal, error) {
	if s == "" {
		s = fallback
	}
	return decimal.NewFromString(s)
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

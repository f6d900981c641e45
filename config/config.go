package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"folio/internal/domain"
)

const (
	defaultCollectInterval = time.Minute
	defaultListenAddr      = ":8080"
	defaultCandleInterval  = "1m"
	defaultCandleLimit     = 1440
	defaultScoresDir       = "wal/scores"
	defaultSnapshotsDir    = "wal/snapshots"
)

type Config struct {
	Platform        string
	QuoteCurrency   string
	Segments        []domain.Segment
	CollectInterval time.Duration
	ListenAddr      string
	CandleInterval  string
	CandleLimit     int
	ScoresDir       string
	SnapshotsDir    string
	TLSDomains      []string
	CertCacheDir    string
	UseHyperliquid  bool
}

type ConfigTmp struct {
	Platform        string        `yaml:"platform"`
	QuoteCurrency   string        `yaml:"quote_currency"`
	Segments        []string      `yaml:"segments"`
	CollectInterval time.Duration `yaml:"collect_interval,omitempty"`
	ListenAddr      string        `yaml:"listen_addr,omitempty"`
	CandleInterval  string        `yaml:"candle_interval,omitempty"`
	CandleLimit     int           `yaml:"candle_limit,omitempty"`
	ScoresDir       string        `yaml:"scores_dir,omitempty"`
	SnapshotsDir    string        `yaml:"snapshots_dir,omitempty"`
	TLSDomains      []string      `yaml:"tls_domains,omitempty"`
	CertCacheDir    string        `yaml:"cert_cache_dir,omitempty"`
	UseHyperliquid  bool          `yaml:"use_hyperliquid,omitempty"`
}

func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()
	if *configPath != "" {
		return getYaml(*configPath)
	}

	return getFromCLI()
}

// FromFile loads the config from a yaml file, bypassing flag parsing.
func FromFile(path string) (Config, error) {
	return getYaml(path)
}

func getFromCLI() (Config, error) {
	platform := flag.String("platform", "binance", "exchange platform: binance or bybit")
	quote := flag.String("quote", "USDT", "quote currency for valuation")
	segments := flag.String("segments", "spot,futures", "comma-separated account segments to value")
	collectInterval := flag.Duration("collectinterval", defaultCollectInterval, "balance collection interval")
	listenAddr := flag.String("listen", defaultListenAddr, "http listen address")

	flag.Parse()

	cfg := Config{
		Platform:        *platform,
		QuoteCurrency:   *quote,
		CollectInterval: *collectInterval,
		ListenAddr:      *listenAddr,
		CandleInterval:  defaultCandleInterval,
		CandleLimit:     defaultCandleLimit,
		ScoresDir:       defaultScoresDir,
		SnapshotsDir:    defaultSnapshotsDir,
	}

	parsedSegments, err := parseSegments(strings.Split(*segments, ","))
	if err != nil {
		return Config{}, err
	}
	cfg.Segments = parsedSegments

	return validate(cfg)
}

func getYaml(path string) (Config, error) {
	var tmp ConfigTmp

	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	segments, err := parseSegments(tmp.Segments)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'segments' param in yaml config: %w", err)
	}

	cfg := Config{
		Platform:        tmp.Platform,
		QuoteCurrency:   tmp.QuoteCurrency,
		Segments:        segments,
		CollectInterval: tmp.CollectInterval,
		ListenAddr:      tmp.ListenAddr,
		CandleInterval:  tmp.CandleInterval,
		CandleLimit:     tmp.CandleLimit,
		ScoresDir:       tmp.ScoresDir,
		SnapshotsDir:    tmp.SnapshotsDir,
		TLSDomains:      tmp.TLSDomains,
		CertCacheDir:    tmp.CertCacheDir,
		UseHyperliquid:  tmp.UseHyperliquid,
	}

	if cfg.CollectInterval == 0 {
		cfg.CollectInterval = defaultCollectInterval
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.CandleInterval == "" {
		cfg.CandleInterval = defaultCandleInterval
	}
	if cfg.CandleLimit == 0 {
		cfg.CandleLimit = defaultCandleLimit
	}
	if cfg.ScoresDir == "" {
		cfg.ScoresDir = defaultScoresDir
	}
	if cfg.SnapshotsDir == "" {
		cfg.SnapshotsDir = defaultSnapshotsDir
	}

	return validate(cfg)
}

func validate(cfg Config) (Config, error) {
	switch cfg.Platform {
	case "binance", "bybit":
	case "":
		return Config{}, fmt.Errorf("'platform' param is required")
	default:
		return Config{}, fmt.Errorf("unsupported platform %q, expected binance or bybit", cfg.Platform)
	}
	if cfg.QuoteCurrency == "" {
		return Config{}, fmt.Errorf("'quote_currency' param is required")
	}
	if len(cfg.Segments) == 0 {
		return Config{}, fmt.Errorf("at least one account segment is required")
	}
	if cfg.CandleLimit < 0 {
		return Config{}, fmt.Errorf("'candle_limit' must be positive")
	}
	if len(cfg.TLSDomains) > 0 && cfg.CertCacheDir == "" {
		cfg.CertCacheDir = "certs"
	}
	return cfg, nil
}

func parseSegments(raw []string) ([]domain.Segment, error) {
	var segments []domain.Segment
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		switch domain.Segment(s) {
		case domain.SegmentSpot, domain.SegmentFutures, domain.SegmentUnified:
			segments = append(segments, domain.Segment(s))
		default:
			return nil, fmt.Errorf("unknown segment %q", s)
		}
	}
	return segments, nil
}

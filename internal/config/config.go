package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage backend names.
const (
	BackendCSV        = "csv"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

// Config is the top-level configuration for the backtest service.
type Config struct {
	Server   Server   `yaml:"server"`
	Storage  Storage  `yaml:"storage"`
	Backtest Backtest `yaml:"backtest"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Logging  Logging  `yaml:"logging"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Storage selects the bar store backend and its connection details.
type Storage struct {
	Backend       string `yaml:"backend"` // csv | postgres | clickhouse
	CSVPath       string `yaml:"csv_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

// Backtest holds the run parameters.
type Backtest struct {
	InitialBalance float64 `yaml:"initial_balance"`
	StreamInterval int     `yaml:"stream_interval"`
	MinRows        int     `yaml:"min_rows"`
	OutputDir      string  `yaml:"output_dir"`
	StopLossPct    float64 `yaml:"stop_loss_pct"`
	TakeProfitPct  float64 `yaml:"take_profit_pct"`
}

// Alpaca holds credentials for the Alpaca market data API, used by the
// fetch command.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{Host: "0.0.0.0", Port: 8080},
		Storage: Storage{
			Backend: BackendCSV,
			CSVPath: "data/bars.csv",
		},
		Backtest: Backtest{
			OutputDir: "output",
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides. An empty
// path yields the defaults with overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendCSV, BackendPostgres, BackendClickHouse:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("BARS_CSV_PATH"); v != "" {
		cfg.Storage.CSVPath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickHouseDSN = v
	}

	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Backtest.OutputDir = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars take highest priority (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

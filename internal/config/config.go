package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"go-elhub-stats/pkg/utils"
)

// Config holds the settings of the dashboard server and the export CLI.
type Config struct {
	Port           int    `mapstructure:"port"`
	DBPath         string `mapstructure:"db_path"` // empty disables the run ledger
	OutputDir      string `mapstructure:"output_dir"`
	Timezone       string `mapstructure:"timezone"`
	RequestTimeout string `mapstructure:"request_timeout"`
	SessionTTL     string `mapstructure:"session_ttl"`
	Strict         bool   `mapstructure:"strict"`
	CountDropped   bool   `mapstructure:"count_dropped"`

	Market       MarketConfig       `mapstructure:"market"`
	Installation InstallationConfig `mapstructure:"installation"`
}

// MarketConfig locates the market-process log and its dimensions.
type MarketConfig struct {
	FactPath       string   `mapstructure:"fact_path"`
	BRSPath        string   `mapstructure:"brs_path"`
	StatePath      string   `mapstructure:"state_path"`
	Delimiter      string   `mapstructure:"delimiter"`
	ExcludedGroups []string `mapstructure:"excluded_groups"`
	DefaultStatus  string   `mapstructure:"default_status"`
}

// InstallationConfig locates the installation records and their mappings.
type InstallationConfig struct {
	FactPath        string  `mapstructure:"fact_path"`
	PostalPath      string  `mapstructure:"postal_path"`
	GridPath        string  `mapstructure:"grid_path"`
	Delimiter       string  `mapstructure:"delimiter"`
	PostalDelimiter string  `mapstructure:"postal_delimiter"`
	FromYear        int     `mapstructure:"from_year"`
	CapacityDivisor float64 `mapstructure:"capacity_divisor"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "dashboard.db")
	v.SetDefault("output_dir", "output")
	v.SetDefault("timezone", "Europe/Oslo")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("session_ttl", "12h")
	v.SetDefault("strict", false)
	v.SetDefault("count_dropped", false)

	v.SetDefault("market.fact_path", "data/mplog.csv")
	v.SetDefault("market.brs_path", "data/mapping/dim_brs.csv")
	v.SetDefault("market.state_path", "data/mapping/dim_mpstate.csv")
	v.SetDefault("market.delimiter", ",")
	v.SetDefault("market.excluded_groups", []string{})
	v.SetDefault("market.default_status", "")

	v.SetDefault("installation.fact_path", "data/solar.csv")
	v.SetDefault("installation.postal_path", "data/mapping/postKODE_postSTED.csv")
	v.SetDefault("installation.grid_path", "data/mapping/dim_mga.csv")
	v.SetDefault("installation.delimiter", ",")
	v.SetDefault("installation.postal_delimiter", ";")
	v.SetDefault("installation.from_year", 0)
	v.SetDefault("installation.capacity_divisor", 100)
}

// Load reads .env (if any), then an optional YAML file, then DASHBOARD_* variables.
// An empty path looks for dashboard.yaml in the working directory.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // ignore missing file

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dashboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values a load cannot recover from.
func (c Config) Validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for name, d := range map[string]string{
		"market.delimiter":              c.Market.Delimiter,
		"installation.delimiter":        c.Installation.Delimiter,
		"installation.postal_delimiter": c.Installation.PostalDelimiter,
	} {
		if _, err := Delimiter(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Installation.CapacityDivisor < 0 {
		return fmt.Errorf("invalid installation.capacity_divisor: %v", c.Installation.CapacityDivisor)
	}
	return nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Timeout is the per-request timeout of the HTTP server.
func (c Config) Timeout() time.Duration {
	return utils.ParseDuration(c.RequestTimeout, 30*time.Second)
}

// TTL is how long an idle selection session is kept.
func (c Config) TTL() time.Duration {
	return utils.ParseDuration(c.SessionTTL, 12*time.Hour)
}

// Delimiter turns a configured delimiter into a rune. "tab" and `\t` mean a tab.
func Delimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be one character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

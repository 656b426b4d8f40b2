package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/pws-history/internal/weather"
	"github.com/i474232898/pws-history/internal/weather/providers"
)

type AppConfig struct {
	APIKey string

	// StationIDs are the configured stations; the first one is the default
	// for requests that omit stationId.
	StationIDs []string

	HistoryURL string `validate:"required,url"`
	CurrentURL string `validate:"required,url"`
	Units      string `validate:"oneof=m e h s"`

	HTTPTimeout time.Duration `validate:"gt=0"`
	DayTimeout  time.Duration `validate:"gte=0"`

	RangeConcurrency int                   `validate:"gte=1,lte=10"`
	RangeMaxDays     int                   `validate:"gte=1"`
	RangePolicy      weather.FailurePolicy `validate:"oneof=fail-fast collect"`

	// WatchInterval of 0 disables the station watch.
	WatchInterval time.Duration `validate:"gte=0"`

	LogLevel       string
	LogDevelopment bool

	Port string `validate:"required,numeric"`
}

var validate = validator.New()

// Load reads configuration from .env and the environment with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("WU_HISTORY_URL", providers.DefaultHistoryURL)
	v.SetDefault("WU_CURRENT_URL", providers.DefaultCurrentURL)
	v.SetDefault("WU_UNITS", providers.DefaultUnits)
	v.SetDefault("WU_HTTP_TIMEOUT", "15s")
	v.SetDefault("WU_DAY_TIMEOUT", "30s")
	v.SetDefault("WU_RANGE_CONCURRENCY", weather.DefaultRangeConcurrency)
	v.SetDefault("WU_RANGE_MAX_DAYS", 31)
	v.SetDefault("WU_RANGE_POLICY", string(weather.FailFast))
	v.SetDefault("WU_WATCH_INTERVAL", "0s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("PORT", "8080")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		APIKey:           strings.TrimSpace(v.GetString("WU_API_KEY")),
		StationIDs:       splitList(v.GetString("WU_STATION_ID")),
		HistoryURL:       v.GetString("WU_HISTORY_URL"),
		CurrentURL:       v.GetString("WU_CURRENT_URL"),
		Units:            v.GetString("WU_UNITS"),
		RangeConcurrency: v.GetInt("WU_RANGE_CONCURRENCY"),
		RangeMaxDays:     v.GetInt("WU_RANGE_MAX_DAYS"),
		RangePolicy:      weather.FailurePolicy(strings.ToLower(v.GetString("WU_RANGE_POLICY"))),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogDevelopment:   v.GetBool("LOG_DEVELOPMENT"),
		Port:             v.GetString("PORT"),
	}

	var err error
	if cfg.HTTPTimeout, err = durationOf(v, "WU_HTTP_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.DayTimeout, err = durationOf(v, "WU_DAY_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.WatchInterval, err = durationOf(v, "WU_WATCH_INTERVAL"); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultStation returns the first configured station, or "".
func (c *AppConfig) DefaultStation() string {
	if len(c.StationIDs) == 0 {
		return ""
	}
	return c.StationIDs[0]
}

// durationOf is stricter than v.GetDuration, which turns an unparsable
// value into 0 and would silently disable a timeout.
func durationOf(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

/*
Package config loads operator configuration.

Settings come from an optional config.yaml in the working directory (or a
path given explicitly), with sane defaults for everything so the server
runs with no file at all. Flags in cmd/server override the file.
*/
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the full operator-tunable surface.
type Config struct {
	Port   int
	DBPath string

	// SweepInterval is how often the expiry sweeper runs; SweepDelay is
	// the initial delay after startup so a fleet restart doesn't
	// thundering-herd the database.
	SweepInterval time.Duration
	SweepDelay    time.Duration

	// BookingFee is the flat charge per booking, independent of the
	// property price.
	BookingFee decimal.Decimal

	// BookingWindowDays is the default booking window length.
	BookingWindowDays int

	// CancelCutoffHours is how long before the window start a user
	// cancellation must arrive.
	CancelCutoffHours int

	// CommissionLevels bounds the referral ancestor walk.
	CommissionLevels int
}

// Load reads config.yaml (if present) and applies defaults. path may be
// empty to search the working directory.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "marketplace.db")
	v.SetDefault("sweeper.interval", "1h")
	v.SetDefault("sweeper.initial_delay", "2m")
	v.SetDefault("booking.fee", "5000")
	v.SetDefault("booking.window_days", 3)
	v.SetDefault("booking.cancel_cutoff_hours", 24)
	v.SetDefault("commission.levels", 3)

	if err := v.ReadInConfig(); err != nil {
		// No file in the search path is fine; a malformed or explicitly
		// named missing file is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	fee, err := decimal.NewFromString(v.GetString("booking.fee"))
	if err != nil {
		return Config{}, fmt.Errorf("booking.fee %q: %w", v.GetString("booking.fee"), err)
	}

	cfg := Config{
		Port:              v.GetInt("server.port"),
		DBPath:            v.GetString("database.path"),
		SweepInterval:     v.GetDuration("sweeper.interval"),
		SweepDelay:        v.GetDuration("sweeper.initial_delay"),
		BookingFee:        fee,
		BookingWindowDays: v.GetInt("booking.window_days"),
		CancelCutoffHours: v.GetInt("booking.cancel_cutoff_hours"),
		CommissionLevels:  v.GetInt("commission.levels"),
	}

	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("sweeper.interval must be positive, got %v", cfg.SweepInterval)
	}
	if cfg.BookingWindowDays < 1 {
		return Config{}, fmt.Errorf("booking.window_days must be >= 1, got %d", cfg.BookingWindowDays)
	}

	return cfg, nil
}

// Package config loads server settings from the environment.
//
// An optional .env file in the working directory is read first; variables
// already set in the process environment win. All variables use the LEAVE_
// prefix, e.g. LEAVE_PORT or LEAVE_DB_DSN.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/warp/leave-engine/calendar"
)

const prefix = "LEAVE"

type Config struct {
	HTTP struct {
		Port            int           `envconfig:"PORT" default:"8080"`
		ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
		ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
		CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
	}

	DB struct {
		Driver       string `envconfig:"DB_DRIVER" default:"sqlite3"`
		DSN          string `envconfig:"DB_DSN" default:"leave.db"`
		MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	}

	Counting struct {
		Mode            string `envconfig:"COUNTING_MODE" default:"calendar"`
		OffDay          string `envconfig:"WEEKLY_OFF_DAY" default:"sunday"`
		ExcludeHolidays bool   `envconfig:"EXCLUDE_HOLIDAYS" default:"true"`

		// HolidayRefresh reloads holidays from the store; 0 disables it.
		HolidayRefresh time.Duration `envconfig:"HOLIDAY_REFRESH" default:"5m"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Format string `envconfig:"LOG_FORMAT" default:"json"`
	}
}

// Load reads .env (if present) and the LEAVE_ environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express as types.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.HTTP.Port))
	}
	switch c.DB.Driver {
	case "sqlite3", "pgx":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DB.Driver))
	}
	if _, err := calendar.ParseMode(c.Counting.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := calendar.ParseWeekday(c.Counting.OffDay); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("LEAVE_JWT_SECRET is required"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// CountingPolicy builds the day-counting policy. holidays is only consulted
// under the working-day mode with ExcludeHolidays set.
func (c *Config) CountingPolicy(holidays calendar.HolidayCalendar) (calendar.Policy, error) {
	mode, err := calendar.ParseMode(c.Counting.Mode)
	if err != nil {
		return calendar.Policy{}, err
	}
	if mode == calendar.ModeCalendar {
		return calendar.CalendarDays(), nil
	}
	off, err := calendar.ParseWeekday(c.Counting.OffDay)
	if err != nil {
		return calendar.Policy{}, err
	}
	if !c.Counting.ExcludeHolidays {
		holidays = calendar.NoHolidays
	}
	return calendar.WorkingDays(off, holidays), nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}

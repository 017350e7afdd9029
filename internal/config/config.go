// Package config assembles runtime settings from defaults, an optional
// .env file and SKILLPROBE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/skillprobe/internal/cat"
	"github.com/abhisek/skillprobe/internal/llm"
	"github.com/abhisek/skillprobe/internal/lookupcache"
	"github.com/abhisek/skillprobe/internal/mastery"
	"github.com/abhisek/skillprobe/internal/recommend"
	"github.com/abhisek/skillprobe/internal/store"
)

// Config is the full runtime configuration.
type Config struct {
	DB      DBConfig
	CAT     cat.Config
	BKT     mastery.Params
	Redis   RedisConfig
	Lookup  LookupConfig
	LogMode string
	Tracing bool
	LLM     llm.Config
}

// DBConfig selects the database. An empty DSN means the default sqlite
// file path.
type DBConfig struct {
	Driver string
	DSN    string
}

// RedisConfig enables the lookup cache when Addr is set.
type RedisConfig struct {
	Addr string
	TTL  time.Duration
}

// LookupConfig tunes content discovery.
type LookupConfig struct {
	Strategy string
	TopK     int
}

// DefaultConfig returns local-first defaults: sqlite, no cache, no LLM.
func DefaultConfig() Config {
	return Config{
		DB:      DBConfig{Driver: store.DriverSQLite},
		CAT:     cat.DefaultConfig(),
		BKT:     mastery.DefaultParams(),
		Redis:   RedisConfig{TTL: lookupcache.DefaultTTL},
		Lookup:  LookupConfig{Strategy: recommend.DefaultStrategy, TopK: recommend.DefaultTopK},
		LogMode: "quiet",
		LLM:     llm.DefaultConfig(),
	}
}

// FromEnv loads the given .env files (".env" when none are named; missing
// files are skipped) and overlays SKILLPROBE_* variables on the defaults.
// Variables already set in the environment win over .env entries.
func FromEnv(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	cfg.LLM = llm.ConfigFromEnv()

	setString(&cfg.DB.Driver, "SKILLPROBE_DB_DRIVER")
	setString(&cfg.DB.DSN, "SKILLPROBE_DB")
	setString(&cfg.Redis.Addr, "SKILLPROBE_REDIS_ADDR")
	setString(&cfg.Lookup.Strategy, "SKILLPROBE_LOOKUP_STRATEGY")
	setString(&cfg.LogMode, "SKILLPROBE_LOG")

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	collect(setInt(&cfg.CAT.MaxItems, "SKILLPROBE_CAT_MAX_ITEMS"))
	collect(setFloat(&cfg.CAT.SEStop, "SKILLPROBE_CAT_SE_STOP"))
	collect(setFloat(&cfg.CAT.ThetaBound, "SKILLPROBE_CAT_THETA_BOUND"))
	collect(setFloat(&cfg.BKT.Init, "SKILLPROBE_BKT_INIT"))
	collect(setFloat(&cfg.BKT.Transit, "SKILLPROBE_BKT_TRANSIT"))
	collect(setFloat(&cfg.BKT.Slip, "SKILLPROBE_BKT_SLIP"))
	collect(setFloat(&cfg.BKT.Guess, "SKILLPROBE_BKT_GUESS"))
	collect(setDuration(&cfg.Redis.TTL, "SKILLPROBE_REDIS_TTL"))
	collect(setInt(&cfg.Lookup.TopK, "SKILLPROBE_LOOKUP_TOP_K"))
	collect(setBool(&cfg.Tracing, "SKILLPROBE_TRACING"))

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case store.DriverSQLite:
	case store.DriverPostgres:
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("postgres requires SKILLPROBE_DB"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.DB.Driver))
	}
	if c.CAT.MaxItems <= 0 {
		errs = append(errs, fmt.Errorf("cat max items must be > 0, got %d", c.CAT.MaxItems))
	}
	if c.CAT.SEStop <= 0 {
		errs = append(errs, fmt.Errorf("cat SE stop must be > 0, got %g", c.CAT.SEStop))
	}
	if err := c.BKT.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bkt: %w", err))
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		errs = append(errs, errors.New("redis TTL must be positive"))
	}
	switch c.Lookup.Strategy {
	case store.StrategyKeyword, store.StrategyHybrid:
	default:
		errs = append(errs, fmt.Errorf("unknown lookup strategy %q", c.Lookup.Strategy))
	}
	if c.Lookup.TopK <= 0 {
		errs = append(errs, fmt.Errorf("lookup top-k must be > 0, got %d", c.Lookup.TopK))
	}
	switch c.LogMode {
	case "dev", "prod", "quiet":
	default:
		errs = append(errs, fmt.Errorf("unknown log mode %q", c.LogMode))
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s=%q is not a number", key, v)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s=%q is not a boolean", key, v)
	}
	*dst = b
	return nil
}

package internal

import (
	"fmt"
	"strings"
	"time"
)

const (
	StoreBadger = "badger"
	StoreSqlite = "sqlite"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=5000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	StoreDriver    string        `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath string        `env:"BADGER_FILEPATH,default=./data/badger"`
	SqliteFilepath string        `env:"SQLITE_FILEPATH,default=./data/batepapo.db"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT,default=5s"`

	SweepInterval     time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	InactivityTimeout time.Duration `env:"INACTIVITY_TIMEOUT,default=10s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=5s"`

	ModerationWords           string `env:"MODERATION_WORDS"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	GrpcHealthPort int `env:"GRPC_HEALTH_PORT,default=0"`
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreBadger, StoreSqlite:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreBadger, StoreSqlite, c.StoreDriver)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.InactivityTimeout <= 0 {
		return fmt.Errorf("INACTIVITY_TIMEOUT must be positive, got %s", c.InactivityTimeout)
	}
	if c.RestartInterval <= 0 {
		return fmt.Errorf("RESTART_INTERVAL must be positive, got %s", c.RestartInterval)
	}
	if c.MetricInterval <= 0 {
		return fmt.Errorf("METRIC_INTERVAL must be positive, got %s", c.MetricInterval)
	}
	if _, err := CharacterRune(c.ModerationCharReplacement); err != nil {
		return err
	}
	return nil
}

// CensoredWords splits the comma separated MODERATION_WORDS setting.
func (c Config) CensoredWords() []string {
	var words []string
	for _, w := range strings.Split(c.ModerationWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

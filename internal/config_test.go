package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal(5000, config.Port)
	req.Equal(StoreBadger, config.StoreDriver)
	req.Equal(15*time.Second, config.SweepInterval)
	req.Equal(10*time.Second, config.InactivityTimeout)
	req.NoError(config.Validate())
}

func TestConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("INACTIVITY_TIMEOUT", "30s")
	t.Setenv("MODERATION_WORDS", " abacaxi, ,jiboia ")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal(StoreSqlite, config.StoreDriver)
	req.Equal(time.Minute, config.SweepInterval)
	req.Equal(30*time.Second, config.InactivityTimeout)
	req.Equal([]string{"abacaxi", "jiboia"}, config.CensoredWords())
	req.NoError(config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	base := Config{
		StoreDriver:               StoreBadger,
		SweepInterval:             time.Second,
		InactivityTimeout:         time.Second,
		RestartInterval:           time.Second,
		MetricInterval:            time.Second,
		ModerationCharReplacement: "*",
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }},
		{name: "zero sweep interval", mutate: func(c *Config) { c.SweepInterval = 0 }},
		{name: "negative inactivity timeout", mutate: func(c *Config) { c.InactivityTimeout = -time.Second }},
		{name: "zero restart interval", mutate: func(c *Config) { c.RestartInterval = 0 }},
		{name: "multi character replacement", mutate: func(c *Config) { c.ModerationCharReplacement = "**" }},
	}

	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

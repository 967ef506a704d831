package config

import (
	"flag"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("pos", flag.ContinueOnError)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	conf, err := loadConfig(newFlagSet(), []string{"-s", "memory"})
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", conf.RunAddress)
	assert.Equal(t, StorageMemory, conf.Storage)
	assert.Equal(t, 3*time.Second, conf.StorageTimeout)
	assert.True(t, conf.ParsedTaxRate().Equal(decimal.RequireFromString("0.08")))
	assert.Empty(t, conf.KafkaBrokers)
	assert.NotContains(t, conf.String(), "secret")
}

func TestLoadConfigEnvOverFlags(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RUN_ADDRESS", ":9000")
	t.Setenv("DATABASE_URI", "postgres://pos@localhost/pos")
	t.Setenv("TAX_RATE", "0.16")
	t.Setenv("STORAGE_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	conf, err := loadConfig(newFlagSet(), []string{"-a", ":8000", "-k", "flag:9092", "-t", "0.10"})
	require.NoError(t, err)

	assert.Equal(t, ":9000", conf.RunAddress)
	assert.Equal(t, StoragePostgres, conf.Storage)
	assert.Equal(t, 5*time.Second, conf.StorageTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, conf.KafkaBrokers)
	assert.True(t, conf.ParsedTaxRate().Equal(decimal.RequireFromString("0.16")))
}

func TestLoadConfigZeroTaxRate(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TAX_RATE", "0")

	conf, err := loadConfig(newFlagSet(), []string{"-s", "memory"})
	require.NoError(t, err)
	assert.True(t, conf.ParsedTaxRate().IsZero())
}

func TestLoadConfigInvalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "postgres without dsn", env: map[string]string{"JWT_SECRET": "s"}},
		{name: "unknown storage", env: map[string]string{"JWT_SECRET": "s"}, args: []string{"-s", "mongo"}},
		{name: "no jwt secret", args: []string{"-s", "memory"}},
		{name: "tax rate out of range", env: map[string]string{"JWT_SECRET": "s", "TAX_RATE": "1.5"}, args: []string{"-s", "memory"}},
		{name: "tax rate not a number", env: map[string]string{"JWT_SECRET": "s", "TAX_RATE": "eight"}, args: []string{"-s", "memory"}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(newFlagSet(), tt.args)
			assert.Error(t, err)
		})
	}
}

package config_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreDriverMemory, cfg.Store.Driver)
	rate, err := cfg.Ledger.TaxRateDecimal()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.10")))
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, "SALE", cfg.Ledger.SaleNumberPrefix)
	assert.Equal(t, 6, cfg.Ledger.SaleNumberWidth)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_EnvTienePrioridad(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MONGO")
	t.Setenv("LEDGER_TAX_RATE", "0.19")
	t.Setenv("LEDGER_MAX_RETRIES", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("MONGO_TRANSACTIONS", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, "0.19", cfg.Ledger.TaxRate)
	assert.Equal(t, 5, cfg.Ledger.MaxRetries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Mongo.Transactions)
}

func TestLoad_TasaInvalidaFalla(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LEDGER_TAX_RATE", "diez")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_TAX_RATE")
}

func TestLoad_DriverDesconocidoFalla(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := config.Load()
	require.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/w", DBName: "macanudo", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fw@db:5432/macanudo?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}

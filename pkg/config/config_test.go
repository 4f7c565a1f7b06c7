package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "COP", cfg.Procurement.DefaultCurrency)
	assert.Equal(t, []string{"admin", "compras", "bodeguero"}, cfg.Procurement.WriteRoles)
	assert.Equal(t, 30*time.Second, cfg.Procurement.ReceiptLockTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.DB.AutoMigrate)
	assert.Equal(t, 50, cfg.Outbox.BatchSize)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("PROCUREMENT_DEFAULT_CURRENCY", "usd")
	v.Set("PROCUREMENT_WRITE_ROLES", " admin , jefe_compras ,")
	v.Set("REDIS_ADDR", "localhost:6379")
	v.Set("OUTBOX_POLL_SECONDS", "3")
	v.Set("DB_AUTO_MIGRATE", "false")
	v.Set("DB_PORT", "no-numero")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.Procurement.DefaultCurrency)
	assert.Equal(t, []string{"admin", "jefe_compras"}, cfg.Procurement.WriteRoles)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Outbox.PollInterval)
	assert.False(t, cfg.DB.AutoMigrate)
	assert.Equal(t, 5432, cfg.DB.Port)
}

func TestFromViper_RejectsEmptyRoles(t *testing.T) {
	v := viper.New()
	v.Set("PROCUREMENT_WRITE_ROLES", " , ")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/x?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}

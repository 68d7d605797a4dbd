package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestUnmarshal_Defaults(t *testing.T) {
	cfg, err := unmarshal(newTestViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 3010, cfg.API.Port)
	assert.Equal(t, "http://localhost:3011/api/v1", cfg.KITrading.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.KITrading.Timeout)
	assert.Equal(t, 30, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrency)
	assert.Equal(t, "ohlcv_data", cfg.TimeSeries.Table)
}

func TestUnmarshal_FileAndEnv(t *testing.T) {
	t.Setenv("SCHEDULER_MAX_CONCURRENCY", "8")

	cfg, err := unmarshal(newTestViper(t, `
scheduler:
  interval_minutes: 15
kitrading:
  timeout: 30s
api:
  allowed_origins: ["http://localhost:3000"]
`))
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, 8, cfg.Scheduler.MaxConcurrency)
	assert.Equal(t, 30*time.Second, cfg.KITrading.Timeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.AllowedOrigins)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "interval below minimum",
			yaml:    "scheduler:\n  interval_minutes: 1\n",
			wantErr: "scheduler.interval_minutes",
		},
		{
			name:    "interval above maximum",
			yaml:    "scheduler:\n  interval_minutes: 2000\n",
			wantErr: "scheduler.interval_minutes",
		},
		{
			name:    "zero concurrency",
			yaml:    "scheduler:\n  max_concurrency: 0\n",
			wantErr: "scheduler.max_concurrency",
		},
		{
			name:    "table name with injection",
			yaml:    "timeseries:\n  table: \"ohlcv; drop table x\"\n",
			wantErr: "timeseries.table",
		},
		{
			name: "schema qualified table is fine",
			yaml: "timeseries:\n  table: market.ohlcv_data\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unmarshal(newTestViper(t, tt.yaml))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabase_DSN(t *testing.T) {
	db := Database{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable", TimeZone: "UTC"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", db.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", db.MigrateURL())
}

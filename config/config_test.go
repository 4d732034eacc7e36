package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, time.Minute, cfg.Leaderboard.CacheTTL)
	assert.False(t, cfg.Catalogue.Strict)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "admin", cfg.Admin.ActorID)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/points")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LEADERBOARD_CACHE_TTL", "5m")
	t.Setenv("LEADERBOARD_REFRESH_INTERVAL", "0s")
	t.Setenv("CATALOGUE_STRICT", "true")
	t.Setenv("REDIS_DISABLED", "yes-please")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 5*time.Minute, cfg.Leaderboard.CacheTTL)
	assert.Zero(t, cfg.Leaderboard.RefreshInterval)
	assert.True(t, cfg.Catalogue.Strict)
	assert.Empty(t, cfg.Storage.MigrateCommand)
	// unparseable booleans fall back to the default
	assert.False(t, cfg.Redis.Disabled)
}

func TestLoad_MigrateCommand(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/points")
	t.Setenv("DB_MIGRATE_COMMAND", "STATUS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MigrateStatus, cfg.Storage.MigrateCommand)

	t.Setenv("DB_MIGRATE_COMMAND", "sideways")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MIGRATE_COMMAND")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:         AppConfig{Environment: EnvDevelopment},
			HTTP:        HTTPConfig{Port: 8080},
			Storage:     StorageConfig{Driver: DriverMemory},
			Leaderboard: LeaderboardConfig{CacheTTL: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: "STORAGE_DRIVER"},
		{name: "postgres without url", mutate: func(c *Config) { c.Storage.Driver = DriverPostgres }, wantErr: "DATABASE_URL"},
		{name: "bad port", mutate: func(c *Config) { c.HTTP.Port = 0 }, wantErr: "HTTP_PORT"},
		{name: "zero ttl", mutate: func(c *Config) { c.Leaderboard.CacheTTL = 0 }, wantErr: "LEADERBOARD_CACHE_TTL"},
		{name: "plain admin token", mutate: func(c *Config) { c.Admin.TokenHash = "secret" }, wantErr: "bcrypt"},
		{name: "unknown env", mutate: func(c *Config) { c.App.Environment = "qa" }, wantErr: "APP_ENV"},
		{name: "unknown migrate command", mutate: func(c *Config) {
			c.Storage.Driver = DriverPostgres
			c.Storage.DatabaseURL = "postgres://localhost/points"
			c.Storage.MigrateCommand = "redo"
		}, wantErr: "DB_MIGRATE_COMMAND"},
		{name: "migrate command on memory", mutate: func(c *Config) { c.Storage.MigrateCommand = MigrateStatus }, wantErr: "requires the postgres driver"},
		{name: "migrate down on postgres", mutate: func(c *Config) {
			c.Storage.Driver = DriverPostgres
			c.Storage.DatabaseURL = "postgres://localhost/points"
			c.Storage.MigrateCommand = MigrateDown
		}},
		{
			name: "memory in production",
			mutate: func(c *Config) {
				c.App.Environment = EnvProduction
				c.Admin.TokenHash = "$2a$10$abcdefghijklmnopqrstuv"
			},
			wantErr: "not allowed in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

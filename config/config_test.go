package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DISCORD_TOKEN", "BOT_TOKEN", "DATABASE_URL", "DATABASE_SSL_VERIFY",
	"SYNC_GUILD_ID", "LOG_CHANNEL_ID", "PORT", "DB_MAX_ATTEMPTS",
	"DB_RETRY_BASE_DELAY", "DB_RETRY_MAX_DELAY", "AGGREGATE_REFRESH_INTERVAL",
}

// clearEnv unsets every key Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.BotToken)
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.DatabaseSSLVerify)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 8, cfg.DBMaxAttempts)
	assert.Equal(t, time.Second, cfg.DBRetryBaseDelay)
	assert.Equal(t, 30*time.Second, cfg.DBRetryMaxDelay)
	assert.Equal(t, 10*time.Minute, cfg.AggregateRefreshInterval)
}

func TestLoadMissingToken(t *testing.T) {
	clearEnv(t)
	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoadLegacyTokenFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "legacy")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.BotToken)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://db.example/app")
	t.Setenv("DATABASE_SSL_VERIFY", "false")
	t.Setenv("PORT", "9000")
	t.Setenv("DB_RETRY_BASE_DELAY", "250ms")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db.example/app", cfg.DatabaseURL)
	assert.False(t, cfg.DatabaseSSLVerify)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.DBRetryBaseDelay)
}

func TestLoadFlagsWinOverEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("PORT", "9000")

	cfg, err := Load([]string{"--port", "7000", "--sync-guild-id", "42"})
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "42", cfg.SyncGuildID)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bot.env")
	require.NoError(t, os.WriteFile(path, []byte("DISCORD_TOKEN=from-file\nLOG_CHANNEL_ID=99\n"), 0o600))

	cfg, err := Load([]string{"--env-file", path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.BotToken)
	assert.Equal(t, "99", cfg.LogChannelID)
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := Load([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")})
	assert.Error(t, err)
}

func TestLoadBadFlag(t *testing.T) {
	clearEnv(t)
	_, err := Load([]string{"--no-such-flag"})
	assert.Error(t, err)
}

package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"personal-channel-bot/model"
)

// ErrMissingToken is returned when neither DISCORD_TOKEN nor BOT_TOKEN is set.
var ErrMissingToken = errors.New("config: DISCORD_TOKEN environment variable not set")

const (
	keyToken             = "discord_token"
	keyLegacyToken       = "bot_token"
	keyDatabaseURL       = "database_url"
	keySSLVerify         = "database_ssl_verify"
	keySyncGuild         = "sync_guild_id"
	keyLogChannel        = "log_channel_id"
	keyPort              = "port"
	keyDBMaxAttempts     = "db_max_attempts"
	keyDBRetryBaseDelay  = "db_retry_base_delay"
	keyDBRetryMaxDelay   = "db_retry_max_delay"
	keyAggregateInterval = "aggregate_refresh_interval"
)

// Load resolves the configuration from flags, an optional .env file and the
// environment. Flags win over the environment, which wins over defaults.
func Load(args []string) (*model.Config, error) {
	fs := pflag.NewFlagSet("personal-channel-bot", pflag.ContinueOnError)
	envFile := fs.String("env-file", "", "path of a .env file to load (default .env if present)")
	fs.Int(keyPort, 8080, "port of the liveness endpoint")
	fs.String("sync-guild-id", "", "register commands on this guild only")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", *envFile, err)
		}
	} else if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	v := viper.New()
	v.SetDefault(keySSLVerify, true)
	v.SetDefault(keyPort, 8080)
	v.SetDefault(keyDBMaxAttempts, 8)
	v.SetDefault(keyDBRetryBaseDelay, "1s")
	v.SetDefault(keyDBRetryMaxDelay, "30s")
	v.SetDefault(keyAggregateInterval, "10m")
	v.AutomaticEnv()
	if err := v.BindPFlag(keyPort, fs.Lookup(keyPort)); err != nil {
		return nil, err
	}
	if err := v.BindPFlag(keySyncGuild, fs.Lookup("sync-guild-id")); err != nil {
		return nil, err
	}

	token := v.GetString(keyToken)
	if token == "" {
		token = v.GetString(keyLegacyToken)
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	cfg := &model.Config{
		BotToken:                 token,
		DatabaseURL:              v.GetString(keyDatabaseURL),
		DatabaseSSLVerify:        v.GetBool(keySSLVerify),
		SyncGuildID:              v.GetString(keySyncGuild),
		LogChannelID:             v.GetString(keyLogChannel),
		Port:                     v.GetInt(keyPort),
		DBMaxAttempts:            v.GetInt(keyDBMaxAttempts),
		DBRetryBaseDelay:         v.GetDuration(keyDBRetryBaseDelay),
		DBRetryMaxDelay:          v.GetDuration(keyDBRetryMaxDelay),
		AggregateRefreshInterval: v.GetDuration(keyAggregateInterval),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, persistence features will be unavailable")
	}
	if cfg.LogChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, channel logging will be disabled")
	}
	if cfg.DBMaxAttempts < 1 {
		cfg.DBMaxAttempts = 1
	}
	return cfg, nil
}

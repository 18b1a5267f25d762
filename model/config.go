package model

import "time"

// Config holds the process configuration resolved at startup.
type Config struct {
	BotToken string
	// DatabaseURL is optional; without it persistence stays degraded.
	DatabaseURL       string
	DatabaseSSLVerify bool
	// SyncGuildID registers commands on one guild for instant updates.
	SyncGuildID  string
	LogChannelID string
	Port         int

	DBMaxAttempts            int
	DBRetryBaseDelay         time.Duration
	DBRetryMaxDelay          time.Duration
	AggregateRefreshInterval time.Duration
}

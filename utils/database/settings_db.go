package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"personal-channel-bot/model"
)

// SettingField names a CommunityConfig column that administrators may set.
type SettingField int

const (
	SettingNickChannel SettingField = iota + 1
	SettingCreateChannel
)

func (f SettingField) String() string {
	switch f {
	case SettingNickChannel:
		return "nick_channel"
	case SettingCreateChannel:
		return "create_channel"
	default:
		return fmt.Sprintf("SettingField(%d)", int(f))
	}
}

var settingUpdates = map[SettingField]string{
	SettingNickChannel:   `UPDATE guild_settings SET nick_channel_id = ? WHERE guild_id = ?`,
	SettingCreateChannel: `UPDATE guild_settings SET create_channel_id = ? WHERE guild_id = ?`,
}

const ensureGuildRow = `INSERT INTO guild_settings (guild_id) VALUES (?) ON CONFLICT (guild_id) DO NOTHING`

// GetCommunityConfig returns the configuration of a guild, or ErrNotFound.
func (s *Store) GetCommunityConfig(ctx context.Context, guildID int64) (*model.CommunityConfig, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var cfg model.CommunityConfig
	err = db.GetContext(ctx, &cfg, db.Rebind(`
		SELECT guild_id, nick_channel_id, create_channel_id, dashboard_channel_id, dashboard_message_id
		FROM guild_settings WHERE guild_id = ?`), guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for guild %d: %w", guildID, err)
	}
	return &cfg, nil
}

// SetCommunitySetting creates the guild row if needed and sets one field.
// A nil channelID clears the field.
func (s *Store) SetCommunitySetting(ctx context.Context, guildID int64, field SettingField, channelID *int64) error {
	stmt, ok := settingUpdates[field]
	if !ok {
		return fmt.Errorf("unknown setting %s", field)
	}
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(ensureGuildRow), guildID); err != nil {
		return fmt.Errorf("failed to create settings for guild %d: %w", guildID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), channelID, guildID); err != nil {
		return fmt.Errorf("failed to set %s for guild %d: %w", field, guildID, err)
	}
	return tx.Commit()
}

// SetAggregateTarget designates the aggregate dashboard channel of a guild
// and forgets the previously published message.
func (s *Store) SetAggregateTarget(ctx context.Context, guildID, channelID int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(ensureGuildRow), guildID); err != nil {
		return fmt.Errorf("failed to create settings for guild %d: %w", guildID, err)
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE guild_settings SET dashboard_channel_id = ?, dashboard_message_id = NULL
		WHERE guild_id = ?`), channelID, guildID)
	if err != nil {
		return fmt.Errorf("failed to set dashboard channel for guild %d: %w", guildID, err)
	}
	return tx.Commit()
}

// SetAggregateMessage records the last published aggregate message id.
func (s *Store) SetAggregateMessage(ctx context.Context, guildID int64, messageID *int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`UPDATE guild_settings SET dashboard_message_id = ? WHERE guild_id = ?`), messageID, guildID)
	if err != nil {
		return fmt.Errorf("failed to set dashboard message for guild %d: %w", guildID, err)
	}
	return nil
}

// ListAggregateTargets returns every guild with a designated aggregate channel.
func (s *Store) ListAggregateTargets(ctx context.Context) ([]model.AggregateDashboard, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var rows []model.CommunityConfig
	err = db.SelectContext(ctx, &rows, `
		SELECT guild_id, nick_channel_id, create_channel_id, dashboard_channel_id, dashboard_message_id
		FROM guild_settings WHERE dashboard_channel_id IS NOT NULL ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboard targets: %w", err)
	}
	targets := make([]model.AggregateDashboard, 0, len(rows))
	for _, r := range rows {
		targets = append(targets, model.AggregateDashboard{
			CommunityID:     r.CommunityID,
			TargetChannelID: *r.DashboardChannelID,
			LastMessageID:   r.DashboardMessageID,
		})
	}
	return targets, nil
}

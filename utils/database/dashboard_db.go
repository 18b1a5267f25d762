package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"personal-channel-bot/model"
)

// GetDashboardMessage returns the tracked dashboard message of channelID, or
// nil when none is tracked.
func (s *Store) GetDashboardMessage(ctx context.Context, channelID int64) (*int64, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var state model.DashboardState
	err = db.GetContext(ctx, &state, db.Rebind(`SELECT channel_id, message_id FROM dashboards WHERE channel_id = ?`), channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard of channel %d: %w", channelID, err)
	}
	return state.LastMessageID, nil
}

// SetDashboardMessage records messageID as the dashboard of channelID. A nil
// messageID clears it.
func (s *Store) SetDashboardMessage(ctx context.Context, channelID int64, messageID *int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO dashboards (channel_id, message_id) VALUES (?, ?)
		ON CONFLICT (channel_id) DO UPDATE SET message_id = excluded.message_id`), channelID, messageID)
	if err != nil {
		return fmt.Errorf("failed to set dashboard of channel %d: %w", channelID, err)
	}
	return nil
}

// PurgeChannel deletes the dashboard state, links and ownership of channelID
// in one transaction. Purging an unknown channel is a no-op.
func (s *Store) PurgeChannel(ctx context.Context, channelID int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM dashboards WHERE channel_id = ?`,
		`DELETE FROM blog WHERE channel_id = ?`,
		`DELETE FROM personal_channels WHERE channel_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), channelID); err != nil {
			return fmt.Errorf("failed to purge channel %d: %w", channelID, err)
		}
	}
	return tx.Commit()
}

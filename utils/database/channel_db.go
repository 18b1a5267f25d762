package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"personal-channel-bot/model"
)

const ownedChannelColumns = `channel_id, owner_id, guild_id`

// UpsertOwnedChannel records ch, overwriting owner and guild when the channel
// is already known. Returns ErrDuplicateOwner if the owner already has a
// different channel in the same guild.
func (s *Store) UpsertOwnedChannel(ctx context.Context, ch model.OwnedChannel) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO personal_channels (channel_id, owner_id, guild_id) VALUES (?, ?, ?)
		ON CONFLICT (channel_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			guild_id = excluded.guild_id`), ch.ChannelID, ch.OwnerID, ch.CommunityID)
	if isUniqueViolation(err) {
		return ErrDuplicateOwner
	}
	if err != nil {
		return fmt.Errorf("failed to upsert personal channel %d: %w", ch.ChannelID, err)
	}
	return nil
}

// OwnedChannelByOwner returns the channel owned by ownerID in guildID.
func (s *Store) OwnedChannelByOwner(ctx context.Context, guildID, ownerID int64) (*model.OwnedChannel, error) {
	return s.getOwnedChannel(ctx, `WHERE guild_id = ? AND owner_id = ?`, guildID, ownerID)
}

// LegacyOwnedChannelByOwner returns a channel of ownerID recorded before
// ownership was scoped per guild.
func (s *Store) LegacyOwnedChannelByOwner(ctx context.Context, ownerID int64) (*model.OwnedChannel, error) {
	return s.getOwnedChannel(ctx, `WHERE owner_id = ? AND guild_id IS NULL ORDER BY channel_id`, ownerID)
}

// OwnedChannelByID returns the ownership record of channelID.
func (s *Store) OwnedChannelByID(ctx context.Context, channelID int64) (*model.OwnedChannel, error) {
	return s.getOwnedChannel(ctx, `WHERE channel_id = ?`, channelID)
}

func (s *Store) getOwnedChannel(ctx context.Context, where string, args ...interface{}) (*model.OwnedChannel, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var ch model.OwnedChannel
	err = db.GetContext(ctx, &ch, db.Rebind(`SELECT `+ownedChannelColumns+` FROM personal_channels `+where+` LIMIT 1`), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get personal channel: %w", err)
	}
	return &ch, nil
}

// BackfillCommunity sets the guild of a legacy ownership row. Rows that
// already carry a guild are left untouched.
func (s *Store) BackfillCommunity(ctx context.Context, channelID, guildID int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`UPDATE personal_channels SET guild_id = ? WHERE channel_id = ? AND guild_id IS NULL`), guildID, channelID)
	if isUniqueViolation(err) {
		return ErrDuplicateOwner
	}
	if err != nil {
		return fmt.Errorf("failed to backfill guild for channel %d: %w", channelID, err)
	}
	return nil
}

// CountOwnedChannels returns how many personal channels guildID has.
func (s *Store) CountOwnedChannels(ctx context.Context, guildID int64) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(`SELECT COUNT(*) FROM personal_channels WHERE guild_id = ?`), guildID); err != nil {
		return 0, fmt.Errorf("failed to count personal channels for guild %d: %w", guildID, err)
	}
	return count, nil
}

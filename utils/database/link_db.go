package database

import (
	"context"
	"fmt"

	"personal-channel-bot/model"
)

// AddLink registers url on channelID, replacing the title if the link exists.
func (s *Store) AddLink(ctx context.Context, channelID int64, url string, title *string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(`
		INSERT INTO blog (channel_id, url, title) VALUES (?, ?, ?)
		ON CONFLICT (channel_id, url) DO UPDATE SET title = excluded.title`), channelID, url, title)
	if err != nil {
		return fmt.Errorf("failed to add link to channel %d: %w", channelID, err)
	}
	return nil
}

// RemoveLink deletes one link and reports whether it existed.
func (s *Store) RemoveLink(ctx context.Context, channelID int64, url string) (bool, error) {
	db, err := s.handle()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM blog WHERE channel_id = ? AND url = ?`), channelID, url)
	if err != nil {
		return false, fmt.Errorf("failed to remove link from channel %d: %w", channelID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for channel %d: %w", channelID, err)
	}
	return n > 0, nil
}

// ClearLinks deletes every link of channelID and returns how many were removed.
func (s *Store) ClearLinks(ctx context.Context, channelID int64) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM blog WHERE channel_id = ?`), channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear links of channel %d: %w", channelID, err)
	}
	return res.RowsAffected()
}

// ListLinks returns the links of channelID ordered by url.
func (s *Store) ListLinks(ctx context.Context, channelID int64) ([]model.LinkRecord, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var links []model.LinkRecord
	err = db.SelectContext(ctx, &links, db.Rebind(`SELECT channel_id, url, title FROM blog WHERE channel_id = ? ORDER BY url`), channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links of channel %d: %w", channelID, err)
	}
	return links, nil
}

// ListCommunityLinks returns every link in the personal channels of guildID,
// ordered by owner then url.
func (s *Store) ListCommunityLinks(ctx context.Context, guildID int64) ([]model.CommunityLink, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var links []model.CommunityLink
	err = db.SelectContext(ctx, &links, db.Rebind(`
		SELECT b.channel_id, b.url, b.title, p.owner_id
		FROM blog b
		JOIN personal_channels p ON p.channel_id = b.channel_id
		WHERE p.guild_id = ?
		ORDER BY p.owner_id, b.url`), guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links of guild %d: %w", guildID, err)
	}
	return links, nil
}

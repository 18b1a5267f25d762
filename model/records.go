package model

// CommunityConfig is the per-guild configuration row. All channel ids are
// optional until an administrator sets them.
type CommunityConfig struct {
	CommunityID        int64  `db:"guild_id"`
	NickChannelID      *int64 `db:"nick_channel_id"`
	CreateChannelID    *int64 `db:"create_channel_id"`
	DashboardChannelID *int64 `db:"dashboard_channel_id"`
	DashboardMessageID *int64 `db:"dashboard_message_id"`
}

// IsNickChannel reports whether channelID is the configured nickname channel.
func (c *CommunityConfig) IsNickChannel(channelID int64) bool {
	return c != nil && c.NickChannelID != nil && *c.NickChannelID == channelID
}

// IsCreateChannel reports whether channelID is the configured provisioning channel.
func (c *CommunityConfig) IsCreateChannel(channelID int64) bool {
	return c != nil && c.CreateChannelID != nil && *c.CreateChannelID == channelID
}

// OwnedChannel maps a personal channel to its owner. CommunityID is nil only
// for rows written before ownership was scoped per guild.
type OwnedChannel struct {
	ChannelID   int64  `db:"channel_id"`
	OwnerID     int64  `db:"owner_id"`
	CommunityID *int64 `db:"guild_id"`
}

// DefaultLinkLabel is shown for links registered without a title.
const DefaultLinkLabel = "Open"

// LinkRecord is one registered link of a personal channel.
type LinkRecord struct {
	ChannelID int64   `db:"channel_id"`
	URL       string  `db:"url"`
	Title     *string `db:"title"`
}

// DisplayTitle returns the title, or DefaultLinkLabel when none was set.
func (l LinkRecord) DisplayTitle() string {
	if l.Title == nil || *l.Title == "" {
		return DefaultLinkLabel
	}
	return *l.Title
}

// CommunityLink is a link joined with the owner of the channel it belongs to.
type CommunityLink struct {
	LinkRecord
	OwnerID int64 `db:"owner_id"`
}

// DashboardState tracks the trailing dashboard message of a channel.
type DashboardState struct {
	ChannelID     int64  `db:"channel_id"`
	LastMessageID *int64 `db:"message_id"`
}

// AggregateDashboard is the community-wide dashboard target set by an
// administrator.
type AggregateDashboard struct {
	CommunityID     int64
	TargetChannelID int64
	LastMessageID   *int64
}

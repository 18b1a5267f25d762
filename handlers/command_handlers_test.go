package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personal-channel-bot/commands/defs"
	"personal-channel-bot/utils"
	"personal-channel-bot/utils/database"
)

const adminPerms = int64(discordgo.PermissionManageGuild)

// withOwnedChannel registers channel 500 of guild 100 to user 7.
func withOwnedChannel(t *testing.T) *handlerFixture {
	t.Helper()
	f := newFixture(t, newSQLiteStore(t))
	require.NoError(t, f.h.Registry.Claim(context.Background(), 500, 7, 100))
	f.platform.addChannel("500", "100")
	return f
}

func TestCommandOutsideGuild(t *testing.T) {
	f := withOwnedChannel(t)
	i := command(defs.LinkClearName, "500", "7", 0)
	i.GuildID = ""

	f.h.HandleCommand(context.Background(), i)

	assert.Equal(t, "❌ "+msgGuildOnly, f.platform.lastResponse(t).Content)
}

func TestSettingsRequiresAdmin(t *testing.T) {
	f := withOwnedChannel(t)
	i := command(defs.SettingsName, "500", "7", 0, &discordgo.ApplicationCommandInteractionDataOption{
		Name:    defs.SettingsCreate,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{channelOpt(defs.OptionChannel, "201")},
	})

	f.h.HandleCommand(context.Background(), i)

	assert.Equal(t, "❌ "+msgNoPermission, f.platform.lastResponse(t).Content)
	_, err := f.store.GetCommunityConfig(context.Background(), 100)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSettingsStoresChannels(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)

	for sub, id := range map[string]string{defs.SettingsCreate: "201", defs.SettingsNick: "301"} {
		f.h.HandleCommand(ctx, command(defs.SettingsName, "500", "1", adminPerms, &discordgo.ApplicationCommandInteractionDataOption{
			Name:    sub,
			Type:    discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{channelOpt(defs.OptionChannel, id)},
		}))
		assert.Contains(t, f.platform.lastResponse(t).Content, "<#"+id+">")
	}

	cfg, err := f.store.GetCommunityConfig(ctx, 100)
	require.NoError(t, err)
	assert.True(t, cfg.IsCreateChannel(201))
	assert.True(t, cfg.IsNickChannel(301))
}

func TestLinkAddRejectsBadURL(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)

	f.h.HandleCommand(ctx, command(defs.LinkAddName, "500", "7", 0, stringOpt(defs.OptionURL, "ftp://files.example")))

	assert.Equal(t, "❌ "+msgBadURL, f.platform.lastResponse(t).Content)
	links, err := f.store.ListLinks(ctx, 500)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestLinkAddByOwnerPublishesDashboard(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)

	f.h.HandleCommand(ctx, command(defs.LinkAddName, "500", "7", 0,
		stringOpt(defs.OptionURL, "https://a.example"), stringOpt(defs.OptionTitle, "Home")))

	links, err := f.store.ListLinks(ctx, 500)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Home", links[0].DisplayTitle())

	sent := f.platform.sentTo("500")
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Data.Embeds, 1)
	assert.Contains(t, sent[0].Data.Embeds[0].Description, "🔗 [Home](https://a.example)")
}

func TestLinkAddPermissions(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)

	f.h.HandleCommand(ctx, command(defs.LinkAddName, "500", "8", 0, stringOpt(defs.OptionURL, "https://guest.example")))
	assert.Equal(t, "❌ "+msgOwnerOnly, f.platform.lastResponse(t).Content)

	f.h.HandleCommand(ctx, command(defs.LinkAddName, "500", "8", adminPerms, stringOpt(defs.OptionURL, "https://admin.example")))
	links, err := f.store.ListLinks(ctx, 500)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://admin.example", links[0].URL)
}

func TestLinkAddOutsidePersonalChannel(t *testing.T) {
	f := withOwnedChannel(t)

	f.h.HandleCommand(context.Background(), command(defs.LinkAddName, "501", "7", 0, stringOpt(defs.OptionURL, "https://a.example")))

	assert.Equal(t, "❌ "+msgNotPersonal, f.platform.lastResponse(t).Content)
}

func TestLinkCommandsWhileDegraded(t *testing.T) {
	f := newFixture(t, database.NewStore())

	f.h.HandleCommand(context.Background(), command(defs.LinkAddName, "500", "7", 0, stringOpt(defs.OptionURL, "https://a.example")))

	assert.Contains(t, f.platform.lastResponse(t).Content, utils.UnavailableMessage)
}

func TestLinkRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)
	require.NoError(t, f.store.AddLink(ctx, 500, "https://a.example", nil))
	require.NoError(t, f.store.AddLink(ctx, 500, "https://b.example", nil))
	require.NoError(t, f.store.AddLink(ctx, 500, "https://c.example", nil))

	f.h.HandleCommand(ctx, command(defs.LinkRemoveName, "500", "7", 0, stringOpt(defs.OptionURL, "https://missing.example")))
	assert.Contains(t, f.platform.lastResponse(t).Content, "not registered")

	f.h.HandleCommand(ctx, command(defs.LinkRemoveName, "500", "7", 0, stringOpt(defs.OptionURL, "https://a.example")))
	assert.Equal(t, "Link removed.", f.platform.lastResponse(t).Content)
	links, err := f.store.ListLinks(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	f.h.HandleCommand(ctx, command(defs.LinkClearName, "500", "7", 0))
	assert.Equal(t, "Removed 2 link(s).", f.platform.lastResponse(t).Content)
	links, err = f.store.ListLinks(ctx, 500)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestDashboardPublishesAggregate(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)
	require.NoError(t, f.store.AddLink(ctx, 500, "https://a.example", ptr("Home")))

	f.h.HandleCommand(ctx, command(defs.DashboardName, "500", "7", 0, channelOpt(defs.OptionChannel, "600")))
	assert.Equal(t, "❌ "+msgNoPermission, f.platform.lastResponse(t).Content)
	assert.Empty(t, f.platform.sentTo("600"))

	f.h.HandleCommand(ctx, command(defs.DashboardName, "500", "1", adminPerms, channelOpt(defs.OptionChannel, "600")))
	assert.Contains(t, f.platform.lastResponse(t).Content, "<#600>")
	sent := f.platform.sentTo("600")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Data.Embeds[0].Description, "🔗 [Home](https://a.example) · <@7>")

	cfg, err := f.store.GetCommunityConfig(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, cfg.DashboardChannelID)
	assert.Equal(t, int64(600), *cfg.DashboardChannelID)
}

func TestChannelDeleteByOwner(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)
	require.NoError(t, f.store.AddLink(ctx, 500, "https://a.example", nil))

	f.h.HandleCommand(ctx, command(defs.ChannelDeleteName, "500", "7", 0))

	assert.Contains(t, f.platform.lastResponse(t).Content, "3 seconds")
	assert.Equal(t, []time.Duration{defaultDeleteDelay}, f.sleeps)
	assert.Equal(t, []string{"500"}, f.platform.deletedChannels)
	_, ok := f.h.Registry.FindOwner(ctx, 500)
	assert.False(t, ok)
	links, err := f.store.ListLinks(ctx, 500)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestChannelDeleteOnlyByOwner(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)

	f.h.HandleCommand(ctx, command(defs.ChannelDeleteName, "500", "8", adminPerms))

	assert.Equal(t, "❌ "+msgOwnChannelOnly, f.platform.lastResponse(t).Content)
	assert.Empty(t, f.platform.deletedChannels)
	_, ok := f.h.Registry.FindOwner(ctx, 500)
	assert.True(t, ok)
}

func TestOwnershipClear(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)

	f.h.HandleCommand(ctx, command(defs.OwnershipClearName, "900", "1", adminPerms, userOpt(defs.OptionUser, "7")))

	assert.Contains(t, f.platform.lastResponse(t).Content, "<#500>")
	_, ok := f.h.Registry.FindByOwner(ctx, 100, 7)
	assert.False(t, ok)
	assert.Empty(t, f.platform.deletedChannels)

	f.h.HandleCommand(ctx, command(defs.OwnershipClearName, "900", "1", adminPerms, userOpt(defs.OptionUser, "7")))
	assert.Contains(t, f.platform.lastResponse(t).Content, "no personal channel")
}

func TestStatusReportsStoreMode(t *testing.T) {
	ctx := context.Background()
	f := withOwnedChannel(t)

	f.h.HandleCommand(ctx, command(defs.StatusName, "500", "1", adminPerms))
	data := f.platform.lastResponse(t)
	require.Len(t, data.Embeds, 1)
	fields := map[string]string{}
	for _, field := range data.Embeds[0].Fields {
		fields[field.Name] = field.Value
	}
	assert.Equal(t, "🟢 connected", fields["🗄️ Database"])
	assert.Equal(t, "1", fields["📁 Personal channels"])

	degraded := newFixture(t, database.NewStore())
	embed := degraded.h.statusEmbed(ctx, "100")
	assert.Equal(t, "🔴 degraded", embed.Fields[0].Value)
}

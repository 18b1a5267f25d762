package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"personal-channel-bot/registry"
	"personal-channel-bot/utils"
)

const onboardingMessage = "%s, your personal channel is ready.\n" +
	"- Other members can **read** but not post here.\n" +
	"- You can rename this channel yourself.\n" +
	"- Register links with `/link-add url:...`, remove them with `/link-remove` or `/link-clear`.\n" +
	"- `/channel-delete` removes this channel."

// HandleMessage routes an ordinary guild message to the nickname flow, the
// provisioning flow or the owned-channel dashboard refresh.
func (h *Handler) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	guildID, err := utils.ParseID(m.GuildID)
	if err != nil {
		return
	}
	channelID, err := utils.ParseID(m.ChannelID)
	if err != nil {
		return
	}

	cfg, _ := h.communityConfig(ctx, guildID)
	switch {
	case cfg.IsNickChannel(channelID):
		h.handleNickname(m)
	case cfg.IsCreateChannel(channelID):
		h.handleProvision(ctx, m, guildID)
	default:
		if _, ok := h.Registry.FindOwner(ctx, channelID); ok {
			if err := h.Reconciler.Reconcile(ctx, channelID); err != nil {
				log.Printf("dashboard: reconcile channel=%d err=%v", channelID, err)
			}
		}
	}
}

func (h *Handler) handleNickname(m *discordgo.Message) {
	// A blank request becomes a single space; the platform rejects "".
	nick := utils.SanitizeNick(m.Content)
	err := h.Platform.GuildMemberNickname(m.GuildID, m.Author.ID, nick)
	if err == nil {
		log.Printf("nickname: updated guild=%s user=%s", m.GuildID, m.Author.ID)
	} else if err := utils.BestEffort("nickname", err, utils.TransientPlatformErrors...); err != nil {
		log.Printf("nickname: update failed guild=%s user=%s err=%v", m.GuildID, m.Author.ID, err)
	}

	h.react(m, emojiSuccess)
	h.sleep(h.AckDelay)
	err = h.Platform.ChannelMessageDelete(m.ChannelID, m.ID)
	if err := utils.BestEffort("nickname cleanup", err, utils.TransientPlatformErrors...); err != nil {
		log.Printf("nickname: cleanup failed channel=%s message=%s err=%v", m.ChannelID, m.ID, err)
	}
}

func (h *Handler) handleProvision(ctx context.Context, m *discordgo.Message, guildID int64) {
	ownerID, err := utils.ParseID(m.Author.ID)
	if err != nil {
		return
	}
	mention := m.Author.Mention()

	if !h.Registry.Available() {
		h.react(m, emojiFailure)
		h.reply(m, mention+" "+utils.UnavailableMessage)
		return
	}

	unlock := h.Locks.Lock(utils.ProvisionKey(guildID, ownerID))
	defer unlock()

	if existing, ok := h.Registry.FindByOwner(ctx, guildID, ownerID); ok {
		h.react(m, emojiFailure)
		if _, err := h.Platform.Channel(utils.FormatID(existing)); utils.IsNotFound(err) {
			h.reply(m, mention+" you already have a personal channel on record, but it no longer exists. "+
				"`/channel-delete` needs the channel itself, so ask an administrator to run `/ownership-clear` first.")
		} else {
			h.reply(m, fmt.Sprintf("%s you already have a personal channel: %s", mention, utils.ChannelMention(existing)))
		}
		return
	}

	source := m.Content
	if strings.TrimSpace(source) == "" {
		source = m.Author.Username + "-channel"
	}
	name := utils.Slugify(source)

	channel, err := h.Platform.GuildChannelCreateComplex(m.GuildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: h.channelOverwrites(m.GuildID, m.Author.ID),
	})
	if err != nil {
		log.Printf("provision: create channel failed guild=%d owner=%d kind=%s err=%v", guildID, ownerID, utils.ClassifyPlatformError(err), err)
		h.Log.LogError("provision", "create channel", fmt.Sprintf("guild=%d owner=%d err=%v", guildID, ownerID, err))
		h.react(m, emojiFailure)
		h.reply(m, mention+" I could not create your channel. Please ask an administrator to check my permissions.")
		return
	}
	channelID, err := utils.ParseID(channel.ID)
	if err != nil {
		return
	}

	if err := h.Registry.Claim(ctx, channelID, ownerID, guildID); err != nil {
		log.Printf("provision: claim failed channel=%d owner=%d err=%v", channelID, ownerID, err)
		_, delErr := h.Platform.ChannelDelete(channel.ID)
		if delErr := utils.BestEffort("provision rollback", delErr, utils.TransientPlatformErrors...); delErr != nil {
			log.Printf("provision: rollback failed channel=%d err=%v", channelID, delErr)
		}
		h.react(m, emojiFailure)
		switch {
		case errors.Is(err, registry.ErrAlreadyOwned):
			h.reply(m, mention+" you already have a personal channel in this server.")
		case errors.Is(err, registry.ErrStoreUnavailable):
			h.reply(m, mention+" "+utils.UnavailableMessage)
		default:
			h.reply(m, mention+" something went wrong while recording your channel. Please try again.")
		}
		return
	}

	_, err = h.Platform.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content:         fmt.Sprintf(onboardingMessage, mention),
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{m.Author.ID}},
	})
	if err := utils.BestEffort("onboarding", err, utils.TransientPlatformErrors...); err != nil {
		log.Printf("provision: onboarding message failed channel=%d err=%v", channelID, err)
	}
	h.react(m, emojiSuccess)
	log.Printf("provision: created channel=%d name=%s guild=%d owner=%d", channelID, name, guildID, ownerID)
	h.Log.LogInfo("provision", "create channel", fmt.Sprintf("%s for %s", utils.ChannelMention(channelID), mention))
}

// channelOverwrites makes a channel readable by everyone, writable and
// manageable by its owner, and moderated by the bot.
func (h *Handler) channelOverwrites(guildID, ownerID string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// The @everyone role shares the guild's id.
			ID:    guildID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel,
			Deny:  discordgo.PermissionSendMessages,
		},
		{
			ID:    ownerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels,
		},
	}
	if botID := h.botID(); botID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:   botID,
			Type: discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages |
				discordgo.PermissionManageChannels | discordgo.PermissionManageMessages,
		})
	}
	return overwrites
}

func (h *Handler) react(m *discordgo.Message, emoji string) {
	err := h.Platform.MessageReactionAdd(m.ChannelID, m.ID, emoji)
	if err := utils.BestEffort("reaction", err, utils.TransientPlatformErrors...); err != nil {
		log.Printf("router: reaction failed channel=%s message=%s err=%v", m.ChannelID, m.ID, err)
	}
}

func (h *Handler) reply(m *discordgo.Message, content string) {
	_, err := h.Platform.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:         content,
		Reference:       m.SoftReference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{m.Author.ID}},
	})
	if err := utils.BestEffort("reply", err, utils.TransientPlatformErrors...); err != nil {
		log.Printf("router: reply failed channel=%s err=%v", m.ChannelID, err)
	}
}

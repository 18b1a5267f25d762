package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"personal-channel-bot/commands/defs"
	"personal-channel-bot/utils"
	"personal-channel-bot/utils/database"
)

var linkPattern = regexp.MustCompile(`(?i)^https?://\S+$`)

const (
	msgNoPermission     = "You do not have permission to use this command."
	msgNotPersonal      = "This is not a personal channel."
	msgOwnerOnly        = "Only the owner of this channel can manage its links."
	msgOwnChannelOnly   = "You can only use this command in your own personal channel."
	msgBadURL           = "The URL must start with http:// or https://."
	msgGuildOnly        = "This command can only be used in a server."
	msgUnexpectedFailed = "Something went wrong. Please try again later."
)

// commandTable maps command names to their handlers.
func (h *Handler) commandTable() map[string]func(ctx context.Context, i *discordgo.InteractionCreate) {
	return map[string]func(ctx context.Context, i *discordgo.InteractionCreate){
		defs.SettingsName:       h.handleSettings,
		defs.LinkAddName:        h.handleLinkAdd,
		defs.LinkRemoveName:     h.handleLinkRemove,
		defs.LinkClearName:      h.handleLinkClear,
		defs.DashboardName:      h.handleDashboard,
		defs.ChannelDeleteName:  h.handleChannelDelete,
		defs.OwnershipClearName: h.handleOwnershipClear,
		defs.StatusName:         h.handleStatus,
	}
}

// HandleCommand dispatches an application command interaction.
func (h *Handler) HandleCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	handler, ok := h.commandTable()[name]
	if !ok {
		log.Printf("command: unknown command name=%s", name)
		return
	}
	if i.GuildID == "" || i.Member == nil {
		utils.SendErrorResponse(h.Platform, i, msgGuildOnly)
		return
	}
	handler(ctx, i)
}

type commandContext struct {
	guildID   int64
	channelID int64
	userID    int64
}

func (h *Handler) resolveContext(i *discordgo.InteractionCreate) (commandContext, bool) {
	guildID, err := utils.ParseID(i.GuildID)
	if err != nil {
		return commandContext{}, false
	}
	channelID, err := utils.ParseID(i.ChannelID)
	if err != nil {
		return commandContext{}, false
	}
	var userID int64
	if i.Member != nil && i.Member.User != nil {
		userID, _ = utils.ParseID(i.Member.User.ID)
	}
	return commandContext{guildID: guildID, channelID: channelID, userID: userID}, true
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

// requireStore answers with the unavailable message when the store is down.
func (h *Handler) requireStore(i *discordgo.InteractionCreate) bool {
	if h.Store.Available() {
		return true
	}
	utils.SendUnavailableResponse(h.Platform, i)
	return false
}

func (h *Handler) requireAdmin(i *discordgo.InteractionCreate) bool {
	if utils.IsAdmin(i.Member) {
		return true
	}
	utils.SendErrorResponse(h.Platform, i, msgNoPermission)
	return false
}

// respondStoreError turns a store failure into a specific reply.
func (h *Handler) respondStoreError(i *discordgo.InteractionCreate, op string, err error) {
	if errors.Is(err, database.ErrStoreUnavailable) {
		utils.SendUnavailableResponse(h.Platform, i)
		return
	}
	log.Printf("command: %s failed: %v", op, err)
	h.Log.LogError("command", op, err.Error())
	utils.SendErrorResponse(h.Platform, i, msgUnexpectedFailed)
}

func (h *Handler) handleSettings(ctx context.Context, i *discordgo.InteractionCreate) {
	if !h.requireAdmin(i) || !h.requireStore(i) {
		return
	}
	cc, ok := h.resolveContext(i)
	if !ok {
		return
	}
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	opt, ok := optionMap(sub.Options)[defs.OptionChannel]
	if !ok {
		utils.SendErrorResponse(h.Platform, i, "Please choose a channel.")
		return
	}
	channelID, err := utils.ParseID(opt.ChannelValue(nil).ID)
	if err != nil {
		utils.SendErrorResponse(h.Platform, i, "Please choose a channel.")
		return
	}

	var field database.SettingField
	var label string
	switch sub.Name {
	case defs.SettingsNick:
		field, label = database.SettingNickChannel, "Nickname channel"
	case defs.SettingsCreate:
		field, label = database.SettingCreateChannel, "Personal channel creation channel"
	default:
		return
	}

	if err := h.Store.SetCommunitySetting(ctx, cc.guildID, field, &channelID); err != nil {
		h.respondStoreError(i, "settings", err)
		return
	}
	if cfg, err := h.Store.GetCommunityConfig(ctx, cc.guildID); err == nil {
		h.rememberConfig(*cfg)
	}
	log.Printf("settings: guild=%d %s=%d", cc.guildID, field, channelID)
	utils.SendSimpleResponse(h.Platform, i, fmt.Sprintf("%s set to %s.", label, utils.ChannelMention(channelID)))
}

// authorizeLinkChange checks that the caller may edit the links of the
// current channel and answers the interaction when not.
func (h *Handler) authorizeLinkChange(ctx context.Context, i *discordgo.InteractionCreate) (commandContext, bool) {
	if !h.requireStore(i) {
		return commandContext{}, false
	}
	cc, ok := h.resolveContext(i)
	if !ok {
		return commandContext{}, false
	}
	owner, ok := h.Registry.FindOwner(ctx, cc.channelID)
	if !ok {
		utils.SendErrorResponse(h.Platform, i, msgNotPersonal)
		return commandContext{}, false
	}
	if utils.CheckPermission(i.Member, owner) == utils.GuestPermission {
		utils.SendErrorResponse(h.Platform, i, msgOwnerOnly)
		return commandContext{}, false
	}
	return cc, true
}

func (h *Handler) handleLinkAdd(ctx context.Context, i *discordgo.InteractionCreate) {
	cc, ok := h.authorizeLinkChange(ctx, i)
	if !ok {
		return
	}
	opts := optionMap(i.ApplicationCommandData().Options)
	url := ""
	if o, ok := opts[defs.OptionURL]; ok {
		url = strings.TrimSpace(o.StringValue())
	}
	if !linkPattern.MatchString(url) {
		utils.SendErrorResponse(h.Platform, i, msgBadURL)
		return
	}
	var title *string
	if o, ok := opts[defs.OptionTitle]; ok {
		if t := strings.TrimSpace(o.StringValue()); t != "" {
			title = &t
		}
	}

	if err := h.Store.AddLink(ctx, cc.channelID, url, title); err != nil {
		h.respondStoreError(i, "link-add", err)
		return
	}
	log.Printf("links: added channel=%d url=%s", cc.channelID, url)
	utils.SendSimpleResponse(h.Platform, i, "Link registered. Refreshing the dashboard.")
	h.refreshDashboards(ctx, cc.guildID, cc.channelID)
}

func (h *Handler) handleLinkRemove(ctx context.Context, i *discordgo.InteractionCreate) {
	cc, ok := h.authorizeLinkChange(ctx, i)
	if !ok {
		return
	}
	url := ""
	if o, ok := optionMap(i.ApplicationCommandData().Options)[defs.OptionURL]; ok {
		url = strings.TrimSpace(o.StringValue())
	}

	removed, err := h.Store.RemoveLink(ctx, cc.channelID, url)
	if err != nil {
		h.respondStoreError(i, "link-remove", err)
		return
	}
	if !removed {
		utils.SendErrorResponse(h.Platform, i, "That link is not registered in this channel.")
		return
	}
	log.Printf("links: removed channel=%d url=%s", cc.channelID, url)
	utils.SendSimpleResponse(h.Platform, i, "Link removed.")
	h.refreshDashboards(ctx, cc.guildID, cc.channelID)
}

func (h *Handler) handleLinkClear(ctx context.Context, i *discordgo.InteractionCreate) {
	cc, ok := h.authorizeLinkChange(ctx, i)
	if !ok {
		return
	}
	n, err := h.Store.ClearLinks(ctx, cc.channelID)
	if err != nil {
		h.respondStoreError(i, "link-clear", err)
		return
	}
	log.Printf("links: cleared channel=%d count=%d", cc.channelID, n)
	utils.SendSimpleResponse(h.Platform, i, fmt.Sprintf("Removed %d link(s).", n))
	h.refreshDashboards(ctx, cc.guildID, cc.channelID)
}

func (h *Handler) handleDashboard(ctx context.Context, i *discordgo.InteractionCreate) {
	if !h.requireAdmin(i) || !h.requireStore(i) {
		return
	}
	cc, ok := h.resolveContext(i)
	if !ok {
		return
	}
	opt, ok := optionMap(i.ApplicationCommandData().Options)[defs.OptionChannel]
	if !ok {
		utils.SendErrorResponse(h.Platform, i, "Please choose a channel.")
		return
	}
	target, err := utils.ParseID(opt.ChannelValue(nil).ID)
	if err != nil {
		utils.SendErrorResponse(h.Platform, i, "Please choose a channel.")
		return
	}

	utils.SendSimpleResponse(h.Platform, i, fmt.Sprintf("Publishing the community dashboard to %s.", utils.ChannelMention(target)))
	if err := h.Reconciler.SetAggregateTarget(ctx, cc.guildID, target); err != nil {
		log.Printf("dashboard: set aggregate target guild=%d channel=%d err=%v", cc.guildID, target, err)
		h.Log.LogError("dashboard", "set target", fmt.Sprintf("guild=%d channel=%d err=%v", cc.guildID, target, err))
	}
}

func (h *Handler) handleChannelDelete(ctx context.Context, i *discordgo.InteractionCreate) {
	if !h.requireStore(i) {
		return
	}
	cc, ok := h.resolveContext(i)
	if !ok {
		return
	}
	owner, ok := h.Registry.FindOwner(ctx, cc.channelID)
	if !ok {
		utils.SendErrorResponse(h.Platform, i, msgNotPersonal)
		return
	}
	if owner != cc.userID {
		utils.SendErrorResponse(h.Platform, i, msgOwnChannelOnly)
		return
	}

	utils.SendSimpleResponse(h.Platform, i, fmt.Sprintf("This channel will be deleted in %d seconds.", int(h.DeleteDelay.Seconds())))
	h.sleep(h.DeleteDelay)

	if err := h.Registry.Release(ctx, cc.channelID); err != nil {
		log.Printf("channel-delete: purge failed channel=%d err=%v", cc.channelID, err)
		h.Log.LogError("channel-delete", "purge", fmt.Sprintf("channel=%d err=%v", cc.channelID, err))
		return
	}
	_, err := h.Platform.ChannelDelete(i.ChannelID)
	if err := utils.BestEffort("channel delete", err, utils.TransientPlatformErrors...); err != nil {
		log.Printf("channel-delete: delete failed channel=%d err=%v", cc.channelID, err)
	}
	log.Printf("channel-delete: channel=%d owner=%d", cc.channelID, owner)
	h.Log.LogInfo("channel-delete", "delete", fmt.Sprintf("channel=%d owner=%s", cc.channelID, utils.UserMention(owner)))
	h.refreshAggregate(ctx, cc.guildID)
}

func (h *Handler) handleOwnershipClear(ctx context.Context, i *discordgo.InteractionCreate) {
	if !h.requireAdmin(i) || !h.requireStore(i) {
		return
	}
	cc, ok := h.resolveContext(i)
	if !ok {
		return
	}
	opt, ok := optionMap(i.ApplicationCommandData().Options)[defs.OptionUser]
	if !ok {
		utils.SendErrorResponse(h.Platform, i, "Please choose a member.")
		return
	}
	target, err := utils.ParseID(opt.UserValue(nil).ID)
	if err != nil {
		utils.SendErrorResponse(h.Platform, i, "Please choose a member.")
		return
	}

	channelID, ok := h.Registry.FindByOwner(ctx, cc.guildID, target)
	if !ok {
		utils.SendErrorResponse(h.Platform, i, fmt.Sprintf("%s has no personal channel on record.", utils.UserMention(target)))
		return
	}
	if err := h.Registry.Release(ctx, channelID); err != nil {
		h.respondStoreError(i, "ownership-clear", err)
		return
	}
	log.Printf("ownership-clear: guild=%d owner=%d channel=%d", cc.guildID, target, channelID)
	h.Log.LogWarn("ownership-clear", "purge", fmt.Sprintf("channel=%d owner=%d by=%d", channelID, target, cc.userID))
	utils.SendSimpleResponse(h.Platform, i, fmt.Sprintf("Cleared the channel record %s of %s. The channel itself was left in place.",
		utils.ChannelMention(channelID), utils.UserMention(target)))
	h.refreshAggregate(ctx, cc.guildID)
}

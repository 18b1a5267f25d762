package commands

import (
	"personal-channel-bot/commands/defs"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns every slash command the bot registers.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Settings,
		defs.LinkAdd,
		defs.LinkRemove,
		defs.LinkClear,
		defs.Dashboard,
		defs.ChannelDelete,
		defs.OwnershipClear,
		defs.Status,
	}
}

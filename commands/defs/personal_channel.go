package defs

import "github.com/bwmarrin/discordgo"

// Command and option names shared with the interaction handlers.
const (
	SettingsName       = "settings"
	SettingsNick       = "nick-channel"
	SettingsCreate     = "create-channel"
	LinkAddName        = "link-add"
	LinkRemoveName     = "link-remove"
	LinkClearName      = "link-clear"
	DashboardName      = "dashboard"
	ChannelDeleteName  = "channel-delete"
	OwnershipClearName = "ownership-clear"
	StatusName         = "status"

	OptionChannel = "channel"
	OptionURL     = "url"
	OptionTitle   = "title"
	OptionUser    = "user"
)

var (
	adminPermissions int64 = discordgo.PermissionManageGuild
	guildOnly              = &[]discordgo.InteractionContextType{discordgo.InteractionContextGuild}
	textChannels           = []discordgo.ChannelType{discordgo.ChannelTypeGuildText}
)

func channelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         OptionChannel,
		Description:  description,
		ChannelTypes: textChannels,
		Required:     true,
	}
}

var Settings = &discordgo.ApplicationCommand{
	Name:        SettingsName,
	Description: "Configure the bot for this server (admin only)",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.Korean: "설정",
	},
	DefaultMemberPermissions: &adminPermissions,
	Contexts:                 guildOnly,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SettingsNick,
			Description: "Set the channel where members change their nickname",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.Korean: "닉네임 변경 채널을 지정합니다.",
			},
			Options: []*discordgo.ApplicationCommandOption{channelOption("Text channel used for nickname changes")},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SettingsCreate,
			Description: "Set the channel where members request a personal channel",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.Korean: "개인채널 생성 채널을 지정합니다.",
			},
			Options: []*discordgo.ApplicationCommandOption{channelOption("Text channel used to create personal channels")},
		},
	},
}

var LinkAdd = &discordgo.ApplicationCommand{
	Name:        LinkAddName,
	Description: "Register a link on this personal channel's dashboard",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Korean: "현재 개인 채널에 링크를 등록합니다.",
	},
	Contexts: guildOnly,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        OptionURL,
			Description: "Link address (https://...)",
			Required:    true,
			MaxLength:   512,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        OptionTitle,
			Description: "Label shown on the dashboard",
			Required:    false,
			MaxLength:   100,
		},
	},
}

var LinkRemove = &discordgo.ApplicationCommand{
	Name:        LinkRemoveName,
	Description: "Remove a link from this personal channel's dashboard",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Korean: "현재 개인 채널의 링크 등록을 해제합니다.",
	},
	Contexts: guildOnly,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        OptionURL,
			Description: "Link address to remove",
			Required:    true,
		},
	},
}

var LinkClear = &discordgo.ApplicationCommand{
	Name:        LinkClearName,
	Description: "Remove every link from this personal channel",
	Contexts:    guildOnly,
}

var Dashboard = &discordgo.ApplicationCommand{
	Name:                     DashboardName,
	Description:              "Publish the community link dashboard to a channel (admin only)",
	DefaultMemberPermissions: &adminPermissions,
	Contexts:                 guildOnly,
	Options: []*discordgo.ApplicationCommandOption{
		channelOption("Channel that shows every member's links"),
	},
}

var ChannelDelete = &discordgo.ApplicationCommand{
	Name:        ChannelDeleteName,
	Description: "Delete this personal channel (owner only)",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Korean: "현재 개인 채널을 삭제합니다.",
	},
	Contexts: guildOnly,
}

var OwnershipClear = &discordgo.ApplicationCommand{
	Name:                     OwnershipClearName,
	Description:              "Forget a member's personal channel record without deleting the channel (admin only)",
	DefaultMemberPermissions: &adminPermissions,
	Contexts:                 guildOnly,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        OptionUser,
			Description: "Member whose record is cleared",
			Required:    true,
		},
	},
}

var Status = &discordgo.ApplicationCommand{
	Name:                     StatusName,
	Description:              "Show bot and host status (admin only)",
	DefaultMemberPermissions: &adminPermissions,
	Contexts:                 guildOnly,
}

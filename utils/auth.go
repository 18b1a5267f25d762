package utils

import "github.com/bwmarrin/discordgo"

// Permission levels resolved for a command caller.
const (
	AdminPermission = "admin"
	OwnerPermission = "owner"
	GuestPermission = "guest"
)

// adminPermissions grants the admin level when any bit is set.
const adminPermissions = discordgo.PermissionManageGuild | discordgo.PermissionAdministrator

// IsAdmin reports whether member may manage the guild. Interaction payloads
// carry the member's resolved permissions.
func IsAdmin(member *discordgo.Member) bool {
	return member != nil && member.Permissions&adminPermissions != 0
}

// CheckPermission returns the highest level of member for a channel owned by
// ownerID. An ownerID of 0 means the channel has no owner.
func CheckPermission(member *discordgo.Member, ownerID int64) string {
	if IsAdmin(member) {
		return AdminPermission
	}
	if member != nil && member.User != nil && ownerID != 0 && member.User.ID == FormatID(ownerID) {
		return OwnerPermission
	}
	return GuestPermission
}

package utils

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// UnavailableMessage is the reply for persistence-dependent actions while the
// store is degraded.
const UnavailableMessage = "The database is temporarily unavailable. Please try again later."

// InteractionResponder answers interactions. *discordgo.Session satisfies it.
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// SendErrorResponse sends an ephemeral error message.
func SendErrorResponse(s InteractionResponder, i *discordgo.InteractionCreate, message string) {
	respond(s, i, "❌ "+message)
}

// SendSimpleResponse sends a simple ephemeral message.
func SendSimpleResponse(s InteractionResponder, i *discordgo.InteractionCreate, message string) {
	respond(s, i, message)
}

// SendUnavailableResponse tells the caller the store is degraded.
func SendUnavailableResponse(s InteractionResponder, i *discordgo.InteractionCreate) {
	respond(s, i, "⚠️ "+UnavailableMessage)
}

// SendEmbedResponse sends an ephemeral embed.
func SendEmbedResponse(s InteractionResponder, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error sending embed response: %v", err)
	}
}

func respond(s InteractionResponder, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error sending interaction response: %v", err)
	}
}

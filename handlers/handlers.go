package handlers

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"

	"personal-channel-bot/bot"
)

// Register builds the handler set for b and attaches it to the session.
func Register(b *bot.Bot) *Handler {
	h := NewHandler(b.Session, b.Store, b.Registry, b.Reconciler, b.Locks)
	h.Log = b.LogSink
	h.Latency = b.Session.HeartbeatLatency
	b.CommandHandlers = commandHandlers(h)
	addHandlers(b, h)
	return h
}

func commandHandlers(h *Handler) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	table := h.commandTable()
	handlers := make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate), len(table))
	for name := range table {
		handlers[name] = func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()
			h.HandleCommand(ctx, i)
		}
	}
	return handlers
}

func addHandlers(b *bot.Bot, h *Handler) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", r.User.Username, r.User.Discriminator)
		h.SetBotUserID(r.User.ID)
		h.Log.LogInfo("System", "Startup", "Bot has started successfully.")
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if handler, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			handler(s, i)
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		h.HandleMessage(ctx, m.Message)
	})
}

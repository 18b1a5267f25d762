package bot

import (
	"log"

	"github.com/bwmarrin/discordgo"

	"personal-channel-bot/dashboard"
	"personal-channel-bot/model"
	"personal-channel-bot/registry"
	"personal-channel-bot/utils"
	"personal-channel-bot/utils/database"
)

type Bot struct {
	Session         *discordgo.Session
	Config          *model.Config
	Store           *database.Store
	Registry        *registry.Registry
	Reconciler      *dashboard.Reconciler
	Locks           *utils.KeyedMutex
	LogSink         *utils.LogSink
	CommandHandlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	scheduler       *Scheduler
}

// New builds the session and the services sharing it. The store may still be
// connecting; every service checks its availability per operation.
func New(cfg *model.Config, store *database.Store) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	dg.StateEnabled = false

	locks := utils.NewKeyedMutex()
	b := &Bot{
		Session:    dg,
		Config:     cfg,
		Store:      store,
		Registry:   registry.New(store, dg),
		Reconciler: dashboard.NewReconciler(store, dg, locks),
		Locks:      locks,
		LogSink:    utils.NewLogSink(dg, cfg.LogChannelID),
	}
	b.scheduler = NewScheduler(b.Reconciler, store, cfg.AggregateRefreshInterval)
	return b, nil
}

func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	b.scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		log.Printf("Error closing session: %v", err)
	}
}

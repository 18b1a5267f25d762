package bot

import (
	"context"
	"fmt"
	"log"

	"personal-channel-bot/commands"
)

// Run opens the gateway, registers the commands and blocks until ctx ends.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("opening connection: %w", err)
	}

	if err := b.RefreshCommands(b.Config.SyncGuildID); err != nil {
		log.Printf("cannot register commands: %v", err)
	}

	b.scheduler.Start()

	log.Println("Bot is now running. Press CTRL-C to exit.")
	<-ctx.Done()
	return nil
}

// RefreshCommands overwrites the command set of guildID, or the global set
// when guildID is empty.
func (b *Bot) RefreshCommands(guildID string) error {
	cmds := commands.GenerateCommands()
	scope := guildID
	if scope == "" {
		scope = "global"
	}
	log.Printf("Registering %d commands for %s...", len(cmds), scope)
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, guildID, cmds)
	if err != nil {
		return fmt.Errorf("update commands for %s: %w", scope, err)
	}
	log.Printf("Registered %d commands for %s.", len(registered), scope)
	return nil
}

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"personal-channel-bot/dashboard"
	"personal-channel-bot/registry"
	"personal-channel-bot/utils"
	"personal-channel-bot/utils/database"
)

type sentMessage struct {
	ChannelID string
	ID        string
	Data      *discordgo.MessageSend
}

// fakePlatform records every platform call in memory.
type fakePlatform struct {
	mu     sync.Mutex
	nextID int64

	channels        map[string]*discordgo.Channel
	created         []discordgo.GuildChannelCreateData
	deletedChannels []string
	sent            []sentMessage
	deletedMessages []string
	reactions       []string
	nicknames       []string
	responses       []*discordgo.InteractionResponse

	createErr  error
	channelErr error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{nextID: 5000, channels: make(map[string]*discordgo.Channel)}
}

func (f *fakePlatform) id() string {
	f.nextID++
	return fmt.Sprintf("%d", f.nextID)
}

func notFound() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel},
	}
}

func (f *fakePlatform) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, notFound()
}

func (f *fakePlatform) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, ID: id, Data: data})
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

func (f *fakePlatform) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedMessages = append(f.deletedMessages, messageID)
	return nil
}

func (f *fakePlatform) MessageReactionAdd(_, _, emojiID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, emojiID)
	return nil
}

func (f *fakePlatform) GuildMemberNickname(_, _, nickname string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicknames = append(f.nicknames, nickname)
	return nil
}

func (f *fakePlatform) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, data)
	ch := &discordgo.Channel{ID: f.id(), GuildID: guildID, Name: data.Name, Type: data.Type}
	f.channels[ch.ID] = ch
	return ch, nil
}

func (f *fakePlatform) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, notFound()
	}
	delete(f.channels, channelID)
	f.deletedChannels = append(f.deletedChannels, channelID)
	return ch, nil
}

func (f *fakePlatform) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakePlatform) addChannel(id, guildID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[id] = &discordgo.Channel{ID: id, GuildID: guildID}
}

func (f *fakePlatform) lastResponse(t *testing.T) *discordgo.InteractionResponseData {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.responses)
	return f.responses[len(f.responses)-1].Data
}

func (f *fakePlatform) sentTo(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakePlatform) lastReaction() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reactions) == 0 {
		return ""
	}
	return f.reactions[len(f.reactions)-1]
}

func newSQLiteStore(t *testing.T) *database.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handlers.db")
	s := database.NewStore()
	require.NoError(t, s.ConnectWithRetry(context.Background(), database.ConnectOptions{
		Open: func(ctx context.Context) (*sqlx.DB, error) {
			return database.OpenSQLite(ctx, path)
		},
		MaxAttempts: 1,
	}))
	t.Cleanup(func() { s.Close() })
	return s
}

type handlerFixture struct {
	h        *Handler
	platform *fakePlatform
	store    *database.Store
	sleeps   []time.Duration
}

func newFixture(t *testing.T, store *database.Store) *handlerFixture {
	t.Helper()
	platform := newFakePlatform()
	locks := utils.NewKeyedMutex()
	f := &handlerFixture{platform: platform, store: store}
	f.h = NewHandler(platform, store, registry.New(store, platform), dashboard.NewReconciler(store, platform, locks), locks)
	f.h.Sleep = func(d time.Duration) { f.sleeps = append(f.sleeps, d) }
	return f
}

func ptr[T any](v T) *T { return &v }

func guildMessage(id, guildID, channelID, authorID, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		GuildID:   guildID,
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID, Username: "alice"},
	}
}

func command(name, channelID, userID string, perms int64, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "100",
		ChannelID: channelID,
		Member:    &discordgo.Member{User: &discordgo.User{ID: userID}, Permissions: perms},
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func channelOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionChannel, Value: id}
}

func userOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

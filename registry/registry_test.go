package registry

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personal-channel-bot/model"
	"personal-channel-bot/utils/database"
)

type fakeResolver struct {
	channels map[string]*discordgo.Channel
	err      error
	calls    int
}

func (f *fakeResolver) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel},
	}
}

func newStore(t *testing.T) *database.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
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

func TestClaimAndLookups(t *testing.T) {
	ctx := context.Background()
	reg := New(newStore(t), &fakeResolver{})

	require.NoError(t, reg.Claim(ctx, 10, 1, 100))

	ch, ok := reg.FindByOwner(ctx, 100, 1)
	require.True(t, ok)
	assert.Equal(t, int64(10), ch)

	owner, ok := reg.FindOwner(ctx, 10)
	require.True(t, ok)
	assert.Equal(t, int64(1), owner)

	_, ok = reg.FindByOwner(ctx, 200, 1)
	assert.False(t, ok)

	err := reg.Claim(ctx, 11, 1, 100)
	assert.ErrorIs(t, err, ErrAlreadyOwned)

	// Re-claim transfers the channel.
	require.NoError(t, reg.Claim(ctx, 10, 2, 100))
	owner, ok = reg.FindOwner(ctx, 10)
	require.True(t, ok)
	assert.Equal(t, int64(2), owner)
	_, ok = reg.FindByOwner(ctx, 100, 1)
	assert.False(t, ok)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg := New(store, &fakeResolver{})

	require.NoError(t, reg.Claim(ctx, 10, 1, 100))
	require.NoError(t, store.AddLink(ctx, 10, "https://a.example", nil))

	require.NoError(t, reg.Release(ctx, 10))
	_, ok := reg.FindOwner(ctx, 10)
	assert.False(t, ok)
	links, err := store.ListLinks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, links)

	require.NoError(t, reg.Release(ctx, 10))
}

func TestFindByOwner_BackfillsLegacyRow(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	resolver := &fakeResolver{channels: map[string]*discordgo.Channel{
		"10": {ID: "10", GuildID: "100"},
	}}
	reg := New(store, resolver)
	require.NoError(t, store.UpsertOwnedChannel(ctx, model.OwnedChannel{ChannelID: 10, OwnerID: 1}))

	ch, ok := reg.FindByOwner(ctx, 100, 1)
	require.True(t, ok)
	assert.Equal(t, int64(10), ch)

	row, err := store.OwnedChannelByID(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, row.CommunityID)
	assert.Equal(t, int64(100), *row.CommunityID)

	// The backfilled row is now found without the platform.
	_, ok = reg.FindByOwner(ctx, 100, 1)
	assert.True(t, ok)
	assert.Equal(t, 1, resolver.calls)
}

func TestFindByOwner_LegacyRowInOtherGuild(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg := New(store, &fakeResolver{channels: map[string]*discordgo.Channel{
		"10": {ID: "10", GuildID: "200"},
	}})
	require.NoError(t, store.UpsertOwnedChannel(ctx, model.OwnedChannel{ChannelID: 10, OwnerID: 1}))

	_, ok := reg.FindByOwner(ctx, 100, 1)
	assert.False(t, ok)

	row, err := store.OwnedChannelByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(200), *row.CommunityID)
}

func TestFindByOwner_PurgesOrphanedLegacyRow(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg := New(store, &fakeResolver{})
	require.NoError(t, store.UpsertOwnedChannel(ctx, model.OwnedChannel{ChannelID: 10, OwnerID: 1}))
	require.NoError(t, store.AddLink(ctx, 10, "https://a.example", nil))

	_, ok := reg.FindByOwner(ctx, 100, 1)
	assert.False(t, ok)

	_, err := store.OwnedChannelByID(ctx, 10)
	assert.ErrorIs(t, err, database.ErrNotFound)
	links, err := store.ListLinks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestFindByOwner_KeepsLegacyRowOnTransientError(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	reg := New(store, &fakeResolver{err: errors.New("gateway hiccup")})
	require.NoError(t, store.UpsertOwnedChannel(ctx, model.OwnedChannel{ChannelID: 10, OwnerID: 1}))

	_, ok := reg.FindByOwner(ctx, 100, 1)
	assert.False(t, ok)

	_, err := store.LegacyOwnedChannelByOwner(ctx, 1)
	assert.NoError(t, err)
}

func TestDegradedStore(t *testing.T) {
	ctx := context.Background()
	reg := New(database.NewStore(), &fakeResolver{})

	assert.False(t, reg.Available())
	_, ok := reg.FindByOwner(ctx, 100, 1)
	assert.False(t, ok)
	_, ok = reg.FindOwner(ctx, 10)
	assert.False(t, ok)
	assert.ErrorIs(t, reg.Claim(ctx, 10, 1, 100), ErrStoreUnavailable)
	assert.ErrorIs(t, reg.Release(ctx, 10), ErrStoreUnavailable)
}

func TestForcePurgeMakesChannelNonPersonal(t *testing.T) {
	ctx := context.Background()
	reg := New(newStore(t), &fakeResolver{})

	require.NoError(t, reg.Claim(ctx, 10, 2, 100))
	require.NoError(t, reg.Release(ctx, 10))

	_, ok := reg.FindOwner(ctx, 10)
	assert.False(t, ok)
	_, ok = reg.FindByOwner(ctx, 100, 2)
	assert.False(t, ok)
}

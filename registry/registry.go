// Package registry tracks which member owns which personal channel and
// enforces one channel per member per guild.
package registry

import (
	"context"
	"errors"
	"log"

	"personal-channel-bot/model"
	"personal-channel-bot/utils"
	"personal-channel-bot/utils/database"
)

var (
	// ErrAlreadyOwned is returned by Claim when the member already owns a
	// different channel in the guild.
	ErrAlreadyOwned = errors.New("registry: member already owns a channel in this guild")
	// ErrStoreUnavailable is returned by mutations while the store is degraded.
	ErrStoreUnavailable = database.ErrStoreUnavailable
)

// maxLegacyRows bounds the legacy backfill loop in FindByOwner.
const maxLegacyRows = 8

// Store is the subset of *database.Store the registry uses.
type Store interface {
	Available() bool
	UpsertOwnedChannel(ctx context.Context, ch model.OwnedChannel) error
	OwnedChannelByOwner(ctx context.Context, guildID, ownerID int64) (*model.OwnedChannel, error)
	LegacyOwnedChannelByOwner(ctx context.Context, ownerID int64) (*model.OwnedChannel, error)
	OwnedChannelByID(ctx context.Context, channelID int64) (*model.OwnedChannel, error)
	BackfillCommunity(ctx context.Context, channelID, guildID int64) error
	PurgeChannel(ctx context.Context, channelID int64) error
}

// Registry resolves owners and channels in both directions.
type Registry struct {
	store    Store
	resolver model.ChannelResolver
}

// New returns a Registry. resolver is only used to backfill legacy rows.
func New(store Store, resolver model.ChannelResolver) *Registry {
	return &Registry{store: store, resolver: resolver}
}

// Available reports whether the backing store is reachable.
func (r *Registry) Available() bool {
	return r.store.Available()
}

// Claim records ownerID as the owner of channelID in guildID. Claiming a known
// channel overwrites its owner and guild.
func (r *Registry) Claim(ctx context.Context, channelID, ownerID, guildID int64) error {
	err := r.store.UpsertOwnedChannel(ctx, model.OwnedChannel{
		ChannelID:   channelID,
		OwnerID:     ownerID,
		CommunityID: &guildID,
	})
	if errors.Is(err, database.ErrDuplicateOwner) {
		return ErrAlreadyOwned
	}
	return err
}

// FindByOwner returns the channel ownerID owns in guildID. Rows written
// before ownership was scoped per guild are resolved through the platform,
// stamped with their real guild and returned if that guild matches; rows
// whose channel no longer exists are purged. Lookup failures read as absent.
func (r *Registry) FindByOwner(ctx context.Context, guildID, ownerID int64) (int64, bool) {
	ch, err := r.store.OwnedChannelByOwner(ctx, guildID, ownerID)
	if err == nil {
		return ch.ChannelID, true
	}
	if !errors.Is(err, database.ErrNotFound) {
		logLookupError("find_by_owner", err)
		return 0, false
	}

	for i := 0; i < maxLegacyRows; i++ {
		legacy, err := r.store.LegacyOwnedChannelByOwner(ctx, ownerID)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				logLookupError("find_by_owner legacy", err)
			}
			return 0, false
		}
		actual, outcome := r.resolveLegacy(ctx, legacy)
		switch outcome {
		case legacyDeferred:
			return 0, false
		case legacyBackfilled:
			if actual == guildID {
				return legacy.ChannelID, true
			}
		}
	}
	return 0, false
}

type legacyOutcome int

const (
	legacyBackfilled legacyOutcome = iota
	legacyPurged
	// legacyDeferred keeps the row for a later lookup.
	legacyDeferred
)

// resolveLegacy stamps a legacy row with the guild its channel lives in, or
// purges it when the channel is gone.
func (r *Registry) resolveLegacy(ctx context.Context, legacy *model.OwnedChannel) (int64, legacyOutcome) {
	channelID := legacy.ChannelID
	if r.resolver == nil {
		return 0, legacyDeferred
	}
	channel, err := r.resolver.Channel(utils.FormatID(channelID))
	if err != nil {
		switch utils.ClassifyPlatformError(err) {
		case utils.NotFound, utils.Forbidden:
			log.Printf("registry: purging orphaned legacy channel=%d owner=%d", channelID, legacy.OwnerID)
			return 0, r.purgeLegacy(ctx, channelID)
		default:
			log.Printf("registry: cannot resolve legacy channel=%d err=%v", channelID, err)
			return 0, legacyDeferred
		}
	}
	actual, err := utils.ParseID(channel.GuildID)
	if err != nil {
		log.Printf("registry: purging legacy channel=%d outside any guild", channelID)
		return 0, r.purgeLegacy(ctx, channelID)
	}
	err = r.store.BackfillCommunity(ctx, channelID, actual)
	if errors.Is(err, database.ErrDuplicateOwner) {
		log.Printf("registry: purging legacy channel=%d, owner=%d already has a channel in guild=%d", channelID, legacy.OwnerID, actual)
		return 0, r.purgeLegacy(ctx, channelID)
	}
	if err != nil {
		logLookupError("backfill", err)
		return 0, legacyDeferred
	}
	log.Printf("registry: backfilled legacy channel=%d guild=%d", channelID, actual)
	return actual, legacyBackfilled
}

func (r *Registry) purgeLegacy(ctx context.Context, channelID int64) legacyOutcome {
	if err := r.store.PurgeChannel(ctx, channelID); err != nil {
		logLookupError("purge legacy", err)
		return legacyDeferred
	}
	return legacyPurged
}

// FindOwner returns the owner of channelID. Lookup failures read as absent.
func (r *Registry) FindOwner(ctx context.Context, channelID int64) (int64, bool) {
	ch, err := r.store.OwnedChannelByID(ctx, channelID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logLookupError("find_owner", err)
		}
		return 0, false
	}
	return ch.OwnerID, true
}

// Release purges every record of channelID.
func (r *Registry) Release(ctx context.Context, channelID int64) error {
	return r.store.PurgeChannel(ctx, channelID)
}

func logLookupError(op string, err error) {
	if errors.Is(err, database.ErrStoreUnavailable) {
		return
	}
	log.Printf("registry: %s failed: %v", op, err)
}

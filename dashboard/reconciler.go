// Package dashboard keeps the trailing link dashboard of each personal
// channel, and the aggregate dashboard of each guild, in sync with the store.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"personal-channel-bot/model"
	"personal-channel-bot/utils"
	"personal-channel-bot/utils/database"
)

// refreshConcurrency bounds RefreshAll fan-out.
const refreshConcurrency = 4

// Store is the subset of *database.Store the reconciler uses.
type Store interface {
	ListLinks(ctx context.Context, channelID int64) ([]model.LinkRecord, error)
	GetDashboardMessage(ctx context.Context, channelID int64) (*int64, error)
	SetDashboardMessage(ctx context.Context, channelID int64, messageID *int64) error
	ListCommunityLinks(ctx context.Context, guildID int64) ([]model.CommunityLink, error)
	GetCommunityConfig(ctx context.Context, guildID int64) (*model.CommunityConfig, error)
	SetAggregateTarget(ctx context.Context, guildID, channelID int64) error
	SetAggregateMessage(ctx context.Context, guildID int64, messageID *int64) error
	ListAggregateTargets(ctx context.Context) ([]model.AggregateDashboard, error)
}

// Reconciler publishes dashboards. Work on one channel, or on one guild's
// aggregate, is serialized so an older publish can never delete a newer one.
type Reconciler struct {
	store  Store
	sender model.MessageSender
	locks  *utils.KeyedMutex

	mu         sync.RWMutex
	aggregates map[int64]model.AggregateDashboard
}

// NewReconciler returns a Reconciler. locks may be shared with other
// components; a nil locks gets a private one.
func NewReconciler(store Store, sender model.MessageSender, locks *utils.KeyedMutex) *Reconciler {
	if locks == nil {
		locks = utils.NewKeyedMutex()
	}
	return &Reconciler{
		store:      store,
		sender:     sender,
		locks:      locks,
		aggregates: make(map[int64]model.AggregateDashboard),
	}
}

// Reconcile makes the last message of channelID the dashboard of its current
// links. With no links, any previous dashboard is removed and none is posted.
func (r *Reconciler) Reconcile(ctx context.Context, channelID int64) error {
	unlock := r.locks.Lock(utils.ChannelKey(channelID))
	defer unlock()

	links, err := r.store.ListLinks(ctx, channelID)
	if err != nil {
		return err
	}
	last, err := r.store.GetDashboardMessage(ctx, channelID)
	if err != nil {
		return err
	}

	if last != nil {
		if err := r.deleteMessage(channelID, *last); err != nil {
			return err
		}
		if err := r.store.SetDashboardMessage(ctx, channelID, nil); err != nil {
			return err
		}
	}
	if len(links) == 0 {
		if last != nil {
			log.Printf("dashboard: removed channel=%d", channelID)
		}
		return nil
	}

	id, err := r.publish(channelID, RenderChannel(links))
	if err != nil {
		return fmt.Errorf("publish dashboard in channel %d: %w", channelID, err)
	}
	if err := r.store.SetDashboardMessage(ctx, channelID, &id); err != nil {
		r.retract(channelID, id)
		return err
	}
	log.Printf("dashboard: reconcile channel=%d links=%d message=%d", channelID, len(links), id)
	return nil
}

// SetAggregateTarget designates channelID as the aggregate dashboard of
// guildID, removes the dashboard from the previous target and publishes.
func (r *Reconciler) SetAggregateTarget(ctx context.Context, guildID, channelID int64) error {
	unlock := r.locks.Lock(utils.AggregateKey(guildID))
	previous, hasPrevious := r.aggregateTarget(ctx, guildID)
	if hasPrevious && previous.LastMessageID != nil {
		if err := r.deleteMessage(previous.TargetChannelID, *previous.LastMessageID); err != nil {
			log.Printf("dashboard: aggregate cleanup guild=%d err=%v", guildID, err)
		}
	}
	if err := r.store.SetAggregateTarget(ctx, guildID, channelID); err != nil {
		unlock()
		return err
	}
	r.cacheAggregate(model.AggregateDashboard{CommunityID: guildID, TargetChannelID: channelID})
	unlock()

	return r.ReconcileAggregate(ctx, guildID)
}

// ReconcileAggregate republishes the aggregate dashboard of guildID. It is a
// no-op when no target channel has been designated.
func (r *Reconciler) ReconcileAggregate(ctx context.Context, guildID int64) error {
	unlock := r.locks.Lock(utils.AggregateKey(guildID))
	defer unlock()

	target, ok := r.aggregateTarget(ctx, guildID)
	if !ok {
		return nil
	}
	links, err := r.store.ListCommunityLinks(ctx, guildID)
	if err != nil {
		return err
	}

	if target.LastMessageID != nil {
		if err := r.deleteMessage(target.TargetChannelID, *target.LastMessageID); err != nil {
			return err
		}
		if err := r.store.SetAggregateMessage(ctx, guildID, nil); err != nil {
			return err
		}
		target.LastMessageID = nil
		r.cacheAggregate(target)
	}
	if len(links) == 0 {
		return nil
	}

	id, err := r.publish(target.TargetChannelID, RenderAggregate(links))
	if err != nil {
		return fmt.Errorf("publish aggregate dashboard for guild %d: %w", guildID, err)
	}
	if err := r.store.SetAggregateMessage(ctx, guildID, &id); err != nil {
		r.retract(target.TargetChannelID, id)
		return err
	}
	target.LastMessageID = &id
	r.cacheAggregate(target)
	log.Printf("dashboard: reconcile aggregate guild=%d channel=%d links=%d", guildID, target.TargetChannelID, len(links))
	return nil
}

// RefreshAll republishes every designated aggregate dashboard. Failures of
// individual guilds are logged and do not stop the others.
func (r *Reconciler) RefreshAll(ctx context.Context) error {
	targets, err := r.store.ListAggregateTargets(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, t := range targets {
		r.cacheAggregate(t)
		guildID := t.CommunityID
		g.Go(func() error {
			if err := r.ReconcileAggregate(ctx, guildID); err != nil {
				log.Printf("dashboard: refresh aggregate guild=%d err=%v", guildID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// aggregateTarget reads the cached target of guildID, falling back to the
// store. The store stays authoritative: the cache only spares a query.
func (r *Reconciler) aggregateTarget(ctx context.Context, guildID int64) (model.AggregateDashboard, bool) {
	r.mu.RLock()
	cached, ok := r.aggregates[guildID]
	r.mu.RUnlock()
	if ok {
		return cached, true
	}

	cfg, err := r.store.GetCommunityConfig(ctx, guildID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) && !errors.Is(err, database.ErrStoreUnavailable) {
			log.Printf("dashboard: load aggregate target guild=%d err=%v", guildID, err)
		}
		return model.AggregateDashboard{}, false
	}
	if cfg.DashboardChannelID == nil {
		return model.AggregateDashboard{}, false
	}
	target := model.AggregateDashboard{
		CommunityID:     guildID,
		TargetChannelID: *cfg.DashboardChannelID,
		LastMessageID:   cfg.DashboardMessageID,
	}
	r.cacheAggregate(target)
	return target, true
}

func (r *Reconciler) cacheAggregate(t model.AggregateDashboard) {
	r.mu.Lock()
	r.aggregates[t.CommunityID] = t
	r.mu.Unlock()
}

// deleteMessage removes a previous dashboard. A message that is already gone,
// or that the bot may no longer touch, counts as removed.
func (r *Reconciler) deleteMessage(channelID, messageID int64) error {
	err := r.sender.ChannelMessageDelete(utils.FormatID(channelID), utils.FormatID(messageID))
	return utils.BestEffort("dashboard delete", err, utils.TransientPlatformErrors...)
}

// retract removes a just-published dashboard whose id could not be tracked,
// so no untracked copy outlives the failed write.
func (r *Reconciler) retract(channelID, messageID int64) {
	if err := r.deleteMessage(channelID, messageID); err != nil {
		log.Printf("dashboard: retract untracked channel=%d message=%d err=%v", channelID, messageID, err)
	}
}

func (r *Reconciler) publish(channelID int64, embed *discordgo.MessageEmbed) (int64, error) {
	msg, err := r.sender.ChannelMessageSendComplex(utils.FormatID(channelID), &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		return 0, err
	}
	return utils.ParseID(msg.ID)
}

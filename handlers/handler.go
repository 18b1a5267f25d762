package handlers

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"personal-channel-bot/dashboard"
	"personal-channel-bot/model"
	"personal-channel-bot/registry"
	"personal-channel-bot/utils"
	"personal-channel-bot/utils/database"
)

const (
	handlerTimeout = 30 * time.Second

	defaultAckDelay    = time.Second
	defaultDeleteDelay = 3 * time.Second

	emojiSuccess = "✅"
	emojiFailure = "❌"
)

// Store is the subset of *database.Store the handlers use directly.
type Store interface {
	Available() bool
	GetCommunityConfig(ctx context.Context, guildID int64) (*model.CommunityConfig, error)
	SetCommunitySetting(ctx context.Context, guildID int64, field database.SettingField, channelID *int64) error
	AddLink(ctx context.Context, channelID int64, url string, title *string) error
	RemoveLink(ctx context.Context, channelID int64, url string) (bool, error)
	ClearLinks(ctx context.Context, channelID int64) (int64, error)
	CountOwnedChannels(ctx context.Context, guildID int64) (int, error)
}

// Handler carries everything message and command handling needs.
type Handler struct {
	Platform   model.Platform
	Store      Store
	Registry   *registry.Registry
	Reconciler *dashboard.Reconciler
	Locks      *utils.KeyedMutex
	Log        *utils.LogSink
	// Latency reports the gateway heartbeat latency for the status command.
	Latency func() time.Duration

	// AckDelay is how long a nickname request stays visible.
	AckDelay time.Duration
	// DeleteDelay is the countdown before a personal channel is deleted.
	DeleteDelay time.Duration
	Sleep       func(time.Duration)

	botUserID atomic.Value // string

	configMu sync.RWMutex
	configs  map[int64]model.CommunityConfig
}

// NewHandler wires a Handler with the default delays.
func NewHandler(platform model.Platform, store Store, reg *registry.Registry, rec *dashboard.Reconciler, locks *utils.KeyedMutex) *Handler {
	if locks == nil {
		locks = utils.NewKeyedMutex()
	}
	return &Handler{
		Platform:    platform,
		Store:       store,
		Registry:    reg,
		Reconciler:  rec,
		Locks:       locks,
		AckDelay:    defaultAckDelay,
		DeleteDelay: defaultDeleteDelay,
		Sleep:       time.Sleep,
		configs:     make(map[int64]model.CommunityConfig),
	}
}

// SetBotUserID records the bot's own user id once the gateway is ready.
func (h *Handler) SetBotUserID(id string) {
	h.botUserID.Store(id)
}

func (h *Handler) botID() string {
	id, _ := h.botUserID.Load().(string)
	return id
}

func (h *Handler) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if h.Sleep != nil {
		h.Sleep(d)
		return
	}
	time.Sleep(d)
}

// communityConfig loads the configuration of guildID. The last successful
// read is kept so channel roles are still recognised while the store is
// degraded.
func (h *Handler) communityConfig(ctx context.Context, guildID int64) (*model.CommunityConfig, bool) {
	cfg, err := h.Store.GetCommunityConfig(ctx, guildID)
	if err == nil {
		h.rememberConfig(*cfg)
		return cfg, true
	}
	if errors.Is(err, database.ErrNotFound) {
		return nil, false
	}
	if !errors.Is(err, database.ErrStoreUnavailable) {
		log.Printf("router: load settings guild=%d err=%v", guildID, err)
	}
	h.configMu.RLock()
	cached, ok := h.configs[guildID]
	h.configMu.RUnlock()
	if !ok {
		return nil, false
	}
	return &cached, true
}

func (h *Handler) rememberConfig(cfg model.CommunityConfig) {
	h.configMu.Lock()
	h.configs[cfg.CommunityID] = cfg
	h.configMu.Unlock()
}

// refreshDashboards reconciles a channel and then its guild's aggregate.
func (h *Handler) refreshDashboards(ctx context.Context, guildID, channelID int64) {
	if err := h.Reconciler.Reconcile(ctx, channelID); err != nil {
		log.Printf("dashboard: reconcile channel=%d err=%v", channelID, err)
	}
	h.refreshAggregate(ctx, guildID)
}

func (h *Handler) refreshAggregate(ctx context.Context, guildID int64) {
	if err := h.Reconciler.ReconcileAggregate(ctx, guildID); err != nil {
		log.Printf("dashboard: reconcile aggregate guild=%d err=%v", guildID, err)
	}
}

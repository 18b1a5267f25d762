package bot

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"personal-channel-bot/utils/database"
)

const refreshTimeout = 2 * time.Minute

// Refresher republishes every aggregate dashboard.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// Availability reports whether the store is connected.
type Availability interface {
	Available() bool
}

// Scheduler manages the periodic aggregate refresh.
type Scheduler struct {
	refresher Refresher
	store     Availability
	interval  time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewScheduler creates a scheduler. A non-positive interval disables it.
func NewScheduler(refresher Refresher, store Availability, interval time.Duration) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		store:     store,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

// Start begins the scheduled tasks.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		log.Println("Aggregate refresh disabled.")
		return
	}
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.startAggregateRefresh()
	})
}

// Stop terminates the scheduled tasks and waits for them.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Println("Stopping scheduler...")
		close(s.done)
		s.wg.Wait()
		log.Println("Scheduler stopped.")
	})
}

func (s *Scheduler) startAggregateRefresh() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.refreshAggregates()
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) refreshAggregates() {
	if !s.store.Available() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := s.refresher.RefreshAll(ctx); err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		log.Printf("Error refreshing aggregate dashboards: %v", err)
	}
}

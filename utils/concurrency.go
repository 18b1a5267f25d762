package utils

import (
	"fmt"
	"sync"
)

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex hands out one mutex per key. Entries are dropped once no
// goroutine holds or waits for them, so the map only grows with contention.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// ChannelKey is the lock key for reconciling one channel's dashboard.
func ChannelKey(channelID int64) string {
	return fmt.Sprintf("channel:%d", channelID)
}

// AggregateKey is the lock key for a guild's aggregate dashboard.
func AggregateKey(guildID int64) string {
	return fmt.Sprintf("aggregate:%d", guildID)
}

// ProvisionKey is the lock key for creating a member's channel in a guild.
func ProvisionKey(guildID, ownerID int64) string {
	return fmt.Sprintf("provision:%d:%d", guildID, ownerID)
}

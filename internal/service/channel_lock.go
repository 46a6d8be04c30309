package service

import (
	"sync"

	"github.com/manobala/peer-chat/internal/domain"
)

// channelLocks serialises append+broadcast per channel so that broadcast
// order matches store order. Entries are dropped when unused.
type channelLocks struct {
	mu    sync.Mutex
	locks map[domain.ChannelID]*channelLock
}

type channelLock struct {
	mu   sync.Mutex
	refs int
}

func newChannelLocks() *channelLocks {
	return &channelLocks{locks: make(map[domain.ChannelID]*channelLock)}
}

// Lock blocks until ch is free and returns the matching unlock func.
func (l *channelLocks) Lock(ch domain.ChannelID) func() {
	l.mu.Lock()
	entry, ok := l.locks[ch]
	if !ok {
		entry = &channelLock{}
		l.locks[ch] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, ch)
		}
		l.mu.Unlock()
	}
}

func (l *channelLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Package membership tracks which live connections watch which channels.
// State is in memory only and rebuilt from join intents after a reconnect.
package membership

import (
	"sort"
	"sync"

	"github.com/manobala/peer-chat/internal/domain"
)

type set map[string]struct{}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	members  map[domain.ChannelID]set
	channels map[string]map[domain.ChannelID]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		members:  make(map[domain.ChannelID]set),
		channels: make(map[string]map[domain.ChannelID]struct{}),
	}
}

// Join records connID as a member of ch. It reports false when the
// connection was already a member.
func (t *Tracker) Join(connID string, ch domain.ChannelID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.members[ch]
	if !ok {
		members = make(set)
		t.members[ch] = members
	}
	if _, ok := members[connID]; ok {
		return false
	}
	members[connID] = struct{}{}

	chans, ok := t.channels[connID]
	if !ok {
		chans = make(map[domain.ChannelID]struct{})
		t.channels[connID] = chans
	}
	chans[ch] = struct{}{}
	return true
}

// Leave removes connID from ch. It reports whether it was a member.
func (t *Tracker) Leave(connID string, ch domain.ChannelID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaveLocked(connID, ch)
}

func (t *Tracker) leaveLocked(connID string, ch domain.ChannelID) bool {
	members, ok := t.members[ch]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(t.members, ch)
	}

	if chans, ok := t.channels[connID]; ok {
		delete(chans, ch)
		if len(chans) == 0 {
			delete(t.channels, connID)
		}
	}
	return true
}

// Purge removes every membership of connID and returns the channels it left.
func (t *Tracker) Purge(connID string) []domain.ChannelID {
	t.mu.Lock()
	defer t.mu.Unlock()

	left := channelList(t.channels[connID])
	for _, ch := range left {
		t.leaveLocked(connID, ch)
	}
	return left
}

// IsMember reports whether connID has joined ch.
func (t *Tracker) IsMember(connID string, ch domain.ChannelID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[ch][connID]
	return ok
}

// MembersOf returns a snapshot of the connections joined to ch.
func (t *Tracker) MembersOf(ch domain.ChannelID) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := t.members[ch]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ChannelsOf returns a snapshot of the channels connID has joined.
func (t *Tracker) ChannelsOf(connID string) []domain.ChannelID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return channelList(t.channels[connID])
}

// Count returns the number of connections joined to ch.
func (t *Tracker) Count(ch domain.ChannelID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members[ch])
}

func channelList(chans map[domain.ChannelID]struct{}) []domain.ChannelID {
	out := make([]domain.ChannelID, 0, len(chans))
	for ch := range chans {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

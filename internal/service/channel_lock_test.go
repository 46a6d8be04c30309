package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/manobala/peer-chat/internal/domain"
)

func TestChannelLocks_SerialisesPerChannel(t *testing.T) {
	locks := newChannelLocks()
	ch := domain.RoomChannel(domain.NewID())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(ch)
			mu.Lock()
			inside++
			if inside > 1 {
				overlap = true
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.False(t, overlap)
	assert.Equal(t, 0, locks.size())
}

func TestChannelLocks_IndependentChannels(t *testing.T) {
	locks := newChannelLocks()
	a := locks.Lock(domain.RoomChannel(domain.NewID()))
	b := locks.Lock(domain.SessionChannel(domain.NewID()))
	assert.Equal(t, 2, locks.size())
	a()
	b()
	assert.Equal(t, 0, locks.size())
}

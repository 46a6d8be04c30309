package membership

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/manobala/peer-chat/internal/domain"
)

func TestTracker_JoinLeave(t *testing.T) {
	tr := NewTracker()
	room := domain.RoomChannel("R1")

	assert.True(t, tr.Join("c1", room))
	assert.False(t, tr.Join("c1", room))
	assert.True(t, tr.Join("c2", room))

	assert.Equal(t, []string{"c1", "c2"}, tr.MembersOf(room))
	assert.Equal(t, 2, tr.Count(room))
	assert.True(t, tr.IsMember("c1", room))

	assert.True(t, tr.Leave("c1", room))
	assert.False(t, tr.Leave("c1", room))
	assert.Equal(t, []string{"c2"}, tr.MembersOf(room))
	assert.Empty(t, tr.ChannelsOf("c1"))
}

func TestTracker_NamespacesAreDisjoint(t *testing.T) {
	tr := NewTracker()
	tr.Join("c1", domain.RoomChannel("X"))

	assert.Empty(t, tr.MembersOf(domain.SessionChannel("X")))
	assert.False(t, tr.Leave("c1", domain.SessionChannel("X")))
	assert.Equal(t, 1, tr.Count(domain.RoomChannel("X")))
}

func TestTracker_PurgeLeavesEverything(t *testing.T) {
	tr := NewTracker()
	tr.Join("c1", domain.RoomChannel("R1"))
	tr.Join("c1", domain.RoomChannel("R2"))
	tr.Join("c1", domain.SessionChannel("S1"))
	tr.Join("c2", domain.RoomChannel("R1"))

	left := tr.Purge("c1")
	assert.Len(t, left, 3)
	assert.Empty(t, tr.ChannelsOf("c1"))
	assert.Equal(t, []string{"c2"}, tr.MembersOf(domain.RoomChannel("R1")))
	assert.Zero(t, tr.Count(domain.RoomChannel("R2")))
	assert.Empty(t, tr.Purge("c1"))
}

func TestTracker_ConcurrentMutation(t *testing.T) {
	tr := NewTracker()
	room := domain.RoomChannel("R1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			tr.Join(conn, room)
			tr.Join(conn, domain.SessionChannel(conn))
			_ = tr.MembersOf(room)
			if i%2 == 0 {
				tr.Purge(conn)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, tr.Count(room))
	for i := 1; i < 50; i += 2 {
		assert.Len(t, tr.ChannelsOf(fmt.Sprintf("c%d", i)), 2)
	}
}

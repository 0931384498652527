package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastsToRoom(t *testing.T) {
	hub := NewHub()

	a, cancelA := hub.Subscribe("s1")
	defer cancelA()
	b, cancelB := hub.Subscribe("s1")
	defer cancelB()
	other, cancelOther := hub.Subscribe("s2")
	defer cancelOther()

	hub.SplitChanged("s1", 3, "payment")

	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		assert.Equal(t, "s1", ev.SplitID)
		assert.Equal(t, int64(3), ev.Version)
		assert.Equal(t, "payment", ev.Reason)
	}
	assert.Empty(t, other)
}

func TestHub_CancelLeavesRoom(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("s1")
	require.Equal(t, 1, hub.Subscribers("s1"))

	cancel()
	cancel()
	assert.Zero(t, hub.Subscribers("s1"))

	_, open := <-ch
	assert.False(t, open)

	// Broadcasting to an empty room is a no-op.
	hub.SplitChanged("s1", 1, "payment")
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("s1")
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		hub.SplitChanged("s1", int64(i), "payment")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_ConcurrentUse(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancel := hub.Subscribe("s1")
			cancel()
		}()
		go func(v int64) {
			defer wg.Done()
			hub.SplitChanged("s1", v, "payment")
		}(int64(i))
	}
	wg.Wait()
	assert.Zero(t, hub.Subscribers("s1"))
}

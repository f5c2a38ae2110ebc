package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	t.Run("broadcast reaches every subscriber", func(t *testing.T) {
		hub := NewHub()
		ch1, unsub1 := hub.Subscribe()
		ch2, unsub2 := hub.Subscribe()
		defer unsub1()
		defer unsub2()

		hub.Broadcast(`{"table":"profiles","op":"UPDATE"}`)

		assert.Equal(t, `{"table":"profiles","op":"UPDATE"}`, <-ch1)
		assert.Equal(t, `{"table":"profiles","op":"UPDATE"}`, <-ch2)
	})

	t.Run("unsubscribe closes the channel and detaches", func(t *testing.T) {
		hub := NewHub()
		ch, unsub := hub.Subscribe()
		require.Equal(t, 1, hub.SubscriberCount())

		unsub()
		unsub() // idempotent

		_, open := <-ch
		assert.False(t, open)
		assert.Equal(t, 0, hub.SubscriberCount())
	})

	t.Run("slow subscribers are dropped, fast ones keep receiving", func(t *testing.T) {
		hub := NewHub()
		slow, unsubSlow := hub.Subscribe()
		defer unsubSlow()
		fast, unsubFast := hub.Subscribe()
		defer unsubFast()

		// Fill the slow subscriber's buffer, then overflow it.
		for i := 0; i <= subscriberBuffer; i++ {
			hub.Broadcast("evt")
			// Keep the fast subscriber draining.
			<-fast
		}

		assert.Equal(t, 1, hub.SubscriberCount())

		// The slow channel was closed after its buffered events.
		for i := 0; i < subscriberBuffer; i++ {
			_, open := <-slow
			require.True(t, open)
		}
		_, open := <-slow
		assert.False(t, open)
	})
}

package service

import (
	"testing"

	"github.com/haltia/matrix-ci/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestSSEClientMap(t *testing.T) {
	t.Run("success - message is delivered to every client", func(t *testing.T) {
		// arrange
		cm := NewSSEClientMap[store.Event]()
		cm.AddClient("a")
		cm.AddClient("b")

		// act
		cm.SendToClients(store.Event{EventID: 1})

		// assert
		assert.Equal(t, int64(1), (<-cm.GetClient("a")).EventID)
		assert.Equal(t, int64(1), (<-cm.GetClient("b")).EventID)
	})
	t.Run("success - slow client misses messages instead of blocking", func(t *testing.T) {
		// arrange
		cm := NewSSEClientMap[store.Event]()
		cm.AddClient("slow")

		// act
		for i := 0; i < 20; i++ {
			cm.SendToClients(store.Event{EventID: int64(i + 1)})
		}

		// assert
		assert.Len(t, cm.GetClient("slow"), 8)
	})
	t.Run("success - removed client channel is closed", func(t *testing.T) {
		// arrange
		cm := NewSSEClientMap[store.Event]()
		cm.AddClient("a")
		ch := cm.GetClient("a")

		// act
		cm.RemoveClient("a")

		// assert
		_, open := <-ch
		assert.False(t, open)
		assert.Nil(t, cm.GetClient("a"))
	})
}

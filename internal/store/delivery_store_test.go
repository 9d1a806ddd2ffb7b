package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryStore(t *testing.T) {
	ds := NewDeliveryStore()

	t.Run("success - delivery id is remembered", func(t *testing.T) {
		// arrange
		deliveryID := fmt.Sprintf("delivery-%d", time.Now().UnixNano())

		// act
		addErr := ds.Add(deliveryID, time.Now().UTC().Add(time.Hour))
		seen, seenErr := ds.Seen(deliveryID)

		// assert
		assert.NoError(t, addErr)
		assert.NoError(t, seenErr)
		assert.True(t, seen)
	})

	t.Run("success - unknown delivery id is not seen", func(t *testing.T) {
		// act
		seen, err := ds.Seen("never-delivered")

		// assert
		assert.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("success - expired delivery ids are forgotten", func(t *testing.T) {
		// arrange
		deliveryID := fmt.Sprintf("expired-%d", time.Now().UnixNano())
		assert.NoError(t, ds.Add(deliveryID, time.Now().UTC().Add(-time.Hour)))

		// act
		seen, seenErr := ds.Seen(deliveryID)
		removeErr := ds.RemoveExpired()

		// assert
		assert.NoError(t, seenErr)
		assert.False(t, seen)
		assert.NoError(t, removeErr)
	})
}

package a2a

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	failure := errors.New("boom")

	t.Run("opens after threshold", func(t *testing.T) {
		b := NewCircuitBreaker(2, time.Minute)

		assert.True(t, b.Allow())
		b.Record(failure)
		assert.True(t, b.Allow())
		b.Record(failure)

		assert.False(t, b.Allow())
	})

	t.Run("success resets failure count", func(t *testing.T) {
		b := NewCircuitBreaker(2, time.Minute)

		b.Record(failure)
		b.Record(nil)
		b.Record(failure)

		assert.True(t, b.Allow())
	})

	t.Run("half-open probe closes on success", func(t *testing.T) {
		b := NewCircuitBreaker(1, time.Millisecond)

		b.Record(failure)
		assert.False(t, b.Allow())

		time.Sleep(5 * time.Millisecond)
		assert.True(t, b.Allow())  // probe
		assert.False(t, b.Allow()) // held while probe in flight

		b.Record(nil)
		assert.True(t, b.Allow())
	})

	t.Run("half-open probe reopens on failure", func(t *testing.T) {
		b := NewCircuitBreaker(1, time.Millisecond)

		b.Record(failure)
		time.Sleep(5 * time.Millisecond)
		assert.True(t, b.Allow())
		b.Record(failure)

		assert.False(t, b.Allow())
	})

	t.Run("disabled breaker always allows", func(t *testing.T) {
		b := NewCircuitBreaker(0, time.Minute)

		b.Record(failure)
		b.Record(failure)
		assert.True(t, b.Allow())
	})
}

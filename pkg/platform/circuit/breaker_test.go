package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("webhook")

	assert.Equal(t, "webhook", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b := New("webhook", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		useFallback, change := b.RecordFailure()
		assert.False(t, useFallback, "failure %d should not trip the circuit", i+1)
		assert.False(t, change.Opened)
	}

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestBreakerReportsOpenTransitionOnce(t *testing.T) {
	b := New("webhook", WithFailureThreshold(1))

	_, change := b.RecordFailure()
	require.True(t, change.Opened)

	// Failures while open keep shedding but report no new transition.
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened)
}

func TestBreakerClosesAfterSuccessRun(t *testing.T) {
	b := New("webhook", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreakerCountsAreConsecutive(t *testing.T) {
	t.Run("success clears failure streak", func(t *testing.T) {
		b := New("webhook", WithFailureThreshold(3))

		b.RecordFailure()
		b.RecordFailure()
		b.RecordSuccess()

		b.RecordFailure()
		b.RecordFailure()
		assert.False(t, b.IsOpen())

		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})

	t.Run("failure clears success streak", func(t *testing.T) {
		b := New("webhook", WithFailureThreshold(1), WithSuccessThreshold(3))

		b.RecordFailure()
		require.True(t, b.IsOpen())

		b.RecordSuccess()
		b.RecordSuccess()
		b.RecordFailure()

		b.RecordSuccess()
		b.RecordSuccess()
		assert.True(t, b.IsOpen())

		b.RecordSuccess()
		assert.False(t, b.IsOpen())
	})
}

func TestBreakerReset(t *testing.T) {
	b := New("webhook", WithFailureThreshold(1))

	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresNonPositiveThresholds(t *testing.T) {
	b := New("webhook", WithFailureThreshold(0), WithSuccessThreshold(-1))

	// Defaults stay in effect: five failures to open, one success to close.
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen())
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

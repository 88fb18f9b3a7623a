package game

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestClockCountsDownWhileActive(t *testing.T) {
	mock := clock.NewMock()
	d := NewClockDeriver(mock, true)

	d.SetAuthoritative(60, true)
	assert.Equal(t, 60, d.Seconds())

	mock.Add(5 * time.Second)
	assert.Equal(t, 55, d.Seconds())

	mock.Add(2500 * time.Millisecond)
	assert.Equal(t, 53, d.Seconds(), "partial seconds round up for a countdown")
}

func TestClockInactiveStaysPinned(t *testing.T) {
	mock := clock.NewMock()
	d := NewClockDeriver(mock, true)

	d.SetAuthoritative(42.4, false)
	mock.Add(10 * time.Second)
	assert.Equal(t, 42, d.Seconds())
	assert.False(t, d.Expired())
}

func TestClockFloorsAtZero(t *testing.T) {
	mock := clock.NewMock()
	d := NewClockDeriver(mock, true)

	d.SetAuthoritative(3, true)
	mock.Add(10 * time.Second)
	assert.Equal(t, 0, d.Seconds())
	assert.True(t, d.Expired())
}

func TestClockCountsUpWhenUntimed(t *testing.T) {
	mock := clock.NewMock()
	d := NewClockDeriver(mock, false)

	d.SetAuthoritative(10, true)
	mock.Add(4 * time.Second)
	assert.Equal(t, 14, d.Seconds())
	assert.False(t, d.Expired(), "count-up clocks never expire")
}

func TestClockUnanchoredReadsZero(t *testing.T) {
	d := NewClockDeriver(clock.NewMock(), true)
	assert.Equal(t, 0, d.Seconds())
	assert.False(t, d.Expired())
}

func TestClockSetActiveReanchors(t *testing.T) {
	mock := clock.NewMock()
	d := NewClockDeriver(mock, true)

	// Snapshot arrives while the opponent is on the move; the half minute
	// that passes does not burn this player's time.
	d.SetAuthoritative(60, false)
	mock.Add(30 * time.Second)
	assert.Equal(t, 60, d.Seconds())

	d.SetActive(true)
	mock.Add(2 * time.Second)
	assert.Equal(t, 58, d.Seconds())

	d.SetActive(false)
	mock.Add(10 * time.Second)
	assert.Equal(t, 58, d.Seconds(), "deactivating commits the elapsed time and pins")
}

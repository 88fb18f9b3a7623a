package game

import (
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// ClockDeriver projects a display clock for one player from the last
// authoritative time snapshot plus wall-clock time elapsed since it was
// anchored. Only the active player's clock runs; the opponent's display
// stays pinned to the last authoritative value.
//
// Reaching zero is a display-layer courtesy only. The server's game_end
// message stays the source of truth and overrides any local guess.
type ClockDeriver struct {
	clk       clock.Clock
	countdown bool

	anchor        time.Time
	authoritative float64 // seconds
	active        bool
	anchored      bool
}

// NewClockDeriver builds a deriver. countdown selects timed-game semantics;
// untimed-but-tracked clocks count up instead.
func NewClockDeriver(clk clock.Clock, countdown bool) *ClockDeriver {
	return &ClockDeriver{clk: clk, countdown: countdown}
}

// SetAuthoritative anchors a new server snapshot and records whether this
// player's clock is the one currently running.
func (d *ClockDeriver) SetAuthoritative(seconds float64, active bool) {
	d.authoritative = seconds
	d.active = active
	d.anchor = d.clk.Now()
	d.anchored = true
}

// SetActive flips whether this clock is the running one without a fresh
// authoritative value. Deactivating commits the locally elapsed time, so
// the pinned display keeps what the player just burned until the next
// server snapshot corrects it.
func (d *ClockDeriver) SetActive(active bool) {
	if active == d.active {
		return
	}
	if !d.anchored {
		d.active = active
		return
	}

	now := d.clk.Now()
	if d.active {
		elapsed := now.Sub(d.anchor).Seconds()
		if d.countdown {
			d.authoritative = math.Max(0, d.authoritative-elapsed)
		} else {
			d.authoritative += elapsed
		}
	}
	d.anchor = now
	d.active = active
}

// Seconds returns the whole-second value to display right now.
func (d *ClockDeriver) Seconds() int {
	if !d.anchored {
		return 0
	}
	if !d.active {
		return int(math.Round(d.authoritative))
	}

	elapsed := d.clk.Now().Sub(d.anchor).Seconds()
	if d.countdown {
		remaining := math.Ceil(d.authoritative - elapsed)
		return int(math.Max(0, remaining))
	}
	return int(math.Floor(d.authoritative + elapsed))
}

// Expired reports whether an active countdown has locally hit zero.
func (d *ClockDeriver) Expired() bool {
	return d.countdown && d.active && d.anchored && d.Seconds() == 0
}

// Tick is the refresh resolution the display layer should poll Seconds at.
const Tick = 100 * time.Millisecond

package pipeline

import (
	"sync"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
)

type GateState int

const (
	OutOfRange GateState = iota
	InRange
)

func (s GateState) String() string {
	if s == InRange {
		return "InRange"
	}
	return "OutOfRange"
}

type rssiSample struct {
	at   time.Time
	rssi int16
}

// Gate debounces range transitions with two thresholds and a timeout.
// Entering range is immediate; leaving requires the out of range timeout to
// elapse without a sample at or above the in range threshold. Time only moves
// through sample timestamps and Advance.
type Gate struct {
	mu       sync.Mutex
	rng      *domain.RSSIRange
	interval time.Duration
	timeout  time.Duration

	state      GateState
	considered bool
	last       time.Time
	pending    *rssiSample

	timerActive bool
	deadline    time.Time
}

// NewGate builds a gate from cfg. Without an RSSI range it always reports InRange.
func NewGate(cfg domain.FilterConfig) *Gate {
	g := &Gate{
		interval: cfg.SamplingInterval,
		timeout:  cfg.OutOfRangeTimeout,
		state:    OutOfRange,
	}
	if cfg.RSSI != nil {
		r := *cfg.RSSI
		g.rng = &r
	}
	return g
}

// Observe feeds one sample taken at at. ok=false marks a missing or malformed
// RSSI, which only moves time forward. It returns whether the gate is in range
// after the sample and whether a left range transition happened.
func (g *Gate) Observe(at time.Time, rssi int16, ok bool) (inRange, left bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rng == nil {
		return true, false
	}

	left = g.advanceLocked(at)
	if ok {
		if g.interval <= 0 || !g.considered || at.Sub(g.last) >= g.interval {
			g.pending = nil
			if g.applyLocked(at, rssi) {
				left = true
			}
		} else {
			g.pending = &rssiSample{at: at, rssi: rssi}
		}
	}
	return g.state == InRange, left
}

// Advance moves the gate clock to now, applying a coalesced sample whose
// interval has passed and expiring the out of range timeout.
func (g *Gate) Advance(now time.Time) (left bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rng == nil {
		return false
	}
	return g.advanceLocked(now)
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rng == nil {
		return InRange
	}
	return g.state
}

func (g *Gate) advanceLocked(now time.Time) bool {
	left := false
	if g.pending != nil {
		due := g.last.Add(g.interval)
		if !now.Before(due) {
			p := *g.pending
			g.pending = nil
			if g.applyLocked(due, p.rssi) {
				left = true
			}
		}
	}
	if g.expireLocked(now) {
		left = true
	}
	return left
}

func (g *Gate) applyLocked(at time.Time, rssi int16) bool {
	left := g.expireLocked(at)
	g.considered = true
	g.last = at

	switch g.state {
	case OutOfRange:
		if rssi >= g.rng.InRangeDBm {
			g.state = InRange
			g.timerActive = false
		}
	case InRange:
		if rssi >= g.rng.InRangeDBm {
			g.timerActive = false
		} else if rssi <= g.rng.OutOfRangeDBm && !g.timerActive {
			g.timerActive = true
			g.deadline = at.Add(g.timeout)
		}
	}

	if g.expireLocked(at) {
		left = true
	}
	return left
}

func (g *Gate) expireLocked(now time.Time) bool {
	if !g.timerActive || now.Before(g.deadline) {
		return false
	}
	g.timerActive = false
	if g.state != InRange {
		return false
	}
	g.state = OutOfRange
	return true
}

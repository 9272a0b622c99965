package queue

import (
	"sync"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// Window is a bounded, mutex guarded aggregation window that preserves
// arrival order. Once full it behaves as a ring (drop_oldest) or rejects new
// events (drop_newest); every discarded event is counted.
type Window struct {
	mu     sync.Mutex
	max    int
	policy string
	now    func() time.Time

	open     bool
	buf      []*domain.AdvertisementEvent
	head     int
	status   domain.ErrorStatus
	openedAt time.Time
	dropped  uint64
}

// NewWindow returns an open window. max <= 0 means unbounded.
func NewWindow(max int, policy string) *Window {
	return newWindow(max, policy, time.Now)
}

func newWindow(max int, policy string, now func() time.Time) *Window {
	if policy == "" {
		policy = ports.DropOldest
	}
	return &Window{
		max:      max,
		policy:   policy,
		now:      now,
		open:     true,
		openedAt: now(),
	}
}

func (w *Window) Append(ev *domain.AdvertisementEvent) (bool, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open || ev == nil {
		return false, false
	}
	if w.max <= 0 {
		w.buf = append(w.buf, ev)
		return true, false
	}
	if len(w.buf) < w.max {
		w.buf = append(w.buf, ev)
		return true, len(w.buf) == w.max
	}

	w.dropped++
	if w.policy == ports.DropNewest {
		return false, true
	}
	w.buf[w.head] = ev
	w.head = (w.head + 1) % w.max
	return true, true
}

func (w *Window) Drain(reopen bool) *domain.Window {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	out := &domain.Window{
		Status:   w.status,
		OpenedAt: w.openedAt,
		ClosedAt: now,
		Dropped:  w.dropped,
	}
	if n := len(w.buf); n > 0 {
		out.Events = make([]*domain.AdvertisementEvent, n)
		for i := 0; i < n; i++ {
			out.Events[i] = w.buf[(w.head+i)%n]
		}
	}

	clear(w.buf)
	w.buf = w.buf[:0]
	w.head = 0
	w.dropped = 0
	w.status = domain.StatusSuccess
	w.open = reopen
	if reopen {
		w.openedAt = now
	}
	return out
}

// SetError records a radio status on the open window. The first failure wins
// until the window is drained.
func (w *Window) SetError(status domain.ErrorStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status == domain.StatusSuccess {
		w.status = status
	}
}

func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = false
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}

var _ ports.WindowBuffer = (*Window)(nil)

package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ghalamif/BeaconFlow/internal/app/pipeline"
	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

type registration struct {
	name  string
	token uuid.UUID
	cfg   domain.FilterConfig

	state atomic.Int32

	// flushMu serialises drains and publishes for this registration.
	flushMu     sync.Mutex
	fullPending atomic.Bool
	// terminal holds the radio error that ended the scan, if any.
	terminal atomic.Pointer[ports.RadioError]

	win   ports.WindowBuffer
	watch *pipeline.Watch
	sub   ports.Subscription

	cbMu   sync.Mutex
	cbs    map[uint64]func(*domain.ResultRecord)
	nextCb uint64
}

func newRegistration(name string, cfg domain.FilterConfig) *registration {
	r := &registration{
		name:  name,
		token: uuid.New(),
		cfg:   cfg,
		cbs:   make(map[uint64]func(*domain.ResultRecord)),
	}
	r.setState(StateRegistering)
	return r
}

func (r *registration) handle() *Handle {
	return &Handle{Name: r.name, Token: r.token}
}

func (r *registration) getState() State { return State(r.state.Load()) }

func (r *registration) setState(s State) State { return State(r.state.Swap(int32(s))) }

func (r *registration) casState(from, to State) bool {
	return r.state.CompareAndSwap(int32(from), int32(to))
}

// live reports whether radio input should still reach the window.
func (r *registration) live() bool {
	s := r.getState()
	return (s == StateActive || s == StateFlushing) && r.terminal.Load() == nil
}

func (r *registration) onAdvertisement(ev *domain.AdvertisementEvent) {
	if !r.live() {
		return
	}
	r.watch.HandleAdvertisement(ev)
}

func (r *registration) onRadioError(err ports.RadioError) {
	if !r.live() {
		return
	}
	r.watch.HandleError(err)
}

func (r *registration) addCallback(cb func(*domain.ResultRecord)) func() {
	r.cbMu.Lock()
	r.nextCb++
	id := r.nextCb
	r.cbs[id] = cb
	r.cbMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.cbMu.Lock()
			delete(r.cbs, id)
			r.cbMu.Unlock()
		})
	}
}

func (r *registration) callbacks() []func(*domain.ResultRecord) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	out := make([]func(*domain.ResultRecord), 0, len(r.cbs))
	for _, cb := range r.cbs {
		out = append(out, cb)
	}
	return out
}

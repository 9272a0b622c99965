package radio

import (
	"context"
	"sync"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// Sim is a scripted radio source. Injected advertisements are delivered
// synchronously on the caller's goroutine.
type Sim struct {
	// ProbeErr is returned by Probe and Subscribe when set.
	ProbeErr error

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
}

func NewSim() *Sim {
	return &Sim{subs: make(map[uint64]*subscription)}
}

func (s *Sim) Probe(ctx context.Context) error {
	if s.ProbeErr != nil {
		return s.ProbeErr
	}
	return ctx.Err()
}

func (s *Sim) Subscribe(cfg domain.FilterConfig, onAdv ports.AdvHandler, onErr ports.ErrHandler) (ports.Subscription, error) {
	if s.ProbeErr != nil {
		return nil, s.ProbeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &simSubscription{subscription: subscription{id: s.nextID, companyID: cfg.CompanyID, onAdv: onAdv, onErr: onErr}, sim: s}
	s.subs[sub.id] = &sub.subscription
	return sub, nil
}

// Subscribers reports how many subscriptions are live.
func (s *Sim) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Inject delivers ev to every subscriber. No push-down filtering is applied.
func (s *Sim) Inject(ev *domain.AdvertisementEvent) {
	for _, sub := range s.snapshot() {
		sub.deliverAdv(ev)
	}
}

// InjectPacket parses a raw AD payload and delivers the resulting event.
func (s *Sim) InjectPacket(at time.Time, typ domain.AdvertisementType, rssi int16, addr string, payload []byte) error {
	name, sections, err := ParsePacket(payload)
	if err != nil {
		return err
	}
	s.Inject(&domain.AdvertisementEvent{
		Timestamp:        at,
		RawRSSI:          rssi,
		Type:             typ,
		LocalName:        name,
		Address:          addr,
		ManufacturerData: sections,
	})
	return nil
}

func (s *Sim) InjectError(err ports.RadioError) {
	for _, sub := range s.snapshot() {
		sub.deliverErr(err)
	}
}

func (s *Sim) snapshot() []*subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

type simSubscription struct {
	subscription
	sim *Sim
}

func (s *simSubscription) Unsubscribe() error {
	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if already {
		return nil
	}
	s.sim.mu.Lock()
	delete(s.sim.subs, s.id)
	s.sim.mu.Unlock()
	return nil
}

var _ ports.RadioSource = (*Sim)(nil)

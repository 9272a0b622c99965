package radio

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/pkg/errors"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// Scanner is the part of ble.Device the hub needs.
type Scanner interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
}

// Hub runs a single BLE scan and fans advertisements out to its subscribers.
// The scan starts with the first subscription and stops with the last.
type Hub struct {
	scanner Scanner
	obs     ports.Observability
	now     func() time.Time

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	cancel context.CancelFunc
	// done is closed when the current or last scan goroutine returns.
	done chan struct{}
}

func NewHub(scanner Scanner, obs ports.Observability) *Hub {
	return &Hub{
		scanner: scanner,
		obs:     obs,
		now:     time.Now,
		subs:    make(map[uint64]*subscription),
	}
}

func (h *Hub) Probe(ctx context.Context) error {
	if h == nil || h.scanner == nil {
		return ports.ErrUnsupportedHardware
	}
	return ctx.Err()
}

func (h *Hub) Subscribe(cfg domain.FilterConfig, onAdv ports.AdvHandler, onErr ports.ErrHandler) (ports.Subscription, error) {
	if h == nil || h.scanner == nil {
		return nil, ports.ErrUnsupportedHardware
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// A stopping scan still owns the controller until Scan returns.
	for h.cancel == nil && h.done != nil {
		done := h.done
		h.mu.Unlock()
		<-done
		h.mu.Lock()
		if h.done == done {
			h.done = nil
		}
	}

	h.nextID++
	s := &subscription{hub: h, id: h.nextID, companyID: cfg.CompanyID, onAdv: onAdv, onErr: onErr}
	h.subs[s.id] = s

	if h.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		h.cancel, h.done = cancel, done
		go h.scan(ctx, cancel, done)
	}
	return s, nil
}

func (h *Hub) scan(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	h.logInfo("ble_scan_started")
	err := h.scanner.Scan(ctx, true, h.dispatch)
	if ctx.Err() != nil {
		h.logInfo("ble_scan_stopped")
		return
	}
	if err == nil {
		err = errors.New("scan ended unexpectedly")
	}
	rerr := ports.RadioError{
		Status:   domain.StatusRadioNotAvailable,
		Terminal: true,
		Err:      errors.Wrap(err, "ble scan"),
	}
	if h.obs != nil {
		h.obs.LogError("ble_scan_failed", rerr.Err)
	}

	h.mu.Lock()
	subs := h.snapshotLocked()
	if h.done == done {
		h.cancel = nil
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.deliverErr(rerr)
	}
}

func (h *Hub) dispatch(a ble.Advertisement) {
	ev := h.convert(a)

	h.mu.Lock()
	subs := h.snapshotLocked()
	h.mu.Unlock()

	for _, s := range subs {
		if !hasCompany(ev, s.companyID) {
			continue
		}
		s.deliverAdv(ev)
	}
}

func (h *Hub) snapshotLocked() []*subscription {
	out := make([]*subscription, 0, len(h.subs))
	for _, s := range h.subs {
		out = append(out, s)
	}
	return out
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
	if len(h.subs) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

func (h *Hub) convert(a ble.Advertisement) *domain.AdvertisementEvent {
	ev := &domain.AdvertisementEvent{
		Timestamp: h.now(),
		RawRSSI:   clampRSSI(a.RSSI()),
		Type:      domain.NonConnectableUndirected,
		LocalName: a.LocalName(),
	}
	// go-ble does not expose the PDU type; only connectability is known here.
	if a.Connectable() {
		ev.Type = domain.ConnectableUndirected
	}
	if addr := a.Addr(); addr != nil {
		ev.Address = addr.String()
	}
	if md := a.ManufacturerData(); len(md) >= 2 {
		payload := make([]byte, len(md)-2)
		copy(payload, md[2:])
		ev.ManufacturerData = []domain.ManufacturerSection{{
			CompanyID: binary.LittleEndian.Uint16(md[:2]),
			Payload:   payload,
		}}
	}
	return ev
}

func (h *Hub) logInfo(msg string) {
	if h.obs != nil {
		h.obs.LogInfo(msg)
	}
}

// clampRSSI maps values outside int16 to the unavailable marker.
func clampRSSI(v int) int16 {
	if v < -128 || v > 127 {
		return domain.RSSIUnavailable
	}
	return int16(v)
}

func hasCompany(ev *domain.AdvertisementEvent, id uint16) bool {
	for _, s := range ev.ManufacturerData {
		if s.CompanyID == id {
			return true
		}
	}
	return false
}

type subscription struct {
	hub       *Hub
	id        uint64
	companyID uint16
	onAdv     ports.AdvHandler
	onErr     ports.ErrHandler

	mu     sync.Mutex
	closed bool
}

func (s *subscription) deliverAdv(ev *domain.AdvertisementEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.onAdv == nil {
		return
	}
	s.onAdv(ev)
}

func (s *subscription) deliverErr(err ports.RadioError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.onErr == nil {
		return
	}
	s.onErr(err)
}

// Unsubscribe waits for an in-flight callback to return. It must not be
// called from inside that subscription's own callbacks.
func (s *subscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.hub.remove(s.id)
	return nil
}

var _ ports.RadioSource = (*Hub)(nil)

package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

func TestWatchFiltersBeforeBuffering(t *testing.T) {
	obs := &mockObs{}
	win := &mockWindow{}
	w := NewWatch("w", domain.FilterConfig{CompanyID: 76}, win, obs)

	w.HandleAdvertisement(sampleEvent(76, -50))
	w.HandleAdvertisement(sampleEvent(6, -50))
	w.HandleAdvertisement(sampleEvent(76, -50))

	if len(win.events) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(win.events))
	}
	if obs.counters[ports.MetricEventsReceived] != 3 || obs.counters[ports.MetricEventsFiltered] != 1 {
		t.Fatalf("unexpected counters: %+v", obs.counters)
	}
}

func TestWatchGatesOutOfRange(t *testing.T) {
	obs := &mockObs{}
	win := &mockWindow{}
	cfg := domain.FilterConfig{
		CompanyID:         76,
		RSSI:              &domain.RSSIRange{InRangeDBm: -60, OutOfRangeDBm: -80},
		OutOfRangeTimeout: time.Second,
	}
	w := NewWatch("w", cfg, win, obs)

	weak := sampleEvent(76, -70)
	w.HandleAdvertisement(weak)
	if len(win.events) != 0 {
		t.Fatalf("event below the in range threshold must be gated")
	}

	strong := sampleEvent(76, -40)
	strong.Timestamp = weak.Timestamp.Add(time.Millisecond)
	w.HandleAdvertisement(strong)
	if len(win.events) != 1 {
		t.Fatalf("expected strong event to be buffered")
	}

	w.Advance(strong.Timestamp.Add(time.Minute))
	if obs.counters[ports.MetricRangeExits] != 0 {
		t.Fatalf("no weak sample was seen, gate must stay in range")
	}
	if obs.counters[ports.MetricEventsGated] != 1 {
		t.Fatalf("expected one gated event, got %v", obs.counters[ports.MetricEventsGated])
	}
}

func TestWatchSignalsFullWindow(t *testing.T) {
	win := &mockWindow{fullAt: 2}
	w := NewWatch("w", domain.FilterConfig{CompanyID: 76}, win, &mockObs{})

	var fulls int
	w.OnFull = func() { fulls++ }

	w.HandleAdvertisement(sampleEvent(76, -50))
	w.HandleAdvertisement(sampleEvent(76, -50))
	if fulls != 1 {
		t.Fatalf("expected one full signal, got %d", fulls)
	}
}

func TestWatchRadioErrors(t *testing.T) {
	obs := &mockObs{}
	win := &mockWindow{}
	w := NewWatch("w", domain.FilterConfig{CompanyID: 76}, win, obs)

	var terminal []ports.RadioError
	w.OnTerminal = func(err ports.RadioError) { terminal = append(terminal, err) }

	w.HandleError(ports.RadioError{Status: domain.StatusAborted, Err: errors.New("glitch")})
	if win.status != domain.StatusAborted {
		t.Fatalf("transient error should mark the window, got %s", win.status)
	}
	if len(terminal) != 0 {
		t.Fatalf("transient error must not stop the watcher")
	}

	w.HandleError(ports.RadioError{Status: domain.StatusRadioNotAvailable, Terminal: true})
	if len(terminal) != 1 || terminal[0].Status != domain.StatusRadioNotAvailable {
		t.Fatalf("terminal error should reach OnTerminal, got %+v", terminal)
	}
}

func sampleEvent(companyID uint16, rssi int16) *domain.AdvertisementEvent {
	return &domain.AdvertisementEvent{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		RawRSSI:   rssi,
		Type:      domain.ConnectableUndirected,
		LocalName: "beacon",
		ManufacturerData: []domain.ManufacturerSection{
			{CompanyID: companyID, Payload: []byte{0x01, 0x02}},
		},
	}
}

type mockWindow struct {
	events []*domain.AdvertisementEvent
	status domain.ErrorStatus
	fullAt int
	closed bool
}

func (m *mockWindow) Append(ev *domain.AdvertisementEvent) (bool, bool) {
	if m.closed {
		return false, false
	}
	m.events = append(m.events, ev)
	return true, m.fullAt > 0 && len(m.events) >= m.fullAt
}

func (m *mockWindow) Drain(reopen bool) *domain.Window {
	win := &domain.Window{Events: m.events, Status: m.status}
	m.events, m.status, m.closed = nil, domain.StatusSuccess, !reopen
	return win
}

func (m *mockWindow) SetError(s domain.ErrorStatus) { m.status = s }
func (m *mockWindow) Close()                        { m.closed = true }
func (m *mockWindow) Len() int                      { return len(m.events) }

type mockObs struct {
	mu       sync.Mutex
	errors   []error
	counters map[string]float64
}

func (m *mockObs) LogInfo(string, ...ports.Field) {}

func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}

func (m *mockObs) LogCritical(_ string, err error, _ ...ports.Field) {
	m.LogError("", err)
}

func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += v
}

func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}

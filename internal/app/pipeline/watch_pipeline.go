package pipeline

import (
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// Watch is the radio side of one registration: filter, gate, append.
// It runs on the radio delivery goroutine and never blocks beyond the
// window's mutex.
type Watch struct {
	Name   string
	Filter domain.FilterConfig
	Gate   *Gate
	Window ports.WindowBuffer
	Obs    ports.Observability

	// OnFull is called when an append leaves the window at capacity.
	OnFull func()
	// OnTerminal is called for radio errors that stop the watcher.
	OnTerminal func(err ports.RadioError)
}

func NewWatch(name string, cfg domain.FilterConfig, win ports.WindowBuffer, obs ports.Observability) *Watch {
	return &Watch{
		Name:   name,
		Filter: cfg,
		Gate:   NewGate(cfg),
		Window: win,
		Obs:    obs,
	}
}

func (w *Watch) HandleAdvertisement(ev *domain.AdvertisementEvent) {
	w.Obs.IncCounter(ports.MetricEventsReceived, 1)
	if !Matches(ev, w.Filter) {
		w.Obs.IncCounter(ports.MetricEventsFiltered, 1)
		return
	}

	rssi, ok := ev.RSSI()
	inRange, left := w.Gate.Observe(ev.Timestamp, rssi, ok)
	if left {
		w.leftRange(ev.Timestamp)
	}
	if !inRange {
		w.Obs.IncCounter(ports.MetricEventsGated, 1)
		return
	}

	kept, full := w.Window.Append(ev)
	if kept {
		w.Obs.IncCounter(ports.MetricEventsAppended, 1)
	}
	if full && w.OnFull != nil {
		w.OnFull()
	}
}

func (w *Watch) HandleError(err ports.RadioError) {
	if err.Terminal {
		w.Obs.LogCritical("radio_terminal_error", err, ports.Field{Key: "watcher", Value: w.Name})
		if w.OnTerminal != nil {
			w.OnTerminal(err)
		}
		return
	}
	w.Obs.LogError("radio_error", err, ports.Field{Key: "watcher", Value: w.Name})
	w.Window.SetError(err.Status)
}

// Advance moves the gate clock, used by the trigger side before a flush.
func (w *Watch) Advance(now time.Time) {
	if w.Gate.Advance(now) {
		w.leftRange(now)
	}
}

func (w *Watch) leftRange(at time.Time) {
	w.Obs.IncCounter(ports.MetricRangeExits, 1)
	w.Obs.LogInfo("left_range",
		ports.Field{Key: "watcher", Value: w.Name},
		ports.Field{Key: "at", Value: at})
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ghalamif/BeaconFlow/internal/ports"
)

type PromObs struct {
	log      *logrus.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the collectors on the default registerer.
func NewPromObs(log *logrus.Logger) *PromObs {
	return NewPromObsWith(prometheus.DefaultRegisterer, log)
}

func NewPromObsWith(reg prometheus.Registerer, log *logrus.Logger) *PromObs {
	if log == nil {
		log = logrus.StandardLogger()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	received := counter(ports.MetricEventsReceived, "Advertisements delivered by the radio source.")
	filtered := counter(ports.MetricEventsFiltered, "Advertisements without a matching manufacturer section.")
	gated := counter(ports.MetricEventsGated, "Matching advertisements discarded while out of range.")
	appended := counter(ports.MetricEventsAppended, "Advertisements added to an aggregation window.")
	dropped := counter(ports.MetricEventsDropped, "Advertisements lost to the window overflow policy.")
	flushes := counter(ports.MetricFlushes, "Windows flushed and published.")
	publishFailures := counter(ports.MetricPublishFailures, "Result records the store rejected.")
	rangeExits := counter(ports.MetricRangeExits, "Left range transitions of the signal strength gate.")

	windowGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricWindowEvents,
		Help: "Advertisements buffered across open windows.",
	})
	regGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricRegistrations,
		Help: "Active watcher registrations.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricFlushLatency,
		Help:    "Time spent publishing a flushed window to the result store.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	reg.MustRegister(received, filtered, gated, appended, dropped, flushes, publishFailures, rangeExits,
		windowGauge, regGauge, latency)

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			ports.MetricEventsReceived:  received,
			ports.MetricEventsFiltered:  filtered,
			ports.MetricEventsGated:     gated,
			ports.MetricEventsAppended:  appended,
			ports.MetricEventsDropped:   dropped,
			ports.MetricFlushes:         flushes,
			ports.MetricPublishFailures: publishFailures,
			ports.MetricRangeExits:      rangeExits,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricWindowEvents:  windowGauge,
			ports.MetricRegistrations: regGauge,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricFlushLatency: latency,
		},
	}
}

func (p *PromObs) entry(fields []ports.Field) *logrus.Entry {
	f := make(logrus.Fields, len(fields))
	for _, field := range fields {
		f[field.Key] = field.Value
	}
	return p.log.WithFields(f)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.entry(fields).Info(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.entry(fields).WithError(err).Error(msg)
}

// LogCritical logs at error level with critical=true; it never exits.
func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.entry(fields).WithError(err).WithField("critical", true).Error(msg)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

var _ ports.Observability = (*PromObs)(nil)

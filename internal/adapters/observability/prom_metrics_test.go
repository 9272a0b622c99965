package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/ghalamif/BeaconFlow/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	obs := NewPromObs(nil)

	obs.IncCounter(ports.MetricEventsAppended, 5)
	if got := testutil.ToFloat64(obs.counters[ports.MetricEventsAppended]); got != 5 {
		t.Fatalf("expected appended counter 5, got %f", got)
	}

	obs.IncCounter(ports.MetricEventsDropped, 2)
	if got := testutil.ToFloat64(obs.counters[ports.MetricEventsDropped]); got != 2 {
		t.Fatalf("expected drop counter 2, got %f", got)
	}

	obs.SetGauge(ports.MetricWindowEvents, 42)
	if got := testutil.ToFloat64(obs.gauges[ports.MetricWindowEvents]); got != 42 {
		t.Fatalf("expected window gauge 42, got %f", got)
	}

	obs.ObserveLatency(ports.MetricFlushLatency, 0.5)
	hCollector := obs.histos[ports.MetricFlushLatency].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.IncCounter("unknown_metric", 1)
}

func TestPromObsLogsFields(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	obs := NewPromObsWith(prometheus.NewRegistry(), log)
	obs.LogError("result_publish_failed", errors.New("boom"), ports.Field{Key: "task", Value: "w"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["msg"] != "result_publish_failed" || line["task"] != "w" || line["error"] != "boom" {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestNewLoggerDefaults(t *testing.T) {
	l := NewLogger(LogConfig{Level: "bogus"})
	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level fallback, got %s", l.GetLevel())
	}
	if _, ok := l.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter by default")
	}
}

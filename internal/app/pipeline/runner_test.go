package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

func TestFormatEvent(t *testing.T) {
	ev := &domain.AdvertisementEvent{
		Timestamp: time.Date(2024, 3, 1, 9, 5, 7, 42_000_000, time.UTC),
		RawRSSI:   -63,
		Type:      domain.NonConnectableUndirected,
		LocalName: "tag-1",
		ManufacturerData: []domain.ManufacturerSection{
			{CompanyID: 0x4C, Payload: []byte{0x02, 0x15, 0xAB}},
			{CompanyID: 0x06, Payload: []byte{0xFF}},
		},
	}

	want := "[09:05:07.042] [NonConnectableUndirected]: Rssi=-63dBm, localName=tag-1, manufacturerData=[0x4C: 02-15-AB]"
	if got := FormatEvent(ev); got != want {
		t.Fatalf("unexpected line:\n got %q\nwant %q", got, want)
	}
}

func TestFormatEventWithoutManufacturerData(t *testing.T) {
	ev := &domain.AdvertisementEvent{
		Timestamp: time.Date(2024, 3, 1, 23, 59, 59, 999_000_000, time.UTC),
		RawRSSI:   -90,
		Type:      domain.ScanResponse,
	}

	want := "[23:59:59.999] [ScanResponse]: Rssi=-90dBm, localName=, manufacturerData=[]"
	if got := FormatEvent(ev); got != want {
		t.Fatalf("unexpected line:\n got %q\nwant %q", got, want)
	}
}

func TestRunBuildsRecord(t *testing.T) {
	cfg := domain.FilterConfig{
		CompanyID:         76,
		RSSI:              &domain.RSSIRange{InRangeDBm: -60, OutOfRangeDBm: -80},
		OutOfRangeTimeout: 5 * time.Second,
		SamplingInterval:  time.Second,
	}
	win := &domain.Window{
		Events: []*domain.AdvertisementEvent{
			sampleEvent(76, -50),
			sampleEvent(76, -55),
		},
		Status:  domain.StatusAborted,
		Dropped: 3,
	}

	rec := Run("watcher", win, cfg, domain.ReasonTick)
	if rec.TaskName != "watcher" || rec.EventCount != 2 || rec.Dropped != 3 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Status != domain.StatusAborted {
		t.Fatalf("expected status Aborted, got %s", rec.Status)
	}
	if n := len(strings.Split(rec.SummaryText, "\n")); n != 2 {
		t.Fatalf("expected 2 summary lines, got %d", n)
	}
	if rec.Thresholds.InRangeDBm != -60 || rec.Thresholds.OutOfRangeDBm != -80 {
		t.Fatalf("unexpected thresholds: %+v", rec.Thresholds)
	}

	header := "ErrorStatus: Aborted, EventCount: 2, HighDBm: -60, LowDBm: -80, Timeout: 5000, Sampling: 1000"
	if rec.Header() != header {
		t.Fatalf("unexpected header %q", rec.Header())
	}
	if !strings.HasPrefix(rec.Message(), header+"\n") {
		t.Fatalf("message should start with header, got %q", rec.Message())
	}
}

func TestRunEmptyWindow(t *testing.T) {
	rec := Run("watcher", &domain.Window{}, domain.FilterConfig{CompanyID: 76}, domain.ReasonTick)
	if rec.EventCount != 0 || rec.SummaryText != "" {
		t.Fatalf("expected empty record, got %+v", rec)
	}
	if rec.Status != domain.StatusSuccess {
		t.Fatalf("expected Success, got %s", rec.Status)
	}
	if rec.Message() != rec.Header() {
		t.Fatalf("empty record message should be the header only")
	}
}

func TestPublishCountsFailures(t *testing.T) {
	obs := &mockObs{}
	ch := &mockChannel{err: errors.New("boom")}

	err := Publish(context.Background(), ch, &domain.ResultRecord{TaskName: "w"}, obs)
	if err == nil {
		t.Fatalf("expected publish error")
	}
	if obs.counters[ports.MetricPublishFailures] != 1 {
		t.Fatalf("expected publish failure counter")
	}
	if len(obs.errors) != 1 {
		t.Fatalf("expected error to be logged")
	}
}

func TestPublishRecordsDrops(t *testing.T) {
	obs := &mockObs{}
	ch := &mockChannel{}

	rec := &domain.ResultRecord{TaskName: "w", Dropped: 7}
	if err := Publish(context.Background(), ch, rec, obs); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ch.last != rec || ch.key != "w" {
		t.Fatalf("record not forwarded to channel")
	}
	if obs.counters[ports.MetricEventsDropped] != 7 || obs.counters[ports.MetricFlushes] != 1 {
		t.Fatalf("unexpected counters: %+v", obs.counters)
	}
}

type mockChannel struct {
	err  error
	key  string
	last *domain.ResultRecord
}

func (m *mockChannel) Publish(_ context.Context, key string, rec *domain.ResultRecord) error {
	if m.err != nil {
		return m.err
	}
	m.key, m.last = key, rec
	return nil
}

func (m *mockChannel) Consume(context.Context, string) (*domain.ResultRecord, bool, error) {
	return m.last, m.last != nil, nil
}
func (m *mockChannel) Keys(context.Context) ([]string, error) { return []string{m.key}, nil }
func (m *mockChannel) Clear(context.Context, string) error    { m.last = nil; return nil }
func (m *mockChannel) Name() string                           { return "mock" }

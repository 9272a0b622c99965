package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// Run turns a drained window into the record published for taskName.
func Run(taskName string, win *domain.Window, cfg domain.FilterConfig, reason domain.FlushReason) *domain.ResultRecord {
	rec := &domain.ResultRecord{
		TaskName:   taskName,
		Thresholds: cfg.Thresholds(),
		Reason:     reason,
	}
	if win == nil {
		return rec
	}

	lines := make([]string, 0, len(win.Events))
	for _, ev := range win.Events {
		lines = append(lines, FormatEvent(ev))
	}

	rec.Status = win.Status
	rec.EventCount = len(win.Events)
	rec.Dropped = win.Dropped
	rec.SummaryText = strings.Join(lines, "\n")
	rec.OpenedAt = win.OpenedAt
	rec.ClosedAt = win.ClosedAt
	return rec
}

// FormatEvent renders one advertisement as a single summary line.
func FormatEvent(ev *domain.AdvertisementEvent) string {
	var mfg string
	if len(ev.ManufacturerData) > 0 {
		sec := ev.ManufacturerData[0]
		mfg = fmt.Sprintf("0x%X: %s", sec.CompanyID, dashedHex(sec.Payload))
	}
	return fmt.Sprintf("[%s] [%s]: Rssi=%ddBm, localName=%s, manufacturerData=[%s]",
		ev.Timestamp.Format("15:04:05.000"),
		ev.Type,
		ev.RawRSSI,
		ev.LocalName,
		mfg,
	)
}

func dashedHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte('-')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

// Publish writes rec to ch and records latency and failures. It never waits
// on a consumer; the only wait is the store itself, bounded by ctx.
func Publish(ctx context.Context, ch ports.ResultChannel, rec *domain.ResultRecord, obs ports.Observability) error {
	start := time.Now()
	if err := ch.Publish(ctx, rec.TaskName, rec); err != nil {
		obs.IncCounter(ports.MetricPublishFailures, 1)
		obs.LogError("result_publish_failed", err,
			ports.Field{Key: "task", Value: rec.TaskName},
			ports.Field{Key: "store", Value: ch.Name()})
		return fmt.Errorf("publish %s: %w", rec.TaskName, err)
	}
	obs.ObserveLatency(ports.MetricFlushLatency, time.Since(start).Seconds())
	obs.IncCounter(ports.MetricFlushes, 1)
	if rec.Dropped > 0 {
		obs.IncCounter(ports.MetricEventsDropped, float64(rec.Dropped))
	}
	obs.LogInfo("flush_published",
		ports.Field{Key: "task", Value: rec.TaskName},
		ports.Field{Key: "events", Value: rec.EventCount},
		ports.Field{Key: "dropped", Value: rec.Dropped},
		ports.Field{Key: "status", Value: rec.Status.String()},
		ports.Field{Key: "reason", Value: string(rec.Reason)})
	return nil
}

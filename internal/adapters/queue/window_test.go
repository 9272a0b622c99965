package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

func event(seq int) *domain.AdvertisementEvent {
	return &domain.AdvertisementEvent{
		Timestamp: time.Unix(0, int64(seq)),
		RawRSSI:   -50,
		ManufacturerData: []domain.ManufacturerSection{
			{CompanyID: 76, Payload: []byte{byte(seq)}},
		},
	}
}

func TestWindowPreservesArrivalOrder(t *testing.T) {
	w := NewWindow(4, ports.DropOldest)

	e1, e2 := event(1), event(2)
	w.Append(e1)
	w.Append(e2)
	w.Append(e1)

	win := w.Drain(true)
	if len(win.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(win.Events))
	}
	if win.Events[0] != e1 || win.Events[1] != e2 || win.Events[2] != e1 {
		t.Fatalf("unexpected order: %+v", win.Events)
	}
	if w.Len() != 0 {
		t.Fatalf("window should be empty after drain, got %d", w.Len())
	}
}

func TestWindowDrainEmpty(t *testing.T) {
	w := NewWindow(0, "")

	win := w.Drain(true)
	if win.Len() != 0 || win.Dropped != 0 {
		t.Fatalf("expected empty window, got %+v", win)
	}
	if win.Status != domain.StatusSuccess {
		t.Fatalf("expected Success, got %s", win.Status)
	}
	if again := w.Drain(true); again.Len() != 0 {
		t.Fatalf("second drain should also be empty")
	}
}

func TestWindowDropOldest(t *testing.T) {
	w := NewWindow(100, ports.DropOldest)

	events := make([]*domain.AdvertisementEvent, 150)
	for i := range events {
		events[i] = event(i)
		w.Append(events[i])
	}

	win := w.Drain(true)
	if len(win.Events) != 100 {
		t.Fatalf("expected 100 events, got %d", len(win.Events))
	}
	if win.Dropped != 50 {
		t.Fatalf("expected 50 dropped, got %d", win.Dropped)
	}
	for i, ev := range win.Events {
		if ev != events[50+i] {
			t.Fatalf("event %d: expected seq %d", i, 50+i)
		}
	}
}

func TestWindowDropNewest(t *testing.T) {
	w := NewWindow(100, ports.DropNewest)

	events := make([]*domain.AdvertisementEvent, 150)
	for i := range events {
		events[i] = event(i)
		kept, _ := w.Append(events[i])
		if kept != (i < 100) {
			t.Fatalf("append %d: kept=%v", i, kept)
		}
	}

	win := w.Drain(true)
	if len(win.Events) != 100 || win.Dropped != 50 {
		t.Fatalf("expected 100 kept / 50 dropped, got %d / %d", len(win.Events), win.Dropped)
	}
	if win.Events[0] != events[0] || win.Events[99] != events[99] {
		t.Fatalf("drop_newest should keep the first 100 events")
	}
}

func TestWindowReportsFull(t *testing.T) {
	w := NewWindow(2, ports.DropOldest)

	if _, full := w.Append(event(1)); full {
		t.Fatalf("window should not be full after one event")
	}
	if _, full := w.Append(event(2)); !full {
		t.Fatalf("window should be full after two events")
	}
}

func TestWindowClosedIgnoresAppend(t *testing.T) {
	w := NewWindow(0, "")
	w.Append(event(1))

	first := w.Drain(false)
	if first.Len() != 1 {
		t.Fatalf("expected 1 event, got %d", first.Len())
	}
	if kept, _ := w.Append(event(2)); kept {
		t.Fatalf("append after closing drain must be a no-op")
	}
	if w.Drain(false).Len() != 0 {
		t.Fatalf("closed window should stay empty")
	}

	w2 := NewWindow(0, "")
	w2.Close()
	if kept, _ := w2.Append(event(1)); kept {
		t.Fatalf("append after Close must be a no-op")
	}
}

func TestWindowErrorStatusResetOnDrain(t *testing.T) {
	w := NewWindow(0, "")
	w.SetError(domain.StatusRadioNotAvailable)
	w.SetError(domain.StatusAborted)

	win := w.Drain(true)
	if win.Status != domain.StatusRadioNotAvailable {
		t.Fatalf("expected first error to win, got %s", win.Status)
	}
	if next := w.Drain(true); next.Status != domain.StatusSuccess {
		t.Fatalf("new window should start with Success, got %s", next.Status)
	}
}

func TestWindowTimestamps(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := newWindow(0, "", func() time.Time { return clock })

	clock = clock.Add(time.Second)
	win := w.Drain(true)
	if !win.OpenedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected opened at %s", win.OpenedAt)
	}
	if !win.ClosedAt.Equal(clock) {
		t.Fatalf("unexpected closed at %s", win.ClosedAt)
	}
}

func TestWindowConcurrentAppendAndDrainNoLossNoDup(t *testing.T) {
	const n = 5000
	w := NewWindow(0, "")

	events := make([]*domain.AdvertisementEvent, n)
	for i := range events {
		events[i] = event(i)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, ev := range events {
			w.Append(ev)
		}
	}()

	var first *domain.Window
	for i := 0; i < 10; i++ {
		time.Sleep(time.Microsecond)
		if i == 5 {
			first = w.Drain(true)
		}
	}
	wg.Wait()
	second := w.Drain(true)

	seen := make(map[*domain.AdvertisementEvent]int, n)
	for _, ev := range first.Events {
		seen[ev]++
	}
	for _, ev := range second.Events {
		seen[ev]++
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct events, got %d", n, len(seen))
	}
	for _, ev := range events {
		if seen[ev] != 1 {
			t.Fatalf("event seen %d times", seen[ev])
		}
	}
}

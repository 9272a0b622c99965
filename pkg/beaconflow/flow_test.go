package beaconflow

import (
	"context"
	"testing"

	"github.com/ghalamif/BeaconFlow/internal/adapters/store"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig()
	cfg.Watchers = nil

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	ext := NewExternalRadio()
	mem := store.NewMemoryStore()

	rt, err := flow.
		Watch("apple", FilterConfig{CompanyID: 76}).
		StreamIN(
			StreamInRadio(ext),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(
			StreamOutStore(mem),
			StreamOutObservability(&stubObservability{}),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if rt.radio != ext {
		t.Fatalf("expected custom radio to be wired")
	}
	if rt.store != mem {
		t.Fatalf("expected custom store to be wired")
	}
	if len(cfg.Watchers) != 1 || cfg.Watchers[0].CompanyID != 76 {
		t.Fatalf("expected watcher to be added, got %+v", cfg.Watchers)
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	flow, err := ConfFromConfig(testConfig())
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// Stop immediately so Run goes straight to shutdown.
	cancel()

	var got int
	if err := flow.StreamIN(
		StreamInRadio(NewExternalRadio()),
		StreamInObservability(&stubObservability{}),
	).Run(ctx,
		StreamOutCallback(func(*ResultRecord) { got++ }),
	); err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected the shutdown flush to reach the callback once, got %d", got)
	}
}

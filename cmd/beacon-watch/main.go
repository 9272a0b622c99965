package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ghalamif/BeaconFlow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "results":
		err = resultsCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("beacon-watch %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to watcher configuration file")
	simulate := fs.Bool("simulate", false, "Feed synthetic advertisements instead of scanning")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := beaconflow.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printRecord := beaconflow.StreamOutCallback(func(rec *beaconflow.ResultRecord) {
		fmt.Printf("[%s] %s (%s)\n%s\n", rec.TaskName, time.Now().Format(time.RFC3339), rec.Reason, rec.Message())
	})

	if *simulate {
		ext := beaconflow.NewExternalRadio()
		go simulateBeacons(ctx, ext, flow.Config().Watchers)
		flow.StreamIN(beaconflow.StreamInRadio(ext))
	}
	return flow.Run(ctx, printRecord)
}

// simulateBeacons emits one advertisement per watcher every 250ms with a
// signal that drifts in and out of range.
func simulateBeacons(ctx context.Context, ext *beaconflow.ExternalRadio, watchers []beaconflow.WatcherConfig) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	rssi := int16(-70)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rssi += int16(rand.Intn(11) - 5)
			if rssi > -30 || rssi < -100 {
				rssi = -70
			}
			for _, w := range watchers {
				ext.Publish(beaconflow.AdvertisementEvent{
					Timestamp: now,
					RawRSSI:   rssi,
					LocalName: "sim-" + w.Name,
					ManufacturerData: []beaconflow.ManufacturerSection{
						{CompanyID: w.CompanyID, Payload: []byte{0x02, 0x15, byte(rand.Intn(256))}},
					},
				})
			}
		}
	}
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := beaconflow.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good: %d watcher(s), store=%s, radio=%s\n",
		*cfgPath, len(cfg.Watchers), cfg.Store.Driver, cfg.Radio.Driver)
	return nil
}

// resultsCommand reads records from the configured store. Only stores shared
// between processes (file, postgres, redis) are useful here.
func resultsCommand(args []string) error {
	fs := flag.NewFlagSet("results", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to watcher configuration file")
	name := fs.String("name", "", "Only show this task")
	ack := fs.Bool("clear", false, "Acknowledge (clear) records after printing; opens file stores for writing")
	follow := fs.Bool("follow", false, "Keep polling for new records")
	interval := fs.Duration("interval", 2*time.Second, "Poll interval with -follow")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := beaconflow.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Driver == beaconflow.StoreMemory {
		return fmt.Errorf("store.driver %q is process local; nothing to read", cfg.Store.Driver)
	}

	store, closeStore, err := beaconflow.OpenResultChannel(cfg.Store, !*ack)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	show := func(rec *beaconflow.ResultRecord) {
		if *name != "" && rec.TaskName != *name {
			return
		}
		fmt.Printf("[%s] closed=%s reason=%s dropped=%d\n%s\n",
			rec.TaskName, rec.ClosedAt.Format(time.RFC3339), rec.Reason, rec.Dropped, rec.Message())
		if *ack {
			if err := store.Clear(ctx, rec.TaskName); err != nil {
				fmt.Fprintf(os.Stderr, "clear %s: %v\n", rec.TaskName, err)
			}
		}
	}

	if *follow {
		if err := beaconflow.PollResults(ctx, store, *interval, show); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("no results yet")
	}
	for _, k := range keys {
		rec, ok, err := store.Consume(ctx, k)
		if err != nil {
			return err
		}
		if ok {
			show(rec)
		}
	}
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"beacon_events_received_total": 0,
		"beacon_events_appended_total": 0,
		"beacon_events_dropped_total":  0,
		"beacon_flushes_total":         0,
		"beacon_window_events":         0,
		"beacon_registrations_active":  0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] received=%.0f appended=%.0f dropped=%.0f flushes=%.0f buffered=%.0f watchers=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["beacon_events_received_total"],
		targets["beacon_events_appended_total"],
		targets["beacon_events_dropped_total"],
		targets["beacon_flushes_total"],
		targets["beacon_window_events"],
		targets["beacon_registrations_active"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`BeaconFlow CLI

Usage:
  beacon-watch <command> [flags]

Commands:
  run        Start the watchers from the provided config
  validate   Load and validate a config file without starting anything
  results    Print the latest record per task from a shared store
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  beacon-watch run -config ./data/config.yaml
  beacon-watch run -config ./data/config.yaml -simulate
  beacon-watch results -config ./data/config.yaml -follow
  beacon-watch stats -url http://localhost:9100/metrics -interval 1s
`)
}

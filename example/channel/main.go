package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/BeaconFlow"
)

func main() {
	flow, err := beaconflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deliver, records, closeRecords := beaconflow.NewChannelConsumer(32)
	defer closeRecords()

	go fanoutWorker("presence", records)

	if err := flow.Run(ctx, beaconflow.StreamOutCallback(deliver)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, records <-chan beaconflow.ResultRecord) {
	for rec := range records {
		fmt.Printf("[%s] %s saw %d advertisements (status %s) at %s\n",
			name, rec.TaskName, rec.EventCount, rec.Status, time.Now().Format(time.RFC3339))
	}
}

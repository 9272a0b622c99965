package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/BeaconFlow/pkg/beaconflow"
)

func main() {
	flow, err := beaconflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(rec *beaconflow.ResultRecord) {
		fmt.Printf("%s task=%s reason=%s\n%s\n",
			time.Now().Format(time.RFC3339Nano),
			rec.TaskName,
			rec.Reason,
			rec.Message(),
		)
	}

	if err := flow.Run(ctx, beaconflow.StreamOutCallback(callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

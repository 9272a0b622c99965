package ports

import (
	"context"

	"github.com/ghalamif/BeaconFlow/internal/domain"
)

// ResultChannel hands result records to consumers that may not be running.
// Publish overwrites the record stored under key; nothing keeps history.
type ResultChannel interface {
	Publish(ctx context.Context, key string, rec *domain.ResultRecord) error
	// Consume peeks at the record for key without removing it.
	Consume(ctx context.Context, key string) (*domain.ResultRecord, bool, error)
	Keys(ctx context.Context) ([]string, error)
	// Clear is the consumer's acknowledgement; the pipeline never calls it.
	Clear(ctx context.Context, key string) error
	Name() string
}

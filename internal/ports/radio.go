package ports

import (
	"context"
	"fmt"

	"github.com/ghalamif/BeaconFlow/internal/domain"
)

// AdvHandler receives advertisements from a radio source.
type AdvHandler func(ev *domain.AdvertisementEvent)

// ErrHandler receives radio failures from a radio source.
type ErrHandler func(err RadioError)

// RadioSource delivers received advertisements. The filter config is pushed
// down so sources able to filter early can do so; callers filter again.
type RadioSource interface {
	// Probe reports ErrUnsupportedHardware when background scanning is not possible.
	Probe(ctx context.Context) error
	Subscribe(cfg domain.FilterConfig, onAdv AdvHandler, onErr ErrHandler) (Subscription, error)
}

// Subscription stops a delivery started by RadioSource.Subscribe. No handler
// runs once Unsubscribe has returned. Calling it more than once is allowed.
type Subscription interface {
	Unsubscribe() error
}

// RadioError is a failure reported by the radio layer. Terminal errors stop
// the watcher until it is registered again.
type RadioError struct {
	Status   domain.ErrorStatus
	Terminal bool
	Err      error
}

func (e RadioError) Error() string {
	kind := "transient"
	if e.Terminal {
		kind = "terminal"
	}
	if e.Err == nil {
		return fmt.Sprintf("radio %s error: %s", kind, e.Status)
	}
	return fmt.Sprintf("radio %s error: %s: %v", kind, e.Status, e.Err)
}

func (e RadioError) Unwrap() error { return e.Err }

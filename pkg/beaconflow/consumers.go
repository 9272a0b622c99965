package beaconflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrConsumerClosed is returned when a consumer is used after being closed.
var ErrConsumerClosed = errors.New("beaconflow: consumer closed")

// NewChannelConsumer exposes published records via a channel. It returns the
// callback to pass to OnFlushed or WithResultCallback, the read-only channel,
// and a close function the caller should invoke during shutdown. The callback
// never blocks: when the buffer is full the oldest queued record is dropped.
func NewChannelConsumer(buffer int) (func(*ResultRecord), <-chan ResultRecord, func()) {
	if buffer < 1 {
		buffer = 1
	}
	c := &channelConsumer{ch: make(chan ResultRecord, buffer)}
	return c.deliver, c.ch, c.close
}

type channelConsumer struct {
	mu     sync.Mutex
	ch     chan ResultRecord
	closed bool
}

func (c *channelConsumer) deliver(rec *ResultRecord) {
	if rec == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	v := *rec
	for {
		select {
		case c.ch <- v:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

func (c *channelConsumer) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// ConsumeAndClear reads the latest record for name and acknowledges it.
func ConsumeAndClear(ctx context.Context, ch ResultChannel, name string) (*ResultRecord, bool, error) {
	if ch == nil {
		return nil, false, ErrConsumerClosed
	}
	rec, ok, err := ch.Consume(ctx, name)
	if err != nil || !ok {
		return rec, ok, err
	}
	if err := ch.Clear(ctx, name); err != nil {
		return rec, true, err
	}
	return rec, true, nil
}

type reloader interface {
	Reload() error
}

// PollResults reads every key of ch each interval and calls fn with records
// that are new since the previous poll (a different ClosedAt). It is meant
// for consumers running outside the process that publishes; read only file
// stores are reloaded before each poll. It returns when ctx is done.
func PollResults(ctx context.Context, ch ResultChannel, interval time.Duration, fn func(*ResultRecord)) error {
	if ch == nil || fn == nil {
		return ErrConsumerClosed
	}
	if interval <= 0 {
		interval = time.Second
	}
	seen := make(map[string]time.Time)
	poll := func() error {
		if r, ok := ch.(reloader); ok {
			if err := r.Reload(); err != nil {
				return err
			}
		}
		keys, err := ch.Keys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			rec, ok, err := ch.Consume(ctx, k)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if last, dup := seen[k]; dup && last.Equal(rec.ClosedAt) {
				continue
			}
			seen[k] = rec.ClosedAt
			fn(rec)
		}
		return nil
	}

	if err := poll(); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := poll(); err != nil {
				return err
			}
		}
	}
}

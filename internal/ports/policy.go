package ports

import "time"

// Overflow policies for a full window.
const (
	DropOldest = "drop_oldest"
	DropNewest = "drop_newest"
)

type Policy struct {
	MaxWindowEvents int           `yaml:"max_window_events"`
	OnWindowFull    string        `yaml:"on_window_full"` // "drop_oldest", "drop_newest"
	FlushOnFull     bool          `yaml:"flush_on_full"`
	FlushInterval   time.Duration `yaml:"flush_interval"`
	PublishTimeout  time.Duration `yaml:"publish_timeout"`
}

package beaconflow

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → StreamIN → StreamOUT
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the radio side of the pipeline.
type StreamInOption func(*Flow)

// StreamOutOption configures the result side of the pipeline.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Watch adds a watcher to the configuration.
func (f *Flow) Watch(name string, filter FilterConfig) *Flow {
	if f == nil {
		return nil
	}
	f.cfg.Watchers = append(f.cfg.Watchers, WatcherConfig{
		Name:              name,
		CompanyID:         filter.CompanyID,
		RSSI:              filter.RSSI,
		SamplingInterval:  filter.SamplingInterval,
		OutOfRangeTimeout: filter.OutOfRangeTimeout,
	})
	return f
}

// Options appends raw RuntimeOption values to the builder for advanced scenarios.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records radio-side overrides (radio source, access provider, observability).
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT records result-side overrides and builds a Runtime ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInRadio injects a custom radio source.
func StreamInRadio(r RadioSource) StreamInOption {
	return func(f *Flow) {
		if f != nil && r != nil {
			f.appendOptions(WithRadio(r))
		}
	}
}

// StreamInAccess plugs in the host's background access provider.
func StreamInAccess(a AccessProvider) StreamInOption {
	return func(f *Flow) {
		if f != nil && a != nil {
			f.appendOptions(WithAccessProvider(a))
		}
	}
}

// StreamInObservability overrides the default Prometheus-based observability stack.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutStore injects a custom ResultChannel implementation.
func StreamOutStore(ch ResultChannel) StreamOutOption {
	return func(f *Flow) {
		if f != nil && ch != nil {
			f.appendOptions(WithResultChannel(ch))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback receives every record published for any watcher.
func StreamOutCallback(fn func(*ResultRecord)) StreamOutOption {
	return func(f *Flow) {
		if f != nil && fn != nil {
			f.appendOptions(WithResultCallback(fn))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}

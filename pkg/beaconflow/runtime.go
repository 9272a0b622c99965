package beaconflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/BeaconFlow/internal/adapters/observability"
	"github.com/ghalamif/BeaconFlow/internal/adapters/radio"
	"github.com/ghalamif/BeaconFlow/internal/adapters/store"
	"github.com/ghalamif/BeaconFlow/internal/app/config"
	"github.com/ghalamif/BeaconFlow/internal/app/scheduler"
	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	radio         RadioSource
	store         ResultChannel
	access        AccessProvider
	observability Observability
	callbacks     []func(*ResultRecord)
}

// WithRadio injects a custom radio source (another BLE stack, a replay, a simulator).
func WithRadio(r RadioSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.radio = r
	}
}

// WithResultChannel injects a custom store for published records.
func WithResultChannel(ch ResultChannel) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.store = ch
	}
}

// WithAccessProvider plugs in the host's background access dialog.
func WithAccessProvider(a AccessProvider) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.access = a
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithResultCallback attaches fn to every configured watcher on Start.
func WithResultCallback(fn func(*ResultRecord)) RuntimeOption {
	return func(o *runtimeOverrides) {
		if fn != nil {
			o.callbacks = append(o.callbacks, fn)
		}
	}
}

// Runtime wires the radio → filter → gate → window → result channel pipeline
// for the configured watchers and exposes lifecycle hooks for embedding
// BeaconFlow inside any Go service.
type Runtime struct {
	cfg        *Config
	obs        ports.Observability
	radio      ports.RadioSource
	store      ports.ResultChannel
	sched      *scheduler.Scheduler
	closeStore func() error // nil when the store was injected
	callbacks  []func(*ResultRecord)

	mu         sync.Mutex
	metricsSrv *http.Server
	tickCancel context.CancelFunc
	tickDoneCh chan struct{}
}

// NewRuntime bootstraps the default adapters (go-ble hub or simulator, the
// configured result store, Prometheus observability). RuntimeOption values
// override any dependency.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(observability.NewLogger(cfg.Logging))
	}

	rt := &Runtime{
		cfg:       cfg,
		obs:       obs,
		callbacks: overrides.callbacks,
	}

	rt.store = overrides.store
	if rt.store == nil {
		ch, closeFn, err := OpenResultChannel(cfg.Store, false)
		if err != nil {
			return nil, err
		}
		rt.store, rt.closeStore = ch, closeFn
	}

	rt.radio = overrides.radio
	if rt.radio == nil {
		rt.radio = openRadio(cfg.Radio, obs)
	}

	sched, err := scheduler.New(rt.radio, rt.store, obs,
		scheduler.WithPolicy(cfg.Policy),
		scheduler.WithAccessProvider(overrides.access),
	)
	if err != nil {
		return nil, err
	}
	rt.sched = sched
	return rt, nil
}

// OpenResultChannel opens the store described by sc. With readOnly the file
// driver opens its log for inspection only, which lets another process read
// records while the runtime writes them. The returned function releases the
// store.
func OpenResultChannel(sc StoreConfig, readOnly bool) (ResultChannel, func() error, error) {
	noop := func() error { return nil }
	switch sc.Driver {
	case "", config.StoreMemory:
		return store.NewMemoryStore(), noop, nil
	case config.StoreFile:
		fs, err := store.NewFileStore(sc.Dir, store.FileOptions{Sync: sc.Sync, ReadOnly: readOnly})
		if err != nil {
			return nil, nil, err
		}
		return fs, fs.Close, nil
	case config.StorePostgres:
		db, err := sql.Open("postgres", sc.ConnString)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresStore(db, sc.Table), db.Close, nil
	case config.StoreRedis:
		rs := store.NewRedisStore(store.RedisOpts{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			Prefix:   sc.Redis.Prefix,
		})
		return rs, rs.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// openRadio never fails: a missing controller surfaces as
// ErrUnsupportedHardware when a watcher registers.
func openRadio(rc RadioConfig, obs ports.Observability) ports.RadioSource {
	if rc.Driver == config.RadioSim {
		return radio.NewSim()
	}
	scanner, err := radio.OpenDevice(rc.DeviceID)
	if err != nil {
		obs.LogError("ble_device_unavailable", err, ports.Field{Key: "device_id", Value: rc.DeviceID})
		return radio.NewHub(nil, obs)
	}
	return radio.NewHub(scanner, obs)
}

// Start registers the configured watchers, launches the tick loop and the
// metrics server. It returns immediately; call Run to block on a context.
// Cancellation of ctx does not abort startup. On error every watcher
// registered so far is unregistered and the store is released.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	ctx = context.WithoutCancel(ctx)
	if pg, ok := r.store.(*store.PostgresStore); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			return errors.Join(fmt.Errorf("ensure schema: %w", err), r.releaseStore())
		}
	}

	for _, w := range r.cfg.Watchers {
		if _, err := r.Register(ctx, w.Name, w.Filter()); err != nil {
			return errors.Join(err, r.sched.Close(ctx), r.releaseStore())
		}
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.tickCancel = cancel
	r.tickDoneCh = make(chan struct{})
	done := r.tickDoneCh
	r.mu.Unlock()

	interval := r.cfg.Policy.FlushInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	go func() {
		defer close(done)
		_ = r.sched.Run(tickCtx, interval)
	}()

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown. An already cancelled ctx
// starts the watchers and shuts them down right away.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the tick loop, flushes every watcher a final time and
// closes the metrics server and stores.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	r.mu.Lock()
	cancel, done, srv := r.tickCancel, r.tickDoneCh, r.metricsSrv
	r.tickCancel, r.metricsSrv = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if err := r.sched.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := r.releaseStore(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// releaseStore closes a store the runtime opened itself, at most once.
func (r *Runtime) releaseStore() error {
	r.mu.Lock()
	closeFn := r.closeStore
	r.closeStore = nil
	r.mu.Unlock()
	if closeFn == nil {
		return nil
	}
	return closeFn()
}

// Register adds a watcher at runtime. Callbacks passed with
// WithResultCallback are attached to it.
func (r *Runtime) Register(ctx context.Context, name string, cfg FilterConfig) (*Handle, error) {
	h, err := r.sched.Register(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	for _, cb := range r.callbacks {
		r.sched.OnFlushed(h, cb)
	}
	return h, nil
}

func (r *Runtime) Unregister(ctx context.Context, h *Handle) error {
	return r.sched.Unregister(ctx, h)
}

// Handle returns the handle of a registered watcher.
func (r *Runtime) Handle(name string) (*Handle, bool) {
	return r.sched.Lookup(name)
}

func (r *Runtime) State(h *Handle) State { return r.sched.State(h) }

func (r *Runtime) Flush(ctx context.Context, h *Handle) error { return r.sched.Flush(ctx, h) }

// Tick flushes every active watcher immediately.
func (r *Runtime) Tick(ctx context.Context) error { return r.sched.Tick(ctx) }

func (r *Runtime) OnFlushed(h *Handle, cb func(*ResultRecord)) func() {
	return r.sched.OnFlushed(h, cb)
}

func (r *Runtime) OnSuspend() { r.sched.OnSuspend() }

func (r *Runtime) OnResume(ctx context.Context) error { return r.sched.OnResume(ctx) }

// AccessGranted activates watchers left dormant by a denied access request.
func (r *Runtime) AccessGranted() error { return r.sched.AccessGranted() }

// Watchers lists the registered watcher names.
func (r *Runtime) Watchers() []string { return r.sched.Names() }

// Result peeks at the latest record published for name.
func (r *Runtime) Result(ctx context.Context, name string) (*ResultRecord, bool, error) {
	return r.store.Consume(ctx, name)
}

// Results returns the latest record of every task name in the store.
func (r *Runtime) Results(ctx context.Context) ([]*ResultRecord, error) {
	keys, err := r.store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ResultRecord, 0, len(keys))
	for _, k := range keys {
		rec, ok, err := r.store.Consume(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ResultChannel exposes the store used by the runtime.
func (r *Runtime) ResultChannel() ResultChannel { return r.store }

func (r *Runtime) startMetrics() {
	if r.cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	r.mu.Lock()
	r.metricsSrv = srv
	r.mu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_failed", err, ports.Field{Key: "addr", Value: srv.Addr})
		}
	}()
}

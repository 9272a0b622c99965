package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/adapters/queue"
	"github.com/ghalamif/BeaconFlow/internal/app/pipeline"
	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithPolicy sets window size, overflow and flush behaviour.
func WithPolicy(p ports.Policy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// WithAccessProvider replaces the default AlwaysAllow provider.
func WithAccessProvider(a ports.AccessProvider) Option {
	return func(s *Scheduler) {
		if a != nil {
			s.access = a
		}
	}
}

// WithClock sets the clock used to advance gates before a flush.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWindowFactory replaces the default bounded window.
func WithWindowFactory(f func() ports.WindowBuffer) Option {
	return func(s *Scheduler) { s.newWindow = f }
}

// Scheduler owns watcher registrations and decides when their windows are
// flushed to the result channel: on each host tick, on an explicit stop, on a
// terminal radio error, when a window fills up (optional) and on demand.
type Scheduler struct {
	radio     ports.RadioSource
	store     ports.ResultChannel
	access    ports.AccessProvider
	obs       ports.Observability
	policy    ports.Policy
	now       func() time.Time
	newWindow func() ports.WindowBuffer

	mu        sync.Mutex
	regs      map[string]*registration
	suspended bool

	wg sync.WaitGroup
}

func New(radio ports.RadioSource, store ports.ResultChannel, obs ports.Observability, opts ...Option) (*Scheduler, error) {
	if radio == nil {
		return nil, errors.New("scheduler: radio source is nil")
	}
	if store == nil {
		return nil, errors.New("scheduler: result channel is nil")
	}
	if obs == nil {
		return nil, errors.New("scheduler: observability is nil")
	}

	s := &Scheduler{
		radio:  radio,
		store:  store,
		access: ports.AlwaysAllow{},
		obs:    obs,
		now:    time.Now,
		regs:   make(map[string]*registration),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.newWindow == nil {
		size, overflow := s.policy.MaxWindowEvents, s.policy.OnWindowFull
		s.newWindow = func() ports.WindowBuffer { return queue.NewWindow(size, overflow) }
	}
	return s, nil
}

// Register starts watching for advertisements matching cfg under name.
// Registering a name again replaces the previous registration and discards
// its pending window. Unsupported hardware fails synchronously; denied
// background access leaves the registration dormant until AccessGranted.
func (s *Scheduler) Register(ctx context.Context, name string, cfg domain.FilterConfig) (*Handle, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty watcher name", ports.ErrInvalidFilter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidFilter, err)
	}
	if err := s.radio.Probe(ctx); err != nil {
		s.obs.LogError("radio_probe_failed", err, ports.Field{Key: "watcher", Value: name})
		return nil, fmt.Errorf("register %s: %w", name, err)
	}

	status, err := s.access.RequestAccess(ctx)
	if err != nil {
		return nil, fmt.Errorf("register %s: request access: %w", name, err)
	}

	reg := newRegistration(name, cfg)
	s.mu.Lock()
	prev := s.regs[name]
	s.regs[name] = reg
	s.mu.Unlock()

	if prev != nil {
		_ = s.stop(ctx, prev, false)
		s.obs.LogInfo("watcher_replaced", ports.Field{Key: "watcher", Value: name})
	}

	if status != ports.AccessAllowed {
		reg.setState(StateDormant)
		s.obs.LogError("background_access_denied", ports.ErrPermissionDenied,
			ports.Field{Key: "watcher", Value: name},
			ports.Field{Key: "access", Value: int(status)})
		s.updateRegistrationGauge()
		return reg.handle(), nil
	}

	if err := s.activate(reg); err != nil {
		s.forget(reg)
		return nil, fmt.Errorf("register %s: %w", name, err)
	}
	s.obs.LogInfo("watcher_registered",
		ports.Field{Key: "watcher", Value: name},
		ports.Field{Key: "company_id", Value: cfg.CompanyID})
	return reg.handle(), nil
}

func (s *Scheduler) activate(reg *registration) error {
	reg.win = s.newWindow()
	reg.watch = pipeline.NewWatch(reg.name, reg.cfg, reg.win, s.obs)
	reg.watch.OnTerminal = func(err ports.RadioError) { s.onTerminal(reg, err) }
	if s.policy.FlushOnFull {
		reg.watch.OnFull = func() { s.onFull(reg) }
	}
	reg.setState(StateActive)

	sub, err := s.radio.Subscribe(reg.cfg, reg.onAdvertisement, reg.onRadioError)
	if err != nil {
		reg.setState(StateUnregistered)
		reg.win.Close()
		return err
	}
	reg.sub = sub
	s.updateRegistrationGauge()
	return nil
}

// AccessGranted activates every dormant registration.
func (s *Scheduler) AccessGranted() error {
	var errs []error
	for _, reg := range s.snapshot() {
		if !reg.casState(StateDormant, StateRegistering) {
			continue
		}
		if err := s.activate(reg); err != nil {
			reg.setState(StateDormant)
			errs = append(errs, fmt.Errorf("activate %s: %w", reg.name, err))
			continue
		}
		s.obs.LogInfo("watcher_activated", ports.Field{Key: "watcher", Value: reg.name})
	}
	return errors.Join(errs...)
}

// Unregister flushes the open window one last time and stops the watcher.
// It is idempotent; once it returns nothing is appended or published for h.
func (s *Scheduler) Unregister(ctx context.Context, h *Handle) error {
	reg := s.resolve(h)
	if reg == nil {
		return nil
	}
	s.forget(reg)
	err := s.stop(ctx, reg, true)
	s.obs.LogInfo("watcher_unregistered", ports.Field{Key: "watcher", Value: reg.name})
	return err
}

// stop unsubscribes reg and, with final set, publishes its last window.
func (s *Scheduler) stop(ctx context.Context, reg *registration, final bool) error {
	prev := reg.setState(StateUnregistering)
	if reg.sub != nil {
		if err := reg.sub.Unsubscribe(); err != nil {
			s.obs.LogError("radio_unsubscribe_failed", err, ports.Field{Key: "watcher", Value: reg.name})
		}
	}

	reg.flushMu.Lock()
	defer reg.flushMu.Unlock()
	defer reg.setState(StateUnregistered)

	if reg.win == nil {
		return nil
	}
	if !final || (prev != StateActive && prev != StateFlushing) {
		reg.win.Close()
		return nil
	}
	return s.flushLocked(ctx, reg, domain.ReasonStop, false)
}

// OnFlushed registers cb for every record published for h. The returned
// function detaches it. cb runs with h's flush lock held and must not call
// Flush or Unregister for h.
func (s *Scheduler) OnFlushed(h *Handle, cb func(*domain.ResultRecord)) func() {
	reg := s.resolve(h)
	if reg == nil || cb == nil {
		return func() {}
	}
	return reg.addCallback(cb)
}

// OnSuspend mutes flush callbacks. Records are still published.
func (s *Scheduler) OnSuspend() {
	s.mu.Lock()
	s.suspended = true
	s.mu.Unlock()
	s.obs.LogInfo("scheduler_suspended")
}

// OnResume unmutes callbacks and replays the latest stored record of each
// registration to them.
func (s *Scheduler) OnResume(ctx context.Context) error {
	s.mu.Lock()
	s.suspended = false
	s.mu.Unlock()
	s.obs.LogInfo("scheduler_resumed")

	var errs []error
	for _, reg := range s.snapshot() {
		rec, ok, err := s.store.Consume(ctx, reg.name)
		if err != nil {
			errs = append(errs, fmt.Errorf("replay %s: %w", reg.name, err))
			continue
		}
		if !ok {
			continue
		}
		for _, cb := range reg.callbacks() {
			cb(rec)
		}
	}
	return errors.Join(errs...)
}

// Tick flushes and reopens the window of every active registration.
func (s *Scheduler) Tick(ctx context.Context) error {
	var errs []error
	for _, reg := range s.snapshot() {
		if err := s.flush(ctx, reg, domain.ReasonTick); err != nil {
			errs = append(errs, err)
		}
	}
	s.updateWindowGauge()
	return errors.Join(errs...)
}

// Run calls Tick every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: non-positive tick interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.obs.LogError("tick_failed", err)
			}
		}
	}
}

// Flush publishes h's window now and reopens it.
func (s *Scheduler) Flush(ctx context.Context, h *Handle) error {
	reg := s.resolve(h)
	if reg == nil || !reg.live() {
		return fmt.Errorf("flush: %w", ports.ErrNotRegistered)
	}
	return s.flush(ctx, reg, domain.ReasonManual)
}

// Lookup returns the handle registered under name.
func (s *Scheduler) Lookup(name string) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[name]
	if !ok {
		return nil, false
	}
	return reg.handle(), true
}

// Names lists registered watcher names in order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.regs))
	for name := range s.regs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// State reports the lifecycle state of h; stale handles are unregistered.
func (s *Scheduler) State(h *Handle) State {
	reg := s.resolve(h)
	if reg == nil {
		return StateUnregistered
	}
	return reg.getState()
}

// Close unregisters every watcher and waits for background flushes.
func (s *Scheduler) Close(ctx context.Context) error {
	var errs []error
	for _, reg := range s.snapshot() {
		if err := s.Unregister(ctx, reg.handle()); err != nil {
			errs = append(errs, err)
		}
	}
	s.wg.Wait()
	return errors.Join(errs...)
}

func (s *Scheduler) flush(ctx context.Context, reg *registration, reason domain.FlushReason) error {
	reg.flushMu.Lock()
	defer reg.flushMu.Unlock()

	if te := reg.terminal.Load(); te != nil {
		return s.haltLocked(ctx, reg, *te)
	}
	if !reg.casState(StateActive, StateFlushing) {
		return nil
	}
	defer reg.casState(StateFlushing, StateActive)
	return s.flushLocked(ctx, reg, reason, true)
}

// flushLocked drains reg's window and publishes it. reg.flushMu must be held.
func (s *Scheduler) flushLocked(ctx context.Context, reg *registration, reason domain.FlushReason, reopen bool) error {
	reg.watch.Advance(s.now())
	win := reg.win.Drain(reopen)
	rec := pipeline.Run(reg.name, win, reg.cfg, reason)

	if s.policy.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.PublishTimeout)
		defer cancel()
	}
	if err := pipeline.Publish(ctx, s.store, rec, s.obs); err != nil {
		return err
	}
	s.notify(reg, rec)
	return nil
}

func (s *Scheduler) haltLocked(ctx context.Context, reg *registration, te ports.RadioError) error {
	st := reg.getState()
	if st != StateActive && st != StateFlushing {
		return nil
	}
	reg.win.SetError(te.Status)
	err := s.flushLocked(ctx, reg, domain.ReasonError, false)
	reg.setState(StateHalted)
	if reg.sub != nil {
		if uerr := reg.sub.Unsubscribe(); uerr != nil {
			s.obs.LogError("radio_unsubscribe_failed", uerr, ports.Field{Key: "watcher", Value: reg.name})
		}
	}
	s.obs.LogInfo("watcher_halted",
		ports.Field{Key: "watcher", Value: reg.name},
		ports.Field{Key: "status", Value: te.Status.String()})
	return err
}

// onTerminal runs on the radio goroutine, so the flush happens elsewhere.
func (s *Scheduler) onTerminal(reg *registration, err ports.RadioError) {
	if !reg.terminal.CompareAndSwap(nil, &err) {
		return
	}
	reg.win.SetError(err.Status)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if ferr := s.flush(context.Background(), reg, domain.ReasonError); ferr != nil {
			s.obs.LogError("terminal_flush_failed", ferr, ports.Field{Key: "watcher", Value: reg.name})
		}
	}()
}

// onFull schedules one flush per full window.
func (s *Scheduler) onFull(reg *registration) {
	if !reg.fullPending.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer reg.fullPending.Store(false)
		if err := s.flush(context.Background(), reg, domain.ReasonFull); err != nil {
			s.obs.LogError("full_flush_failed", err, ports.Field{Key: "watcher", Value: reg.name})
		}
	}()
}

func (s *Scheduler) notify(reg *registration, rec *domain.ResultRecord) {
	s.mu.Lock()
	muted := s.suspended
	s.mu.Unlock()
	if muted {
		return
	}
	for _, cb := range reg.callbacks() {
		cb(rec)
	}
}

func (s *Scheduler) resolve(h *Handle) *registration {
	if h == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[h.Name]
	if !ok || reg.token != h.Token {
		return nil
	}
	return reg
}

// forget removes reg from the table unless it has already been replaced.
func (s *Scheduler) forget(reg *registration) {
	s.mu.Lock()
	if cur, ok := s.regs[reg.name]; ok && cur == reg {
		delete(s.regs, reg.name)
	}
	s.mu.Unlock()
	s.updateRegistrationGauge()
}

func (s *Scheduler) snapshot() []*registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*registration, 0, len(s.regs))
	for _, reg := range s.regs {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (s *Scheduler) updateRegistrationGauge() {
	s.mu.Lock()
	n := len(s.regs)
	s.mu.Unlock()
	s.obs.SetGauge(ports.MetricRegistrations, float64(n))
}

func (s *Scheduler) updateWindowGauge() {
	var total int
	for _, reg := range s.snapshot() {
		if reg.live() && reg.win != nil {
			total += reg.win.Len()
		}
	}
	s.obs.SetGauge(ports.MetricWindowEvents, float64(total))
}

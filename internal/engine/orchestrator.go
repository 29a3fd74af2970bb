// Package engine runs packing workers against jobs and picks the best
// result.
//
// An Orchestrator keeps a registry of workers discovered by a metadata
// handshake. Each call to ComputeAllOutputs starts one process per enabled
// worker and returns a Run. All run state is owned by a single control-loop
// goroutine; callers observe progress through Subscribe or by waiting on
// the Run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/maruel/natural"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/worker"
)

var (
	ErrNoWorkers        = errors.New("no workers loaded")
	ErrNoEnabledWorkers = errors.New("no workers enabled")
	ErrDuplicateWorker  = errors.New("worker name already in use")
	ErrUnknownWorker    = errors.New("unknown worker")
	ErrUnknownRun       = errors.New("unknown run")
	ErrClosed           = errors.New("orchestrator closed")
)

const (
	subscriberBuffer = 256
	defaultHistory   = 32
	shutdownTimeout  = 5 * time.Second
)

// WorkerInfo is a registry entry.
type WorkerInfo struct {
	Name     string               `json:"name"`
	Path     string               `json:"path"`
	Metadata model.WorkerMetadata `json:"metadata"`
	Enabled  bool                 `json:"enabled"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithSettings applies persisted settings: the time limit, and the enabled
// flag of every worker loaded afterwards.
func WithSettings(s model.WorkerSettings) Option {
	return func(o *Orchestrator) {
		o.settings = s
		o.timeLimit = s.TimeLimitMs
	}
}

// WithHistory sets how many finished runs stay queryable.
func WithHistory(n int) Option {
	return func(o *Orchestrator) { o.history = n }
}

// Orchestrator manages the worker registry and runs.
type Orchestrator struct {
	log     logr.Logger
	history int

	mu        sync.RWMutex
	workers   map[string]WorkerInfo
	settings  model.WorkerSettings
	timeLimit int

	ops       chan func()
	updates   chan runEvent
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the control loop.
	runs        map[string]*Run
	order       []string
	subscribers map[chan Event]struct{}
}

// New returns an Orchestrator with an empty registry and starts its control
// loop. Close stops it.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log:         logr.Discard(),
		history:     defaultHistory,
		workers:     map[string]WorkerInfo{},
		settings:    model.NewWorkerSettings(),
		ops:         make(chan func()),
		updates:     make(chan runEvent),
		quit:        make(chan struct{}),
		stopped:     make(chan struct{}),
		runs:        map[string]*Run{},
		subscribers: map[chan Event]struct{}{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.WithName("engine")
	go o.loop()
	return o
}

// Close kills every running worker, waits for the runs to wind down and
// stops the control loop.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		var pending []*Run
		_ = o.do(func() {
			for _, r := range o.runs {
				if !r.finished() {
					pending = append(pending, r)
				}
			}
		})
		for _, r := range pending {
			r.KillAll()
		}
		deadline := time.After(shutdownTimeout)
		for _, r := range pending {
			select {
			case <-r.done:
			case <-deadline:
				o.log.Info("Run did not finish before shutdown", "run", r.id)
			}
		}
		close(o.quit)
		<-o.stopped
	})
}

// LoadWorker performs the metadata handshake with the executable at path
// and registers it under the name it reports.
func (o *Orchestrator) LoadWorker(ctx context.Context, path string) (WorkerInfo, error) {
	meta, err := worker.Handshake(ctx, path, o.log)
	if err != nil {
		return WorkerInfo{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if prev, ok := o.workers[meta.Name]; ok {
		return WorkerInfo{}, fmt.Errorf("%w: %q from %s is already provided by %s",
			ErrDuplicateWorker, meta.Name, path, prev.Path)
	}
	info := WorkerInfo{
		Name:     meta.Name,
		Path:     path,
		Metadata: meta,
		Enabled:  o.settings.IsEnabled(meta.Name),
	}
	o.workers[meta.Name] = info
	o.log.V(1).Info("Worker loaded", "worker", meta.Name, "path", path, "enabled", info.Enabled)
	return info, nil
}

// LoadWorkersFromDirectory loads every executable regular file in dir.
// Candidates that fail the handshake are skipped. It returns the loaded
// workers, or ErrNoWorkers when none could be loaded.
func (o *Orchestrator) LoadWorkersFromDirectory(ctx context.Context, dir string) ([]WorkerInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read worker directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Sort(natural.StringSlice(names))

	o.log.V(1).Info("Querying directory for workers", "dir", dir)
	var loaded []WorkerInfo
	for _, name := range names {
		path := filepath.Join(dir, name)
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			continue
		}
		if fi.Mode().Perm()&0o111 == 0 {
			o.log.V(1).Info("Worker candidate is not executable", "path", path)
			continue
		}
		info, err := o.LoadWorker(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return loaded, ctx.Err()
			}
			o.log.Info("Worker candidate could not be loaded", "path", path, "error", err.Error())
			continue
		}
		loaded = append(loaded, info)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoWorkers, dir)
	}
	return loaded, nil
}

// Workers returns the registry in natural name order.
func (o *Orchestrator) Workers() []WorkerInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.workers))
	for n := range o.workers {
		names = append(names, n)
	}
	sort.Sort(natural.StringSlice(names))
	out := make([]WorkerInfo, len(names))
	for i, n := range names {
		out[i] = o.workers[n]
	}
	return out
}

// Worker returns the registry entry for name.
func (o *Orchestrator) Worker(name string) (WorkerInfo, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	info, ok := o.workers[name]
	if !ok {
		return WorkerInfo{}, fmt.Errorf("%w: %q", ErrUnknownWorker, name)
	}
	return info, nil
}

// EnabledWorkers returns the names of enabled workers in natural order.
func (o *Orchestrator) EnabledWorkers() []string {
	return o.filterWorkers(true)
}

// DisabledWorkers returns the names of disabled workers in natural order.
func (o *Orchestrator) DisabledWorkers() []string {
	return o.filterWorkers(false)
}

func (o *Orchestrator) filterWorkers(enabled bool) []string {
	var names []string
	for _, w := range o.Workers() {
		if w.Enabled == enabled {
			names = append(names, w.Name)
		}
	}
	return names
}

// SetWorkerEnabled enables or disables a loaded worker.
func (o *Orchestrator) SetWorkerEnabled(name string, enabled bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	info, ok := o.workers[name]
	if !ok {
		o.log.Info("Trying to enable a worker which is not loaded", "worker", name)
		return fmt.Errorf("%w: %q", ErrUnknownWorker, name)
	}
	info.Enabled = enabled
	o.workers[name] = info
	o.settings.SetEnabled(name, enabled)
	return nil
}

// SetAllWorkersEnabled sets the enabled flag of every loaded worker.
func (o *Orchestrator) SetAllWorkersEnabled(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for name, info := range o.workers {
		info.Enabled = enabled
		o.workers[name] = info
		o.settings.SetEnabled(name, enabled)
	}
}

// IsWorkerEnabled reports whether name is loaded and enabled.
func (o *Orchestrator) IsWorkerEnabled(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.workers[name].Enabled
}

// TimeLimit returns the time limit in milliseconds; 0 means unlimited.
func (o *Orchestrator) TimeLimit() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.timeLimit
}

// SetTimeLimit sets the time limit in milliseconds for runs started
// afterwards. Negative values are treated as 0.
func (o *Orchestrator) SetTimeLimit(msec int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timeLimit = max(msec, 0)
	o.settings.TimeLimitMs = o.timeLimit
}

// Settings returns the current worker settings for persisting.
func (o *Orchestrator) Settings() model.WorkerSettings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.settings
	s.Enabled = make(map[string]bool, len(o.settings.Enabled))
	for k, v := range o.settings.Enabled {
		s.Enabled[k] = v
	}
	return s
}

// Subscribe returns a channel receiving every event of every run, and a
// function that cancels the subscription and closes the channel. Events
// are dropped for subscribers that fall behind.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	if err := o.do(func() { o.subscribers[ch] = struct{}{} }); err != nil {
		close(ch)
		return ch, func() {}
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			_ = o.do(func() {
				delete(o.subscribers, ch)
				close(ch)
			})
		})
	}
}

// Run returns the run with the given ID.
func (o *Orchestrator) Run(id string) (*Run, error) {
	var r *Run
	if err := o.do(func() { r = o.runs[id] }); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRun, id)
	}
	return r, nil
}

// Runs returns the known runs, oldest first.
func (o *Orchestrator) Runs() []*Run {
	var runs []*Run
	_ = o.do(func() {
		for _, id := range o.order {
			runs = append(runs, o.runs[id])
		}
	})
	return runs
}

// KillAll kills the workers of every active run.
func (o *Orchestrator) KillAll() {
	for _, r := range o.Runs() {
		r.KillAll()
	}
}

// do executes f on the control loop and waits for it.
func (o *Orchestrator) do(f func()) error {
	done := make(chan struct{})
	select {
	case o.ops <- func() { f(); close(done) }:
	case <-o.stopped:
		return ErrClosed
	}
	<-done
	return nil
}

func (o *Orchestrator) loop() {
	defer close(o.stopped)
	for {
		select {
		case op := <-o.ops:
			op()
		case u := <-o.updates:
			o.handle(u)
		case <-o.quit:
			for ch := range o.subscribers {
				close(ch)
			}
			o.subscribers = nil
			return
		}
	}
}

func (o *Orchestrator) broadcast(ev Event) {
	for ch := range o.subscribers {
		select {
		case ch <- ev:
		default:
			o.log.V(1).Info("Dropping event for slow subscriber", "kind", ev.Kind.String())
		}
	}
}

// prune forgets the oldest finished runs beyond the history size.
func (o *Orchestrator) prune() {
	finished := 0
	for _, id := range o.order {
		if o.runs[id].finished() {
			finished++
		}
	}
	kept := o.order[:0]
	for _, id := range o.order {
		if finished > o.history && o.runs[id].finished() {
			delete(o.runs, id)
			finished--
			continue
		}
		kept = append(kept, id)
	}
	o.order = kept
}

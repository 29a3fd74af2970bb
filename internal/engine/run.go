package engine

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/natural"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/worker"
)

// EventKind identifies an orchestrator event.
type EventKind int

const (
	EventWorkerStarting EventKind = iota + 1
	EventOutputUpdated
	EventWorkerTerminating
	EventWorkerFinished
	EventAllFinished
)

func (k EventKind) String() string {
	switch k {
	case EventWorkerStarting:
		return "worker_starting"
	case EventOutputUpdated:
		return "output_updated"
	case EventWorkerTerminating:
		return "worker_terminating"
	case EventWorkerFinished:
		return "worker_finished"
	case EventAllFinished:
		return "all_finished"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event reports run progress to subscribers.
type Event struct {
	Kind     EventKind            `json:"kind"`
	RunID    string               `json:"run_id"`
	Worker   string               `json:"worker,omitempty"`
	Result   *model.PackingResult `json:"result,omitempty"` // output updates and finished workers
	Valid    bool                 `json:"valid"`            // finished workers only
	ExitCode int                  `json:"exit_code"`
	Msec     int                  `json:"msec,omitempty"` // terminating workers only
	Err      error                `json:"-"`
	Error    string               `json:"error,omitempty"`
}

// WorkerReport is the outcome of one worker in a run.
type WorkerReport struct {
	Worker   string
	ExitCode int
	Valid    bool
	Err      error // start failure, protocol violation or validation failure
	Result   model.PackingResult
	Duration time.Duration
}

type runEvent struct {
	run *Run
	ev  worker.Event
}

// Run is one job computed by every enabled worker.
type Run struct {
	id      string
	job     model.PackingJob
	started time.Time
	o       *Orchestrator
	events  chan worker.Event
	done    chan struct{}

	// Owned by the control loop.
	live       map[string]*worker.Process
	outputs    map[string]model.PackingResult
	reports    []WorkerReport
	dispatched bool
	closed     bool
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// Job returns the job being computed.
func (r *Run) Job() model.PackingJob { return r.job }

// Started returns the time the run was created.
func (r *Run) Started() time.Time { return r.started }

// Done is closed once every worker of the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) finished() bool { return r.closed }

// Wait blocks until the run is done. If ctx ends first, every live worker
// is killed, Wait still waits for them to be reaped and returns ctx.Err().
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
	}
	r.KillAll()
	<-r.done
	return ctx.Err()
}

// Outputs returns the valid results so far, by worker name.
func (r *Run) Outputs() map[string]model.PackingResult {
	var out map[string]model.PackingResult
	_ = r.o.do(func() { out = maps.Clone(r.outputs) })
	if out == nil {
		out = map[string]model.PackingResult{}
	}
	return out
}

// Reports returns the outcomes of the workers that finished so far, in
// finishing order.
func (r *Run) Reports() []WorkerReport {
	var out []WorkerReport
	_ = r.o.do(func() { out = slices.Clone(r.reports) })
	return out
}

// Running returns the names of the workers still running, in natural
// order.
func (r *Run) Running() []string {
	var names []string
	_ = r.o.do(func() {
		for n := range r.live {
			names = append(names, n)
		}
	})
	sort.Sort(natural.StringSlice(names))
	return names
}

// Latest returns the most recent result reported by a live or finished
// worker.
func (r *Run) Latest(name string) (model.PackingResult, bool) {
	var (
		res model.PackingResult
		ok  bool
	)
	_ = r.o.do(func() {
		if p, live := r.live[name]; live {
			res, ok = p.LastResult(), true
			return
		}
		for _, rep := range r.reports {
			if rep.Worker == name {
				res, ok = rep.Result, true
			}
		}
	})
	return res, ok
}

func (r *Run) process(name string) (*worker.Process, error) {
	var p *worker.Process
	if err := r.o.do(func() { p = r.live[name] }); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, worker.ErrNotRunning
	}
	return p, nil
}

// Terminate asks one worker to stop within msec milliseconds.
func (r *Run) Terminate(name string, msec int) error {
	p, err := r.process(name)
	if err != nil {
		return err
	}
	_ = r.o.do(func() {
		r.o.broadcast(Event{Kind: EventWorkerTerminating, RunID: r.id, Worker: name, Msec: msec})
	})
	return p.Terminate(msec)
}

// TerminateAll asks every live worker to stop within msec milliseconds.
func (r *Run) TerminateAll(msec int) error {
	var errs []error
	for _, name := range r.Running() {
		if err := r.Terminate(name, msec); err != nil && !errors.Is(err, worker.ErrNotRunning) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Kill stops one worker immediately.
func (r *Run) Kill(name string) error { return r.Terminate(name, 0) }

// KillAll stops every live worker immediately.
func (r *Run) KillAll() { _ = r.TerminateAll(0) }

// ComputeAllOutputs starts every enabled worker on job. When a time limit
// is set every worker is asked to terminate within it right away. With
// synchronous set, the call returns after all workers finished; if ctx
// ends first the workers are killed and ctx.Err() is returned with the run.
func (o *Orchestrator) ComputeAllOutputs(ctx context.Context, job model.PackingJob, synchronous bool) (*Run, error) {
	o.mu.RLock()
	total := len(o.workers)
	var enabled []WorkerInfo
	for _, w := range o.workers {
		if w.Enabled {
			enabled = append(enabled, w)
		}
	}
	limit := o.timeLimit
	o.mu.RUnlock()

	if total == 0 {
		o.log.Error(ErrNoWorkers, "Cannot compute outputs")
		return nil, ErrNoWorkers
	}
	if len(enabled) == 0 {
		o.log.Error(ErrNoEnabledWorkers, "Cannot compute outputs")
		return nil, ErrNoEnabledWorkers
	}
	slices.SortFunc(enabled, func(a, b WorkerInfo) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})

	r := &Run{
		id:      uuid.NewString(),
		job:     job.Clone(),
		started: time.Now(),
		o:       o,
		events:  make(chan worker.Event, 4*len(enabled)),
		done:    make(chan struct{}),
		live:    map[string]*worker.Process{},
		outputs: map[string]model.PackingResult{},
	}
	if err := o.do(func() {
		o.runs[r.id] = r
		o.order = append(o.order, r.id)
	}); err != nil {
		return nil, err
	}
	go o.forward(r)

	log := o.log.WithValues("run", r.id)
	log.Info("Starting run", "workers", len(enabled), "shapes", len(job.Shapes), "timeLimitMs", limit)
	for _, w := range enabled {
		p := worker.New(w.Name, w.Path, r.job, r.events, log)
		_ = o.do(func() {
			r.live[w.Name] = p
			o.broadcast(Event{Kind: EventWorkerStarting, RunID: r.id, Worker: w.Name})
		})
		err := p.Run(ctx)
		if err != nil && p.State() == worker.StateSpawned {
			// Never started: no finished event will follow.
			_ = o.do(func() { o.finishWorker(r, w.Name, worker.Event{ExitCode: -1, Err: err}, time.Since(r.started)) })
			continue
		}
		if err == nil && limit > 0 {
			if err := r.Terminate(w.Name, limit); err != nil && !errors.Is(err, worker.ErrNotRunning) {
				log.Error(err, "Failed to apply time limit", "worker", w.Name)
			}
		}
	}
	_ = o.do(func() {
		r.dispatched = true
		o.maybeFinish(r)
	})

	if !synchronous {
		return r, nil
	}
	return r, r.Wait(ctx)
}

// ComputeBestOutput runs job synchronously and returns the best valid
// result, or ok=false when no worker produced one.
func (o *Orchestrator) ComputeBestOutput(ctx context.Context, job model.PackingJob) (name string, result model.PackingResult, ok bool, err error) {
	r, err := o.ComputeAllOutputs(ctx, job, true)
	if err != nil {
		return "", model.PackingResult{}, false, err
	}
	name, result, ok = FindBestOutput(r.Outputs())
	return name, result, ok, nil
}

// forward moves a run's process events onto the control loop.
func (o *Orchestrator) forward(r *Run) {
	for {
		select {
		case ev := <-r.events:
			select {
			case o.updates <- runEvent{run: r, ev: ev}:
			case <-o.quit:
				return
			}
		case <-r.done:
			return
		case <-o.quit:
			return
		}
	}
}

func (o *Orchestrator) handle(u runEvent) {
	r, ev := u.run, u.ev
	switch ev.Kind {
	case worker.EventOutputUpdated:
		res := ev.Result
		o.broadcast(Event{Kind: EventOutputUpdated, RunID: r.id, Worker: ev.Worker, Result: &res})
	case worker.EventFinished:
		if _, ok := r.live[ev.Worker]; !ok {
			o.log.Error(nil, "Worker reported having finished but was not running", "run", r.id, "worker", ev.Worker)
			return
		}
		o.finishWorker(r, ev.Worker, ev, time.Since(r.started))
	}
}

func (o *Orchestrator) finishWorker(r *Run, name string, ev worker.Event, elapsed time.Duration) {
	delete(r.live, name)

	err := ev.Err
	valid := false
	if err == nil {
		if verr := model.ValidateResult(r.job, ev.Result); verr != nil {
			err = verr
		} else {
			valid = true
		}
	}
	if valid {
		r.outputs[name] = ev.Result
	}
	r.reports = append(r.reports, WorkerReport{
		Worker:   name,
		ExitCode: ev.ExitCode,
		Valid:    valid,
		Err:      err,
		Result:   ev.Result,
		Duration: elapsed,
	})

	log := o.log.WithValues("run", r.id, "worker", name)
	if valid {
		log.Info("Worker finished", "exitCode", ev.ExitCode, "sheets", len(ev.Result.Sheets), "score", ev.Result.Score())
	} else {
		log.Info("Worker finished without a valid result", "exitCode", ev.ExitCode, "reason", errString(err))
	}

	res := ev.Result
	o.broadcast(Event{
		Kind:     EventWorkerFinished,
		RunID:    r.id,
		Worker:   name,
		Result:   &res,
		Valid:    valid,
		ExitCode: ev.ExitCode,
		Err:      err,
		Error:    errString(err),
	})
	o.maybeFinish(r)
}

func (o *Orchestrator) maybeFinish(r *Run) {
	if r.closed || !r.dispatched || len(r.live) > 0 {
		return
	}
	r.closed = true
	close(r.done)
	o.log.Info("All workers finished", "run", r.id, "valid", len(r.outputs), "elapsed", time.Since(r.started).String())
	o.broadcast(Event{Kind: EventAllFinished, RunID: r.id})
	o.prune()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/protocol"
)

// Process is one running worker computing one job.
//
// Results are read by a dedicated goroutine and delivered on the events
// channel in the order the worker wrote them. EventFinished is always the
// last event and is followed by the closing of Done.
type Process struct {
	name   string
	path   string
	job    model.PackingJob
	events chan<- Event
	log    logr.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	state     State
	last      model.PackingResult
	err       error
	killTimer *time.Timer

	done chan struct{}
}

// New prepares a worker process. Nothing is started until Run.
func New(name, path string, job model.PackingJob, events chan<- Event, log logr.Logger) *Process {
	return &Process{
		name:   name,
		path:   path,
		job:    job,
		events: events,
		log:    log.WithName("worker").WithValues("worker", name),
		state:  StateSpawned,
		done:   make(chan struct{}),
	}
}

// Name returns the worker name.
func (p *Process) Name() string { return p.name }

// Job returns the job the worker computes.
func (p *Process) Job() model.PackingJob { return p.job }

// State returns the current lifecycle stage.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastResult returns the most recent result the worker reported.
func (p *Process) LastResult() model.PackingResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Done is closed after EventFinished has been delivered.
func (p *Process) Done() <-chan struct{} { return p.done }

// Run starts the worker and submits the job. When Run returns an error
// after the process was started, the process is killed and EventFinished
// still follows. When the process could not be started no event is sent
// and Done is closed immediately.
func (p *Process) Run(ctx context.Context) error {
	line, err := protocol.BakeSheetsLine(p.job)
	if err != nil {
		close(p.done)
		return err
	}

	cmd := exec.Command(p.path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		close(p.done)
		return fmt.Errorf("failed to open stdin of %s: %w", p.name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		close(p.done)
		return fmt.Errorf("failed to open stdout of %s: %w", p.name, err)
	}
	if err := ctx.Err(); err != nil {
		close(p.done)
		return err
	}
	if err := start(cmd, StartTimeout); err != nil {
		p.log.Error(err, "Worker failed to start", "path", p.path)
		close(p.done)
		return err
	}

	p.mu.Lock()
	p.cmd = cmd
	p.stdin = stdin
	p.state = StateRunning
	p.mu.Unlock()

	go p.read(stdout)

	p.log.V(1).Info("Submitting job", "shapes", len(p.job.Shapes))
	if err := write(stdin, line, WriteTimeout); err != nil {
		p.log.Error(err, "Failed to submit job")
		p.Kill()
		return fmt.Errorf("failed to submit job to %s: %w", p.name, err)
	}
	return nil
}

// Terminate asks the worker to stop within msec milliseconds and kills it
// once that time has passed. Terminate(0) kills immediately.
func (p *Process) Terminate(msec int) error {
	p.mu.Lock()
	stdin, running := p.stdin, p.cmd != nil && !p.finishedLocked()
	p.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	if msec <= 0 {
		p.Kill()
		return nil
	}

	p.log.V(1).Info("Terminating", "msec", msec)
	p.mu.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
	}
	p.killTimer = time.AfterFunc(time.Duration(msec)*time.Millisecond, p.Kill)
	p.mu.Unlock()

	if err := write(stdin, protocol.TerminateLine(msec), WriteTimeout); err != nil {
		p.log.Error(err, "Failed to send terminate request, killing")
		p.Kill()
		return fmt.Errorf("failed to terminate %s: %w", p.name, err)
	}
	return nil
}

// Kill stops the worker process immediately.
func (p *Process) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil || p.finishedLocked() {
		return
	}
	p.state = StateKilled
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.log.Error(err, "Failed to kill worker")
	}
}

func (p *Process) finishedLocked() bool {
	return p.state == StateFinished || p.state == StateKilled
}

// read decodes every stdout line as a result until the worker closes its
// output, then reaps the process.
func (p *Process) read(stdout io.Reader) {
	defer close(p.done)

	r := bufio.NewReader(stdout)
	for {
		line, err := r.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if err != nil {
				p.log.Info("Worker output ends without a newline")
			}
			p.handleLine(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Error(err, "Failed to read worker output")
			}
			break
		}
	}

	waitErr := p.cmd.Wait()

	p.mu.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
	}
	if p.state != StateKilled {
		p.state = StateFinished
	}
	exitCode := p.cmd.ProcessState.ExitCode()
	last, runErr := p.last, p.err
	p.mu.Unlock()

	if runErr == nil && waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			runErr = waitErr
		}
	}
	p.log.V(1).Info("Worker finished", "exitCode", exitCode, "sheets", len(last.Sheets))
	p.events <- Event{
		Kind:     EventFinished,
		Worker:   p.name,
		Result:   last,
		Job:      p.job,
		ExitCode: exitCode,
		Err:      runErr,
	}
}

func (p *Process) handleLine(line string) {
	result, err := protocol.UnmarshalResult(line)
	if err != nil {
		p.log.Error(err, "Invalid output received")
		p.mu.Lock()
		if p.err == nil {
			p.err = fmt.Errorf("%w: %w", ErrProtocolViolation, err)
		}
		p.mu.Unlock()
		p.Kill()
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.last = result
	if p.state == StateRunning {
		p.state = StateStreaming
	}
	p.mu.Unlock()

	p.log.V(1).Info("Output updated", "sheets", len(result.Sheets))
	p.events <- Event{Kind: EventOutputUpdated, Worker: p.name, Result: result}
}

// Package worker runs a single packing worker as an external process and
// translates its standard output into events.
package worker

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/piwi3910/bakery/internal/model"
)

// Protocol timeouts.
const (
	StartTimeout     = 5 * time.Second
	HandshakeTimeout = 2 * time.Second
	WriteTimeout     = 2 * time.Second
	ExitTimeout      = 2 * time.Second
)

var (
	ErrStartTimeout      = errors.New("worker did not start in time")
	ErrHandshakeTimeout  = errors.New("worker did not answer the metadata request in time")
	ErrHandshakeCrash    = errors.New("worker exited while asked for metadata")
	ErrWriteTimeout      = errors.New("write to worker timed out")
	ErrProtocolViolation = errors.New("worker violated the protocol")
	ErrNotRunning        = errors.New("worker is not running")
)

// State is the lifecycle stage of a worker process.
type State int32

const (
	StateSpawned State = iota
	StateHandshaking
	StateRunning
	StateStreaming
	StateFinished
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateSpawned:
		return "spawned"
	case StateHandshaking:
		return "handshaking"
	case StateRunning:
		return "running"
	case StateStreaming:
		return "streaming"
	case StateFinished:
		return "finished"
	case StateKilled:
		return "killed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// EventKind discriminates Event.
type EventKind int

const (
	// EventOutputUpdated carries an intermediate or final result line.
	EventOutputUpdated EventKind = iota + 1
	// EventFinished is sent exactly once when the process has exited.
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventOutputUpdated:
		return "output_updated"
	case EventFinished:
		return "finished"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is emitted by a Process on its events channel.
type Event struct {
	Kind     EventKind
	Worker   string
	Result   model.PackingResult // latest result; the last one for EventFinished
	Job      model.PackingJob    // set for EventFinished
	ExitCode int                 // set for EventFinished; -1 when killed by a signal
	Err      error               // protocol violation or wait error, EventFinished only
}

// start launches cmd, giving up after timeout.
func start(cmd *exec.Cmd, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- cmd.Start() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
		}
		return nil
	case <-timer.C:
		go func() {
			if err := <-errc; err == nil {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
			}
		}()
		return fmt.Errorf("%w: %s", ErrStartTimeout, cmd.Path)
	}
}

// write sends s to w, giving up after timeout. The pending write is
// abandoned, not cancelled; killing the process unblocks it.
func write(w io.Writer, s string, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		_, err := io.WriteString(w, s)
		errc <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		return err
	case <-timer.C:
		return ErrWriteTimeout
	}
}

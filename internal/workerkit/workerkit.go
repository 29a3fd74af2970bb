// Package workerkit turns a packing algorithm into a worker executable that
// speaks the orchestrator's line protocol on stdin and stdout.
package workerkit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/protocol"
)

// Handler implements a packing algorithm.
type Handler interface {
	// Metadata describes the worker.
	Metadata() model.WorkerMetadata
	// BakeSheets packs job and returns the final result. Improvements may
	// be reported through emit while baking. The context is cancelled when
	// the orchestrator asks the worker to stop; the handler should then
	// return its best result quickly.
	BakeSheets(ctx context.Context, job model.PackingJob, emit Emitter) model.PackingResult
}

// Emitter reports intermediate results.
type Emitter interface {
	Emit(result model.PackingResult) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(model.PackingResult) error

// Emit calls f(result).
func (f EmitterFunc) Emit(result model.PackingResult) error { return f(result) }

// Option configures Serve.
type Option func(*options)

type options struct {
	terminateRatio float64
	log            logr.Logger
}

// WithTerminateRatio sets the fraction of a terminate request's grace
// period after which baking is cancelled. The default is 0.5.
func WithTerminateRatio(r float64) Option {
	return func(o *options) { o.terminateRatio = r }
}

// WithLogger sets the logger. Log output must not go to the protocol
// stream.
func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.log = l }
}

type input struct {
	cmd protocol.Command
	err error
}

// lineWriter serialises protocol lines written from several goroutines.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lineWriter) writeLine(line string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := io.WriteString(lw.w, line)
	return err
}

// Serve reads commands from in and answers on out until the exchange is
// complete: after sending metadata, after sending the final result, or when
// in is closed while idle.
func Serve(ctx context.Context, in io.Reader, out io.Writer, h Handler, opts ...Option) error {
	o := options{terminateRatio: 0.5, log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	lw := &lineWriter{w: out}

	inputs := make(chan input)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(inputs)
		r := bufio.NewReader(in)
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				cmd, perr := protocol.ParseCommand(line)
				select {
				case inputs <- input{cmd: cmd, err: perr}:
				case <-quit:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	var (
		bakeCtx    context.Context
		cancelBake context.CancelFunc
		results    chan model.PackingResult
		stopTimer  *time.Timer
	)
	defer func() {
		if stopTimer != nil {
			stopTimer.Stop()
		}
		if cancelBake != nil {
			cancelBake()
		}
	}()

	for {
		select {
		case msg, ok := <-inputs:
			if !ok {
				if results == nil {
					return nil
				}
				// Keep baking without further commands.
				inputs = nil
				continue
			}
			if msg.err != nil {
				o.log.Error(msg.err, "Ignoring invalid command")
				continue
			}
			switch msg.cmd.Name {
			case protocol.CmdGiveMetadata:
				line, err := protocol.MetadataLine(h.Metadata())
				if err != nil {
					return fmt.Errorf("failed to encode metadata: %w", err)
				}
				return lw.writeLine(line)

			case protocol.CmdBakeSheets:
				if results != nil {
					o.log.Info("Ignoring second bake_sheets command")
					continue
				}
				bakeCtx, cancelBake = context.WithCancel(ctx)
				results = make(chan model.PackingResult, 1)
				emit := EmitterFunc(func(r model.PackingResult) error {
					line, err := protocol.ResultLine(r)
					if err != nil {
						return err
					}
					return lw.writeLine(line)
				})
				job := msg.cmd.Job
				go func() { results <- h.BakeSheets(bakeCtx, job, emit) }()

			case protocol.CmdTerminate:
				if results == nil {
					o.log.Info("Ignoring terminate while idle")
					continue
				}
				grace := time.Duration(float64(msg.cmd.Msec)*o.terminateRatio) * time.Millisecond
				o.log.V(1).Info("Terminate requested", "msec", msg.cmd.Msec, "grace", grace)
				if stopTimer != nil {
					stopTimer.Stop()
				}
				stopTimer = time.AfterFunc(grace, cancelBake)
			}

		case r := <-results:
			line, err := protocol.ResultLine(r)
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			if err := lw.writeLine(line); err != nil {
				return err
			}
			return ctx.Err()

		case <-ctx.Done():
			if results == nil {
				return ctx.Err()
			}
			// The handler observes the cancelled context and returns.
			r := <-results
			line, err := protocol.ResultLine(r)
			if err != nil {
				return errors.Join(ctx.Err(), err)
			}
			return errors.Join(ctx.Err(), lw.writeLine(line))
		}
	}
}

// Main serves h on the process's standard streams and exits. Logs go to
// standard error.
func Main(h Handler, opts ...Option) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := stdr.New(nil).WithName(h.Metadata().Name)
	opts = append([]Option{WithLogger(log)}, opts...)
	if err := Serve(ctx, os.Stdin, os.Stdout, h, opts...); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(err, "Worker failed")
		stop()
		os.Exit(1)
	}
}

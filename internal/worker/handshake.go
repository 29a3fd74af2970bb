package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/protocol"
)

type lineResult struct {
	line string
	err  error
}

// Handshake starts the executable at path, requests its metadata and waits
// for it to exit. A worker that answers but does not exit in time is killed
// and its metadata is still returned.
func Handshake(ctx context.Context, path string, log logr.Logger) (model.WorkerMetadata, error) {
	log = log.WithName("handshake").WithValues("path", path)

	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return model.WorkerMetadata{}, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return model.WorkerMetadata{}, fmt.Errorf("failed to open stdout: %w", err)
	}
	if err := start(cmd, StartTimeout); err != nil {
		return model.WorkerMetadata{}, err
	}

	exited := make(chan error, 1)
	lines := make(chan lineResult, 1)
	go func() {
		line, err := bufio.NewReader(stdout).ReadString('\n')
		lines <- lineResult{line: line, err: err}
		// Wait must not run before the pipe has been read.
		exited <- cmd.Wait()
	}()
	kill := func() {
		_ = cmd.Process.Kill()
		<-exited
	}

	if err := write(stdin, protocol.GiveMetadataLine(), WriteTimeout); err != nil {
		log.Error(err, "Failed to request metadata")
		kill()
		return model.WorkerMetadata{}, fmt.Errorf("%w: %w", ErrHandshakeCrash, err)
	}

	timer := time.NewTimer(HandshakeTimeout)
	defer timer.Stop()

	var res lineResult
	select {
	case res = <-lines:
	case <-timer.C:
		log.Info("Worker candidate failed to give metadata in time")
		kill()
		return model.WorkerMetadata{}, fmt.Errorf("%w: %s", ErrHandshakeTimeout, path)
	case <-ctx.Done():
		kill()
		return model.WorkerMetadata{}, ctx.Err()
	}

	if strings.TrimSpace(res.line) == "" {
		if res.err != nil {
			select {
			case <-exited:
			case <-timer.C:
				kill()
			case <-ctx.Done():
				kill()
			}
			log.Info("Worker candidate crashed when asked to give metadata")
			return model.WorkerMetadata{}, fmt.Errorf("%w: %s", ErrHandshakeCrash, path)
		}
		log.Info("Worker candidate provided empty metadata")
		kill()
		return model.WorkerMetadata{}, fmt.Errorf("%w: empty metadata line", ErrProtocolViolation)
	}
	if res.err != nil && !errors.Is(res.err, io.EOF) {
		kill()
		return model.WorkerMetadata{}, fmt.Errorf("failed to read metadata: %w", res.err)
	}
	if res.err != nil {
		log.Info("Worker candidate violated the protocol (missing newline)")
	}

	meta, err := protocol.UnmarshalMetadata(res.line)
	if err != nil {
		log.Error(err, "Worker candidate provided invalid metadata")
		kill()
		return model.WorkerMetadata{}, fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}

	_ = stdin.Close()
	exitTimer := time.NewTimer(ExitTimeout)
	defer exitTimer.Stop()
	select {
	case <-exited:
	case <-exitTimer.C:
		log.Info("Worker candidate violated the protocol (failed to exit after sending metadata)")
		kill()
	}
	return meta, nil
}

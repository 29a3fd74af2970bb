// Package workertest provides scripted worker executables for tests.
//
// The test binary doubles as the worker: a package's TestMain calls Main,
// and Script writes a small launcher that re-executes the test binary in a
// given mode.
package workertest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/protocol"
	"github.com/piwi3910/bakery/internal/workerkit"
)

const (
	envMode = "BAKERY_TEST_WORKER"
	envName = "BAKERY_TEST_WORKER_NAME"
)

// Worker modes.
const (
	// Good places one shape per sheet and reports after every shape.
	Good = "good"
	// Cooperative reports one sheet and then waits for terminate.
	Cooperative = "cooperative"
	// IgnoreTerminate answers metadata but never finishes a job.
	IgnoreTerminate = "ignore-terminate"
	// Silent never writes anything.
	Silent = "silent"
	// Garbage answers every command with a line that is not protocol.
	Garbage = "garbage"
	// Crash exits with status 3 without output.
	Crash = "crash"
	// NoExit answers metadata and stays alive.
	NoExit = "no-exit"
	// Invalid reports a result missing every shape.
	Invalid = "invalid"
	// Blank answers metadata with an empty line and stays alive.
	Blank = "blank"
	// Deaf never reads its input and never exits.
	Deaf = "deaf"
)

// Main runs the scripted worker when the process was started by a Script
// launcher, and the tests otherwise.
func Main(m *testing.M) {
	if mode := os.Getenv(envMode); mode != "" {
		os.Exit(run(mode, os.Getenv(envName)))
	}
	os.Exit(m.Run())
}

// Script writes an executable launcher for a worker in the given mode and
// returns its path. The file is named after the worker.
func Script(t testing.TB, mode, name string) string {
	t.Helper()
	return ScriptIn(t, t.TempDir(), mode, name)
}

// ScriptIn is Script writing into dir.
func ScriptIn(t testing.TB, dir, mode, name string) string {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to locate test binary: %v", err)
	}
	script := fmt.Sprintf("#!/bin/sh\n%s=%s %s=%s exec '%s' -test.run='^$' \"$@\"\n",
		envMode, mode, envName, name, exe)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write worker script: %v", err)
	}
	return path
}

type handler struct {
	name string
	mode string
}

func (h handler) Metadata() model.WorkerMetadata {
	return model.WorkerMetadata{Name: h.name, Type: h.mode, Author: "workertest", License: "MIT"}
}

func (h handler) BakeSheets(ctx context.Context, job model.PackingJob, emit workerkit.Emitter) model.PackingResult {
	var result model.PackingResult
	switch h.mode {
	case Invalid:
		result.Sheets = []model.Container{job.EmptyContainer()}
		return result
	case Cooperative:
		if len(job.Shapes) > 0 {
			c := job.EmptyContainer()
			c.Append(job.Shapes[0].Normalized())
			result.Sheets = append(result.Sheets, c)
			_ = emit.Emit(result)
		}
		<-ctx.Done()
		return result
	}
	for _, s := range job.Shapes {
		c := job.EmptyContainer()
		c.Append(s.Normalized())
		result.Sheets = append(result.Sheets, c)
		if err := emit.Emit(result); err != nil {
			break
		}
	}
	return result
}

func run(mode, name string) int {
	if name == "" {
		name = mode
	}
	h := handler{name: name, mode: mode}
	switch mode {
	case Good, Cooperative, Invalid:
		if err := workerkit.Serve(context.Background(), os.Stdin, os.Stdout, h); err != nil {
			return 1
		}
		return 0
	case Crash:
		return 3
	case Silent:
		drain()
		for {
			time.Sleep(time.Hour)
		}
	case Garbage:
		in := bufio.NewScanner(os.Stdin)
		for in.Scan() {
			fmt.Println("hello world")
		}
		return 0
	case Deaf:
		for {
			time.Sleep(time.Hour)
		}
	case Blank:
		in := bufio.NewReader(os.Stdin)
		_, _ = in.ReadString('\n')
		fmt.Println()
		drain()
		for {
			time.Sleep(time.Hour)
		}
	case NoExit, IgnoreTerminate:
		in := bufio.NewReader(os.Stdin)
		line, _ := in.ReadString('\n')
		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			return 2
		}
		if cmd.Name == protocol.CmdGiveMetadata {
			out, _ := protocol.MetadataLine(h.Metadata())
			fmt.Print(out)
		}
		drain()
		for {
			time.Sleep(time.Hour)
		}
	}
	fmt.Fprintf(os.Stderr, "unknown worker mode %q\n", mode)
	return 2
}

// drain consumes stdin in the background so writers never block.
func drain() {
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				return
			}
		}
	}()
}

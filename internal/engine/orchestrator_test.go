package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/workertest"
)

func newTestOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	o := New(opts...)
	t.Cleanup(o.Close)
	return o
}

// register adds a scripted worker without a handshake.
func register(t *testing.T, o *Orchestrator, mode, name string) {
	t.Helper()
	path := workertest.Script(t, mode, name)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers[name] = WorkerInfo{
		Name:     name,
		Path:     path,
		Metadata: model.WorkerMetadata{Name: name, Type: mode},
		Enabled:  true,
	}
}

func triangles(n int) model.PackingJob {
	job := model.NewPackingJob(model.Precise(1), model.Precise(1))
	for range n {
		job.Shapes = append(job.Shapes,
			model.NewClosedPolygon("tri", model.P(0, 0), model.P(0.5, 0), model.P(0, 0.5)))
	}
	return job
}

func TestLoadWorker(t *testing.T) {
	o := newTestOrchestrator(t)

	info, err := o.LoadWorker(context.Background(), workertest.Script(t, workertest.Good, "alpha"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", info.Name)
	assert.True(t, info.Enabled)

	_, err = o.LoadWorker(context.Background(), workertest.Script(t, workertest.Good, "alpha"))
	assert.ErrorIs(t, err, ErrDuplicateWorker)

	got, err := o.Worker("alpha")
	require.NoError(t, err)
	assert.Equal(t, "workertest", got.Metadata.Author)

	_, err = o.Worker("nobody")
	assert.ErrorIs(t, err, ErrUnknownWorker)
}

func TestLoadWorkersFromDirectory(t *testing.T) {
	dir := t.TempDir()
	workertest.ScriptIn(t, dir, workertest.Good, "alpha")
	workertest.ScriptIn(t, dir, workertest.Silent, "beta")
	workertest.ScriptIn(t, dir, workertest.Crash, "gamma")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	o := newTestOrchestrator(t)
	loaded, err := o.LoadWorkersFromDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, loaded, 1, "non-responding workers are excluded")
	assert.Equal(t, "alpha", loaded[0].Name)
	assert.Len(t, o.Workers(), 1)
}

func TestLoadWorkersFromDirectory_Empty(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.LoadWorkersFromDirectory(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = o.LoadWorkersFromDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSettingsApplyOnLoad(t *testing.T) {
	settings := model.NewWorkerSettings()
	settings.DisabledPattern = "^exp"
	settings.TimeLimitMs = 1500
	o := newTestOrchestrator(t, WithSettings(settings))

	_, err := o.LoadWorker(context.Background(), workertest.Script(t, workertest.Good, "experimental"))
	require.NoError(t, err)
	_, err = o.LoadWorker(context.Background(), workertest.Script(t, workertest.Good, "stable"))
	require.NoError(t, err)

	assert.Equal(t, []string{"stable"}, o.EnabledWorkers())
	assert.Equal(t, []string{"experimental"}, o.DisabledWorkers())
	assert.Equal(t, 1500, o.TimeLimit())

	require.NoError(t, o.SetWorkerEnabled("experimental", true))
	assert.True(t, o.Settings().IsEnabled("experimental"))
	assert.ErrorIs(t, o.SetWorkerEnabled("ghost", true), ErrUnknownWorker)

	o.SetAllWorkersEnabled(false)
	assert.Empty(t, o.EnabledWorkers())

	o.SetTimeLimit(-5)
	assert.Zero(t, o.TimeLimit())
}

func TestComputeAllOutputs_ConfigErrors(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.ComputeAllOutputs(context.Background(), triangles(1), true)
	assert.ErrorIs(t, err, ErrNoWorkers)

	register(t, o, workertest.Good, "alpha")
	require.NoError(t, o.SetWorkerEnabled("alpha", false))
	_, err = o.ComputeAllOutputs(context.Background(), triangles(1), true)
	assert.ErrorIs(t, err, ErrNoEnabledWorkers)
}

func TestComputeAllOutputs_Synchronous(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, workertest.Good, "good")
	register(t, o, workertest.Invalid, "invalid")
	register(t, o, workertest.Garbage, "garbage")
	o.mu.Lock()
	o.workers["missing"] = WorkerInfo{Name: "missing", Path: filepath.Join(t.TempDir(), "gone"), Enabled: true}
	o.mu.Unlock()

	events, cancel := o.Subscribe()
	defer cancel()

	job := triangles(3)
	r, err := o.ComputeAllOutputs(context.Background(), job, true)
	require.NoError(t, err)

	select {
	case <-r.Done():
	default:
		t.Fatal("synchronous run returned before finishing")
	}
	outputs := r.Outputs()
	require.Len(t, outputs, 1)
	assert.True(t, model.IsResultValidForJob(job, outputs["good"]))
	assert.Empty(t, r.Running())

	reports := r.Reports()
	require.Len(t, reports, 4)
	byName := map[string]WorkerReport{}
	for _, rep := range reports {
		byName[rep.Worker] = rep
	}
	assert.True(t, byName["good"].Valid)
	assert.ErrorIs(t, byName["invalid"].Err, model.ErrInvalidResult)
	assert.Error(t, byName["garbage"].Err)
	assert.Error(t, byName["missing"].Err)

	kinds := map[EventKind]int{}
	timeout := time.After(5 * time.Second)
	for kinds[EventAllFinished] == 0 {
		select {
		case ev := <-events:
			kinds[ev.Kind]++
			assert.Equal(t, r.ID(), ev.RunID)
		case <-timeout:
			t.Fatal("no all-finished event")
		}
	}
	assert.Equal(t, 4, kinds[EventWorkerStarting])
	assert.Equal(t, 4, kinds[EventWorkerFinished])
	assert.GreaterOrEqual(t, kinds[EventOutputUpdated], 3)

	name, best, ok := FindBestOutput(outputs)
	require.True(t, ok)
	assert.Equal(t, "good", name)
	assert.Len(t, best.Sheets, 3)

	got, err := o.Run(r.ID())
	require.NoError(t, err)
	assert.Same(t, r, got)
	_, err = o.Run("nope")
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestComputeAllOutputs_TimeLimit(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, workertest.Cooperative, "coop")
	register(t, o, workertest.IgnoreTerminate, "stubborn")
	o.SetTimeLimit(400)

	start := time.Now()
	r, err := o.ComputeAllOutputs(context.Background(), triangles(1), true)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	outputs := r.Outputs()
	assert.Contains(t, outputs, "coop")
	assert.NotContains(t, outputs, "stubborn")
}

func TestComputeAllOutputs_ContextCancelKillsWorkers(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, workertest.IgnoreTerminate, "stubborn")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	r, err := o.ComputeAllOutputs(ctx, triangles(1), true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, r)

	reports := r.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, -1, reports[0].ExitCode)
	assert.False(t, reports[0].Valid)
}

func TestRun_TerminateAsynchronous(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, workertest.IgnoreTerminate, "stubborn")

	r, err := o.ComputeAllOutputs(context.Background(), triangles(1), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"stubborn"}, r.Running())

	start := time.Now()
	require.NoError(t, r.Terminate("stubborn", 300))
	require.NoError(t, r.Wait(context.Background()))
	assert.Less(t, time.Since(start), 1500*time.Millisecond)

	assert.Error(t, r.Kill("stubborn"))
}

func TestComputeBestOutput(t *testing.T) {
	o := newTestOrchestrator(t)
	register(t, o, workertest.Good, "good")
	register(t, o, workertest.Invalid, "invalid")

	name, result, ok, err := o.ComputeBestOutput(context.Background(), triangles(2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "good", name)
	assert.Len(t, result.Sheets, 2)
}

func TestRunHistoryIsPruned(t *testing.T) {
	o := newTestOrchestrator(t, WithHistory(1))
	register(t, o, workertest.Good, "good")

	first, err := o.ComputeAllOutputs(context.Background(), triangles(1), true)
	require.NoError(t, err)
	second, err := o.ComputeAllOutputs(context.Background(), triangles(1), true)
	require.NoError(t, err)

	_, err = o.Run(first.ID())
	assert.ErrorIs(t, err, ErrUnknownRun)
	_, err = o.Run(second.ID())
	assert.NoError(t, err)
}

func TestCloseClosesSubscriptions(t *testing.T) {
	o := New()
	events, cancel := o.Subscribe()
	o.Close()

	_, open := <-events
	assert.False(t, open)
	cancel()

	_, err := o.Run("x")
	assert.ErrorIs(t, err, ErrClosed)
}

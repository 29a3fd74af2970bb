package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/bakery/internal/project"
	"github.com/piwi3910/bakery/internal/workertest"
)

func TestMain(m *testing.M) {
	workertest.Main(m)
}

const triangleJob = "1 1 1\ntri\n2 3\n0 0 0.5 0 0 0.5\n"

type env struct {
	dir     string
	workers string
	out     string
	job     string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:     dir,
		workers: filepath.Join(dir, "workers"),
		out:     filepath.Join(dir, "out"),
		job:     filepath.Join(dir, "job.txt"),
	}
	require.NoError(t, os.Mkdir(e.workers, 0o755))
	require.NoError(t, os.WriteFile(e.job, []byte(triangleJob), 0o644))
	return e
}

// run executes the command with isolated config files.
func (e env) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	base := []string{
		"--config", filepath.Join(e.dir, "config.json"),
		"--worker-settings", filepath.Join(e.dir, "workers.json"),
		"--templates", filepath.Join(e.dir, "templates.json"),
		"-w", e.workers,
		"-o", e.out,
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append(base, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestGenerateRandom(t *testing.T) {
	e := newEnv(t)

	code, _, stderr := e.run(t, "--generate-random", "3", "--seed", "7")
	require.Equal(t, exitSuccess, code, stderr)

	for _, name := range []string{"random00000.txt", "random00001.txt", "random00002.txt"} {
		job, err := project.LoadJob(filepath.Join(e.out, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, job.Shapes)
	}
	_, err := os.Stat(filepath.Join(e.out, "random00003.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateRandom_OutOfRange(t *testing.T) {
	e := newEnv(t)
	code, _, _ := e.run(t, "--generate-random", "0")
	assert.Equal(t, exitFailure, code)
	code, _, _ = e.run(t, "--generate-random", "100001")
	assert.Equal(t, exitFailure, code)
}

func TestListWorkers(t *testing.T) {
	e := newEnv(t)
	workertest.ScriptIn(t, e.workers, workertest.Good, "alpha")
	workertest.ScriptIn(t, e.workers, workertest.Good, "beta")

	code, stdout, stderr := e.run(t, "-l", "-d", "^b")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Equal(t, "Available workers:\n- alpha\n- beta (disabled)\n", stdout)
}

func TestRun_BestOutput(t *testing.T) {
	e := newEnv(t)
	workertest.ScriptIn(t, e.workers, workertest.Good, "alpha")
	workertest.ScriptIn(t, e.workers, workertest.Invalid, "broken")

	code, _, stderr := e.run(t, "-s", "--pdf", "--labels", "--png", "--report", "--gcode", "--tool-diameter", "0.1", e.job)
	require.Equal(t, exitSuccess, code, stderr)

	for _, name := range []string{
		"results.txt", "bakery-1.svg", "bakery-2.svg",
		"results.pdf", "labels.pdf", "bakery-1.png", "report.xlsx", "scores.html",
		"bakery-1.nc", "bakery-2.nc",
	} {
		_, err := os.Stat(filepath.Join(e.out, name))
		assert.NoError(t, err, name)
	}

	cfg, err := project.LoadAppConfig(filepath.Join(e.dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{e.job}, cfg.RecentJobs)
}

func TestRun_AllOutputs(t *testing.T) {
	e := newEnv(t)
	workertest.ScriptIn(t, e.workers, workertest.Good, "alpha")
	workertest.ScriptIn(t, e.workers, workertest.Good, "beta")

	code, _, stderr := e.run(t, "-a", "-r", "out.txt", e.job)
	require.Equal(t, exitSuccess, code, stderr)

	for _, name := range []string{"alpha", "beta"} {
		_, err := os.Stat(filepath.Join(e.out, name, "out.txt"))
		assert.NoError(t, err, name)
	}
}

func TestRun_Templates(t *testing.T) {
	e := newEnv(t)
	workertest.ScriptIn(t, e.workers, workertest.Good, "alpha")

	code, _, stderr := e.run(t, "--save-template", "triangles", e.job)
	require.Equal(t, exitSuccess, code, stderr)

	store, err := project.LoadTemplates(filepath.Join(e.dir, "templates.json"))
	require.NoError(t, err)
	require.Equal(t, []string{"triangles"}, store.Names())
	assert.Equal(t, e.job, store.Templates[0].Description)

	require.NoError(t, os.RemoveAll(e.out))
	code, _, stderr = e.run(t, "--template", "triangles")
	require.Equal(t, exitSuccess, code, stderr)
	_, err = os.Stat(filepath.Join(e.out, "results.txt"))
	assert.NoError(t, err)

	code, _, _ = e.run(t, "--template", "missing")
	assert.Equal(t, exitFailure, code)
}

func TestRun_ExportImportData(t *testing.T) {
	e := newEnv(t)
	backup := filepath.Join(e.dir, "backup", "bakery.json")

	code, _, stderr := e.run(t, "--export-data", backup, "-d", "^x")
	require.Equal(t, exitSuccess, code, stderr)

	data, err := project.ImportAllData(backup)
	require.NoError(t, err)
	assert.Equal(t, "^x", data.Config.DisabledPattern)

	other := newEnv(t)
	code, _, stderr = other.run(t, "--import-data", backup)
	require.Equal(t, exitSuccess, code, stderr)

	cfg, err := project.LoadAppConfig(filepath.Join(other.dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "^x", cfg.DisabledPattern)

	code, _, _ = other.run(t, "--import-data", filepath.Join(other.dir, "missing.json"))
	assert.Equal(t, exitFailure, code)
}

func TestRun_NoValidOutput(t *testing.T) {
	e := newEnv(t)
	workertest.ScriptIn(t, e.workers, workertest.Invalid, "broken")

	code, _, _ := e.run(t, e.job)
	assert.Equal(t, exitFailure, code)
}

func TestRun_Errors(t *testing.T) {
	e := newEnv(t)

	code, _, _ := e.run(t, e.job)
	assert.Equal(t, exitFailure, code, "no workers")

	workertest.ScriptIn(t, e.workers, workertest.Good, "alpha")

	code, _, _ = e.run(t, "-d", "(", e.job)
	assert.Equal(t, exitFailure, code, "invalid pattern")

	code, _, _ = e.run(t, "-d", "alpha", e.job)
	assert.Equal(t, exitFailure, code, "every worker disabled")

	code, _, _ = e.run(t, "-t", "-1", e.job)
	assert.Equal(t, exitFailure, code, "negative time limit")

	code, _, _ = e.run(t)
	assert.Equal(t, exitFailure, code, "missing input")

	code, _, _ = e.run(t, filepath.Join(e.dir, "missing.txt"))
	assert.Equal(t, exitFailure, code, "missing input file")

	code, _, _ = e.run(t, "--no-such-flag")
	assert.Equal(t, exitFailure, code)
}

func TestLoadInput_ImportedShapes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.csv")
	require.NoError(t, os.WriteFile(path, []byte("name;amount;points\ntri;2;0,0 1,0 0,1\n"), 0o644))

	_, err := loadInput(path, 0, 0)
	assert.Error(t, err, "a shape table defines no container")

	job, err := loadInput(path, 3, 2)
	require.NoError(t, err)
	assert.Len(t, job.Shapes, 2)
}

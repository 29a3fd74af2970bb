package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAppConfig(t *testing.T) {
	cfg := DefaultAppConfig()

	assert.Equal(t, "plugins", cfg.WorkerDir)
	assert.Equal(t, "results.txt", cfg.ResultsFile)
	assert.Zero(t, cfg.TimeLimitMs)
	assert.NotNil(t, cfg.RecentJobs, "RecentJobs should not be nil")
}

func TestAppConfig_AddRecentJob(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.AddRecentJob("a.txt", 2)
	cfg.AddRecentJob("b.txt", 2)
	cfg.AddRecentJob("a.txt", 2)
	cfg.AddRecentJob("c.txt", 2)

	assert.Equal(t, []string{"c.txt", "a.txt"}, cfg.RecentJobs)
}

func TestApplyToSettings(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.TimeLimitMs = 1500
	cfg.DisabledPattern = "^slow"

	s := NewWorkerSettings()
	cfg.ApplyToSettings(&s)

	assert.Equal(t, 1500, s.TimeLimitMs)
	assert.Equal(t, "^slow", s.DisabledPattern)
}

package model

import (
	"regexp"
	"sort"

	"github.com/maruel/natural"
)

// WorkerSettings holds persisted orchestrator preferences: which workers
// are enabled and the default time limit.
type WorkerSettings struct {
	Enabled         map[string]bool `json:"enabled"`
	TimeLimitMs     int             `json:"time_limit_ms"`
	DisabledPattern string          `json:"disabled_pattern,omitempty"`
}

// NewWorkerSettings returns settings with every worker enabled and no time
// limit.
func NewWorkerSettings() WorkerSettings {
	return WorkerSettings{Enabled: map[string]bool{}}
}

// IsEnabled reports whether the named worker is enabled. Unknown workers
// are enabled unless they match DisabledPattern.
func (s WorkerSettings) IsEnabled(name string) bool {
	if on, ok := s.Enabled[name]; ok {
		return on
	}
	return !s.matchesDisabled(name)
}

func (s WorkerSettings) matchesDisabled(name string) bool {
	if s.DisabledPattern == "" {
		return false
	}
	re, err := regexp.Compile(s.DisabledPattern)
	if err != nil {
		logger.Info("invalid disabled-worker pattern", "pattern", s.DisabledPattern, "error", err.Error())
		return false
	}
	return re.MatchString(name)
}

// SetEnabled records the enabled flag of a worker.
func (s *WorkerSettings) SetEnabled(name string, enabled bool) {
	if s.Enabled == nil {
		s.Enabled = map[string]bool{}
	}
	s.Enabled[name] = enabled
}

// Names returns the workers with a recorded flag in natural order.
func (s WorkerSettings) Names() []string {
	names := make([]string, 0, len(s.Enabled))
	for n := range s.Enabled {
		names = append(names, n)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

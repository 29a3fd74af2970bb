package model

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	// Worker discovery and run defaults
	WorkerDir       string `json:"worker_dir"`
	TimeLimitMs     int    `json:"time_limit_ms"` // 0 = unlimited
	DisabledPattern string `json:"disabled_pattern"`

	// Output
	OutputDir   string `json:"output_dir"`
	ResultsFile string `json:"results_file"`
	SVGOutput   bool   `json:"svg_output"`

	ServerAddr string `json:"server_addr"`

	// Host patterns of browser origins allowed to open event streams,
	// besides the server's own host.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	RecentJobs     []string `json:"recent_jobs"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		WorkerDir:   "plugins",
		TimeLimitMs: 0,
		OutputDir:   "",
		ResultsFile: "results.txt",
		SVGOutput:   false,
		ServerAddr:  ":8080",
		RecentJobs:  []string{},
	}
}

// AddRecentJob records path as the most recently used job file, keeping at
// most max entries.
func (c *AppConfig) AddRecentJob(path string, max int) {
	jobs := []string{path}
	for _, j := range c.RecentJobs {
		if j != path {
			jobs = append(jobs, j)
		}
	}
	if len(jobs) > max {
		jobs = jobs[:max]
	}
	c.RecentJobs = jobs
}

// ApplyToSettings copies the run defaults from AppConfig into WorkerSettings.
// This is used when no worker settings were saved yet.
func (c AppConfig) ApplyToSettings(s *WorkerSettings) {
	s.TimeLimitMs = c.TimeLimitMs
	s.DisabledPattern = c.DisabledPattern
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/maruel/natural"

	"github.com/piwi3910/bakery/internal/config"
	"github.com/piwi3910/bakery/internal/engine"
	"github.com/piwi3910/bakery/internal/export"
	"github.com/piwi3910/bakery/internal/gcode"
	"github.com/piwi3910/bakery/internal/importer"
	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/project"
	"github.com/piwi3910/bakery/internal/server"
)

const (
	exitSuccess = 0
	exitFailure = 1

	maxRandomJobs = 100000
	maxRecentJobs = 10
	defaultOutput = "./output"
)

type options struct {
	configPath   string
	settingsPath string
	outputDir    string
	resultsFile  string
	timeLimit    int // seconds
	listWorkers  bool
	allOutputs   bool
	svgOutput    bool
	randomCount  int
	seed         uint64
	disabled     string
	workerDir    string
	pdf          bool
	labels       bool
	png          bool
	report       bool
	gcode        bool
	toolDiameter float64
	serveAddr    string
	templates    string
	saveTemplate string
	template     string
	exportData   string
	importData   string
	verbosity    int
	width        float64
	height       float64
}

func stringVar(fs *flag.FlagSet, p *string, value, usage string, names ...string) {
	for _, n := range names {
		fs.StringVar(p, n, value, usage)
	}
}

func boolVar(fs *flag.FlagSet, p *bool, usage string, names ...string) {
	for _, n := range names {
		fs.BoolVar(p, n, false, usage)
	}
}

func intVar(fs *flag.FlagSet, p *int, value int, usage string, names ...string) {
	for _, n := range names {
		fs.IntVar(p, n, value, usage)
	}
}

func newFlagSet(opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("bakery", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Bakery command line interface")
		fmt.Fprintln(stderr, "\nUsage: bakery [flags] input")
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	stringVar(fs, &opts.configPath, project.DefaultConfigPath(), "application config file", "config")
	stringVar(fs, &opts.settingsPath, project.DefaultWorkerSettingsPath(), "worker settings file", "worker-settings")
	stringVar(fs, &opts.outputDir, "", "output directory, created if missing (default ./output)", "o", "output-directory-path")
	stringVar(fs, &opts.resultsFile, "", "results file name (default results.txt)", "r", "results-file-name")
	intVar(fs, &opts.timeLimit, 0, "time limit in seconds, 0 for none", "t", "time-limit")
	boolVar(fs, &opts.listWorkers, "list available workers", "l", "list-workers")
	boolVar(fs, &opts.allOutputs, "save every valid output to a subdirectory per worker", "a", "all-outputs")
	boolVar(fs, &opts.svgOutput, "save SVG files to the output directory", "s", "svg-output")
	intVar(fs, &opts.randomCount, 0, "save `count` randomly generated job files to the output directory", "generate-random")
	fs.Uint64Var(&opts.seed, "seed", 0, "first seed for --generate-random")
	stringVar(fs, &opts.disabled, "", "disable workers whose names match the `regex`", "d", "disabled-workers")
	stringVar(fs, &opts.workerDir, "", "worker `directory`", "w", "worker-dir")
	boolVar(fs, &opts.pdf, "write a PDF report of the best output", "pdf")
	boolVar(fs, &opts.labels, "write QR shape labels of the best output", "labels")
	boolVar(fs, &opts.png, "write a PNG preview per container", "png")
	boolVar(fs, &opts.report, "write an xlsx worker comparison and an HTML score chart", "report")
	boolVar(fs, &opts.gcode, "write a contour-cutting G-code program per container", "gcode")
	fs.Float64Var(&opts.toolDiameter, "tool-diameter", gcode.DefaultSettings().ToolDiameter, "cutter diameter for --gcode, in job units")
	stringVar(fs, &opts.templates, project.DefaultTemplatePath(), "job template store", "templates")
	stringVar(fs, &opts.saveTemplate, "", "save the input job as template `name`", "save-template")
	stringVar(fs, &opts.template, "", "use the job template `name` as input", "template")
	stringVar(fs, &opts.exportData, "", "back up config, worker settings and templates to `file` and exit", "export-data")
	stringVar(fs, &opts.importData, "", "restore a backup `file` and exit", "import-data")
	stringVar(fs, &opts.serveAddr, "", "serve the HTTP API on `addr` instead of running a job", "serve")
	intVar(fs, &opts.verbosity, 0, "log verbosity", "v")
	fs.Float64Var(&opts.width, "width", 0, "container width for imported shape lists")
	fs.Float64Var(&opts.height, "height", 0, "container height for imported shape lists")
	return fs
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := newFlagSet(&opts, stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		return exitFailure
	}
	set := setFlags(fs)

	stdr.SetVerbosity(opts.verbosity)
	logger := stdr.New(stdlog.New(stderr, "", stdlog.LstdFlags))
	model.SetLogger(logger)
	log := logger.WithName("bakery")

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Error(err, "Failed to load config", "path", opts.configPath)
		return exitFailure
	}
	applyFlags(&cfg, opts, set)

	if set["export-data"] {
		if err := exportData(opts.exportData, cfg, opts); err != nil {
			log.Error(err, "Failed to export data", "path", opts.exportData)
			return exitFailure
		}
		return exitSuccess
	}
	if set["import-data"] {
		if err := importData(opts.importData, opts); err != nil {
			log.Error(err, "Failed to import data", "path", opts.importData)
			return exitFailure
		}
		return exitSuccess
	}

	if set["generate-random"] {
		return generateRandom(log, cfg.OutputDir, opts.randomCount, opts.seed)
	}

	if set["t"] || set["time-limit"] {
		if opts.timeLimit < 0 {
			log.Error(nil, "Time limit is less than 0", "seconds", opts.timeLimit)
			return exitFailure
		}
		cfg.TimeLimitMs = opts.timeLimit * 1000
		log.V(1).Info("Imposing time limit", "seconds", opts.timeLimit)
	}
	if cfg.DisabledPattern != "" {
		if _, err := regexp.Compile(cfg.DisabledPattern); err != nil {
			log.Error(err, "Regular expression is invalid", "pattern", cfg.DisabledPattern)
			return exitFailure
		}
	}

	settings, err := project.LoadWorkerSettings(opts.settingsPath)
	if err != nil {
		log.Error(err, "Failed to load worker settings", "path", opts.settingsPath)
		return exitFailure
	}
	if settings.TimeLimitMs == 0 || set["t"] || set["time-limit"] {
		settings.TimeLimitMs = cfg.TimeLimitMs
	}
	if cfg.DisabledPattern != "" {
		settings.DisabledPattern = cfg.DisabledPattern
	}
	if set["d"] || set["disabled-workers"] {
		// The pattern on the command line wins over remembered flags.
		settings.Enabled = map[string]bool{}
	}

	o := engine.New(engine.WithLogger(logger), engine.WithSettings(settings))
	defer o.Close()

	if _, err := o.LoadWorkersFromDirectory(ctx, cfg.WorkerDir); err != nil {
		log.Error(err, "There are no workers available", "dir", cfg.WorkerDir)
		return exitFailure
	}

	if opts.listWorkers {
		fmt.Fprintln(stdout, "Available workers:")
		for _, w := range o.Workers() {
			state := ""
			if !w.Enabled {
				state = " (disabled)"
			}
			fmt.Fprintf(stdout, "- %s%s\n", w.Name, state)
		}
		return exitSuccess
	}

	if set["serve"] {
		srv := server.New(o,
			server.WithLogger(logger),
			server.WithOriginPatterns(cfg.AllowedOrigins...),
			server.WithSettingsSaver(func(s model.WorkerSettings) error {
				return project.SaveWorkerSettings(opts.settingsPath, s)
			}),
		)
		if err := srv.ListenAndServe(ctx, cfg.ServerAddr); err != nil {
			log.Error(err, "Server failed", "addr", cfg.ServerAddr)
			return exitFailure
		}
		return exitSuccess
	}

	if len(o.EnabledWorkers()) == 0 {
		log.Error(engine.ErrNoEnabledWorkers, "There are no workers enabled")
		return exitFailure
	}

	var (
		input string
		job   model.PackingJob
	)
	switch {
	case set["template"]:
		job, err = loadTemplateJob(opts.templates, opts.template)
	case fs.NArg() == 0:
		fs.Usage()
		return exitFailure
	default:
		input = fs.Arg(0)
		job, err = loadInput(input, opts.width, opts.height)
	}
	if err != nil {
		log.Error(err, "Failed to load job", "path", input, "template", opts.template)
		return exitFailure
	}
	if set["save-template"] {
		if err := saveTemplate(opts.templates, opts.saveTemplate, input, job); err != nil {
			log.Error(err, "Failed to save template", "name", opts.saveTemplate)
			return exitFailure
		}
	}
	est := model.EstimateContainers(job, 0)
	log.V(1).Info("Job loaded", "shapes", len(job.Shapes), "minContainers", est.Min, "largestFraction", est.LargestFraction)

	r, err := o.ComputeAllOutputs(ctx, job, true)
	if err != nil {
		log.Error(err, "Failed to get worker outputs")
		return exitFailure
	}
	outputs := r.Outputs()
	if len(outputs) == 0 {
		limit := "none"
		if cfg.TimeLimitMs > 0 {
			limit = fmt.Sprintf("%d ms", cfg.TimeLimitMs)
		}
		log.Info("No worker found a valid solution", "timeLimit", limit)
		return exitFailure
	}
	log.V(1).Info("Valid solutions found", "workers", strings.Join(sortedNames(outputs), ", "))

	if err := saveOutputs(log, cfg, opts, job, r, outputs); err != nil {
		log.Error(err, "Failed to save output")
		return exitFailure
	}

	if input != "" {
		cfg.AddRecentJob(input, maxRecentJobs)
		if err := project.SaveAppConfig(opts.configPath, cfg); err != nil {
			log.V(1).Info("Could not remember recent job", "error", err.Error())
		}
	}
	return exitSuccess
}

// applyFlags overrides config values with the flags given on the command
// line and fills in CLI defaults.
func applyFlags(cfg *model.AppConfig, opts options, set map[string]bool) {
	if set["o"] || set["output-directory-path"] {
		cfg.OutputDir = opts.outputDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutput
	}
	if set["r"] || set["results-file-name"] {
		cfg.ResultsFile = opts.resultsFile
	}
	if cfg.ResultsFile == "" {
		cfg.ResultsFile = model.DefaultAppConfig().ResultsFile
	}
	if set["s"] || set["svg-output"] {
		cfg.SVGOutput = opts.svgOutput
	}
	if set["d"] || set["disabled-workers"] {
		cfg.DisabledPattern = opts.disabled
	}
	if set["w"] || set["worker-dir"] {
		cfg.WorkerDir = opts.workerDir
	}
	if set["serve"] {
		cfg.ServerAddr = opts.serveAddr
	}
}

func generateRandom(log logr.Logger, dir string, count int, seed uint64) int {
	if count < 1 || count > maxRandomJobs {
		log.Error(nil, "Number of random input files is out of range (1-100000)", "count", count)
		return exitFailure
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error(err, "Failed to create output directory", "dir", dir)
		return exitFailure
	}

	params := project.DefaultRandomParams()
	for i := range count {
		s := seed + uint64(i)
		job, err := project.RandomJob(params, rand.New(rand.NewPCG(s, s)))
		if err != nil {
			log.Error(err, "Failed to generate random job", "seed", s)
			return exitFailure
		}
		path := filepath.Join(dir, fmt.Sprintf("random%05d.txt", i))
		if err := project.SaveJob(path, job); err != nil {
			log.Error(err, "Failed to write random job", "path", path)
			return exitFailure
		}
	}
	log.V(1).Info("Random jobs written", "count", count, "dir", dir)
	return exitSuccess
}

// loadInput reads a job file, or imports a shape list for containers of
// the given size.
func loadInput(path string, width, height float64) (model.PackingJob, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".txt" || ext == "" {
		return project.LoadJob(path)
	}

	res := importer.ImportFile(path)
	if len(res.Errors) > 0 {
		return model.PackingJob{}, fmt.Errorf("failed to import %s: %s", path, strings.Join(res.Errors, "; "))
	}
	if width <= 0 {
		width = res.Width
	}
	if height <= 0 {
		height = res.Height
	}
	if width <= 0 || height <= 0 {
		return model.PackingJob{}, fmt.Errorf("%s defines no container size; pass --width and --height", path)
	}
	if len(res.Shapes) == 0 {
		return model.PackingJob{}, fmt.Errorf("no shapes found in %s", path)
	}
	return res.Job(width, height), nil
}

func saveOutputs(log logr.Logger, cfg model.AppConfig, opts options, job model.PackingJob, r *engine.Run, outputs map[string]model.PackingResult) error {
	dir := cfg.OutputDir
	if opts.allOutputs {
		for _, name := range sortedNames(outputs) {
			if err := project.SaveToDirectory(outputs[name], filepath.Join(dir, name), cfg.ResultsFile, cfg.SVGOutput); err != nil {
				return fmt.Errorf("failed to save output of worker %q: %w", name, err)
			}
		}
	}

	name, best, _ := engine.FindBestOutput(outputs)
	if !opts.allOutputs {
		if err := project.SaveToDirectory(best, dir, cfg.ResultsFile, cfg.SVGOutput); err != nil {
			return err
		}
	}

	if opts.pdf {
		if err := export.ExportPDF(filepath.Join(dir, "results.pdf"), name, best); err != nil {
			return fmt.Errorf("failed to export PDF: %w", err)
		}
	}
	if opts.labels {
		if err := export.ExportLabels(filepath.Join(dir, "labels.pdf"), best); err != nil {
			return fmt.Errorf("failed to export labels: %w", err)
		}
	}
	if opts.png {
		if _, err := export.ExportPNG(best, dir, project.DefaultSVGPrefix, export.DefaultPixelsPerUnit); err != nil {
			return fmt.Errorf("failed to export PNG: %w", err)
		}
	}
	if opts.gcode {
		settings := gcode.DefaultSettings()
		settings.ToolDiameter = opts.toolDiameter
		gen, err := gcode.New(settings)
		if err != nil {
			return err
		}
		for _, w := range gcode.FormatConflictWarnings(gcode.CheckClearance(best, settings), settings.ToolDiameter) {
			log.Info("Tool clearance warning", "detail", w)
		}
		if _, err := gen.Export(best, dir, project.DefaultSVGPrefix); err != nil {
			return fmt.Errorf("failed to export G-code: %w", err)
		}
		sums, err := gen.SummarizeAll(best)
		if err != nil {
			return fmt.Errorf("failed to check G-code: %w", err)
		}
		for i, sum := range sums {
			log.V(1).Info("G-code written", "sheet", i+1, "moves", sum.Moves,
				"cutLength", sum.CutLength, "rapidLength", sum.RapidLength, "minutes", sum.CutTimeMin)
		}
	}
	if opts.report {
		rows := r.Compare()
		if err := export.ExportReport(filepath.Join(dir, "report.xlsx"), job, rows); err != nil {
			return fmt.Errorf("failed to export report: %w", err)
		}
		if err := export.ExportScoreChart(filepath.Join(dir, "scores.html"), "Worker scores", rows); err != nil {
			return fmt.Errorf("failed to export chart: %w", err)
		}
	}
	return nil
}

func sortedNames(outputs map[string]model.PackingResult) []string {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

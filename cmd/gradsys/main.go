// Package main is the gradsys CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/gradsys/internal/cli"
	"github.com/hyperjump/gradsys/internal/client"
	"github.com/hyperjump/gradsys/internal/config"
	"github.com/hyperjump/gradsys/internal/courseindex"
	"github.com/hyperjump/gradsys/internal/export"
	"github.com/hyperjump/gradsys/internal/extract"
	"github.com/hyperjump/gradsys/internal/models"
	"github.com/hyperjump/gradsys/internal/parser"
	"github.com/hyperjump/gradsys/internal/pipeline"
	"github.com/hyperjump/gradsys/internal/registrar"
	"github.com/hyperjump/gradsys/internal/server"
	"github.com/hyperjump/gradsys/internal/storage"
	"github.com/hyperjump/gradsys/internal/validate"
	"github.com/hyperjump/gradsys/internal/watcher"
	"github.com/hyperjump/gradsys/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/gradsys/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefaults is loadConfig for client commands: when no config file exists at
// the default location, built-in defaults are used. An explicit path must load.
func loadConfigOrDefaults(path string) (*config.Config, error) {
	cfg, _, err := loadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if path != defaultConfigPath || !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := argsReorder(os.Args[2:])
	switch command {
	case "server":
		runServer(args)
	case "parse":
		runParse(args)
	case "upload":
		runUpload(args)
	case "list":
		runList(args)
	case "get":
		runGet(args)
	case "delete":
		runDelete(args)
	case "process":
		runProcess(args)
	case "eligible":
		runEligible(args)
	case "export":
		runExport(args)
	case "search":
		runSearch(args)
	case "stats":
		runStats(args)
	case "watch":
		runWatch(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("gradsys version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// argsReorder moves flags (and their values) that appear after positional arguments to
// the front so that flag.Parse sees them: "gradsys get <id> --output json" works the
// same as "gradsys get --output json <id>".
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (pipeline states, inbox events, etc.)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		exitf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	reg := components.Registrar
	exts := cfg.Watch.Extensions
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	inbox := watcher.New(
		cfg.Watch.Directories,
		exts,
		cfg.Watch.RecursiveOrDefault(),
		func(ctx context.Context, path string) {
			ingestFile(ctx, reg, path, exts, cfg.Watch.AutoProcess, logger)
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := inbox.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start inbox watcher", zap.Error(err))
	}
	go inbox.SyncExisting()

	srv := server.NewServer(reg, &cfg.Server, logger, inbox, resolvedConfigPath, cfg)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	inbox.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// ingestFile submits an inbox file for the student named by its file name.
func ingestFile(ctx context.Context, reg *registrar.Registrar, path string, exts []string, autoProcess bool, logger *zap.Logger) {
	student := watcher.StudentFromPath(path)
	t, created, err := reg.SubmitFile(ctx, path, student, exts)
	if err != nil {
		logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("inbox transcript ingested",
		zap.String("path", path),
		zap.String("transcript_id", t.ID),
		zap.String("student_user_id", student),
		zap.Bool("created", created),
		zap.Bool("valid", t.IsValidForProcessing))
	if !autoProcess || !created {
		return
	}
	processed, err := reg.Process(ctx, t.ID)
	if err != nil {
		logger.Warn("inbox process failed", zap.String("transcript_id", t.ID), zap.Error(err))
		return
	}
	logger.Debug("inbox transcript processed", zap.String("transcript_id", t.ID), zap.Bool("eligible", processed.Eligible))
}

func runParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	formatFlag := fs.String("format", "", "input format: csv, pdf or xlsx (default: from file extension)")
	outputFormat := fs.String("output", "text", "output format: text, json or compact")
	quiet := fs.Bool("quiet", false, "do not print extraction progress on stderr")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		exitf("Usage: gradsys parse [flags] <file>")
	}
	path := fs.Arg(0)
	output, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		exitf("%v", err)
	}
	format, err := inputFormat(*formatFlag, path)
	if err != nil {
		exitf("%v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		exitf("Failed to read %s: %v", path, err)
	}

	cfg, err := loadConfigOrDefaults(*configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		exitf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	p, err := buildPipeline(cfg, logger, cfg.Debug)
	if err != nil {
		exitf("Failed to build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	in := pipeline.Input{Content: content, Format: format}
	if !*quiet {
		in.OnProgress = cli.ProgressPrinter(os.Stderr, "extracting "+filepath.Base(path))
	}
	t, runErr := p.Run(ctx, in)
	if t != nil {
		if err := cli.WriteTranscript(os.Stdout, t, output); err != nil {
			exitf("Output failed: %v", err)
		}
	}
	if runErr != nil {
		exitf("Parse failed: %v", runErr)
	}
	if !t.IsValidForProcessing {
		os.Exit(2)
	}
}

func inputFormat(flagValue, path string) (extract.Format, error) {
	if flagValue != "" {
		return extract.ParseFormat(flagValue)
	}
	return extract.FormatFromFilename(path)
}

// serviceFlags are shared by the commands that reach stored transcripts.
type serviceFlags struct {
	configPath *string
	serverURL  *string
	local      *bool
	output     *string
}

func addServiceFlags(fs *flag.FlagSet) *serviceFlags {
	return &serviceFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		serverURL:  fs.String("server", "", "server URL (default: client.server_url from config)"),
		local:      fs.Bool("local", false, "use the database directly instead of the server (server must not be running)"),
		output:     fs.String("output", "text", "output format: text, json or compact"),
	}
}

// openService returns the client the flags select and a func that releases it.
func (f *serviceFlags) openService() (client.Service, func()) {
	cfg, err := loadConfigOrDefaults(*f.configPath)
	if err != nil {
		exitf("Failed to load config: %v", err)
	}
	if *f.local {
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			exitf("Failed to create logger: %v", err)
		}
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			exitf("Failed to initialize: %v", err)
		}
		return client.NewLocalClient(components.Registrar), func() {
			components.Close()
			_ = logger.Sync()
		}
	}
	clientCfg := cfg.Client
	if *f.serverURL != "" {
		clientCfg.Mode = config.ClientModeLive
		clientCfg.ServerURL = *f.serverURL
	}
	svc, err := client.New(clientCfg)
	if err != nil {
		exitf("Failed to create client: %v", err)
	}
	return svc, func() {}
}

func (f *serviceFlags) outputFormat() cli.OutputFormat {
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		exitf("%v", err)
	}
	return format
}

func runUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	sf := addServiceFlags(fs)
	student := fs.String("student", "", "student user id (default: file name without extension)")
	process := fs.Bool("process", false, "evaluate graduation eligibility after storing")
	bulk := fs.Bool("bulk", false, "file holds several students, grouped by its student column")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		exitf("Usage: gradsys upload [flags] <file>")
	}
	output := sf.outputFormat()
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		exitf("Failed to read %s: %v", path, err)
	}

	svc, closeSvc := sf.openService()
	defer closeSvc()
	ctx := context.Background()
	if *bulk {
		uploadBulk(ctx, svc, path, *student, content, *process, output)
		return
	}
	studentID := *student
	if studentID == "" {
		studentID = watcher.StudentFromPath(path)
	}
	t, created, err := svc.UploadTranscript(ctx, filepath.Base(path), studentID, content)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Transcript != nil {
			_ = cli.WriteTranscript(os.Stdout, apiErr.Transcript, output)
		}
		exitf("Upload failed: %v", err)
	}
	if *process {
		if t, err = svc.ProcessTranscript(ctx, t.ID); err != nil {
			exitf("Process failed: %v", err)
		}
	}
	if !created && output == cli.OutputText {
		fmt.Println("Transcript already stored; returning the existing record.")
	}
	if err := cli.WriteTranscript(os.Stdout, t, output); err != nil {
		exitf("Output failed: %v", err)
	}
}

func uploadBulk(ctx context.Context, svc client.Service, path, studentID string, content []byte, process bool, output cli.OutputFormat) {
	bu, ok := svc.(client.BulkUploader)
	if !ok {
		exitf("Bulk upload is not available in fixture mode")
	}
	stored, err := bu.UploadBulk(ctx, filepath.Base(path), studentID, content)
	if err != nil {
		exitf("Upload failed: %v", err)
	}
	list := make([]*models.TranscriptData, 0, len(stored))
	for _, sub := range stored {
		t := sub.Transcript
		if process {
			if t, err = svc.ProcessTranscript(ctx, t.ID); err != nil {
				exitf("Process failed: %v", err)
			}
		}
		list = append(list, t)
	}
	writeList(list, output)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	sf := addServiceFlags(fs)
	student := fs.String("student", "", "only transcripts of this student")
	eligible := fs.Bool("eligible", false, "only eligible transcripts")
	offset := fs.Int("offset", 0, "number of transcripts to skip")
	limit := fs.Int("limit", 50, "maximum number of transcripts")
	_ = fs.Parse(args)

	output := sf.outputFormat()
	svc, closeSvc := sf.openService()
	defer closeSvc()
	list, err := svc.ListTranscripts(context.Background(), client.ListOptions{
		StudentUserID: *student,
		EligibleOnly:  *eligible,
		Offset:        *offset,
		Limit:         *limit,
	})
	if err != nil {
		exitf("List failed: %v", err)
	}
	writeList(list, output)
}

func runGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	sf := addServiceFlags(fs)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		exitf("Usage: gradsys get [flags] <transcript-id>")
	}
	output := sf.outputFormat()
	svc, closeSvc := sf.openService()
	defer closeSvc()
	t, err := svc.GetTranscript(context.Background(), fs.Arg(0))
	if err != nil {
		exitf("Get failed: %v", describe(err))
	}
	if err := cli.WriteTranscript(os.Stdout, t, output); err != nil {
		exitf("Output failed: %v", err)
	}
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	sf := addServiceFlags(fs)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		exitf("Usage: gradsys delete [flags] <transcript-id>")
	}
	svc, closeSvc := sf.openService()
	defer closeSvc()
	id := fs.Arg(0)
	if err := svc.DeleteTranscript(context.Background(), id); err != nil {
		exitf("Deletion failed: %v", describe(err))
	}
	fmt.Printf("Transcript deleted: %s\n", id)
}

func runProcess(args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	sf := addServiceFlags(fs)
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		exitf("Usage: gradsys process [flags] <transcript-id>")
	}
	output := sf.outputFormat()
	svc, closeSvc := sf.openService()
	defer closeSvc()
	t, err := svc.ProcessTranscript(context.Background(), fs.Arg(0))
	if err != nil {
		exitf("Process failed: %v", describe(err))
	}
	if err := cli.WriteTranscript(os.Stdout, t, output); err != nil {
		exitf("Output failed: %v", err)
	}
}

func runEligible(args []string) {
	fs := flag.NewFlagSet("eligible", flag.ExitOnError)
	sf := addServiceFlags(fs)
	offset := fs.Int("offset", 0, "number of graduates to skip")
	limit := fs.Int("limit", 50, "maximum number of graduates")
	_ = fs.Parse(args)

	output := sf.outputFormat()
	svc, closeSvc := sf.openService()
	defer closeSvc()
	list, err := svc.EligibleGraduates(context.Background(), *offset, *limit)
	if err != nil {
		exitf("Eligible failed: %v", err)
	}
	writeList(list, output)
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	sf := addServiceFlags(fs)
	formatFlag := fs.String("format", "csv", "export format: csv, xlsx or pdf")
	outPath := fs.String("out", "", "output file (default: graduates-YYYYMMDD.<format>; - for stdout)")
	_ = fs.Parse(args)

	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		exitf("%v", err)
	}
	path := *outPath
	if path == "" {
		path = format.Filename(time.Now())
	}
	svc, closeSvc := sf.openService()
	defer closeSvc()

	if path == "-" {
		if err := svc.ExportGraduates(context.Background(), format, os.Stdout); err != nil {
			exitf("Export failed: %v", err)
		}
		return
	}
	f, err := os.Create(path)
	if err != nil {
		exitf("Failed to create %s: %v", path, err)
	}
	if err := svc.ExportGraduates(context.Background(), format, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		exitf("Export failed: %v", err)
	}
	if err := f.Close(); err != nil {
		exitf("Failed to write %s: %v", path, err)
	}
	fmt.Printf("Exported eligible graduates to %s\n", path)
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	sf := addServiceFlags(fs)
	name := fs.String("name", "", "match words of the course name")
	fuzzy := fs.Bool("fuzzy", false, "tolerate typos in --name")
	limit := fs.Int("limit", 20, "maximum number of transcripts")
	_ = fs.Parse(args)

	q := courseindex.Query{Course: strings.TrimSpace(strings.Join(fs.Args(), " ")), Name: *name, Fuzzy: *fuzzy}
	if q.Empty() {
		exitf("Usage: gradsys search [flags] <course-code>  (or --name <words>)")
	}
	output := sf.outputFormat()
	svc, closeSvc := sf.openService()
	defer closeSvc()
	list, err := svc.SearchCourses(context.Background(), q, *limit)
	if err != nil {
		exitf("Search failed: %v", err)
	}
	writeList(list, output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	sf := addServiceFlags(fs)
	_ = fs.Parse(args)

	output := sf.outputFormat()
	svc, closeSvc := sf.openService()
	defer closeSvc()
	st, err := svc.Stats(context.Background())
	if err != nil {
		exitf("Stats failed: %v", err)
	}
	if err := cli.WriteStats(os.Stdout, st, output); err != nil {
		exitf("Output failed: %v", err)
	}
}

func runWatch(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gradsys watch <add|remove|list> [path]")
		fmt.Println("  gradsys watch add <path>     Add inbox directory")
		fmt.Println("  gradsys watch remove <path>  Remove inbox directory")
		fmt.Println("  gradsys watch list           List inbox directories")
		os.Exit(1)
	}
	sub := args[0]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	syncExisting := fs.Bool("sync", true, "ingest files already in an added directory")
	_ = fs.Parse(argsReorder(args[1:]))

	c := client.NewHTTPClient(*serverURL, 30*time.Second)
	ctx := context.Background()
	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			exitf("Usage: gradsys watch %s <path>", sub)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if sub == "add" {
			if err := c.AddWatchDirectory(ctx, path, *syncExisting); err != nil {
				exitf("Add failed: %v", err)
			}
			fmt.Printf("Added: %s\n", path)
			return
		}
		if err := c.RemoveWatchDirectory(ctx, path); err != nil {
			exitf("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := c.WatchDirectories(ctx)
		if err != nil {
			exitf("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		exitf("Unknown watch subcommand: %s", sub)
	}
}

func writeList(list []*models.TranscriptData, output cli.OutputFormat) {
	if err := cli.WriteTranscripts(os.Stdout, list, output); err != nil {
		exitf("Output failed: %v", err)
	}
}

// describe turns not-found errors into a short message.
func describe(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errors.New("transcript not found")
	}
	return err
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	CourseIndex courseindex.Index
	Pipeline    *pipeline.Pipeline
	Registrar   *registrar.Registrar
}

func (c *Components) Close() {
	if c.CourseIndex != nil {
		_ = c.CourseIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// buildPipeline assembles the extractor, parser and validator from cfg.
func buildPipeline(cfg *config.Config, logger *zap.Logger, debug bool) (*pipeline.Pipeline, error) {
	scale, err := cfg.Grading.BuildScale()
	if err != nil {
		return nil, fmt.Errorf("grading scale: %w", err)
	}
	bounds, err := cfg.Grading.BuildBounds()
	if err != nil {
		return nil, fmt.Errorf("credit bounds: %w", err)
	}
	schema, err := cfg.Schema.BuildSchema()
	if err != nil {
		return nil, err
	}
	exOpts := []extract.ExtractorOption{extract.WithLayout(cfg.PDF)}
	pOpts := []pipeline.Option{}
	if debug && logger != nil {
		exOpts = append(exOpts, extract.WithLogger(logger))
		pOpts = append(pOpts, pipeline.WithLogger(logger))
	}
	return pipeline.New(
		extract.NewExtractor(exOpts...),
		parser.New(schema, scale),
		validate.New(bounds),
		scale,
		pOpts...,
	), nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	p, err := buildPipeline(cfg, logger, debug)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	index, err := courseindex.NewBleveIndex(cfg.Storage.IndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize course index: %w", err)
	}

	regOpts := []registrar.Option{registrar.WithDiskPaths(cfg.Storage.DatabasePath, cfg.Storage.IndexPath)}
	if debug && logger != nil {
		regOpts = append(regOpts, registrar.WithLogger(logger))
	}
	reg := registrar.New(p, store, index, cfg.Grading.Policy(), regOpts...)

	n, err := reg.Reindex(context.Background())
	if err != nil {
		_ = index.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to rebuild course index: %w", err)
	}
	if n > 0 && logger != nil {
		logger.Info("course index rebuilt", zap.Int("transcripts", n))
	}

	return &Components{
		Storage:     store,
		CourseIndex: index,
		Pipeline:    p,
		Registrar:   reg,
	}, nil
}

func printUsage() {
	fmt.Println(`gradsys - Transcript ingestion and graduation eligibility

Usage:
  gradsys server [flags]              Start the HTTP server and inbox watcher
  gradsys parse [flags] <file>        Parse a transcript locally without storing it
  gradsys upload [flags] <file>       Parse and store a transcript
  gradsys list [flags]                List stored transcripts
  gradsys get [flags] <id>            Show a stored transcript
  gradsys delete [flags] <id>         Delete a stored transcript
  gradsys process [flags] <id>        Evaluate graduation eligibility
  gradsys eligible [flags]            List eligible graduates, best GPA first
  gradsys export [flags]              Export eligible graduates to CSV, XLSX or PDF
  gradsys search [flags] <course>     Find transcripts containing a course
  gradsys stats [flags]               Show transcript counts and disk usage
  gradsys watch <add|remove|list>     Manage inbox directories
  gradsys version                     Show version
  gradsys help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/gradsys/config.yaml)
  --debug            Enable debug logging

Parse Flags:
  --config string    Config file path (grading scale, schema, PDF layout)
  --format string    Input format: csv, pdf or xlsx (default: from extension)
  --output string    Output format: text, json or compact (default: text)
  --quiet            Do not print progress on stderr
  Exit status is 2 when the transcript is parsed but not valid for processing.

Client Flags (upload, list, get, delete, process, eligible, export, search, stats):
  --config string    Config file path (client.mode, client.server_url)
  --server string    Server URL (overrides client.server_url)
  --local            Open the database directly (the server must not be running)
  --output string    Output format: text, json or compact (default: text)

Examples:
  gradsys server
  gradsys parse transcript.pdf
  gradsys parse --output json grades.xlsx
  gradsys upload --student s-1042 transcript.csv
  gradsys upload --process s-1042.csv
  gradsys upload --bulk class-2026.csv
  gradsys list --student s-1042
  gradsys eligible --output json
  gradsys export --format xlsx --out graduates.xlsx
  gradsys search "CS 101"
  gradsys search --name "linear algebra" --fuzzy
  gradsys stats --local
  gradsys watch add ./inbox`)
}

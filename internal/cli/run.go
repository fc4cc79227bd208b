package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/show-scraper/internal/browser"
	"github.com/pfrederiksen/show-scraper/internal/config"
	"github.com/pfrederiksen/show-scraper/internal/logger"
	"github.com/pfrederiksen/show-scraper/internal/metrics"
	"github.com/pfrederiksen/show-scraper/internal/publish"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/sources"
	"github.com/pfrederiksen/show-scraper/internal/storage"
	"github.com/pfrederiksen/show-scraper/internal/tracing"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

type runFlags struct {
	browser     string
	headless    bool
	workers     int
	limit       int
	ruleTimeout time.Duration
	persist     string
	outputDir   string
	blobURL     string
	databaseURL string
	failFast    bool
	printEvents bool
	metricsFile string
	trace       bool
}

func newRunCmd(opts *options) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [venue...]",
		Short: "Scrape venues and publish the result",
		Long: `Runs the extraction rule of every named venue, or of every enabled venue
when none is named, and publishes the result per the persist mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.settings()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, &s); err != nil {
				return err
			}
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			return runScrape(cmd.Context(), s, args, format, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.browser, "browser", "", "Session backend: chrome or static")
	f.BoolVar(&flags.headless, "headless", true, "Run Chrome headless")
	f.IntVar(&flags.workers, "workers", 0, "Number of parallel browser sessions")
	f.IntVar(&flags.limit, "limit", 0, "Events limit for every rule")
	f.DurationVar(&flags.ruleTimeout, "rule-timeout", 0, "Timeout of a single rule")
	f.StringVar(&flags.persist, "persist", "", "Persist mode: static, sql or none")
	f.StringVar(&flags.outputDir, "output-dir", "", "Directory for static files")
	f.StringVar(&flags.blobURL, "blob-url", "", "Bucket URL for static files, instead of a directory")
	f.StringVar(&flags.databaseURL, "database-url", "", "SQLite path or libsql:// URL for persist mode sql")
	f.BoolVar(&flags.failFast, "fail-fast", false, "Abort the run on the first rule failure")
	f.BoolVar(&flags.printEvents, "print-events", false, "Print every event as it is scraped")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	f.BoolVar(&flags.trace, "trace", false, "Export trace spans to stderr")
	return cmd
}

// apply overrides s with the flags the user set.
func (f *runFlags) apply(cmd *cobra.Command, s *config.Settings) error {
	changed := cmd.Flags().Changed
	if changed("browser") {
		s.Browser = config.Backend(f.browser)
	}
	if changed("headless") {
		s.Headless = f.headless
	}
	if changed("workers") {
		s.Workers = f.workers
	}
	if changed("limit") {
		limit := f.limit
		s.EventsLimit = &limit
	}
	if changed("rule-timeout") {
		s.RuleTimeout = config.Duration{Duration: f.ruleTimeout}
	}
	if changed("persist") {
		mode, err := config.ParsePersistMode(f.persist)
		if err != nil {
			return err
		}
		s.PersistMode = mode
	}
	if changed("output-dir") {
		s.OutputDir = f.outputDir
	}
	if changed("blob-url") {
		s.BlobURL = f.blobURL
	}
	if changed("database-url") {
		s.DatabaseURL = f.databaseURL
	}
	if changed("fail-fast") {
		s.RescueErrors = !f.failFast
	}
	if changed("print-events") {
		s.PrintPreview = f.printEvents
	}
	if changed("metrics-file") {
		s.MetricsFile = f.metricsFile
	}
	if changed("trace") {
		s.Trace = f.trace
	}
	return s.Validate()
}

func runScrape(parent context.Context, s config.Settings, names []string, format OutputFormat, stdout, stderr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := setupLogging(s, stderr); err != nil {
		return err
	}

	tp, err := tracing.Setup(s.Trace, stderr, Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Flushing traces failed", logger.Fields{"error": err.Error()})
		}
	}()

	m := metrics.New()

	venues, err := loadVenues(s.VenuesFile)
	if err != nil {
		return err
	}
	registry, err := sources.Registry(venues)
	if err != nil {
		return fmt.Errorf("building rules: %w", err)
	}

	publisher, sink, closePublisher, err := buildPublisher(ctx, s, m)
	if err != nil {
		return err
	}
	defer closePublisher()

	policy := scraper.Rescue
	if !s.RescueErrors {
		policy = scraper.FailFast
	}

	progress := newProgress(stderr)
	runnerOpts := []scraper.Option{
		scraper.WithPolicy(policy),
		scraper.WithWorkers(s.Workers),
		scraper.WithRuleTimeout(s.RuleTimeout.Duration),
		scraper.WithMetrics(m),
		scraper.WithProgress(progress.Update),
	}
	if s.EventsLimit != nil {
		runnerOpts = append(runnerOpts, scraper.WithLimit(*s.EventsLimit))
	}
	if s.PrintPreview {
		runnerOpts = append(runnerOpts, scraper.WithPreview(stderr))
	}
	if sink != nil {
		runnerOpts = append(runnerOpts, scraper.WithEventSink(sink))
	}

	runner := scraper.NewRunner(registry, sessionFactory(s, m), runnerOpts...)

	progress.Start()
	result, runErr := runner.Run(ctx, names)
	progress.Stop()

	if result == nil {
		return runErr
	}

	switch {
	case ctx.Err() != nil && parent.Err() == nil:
		// Interrupted by a signal; keep the previous publication.
		writeMetrics(s, m)
		return &exitError{code: exitInterrupted, err: errors.New("interrupted")}
	case runErr != nil:
		writeMetrics(s, m)
		return fmt.Errorf("run aborted: %w", runErr)
	}

	if err := publisher.Publish(ctx, result); err != nil {
		return err
	}
	writeMetrics(s, m)

	return WriteOutput(stdout, NewRunSummary(result), format)
}

// sessionFactory opens one Session per worker.
func sessionFactory(s config.Settings, m *metrics.Metrics) browser.Factory {
	return func(ctx context.Context) (browser.Session, error) {
		switch s.Browser {
		case config.BackendStatic:
			return browser.NewStatic(browser.StaticOptions{
				UserAgent:   s.UserAgent,
				MinInterval: s.MinNavInterval.Duration,
				Metrics:     m,
			}), nil
		default:
			return browser.NewChrome(ctx, browser.ChromeOptions{
				Headless:    s.Headless,
				UserAgent:   s.UserAgent,
				MinInterval: s.MinNavInterval.Duration,
				Metrics:     m,
			})
		}
	}
}

// buildPublisher returns the publisher for the persist mode, the event sink
// to stream into when the mode stores incrementally, and a cleanup func.
func buildPublisher(ctx context.Context, s config.Settings, m *metrics.Metrics) (publish.Publisher, scraper.EventSink, func(), error) {
	nop := func() {}

	switch s.PersistMode {
	case config.PersistStatic:
		var sink publish.Sink
		if s.BlobURL != "" {
			sink = publish.NewHTTPSink(s.BlobURL, s.BlobToken)
		} else {
			dir, err := publish.NewDirSink(s.OutputDir)
			if err != nil {
				return nil, nil, nop, err
			}
			sink = dir
		}
		opts := publish.DefaultStaticOptions()
		opts.Metrics = m
		return publish.NewStatic(sink, opts), nil, nop, nil

	case config.PersistSQL:
		db, err := storage.Open(s.DatabaseURL, s.DatabaseToken)
		if err != nil {
			return nil, nil, nop, err
		}
		if err := storage.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, nop, err
		}
		incremental := publish.NewIncremental(storage.NewStore(db), m)
		return incremental, incremental, func() { db.Close() }, nil
	}

	return publish.Nop{}, nil, nop, nil
}

func writeMetrics(s config.Settings, m *metrics.Metrics) {
	if s.MetricsFile == "" {
		return
	}
	if err := m.WriteTextfile(s.MetricsFile); err != nil {
		logger.Warn("Writing metrics failed", logger.Fields{"error": err.Error()})
	}
}

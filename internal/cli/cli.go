package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/show-scraper/internal/config"
	"github.com/pfrederiksen/show-scraper/internal/logger"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version is stamped at build time.
var Version = "dev"

// options holds the flags shared by every command.
type options struct {
	configFile string
	logLevel   string
	logFormat  string
	verbose    bool
	venuesFile string
	format     string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "show-scraper",
		Short: "Scrape Bay Area concert listings",
		Long: `Scrapes concert listings from Bay Area venue websites, normalizes them
and publishes them as JSON and iCalendar files or into a SQL database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: show-scraper.json5 searched upward)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text, logfmt or json")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flags.StringVar(&opts.venuesFile, "venues-file", "", "Venue registry YAML (default: embedded list)")
	flags.StringVar(&opts.format, "format", "text", "Output format: text or json")

	cmd.AddCommand(
		newRunCmd(opts),
		newSourcesCmd(opts),
		newServeCmd(opts),
		newDiffCmd(opts),
	)
	return cmd
}

// settings loads config and applies the shared flags over it.
func (o *options) settings() (config.Settings, error) {
	s, err := config.Load(o.configFile, os.Getenv)
	if err != nil {
		return s, fmt.Errorf("loading config: %w", err)
	}
	if o.logLevel != "" {
		s.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		s.LogFormat = o.logFormat
	}
	if o.verbose {
		s.LogLevel = string(logger.LevelDebug)
		s.Debug = true
	}
	if o.venuesFile != "" {
		s.VenuesFile = o.venuesFile
	}
	return s, nil
}

func (o *options) outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(o.format))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", o.format)
	}
	return format, nil
}

// setupLogging installs the default logger for s.
func setupLogging(s config.Settings, w io.Writer) error {
	level, err := logger.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.NewWithFormat(level, w, logger.Format(strings.ToLower(s.LogFormat))))
	return nil
}

func loadVenues(path string) (*venue.Registry, error) {
	if path == "" {
		return venue.Default()
	}
	venues, err := venue.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading venues: %w", err)
	}
	return venues, nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
	os.Exit(ExitSuccess)
}

// exitError carries a specific exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitError
}

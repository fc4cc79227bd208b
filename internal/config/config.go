package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
)

// DefaultFile is the config file name looked up from the working directory.
const DefaultFile = "show-scraper.json5"

// PersistMode selects how a run's results are published.
type PersistMode string

const (
	PersistStatic PersistMode = "static"
	PersistSQL    PersistMode = "sql"
	PersistNone   PersistMode = "none"
)

// ParsePersistMode validates a persist mode name.
func ParsePersistMode(s string) (PersistMode, error) {
	switch m := PersistMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PersistStatic, PersistSQL, PersistNone:
		return m, nil
	case "":
		return PersistNone, nil
	}
	return "", fmt.Errorf("unknown persist mode %q (want static, sql or none)", s)
}

// Backend selects the Session Handle implementation.
type Backend string

const (
	BackendChrome Backend = "chrome"
	BackendStatic Backend = "static"
)

// Duration is a time.Duration that decodes from strings like "90s".
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts a Go duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parsing duration %q: %w", s, err)
		}
		d.Duration = parsed
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %s", string(b))
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

// Settings holds every knob of a scraper run.
type Settings struct {
	Browser        Backend     `json:"browser"`
	Headless       bool        `json:"headless"`
	UserAgent      string      `json:"userAgent"`
	MinNavInterval Duration    `json:"minNavInterval"`
	RescueErrors   bool        `json:"rescueErrors"`
	Debug          bool        `json:"debug"`
	EventsLimit    *int        `json:"eventsLimit"`
	PrintPreview   bool        `json:"printPreview"`
	PersistMode    PersistMode `json:"persistMode"`
	OutputDir      string      `json:"outputDir"`
	BlobURL        string      `json:"blobUrl"`
	BlobToken      string      `json:"blobToken"`
	DatabaseURL    string      `json:"databaseUrl"`
	DatabaseToken  string      `json:"databaseToken"`
	Workers        int         `json:"workers"`
	RuleTimeout    Duration    `json:"ruleTimeout"`
	VenuesFile     string      `json:"venuesFile"`
	MetricsFile    string      `json:"metricsFile"`
	Trace          bool        `json:"trace"`
	LogLevel       string      `json:"logLevel"`
	LogFormat      string      `json:"logFormat"`
	ListenAddr     string      `json:"listenAddr"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		Browser:        BackendChrome,
		Headless:       true,
		UserAgent:      "Mozilla/5.0 (compatible; show-scraper/1.0; +https://github.com/pfrederiksen/show-scraper)",
		MinNavInterval: Duration{500 * time.Millisecond},
		RescueErrors:   true,
		PersistMode:    PersistStatic,
		OutputDir:      "data",
		Workers:        1,
		RuleTimeout:    Duration{3 * time.Minute},
		LogLevel:       "info",
		LogFormat:      "text",
		ListenAddr:     ":4567",
	}
}

// Load builds Settings from defaults, the json5 file at path (searched
// upward from the working directory when path is empty) and the
// environment read through getenv.
func Load(path string, getenv func(string) string) (Settings, error) {
	s := Defaults()

	var (
		fromFile Settings
		err      error
	)
	if path == "" {
		fromFile, err = ReadRecursively[Settings](DefaultFile)
	} else {
		fromFile, err = ReadConfig[Settings](path)
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		if path != "" {
			return s, fmt.Errorf("config file %s not found", path)
		}
	case err != nil:
		return s, err
	default:
		if err := mergo.Merge(&s, fromFile, mergo.WithOverride); err != nil {
			return s, fmt.Errorf("merging config file: %w", err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(&s, getenv); err != nil {
		return s, err
	}
	return s, s.Validate()
}

// Validate checks cross-field constraints.
func (s Settings) Validate() error {
	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	if s.EventsLimit != nil && *s.EventsLimit < 0 {
		return fmt.Errorf("events limit must not be negative, got %d", *s.EventsLimit)
	}
	switch s.Browser {
	case BackendChrome, BackendStatic:
	default:
		return fmt.Errorf("unknown browser backend %q", s.Browser)
	}
	if _, err := ParsePersistMode(string(s.PersistMode)); err != nil {
		return err
	}
	if s.PersistMode == PersistSQL && s.DatabaseURL == "" {
		return errors.New("persist mode sql requires a database url")
	}
	return nil
}

func applyEnv(s *Settings, getenv func(string) string) error {
	var errs []error

	boolVar := func(name string, dst *bool) {
		v := getenv(name)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = b
	}
	stringVar := func(name string, dst *string) {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	durationVar := func(name string, dst *Duration) {
		v := getenv(name)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		dst.Duration = d
	}

	boolVar("HEADLESS", &s.Headless)
	boolVar("RESCUE_SCRAPING_ERRORS", &s.RescueErrors)
	boolVar("DEBUGGER", &s.Debug)
	boolVar("PRINT_EVENTS", &s.PrintPreview)
	boolVar("TRACE", &s.Trace)
	stringVar("OUTPUT_DIR", &s.OutputDir)
	stringVar("BLOB_URL", &s.BlobURL)
	stringVar("BLOB_TOKEN", &s.BlobToken)
	stringVar("DATABASE_URL", &s.DatabaseURL)
	stringVar("DATABASE_AUTH_TOKEN", &s.DatabaseToken)
	stringVar("VENUES_FILE", &s.VenuesFile)
	stringVar("METRICS_FILE", &s.MetricsFile)
	stringVar("LOG_LEVEL", &s.LogLevel)
	stringVar("LOG_FORMAT", &s.LogFormat)
	durationVar("RULE_TIMEOUT", &s.RuleTimeout)

	if v := getenv("EVENTS_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("EVENTS_LIMIT: %w", err))
		} else {
			s.EventsLimit = &n
		}
	}
	if v := getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WORKERS: %w", err))
		} else {
			s.Workers = n
		}
	}
	if v := getenv("PERSIST_MODE"); v != "" {
		m, err := ParsePersistMode(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PERSIST_MODE: %w", err))
		} else {
			s.PersistMode = m
		}
	}
	if v := getenv("BROWSER"); v != "" {
		s.Browser = Backend(strings.ToLower(v))
	}
	if s.Debug {
		s.LogLevel = "debug"
	}

	return errors.Join(errs...)
}

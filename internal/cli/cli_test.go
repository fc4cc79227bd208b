package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/scraper"
	"github.com/pfrederiksen/show-scraper/internal/storage"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// isolate keeps the environment and any config file out of the test.
func isolate(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"HEADLESS", "RESCUE_SCRAPING_ERRORS", "DEBUGGER", "EVENTS_LIMIT", "PRINT_EVENTS",
		"PERSIST_MODE", "OUTPUT_DIR", "BLOB_URL", "BLOB_TOKEN", "DATABASE_URL",
		"DATABASE_AUTH_TOKEN", "WORKERS", "RULE_TIMEOUT", "BROWSER", "METRICS_FILE", "TRACE",
		"VENUES_FILE", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(name, "")
	}
	t.Chdir(t.TempDir())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func writeVenues(t *testing.T, mainURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "venues.yaml")
	yaml := `venues:
  - name: BottomOfTheHill
    common_name: Bottom of the Hill
    region: San Francisco
    website: http://www.bottomofthehill.com
    default_image: default.png
    latlng: "37.7650,-122.3962"
    settings:
      main_url: ` + mainURL + `
  - name: ManuallyAdded
    common_name: Manually Added
    region: Other
    aggregator: true
    settings: {}
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	page, err := os.ReadFile("../sources/testdata/bottomofthehill.html")
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunStaticEndToEnd(t *testing.T) {
	// Resolve the fixture before isolate changes the working directory.
	srv := fixtureServer(t)
	isolate(t)

	venuesFile := writeVenues(t, srv.URL+"/calendar.html")
	outDir := filepath.Join(t.TempDir(), "data")

	out, err := execute(t, "run",
		"--venues-file", venuesFile,
		"--browser", "static",
		"--persist", "static",
		"--output-dir", outDir,
		"--format", "json",
	)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}

	var summary RunSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, out)
	}
	if summary.EventCount != 2 || len(summary.Venues) != 2 {
		t.Errorf("summary = %+v", summary)
	}

	for _, name := range []string{"latest.json", "sources.json", "calendar.ics", "BottomOfTheHill.json", "ManuallyAdded.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "latest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var latest event.Listing
	if err := json.Unmarshal(data, &latest); err != nil {
		t.Fatal(err)
	}
	if got := latest["BottomOfTheHill"]; len(got) != 2 || got[0].Date != event.NewDay(2026, time.March, 13) {
		t.Errorf("latest BottomOfTheHill = %+v", got)
	}
	if got, ok := latest["ManuallyAdded"]; !ok || len(got) != 0 {
		t.Errorf("latest ManuallyAdded = %+v, %v", got, ok)
	}
}

func TestRunSQLIsIdempotent(t *testing.T) {
	srv := fixtureServer(t)
	isolate(t)

	venuesFile := writeVenues(t, srv.URL+"/calendar.html")
	dbPath := filepath.Join(t.TempDir(), "shows.db")

	for i := 0; i < 2; i++ {
		if _, err := execute(t, "run", "BottomOfTheHill",
			"--venues-file", venuesFile,
			"--browser", "static",
			"--persist", "sql",
			"--database-url", dbPath,
		); err != nil {
			t.Fatalf("run %d error = %v", i, err)
		}
	}

	db, err := storage.Open(dbPath, "")
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewStore(db)
	defer store.Close()
	n, err := store.CountEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("stored %d events after two runs, want 2", n)
	}
}

func TestRunUnknownVenue(t *testing.T) {
	isolate(t)
	_, err := execute(t, "run", "Nowhere", "--browser", "static", "--persist", "none")
	if !errors.Is(err, scraper.ErrUnknownRule) {
		t.Errorf("err = %v, want ErrUnknownRule", err)
	}
	if exitCode(err) != ExitError {
		t.Errorf("exit code = %d", exitCode(err))
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	isolate(t)
	tests := [][]string{
		{"run", "--persist", "bucket"},
		{"run", "--workers", "0"},
		{"run", "--persist", "sql"},
		{"run", "--format", "yaml"},
	}
	for _, args := range tests {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestSourcesCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "sources")
	if err != nil {
		t.Fatalf("sources error = %v", err)
	}
	for _, want := range []string{"BottomOfTheHill", "Bottom of the Hill", "TheList *", "venues"} {
		if !strings.Contains(out, want) {
			t.Errorf("sources table missing %q", want)
		}
	}

	out, err = execute(t, "sources", "--format", "json")
	if err != nil {
		t.Fatalf("sources error = %v", err)
	}
	var list []venue.Venue
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("sources json: %v", err)
	}
	registry, err := venue.Default()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != len(registry.Enabled()) {
		t.Errorf("got %d venues, want %d", len(list), len(registry.Enabled()))
	}
}

func TestDiffCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	oldFile := write("old.json", `{"Fox":[{"date":"2025-03-01","title":"Gone"},{"date":"2025-03-02","title":"Stays"}]}`)
	newFile := write("new.json", `{"Fox":[{"date":"2025-03-02","title":"Stays"},{"date":"2025-03-09","title":"Fresh"}]}`)

	out, err := execute(t, "diff", oldFile, newFile, "--format", "json")
	if err != nil {
		t.Fatalf("diff error = %v", err)
	}
	var diff DiffOutput
	if err := json.Unmarshal([]byte(out), &diff); err != nil {
		t.Fatal(err)
	}
	if len(diff.Added) != 1 || diff.Added[0].Title != "Fresh" {
		t.Errorf("added = %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].Title != "Gone" {
		t.Errorf("removed = %+v", diff.Removed)
	}

	out, err = execute(t, "diff", oldFile, newFile)
	if err != nil {
		t.Fatalf("diff error = %v", err)
	}
	if !strings.Contains(out, "+ Fox") || !strings.Contains(out, "1 added, 1 removed") {
		t.Errorf("text diff:\n%s", out)
	}

	if _, err := execute(t, "diff", oldFile); err == nil {
		t.Error("diff with one file should fail")
	}
}

func TestSortEvents(t *testing.T) {
	events := []event.Event{
		{Date: event.NewDay(2025, time.March, 2), Title: "b", Source: venue.Venue{Name: "A"}},
		{Date: event.NewDay(2025, time.March, 1), Title: "C", Source: venue.Venue{Name: "B"}},
		{Date: event.NewDay(0, time.April, 1), Title: "a", Source: venue.Venue{Name: "B"}},
		{Date: event.NewDay(0, time.February, 1), Title: "e", Source: venue.Venue{Name: "C"}},
	}
	// Year-less Apr 1 falls later this year, Feb 1 already passed.
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		order SortOrder
		want  string
	}{
		{SortByDate, "C,b,a,e"},
		{SortByVenue, "b,C,a,e"},
		{SortByTitle, "a,b,C,e"},
	}
	for _, tt := range tests {
		sorted := append([]event.Event(nil), events...)
		sortEvents(sorted, tt.order, now)
		var got []string
		for _, e := range sorted {
			got = append(got, e.Title)
		}
		if strings.Join(got, ",") != tt.want {
			t.Errorf("sort by %s = %v, want %s", tt.order, got, tt.want)
		}
	}

	if _, err := ParseSortOrder("state"); err == nil {
		t.Error("ParseSortOrder accepted an unknown order")
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(&exitError{code: exitInterrupted, err: errors.New("interrupted")}); got != exitInterrupted {
		t.Errorf("exitCode = %d", got)
	}
	if got := exitCode(errors.New("boom")); got != ExitError {
		t.Errorf("exitCode = %d", got)
	}
}

package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"

	"github.com/pfrederiksen/show-scraper/internal/scraper"
)

// progress shows a spinner with the last finished rule while a run is in
// flight. It stays silent unless w is a terminal.
type progress struct {
	mu      sync.Mutex
	spinner *spinner.Spinner
}

func newProgress(w io.Writer) *progress {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " scraping"
	return &progress{spinner: s}
}

func (p *progress) Start() {
	if p.spinner != nil {
		p.spinner.Start()
	}
}

func (p *progress) Stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}

// Update implements scraper.ProgressFunc.
func (p *progress) Update(done, total int, entry *scraper.Entry) {
	if p.spinner == nil {
		return
	}
	status := fmt.Sprintf("%d events", len(entry.Events))
	if entry.Err != nil {
		status = "failed"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spinner.Lock()
	p.spinner.Suffix = fmt.Sprintf(" [%d/%d] %s: %s", done, total, entry.Venue.Name, status)
	p.spinner.Unlock()
}

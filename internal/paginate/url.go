package paginate

import (
	"context"
	"net/url"
	"strings"

	"github.com/pfrederiksen/show-scraper/internal/browser"
)

// Absolute resolves ref against the session's current URL.
func Absolute(ctx context.Context, s browser.Session, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return ref, nil
	}
	current, err := s.CurrentURL(ctx)
	if err != nil || current == "" {
		return ref, err
	}
	return Resolve(current, ref), nil
}

// Resolve joins ref onto base; on any parse failure it returns ref.
func Resolve(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

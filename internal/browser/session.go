package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

)

// Session is a handle on one browser-like client. It is not safe for
// concurrent use; each worker owns its own session.
type Session interface {
	// Navigate loads url in the active tab.
	Navigate(ctx context.Context, url string) error
	// Query matches selector against the active document or frame.
	Query(ctx context.Context, selector string) (Elements, error)
	// Execute runs script in the page and decodes its result into out,
	// which may be nil.
	Execute(ctx context.Context, script string, out any) error

	OpenTab(ctx context.Context) error
	CloseTab(ctx context.Context) error
	ActiveTab() int
	SwitchTab(ctx context.Context, index int) error

	Resize(ctx context.Context, width, height int) error
	EnterFrame(ctx context.Context, selector string) error
	ExitFrame(ctx context.Context) error

	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	// Backend names the implementation, for logs and metrics.
	Backend() string
	Close() error
}

// Factory opens a new session.
type Factory func(ctx context.Context) (Session, error)

// InScopedTab opens a new tab, loads url in it and runs body. The tab is
// closed and the previously active tab restored on every exit path; a panic
// in body is re-raised once the session is back in place.
func InScopedTab[T any](ctx context.Context, s Session, url string, body func(context.Context, Session) (T, error)) (result T, err error) {
	previous := s.ActiveTab()
	if err := s.OpenTab(ctx); err != nil {
		return result, fmt.Errorf("opening tab: %w", err)
	}
	opened := s.ActiveTab()

	defer func() {
		// Restoration runs on a fresh context so a cancelled run still
		// leaves the session consistent.
		restoreCtx := context.WithoutCancel(ctx)
		var errs []error
		if s.ActiveTab() != opened {
			errs = append(errs, s.SwitchTab(restoreCtx, opened))
		}
		errs = append(errs, s.CloseTab(restoreCtx), s.SwitchTab(restoreCtx, previous))
		if err == nil {
			err = errors.Join(errs...)
		}
	}()

	if err := s.Navigate(ctx, url); err != nil {
		return result, err
	}
	return body(ctx, s)
}

// InFrame runs body with the session switched into the frame matched by
// selector, and always switches back. A frame whose document cannot be
// reached from the parent is loaded in a scoped tab instead.
func InFrame(ctx context.Context, s Session, selector string, body func(context.Context, Session) error) (err error) {
	enterErr := s.EnterFrame(ctx, selector)
	if errors.Is(enterErr, ErrCrossOriginFrame) {
		frame, qerr := QueryOne(ctx, s, selector)
		if qerr != nil {
			return qerr
		}
		src := frame.Attr("src")
		if src == "" {
			return fmt.Errorf("frame %s has no src: %w", selector, enterErr)
		}
		_, err := InScopedTab(ctx, s, src, func(ctx context.Context, s Session) (struct{}, error) {
			return struct{}{}, body(ctx, s)
		})
		return err
	}
	if enterErr != nil {
		return fmt.Errorf("entering frame %s: %w", selector, enterErr)
	}

	defer func() {
		exitErr := s.ExitFrame(context.WithoutCancel(ctx))
		if err == nil {
			err = exitErr
		}
	}()
	return body(ctx, s)
}

// QueryOne returns the first match for selector.
func QueryOne(ctx context.Context, s Session, selector string) (*Element, error) {
	found, err := s.Query(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, NotFoundError(selector)
	}
	return found[0], nil
}

// Document returns a snapshot of the whole active document.
func Document(ctx context.Context, s Session) (*Element, error) {
	return QueryOne(ctx, s, "html")
}

const pollInterval = 250 * time.Millisecond

// WaitFor polls until selector matches at least once or timeout elapses.
func WaitFor(ctx context.Context, s Session, selector string, timeout time.Duration) (Elements, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		found, err := s.Query(ctx, selector)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if len(found) > 0 {
			return found, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s after %s", ErrWaitTimeout, selector, timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Pause waits for d unless ctx ends first.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

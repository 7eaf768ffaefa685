package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// BrowserOptions configures the paginating browser fetch.
type BrowserOptions struct {
	UserAgent       string
	ChromePath      string
	PageLoadTimeout time.Duration
	// WaitTimeout bounds the wait for FeedSelector after navigation.
	WaitTimeout  time.Duration
	FeedSelector string
	// Cycles is the maximum number of scroll-and-click rounds.
	Cycles int
	// WarmupCycles rounds always run, even when they click nothing.
	WarmupCycles   int
	ScrollStep     int
	ScrollPause    time.Duration
	SettlePause    time.Duration
	ClickPause     time.Duration
	LoadMoreXPaths []string
}

// DefaultBrowserOptions returns the settings used against the city feed.
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		UserAgent:       DefaultUserAgent,
		PageLoadTimeout: 45 * time.Second,
		WaitTimeout:     15 * time.Second,
		FeedSelector:    ".news-feed",
		Cycles:          10,
		WarmupCycles:    1,
		ScrollStep:      700,
		ScrollPause:     3 * time.Second,
		SettlePause:     time.Second,
		ClickPause:      2 * time.Second,
		LoadMoreXPaths: []string{
			"//button[contains(@class, 'js-nexter')]",
			"//button[contains(text(), 'больше новостей')]",
			"//button[contains(text(), 'еще новости')]",
			"//a[contains(@class, 'js-nexter')]",
			"//a[contains(text(), 'больше новостей')]",
			"//a[contains(text(), 'еще новости')]",
			"//div[contains(@class, 'js-nexter')]",
			"//div[contains(text(), 'больше новостей')]",
			"//div[contains(text(), 'еще новости')]",
		},
	}
}

// Control is a "load more" element found on the page. ID identifies the
// underlying DOM node for the lifetime of the session.
type Control struct {
	ID   int64
	node any
}

// Session is one browser tab. It is owned by a single FetchAll call.
type Session interface {
	Navigate(url string) error
	WaitReady(selector string, timeout time.Duration) error
	ScrollBy(px int) error
	ScrollToBottom() error
	FindControls(xpaths []string) ([]Control, error)
	ScrollIntoView(c Control) error
	Visible(c Control) (bool, error)
	ScriptClick(c Control) error
	PointerClick(c Control) error
	NativeClick(c Control) error
	HTML() (string, error)
	Close()
}

// ClickStrategy is one way of activating a control.
type ClickStrategy struct {
	Name  string
	Click func(s Session, c Control) error
}

// DefaultClickStrategies tries a script-level click first, then a
// synthesized pointer click, then the browser's native click.
var DefaultClickStrategies = []ClickStrategy{
	{Name: "script", Click: func(s Session, c Control) error { return s.ScriptClick(c) }},
	{Name: "pointer", Click: func(s Session, c Control) error { return s.PointerClick(c) }},
	{Name: "native", Click: func(s Session, c Control) error { return s.NativeClick(c) }},
}

// Browser implements PaginatingFetcher by scrolling the feed and clicking
// its "load more" controls in a headless browser.
type Browser struct {
	opts       BrowserOptions
	strategies []ClickStrategy
	log        *slog.Logger
	open       func(ctx context.Context) (Session, error)
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewBrowser creates a Browser that launches headless Chrome per fetch.
func NewBrowser(opts BrowserOptions, log *slog.Logger) *Browser {
	b := &Browser{
		opts:       opts,
		strategies: DefaultClickStrategies,
		log:        log,
		sleep:      sleepCtx,
	}
	b.open = b.openChrome
	return b
}

// FetchAll loads the page, expands the feed and returns the final HTML.
// The browser session is closed before FetchAll returns.
func (b *Browser) FetchAll(ctx context.Context, url string) ([]byte, error) {
	s, err := b.open(ctx)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("start browser: %w", err)}
	}
	defer s.Close()

	if err := s.Navigate(url); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := s.WaitReady(b.opts.FeedSelector, b.opts.WaitTimeout); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("wait for %s: %w", b.opts.FeedSelector, err)}
	}

	clicks, err := b.paginate(ctx, s)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	if err := s.ScrollToBottom(); err != nil {
		b.log.Warn("scroll to bottom", "error", err)
	}
	if err := b.sleep(ctx, b.opts.ScrollPause); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	html, err := s.HTML()
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read page html: %w", err)}
	}
	b.log.Info("feed expanded", "url", url, "clicks", clicks, "bytes", len(html))
	return []byte(html), nil
}

// paginate runs the scroll-and-click cycles and returns the number of
// successful clicks. Only context cancellation aborts it.
func (b *Browser) paginate(ctx context.Context, s Session) (int, error) {
	total := 0
	for cycle := 0; cycle < b.opts.Cycles; cycle++ {
		if err := s.ScrollBy(b.opts.ScrollStep); err != nil {
			b.log.Warn("scroll feed", "cycle", cycle, "error", err)
		}
		if err := b.sleep(ctx, b.opts.ScrollPause); err != nil {
			return total, err
		}

		controls, err := s.FindControls(b.opts.LoadMoreXPaths)
		if err != nil {
			b.log.Warn("find load more controls", "cycle", cycle, "error", err)
		}

		clicked := 0
		for _, c := range controls {
			ok, err := b.activate(ctx, s, c)
			if err != nil {
				return total, err
			}
			if ok {
				clicked++
			}
		}
		total += clicked
		b.log.Debug("pagination cycle", "cycle", cycle, "controls", len(controls), "clicked", clicked)

		if clicked == 0 && cycle >= b.opts.WarmupCycles {
			break
		}
	}
	return total, nil
}

// activate brings a control into view and clicks it with the first strategy
// that succeeds. Controls outside the viewport are skipped.
func (b *Browser) activate(ctx context.Context, s Session, c Control) (bool, error) {
	if err := s.ScrollIntoView(c); err != nil {
		b.log.Debug("scroll control into view", "control", c.ID, "error", err)
		return false, nil
	}
	if err := b.sleep(ctx, b.opts.SettlePause); err != nil {
		return false, err
	}

	visible, err := s.Visible(c)
	if err != nil || !visible {
		return false, nil
	}

	var errs []error
	for _, st := range b.strategies {
		err := st.Click(s, c)
		if err == nil {
			if err := b.sleep(ctx, b.opts.ClickPause); err != nil {
				return true, err
			}
			return true, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", st.Name, err))
	}
	b.log.Warn("click load more control", "control", c.ID, "error", errors.Join(errs...))
	return false, nil
}

// DedupeControls drops controls whose ID was already seen, keeping order.
func DedupeControls(in []Control) []Control {
	seen := make(map[int64]struct{}, len(in))
	out := in[:0:0]
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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

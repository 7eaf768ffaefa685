package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const actionTimeout = 10 * time.Second

const visibleJS = `function() {
	const r = this.getBoundingClientRect();
	const s = window.getComputedStyle(this);
	return r.top >= 0 && r.left >= 0 &&
		r.bottom <= (window.innerHeight || document.documentElement.clientHeight) &&
		r.right <= (window.innerWidth || document.documentElement.clientWidth) &&
		s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
}`

var errNotChromeControl = errors.New("control does not belong to a chrome session")

// chromeSession is a Session backed by a headless Chrome tab.
type chromeSession struct {
	ctx             context.Context
	cancel          context.CancelFunc
	pageLoadTimeout time.Duration
}

func (b *Browser) openChrome(ctx context.Context) (Session, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.UserAgent(b.opts.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("headless", "new"),
	}
	if b.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, err
	}

	return &chromeSession{
		ctx:             tabCtx,
		cancel:          cancel,
		pageLoadTimeout: b.opts.PageLoadTimeout,
	}, nil
}

func (s *chromeSession) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (s *chromeSession) Navigate(url string) error {
	return s.run(s.pageLoadTimeout, chromedp.Navigate(url))
}

func (s *chromeSession) WaitReady(selector string, timeout time.Duration) error {
	return s.run(timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *chromeSession) ScrollBy(px int) error {
	return s.run(actionTimeout, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d);", px), nil))
}

func (s *chromeSession) ScrollToBottom() error {
	return s.run(actionTimeout, chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight);", nil))
}

func (s *chromeSession) FindControls(xpaths []string) ([]Control, error) {
	var found []Control
	var errs []error
	for _, xp := range xpaths {
		var nodes []*cdp.Node
		err := s.run(actionTimeout, chromedp.Nodes(xp, &nodes, chromedp.BySearch, chromedp.AtLeast(0)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", xp, err))
			continue
		}
		for _, n := range nodes {
			found = append(found, Control{ID: int64(n.BackendNodeID), node: n})
		}
	}
	return DedupeControls(found), errors.Join(errs...)
}

func (s *chromeSession) ScrollIntoView(c Control) error {
	_, err := s.callOn(c, `function() { this.scrollIntoView({block: 'center'}); }`)
	return err
}

func (s *chromeSession) Visible(c Control) (bool, error) {
	v, err := s.callOn(c, visibleJS)
	if err != nil {
		return false, err
	}
	return string(v) == "true", nil
}

func (s *chromeSession) ScriptClick(c Control) error {
	_, err := s.callOn(c, `function() { this.click(); }`)
	return err
}

func (s *chromeSession) PointerClick(c Control) error {
	n, err := nodeOf(c)
	if err != nil {
		return err
	}
	return s.run(actionTimeout, chromedp.MouseClickNode(n))
}

func (s *chromeSession) NativeClick(c Control) error {
	n, err := nodeOf(c)
	if err != nil {
		return err
	}
	return s.run(actionTimeout, chromedp.Click([]cdp.NodeID{n.NodeID}, chromedp.ByNodeID))
}

func (s *chromeSession) HTML() (string, error) {
	var html string
	if err := s.run(actionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) Close() {
	s.cancel()
}

// callOn invokes fn with the control's DOM node bound to this and returns
// the JSON encoded result.
func (s *chromeSession) callOn(c Control, fn string) ([]byte, error) {
	n, err := nodeOf(c)
	if err != nil {
		return nil, err
	}

	var out []byte
	err = s.run(actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(n.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		out = res.Value
		return nil
	}))
	return out, err
}

func nodeOf(c Control) (*cdp.Node, error) {
	n, ok := c.node.(*cdp.Node)
	if !ok || n == nil {
		return nil, errNotChromeControl
	}
	return n, nil
}

package pageverify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/root4loot/goutils/log"
)

// verifyChromedp runs the same verification sequence on the chromedp
// backend. One ExecAllocator per run; the allocator and tab contexts are
// cancelled on every exit path, which tears the browser process down.
func (r *Runner) verifyChromedp(target string, checks []Check, captures []CaptureSpec) Result {
	result := Result{Target: target}
	events := NewEventLog()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout(r.Options))
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:], r.chromedpFlags()...)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	tracker := newIdleTracker(quietWindow(r.Options))

	// Observers registered before any navigation so no early event is missed.
	chromedp.ListenTarget(cctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			text := consoleText(e.Args)
			events.Append(EventConsole, text)
			log.Infof("Console: %s", text)
		case *runtime.EventExceptionThrown:
			events.Append(EventPageError, e.ExceptionDetails.Error())
			log.Warnf("Page Error: %s", e.ExceptionDetails.Error())
		case *network.EventRequestWillBeSent:
			tracker.started(e.RequestID)
		case *network.EventLoadingFinished:
			tracker.finished(e.RequestID)
		case *network.EventLoadingFailed:
			tracker.finished(e.RequestID)
		}
	})

	if err := r.runChromedp(cctx, target, checks, captures, tracker, &result); err != nil {
		result.Error = err
		log.Errorf("Error during verification: %v", err)
	}

	result.Events = events.Events()
	return result
}

func (r *Runner) runChromedp(ctx context.Context, target string, checks []Check, captures []CaptureSpec, tracker *idleTracker, result *Result) error {
	tasks := chromedp.Tasks{network.Enable()}
	if r.Options.CaptureWidth > 0 && r.Options.CaptureHeight > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(int64(r.Options.CaptureWidth), int64(r.Options.CaptureHeight)))
	}
	tasks = append(tasks, chromedp.Navigate(target))

	log.Debugf("Navigating to %s (%s)", target, r.Options.Wait)

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("navigating to %s: %w", target, err)
	}

	if r.Options.Wait.isFixed() {
		if err := chromedp.Run(ctx, chromedp.Sleep(r.Options.Wait.fixed)); err != nil {
			return fmt.Errorf("waiting after navigation: %w", err)
		}
	} else if err := tracker.wait(ctx); err != nil {
		return fmt.Errorf("waiting for network idle: %w", err)
	}

	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return fmt.Errorf("reading page title: %w", err)
	}
	result.Title = title
	log.Infof("Page title: %s", title)

	for _, check := range checks {
		visible := chromedpVisible(ctx, check.Selector)
		reportCheck(check, visible)
		result.Checks = append(result.Checks, CheckResult{Name: check.Name, Selector: check.Selector, Visible: visible})
	}

	for _, capture := range captures {
		data, err := r.chromedpCapture(ctx, target, capture)
		if err != nil {
			return err
		}
		if data != nil {
			result.Artifacts = append(result.Artifacts, capture.Path)
			if capture.Scope.full {
				result.Image = data
			}
		}
	}

	return nil
}

func (r *Runner) chromedpFlags() []chromedp.ExecAllocatorOption {
	customFlags := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", r.Options.Headless),
	}

	if r.Options.IgnoreCertificateErrors {
		customFlags = append(customFlags, chromedp.Flag("ignore-certificate-errors", true))
	}

	if r.Options.DisableHTTP2 {
		customFlags = append(customFlags, chromedp.Flag("disable-http2", true))
	}

	if r.Options.UserAgent != "" {
		customFlags = append(customFlags, chromedp.UserAgent(r.Options.UserAgent))
	}

	for _, arg := range r.Options.EngineArgs {
		name, value := splitEngineArg(arg)
		if name == "" {
			continue
		}
		if value == "" {
			customFlags = append(customFlags, chromedp.Flag(name, true))
		} else {
			customFlags = append(customFlags, chromedp.Flag(name, value))
		}
	}

	return customFlags
}

func chromedpVisible(ctx context.Context, selector string) bool {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		const cs = window.getComputedStyle(el);
		if (cs.display === 'none' || cs.visibility === 'hidden') return false;
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	})()`, selector)

	var visible bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &visible)); err != nil {
		log.Debugf("Query for %q failed: %v", selector, err)
		return false
	}
	return visible
}

func (r *Runner) chromedpCapture(ctx context.Context, target string, capture CaptureSpec) (Image, error) {
	var data []byte

	if capture.Scope.full {
		if err := chromedp.Run(ctx, chromedp.FullScreenshot(&data, 100)); err != nil {
			return nil, fmt.Errorf("capturing page: %w", err)
		}
		if r.Options.URLInImage {
			imprinted, err := Image(data).WithURLBanner(target)
			if err != nil {
				return nil, fmt.Errorf("imprinting URL on capture: %w", err)
			}
			data = imprinted
		}
	} else {
		var exists bool
		script := fmt.Sprintf(`document.querySelector(%q) !== null`, capture.Scope.selector)
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &exists)); err != nil {
			return nil, fmt.Errorf("querying %q: %w", capture.Scope.selector, err)
		}
		if !exists {
			log.Warnf("Capture skipped: no element matches %q", capture.Scope.selector)
			return nil, nil
		}
		if err := chromedp.Run(ctx, chromedp.Screenshot(capture.Scope.selector, &data, chromedp.ByQuery)); err != nil {
			return nil, fmt.Errorf("capturing element %q: %w", capture.Scope.selector, err)
		}
	}

	if err := writeArtifact(capture.Path, data); err != nil {
		return nil, err
	}

	log.Infof("Capture (%s) saved to %s", capture.Scope, capture.Path)
	return data, nil
}

func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if len(arg.Value) > 0 {
			var s string
			if err := json.Unmarshal(arg.Value, &s); err == nil {
				parts = append(parts, s)
				continue
			}
			parts = append(parts, string(arg.Value))
			continue
		}
		parts = append(parts, arg.Description)
	}
	return strings.Join(parts, " ")
}

// idleTracker counts in-flight network requests so the chromedp backend
// can implement the same quiet-window semantics rod provides natively.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
	quiet    time.Duration
}

func newIdleTracker(quiet time.Duration) *idleTracker {
	return &idleTracker{
		inflight: make(map[network.RequestID]struct{}),
		quiet:    quiet,
	}
}

func (t *idleTracker) started(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
}

func (t *idleTracker) finished(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
}

func (t *idleTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// wait blocks until no request has been in flight for the quiet window,
// or the context is done.
func (t *idleTracker) wait(ctx context.Context) error {
	const pollInterval = 50 * time.Millisecond

	var idleSince time.Time
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.pending() > 0 {
				idleSince = time.Time{}
				continue
			}
			if idleSince.IsZero() {
				idleSince = time.Now()
				continue
			}
			if time.Since(idleSince) >= t.quiet {
				return nil
			}
		}
	}
}

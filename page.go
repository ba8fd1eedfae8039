package pageverify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/root4loot/goutils/log"
	"github.com/root4loot/goutils/urlutil"
)

// Page is one navigable browsing context within a Session. Console and
// page-error observers are attached at open time, before any navigation,
// so no early events are missed.
type Page struct {
	p      *rod.Page
	opts   *Options
	url    string
	events *EventLog
}

// OpenPage creates a blank page with the configured viewport and the
// event observers already attached.
func (s *Session) OpenPage() (*Page, error) {
	p, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}

	if s.opts.CaptureWidth > 0 && s.opts.CaptureHeight > 0 {
		viewport := &proto.EmulationSetDeviceMetricsOverride{
			Width:             s.opts.CaptureWidth,
			Height:            s.opts.CaptureHeight,
			DeviceScaleFactor: 1,
			Mobile:            false,
		}
		if err := p.SetViewport(viewport); err != nil {
			return nil, fmt.Errorf("setting viewport: %w", err)
		}
	}

	page := &Page{
		p:      p,
		opts:   s.opts,
		events: NewEventLog(),
	}

	// EachEvent subscribes synchronously, so the observers are in place
	// before the first navigation can fire anything.
	waitEvents := p.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			text := p.MustObjectsToJSON(e.Args).Join(" ")
			page.events.Append(EventConsole, text)
			log.Infof("Console: %s", text)
		},
		func(e *proto.RuntimeExceptionThrown) {
			text := exceptionText(e.ExceptionDetails)
			page.events.Append(EventPageError, text)
			log.Warnf("Page Error: %s", text)
		},
	)
	go waitEvents()

	return page, nil
}

// Navigate opens the URL and blocks until the wait policy is satisfied.
func (pg *Page) Navigate(url string, policy WaitPolicy) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout(pg.opts))
	defer cancel()

	pg.url = url
	p := pg.p.Context(ctx)

	var waitIdle func()
	if !policy.isFixed() {
		// Armed before navigation so requests fired by the initial
		// document load count towards the quiet window.
		waitIdle = p.WaitRequestIdle(quietWindow(pg.opts), nil, nil, nil)
	}

	log.Debugf("Navigating to %s (%s)", url, policy)

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}

	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for %s to load: %w", url, err)
	}

	if policy.isFixed() {
		time.Sleep(policy.fixed)
	} else {
		waitIdle()
	}

	return nil
}

// Title returns the document title of the current page.
func (pg *Page) Title() (string, error) {
	info, err := pg.p.Info()
	if err != nil {
		return "", fmt.Errorf("reading page info: %w", err)
	}
	return info.Title, nil
}

// CheckVisible reports whether the first element matching the selector is
// present and visible. An absent or hidden element is false, not an error.
func (pg *Page) CheckVisible(selector string) bool {
	has, el, err := pg.p.Has(selector)
	if err != nil {
		log.Debugf("Query for %q failed: %v", selector, err)
		return false
	}
	if !has {
		return false
	}

	visible, err := el.Visible()
	if err != nil {
		log.Debugf("Visibility check for %q failed: %v", selector, err)
		return false
	}
	return visible
}

// Capture writes a screenshot to path and returns the image bytes. An
// Element scope with no matching node is skipped: nil bytes, nil error,
// nothing written.
func (pg *Page) Capture(path string, scope CaptureScope) (Image, error) {
	var data []byte
	var err error

	if scope.full {
		data, err = pg.p.Screenshot(true, nil)
		if err != nil {
			return nil, fmt.Errorf("capturing page: %w", err)
		}
		if pg.opts.URLInImage {
			data, err = pg.imprintURL(data)
			if err != nil {
				return nil, err
			}
		}
	} else {
		has, el, herr := pg.p.Has(scope.selector)
		if herr != nil {
			return nil, fmt.Errorf("querying %q: %w", scope.selector, herr)
		}
		if !has {
			log.Warnf("Capture skipped: no element matches %q", scope.selector)
			return nil, nil
		}
		data, err = el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		if err != nil {
			return nil, fmt.Errorf("capturing element %q: %w", scope.selector, err)
		}
	}

	if err := writeArtifact(path, data); err != nil {
		return nil, err
	}

	log.Infof("Capture (%s) saved to %s", scope, path)
	return data, nil
}

func (pg *Page) imprintURL(data []byte) (Image, error) {
	origin, err := urlutil.GetOrigin(pg.url)
	if err != nil {
		origin = pg.url
	}
	imprinted, err := Image(data).WithURLBanner(origin)
	if err != nil {
		return nil, fmt.Errorf("imprinting URL on capture: %w", err)
	}
	return imprinted, nil
}

// Events returns a snapshot of the observed console/page-error events in
// arrival order.
func (pg *Page) Events() []ObservedEvent {
	return pg.events.Events()
}

func exceptionText(d *proto.RuntimeExceptionDetails) string {
	if d == nil {
		return "unknown page error"
	}
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}

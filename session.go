package pageverify

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/root4loot/goutils/log"
)

// ErrBrowserNotFound is returned by Launch when no Chrome or Chromium
// binary can be located on the host.
var ErrBrowserNotFound = errors.New("no chrome or chromium binary found")

// Session owns one running browser process. Every Session must be closed;
// Close is safe to call more than once and from a defer on any exit path.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     *Options

	closeOnce sync.Once
}

// Launch starts a browser process according to the options and connects to
// it. The caller owns the returned Session and must Close it.
func Launch(opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	bin, found := launcher.LookPath()
	if !found {
		return nil, ErrBrowserNotFound
	}

	l := launcher.New().
		Bin(bin).
		Headless(opts.Headless).
		NoSandbox(true)

	if opts.UserAgent != "" {
		l.Set("user-agent", opts.UserAgent)
	}

	if opts.IgnoreCertificateErrors {
		l.Set("ignore-certificate-errors", "true")
	}

	if opts.DisableHTTP2 {
		l.Set("disable-http2", "true")
	}

	for _, arg := range opts.EngineArgs {
		name, value := splitEngineArg(arg)
		if name == "" {
			continue
		}
		if value == "" {
			l.Set(flags.Flag(name))
		} else {
			l.Set(flags.Flag(name), value)
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	log.Debugf("Launched browser %s", bin)

	return &Session{
		browser:  browser,
		launcher: l,
		opts:     opts,
	}, nil
}

// Close tears down the browser process. Idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		log.Debug("Closing browser session...")
		err = s.browser.Close()
		s.launcher.Cleanup()
	})
	return err
}

// splitEngineArg turns "--flag=value" or "flag=value" into its parts.
func splitEngineArg(arg string) (name, value string) {
	arg = strings.TrimSpace(strings.TrimPrefix(arg, "--"))
	name, value, _ = strings.Cut(arg, "=")
	return name, value
}

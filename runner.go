package pageverify

import (
	"strings"
	"sync"
	"time"

	"github.com/root4loot/goscope"
	"github.com/root4loot/goutils/log"
	"github.com/root4loot/goutils/urlutil"
)

const Version = "0.1.0"

// Engine selects the browser-automation backend used for a run.
type Engine string

const (
	EngineRod      Engine = "rod"
	EngineChromedp Engine = "chromedp"
)

type Runner struct {
	Options *Options
	visited map[string]bool
	mutex   sync.Mutex
}

// Options contains options for the runner
type Options struct {
	Engine                  Engine         // Automation backend (rod or chromedp)
	Headless                bool           // Run the browser in headless mode
	EngineArgs              []string       // Extra browser flags, e.g. "--enable-unsafe-webgpu"
	CaptureWidth            int            // Width of the viewport
	CaptureHeight           int            // Height of the viewport
	Timeout                 int            // Timeout for each verification run (seconds)
	Wait                    WaitPolicy     // Wait policy applied after navigation
	QuietMillis             int            // Network-idle quiet window (milliseconds)
	IgnoreCertificateErrors bool           // Ignore certificate errors
	DisableHTTP2            bool           // Disable HTTP2
	UserAgent               string         // User agent to use
	URLInImage              bool           // Imprint the target URL on full-page captures
	Concurrency             int            // Number of concurrent verification runs
	Scope                   *goscope.Scope // Scope to use
	Silence                 bool           // Silence output
	Verbose                 bool           // Verbose logging
}

// Check names a single element-visibility verification.
type Check struct {
	Name     string
	Selector string
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Name     string
	Selector string
	Visible  bool
}

// CaptureSpec binds a capture scope to the file it should be written to.
type CaptureSpec struct {
	Path  string
	Scope CaptureScope
}

// Result holds everything observed during one verification run.
type Result struct {
	Target    string
	Title     string
	Checks    []CheckResult
	Artifacts []string
	Events    []ObservedEvent
	Image     Image
	Error     error
}

// CheckPassed reports whether the named check ran and found the element visible.
func (r Result) CheckPassed(name string) bool {
	for _, c := range r.Checks {
		if c.Name == name {
			return c.Visible
		}
	}
	return false
}

func init() {
	log.Init("pageverify")
}

// DefaultOptions returns default options
func DefaultOptions() *Options {
	log.Debug("Getting default options...")

	return &Options{
		Engine:                  EngineRod,
		Headless:                true,
		CaptureWidth:            1366,
		CaptureHeight:           768,
		Timeout:                 15,
		Wait:                    NetworkIdle(),
		QuietMillis:             500,
		IgnoreCertificateErrors: true,
		DisableHTTP2:            true,
		Concurrency:             3,
	}
}

// NewRunner returns a new runner with default options
func NewRunner() *Runner {
	log.Debug("Creating new runner...")

	options := DefaultOptions()
	options.Scope = goscope.NewScope()

	return &Runner{
		Options: options,
		visited: make(map[string]bool),
	}
}

// NewRunnerWithOptions returns a new runner with the specified options
func NewRunnerWithOptions(options Options) *Runner {
	SetLogLevel(&options)
	log.Debug("Creating new runner with options...")

	if options.Scope == nil {
		options.Scope = goscope.NewScope()
	}

	return &Runner{
		Options: &options,
		visited: make(map[string]bool),
	}
}

// Verify runs the full sequence against a single target: launch the browser,
// open a page with observers attached, navigate, evaluate the named checks,
// write the requested captures and close the session. Failures past launch
// are reported on the Result and logged, never propagated as a panic.
func (r *Runner) Verify(target string, checks []Check, captures []CaptureSpec) Result {
	target = normalizeTarget(target)
	result := Result{Target: target}

	r.mutex.Lock()
	r.Options.Scope.AddTargetToScope(target)
	r.mutex.Unlock()

	if r.Options.Scope.IsTargetExcluded(target) {
		log.Warnf("Skipping %s: excluded by scope", target)
		return result
	}

	if r.isVisited(target) {
		log.Debugf("Skipping %s: already verified", target)
		return result
	}
	r.addVisited(target)

	if r.Options.Engine == EngineChromedp {
		return r.verifyChromedp(target, checks, captures)
	}
	return r.verifyRod(target, checks, captures)
}

func (r *Runner) verifyRod(target string, checks []Check, captures []CaptureSpec) (result Result) {
	result.Target = target

	session, err := Launch(r.Options)
	if err != nil {
		result.Error = err
		log.Errorf("Error during verification: %v", err)
		return result
	}
	defer session.Close()

	page, err := session.OpenPage()
	if err != nil {
		result.Error = err
		log.Errorf("Error during verification: %v", err)
		return result
	}
	defer func() { result.Events = page.Events() }()

	if err := page.Navigate(target, r.Options.Wait); err != nil {
		result.Error = err
		log.Errorf("Error during verification: %v", err)
		return result
	}

	title, err := page.Title()
	if err != nil {
		result.Error = err
		log.Errorf("Error during verification: %v", err)
		return result
	}
	result.Title = title
	log.Infof("Page title: %s", title)

	for _, check := range checks {
		visible := page.CheckVisible(check.Selector)
		reportCheck(check, visible)
		result.Checks = append(result.Checks, CheckResult{Name: check.Name, Selector: check.Selector, Visible: visible})
	}

	for _, capture := range captures {
		data, err := page.Capture(capture.Path, capture.Scope)
		if err != nil {
			result.Error = err
			log.Errorf("Error during verification: %v", err)
			return result
		}
		if data != nil {
			result.Artifacts = append(result.Artifacts, capture.Path)
			if capture.Scope.full {
				result.Image = data
			}
		}
	}

	return result
}

// VerifyMultiple verifies multiple targets with bounded concurrency and
// returns the collected results.
func (r *Runner) VerifyMultiple(targets []string, checks []Check, captures []CaptureSpec) (results []Result) {
	log.Debug("Running multiple...")

	sem := make(chan struct{}, r.concurrency())
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, target := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(t string) {
			defer func() { <-sem }()
			defer wg.Done()
			res := r.Verify(t, checks, captures)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(target)
	}
	wg.Wait()

	return results
}

// VerifyStream verifies multiple targets and streams the results over a channel
func (r *Runner) VerifyStream(resultsChan chan<- Result, checks []Check, captures []CaptureSpec, targets ...string) {
	log.Debug("Running stream...")
	defer close(resultsChan)

	sem := make(chan struct{}, r.concurrency())
	var wg sync.WaitGroup
	for _, target := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(t string) {
			defer func() { <-sem }()
			defer wg.Done()
			resultsChan <- r.Verify(t, checks, captures)
		}(target)
	}
	wg.Wait()
}

func (r *Runner) concurrency() int {
	if r.Options.Concurrency < 1 {
		return 1
	}
	return r.Options.Concurrency
}

func runTimeout(o *Options) time.Duration {
	if o.Timeout <= 0 {
		return time.Duration(DefaultOptions().Timeout) * time.Second
	}
	return time.Duration(o.Timeout) * time.Second
}

func quietWindow(o *Options) time.Duration {
	if o.QuietMillis <= 0 {
		return time.Duration(DefaultOptions().QuietMillis) * time.Millisecond
	}
	return time.Duration(o.QuietMillis) * time.Millisecond
}

func reportCheck(check Check, visible bool) {
	if visible {
		log.Infof("%s is visible", check.Name)
	} else {
		log.Infof("%s is NOT visible", check.Name)
	}
}

// normalizeTarget fills in a default scheme. The harness points at dev
// servers, so a bare host:port means http.
func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return target
	}
	if !urlutil.HasScheme(target) {
		target = "http://" + target
	}
	return target
}

func (r *Runner) addVisited(str string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.visited[str] = true
}

func (r *Runner) isVisited(str string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.visited[str]
}

// SetLogLevel sets the log level based on the options
func SetLogLevel(options *Options) {
	if options.Silence {
		log.SetLevel(log.FatalLevel)
	} else if options.Verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

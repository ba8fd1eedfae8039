package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pageverify/pageverify"
)

func (c *CLI) banner() {
	fmt.Println("\npageverify", pageverify.Version, "by", author)
}

func (c *CLI) usage() {
	w := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)

	fmt.Fprintf(w, "Usage:\t%s [options] (-t <url> | -l <targets.txt>)\n", os.Args[0])

	fmt.Fprintf(w, "\nINPUT:\n")
	fmt.Fprintf(w, "\t%s,  %s\t%s\n", "-t", "--target", "target URL, e.g. http://localhost:5173 (comma separated)")
	fmt.Fprintf(w, "\t%s,  %s\t%s\n", "-l", "--list", "input file containing list of targets (one per line)")

	fmt.Fprintf(w, "\nCHECKS:\n")
	fmt.Fprintf(w, "\t%s, %s\t%s\n", "-ck", "--check", "named visibility checks, name=selector (comma separated)")
	fmt.Fprintf(w, "\t\t\te.g. \"Sidebar=.sidebar,Slider A=#num-a\"")
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "\nCONFIGURATIONS:\n")
	fmt.Fprintf(w, "\t%s,   %s\t%s\t(Default: %s)\n", "-e", "--engine", "automation backend (rod, chromedp)", pageverify.EngineRod)
	fmt.Fprintf(w, "\t%s,   %s\t%s\t(Default: %d)\n", "-c", "--concurrency", "number of concurrent runs", pageverify.DefaultOptions().Concurrency)
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %d seconds)\n", "-to", "--timeout", "timeout per verification run", pageverify.DefaultOptions().Timeout)
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: 0 = wait for network idle)\n", "-fw", "--fixed-wait", "fixed wait after navigation (seconds)")
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %d ms)\n", "-qw", "--quiet-window", "network-idle quiet window (milliseconds)", pageverify.DefaultOptions().QuietMillis)
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %d)\n", "-cw", "--capture-width", "viewport pixel width", pageverify.DefaultOptions().CaptureWidth)
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %d)\n", "-ch", "--capture-height", "viewport pixel height", pageverify.DefaultOptions().CaptureHeight)
	fmt.Fprintf(w, "\t%s,  %s\t%s\n", "-ua", "--user-agent", "set user agent")
	fmt.Fprintf(w, "\t%s,  %s\t%s\n", "-ea", "--engine-args", "extra browser flags (comma separated)")
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %v)\n", "-hf", "--headful", "run with a visible browser window", false)
	fmt.Fprintf(w, "\t%s, %s\t%s\t(Default: %v)\n", "-ice", "--ignore-cert-err", "ignore certificate errors", pageverify.DefaultOptions().IgnoreCertificateErrors)
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %v)\n", "-dh", "--disable-http2", "disable HTTP2", pageverify.DefaultOptions().DisableHTTP2)

	fmt.Fprintf(w, "\nOUTPUT:\n")
	fmt.Fprintf(w, "\t%s,   %s\t%s\t(Default: %s)\n", "-o", "--out", "full-page capture path, empty to disable", "verification.png")
	fmt.Fprintf(w, "\t%s,  %s\t%s\n", "-ce", "--capture-element", "element captures, selector=path (comma separated)")
	fmt.Fprintf(w, "\t%s,   %s\t%s\n", "-b", "--baseline", "compare full-page capture to baseline image")
	fmt.Fprintf(w, "\t%s,  %s\t%s\t(Default: %d)\n", "-bt", "--baseline-threshold", "baseline similarity threshold (1-100)", 96)
	fmt.Fprintf(w, "\t%s,  %s\t%s\n", "-wu", "--with-url", "imprint target URL on full-page captures")
	fmt.Fprintf(w, "\t%s,   %s\t%s\n", "-s", "--silence", "silence output")
	fmt.Fprintf(w, "\t%s,   %s\t%s\n", "-v", "--verbose", "verbose output")
	fmt.Fprintf(w, "\t%s    %s\t%s\n", "  ", "--version", "display version")

	w.Flush()
	fmt.Println("")
}

// parseFlags parses the command line options and sets the options
func (c *CLI) parseFlags() {
	defaults := pageverify.DefaultOptions()

	// TARGET
	flag.StringVar(&c.TargetURL, "target", "", "")
	flag.StringVar(&c.TargetURL, "t", "", "")
	flag.StringVar(&c.Infile, "l", "", "")
	flag.StringVar(&c.Infile, "list", "", "")

	// CHECKS
	flag.StringVar(&c.Checks, "check", "", "")
	flag.StringVar(&c.Checks, "ck", "", "")

	// CONFIGURATIONS
	flag.StringVar(&c.EngineName, "engine", string(pageverify.EngineRod), "")
	flag.StringVar(&c.EngineName, "e", string(pageverify.EngineRod), "")
	flag.IntVar(&c.Options.Concurrency, "concurrency", defaults.Concurrency, "")
	flag.IntVar(&c.Options.Concurrency, "c", defaults.Concurrency, "")
	flag.IntVar(&c.Options.Timeout, "timeout", defaults.Timeout, "")
	flag.IntVar(&c.Options.Timeout, "to", defaults.Timeout, "")
	flag.IntVar(&c.FixedWait, "fixed-wait", 0, "")
	flag.IntVar(&c.FixedWait, "fw", 0, "")
	flag.IntVar(&c.Options.QuietMillis, "quiet-window", defaults.QuietMillis, "")
	flag.IntVar(&c.Options.QuietMillis, "qw", defaults.QuietMillis, "")
	flag.IntVar(&c.Options.CaptureWidth, "capture-width", defaults.CaptureWidth, "")
	flag.IntVar(&c.Options.CaptureWidth, "cw", defaults.CaptureWidth, "")
	flag.IntVar(&c.Options.CaptureHeight, "capture-height", defaults.CaptureHeight, "")
	flag.IntVar(&c.Options.CaptureHeight, "ch", defaults.CaptureHeight, "")
	flag.StringVar(&c.Options.UserAgent, "user-agent", "", "")
	flag.StringVar(&c.Options.UserAgent, "ua", "", "")
	flag.StringVar(&c.EngineArgs, "engine-args", "", "")
	flag.StringVar(&c.EngineArgs, "ea", "", "")
	flag.BoolVar(&c.Headful, "headful", false, "")
	flag.BoolVar(&c.Headful, "hf", false, "")
	flag.BoolVar(&c.Options.IgnoreCertificateErrors, "ignore-cert-err", defaults.IgnoreCertificateErrors, "")
	flag.BoolVar(&c.Options.IgnoreCertificateErrors, "ice", defaults.IgnoreCertificateErrors, "")
	flag.BoolVar(&c.Options.DisableHTTP2, "disable-http2", defaults.DisableHTTP2, "")
	flag.BoolVar(&c.Options.DisableHTTP2, "dh", defaults.DisableHTTP2, "")

	// OUTPUT
	flag.StringVar(&c.OutFile, "out", "verification.png", "")
	flag.StringVar(&c.OutFile, "o", "verification.png", "")
	flag.StringVar(&c.ElementSpecs, "capture-element", "", "")
	flag.StringVar(&c.ElementSpecs, "ce", "", "")
	flag.StringVar(&c.Baseline, "baseline", "", "")
	flag.StringVar(&c.Baseline, "b", "", "")
	flag.IntVar(&c.Threshold, "baseline-threshold", 96, "")
	flag.IntVar(&c.Threshold, "bt", 96, "")
	flag.BoolVar(&c.Options.URLInImage, "with-url", false, "")
	flag.BoolVar(&c.Options.URLInImage, "wu", false, "")
	flag.BoolVar(&c.Options.Silence, "s", false, "")
	flag.BoolVar(&c.Options.Silence, "silence", false, "")
	flag.BoolVar(&c.Options.Verbose, "v", false, "")
	flag.BoolVar(&c.Options.Verbose, "verbose", false, "")
	flag.BoolVar(&c.Help, "help", false, "")
	flag.BoolVar(&c.Help, "h", false, "")
	flag.BoolVar(&c.Version, "version", false, "")

	flag.Usage = func() {
		c.banner()
		c.usage()
	}
	flag.Parse()
}

// parseChecks parses "name=selector" pairs separated by commas.
func parseChecks(raw string) ([]pageverify.Check, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var checks []pageverify.Check
	for _, pair := range strings.Split(raw, ",") {
		name, selector, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		selector = strings.TrimSpace(selector)
		if !found || name == "" || selector == "" {
			return nil, fmt.Errorf("expected name=selector, got %q", pair)
		}
		checks = append(checks, pageverify.Check{Name: name, Selector: selector})
	}
	return checks, nil
}

// parseElementCaptures parses "selector=path" pairs separated by commas.
func parseElementCaptures(raw string) ([]pageverify.CaptureSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var captures []pageverify.CaptureSpec
	for _, pair := range strings.Split(raw, ",") {
		selector, path, found := strings.Cut(pair, "=")
		selector = strings.TrimSpace(selector)
		path = strings.TrimSpace(path)
		if !found || selector == "" || path == "" {
			return nil, fmt.Errorf("expected selector=path, got %q", pair)
		}
		captures = append(captures, pageverify.CaptureSpec{
			Path:  path,
			Scope: pageverify.Element(selector),
		})
	}
	return captures, nil
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pageverify/pageverify"
	"github.com/root4loot/goutils/log"
)

const author = "@pageverify"

type CLI struct {
	*pageverify.Runner
	TargetURL    string
	Infile       string
	Checks       string
	OutFile      string
	ElementSpecs string
	Baseline     string
	Threshold    int
	FixedWait    int
	EngineName   string
	EngineArgs   string
	Headful      bool
	Version      bool
	Help         bool
}

func init() {
	log.Init("pageverify")
}

func main() {
	cli := &CLI{Runner: pageverify.NewRunner()}
	cli.parseFlags()
	cli.checkForExits()
	cli.applyOptions()

	checks, err := parseChecks(cli.Checks)
	if err != nil {
		log.Fatalf("Invalid check: %v", err)
	}

	captures, err := cli.buildCaptures()
	if err != nil {
		log.Fatalf("Invalid capture: %v", err)
	}

	targets := cli.collectTargets()
	if len(targets) == 0 {
		log.Fatalf("No targets to verify")
	}

	sem := make(chan struct{}, cli.Options.Concurrency)
	var wg sync.WaitGroup
	for _, target := range targets {
		sem <- struct{}{}
		wg.Add(1)
		go func(t string) {
			defer func() { <-sem }()
			defer wg.Done()
			cli.report(cli.Runner.Verify(t, checks, captures))
		}(target)
	}
	wg.Wait()
}

// applyOptions maps parsed flags onto the runner options.
func (c *CLI) applyOptions() {
	switch pageverify.Engine(c.EngineName) {
	case pageverify.EngineRod, pageverify.EngineChromedp:
		c.Options.Engine = pageverify.Engine(c.EngineName)
	default:
		log.Fatalf("Unknown engine %q", c.EngineName)
	}

	c.Options.Headless = !c.Headful

	if c.Options.Concurrency < 1 {
		c.Options.Concurrency = 1
	}

	if c.FixedWait > 0 {
		c.Options.Wait = pageverify.FixedDelay(secondsToDuration(c.FixedWait))
	} else {
		c.Options.Wait = pageverify.NetworkIdle()
	}

	if c.EngineArgs != "" {
		for _, arg := range strings.Split(c.EngineArgs, ",") {
			if arg = strings.TrimSpace(arg); arg != "" {
				c.Options.EngineArgs = append(c.Options.EngineArgs, arg)
			}
		}
	}

	pageverify.SetLogLevel(c.Options)
}

// buildCaptures assembles the capture list: one full-page capture unless
// disabled, plus any element captures.
func (c *CLI) buildCaptures() ([]pageverify.CaptureSpec, error) {
	var captures []pageverify.CaptureSpec

	if c.OutFile != "" {
		captures = append(captures, pageverify.CaptureSpec{
			Path:  c.OutFile,
			Scope: pageverify.FullPage(),
		})
	}

	elementCaptures, err := parseElementCaptures(c.ElementSpecs)
	if err != nil {
		return nil, err
	}

	return append(captures, elementCaptures...), nil
}

func (c *CLI) collectTargets() (targets []string) {
	if c.hasStdin() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			for _, target := range strings.Fields(scanner.Text()) {
				targets = append(targets, target)
			}
		}
	}

	if c.hasInfile() {
		lines, err := c.readFileLines()
		if err != nil {
			log.Fatalf("Error reading file: %v", err)
		}
		targets = append(targets, lines...)
	}

	if c.hasTarget() {
		targets = append(targets, strings.Split(c.TargetURL, ",")...)
	}

	return targets
}

// report summarizes one verification run.
func (c *CLI) report(result pageverify.Result) {
	if result.Error != nil {
		log.Warnf("Verification failed for %s: %v", result.Target, result.Error)
		return
	}

	passed := 0
	for _, check := range result.Checks {
		if check.Visible {
			passed++
		}
	}

	log.Resultf("Verified %s: %d/%d checks passed, %d artifacts", result.Target, passed, len(result.Checks), len(result.Artifacts))

	if c.Baseline != "" {
		if result.SimilarToBaseline(c.Baseline, c.Threshold) {
			log.Resultf("Capture matches baseline %s", c.Baseline)
		} else {
			log.Warnf("Capture does not match baseline %s", c.Baseline)
		}
	}
}

// checkForExits checks for the presence of the -h|--help and --version flags
func (c *CLI) checkForExits() {
	if c.Help {
		c.banner()
		c.usage()
		os.Exit(0)
	}
	if c.Version {
		fmt.Println("pageverify ", pageverify.Version)
		os.Exit(0)
	}

	if !c.hasStdin() && !c.hasInfile() && !c.hasTarget() {
		fmt.Println("")
		fmt.Printf("%s\n\n", "Missing target")
		c.usage()
		os.Exit(0)
	}
}

// hasStdin determines if the user has piped input
func (c *CLI) hasStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	mode := stat.Mode()

	isPipedFromChrDev := (mode & os.ModeCharDevice) == 0
	isPipedFromFIFO := (mode & os.ModeNamedPipe) != 0

	return isPipedFromChrDev || isPipedFromFIFO
}

// hasTarget determines if the user has provided a target
func (c *CLI) hasTarget() bool {
	return c.TargetURL != ""
}

// hasInfile determines if the user has provided an input file
func (c *CLI) hasInfile() bool {
	return c.Infile != ""
}

// readFileLines reads a file line by line
func (c *CLI) readFileLines() (lines []string, err error) {
	file, err := os.Open(c.Infile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	return
}

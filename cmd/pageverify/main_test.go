package main

import (
	"os"
	"testing"
	"time"

	"github.com/pageverify/pageverify"
)

func TestParseChecks(t *testing.T) {
	checks, err := parseChecks("Sidebar=.sidebar,Slider A=#num-a")
	if err != nil {
		t.Fatalf("Failed to parse checks: %v", err)
	}

	if len(checks) != 2 {
		t.Fatalf("Expected 2 checks, got %d", len(checks))
	}
	if checks[0].Name != "Sidebar" || checks[0].Selector != ".sidebar" {
		t.Errorf("Unexpected first check: %+v", checks[0])
	}
	if checks[1].Name != "Slider A" || checks[1].Selector != "#num-a" {
		t.Errorf("Unexpected second check: %+v", checks[1])
	}
}

func TestParseChecksEmpty(t *testing.T) {
	checks, err := parseChecks("  ")
	if err != nil {
		t.Fatalf("Expected no error for empty checks, got %v", err)
	}
	if checks != nil {
		t.Errorf("Expected nil checks, got %v", checks)
	}
}

func TestParseChecksInvalid(t *testing.T) {
	for _, raw := range []string{"no-separator", "=selector", "name="} {
		if _, err := parseChecks(raw); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
}

func TestParseElementCaptures(t *testing.T) {
	captures, err := parseElementCaptures("#demo-svg=verification_svg.png")
	if err != nil {
		t.Fatalf("Failed to parse captures: %v", err)
	}

	if len(captures) != 1 {
		t.Fatalf("Expected 1 capture, got %d", len(captures))
	}
	if captures[0].Path != "verification_svg.png" {
		t.Errorf("Unexpected capture path: %s", captures[0].Path)
	}
}

func TestParseElementCapturesInvalid(t *testing.T) {
	if _, err := parseElementCaptures("#demo-svg"); err == nil {
		t.Error("Expected error for capture without path")
	}
}

func TestApplyOptions(t *testing.T) {
	cli := &CLI{Runner: pageverify.NewRunner()}
	cli.EngineName = string(pageverify.EngineChromedp)
	cli.FixedWait = 5
	cli.EngineArgs = "--enable-unsafe-webgpu, --mute-audio"
	cli.Options.Concurrency = 0

	cli.applyOptions()

	if cli.Options.Engine != pageverify.EngineChromedp {
		t.Errorf("Expected chromedp engine, got %q", cli.Options.Engine)
	}
	if !cli.Options.Headless {
		t.Error("Expected headless by default")
	}
	if cli.Options.Concurrency != 1 {
		t.Errorf("Expected concurrency floor of 1, got %d", cli.Options.Concurrency)
	}
	if len(cli.Options.EngineArgs) != 2 {
		t.Errorf("Expected 2 engine args, got %v", cli.Options.EngineArgs)
	}
}

func TestBuildCaptures(t *testing.T) {
	cli := &CLI{Runner: pageverify.NewRunner()}
	cli.OutFile = "verification.png"
	cli.ElementSpecs = "#demo-svg=verification_svg.png"

	captures, err := cli.buildCaptures()
	if err != nil {
		t.Fatalf("Failed to build captures: %v", err)
	}
	if len(captures) != 2 {
		t.Fatalf("Expected 2 captures, got %d", len(captures))
	}
	if captures[0].Path != "verification.png" {
		t.Errorf("Unexpected full-page capture path: %s", captures[0].Path)
	}
}

func TestSecondsToDuration(t *testing.T) {
	if secondsToDuration(5) != 5*time.Second {
		t.Error("Unexpected duration conversion")
	}
}

func TestParseFlags(t *testing.T) {
	cli := &CLI{Runner: pageverify.NewRunner()}
	os.Args = []string{"cmd", "-t", "http://localhost:5173", "-ck", "Slider A=#num-a", "-o", "shot.png", "-c", "5", "-fw", "5"}
	cli.parseFlags()

	if cli.TargetURL != "http://localhost:5173" {
		t.Errorf("Expected target 'http://localhost:5173', got %s", cli.TargetURL)
	}
	if cli.Checks != "Slider A=#num-a" {
		t.Errorf("Unexpected checks: %s", cli.Checks)
	}
	if cli.OutFile != "shot.png" {
		t.Errorf("Expected out file 'shot.png', got %s", cli.OutFile)
	}
	if cli.Options.Concurrency != 5 {
		t.Errorf("Expected concurrency 5, got %d", cli.Options.Concurrency)
	}
	if cli.FixedWait != 5 {
		t.Errorf("Expected fixed wait 5, got %d", cli.FixedWait)
	}
}

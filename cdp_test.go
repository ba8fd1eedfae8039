package pageverify

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
)

func TestIdleTrackerCountsInflightRequests(t *testing.T) {
	tracker := newIdleTracker(100 * time.Millisecond)

	tracker.started(network.RequestID("a"))
	tracker.started(network.RequestID("b"))
	if tracker.pending() != 2 {
		t.Fatalf("Expected 2 pending requests, got %d", tracker.pending())
	}

	tracker.finished(network.RequestID("a"))
	if tracker.pending() != 1 {
		t.Fatalf("Expected 1 pending request, got %d", tracker.pending())
	}

	// finishing an unknown request must not underflow
	tracker.finished(network.RequestID("unknown"))
	if tracker.pending() != 1 {
		t.Fatalf("Expected 1 pending request after unknown finish, got %d", tracker.pending())
	}
}

func TestIdleTrackerWaitReturnsAfterQuietWindow(t *testing.T) {
	tracker := newIdleTracker(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := tracker.wait(ctx); err != nil {
		t.Fatalf("Expected wait to succeed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Wait returned before the quiet window elapsed: %v", elapsed)
	}
}

func TestIdleTrackerWaitResetsOnActivity(t *testing.T) {
	tracker := newIdleTracker(150 * time.Millisecond)
	tracker.started(network.RequestID("slow"))

	go func() {
		time.Sleep(200 * time.Millisecond)
		tracker.finished(network.RequestID("slow"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := tracker.wait(ctx); err != nil {
		t.Fatalf("Expected wait to succeed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 350*time.Millisecond {
		t.Errorf("Wait ignored the pending request: returned after %v", elapsed)
	}
}

func TestIdleTrackerWaitHonorsContext(t *testing.T) {
	tracker := newIdleTracker(time.Second)
	tracker.started(network.RequestID("hung"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := tracker.wait(ctx); err == nil {
		t.Error("Expected wait to fail when the context expires")
	}
}

func TestChromedpFlagsReflectOptions(t *testing.T) {
	options := DefaultOptions()
	options.UserAgent = "test-agent"
	options.EngineArgs = []string{"--enable-unsafe-webgpu", "window-size=800,600"}
	runner := NewRunnerWithOptions(*options)

	flags := runner.chromedpFlags()
	// headless + ignore-certificate-errors + disable-http2 + user agent + two engine args
	if len(flags) != 6 {
		t.Errorf("Expected 6 allocator options, got %d", len(flags))
	}
}

func TestConsoleTextFormatsArguments(t *testing.T) {
	// exercised through the real event path in verify_test.go; here only the
	// nil and empty cases
	if got := consoleText(nil); got != "" {
		t.Errorf("Expected empty text for no args, got %q", got)
	}
}

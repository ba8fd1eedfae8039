package pageverify

import (
	"testing"
	"time"
)

func TestWaitPolicyZeroValueIsNetworkIdle(t *testing.T) {
	var policy WaitPolicy
	if policy.isFixed() {
		t.Error("Expected zero-value policy to behave like network idle")
	}
	if policy.String() != "network idle" {
		t.Errorf("Unexpected policy string: %s", policy)
	}
}

func TestFixedDelayPolicy(t *testing.T) {
	policy := FixedDelay(5 * time.Second)
	if !policy.isFixed() {
		t.Error("Expected fixed policy")
	}
	if policy.String() != "fixed delay 5s" {
		t.Errorf("Unexpected policy string: %s", policy)
	}
}

func TestCaptureScopes(t *testing.T) {
	full := FullPage()
	if !full.full || full.String() != "full page" {
		t.Errorf("Unexpected full-page scope: %+v", full)
	}

	element := Element("#demo-svg")
	if element.full || element.selector != "#demo-svg" {
		t.Errorf("Unexpected element scope: %+v", element)
	}
	if element.String() != `element "#demo-svg"` {
		t.Errorf("Unexpected element scope string: %s", element)
	}
}

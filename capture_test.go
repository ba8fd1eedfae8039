package pageverify

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func testImageData(t *testing.T, size int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, size)
	if _, err := rng.Read(data); err != nil {
		t.Fatalf("Failed to generate test data: %v", err)
	}
	return data
}

func TestWriteArtifactSkipsEmptyData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")

	if err := writeArtifact(path, nil); err != nil {
		t.Fatalf("Expected empty data to be skipped, got %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file to be written for empty data")
	}
}

func TestWriteArtifactCreatesParentFolders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "folder", "capture.png")
	data := []byte("not really a png")

	if err := writeArtifact(path, data); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read artifact back: %v", err)
	}
	if string(written) != string(data) {
		t.Error("Artifact contents do not match")
	}
}

func TestSimilarToIdenticalImages(t *testing.T) {
	data := testImageData(t, 8192)

	similar, err := Image(data).SimilarTo(Image(data), 96)
	if err != nil {
		t.Fatalf("Failed to compare images: %v", err)
	}
	if !similar {
		t.Error("Expected identical images to be similar")
	}
}

func TestSimilarToRejectsInvalidThreshold(t *testing.T) {
	data := testImageData(t, 8192)

	for _, threshold := range []int{0, -1, 101} {
		if _, err := Image(data).SimilarTo(Image(data), threshold); err == nil {
			t.Errorf("Expected error for threshold %d", threshold)
		}
	}
}

func TestSimilarToBaseline(t *testing.T) {
	data := testImageData(t, 8192)
	baseline := filepath.Join(t.TempDir(), "baseline.png")
	if err := os.WriteFile(baseline, data, 0o644); err != nil {
		t.Fatalf("Failed to write baseline: %v", err)
	}

	result := Result{Image: data}
	if !result.SimilarToBaseline(baseline, 96) {
		t.Error("Expected capture to match its own baseline")
	}

	if result.SimilarToBaseline(filepath.Join(t.TempDir(), "missing.png"), 96) {
		t.Error("Expected a missing baseline to report not similar")
	}

	empty := Result{}
	if empty.SimilarToBaseline(baseline, 96) {
		t.Error("Expected a run without a capture to report not similar")
	}
}

package pageverify

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glaslos/ssdeep"
	"github.com/root4loot/goutils/log"
)

// Image is raw PNG screenshot data.
type Image []byte

// writeArtifact writes screenshot data to path, creating parent folders as
// needed. Empty data is skipped so a failed capture never leaves an empty
// file behind.
func writeArtifact(path string, data []byte) error {
	if len(data) == 0 {
		log.Debugf("Skipping empty artifact %s", path)
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("creating artifact folder %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating artifact %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("writing artifact %s: %w", path, err)
	}

	return nil
}

// SimilarTo fuzzy-compares two images and reports whether their similarity
// score meets the threshold (1-100). Used to verify a capture against a
// stored baseline.
func (img Image) SimilarTo(baseline Image, threshold int) (bool, error) {
	if threshold < 1 || threshold > 100 {
		return false, fmt.Errorf("invalid similarity threshold: %d, must be between 1 and 100", threshold)
	}

	hash1, err := ssdeep.FuzzyBytes(img)
	if err != nil {
		return false, fmt.Errorf("hashing capture: %w", err)
	}

	hash2, err := ssdeep.FuzzyBytes(baseline)
	if err != nil {
		return false, fmt.Errorf("hashing baseline: %w", err)
	}

	score, err := ssdeep.Distance(hash1, hash2)
	if err != nil {
		return false, fmt.Errorf("comparing hashes: %w", err)
	}

	log.Debugf("Similarity score: %d (threshold %d)", score, threshold)
	return score >= threshold, nil
}

// SimilarToBaseline compares the run's full-page capture against an image
// on disk. A missing baseline is reported as not similar, not an error,
// so first runs can seed the baseline file.
func (r Result) SimilarToBaseline(path string, threshold int) bool {
	if len(r.Image) == 0 {
		return false
	}

	baseline, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("No baseline at %s: %v", path, err)
		return false
	}

	similar, err := r.Image.SimilarTo(baseline, threshold)
	if err != nil {
		log.Warnf("Could not compare against baseline %s: %v", path, err)
		return false
	}
	return similar
}

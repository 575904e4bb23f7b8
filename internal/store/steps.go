package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StepName identifies a pipeline step for caching purposes.
type StepName string

const (
	StepCommenters StepName = "commenters"
	StepTargets    StepName = "targets"
	StepMatrix     StepName = "matrix"
)

// StepCache keeps the JSON output of each completed step under
// <root>/steps/<step>/, one timestamped file per run.
type StepCache struct {
	root string
	now  func() time.Time
}

// NewStepCache creates a step cache rooted at dir
func NewStepCache(dir string) *StepCache {
	return &StepCache{root: filepath.Join(dir, "steps"), now: time.Now}
}

// stepDir returns the cache directory for a given step.
func (c *StepCache) stepDir(step StepName) string {
	return filepath.Join(c.root, string(step))
}

// generateFilename creates a timestamped filename with the given extension.
func (c *StepCache) generateFilename(ext string) string {
	return c.now().Format("2006-01-02T15-04-05.000") + ext
}

// SaveStepOutput saves JSON-serializable data to the step's cache directory.
// Returns the path to the saved file.
func SaveStepOutput[T any](c *StepCache, step StepName, data T) (string, error) {
	dir := c.stepDir(step)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create step cache dir: %w", err)
	}

	path := filepath.Join(dir, c.generateFilename(".json"))

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal step output: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write step output: %w", err)
	}

	return path, nil
}

// LoadLatestStepOutput loads the most recent output from a step's cache directory.
// ok is false when the step has never been cached.
func LoadLatestStepOutput[T any](c *StepCache, step StepName) (data T, path string, ok bool, err error) {
	path, ok, err = c.LatestStepFile(step)
	if err != nil || !ok {
		return data, "", ok, err
	}

	data, err = LoadStepOutput[T](path)
	if err != nil {
		return data, "", false, err
	}
	return data, path, true, nil
}

// LoadStepOutput loads JSON data from a specific file path.
func LoadStepOutput[T any](path string) (T, error) {
	var data T

	jsonData, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("failed to read step output: %w", err)
	}

	if err := json.Unmarshal(jsonData, &data); err != nil {
		return data, fmt.Errorf("failed to unmarshal step output: %w", err)
	}

	return data, nil
}

// LatestStepFile returns the path to the most recent file in a step's cache directory.
func (c *StepCache) LatestStepFile(step StepName) (string, bool, error) {
	dir := c.stepDir(step)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	// os.ReadDir sorts by name, which is chronological for our timestamps
	latest := ""
	for _, entry := range entries {
		if !entry.IsDir() {
			latest = entry.Name()
		}
	}
	if latest == "" {
		return "", false, nil
	}

	return filepath.Join(dir, latest), true, nil
}

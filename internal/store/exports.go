package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportName builds a date-stamped filename such as report_2026-10-17.csv.
func ExportName(prefix string, at time.Time, ext string) string {
	return prefix + "_" + at.Format("2006-01-02") + ext
}

// SaveExport writes an exported artifact into dir.
// Returns the path to the saved file.
func SaveExport(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	return path, nil
}

// SaveJSONExport saves JSON-serializable data as <prefix>_<date>.json.
func SaveJSONExport[T any](dir, prefix string, at time.Time, data T) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}
	return SaveExport(dir, ExportName(prefix, at, ".json"), jsonData)
}

// LatestExport returns the most recent file in dir with the given prefix and extension.
func LatestExport(dir, prefix, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no %s exports in %s", prefix, dir)
		}
		return "", err
	}

	// names embed ISO dates, so lexical order is chronological
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix+"_") || !strings.HasSuffix(name, ext) {
			continue
		}
		files = append(files, name)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no %s exports in %s", prefix, dir)
	}
	sort.Strings(files)

	return filepath.Join(dir, files[len(files)-1]), nil
}

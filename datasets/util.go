package datasets

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Common locations of the spam corpus relative to the working directory.
var DefaultCSVPatterns = []string{
	"data/spam/*.csv",
	"../data/spam/*.csv",
	"../../data/spam/*.csv",
}

// FindCSV returns the first CSV file matched by patterns, tried in order.
func FindCSV(patterns []string) (string, error) {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: no CSV files found in %v", ErrInvalidData, patterns)
}

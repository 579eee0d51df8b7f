package indexer

import "strings"

// Preprocess normalizes text for indexing: runs of spaces collapse to one,
// blank lines are dropped and line breaks are kept.
func Preprocess(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

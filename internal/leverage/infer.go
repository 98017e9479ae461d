package leverage

import "strings"

// Capability and complexity inference are pure keyword classifiers over a
// candidate's descriptive text. The tables are fixed at compile time and
// scanned in declaration order, so the output is deterministic for a given
// input.

var capabilityTable = []struct {
	label    string
	keywords []string
}{
	{"solver", []string{"solve", "solver", "solution"}},
	{"O(log n)", []string{"sublinear", "logarithmic", "o(log"}},
	{"caching", []string{"cache", "caching", "memoiz"}},
	{"MCP", []string{"mcp", "model context protocol"}},
	{"API", []string{"api", "rest", "graphql"}},
	{"ML", []string{"machine learning", "neural", "model"}},
}

// fallbackCapability is returned when no keyword matches.
const fallbackCapability = "general purpose"

// InferCapabilities maps a candidate's free text to capability labels.
func InferCapabilities(text string) []string {
	lower := strings.ToLower(text)

	var labels []string
	for _, row := range capabilityTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				labels = append(labels, row.label)
				break
			}
		}
	}

	if len(labels) == 0 {
		return []string{fallbackCapability}
	}
	return labels
}

var complexityTable = []struct {
	label    string
	patterns []string
}{
	{"O(log n)", []string{"o(log", "sublinear", "logarithmic"}},
	{"O(n)", []string{"linear time", "o(n)"}},
	{"O(n²)", []string{"quadratic", "o(n^2)", "o(n2)"}},
	{"O(1)", []string{"constant time", "o(1)"}},
}

// InferComplexity maps text patterns to an asymptotic complexity label. The
// first matching row wins; ok is false when nothing matches.
func InferComplexity(text string) (label string, ok bool) {
	lower := strings.ToLower(text)

	for _, row := range complexityTable {
		for _, p := range row.patterns {
			if strings.Contains(lower, p) {
				return row.label, true
			}
		}
	}
	return "", false
}

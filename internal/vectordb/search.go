package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(results))

	for i, r := range results {
		fmt.Fprintf(&sb, "--- Result %d (similarity: %.4f) ---\n", i+1, r.Score)
		if r.Source.Filename != "" {
			fmt.Fprintf(&sb, "Document: %s (page %d)\n", r.Source.Filename, r.Source.Page)
		}
		sb.WriteString("\n")
		sb.WriteString(r.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// Sources returns the distinct sources of results in first-seen order.
func Sources(results []Result) []Source {
	seen := make(map[string]bool, len(results))
	var out []Source
	for _, r := range results {
		key := fmt.Sprintf("%s#%d", r.Source.DocumentID, r.Source.Page)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r.Source)
	}
	return out
}

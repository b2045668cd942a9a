// Package strings holds small helpers for list-valued settings.
package strings

import "strings"

// SplitList splits a comma separated setting such as KAFKA_BROKERS into its
// entries. Blank entries and repeats are dropped; first occurrence wins.
// An empty input yields nil so callers can fall back to a default.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// JoinList is the inverse of SplitList, used when a list is echoed back in
// logs or CLI output.
func JoinList(values []string) string {
	return strings.Join(values, ",")
}

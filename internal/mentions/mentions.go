// Package mentions finds @handle references in free text.
package mentions

import (
	"regexp"
	"strings"
)

var pattern = regexp.MustCompile(`@(\w+)`)

// Extract returns every handle mentioned in text, in order of appearance.
// Duplicates are kept and case is preserved.
func Extract(text string) []string {
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		handles = append(handles, m[1])
	}
	return handles
}

// Normalize lower-cases handles and drops repeats, keeping first-seen order.
func Normalize(handles []string) []string {
	seen := make(map[string]struct{}, len(handles))
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		key := strings.ToLower(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

package google

import (
	"strings"
)

// tabName returns "<prefix> <owner>" with characters Sheets rejects in titles
// replaced, capped at the title limit.
func tabName(prefix, ownerID string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', '/', '\\', ':', '\'':
			return '_'
		}
		return r
	}, strings.TrimSpace(ownerID))
	name := strings.TrimSpace(prefix + " " + clean)
	if r := []rune(name); len(r) > maxTabTitle {
		name = string(r[:maxTabTitle])
	}
	return name
}

// quoteTab quotes a tab title for use in A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

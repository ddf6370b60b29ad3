package utils

import "strings"

// FindColumnIndex finds the index of a column by any of its accepted names,
// ignoring case and surrounding space. It returns -1 when absent.
func FindColumnIndex(header []string, possibleNames ...string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

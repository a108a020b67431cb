package strings

import (
	"strings"
)

// SplitIfNotEmpty is strings.Split which returns an empty slice for an empty s.
//
// It reads comma separated query parameters, where "" means "no filter".
func SplitIfNotEmpty(s string, sep string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, sep)
}

package activity

import (
	"regexp"
	"sort"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize normalizes a list item or keyword:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// NormalizeDomain normalizes a hostname and strips a leading "www.".
func NormalizeDomain(s string) string {
	s = Normalize(s)
	s = strings.TrimSuffix(s, ".")
	return strings.TrimPrefix(s, "www.")
}

// NormalizeItems normalizes items with fn, dropping empties and duplicates.
// The result is sorted so that equal sets compare equal.
func NormalizeItems(items []string, fn func(string) string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		n := fn(item)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

// CapitalizeFirst upper-cases the first letter of s.
func CapitalizeFirst(s string) string {
	for i, r := range s {
		return strings.ToUpper(string(r)) + s[i+len(string(r)):]
	}
	return s
}

package outline

import (
	"regexp"
	"strings"
)

// headingPattern matches numbered ("2", "1.2", "3."), roman ("IV.") and
// lettered ("B.") prefixes followed by whitespace and content.
var headingPattern = regexp.MustCompile(`^(\d+(\.\d+)*\.?|[IVXLCDM]+\.|[A-Z]\.)\s+.+`)

// IsHeading reports whether text starts with a heading number or letter.
func IsHeading(text string) bool {
	return headingPattern.MatchString(text)
}

// patternLevel returns the level implied by a heading prefix: a numeric path
// with n segments maps to Hn (capped at MaxLevel), a roman numeral to H1 and
// a single letter to H2.
func patternLevel(text string) int {
	m := headingPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	prefix := m[1]
	switch {
	case prefix[0] >= '0' && prefix[0] <= '9':
		depth := strings.Count(strings.TrimSuffix(prefix, "."), ".") + 1
		return min(depth, MaxLevel)
	case len(prefix) == 2:
		// Single characters such as "I." or "C." read as letters, not numerals.
		return 2
	default:
		return 1
	}
}

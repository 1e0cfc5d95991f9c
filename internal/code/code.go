// Package code normalises and validates chart-of-accounts codes.
package code

import (
	"regexp"
	"strings"
)

var reCode = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,19}$`)

// IsCode returns true if s matches ^[A-Z0-9][A-Z0-9.\-]{0,19}$
func IsCode(s string) bool {
	return reCode.MatchString(s)
}

// Normalize trims surrounding space, upper-cases, and collapses inner
// whitespace runs into a single '-'.
func Normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(s), "-")
}

// Less orders codes the way the registry lists them: plain byte order, so
// "1000" < "1100" < "2000" and "1000.10" sorts after "1000".
func Less(a, b string) bool {
	return a < b
}

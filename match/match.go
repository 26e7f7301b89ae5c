// Package match compiles stream-name patterns into predicates. Two pattern
// dialects are supported: shell-style globs and raw regular expressions.
//
// The two dialects anchor differently on purpose: globs must match the whole
// stream name, while regex patterns use search semantics and match anywhere
// inside the name. Callers depend on this asymmetry.
package match

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternError reports a pattern that failed to compile. It is returned
// before any stream discovery or connection is attempted.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid stream pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Compile turns pattern into a predicate over stream names.
//
// When isRegex is true the pattern is compiled verbatim and tested with
// search semantics (a match anywhere in the name counts). Otherwise the
// pattern is treated as a glob: '*' matches any run of characters, '?'
// matches a single character, and the whole name must match.
//
// An empty pattern matches every name.
func Compile(pattern string, isRegex bool) (func(string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}

	expr := pattern
	if !isRegex {
		expr = "^" + globToRegexp(pattern) + "$"
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	return re.MatchString, nil
}

// globToRegexp escapes regex metacharacters, then rewrites the glob
// wildcards into their regexp equivalents.
func globToRegexp(glob string) string {
	quoted := regexp.QuoteMeta(glob)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	quoted = strings.ReplaceAll(quoted, `\?`, ".")
	return quoted
}

package reference

import (
	"regexp"

	"github.com/starford/adrlens/internal/validate"
)

// Matcher recognises record references: an optional leading character,
// the literal prefix, then the shortest run of characters on the same line
// ending in ".md". A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	prefix   string
	fallback bool
	re       *regexp.Regexp
	find     func(text string, n int) [][]int
}

// Compile builds the matcher for prefix. A prefix failing validate.Prefix
// is never compiled; validate.DefaultPrefix is used in its place and
// Fallback reports true. The prefix is always escaped, so the only
// wildcard is the span before ".md", and Go's regexp keeps the match
// linear in the size of the text.
func Compile(prefix string) *Matcher {
	used, fallback := prefix, false
	if !validate.Prefix(prefix) {
		used, fallback = validate.DefaultPrefix, true
	}
	re := regexp.MustCompile(`(.?)` + validate.EscapePattern(used) + `.+?\.md`)
	return &Matcher{
		prefix:   used,
		fallback: fallback,
		re:       re,
		find:     re.FindAllStringSubmatchIndex,
	}
}

// Prefix returns the literal prefix the matcher recognises.
func (m *Matcher) Prefix() string { return m.prefix }

// Fallback reports whether the configured prefix was replaced.
func (m *Matcher) Fallback() bool { return m.fallback }

// String returns the compiled expression.
func (m *Matcher) String() string { return m.re.String() }

// Package validate accepts, rejects and normalises the strings adrlens takes
// from users and from settings: record titles, file prefixes, directory
// names and file paths.
//
// Every check is total. Invalid input yields false (or an empty value),
// never a panic. The only error-returning function is SecureFileName,
// because a record without a usable title cannot be created at all.
package validate

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Length bounds.
const (
	MaxTitleLength     = 100
	MaxPrefixLength    = 20
	MaxDirectoryLength = 50
	MaxPathLength      = 500
)

// DefaultPrefix replaces any configured prefix that fails Prefix.
const DefaultPrefix = "adr_"

var (
	titleChars   = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
	identChars   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	spaceRuns    = regexp.MustCompile(`\s+`)
)

// Title reports whether s is an acceptable record title: 1 to 100
// characters drawn from letters, digits, spaces, '-' and '_'. Any control
// character rejects, tabs and newlines included.
func Title(s string) bool {
	if controlChars.MatchString(s) {
		return false
	}
	return validation.Validate(s,
		validation.Required,
		validation.Length(1, MaxTitleLength),
		validation.Match(titleChars),
	) == nil
}

// SanitizeTitle trims s and collapses inner whitespace runs to a single
// space. It only normalises titles that already pass Title; anything else
// is reported as not ok. A title made only of spaces normalises to nothing
// and is not ok either.
func SanitizeTitle(s string) (string, bool) {
	if !Title(s) {
		return "", false
	}
	out := spaceRuns.ReplaceAllString(strings.TrimSpace(s), " ")
	if out == "" {
		return "", false
	}
	return out, true
}

// Prefix reports whether s may be used as a record file prefix.
func Prefix(s string) bool {
	return validation.Validate(s,
		validation.Required,
		validation.Length(1, MaxPrefixLength),
		validation.Match(identChars),
	) == nil
}

// DirectoryName reports whether s may be used as the record directory name.
// Path separators are rejected, so the name is always a single segment.
func DirectoryName(s string) bool {
	return validation.Validate(s,
		validation.Required,
		validation.Length(1, MaxDirectoryLength),
		validation.Match(identChars),
	) == nil
}

// EscapePattern backslash-escapes every character with meaning in a
// regular expression so that s matches only itself.
func EscapePattern(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		switch r {
		case '.', '*', '+', '?', '^', '$', '{', '}', '(', ')', '|', '[', ']', '\\', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

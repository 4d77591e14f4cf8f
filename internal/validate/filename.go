package validate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/starford/adrlens/internal/apperr"
)

// DateLayout is the date stamp used in record file names.
const DateLayout = "20060102"

// DateStamp matches an explicit YYYYMMDD date stamp.
var DateStamp = regexp.MustCompile(`^[0-9]{8}$`)

// now is the clock used when a date stamp has to be substituted.
var now = time.Now

// Today returns the current local date as YYYYMMDD.
func Today() string {
	return now().Format(DateLayout)
}

// SecureFileName builds "<prefix><title>_<date>.md".
//
// The title is sanitised and its spaces become underscores; an unusable
// title is an error wrapping apperr.ErrInvalidTitle. An invalid prefix is
// replaced with DefaultPrefix and a date that is not eight digits with
// Today, since both have safe substitutes.
func SecureFileName(title, prefix, date string) (string, error) {
	clean, ok := SanitizeTitle(title)
	if !ok {
		return "", fmt.Errorf("validate: %q: %w", truncate(title, 40), apperr.ErrInvalidTitle)
	}
	if !Prefix(prefix) {
		prefix = DefaultPrefix
	}
	if !DateStamp.MatchString(date) {
		date = Today()
	}
	return prefix + spaceRuns.ReplaceAllString(clean, "_") + "_" + date + ".md", nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

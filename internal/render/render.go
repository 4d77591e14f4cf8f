// Package render prints scan results and record listings for the CLI.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/starford/adrlens/internal/models"
	"github.com/starford/adrlens/internal/reference"
)

// ColorEnabled reports whether output to f should be colored: f is a
// terminal and the user did not ask for plain output.
func ColorEnabled(f *os.File, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type scheme struct {
	path     *color.Color
	position *color.Color
	resolved *color.Color
	missing  *color.Color
	dim      *color.Color
	status   *color.Color
}

func newScheme(enabled bool) *scheme {
	s := &scheme{
		path:     color.New(color.Bold),
		position: color.New(color.FgHiBlack),
		resolved: color.New(color.FgGreen),
		missing:  color.New(color.FgRed),
		dim:      color.New(color.FgHiBlack),
		status:   color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{s.path, s.position, s.resolved, s.missing, s.dim, s.status} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// Matches writes one line per resolution of the file at path:
//
//	docs/design.md:3:5  adr_cache.md -> adr/adr_cache_20240101.md
//
// Lines and columns are printed 1-based.
func Matches(w io.Writer, path string, res []reference.Resolution, enabled bool) error {
	s := newScheme(enabled)
	if len(res) == 0 {
		_, err := fmt.Fprintf(w, "%s: %s\n", s.path.Sprint(path), s.dim.Sprint("no references"))
		return err
	}
	for _, r := range res {
		pos := s.position.Sprintf(":%d:%d", r.Match.Line+1, r.Match.ColumnStart+r.Match.Lead+1)
		target := s.missing.Sprint("not found")
		if r.Found() {
			target = s.resolved.Sprint(string(r.Target))
		}
		if _, err := fmt.Fprintf(w, "%s%s  %s -> %s\n", s.path.Sprint(path), pos, r.Match.Reference(), target); err != nil {
			return err
		}
	}
	return nil
}

// Records writes the records as an aligned table of path, status and title.
func Records(w io.Writer, recs []models.RecordSummary, enabled bool) error {
	s := newScheme(enabled)
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, s.dim.Sprint("no records"))
		return err
	}
	pathWidth, statusWidth := 0, 0
	for _, r := range recs {
		pathWidth = max(pathWidth, len(r.Path))
		statusWidth = max(statusWidth, len(r.Status))
	}
	for _, r := range recs {
		status := r.Status
		if status == "" {
			status = "-"
		}
		line := s.path.Sprint(pad(r.Path, pathWidth)) + "  " +
			s.status.Sprint(pad(status, statusWidth)) + "  " + r.Title
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

// Names writes one name per line, marking current.
func Names(w io.Writer, names []string, current string, enabled bool) error {
	s := newScheme(enabled)
	for _, n := range names {
		line := "  " + n
		if n == current {
			line = "* " + s.resolved.Sprint(n)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

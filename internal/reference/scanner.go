package reference

import (
	"fmt"
	"log/slog"
	"strings"
)

// DefaultMaxMatches caps the matches a single scan reports.
const DefaultMaxMatches = 1000

// Match is one reference found by a scan. Offset and Length are byte
// positions in the document text; Line and the columns are 0-based and the
// column span is half-open. Lead is the byte length of the optional
// character matched before the prefix.
type Match struct {
	Offset      int    `json:"offset"`
	Length      int    `json:"length"`
	Text        string `json:"text"`
	Line        int    `json:"line"`
	ColumnStart int    `json:"column_start"`
	ColumnEnd   int    `json:"column_end"`
	Lead        int    `json:"lead"`
}

// Reference returns the matched text from the prefix onward.
func (m Match) Reference() string {
	if m.Lead <= 0 || m.Lead > len(m.Text) {
		return m.Text
	}
	return m.Text[m.Lead:]
}

// Scanner finds references in documents.
type Scanner struct {
	maxMatches int
	logger     *slog.Logger
}

// NewScanner returns a scanner reporting at most maxMatches matches per
// document; a non-positive value means DefaultMaxMatches.
func NewScanner(maxMatches int, logger *slog.Logger) *Scanner {
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{maxMatches: maxMatches, logger: logger}
}

// MaxMatches returns the per-scan ceiling.
func (s *Scanner) MaxMatches() int { return s.maxMatches }

// Scan returns the references to m in doc, top to bottom and left to right.
//
// Text without the literal prefix returns nil without running the
// expression. A match whose line cannot be located is dropped; a failing
// line lookup ends the scan with the matches gathered so far.
func (s *Scanner) Scan(doc Document, m *Matcher) (out []Match) {
	text := doc.Text()
	if m == nil || !strings.Contains(text, m.prefix) {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("scan: aborted",
				slog.String("key", doc.Key()),
				slog.String("error", fmt.Sprint(r)),
				slog.Int("kept", len(out)))
		}
	}()

	locs := m.find(text, s.maxMatches)
	out = make([]Match, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		line, err := doc.LineAt(start)
		if err != nil {
			s.logger.Warn("scan: line lookup failed",
				slog.String("key", doc.Key()),
				slog.Int("offset", start),
				slog.String("error", err.Error()))
			return out
		}
		matched := text[start:end]
		col := start - line.Start
		if col < 0 || col+len(matched) > len(line.Text) || line.Text[col:col+len(matched)] != matched {
			s.logger.Debug("scan: match dropped",
				slog.String("key", doc.Key()),
				slog.Int("offset", start),
				slog.Int("line", line.Number))
			continue
		}
		out = append(out, Match{
			Offset:      start,
			Length:      end - start,
			Text:        matched,
			Line:        line.Number,
			ColumnStart: col,
			ColumnEnd:   col + len(matched),
			Lead:        loc[3] - loc[2],
		})
	}
	return out
}

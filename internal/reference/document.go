package reference

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOffsetOutOfRange is returned by LineAt for offsets outside the text.
var ErrOffsetOutOfRange = errors.New("reference: offset out of range")

// Line is one line of a document. Number is 0-based, Start is the byte
// offset of its first character and Text excludes the line terminator.
type Line struct {
	Number int
	Start  int
	Text   string
}

// Document is a versioned text buffer owned by the caller. Version must
// change whenever Text does.
type Document interface {
	Key() string
	Version() int64
	Text() string
	LineAt(offset int) (Line, error)
}

// TextDocument is an immutable in-memory Document.
type TextDocument struct {
	key     string
	version int64
	text    string
	starts  []int
}

// NewTextDocument indexes the line starts of text.
func NewTextDocument(key string, version int64, text string) *TextDocument {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &TextDocument{key: key, version: version, text: text, starts: starts}
}

func (d *TextDocument) Key() string    { return d.key }
func (d *TextDocument) Version() int64 { return d.version }
func (d *TextDocument) Text() string   { return d.text }

// LineCount returns the number of lines, counting a trailing empty line.
func (d *TextDocument) LineCount() int { return len(d.starts) }

// LineAt returns the line containing the byte at offset.
func (d *TextDocument) LineAt(offset int) (Line, error) {
	if offset < 0 || offset > len(d.text) {
		return Line{}, fmt.Errorf("%w: %d", ErrOffsetOutOfRange, offset)
	}
	n := sort.Search(len(d.starts), func(i int) bool { return d.starts[i] > offset }) - 1
	start := d.starts[n]
	end := len(d.text)
	if n+1 < len(d.starts) {
		end = d.starts[n+1] - 1
	}
	return Line{
		Number: n,
		Start:  start,
		Text:   strings.TrimSuffix(d.text[start:end], "\r"),
	}, nil
}

// FileKey is the cache key of the vault file at path.
func FileKey(path string) string { return "file:" + path }

// BufferKey is the cache key of a client buffer named key.
func BufferKey(key string) string { return "buf:" + key }

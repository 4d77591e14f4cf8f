// Package storage defines the vault file-system abstraction.
package storage

import (
	"strings"

	"github.com/starford/adrlens/internal/models"
)

// Provider is the interface for vault file operations. Paths are relative to
// the vault root and use forward slashes.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Records returns the .md files under dir whose base name contains
	// prefix, compared case-insensitively.
	Records(dir, prefix string) ([]models.FileMetadata, error)
	// Stat returns metadata for the file at path.
	Stat(path string) (models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Exists reports whether a file is present at path.
	Exists(path string) (bool, error)
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute vault root.
	Root() string
}

// IsRecordName reports whether a file base name designates a record: a
// Markdown file whose name contains prefix, ignoring case.
func IsRecordName(name, prefix string) bool {
	return strings.HasSuffix(name, ".md") &&
		strings.Contains(strings.ToLower(name), strings.ToLower(prefix))
}

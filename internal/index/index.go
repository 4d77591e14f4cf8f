package index

import "github.com/starford/adrlens/internal/models"

// RecordIndex defines the index operations the services depend on.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with fakes.
type RecordIndex interface {
	UpsertFile(f FileRow, rec *RecordRow, refs []models.Ref) error
	DeleteFile(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	ListRecords() ([]models.RecordSummary, error)
	GetRecord(path string) (models.RecordSummary, error)
	RefsFrom(source string) ([]models.Ref, error)
	Backlinks(recordPath string) ([]models.Ref, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies RecordIndex at compile time.
var _ RecordIndex = (*DB)(nil)

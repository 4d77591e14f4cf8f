// Package recordservice coordinates storage, index, templates and the
// reference engine for decision records.
package recordservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/starford/adrlens/internal/apperr"
	"github.com/starford/adrlens/internal/checksum"
	"github.com/starford/adrlens/internal/index"
	"github.com/starford/adrlens/internal/models"
	"github.com/starford/adrlens/internal/parser"
	"github.com/starford/adrlens/internal/reference"
	"github.com/starford/adrlens/internal/storage"
	"github.com/starford/adrlens/internal/template"
	"github.com/starford/adrlens/internal/validate"
)

// LockFile is the vault-relative name of the lock taken around record
// creation.
const LockFile = ".adrlens.lock"

const lockRetry = 50 * time.Millisecond

// RecordDetail is the full representation of a record.
type RecordDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Status      string         `json:"status,omitempty"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []models.Ref   `json:"backlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateRequest describes a record to create. Dir is the vault-relative
// directory or file the user picked; Date is an optional YYYYMMDD stamp.
type CreateRequest struct {
	Title string
	Dir   string
	Date  string
}

// FileReferences is the scan result for one vault file.
type FileReferences struct {
	Path        string                 `json:"path"`
	Resolutions []reference.Resolution `json:"references"`
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       index.RecordIndex
	engine   *reference.Engine
	picker   template.Picker
	logger   *slog.Logger
	lockPath string
	sem      chan struct{}
}

// NewService creates a new record service.
func NewService(store storage.Provider, db index.RecordIndex, engine *reference.Engine, picker template.Picker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if picker.Logger == nil {
		picker.Logger = logger
	}
	return &Service{
		store:    store,
		db:       db,
		engine:   engine,
		picker:   picker,
		logger:   logger,
		lockPath: filepath.Join(store.Root(), LockFile),
		sem:      make(chan struct{}, 1),
	}
}

// Engine returns the reference engine the service scans with.
func (s *Service) Engine() *reference.Engine { return s.engine }

// TargetDir returns the directory a record created from base goes into.
// When base names a file (a dot after the first character of its last
// segment) its parent is used. dirName is appended unless the last
// segment already equals it.
func TargetDir(base, dirName string) (string, error) {
	if !validate.DirectoryName(dirName) {
		return "", fmt.Errorf("recordservice: directory %q: %w", dirName, apperr.ErrUnsafeDirectory)
	}
	cleaned := strings.Trim(path.Clean("/"+validate.NormalizePath(base)), "/")
	var segs []string
	if cleaned != "" {
		segs = strings.Split(cleaned, "/")
	}
	if n := len(segs); n > 0 && strings.Index(segs[n-1], ".") > 0 {
		segs = segs[:n-1]
	}
	if n := len(segs); n == 0 || segs[n-1] != dirName {
		segs = append(segs, dirName)
	}
	return path.Join(segs...), nil
}

// Create writes a new record from the configured template and indexes it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*RecordDetail, error) {
	title, ok := validate.SanitizeTitle(req.Title)
	if !ok {
		return nil, fmt.Errorf("recordservice: title: %w", apperr.ErrInvalidTitle)
	}
	if req.Date != "" && !validate.DateStamp.MatchString(req.Date) {
		return nil, fmt.Errorf("recordservice: date %q: %w", truncate(req.Date, 20), apperr.ErrInvalidDate)
	}
	if req.Dir != "" && !validate.FilePath(req.Dir) {
		return nil, fmt.Errorf("recordservice: dir %q: %w", req.Dir, apperr.ErrInvalidPath)
	}
	dir, err := TargetDir(req.Dir, s.engine.Settings().DirectoryName)
	if err != nil {
		return nil, err
	}
	name, err := validate.SecureFileName(title, s.engine.Matcher().Prefix(), req.Date)
	if err != nil {
		return nil, err
	}
	rel := path.Join(dir, name)

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exists, err := s.store.Exists(rel)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("recordservice: %s: %w", rel, apperr.ErrAlreadyExists)
	}

	content := []byte(template.Render(s.picker.Pick(), title))
	if err := s.store.Write(rel, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(rel, content); err != nil {
		return nil, err
	}
	s.logger.Info("record created", slog.String("path", rel))
	return s.buildDetail(rel, content)
}

// lock serialises creation within the process and across processes
// sharing the vault.
func (s *Service) lock(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("recordservice: lock %s: %w", LockFile, ctx.Err())
	}
	fl := flock.New(s.lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil || !locked {
		<-s.sem
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("recordservice: lock %s: %w", LockFile, err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("record lock release failed", slog.String("error", err.Error()))
		}
		<-s.sem
	}, nil
}

// Get reads a record from storage, parses it, and enriches it with
// backlinks from the index.
func (s *Service) Get(_ context.Context, p string) (*RecordDetail, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(p, data)
}

// List returns the current record paths. It implements reference.Lister.
func (s *Service) List(ctx context.Context) ([]reference.Candidate, error) {
	return listCandidates(ctx, s.store, s.engine.Matcher().Prefix())
}

// Records returns the indexed records.
func (s *Service) Records(_ context.Context) ([]models.RecordSummary, error) {
	recs, err := s.db.ListRecords()
	if err != nil {
		return nil, err
	}
	return nonNilSlice(recs), nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// ScanText scans a client buffer identified by key at version and
// resolves every match. Buffer keys never collide with vault files.
func (s *Service) ScanText(ctx context.Context, key string, version int64, text string) []reference.Resolution {
	return s.scan(ctx, reference.BufferKey(key), version, text)
}

func (s *Service) scan(ctx context.Context, key string, version int64, text string) []reference.Resolution {
	matches := s.engine.Scan(reference.NewTextDocument(key, version, text))
	return s.engine.ResolveAll(ctx, matches)
}

// ScanBuffer scans text that has no stable identity, bypassing the cache.
func (s *Service) ScanBuffer(ctx context.Context, text string) []reference.Resolution {
	return s.engine.ResolveAll(ctx, s.engine.ScanUncached(reference.NewTextDocument("", 0, text)))
}

// ScanFile scans a vault file. The document version is its modification
// time, so the cached result is reused until the file changes.
func (s *Service) ScanFile(ctx context.Context, p string) (*FileReferences, error) {
	meta, err := s.store.Stat(p)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return &FileReferences{
		Path:        meta.Path,
		Resolutions: s.scan(ctx, reference.FileKey(meta.Path), meta.UpdatedAt.UnixNano(), string(data)),
	}, nil
}

// ResolveText resolves free reference text to a record path.
func (s *Service) ResolveText(ctx context.Context, text string) (string, error) {
	c, ok := s.engine.ResolveText(ctx, text)
	if !ok {
		return "", fmt.Errorf("recordservice: resolve %q: %w", truncate(text, 40), apperr.ErrNotFound)
	}
	return string(c), nil
}

// IndexFile upserts path with data into the index.
func (s *Service) IndexFile(p string, data []byte) error {
	meta, err := s.store.Stat(p)
	if err != nil {
		return err
	}
	return index.IndexFile(s.db, s.engine, meta, data)
}

func (s *Service) buildDetail(p string, data []byte) (*RecordDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(p)
	if err != nil {
		return nil, err
	}
	var updated time.Time
	if meta, err := s.store.Stat(p); err == nil {
		updated = meta.UpdatedAt
	}
	return &RecordDetail{
		Path:        p,
		Title:       res.Title,
		Status:      res.Status,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   updated,
	}, nil
}

func listCandidates(ctx context.Context, store storage.Provider, prefix string) ([]reference.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metas, err := store.Records("", prefix)
	if err != nil {
		return nil, err
	}
	out := make([]reference.Candidate, len(metas))
	for i, m := range metas {
		out[i] = reference.Candidate(m.Path)
	}
	return out, nil
}

// NewEngine builds a reference engine whose candidates are the records in
// store, listed with the engine's effective prefix.
func NewEngine(store storage.Provider, settings reference.Settings, cache *reference.Cache, opts ...reference.EngineOption) *reference.Engine {
	var e *reference.Engine
	lister := reference.ListerFunc(func(ctx context.Context) ([]reference.Candidate, error) {
		return listCandidates(ctx, store, e.Matcher().Prefix())
	})
	e = reference.NewEngine(settings, cache, lister, opts...)
	return e
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool { return errors.Is(err, apperr.ErrNotFound) }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

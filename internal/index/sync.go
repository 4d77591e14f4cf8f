package index

import (
	"fmt"
	"log/slog"
	"path"
	"strconv"

	"github.com/starford/adrlens/internal/models"
	"github.com/starford/adrlens/internal/parser"
	"github.com/starford/adrlens/internal/reference"
	"github.com/starford/adrlens/internal/storage"
)

// scanKeyMeta stores the engine settings the references were computed with.
const scanKeyMeta = "scan_key"

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed, scanned and upserted
//   - files removed from disk are deleted from the index
//
// When the effective prefix or the feature switch changed since the last
// sync every file is re-indexed.
func Sync(db *DB, store storage.Provider, engine *reference.Engine, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	key := scanKey(engine)
	stored, err := db.Meta(scanKeyMeta)
	if err != nil {
		return err
	}
	force := stored != key
	if force {
		logger.Info("sync: scan settings changed, re-indexing",
			slog.String("previous", stored),
			slog.String("current", key))
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if !force && checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, engine, m, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return db.SetMeta(scanKeyMeta, key)
}

func scanKey(engine *reference.Engine) string {
	return engine.Matcher().Prefix() + "|" + strconv.FormatBool(engine.Enabled())
}

// IndexFile parses and scans data and upserts it into the DB. Only files
// whose name carries the record prefix get a record row.
func IndexFile(db RecordIndex, engine *reference.Engine, meta models.FileMetadata, data []byte) error {
	var rec *RecordRow
	if storage.IsRecordName(path.Base(meta.Path), engine.Matcher().Prefix()) {
		res, err := parser.Parse(data)
		if err != nil {
			return fmt.Errorf("index: parse %s: %w", meta.Path, err)
		}
		rec = &RecordRow{
			Title:  res.Title,
			Status: res.Status,
			Tags:   res.Tags,
			Body:   res.Body,
		}
	}

	doc := reference.NewTextDocument(reference.FileKey(meta.Path), meta.UpdatedAt.UnixNano(), string(data))
	matches := engine.ScanUncached(doc)
	refs := make([]models.Ref, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, models.Ref{
			Source:      meta.Path,
			TargetText:  m.Reference(),
			Line:        m.Line,
			ColumnStart: m.ColumnStart + m.Lead,
			ColumnEnd:   m.ColumnEnd,
		})
	}

	row := FileRow{
		Path:      meta.Path,
		Checksum:  meta.Checksum,
		UpdatedAt: meta.UpdatedAt,
	}
	return db.UpsertFile(row, rec, refs)
}

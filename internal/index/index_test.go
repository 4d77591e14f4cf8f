package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/adrlens/internal/apperr"
	"github.com/starford/adrlens/internal/models"
	"github.com/starford/adrlens/internal/reference"
	"github.com/starford/adrlens/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "adrlens-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testEngine(prefix string) *reference.Engine {
	return reference.NewEngine(reference.Settings{Prefix: prefix, Enabled: true}, nil, nil,
		reference.WithLogger(quietLogger()))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ref(source, target string, line int) models.Ref {
	return models.Ref{Source: source, TargetText: target, Line: line, ColumnStart: 0, ColumnEnd: len(target)}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"files", "records", "refs", "meta"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := FileRow{Path: "adr/adr_cache_20240101.md", Checksum: "abc123", UpdatedAt: time.Now()}
	rec := &RecordRow{Title: "Cache", Status: "accepted", Tags: []string{"perf"}, Body: "We cache scans."}
	if err := db.UpsertFile(row, rec, nil); err != nil {
		t.Fatalf("UpsertFile: %v", err)
	}
	cs, err := db.GetChecksum(row.Path)
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetRecord(row.Path)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Title != "Cache" || got.Status != "accepted" {
		t.Errorf("record = %+v", got)
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(FileRow{Path: "notes.md", Checksum: "1", UpdatedAt: time.Now()}, nil, nil)

	if _, err := db.GetRecord("notes.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("plain file: err = %v, want ErrNotFound", err)
	}
	if _, err := db.GetRecord("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}
}

func TestListRecords(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertFile(FileRow{Path: "b/adr_b.md", Checksum: "1", UpdatedAt: now}, &RecordRow{Title: "B"}, nil)
	_ = db.UpsertFile(FileRow{Path: "a/adr_a.md", Checksum: "2", UpdatedAt: now}, &RecordRow{Title: "A"}, nil)
	_ = db.UpsertFile(FileRow{Path: "readme.md", Checksum: "3", UpdatedAt: now}, nil, nil)

	recs, err := db.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(recs) != 2 || recs[0].Path != "a/adr_a.md" || recs[1].Path != "b/adr_b.md" {
		t.Fatalf("records = %+v", recs)
	}
	if recs[0].UpdatedAt.IsZero() {
		t.Error("updated_at not populated")
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	target := "adr/adr_cache_20240101.md"
	_ = db.UpsertFile(FileRow{Path: target, Checksum: "t", UpdatedAt: now}, &RecordRow{Title: "Cache"},
		[]models.Ref{ref(target, "adr_cache_20240101.md", 0)})
	_ = db.UpsertFile(FileRow{Path: "a.md", Checksum: "1", UpdatedAt: now}, nil,
		[]models.Ref{ref("a.md", "adr_cache_20240101.md", 3)})
	_ = db.UpsertFile(FileRow{Path: "c.md", Checksum: "2", UpdatedAt: now}, nil,
		[]models.Ref{ref("c.md", "adr_cache_20240101.md", 1), ref("c.md", "adr_other.md", 2)})

	bl, err := db.Backlinks(target)
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("expected 2 backlinks, got %d: %+v", len(bl), bl)
	}
	if bl[0].Source != "a.md" || bl[0].Line != 3 || bl[1].Source != "c.md" {
		t.Errorf("backlinks = %+v", bl)
	}
}

func TestDeleteFile(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(FileRow{Path: "adr_del.md", Checksum: "x", UpdatedAt: time.Now()}, &RecordRow{Title: "Del"},
		[]models.Ref{ref("adr_del.md", "adr_target.md", 0)})

	if err := db.DeleteFile("adr_del.md"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	cs, _ := db.GetChecksum("adr_del.md")
	if cs != "" {
		t.Errorf("deleted file still has checksum %q", cs)
	}
	refs, _ := db.RefsFrom("adr_del.md")
	if len(refs) != 0 {
		t.Errorf("expected 0 refs after delete, got %d", len(refs))
	}
	recs, _ := db.ListRecords()
	if len(recs) != 0 {
		t.Errorf("expected no records after delete, got %+v", recs)
	}
}

func TestUpsertReplacesRefs(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertFile(FileRow{Path: "up.md", Checksum: "1", UpdatedAt: now}, nil, []models.Ref{ref("up.md", "adr_x.md", 0)})
	_ = db.UpsertFile(FileRow{Path: "up.md", Checksum: "2", UpdatedAt: now}, nil, []models.Ref{ref("up.md", "adr_y.md", 4)})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	refs, _ := db.RefsFrom("up.md")
	if len(refs) != 1 || refs[0].TargetText != "adr_y.md" || refs[0].Line != 4 {
		t.Errorf("refs = %+v", refs)
	}
}

func TestUpsertDemotesRecord(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertFile(FileRow{Path: "adr_x.md", Checksum: "1", UpdatedAt: now}, &RecordRow{Title: "X"}, nil)
	_ = db.UpsertFile(FileRow{Path: "adr_x.md", Checksum: "2", UpdatedAt: now}, nil, nil)

	if _, err := db.GetRecord("adr_x.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("record row should be gone, err = %v", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertFile(FileRow{Path: "adr_s.md", Checksum: "1", UpdatedAt: time.Now()},
		&RecordRow{Title: "Search Me", Body: "uniqueword appears here"}, nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "adr_s.md" {
		t.Errorf("search results = %+v, want 1 hit for adr_s.md", results)
	}
}

func TestMeta(t *testing.T) {
	db := testDB(t)
	v, err := db.Meta("k")
	if err != nil || v != "" {
		t.Fatalf("Meta unset = %q, %v", v, err)
	}
	_ = db.SetMeta("k", "one")
	_ = db.SetMeta("k", "two")
	if v, _ := db.Meta("k"); v != "two" {
		t.Errorf("Meta = %q, want two", v)
	}
}

func syncEnv(t *testing.T) (storage.Provider, *DB) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store, testDB(t)
}

func TestSync_IndexesRecordsAndRefs(t *testing.T) {
	store, db := syncEnv(t)
	_ = store.Write("docs/adr/adr_cache_20240101.md", []byte("# Cache scans\n\n* **Status** : Accepted\n"))
	_ = store.Write("docs/design.md", []byte("# Design\n\nSee adr_cache_20240101.md for caching.\n"))
	_ = store.Write("notes.txt", []byte("adr_cache_20240101.md"))

	if err := Sync(db, store, testEngine("adr_"), quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	recs, _ := db.ListRecords()
	if len(recs) != 1 || recs[0].Title != "Cache scans" || recs[0].Status != "Accepted" {
		t.Fatalf("records = %+v", recs)
	}

	refs, _ := db.RefsFrom("docs/design.md")
	if len(refs) != 1 {
		t.Fatalf("refs = %+v", refs)
	}
	if refs[0].TargetText != "adr_cache_20240101.md" || refs[0].Line != 2 || refs[0].ColumnStart != 4 {
		t.Errorf("ref = %+v", refs[0])
	}

	bl, _ := db.Backlinks("docs/adr/adr_cache_20240101.md")
	if len(bl) != 1 || bl[0].Source != "docs/design.md" {
		t.Errorf("backlinks = %+v", bl)
	}
}

func TestSync_RemovesStale(t *testing.T) {
	store, db := syncEnv(t)
	_ = store.Write("adr_gone.md", []byte("# Gone"))
	engine := testEngine("adr_")
	_ = Sync(db, store, engine, quietLogger())

	_ = store.Delete("adr_gone.md")
	_ = Sync(db, store, engine, quietLogger())

	if cs, _ := db.GetChecksum("adr_gone.md"); cs != "" {
		t.Error("stale file still indexed")
	}
}

func TestSync_PrefixChangeReindexes(t *testing.T) {
	store, db := syncEnv(t)
	_ = store.Write("dec-one.md", []byte("# One"))
	_ = store.Write("index.md", []byte("see dec-one.md"))

	_ = Sync(db, store, testEngine("adr_"), quietLogger())
	if recs, _ := db.ListRecords(); len(recs) != 0 {
		t.Fatalf("no records expected under adr_, got %+v", recs)
	}

	_ = Sync(db, store, testEngine("dec-"), quietLogger())
	recs, _ := db.ListRecords()
	if len(recs) != 1 || recs[0].Path != "dec-one.md" {
		t.Fatalf("records after prefix change = %+v", recs)
	}
	if refs, _ := db.RefsFrom("index.md"); len(refs) != 1 {
		t.Errorf("refs after prefix change = %+v", refs)
	}
}

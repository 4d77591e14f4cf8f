package recordservice

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/adrlens/internal/apperr"
	"github.com/starford/adrlens/internal/index"
	"github.com/starford/adrlens/internal/reference"
	"github.com/starford/adrlens/internal/storage"
	"github.com/starford/adrlens/internal/template"
)

type env struct {
	svc   *Service
	store *storage.FS
	db    *index.DB
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newEnv(t *testing.T, settings reference.Settings) env {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)

	db, err := index.Open(filepath.Join(t.TempDir(), "adrlens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine := NewEngine(store, settings, nil, reference.WithLogger(quiet()))
	svc := NewService(store, db, engine, template.Picker{Name: template.DefaultEnglish}, quiet())
	return env{svc: svc, store: store, db: db}
}

func defaults() reference.Settings {
	return reference.Settings{Prefix: "adr_", Enabled: true, DirectoryName: "adr"}
}

func TestTargetDir(t *testing.T) {
	cases := []struct {
		base, want string
	}{
		{"", "adr"},
		{"docs", "docs/adr"},
		{"docs/adr", "docs/adr"},
		{"docs/adr/", "docs/adr"},
		{"docs/readme.md", "docs/adr"},
		{"docs/.github", "docs/.github/adr"},
		{`docs\arch`, "docs/arch/adr"},
	}
	for _, tc := range cases {
		got, err := TargetDir(tc.base, "adr")
		require.NoError(t, err, tc.base)
		assert.Equal(t, tc.want, got, tc.base)
	}
}

func TestTargetDir_UnsafeName(t *testing.T) {
	for _, name := range []string{"", "../x", "a/b", "has space"} {
		_, err := TargetDir("docs", name)
		assert.ErrorIs(t, err, apperr.ErrUnsafeDirectory, name)
	}
}

func TestCreate(t *testing.T) {
	e := newEnv(t, defaults())
	ctx := context.Background()

	rec, err := e.svc.Create(ctx, CreateRequest{Title: "  Use   SQLite ", Dir: "docs", Date: "20240131"})
	require.NoError(t, err)

	assert.Equal(t, "docs/adr/adr_Use_SQLite_20240131.md", rec.Path)
	assert.Equal(t, "Use SQLite", rec.Title)
	assert.Contains(t, rec.Content, "# Use SQLite\n")

	ok, err := e.store.Exists(rec.Path)
	require.NoError(t, err)
	assert.True(t, ok)

	indexed, err := e.db.GetRecord(rec.Path)
	require.NoError(t, err)
	assert.Equal(t, "Use SQLite", indexed.Title)
}

func TestCreate_AlreadyExists(t *testing.T) {
	e := newEnv(t, defaults())
	req := CreateRequest{Title: "Twice", Date: "20240101"}

	_, err := e.svc.Create(context.Background(), req)
	require.NoError(t, err)
	_, err = e.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestCreate_InvalidInput(t *testing.T) {
	e := newEnv(t, defaults())
	ctx := context.Background()

	_, err := e.svc.Create(ctx, CreateRequest{Title: "bad/title"})
	assert.ErrorIs(t, err, apperr.ErrInvalidTitle)

	_, err = e.svc.Create(ctx, CreateRequest{Title: "   "})
	assert.ErrorIs(t, err, apperr.ErrInvalidTitle)

	_, err = e.svc.Create(ctx, CreateRequest{Title: "Fine", Dir: "../outside"})
	assert.ErrorIs(t, err, apperr.ErrInvalidPath)
}

func TestCreate_RejectsMalformedDate(t *testing.T) {
	e := newEnv(t, defaults())

	for _, date := range []string{"2024-01-31", "2024013", "202401311", "yyyymmdd"} {
		_, err := e.svc.Create(context.Background(), CreateRequest{Title: "Dated", Date: date})
		assert.ErrorIs(t, err, apperr.ErrInvalidDate, date)
	}

	recs, err := e.svc.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs, "nothing is written for a rejected date")
}

func TestCreate_UsesEffectivePrefix(t *testing.T) {
	s := defaults()
	s.Prefix = "not.safe"
	e := newEnv(t, s)

	rec, err := e.svc.Create(context.Background(), CreateRequest{Title: "Fallback", Date: "20240101"})
	require.NoError(t, err)
	assert.Equal(t, "adr/adr_Fallback_20240101.md", rec.Path)
}

func TestCreate_Concurrent(t *testing.T) {
	e := newEnv(t, defaults())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.Create(ctx, CreateRequest{Title: "Race", Date: "20240101"})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	}
	assert.Equal(t, 1, created)
}

func TestCreate_LockTimeout(t *testing.T) {
	e := newEnv(t, defaults())
	unlock, err := e.svc.lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = e.svc.Create(ctx, CreateRequest{Title: "Blocked"})
	assert.Error(t, err)
}

func TestGet_WithBacklinks(t *testing.T) {
	e := newEnv(t, defaults())
	ctx := context.Background()

	rec, err := e.svc.Create(ctx, CreateRequest{Title: "Cache", Date: "20240101"})
	require.NoError(t, err)

	note := []byte("# Notes\n\nsee adr_Cache_20240101.md\n")
	require.NoError(t, e.store.Write("notes.md", note))
	require.NoError(t, e.svc.IndexFile("notes.md", note))

	got, err := e.svc.Get(ctx, rec.Path)
	require.NoError(t, err)
	require.Len(t, got.Backlinks, 1)
	assert.Equal(t, "notes.md", got.Backlinks[0].Source)
	assert.Equal(t, 2, got.Backlinks[0].Line)
	assert.NotEmpty(t, got.Checksum)
}

func TestGet_NotFound(t *testing.T) {
	e := newEnv(t, defaults())
	_, err := e.svc.Get(context.Background(), "adr/missing.md")
	assert.True(t, IsNotFound(err))
}

func TestList_OnlyRecords(t *testing.T) {
	e := newEnv(t, defaults())
	require.NoError(t, e.store.Write("adr/adr_one.md", []byte("# One")))
	require.NoError(t, e.store.Write("adr/ADR_two.md", []byte("# Two")))
	require.NoError(t, e.store.Write("readme.md", []byte("# Readme")))

	got, err := e.svc.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []reference.Candidate{"adr/adr_one.md", "adr/ADR_two.md"}, got)
}

func TestScanFile(t *testing.T) {
	e := newEnv(t, defaults())
	require.NoError(t, e.store.Write("adr/adr_cache.md", []byte("# Cache")))
	require.NoError(t, e.store.Write("design.md", []byte("uses adr_cache.md\nand adr_gone.md\n")))

	res, err := e.svc.ScanFile(context.Background(), "design.md")
	require.NoError(t, err)
	require.Len(t, res.Resolutions, 2)

	assert.Equal(t, reference.Resolved, res.Resolutions[0].State)
	assert.Equal(t, reference.Candidate("adr/adr_cache.md"), res.Resolutions[0].Target)
	assert.Equal(t, reference.NotFound, res.Resolutions[1].State)
	assert.Equal(t, 1, res.Resolutions[1].Match.Line)

	assert.Equal(t, 1, e.svc.Engine().Cache().Len())
}

func TestScanText_DoesNotShadowVaultFile(t *testing.T) {
	e := newEnv(t, defaults())
	ctx := context.Background()
	require.NoError(t, e.store.Write("design.md", []byte("uses adr_cache.md\nand adr_gone.md\n")))
	meta, err := e.store.Stat("design.md")
	require.NoError(t, err)

	buf := e.svc.ScanText(ctx, "design.md", meta.UpdatedAt.UnixNano(), "nothing to see")
	assert.Empty(t, buf)

	res, err := e.svc.ScanFile(ctx, "design.md")
	require.NoError(t, err)
	assert.Len(t, res.Resolutions, 2, "a buffer named like a vault file has its own cache entry")
	assert.Equal(t, 2, e.svc.Engine().Cache().Len())
}

func TestScanText_Disabled(t *testing.T) {
	s := defaults()
	s.Enabled = false
	e := newEnv(t, s)

	res := e.svc.ScanText(context.Background(), "buffer", 1, "adr_x.md")
	assert.Empty(t, res)
	assert.NotNil(t, res)
}

func TestResolveText(t *testing.T) {
	e := newEnv(t, defaults())
	require.NoError(t, e.store.Write("adr/adr_queue_20240101.md", []byte("# Queue")))

	got, err := e.svc.ResolveText(context.Background(), "  adr_queue ")
	require.NoError(t, err)
	assert.Equal(t, "adr/adr_queue_20240101.md", got)

	_, err = e.svc.ResolveText(context.Background(), "adr_nothing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecordsAndSearch(t *testing.T) {
	e := newEnv(t, defaults())
	ctx := context.Background()
	_, err := e.svc.Create(ctx, CreateRequest{Title: "Event sourcing", Date: "20240101"})
	require.NoError(t, err)

	recs, err := e.svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Event sourcing", recs[0].Title)

	hits, err := e.svc.Search(ctx, "nomatchword", 10)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestLockFileIsHidden(t *testing.T) {
	e := newEnv(t, defaults())
	_, err := e.svc.Create(context.Background(), CreateRequest{Title: "Lock", Date: "20240101"})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(e.store.Root(), LockFile))
	require.NoError(t, err)

	metas, err := e.store.List("")
	require.NoError(t, err)
	for _, m := range metas {
		assert.NotEqual(t, LockFile, m.Path)
	}
}

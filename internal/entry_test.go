package internal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/adrlens/internal/recordservice"
)

func testCore(t *testing.T) (*Core, *Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	cfg.Records.Template = "default-en"

	core, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { core.Close() })
	return core, cfg
}

func TestOpen_CreateAndResolve(t *testing.T) {
	core, _ := testCore(t)
	ctx := context.Background()

	rec, err := core.Records.Create(ctx, recordservice.CreateRequest{Title: "Use Chi", Date: "20240105"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Path != "adr/adr_Use_Chi_20240105.md" {
		t.Fatalf("path = %q", rec.Path)
	}

	got, err := core.Records.ResolveText(ctx, "adr_Use_Chi")
	if err != nil || got != rec.Path {
		t.Errorf("ResolveText = %q, %v", got, err)
	}
	if !core.IsRecord(rec.Path) {
		t.Errorf("IsRecord(%q) = false", rec.Path)
	}
	if core.IsRecord("notes/readme.md") {
		t.Error("IsRecord(notes/readme.md) = true")
	}
	if err := core.DB.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestCore_Reload(t *testing.T) {
	core, cfg := testCore(t)
	ctx := context.Background()

	if err := core.Store.Write("adr/dec_queue.md", []byte("# Queue")); err != nil {
		t.Fatal(err)
	}
	if err := core.Store.Write("notes.md", []byte("see dec_queue.md\n")); err != nil {
		t.Fatal(err)
	}

	if _, err := core.Records.ResolveText(ctx, "dec_queue"); !recordservice.IsNotFound(err) {
		t.Fatalf("before reload: err = %v, want not found", err)
	}

	next := *cfg
	next.Records.Prefix = "dec_"
	if err := core.Reload(&next); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if p := core.Engine.Matcher().Prefix(); p != "dec_" {
		t.Errorf("prefix = %q", p)
	}
	got, err := core.Records.ResolveText(ctx, "dec_queue")
	if err != nil || got != "adr/dec_queue.md" {
		t.Errorf("ResolveText after reload = %q, %v", got, err)
	}
	if !core.IsRecord("adr/dec_queue.md") {
		t.Error("record not recognised under the new prefix")
	}
}

// Package testutil provides shared test helpers for setting up vaults,
// databases and a wired record service.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/adrlens/internal/index"
	"github.com/starford/adrlens/internal/recordservice"
	"github.com/starford/adrlens/internal/reference"
	"github.com/starford/adrlens/internal/storage"
	"github.com/starford/adrlens/internal/template"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "adrlens-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DefaultSettings are the engine settings of a fresh configuration.
func DefaultSettings() reference.Settings {
	return reference.Settings{Prefix: "adr_", Enabled: true, DirectoryName: "adr"}
}

// TestService wires a record service over a temporary vault and index
// with the English default template.
func TestService(t *testing.T, settings reference.Settings) (*recordservice.Service, storage.Provider) {
	t.Helper()
	_, store := TestVault(t)
	db := TestDB(t)
	engine := recordservice.NewEngine(store, settings, nil, reference.WithLogger(QuietLogger()))
	svc := recordservice.NewService(store, db, engine,
		template.Picker{Name: template.DefaultEnglish}, QuietLogger())
	return svc, store
}

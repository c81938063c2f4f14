package sources

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattsolo1/grove-workitems/pkg/models"
)

func TestNewRegistry(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")

	reg, err := NewRegistry(dataDir)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	if reg.dataDir != dataDir {
		t.Errorf("Expected dataDir %s, got %s", dataDir, reg.dataDir)
	}

	// Check if database file was created
	dbFile := filepath.Join(dataDir, "sources.db")
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		t.Error("Expected database file to be created")
	}
}

func TestAddAndGetSource(t *testing.T) {
	reg, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	src := models.SourceConfig{
		Name:       "onprem",
		Instance:   "tfs.local",
		Collection: "Main",
		Port:       8081,
		Scheme:     "http",
	}
	if err := reg.Add(src); err != nil {
		t.Fatalf("Failed to add source: %v", err)
	}

	retrieved, err := reg.Get("onprem")
	if err != nil {
		t.Fatalf("Failed to get source: %v", err)
	}

	if retrieved.Type != models.SourceTypeServer {
		t.Errorf("Expected type %s, got %s", models.SourceTypeServer, retrieved.Type)
	}
	if retrieved.Instance != "tfs.local" || retrieved.Collection != "Main" || retrieved.Port != 8081 {
		t.Errorf("Unexpected source fields: %+v", retrieved)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}

	// Test Get non-existent
	_, err = reg.Get("non-existent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAddRejectsInvalidSource(t *testing.T) {
	reg, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	if err := reg.Add(models.SourceConfig{Name: "empty", Type: models.SourceTypeServices}); err == nil {
		t.Error("Expected error for a services source without organization")
	}
}

func TestListSourcesInInsertionOrder(t *testing.T) {
	reg, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, org := range []string{"zeta", "alpha", "mid"} {
		c := models.SourceConfig{Organization: org, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := reg.Add(c); err != nil {
			t.Fatalf("Failed to add source: %v", err)
		}
	}

	listed, err := reg.List()
	if err != nil {
		t.Fatalf("Failed to list sources: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("Expected 3 sources, got %d", len(listed))
	}
	for i, want := range []string{"zeta", "alpha", "mid"} {
		if listed[i].Name != want {
			t.Errorf("Expected source %d to be %s, got %s", i, want, listed[i].Name)
		}
	}
}

func TestRemoveSource(t *testing.T) {
	reg, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Close()

	if err := reg.Add(models.SourceConfig{Organization: "contoso"}); err != nil {
		t.Fatalf("Failed to add source: %v", err)
	}

	if err := reg.Remove("contoso"); err != nil {
		t.Fatalf("Failed to remove source: %v", err)
	}

	// Should not be able to get removed source
	if _, err := reg.Get("contoso"); err == nil {
		t.Error("Expected error when getting removed source")
	}

	if err := reg.Remove("contoso"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound removing twice, got %v", err)
	}
}

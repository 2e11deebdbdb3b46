package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/liangyou/zoodb-landing/pkg/models"
)

func newBackends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		BackendFile:   NewFileStorage(models.Config{DataDir: t.TempDir()}),
		BackendSQLite: sqlite,
		BackendMemory: NewMemoryStorage(),
	}
}

func sampleData() models.AnalyticsData {
	first := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)
	return models.AnalyticsData{
		Downloads: []models.DownloadEvent{
			{ID: "a", Platform: models.PlatformWindows, Source: models.SourceButton, Timestamp: first.Add(time.Hour)},
			{ID: "b", Platform: models.PlatformLinux, Source: models.SourceCommand, Timestamp: first.Add(2 * time.Hour)},
		},
		FirstVisit: first,
		LastVisit:  first.Add(3 * time.Hour),
		VisitCount: 4,
	}
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	for name, store := range newBackends(t) {
		if _, err := store.Load(); !errors.Is(err, ErrNoData) {
			t.Fatalf("%s: expected ErrNoData, got %v", name, err)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	for name, store := range newBackends(t) {
		want := sampleData()
		if err := store.Save(want); err != nil {
			t.Fatalf("%s: Save failed: %v", name, err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("%s: Load failed: %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s: round trip mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestAppendKeepsExistingEvents(t *testing.T) {
	t.Parallel()

	for name, store := range newBackends(t) {
		data := sampleData()
		if err := store.Save(data); err != nil {
			t.Fatalf("%s: Save failed: %v", name, err)
		}

		event := models.DownloadEvent{
			ID:        "c",
			Platform:  models.PlatformMacOS,
			Source:    models.SourceLink,
			Timestamp: data.LastVisit.Add(time.Minute),
		}
		if err := store.Append(event); err != nil {
			t.Fatalf("%s: Append failed: %v", name, err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("%s: Load failed: %v", name, err)
		}
		if len(got.Downloads) != 3 || got.Downloads[2].ID != "c" {
			t.Fatalf("%s: unexpected downloads after append: %#v", name, got.Downloads)
		}
		if got.VisitCount != data.VisitCount {
			t.Fatalf("%s: append changed visit count to %d", name, got.VisitCount)
		}
	}
}

func TestSaveReplacesDownloads(t *testing.T) {
	t.Parallel()

	for name, store := range newBackends(t) {
		if err := store.Save(sampleData()); err != nil {
			t.Fatalf("%s: Save failed: %v", name, err)
		}
		cleared := models.AnalyticsData{Downloads: []models.DownloadEvent{}, VisitCount: 1}
		if err := store.Save(cleared); err != nil {
			t.Fatalf("%s: Save failed: %v", name, err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("%s: Load failed: %v", name, err)
		}
		if len(got.Downloads) != 0 || got.VisitCount != 1 {
			t.Fatalf("%s: expected cleared data, got %#v", name, got)
		}
	}
}

func TestFileStorageCorruptData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStorage(models.Config{DataDir: dir})
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := store.Load()
	if err == nil || errors.Is(err, ErrNoData) {
		t.Fatalf("expected decode error, got %v", err)
	}

	if err := store.Append(models.DownloadEvent{ID: "x"}); err == nil {
		t.Fatalf("expected append to surface decode error")
	}
}

func TestFileStorageEmptyFile(t *testing.T) {
	t.Parallel()

	store := NewFileStorage(models.Config{DataDir: t.TempDir()})
	if err := os.WriteFile(store.Path(), nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestSQLiteStoragePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "analytics.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	if err := store.Save(sampleData()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(sampleData(), got); diff != "" {
		t.Fatalf("reopen mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStorageIsolation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	data := sampleData()
	if err := store.Save(data); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data.Downloads[0].ID = "mutated"

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Downloads[0].ID != "a" {
		t.Fatalf("caller mutation leaked into store: %q", got.Downloads[0].ID)
	}
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{"", "*storage.FileStorage", false},
		{"file", "*storage.FileStorage", false},
		{"SQLite", "*storage.SQLiteStorage", false},
		{"memory", "*storage.MemoryStorage", false},
		{"redis", "", true},
	}

	for _, tt := range tests {
		cfg := models.Config{DataDir: t.TempDir(), Analytics: models.AnalyticsConfig{Backend: tt.backend}}
		store, err := NewStore(cfg)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("backend %q: expected error", tt.backend)
			}
			continue
		}
		if err != nil {
			t.Fatalf("backend %q: NewStore failed: %v", tt.backend, err)
		}
		if got := typeName(store); got != tt.want {
			t.Fatalf("backend %q: expected %s, got %s", tt.backend, tt.want, got)
		}
		store.Close()
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *FileStorage:
		return "*storage.FileStorage"
	case *SQLiteStorage:
		return "*storage.SQLiteStorage"
	case *MemoryStorage:
		return "*storage.MemoryStorage"
	default:
		return "unknown"
	}
}

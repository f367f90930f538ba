package tour

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRegistryRegisterAndListActive(t *testing.T) {
	rr := NewResourceRegistry("")
	rr.Register(ResourceEntry{Kind: KindInstance, ID: "i-0123456789abcdef0", RunID: "run1", CreatedAt: time.Now()})
	rr.Register(ResourceEntry{Kind: KindBucket, ID: "cloudtour-bucket-x", RunID: "run1", CreatedAt: time.Now()})

	if active := rr.ListActive(""); len(active) != 2 {
		t.Fatalf("expected 2 active, got %d", len(active))
	}
	buckets := rr.ListActive(KindBucket)
	if len(buckets) != 1 || buckets[0].ID != "cloudtour-bucket-x" {
		t.Fatalf("expected only the bucket, got %+v", buckets)
	}
}

func TestRegistryMarkCleanedUp(t *testing.T) {
	rr := NewResourceRegistry("")
	rr.Register(ResourceEntry{Kind: KindQueue, ID: "http://localhost/123456789012/q.fifo", CreatedAt: time.Now()})

	if err := rr.MarkCleanedUp(KindQueue, "http://localhost/123456789012/q.fifo"); err != nil {
		t.Fatalf("MarkCleanedUp failed: %v", err)
	}
	if active := rr.ListActive(""); len(active) != 0 {
		t.Fatalf("expected 0 active after cleanup, got %d", len(active))
	}
	// Should still be in ListAll
	if all := rr.ListAll(); len(all) != 1 {
		t.Fatalf("expected 1 total, got %d", len(all))
	}
	// unknown entries are ignored
	if err := rr.MarkCleanedUp(KindQueue, "missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistrySameIDDifferentKind(t *testing.T) {
	rr := NewResourceRegistry("")
	rr.Register(ResourceEntry{Kind: KindKeyPair, ID: "cloudtour", CreatedAt: time.Now()})
	rr.Register(ResourceEntry{Kind: KindFile, ID: "cloudtour", CreatedAt: time.Now()})
	rr.MarkCleanedUp(KindFile, "cloudtour")

	active := rr.ListActive("")
	if len(active) != 1 || active[0].Kind != KindKeyPair {
		t.Fatalf("expected only the key pair to stay active, got %+v", active)
	}
}

func TestRegistryOrdering(t *testing.T) {
	rr := NewResourceRegistry("")
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	rr.Register(ResourceEntry{Kind: KindQueue, ID: "q", CreatedAt: base.Add(2 * time.Second)})
	rr.Register(ResourceEntry{Kind: KindInstance, ID: "i", CreatedAt: base})
	rr.Register(ResourceEntry{Kind: KindBucket, ID: "b", CreatedAt: base.Add(time.Second)})

	all := rr.ListAll()
	if all[0].ID != "i" || all[1].ID != "b" || all[2].ID != "q" {
		t.Fatalf("expected oldest first, got %+v", all)
	}
}

func TestRegistrySaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	rr := NewResourceRegistry(path)
	rr.Register(ResourceEntry{
		Kind:      KindBucket,
		ID:        "cloudtour-bucket-abc",
		Name:      "cloudtour-bucket-abc",
		RunID:     "deadbeef",
		CreatedAt: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	})

	if err := rr.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("registry file not found: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected no .tmp file, got: %v", err)
	}

	rr2 := NewResourceRegistry(path)
	if err := rr2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	active := rr2.ListActive("")
	if len(active) != 1 {
		t.Fatalf("expected 1 active after load, got %d", len(active))
	}
	if active[0].RunID != "deadbeef" {
		t.Errorf("expected run deadbeef, got %s", active[0].RunID)
	}
}

func TestRegistryLoadNonExistent(t *testing.T) {
	rr := NewResourceRegistry("/nonexistent/path/state.json")
	if err := rr.Load(); err != nil {
		t.Fatalf("Load of nonexistent file should not error, got: %v", err)
	}
}

func TestRegistryAutoSaveOnCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	rr := NewResourceRegistry(path)
	rr.Register(ResourceEntry{Kind: KindInstance, ID: "i-1", CreatedAt: time.Now()})
	rr.MarkCleanedUp(KindInstance, "i-1")

	rr2 := NewResourceRegistry(path)
	if err := rr2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if active := rr2.ListActive(""); len(active) != 0 {
		t.Fatalf("expected 0 active after reload, got %d", len(active))
	}
}

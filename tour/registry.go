package tour

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"
	"time"
)

// Resource kinds tracked by the registry.
const (
	KindInstance = "instance"
	KindBucket   = "bucket"
	KindQueue    = "queue"
	KindKeyPair  = "key-pair"
	KindFile     = "file"
)

// ResourceEntry tracks a single resource created by a tour run.
type ResourceEntry struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`   // instance id, bucket name, queue URL, key name or path
	Name      string    `json:"name"` // human-readable name
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
	CleanedUp bool      `json:"cleanedUp"`
}

// ResourceRegistry tracks every resource created by tour runs. When a file
// path is set the registry is written after each mutation, so an
// interrupted run leaves enough behind for cleanup.
type ResourceRegistry struct {
	mu       sync.RWMutex
	entries  map[string]*ResourceEntry // keyed by kind/ID
	filePath string                    // for JSON persistence
}

// NewResourceRegistry creates a new resource registry.
// If filePath is empty, persistence is disabled.
func NewResourceRegistry(filePath string) *ResourceRegistry {
	return &ResourceRegistry{
		entries:  make(map[string]*ResourceEntry),
		filePath: filePath,
	}
}

func entryKey(kind, id string) string {
	return kind + "/" + id
}

// Register adds a resource entry and persists the registry.
func (rr *ResourceRegistry) Register(entry ResourceEntry) error {
	rr.mu.Lock()
	rr.entries[entryKey(entry.Kind, entry.ID)] = &entry
	rr.mu.Unlock()
	return rr.Save()
}

// MarkCleanedUp marks a resource as cleaned up and persists the registry.
func (rr *ResourceRegistry) MarkCleanedUp(kind, id string) error {
	rr.mu.Lock()
	e, ok := rr.entries[entryKey(kind, id)]
	if ok {
		e.CleanedUp = true
	}
	rr.mu.Unlock()
	if !ok {
		return nil
	}
	return rr.Save()
}

// ListActive returns entries of the given kind that have not been cleaned
// up, oldest first. An empty kind matches every kind.
func (rr *ResourceRegistry) ListActive(kind string) []ResourceEntry {
	return rr.list(func(e *ResourceEntry) bool {
		return !e.CleanedUp && (kind == "" || e.Kind == kind)
	})
}

// ListAll returns all entries, oldest first.
func (rr *ResourceRegistry) ListAll() []ResourceEntry {
	return rr.list(func(*ResourceEntry) bool { return true })
}

func (rr *ResourceRegistry) list(keep func(*ResourceEntry) bool) []ResourceEntry {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	var result []ResourceEntry
	for _, e := range rr.entries {
		if keep(e) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return entryKey(result[i].Kind, result[i].ID) < entryKey(result[j].Kind, result[j].ID)
	})
	return result
}

// Save writes the registry to disk as JSON, replacing the previous file
// atomically.
func (rr *ResourceRegistry) Save() error {
	if rr.filePath == "" {
		return nil
	}
	rr.mu.RLock()
	data, err := json.MarshalIndent(rr.entries, "", "  ")
	rr.mu.RUnlock()
	if err != nil {
		return err
	}
	tmp := rr.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, rr.filePath)
}

// Load reads the registry from disk. A missing file leaves it empty.
func (rr *ResourceRegistry) Load() error {
	if rr.filePath == "" {
		return nil
	}
	data, err := os.ReadFile(rr.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return json.Unmarshal(data, &rr.entries)
}

package gcal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// EventIndex persists the task UUID to calendar event id mapping so
// sync can patch or delete events without searching the calendar.
type EventIndex struct {
	path     string
	mappings map[string]string
	mu       sync.RWMutex
	dirty    bool
}

// OpenIndex loads the index at path, starting empty when the file does
// not exist or is corrupt.
func OpenIndex(path string) *EventIndex {
	idx := &EventIndex{path: path, mappings: map[string]string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return idx
	}
	if err := json.Unmarshal(data, &idx.mappings); err != nil {
		idx.mappings = map[string]string{}
	}
	return idx
}

func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.mappings[taskID]
}

func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.mappings[taskID] != eventID {
		idx.mappings[taskID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.mappings[taskID]; ok {
		delete(idx.mappings, taskID)
		idx.dirty = true
	}
}

// All returns a copy of the mapping, for cleanup passes that mutate
// the index while iterating.
func (idx *EventIndex) All() map[string]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]string, len(idx.mappings))
	for k, v := range idx.mappings {
		out[k] = v
	}
	return out
}

// Save writes the index back to disk when it has changed.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(idx.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(idx.mappings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(idx.path, data, 0o600); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

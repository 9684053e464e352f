// Package idmap maintains the mapping between short sequential display
// ids shown in listings and the stable task UUIDs stored on disk.
package idmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

// Entry records which task a display id currently points at. Repo and
// Title are stored so stale cache lines remain debuggable by hand.
type Entry struct {
	UUID  string `json:"uuid"`
	Repo  string `json:"repo"`
	Title string `json:"title"`
}

// Cache is the on-disk display-id table. The zero display id is never
// assigned; ids start at 1 and follow listing order.
type Cache struct {
	path    string
	entries map[int]Entry
}

// Open loads the cache at path. A missing or corrupt file yields an
// empty cache rather than an error; display ids are a convenience and
// must never block a command.
func Open(path string) *Cache {
	c := &Cache{path: path, entries: map[int]Entry{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return c
	}
	for key, entry := range raw {
		id, err := strconv.Atoi(key)
		if err != nil || id < 1 {
			continue
		}
		c.entries[id] = entry
	}
	return c
}

// Rebalance discards the existing table and assigns 1..n in the order
// tasks are given. Used after listings, where the printed numbers must
// match the printed rows exactly.
func (c *Cache) Rebalance(tasks []*task.Task) {
	c.entries = make(map[int]Entry, len(tasks))
	for i, t := range tasks {
		c.entries[i+1] = Entry{UUID: t.ID, Repo: t.Repo, Title: t.Title}
	}
}

// Update keeps every existing task on its current display id and slots
// new tasks into freed ids before extending past the maximum. Used
// after single-task mutations so numbers a user just read stay valid.
func (c *Cache) Update(tasks []*task.Task) {
	current := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		current[t.ID] = true
	}

	// Ids whose tasks are gone count as gaps in this same pass, so a
	// delete-then-add cycle reuses the freed number immediately.
	uuidToID := make(map[string]int, len(c.entries))
	kept := make(map[int]bool, len(c.entries))
	maxID := 0
	for id, entry := range c.entries {
		if !current[entry.UUID] {
			continue
		}
		uuidToID[entry.UUID] = id
		kept[id] = true
		if id > maxID {
			maxID = id
		}
	}

	var gaps []int
	for id := 1; id <= maxID; id++ {
		if !kept[id] {
			gaps = append(gaps, id)
		}
	}
	sort.Ints(gaps)

	next := maxID + 1
	fresh := make(map[int]Entry, len(tasks))
	for _, t := range tasks {
		id, ok := uuidToID[t.ID]
		if !ok {
			if len(gaps) > 0 {
				id = gaps[0]
				gaps = gaps[1:]
			} else {
				id = next
				next++
			}
		}
		fresh[id] = Entry{UUID: t.ID, Repo: t.Repo, Title: t.Title}
	}
	c.entries = fresh
}

// Save writes the table back to disk.
func (c *Cache) Save() error {
	raw := make(map[string]Entry, len(c.entries))
	for id, entry := range c.entries {
		raw[strconv.Itoa(id)] = entry
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return os.WriteFile(c.path, data, 0o600)
}

// Lookup returns the entry for a display id.
func (c *Cache) Lookup(displayID int) (Entry, bool) {
	entry, ok := c.entries[displayID]
	return entry, ok
}

// DisplayID returns the display id currently assigned to a task UUID,
// or 0 when the task is not in the table.
func (c *Cache) DisplayID(uuid string) int {
	for id, entry := range c.entries {
		if entry.UUID == uuid {
			return id
		}
	}
	return 0
}

// Len reports the number of mapped tasks.
func (c *Cache) Len() int { return len(c.entries) }

// Clear removes the cache file.
func (c *Cache) Clear() error {
	c.entries = map[int]Entry{}
	err := os.Remove(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Resolve maps a user-supplied reference to a task UUID. Numeric refs
// go through the display-id table; anything else is assumed to already
// be a UUID (or UUID prefix) and is returned unchanged.
func (c *Cache) Resolve(ref string) string {
	id, err := strconv.Atoi(ref)
	if err != nil || id < 1 {
		return ref
	}
	if entry, ok := c.entries[id]; ok {
		return entry.UUID
	}
	return ref
}

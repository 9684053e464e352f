package gcal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Google Calendar offers eleven event colors. Projects claim one each;
// when all are taken the least recently used project gets evicted.
const colorSlots = 11

// defaultColorID is the gray used for tasks with no project.
const defaultColorID = "14"

type projectColor struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// ColorCache assigns a stable calendar color per project.
type ColorCache struct {
	path     string
	projects map[string]*projectColor
	dirty    bool
}

// OpenColors loads the color cache at path, starting empty when the
// file is missing or corrupt.
func OpenColors(path string) *ColorCache {
	c := &ColorCache{path: path, projects: map[string]*projectColor{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, &c.projects); err != nil {
		c.projects = map[string]*projectColor{}
	}
	return c
}

// ColorID returns the color for a project, assigning one on first use.
func (c *ColorCache) ColorID(project string) string {
	if project == "" {
		return defaultColorID
	}
	if state, ok := c.projects[project]; ok {
		state.LastUsed = time.Now()
		c.dirty = true
		return state.ColorID
	}
	return c.assign(project)
}

func (c *ColorCache) assign(project string) string {
	used := make(map[string]bool, len(c.projects))
	for _, s := range c.projects {
		used[s.ColorID] = true
	}
	for i := 1; i <= colorSlots; i++ {
		id := strconv.Itoa(i)
		if !used[id] {
			c.projects[project] = &projectColor{ColorID: id, LastUsed: time.Now()}
			c.dirty = true
			return id
		}
	}

	// All slots taken: recycle the color of the stalest project.
	var oldest string
	var oldestTime time.Time
	first := true
	for p, s := range c.projects {
		if first || s.LastUsed.Before(oldestTime) {
			oldest, oldestTime, first = p, s.LastUsed, false
		}
	}
	if oldest == "" {
		return "1"
	}
	recycled := c.projects[oldest].ColorID
	delete(c.projects, oldest)
	c.projects[project] = &projectColor{ColorID: recycled, LastUsed: time.Now()}
	c.dirty = true
	return recycled
}

// Save writes the cache back to disk when it has changed.
func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.projects, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	PriorityHigh   = "H"
	PriorityMedium = "M"
	PriorityLow    = "L"
)

// Task is one unit of work, stored as a single markdown file
// at tasks/task-<id>.md inside its owning repository.
type Task struct {
	ID          string
	Title       string
	Status      string
	Priority    string
	Project     string
	Assignees   []string
	Tags        []string
	Links       []string
	Due         *time.Time
	Description string
	Parent      string
	Depends     []string
	Created     time.Time
	Modified    time.Time
	Archived    bool

	// Repo is the name of the owning repository. Assigned on save/load,
	// never serialized into the file itself.
	Repo string
}

// New creates a pending task with a fresh UUID and both timestamps set to now.
func New(title string) *Task {
	now := time.Now().UTC().Truncate(time.Second)
	return &Task{
		ID:       uuid.NewString(),
		Title:    title,
		Status:   StatusPending,
		Priority: PriorityMedium,
		Created:  now,
		Modified: now,
	}
}

// Touch bumps the modified timestamp. Modified never goes below Created.
func (t *Task) Touch() {
	now := time.Now().UTC().Truncate(time.Second)
	if now.Before(t.Created) {
		now = t.Created
	}
	t.Modified = now
}

// FileName returns the markdown file name for this task.
func (t *Task) FileName() string {
	return fmt.Sprintf("task-%s.md", t.ID)
}

// IDFromFileName extracts the task id from a task-<id>.md file name.
// Returns "" if the name does not follow the convention.
func IDFromFileName(name string) string {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, "task-") || !strings.HasSuffix(base, ".md") {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(base, "task-"), ".md")
	if id == "" {
		return ""
	}
	return id
}

// frontmatter is the YAML header of a task file. Field order here is the
// order the fields appear on disk.
type frontmatter struct {
	ID        string     `yaml:"id"`
	Status    string     `yaml:"status"`
	Priority  string     `yaml:"priority"`
	Project   string     `yaml:"project,omitempty"`
	Assignees []string   `yaml:"assignees,omitempty"`
	Tags      []string   `yaml:"tags,omitempty"`
	Links     []string   `yaml:"links,omitempty"`
	Due       *time.Time `yaml:"due,omitempty"`
	Parent    string     `yaml:"parent,omitempty"`
	Depends   []string   `yaml:"depends,omitempty"`
	Created   time.Time  `yaml:"created"`
	Modified  time.Time  `yaml:"modified"`
	Archived  bool       `yaml:"archived,omitempty"`
}

const fence = "---"

// Parse builds a Task from markdown text. id, when non-empty, overrides the
// id in the frontmatter (the filename is authoritative for identity).
// repo is the owning repository name.
func Parse(text, id, repo string) (*Task, error) {
	rest, ok := strings.CutPrefix(text, fence+"\n")
	if !ok {
		return nil, fmt.Errorf("task file missing frontmatter fence")
	}
	header, body, ok := strings.Cut(rest, "\n"+fence+"\n")
	if !ok {
		return nil, fmt.Errorf("task file missing closing frontmatter fence")
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return nil, fmt.Errorf("invalid task frontmatter: %w", err)
	}

	title, description, err := splitBody(body)
	if err != nil {
		return nil, err
	}

	t := &Task{
		ID:          fm.ID,
		Title:       title,
		Status:      fm.Status,
		Priority:    fm.Priority,
		Project:     fm.Project,
		Assignees:   fm.Assignees,
		Tags:        fm.Tags,
		Links:       fm.Links,
		Due:         fm.Due,
		Description: description,
		Parent:      fm.Parent,
		Depends:     fm.Depends,
		Created:     fm.Created,
		Modified:    fm.Modified,
		Archived:    fm.Archived,
		Repo:        repo,
	}
	if id != "" {
		t.ID = id
	}
	if t.ID == "" {
		return nil, fmt.Errorf("task has no id")
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !validStatus(t.Status) {
		return nil, fmt.Errorf("invalid task status %q", t.Status)
	}
	if t.Modified.Before(t.Created) {
		t.Modified = t.Created
	}
	return t, nil
}

func splitBody(body string) (title, description string, err error) {
	body = strings.TrimLeft(body, "\n")
	heading, rest, _ := strings.Cut(body, "\n")
	if !strings.HasPrefix(heading, "# ") {
		return "", "", fmt.Errorf("task body missing title heading")
	}
	title = strings.TrimSpace(strings.TrimPrefix(heading, "# "))
	if title == "" {
		return "", "", fmt.Errorf("task title is empty")
	}
	return title, strings.TrimSpace(rest), nil
}

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Render serializes the task back to its markdown form. Parse(Render(t))
// yields a field-equal task; the conflict-marker parser relies on that.
func (t *Task) Render() (string, error) {
	fm := frontmatter{
		ID:        t.ID,
		Status:    t.Status,
		Priority:  t.Priority,
		Project:   t.Project,
		Assignees: t.Assignees,
		Tags:      t.Tags,
		Links:     t.Links,
		Due:       t.Due,
		Parent:    t.Parent,
		Depends:   t.Depends,
		Created:   t.Created,
		Modified:  t.Modified,
		Archived:  t.Archived,
	}
	header, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString(fence + "\n")
	b.Write(header)
	b.WriteString(fence + "\n\n")
	b.WriteString("# " + t.Title + "\n")
	if t.Description != "" {
		b.WriteString("\n" + t.Description + "\n")
	}
	return b.String(), nil
}

// Load reads and parses a task file. The task id is derived from the
// file name, which is authoritative.
func Load(path, repo string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	id := IDFromFileName(path)
	if id == "" {
		return nil, fmt.Errorf("not a task file: %s", path)
	}
	return Parse(string(data), id, repo)
}

// Save writes the task into repoPath/tasks/task-<id>.md and returns the path.
func (t *Task) Save(repoPath string) (string, error) {
	dir := filepath.Join(repoPath, "tasks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create tasks directory: %w", err)
	}
	text, err := t.Render()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, t.FileName())
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write task file: %w", err)
	}
	return path, nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.Assignees = append([]string(nil), t.Assignees...)
	c.Tags = append([]string(nil), t.Tags...)
	c.Links = append([]string(nil), t.Links...)
	c.Depends = append([]string(nil), t.Depends...)
	if t.Due != nil {
		due := *t.Due
		c.Due = &due
	}
	return &c
}

// Mutable field names, in stable order. created/modified are deliberately
// absent: they drive merge policy, not conflict membership.
const (
	FieldTitle       = "title"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldProject     = "project"
	FieldAssignees   = "assignees"
	FieldTags        = "tags"
	FieldLinks       = "links"
	FieldDue         = "due"
	FieldDescription = "description"
	FieldParent      = "parent"
	FieldDepends     = "depends"
)

// FieldNames lists every mutable field in the order they are compared.
func FieldNames() []string {
	return []string{
		FieldTitle, FieldStatus, FieldPriority, FieldProject,
		FieldAssignees, FieldTags, FieldLinks, FieldDue,
		FieldDescription, FieldParent, FieldDepends,
	}
}

// IsListField reports whether the field holds multiple values and merges
// by union rather than by picking a side.
func IsListField(name string) bool {
	switch name {
	case FieldAssignees, FieldTags, FieldLinks, FieldDepends:
		return true
	}
	return false
}

// IsFreeformField reports whether the field is freeform text. Divergent
// freeform edits cannot be merged automatically.
func IsFreeformField(name string) bool {
	return name == FieldTitle || name == FieldDescription
}

// FieldEqual compares one field across two tasks. Assignees compare as an
// ordered sequence; tags, links and depends compare as sets.
func FieldEqual(name string, a, b *Task) bool {
	switch name {
	case FieldTitle:
		return a.Title == b.Title
	case FieldStatus:
		return a.Status == b.Status
	case FieldPriority:
		return a.Priority == b.Priority
	case FieldProject:
		return a.Project == b.Project
	case FieldAssignees:
		return sequenceEqual(a.Assignees, b.Assignees)
	case FieldTags:
		return setEqual(a.Tags, b.Tags)
	case FieldLinks:
		return setEqual(a.Links, b.Links)
	case FieldDue:
		return timePtrEqual(a.Due, b.Due)
	case FieldDescription:
		return a.Description == b.Description
	case FieldParent:
		return a.Parent == b.Parent
	case FieldDepends:
		return setEqual(a.Depends, b.Depends)
	}
	return true
}

// SetField copies the named field from src into dst.
func SetField(name string, dst, src *Task) {
	switch name {
	case FieldTitle:
		dst.Title = src.Title
	case FieldStatus:
		dst.Status = src.Status
	case FieldPriority:
		dst.Priority = src.Priority
	case FieldProject:
		dst.Project = src.Project
	case FieldAssignees:
		dst.Assignees = append([]string(nil), src.Assignees...)
	case FieldTags:
		dst.Tags = append([]string(nil), src.Tags...)
	case FieldLinks:
		dst.Links = append([]string(nil), src.Links...)
	case FieldDue:
		if src.Due == nil {
			dst.Due = nil
		} else {
			due := *src.Due
			dst.Due = &due
		}
	case FieldDescription:
		dst.Description = src.Description
	case FieldParent:
		dst.Parent = src.Parent
	case FieldDepends:
		dst.Depends = append([]string(nil), src.Depends...)
	}
}

// ListField returns the named list field's values.
func ListField(name string, t *Task) []string {
	switch name {
	case FieldAssignees:
		return t.Assignees
	case FieldTags:
		return t.Tags
	case FieldLinks:
		return t.Links
	case FieldDepends:
		return t.Depends
	}
	return nil
}

// SetListField replaces the named list field's values.
func SetListField(name string, t *Task, values []string) {
	switch name {
	case FieldAssignees:
		t.Assignees = values
	case FieldTags:
		t.Tags = values
	case FieldLinks:
		t.Links = values
	case FieldDepends:
		t.Depends = values
	}
}

func sequenceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func setEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	return sequenceEqual(as, bs)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

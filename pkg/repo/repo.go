// Package repo discovers and manages task repositories: tasks-<name>
// directories holding one markdown file per task under tasks/.
package repo

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paxcalpt/taskrepo/pkg/gitx"
	"github.com/paxcalpt/taskrepo/pkg/task"
)

const dirPrefix = "tasks-"

// Repository is one tasks-<name> directory with its own git history.
type Repository struct {
	Name string
	Path string
	Git  *gitx.Client
}

// Open validates path as a task repository, initializing git and the
// tasks/ subdirectory when absent.
func Open(ctx context.Context, path string) (*Repository, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("repository path does not exist: %s", path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path is not a directory: %s", path)
	}
	dirName := filepath.Base(path)
	if !strings.HasPrefix(dirName, dirPrefix) {
		return nil, fmt.Errorf("invalid repository name %q: must start with %q", dirName, dirPrefix)
	}

	r := &Repository{
		Name: strings.TrimPrefix(dirName, dirPrefix),
		Path: path,
		Git:  gitx.NewClient(path),
	}
	if !r.Git.IsRepo(ctx) {
		if err := r.Git.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to init git repository: %w", err)
		}
	}
	if err := os.MkdirAll(r.TasksDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}
	return r, nil
}

// TasksDir returns the directory holding the task markdown files.
func (r *Repository) TasksDir() string {
	return filepath.Join(r.Path, "tasks")
}

// ListTasks loads every parseable task in the repository. Files that
// fail to parse are logged and skipped.
func (r *Repository) ListTasks(includeArchived bool) []*task.Task {
	pattern := filepath.Join(r.TasksDir(), "task-*.md")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	sort.Strings(matches)

	var tasks []*task.Task
	for _, path := range matches {
		t, err := task.Load(path, r.Name)
		if err != nil {
			log.Printf("Warning: failed to load task %s: %v", path, err)
			continue
		}
		if t.Archived && !includeArchived {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// GetTask loads a task by id, or nil when the file does not exist.
func (r *Repository) GetTask(id string) (*task.Task, error) {
	path := filepath.Join(r.TasksDir(), fmt.Sprintf("task-%s.md", id))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return task.Load(path, r.Name)
}

// SaveTask writes the task into this repository, claiming ownership.
func (r *Repository) SaveTask(t *task.Task) (string, error) {
	t.Repo = r.Name
	return t.Save(r.Path)
}

// DeleteTask removes the task file. Missing files are not an error.
func (r *Repository) DeleteTask(id string) error {
	path := filepath.Join(r.TasksDir(), fmt.Sprintf("task-%s.md", id))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Projects returns the sorted set of project names used in this repository.
func (r *Repository) Projects() []string {
	set := map[string]bool{}
	for _, t := range r.ListTasks(true) {
		if t.Project != "" {
			set[t.Project] = true
		}
	}
	return sortedKeys(set)
}

// Assignees returns the sorted set of assignee handles used in this repository.
func (r *Repository) Assignees() []string {
	set := map[string]bool{}
	for _, t := range r.ListTasks(true) {
		for _, a := range t.Assignees {
			set[a] = true
		}
	}
	return sortedKeys(set)
}

// Tags returns the sorted set of tags used in this repository.
func (r *Repository) Tags() []string {
	set := map[string]bool{}
	for _, t := range r.ListTasks(true) {
		for _, tag := range t.Tags {
			set[tag] = true
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Manager discovers task repositories under a parent directory.
type Manager struct {
	ParentDir string
}

func NewManager(parentDir string) (*Manager, error) {
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	return &Manager{ParentDir: parentDir}, nil
}

// Discover returns every valid tasks-* repository under the parent directory.
func (m *Manager) Discover(ctx context.Context) []*Repository {
	entries, err := os.ReadDir(m.ParentDir)
	if err != nil {
		return nil
	}

	var repos []*Repository
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		r, err := Open(ctx, filepath.Join(m.ParentDir, e.Name()))
		if err != nil {
			log.Printf("Warning: failed to load repository %s: %v", e.Name(), err)
			continue
		}
		repos = append(repos, r)
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name < repos[j].Name })
	return repos
}

// Get returns the named repository, or nil when it does not exist.
func (m *Manager) Get(ctx context.Context, name string) (*Repository, error) {
	path := filepath.Join(m.ParentDir, dirPrefix+name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return Open(ctx, path)
}

// Create makes a new task repository.
func (m *Manager) Create(ctx context.Context, name string) (*Repository, error) {
	path := filepath.Join(m.ParentDir, dirPrefix+name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("repository already exists: %s", name)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	return Open(ctx, path)
}

// ListAllTasks aggregates tasks across every repository.
func (m *Manager) ListAllTasks(ctx context.Context, includeArchived bool) []*task.Task {
	var tasks []*task.Task
	for _, r := range m.Discover(ctx) {
		tasks = append(tasks, r.ListTasks(includeArchived)...)
	}
	return tasks
}

// FindTask looks a task up by id across repositories (or within repoName
// when non-empty). Returns (nil, nil, nil) when nothing matches.
func (m *Manager) FindTask(ctx context.Context, id, repoName string) (*task.Task, *Repository, error) {
	if repoName != "" {
		r, err := m.Get(ctx, repoName)
		if err != nil || r == nil {
			return nil, nil, err
		}
		t, err := r.GetTask(id)
		if err != nil {
			return nil, nil, err
		}
		if t != nil {
			return t, r, nil
		}
		return nil, nil, nil
	}
	for _, r := range m.Discover(ctx) {
		t, err := r.GetTask(id)
		if err != nil {
			continue
		}
		if t != nil {
			return t, r, nil
		}
	}
	return nil, nil, nil
}

// FindByTitle returns tasks whose title matches exactly (case-insensitive),
// paired with their repositories.
func (m *Manager) FindByTitle(ctx context.Context, title string) ([]*task.Task, []*Repository) {
	var tasks []*task.Task
	var repos []*Repository
	for _, r := range m.Discover(ctx) {
		for _, t := range r.ListTasks(false) {
			if strings.EqualFold(t.Title, title) {
				tasks = append(tasks, t)
				repos = append(repos, r)
			}
		}
	}
	return tasks, repos
}

// Subtasks returns tasks (across all repositories) whose parent is the given id.
func (m *Manager) Subtasks(ctx context.Context, parentID string) []*task.Task {
	var subs []*task.Task
	for _, t := range m.ListAllTasks(ctx, true) {
		if t.Parent == parentID {
			subs = append(subs, t)
		}
	}
	return subs
}

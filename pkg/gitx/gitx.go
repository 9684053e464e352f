// Package gitx drives the system git binary for task repositories.
// All porcelain operations (commit, pull, push) go through real git so
// that merge behavior, including conflict markers, matches what users
// see when they run git by hand.
package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client runs git commands against a single repository directory.
type Client struct {
	Dir string
}

func NewClient(dir string) *Client {
	return &Client{Dir: dir}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", c.Dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			return "", fmt.Errorf("git %s failed: exit code %d: %s",
				args[0], exitErr.ExitCode(), stderr)
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// IsRepo reports whether Dir is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	_, err := c.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// Init creates a new git repository in Dir.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.run(ctx, "init")
	return err
}

// IsDirty reports whether the work tree has uncommitted changes.
func (c *Client) IsDirty(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// AddAll stages everything in the work tree.
func (c *Client) AddAll(ctx context.Context) error {
	_, err := c.run(ctx, "add", "-A")
	return err
}

// Add stages a single path.
func (c *Client) Add(ctx context.Context, path string) error {
	_, err := c.run(ctx, "add", "--", path)
	return err
}

// Commit records staged changes. A clean index is not an error and is
// skipped silently, except mid-merge: a merge must be concluded by a
// commit even when the resolved tree matches HEAD.
func (c *Client) Commit(ctx context.Context, message string) error {
	staged, err := c.run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return err
	}
	if staged == "" && !c.InMerge(ctx) {
		return nil
	}
	_, err = c.run(ctx, "commit", "-m", message)
	return err
}

// AddRemote registers a named remote.
func (c *Client) AddRemote(ctx context.Context, name, url string) error {
	_, err := c.run(ctx, "remote", "add", name, url)
	return err
}

// HasRemote reports whether any remote is configured.
func (c *Client) HasRemote(ctx context.Context) bool {
	out, err := c.run(ctx, "remote")
	return err == nil && out != ""
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	return c.run(ctx, "symbolic-ref", "--short", "HEAD")
}

// UpstreamRef resolves the remote-tracking ref for the current branch,
// falling back to origin/<branch> when no upstream is configured.
// Returns "" when neither exists.
func (c *Client) UpstreamRef(ctx context.Context) string {
	if ref, err := c.run(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}"); err == nil && ref != "" {
		return ref
	}
	branch, err := c.CurrentBranch(ctx)
	if err != nil {
		return ""
	}
	ref := "origin/" + branch
	if _, err := c.run(ctx, "rev-parse", "--verify", "--quiet", ref); err != nil {
		return ""
	}
	return ref
}

// Fetch updates remote-tracking refs without touching the work tree.
func (c *Client) Fetch(ctx context.Context) error {
	_, err := c.run(ctx, "fetch", "origin")
	return err
}

// Pull merges the upstream branch into the work tree.
func (c *Client) Pull(ctx context.Context) error {
	_, err := c.run(ctx, "pull", "--no-rebase")
	return err
}

// Push publishes local commits.
func (c *Client) Push(ctx context.Context) error {
	_, err := c.run(ctx, "push")
	return err
}

// MergeBase returns the common ancestor of two refs.
func (c *Client) MergeBase(ctx context.Context, a, b string) (string, error) {
	return c.run(ctx, "merge-base", a, b)
}

// ChangedFiles lists paths that differ between two refs.
func (c *Client) ChangedFiles(ctx context.Context, a, b string) ([]string, error) {
	out, err := c.run(ctx, "diff", "--name-only", a, b)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// UncommittedFiles lists work-tree paths with uncommitted changes under
// the given prefix. Untracked files are listed individually even when
// their whole directory is untracked; the default porcelain output
// would collapse those into a single "dir/" entry.
func (c *Client) UncommittedFiles(ctx context.Context, prefix string) ([]string, error) {
	out, err := c.run(ctx, "status", "--porcelain", "--untracked-files=all", "--", prefix)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames show as "old -> new"; keep the new path.
		if _, after, ok := strings.Cut(path, " -> "); ok {
			path = after
		}
		files = append(files, path)
	}
	return files, nil
}

// ShowFile returns the content of path at the given ref.
func (c *Client) ShowFile(ctx context.Context, ref, path string) (string, error) {
	return c.run(ctx, "show", ref+":"+path)
}

// InMerge reports whether a merge is in progress (MERGE_HEAD exists).
func (c *Client) InMerge(ctx context.Context) bool {
	_, err := c.run(ctx, "rev-parse", "-q", "--verify", "MERGE_HEAD")
	return err == nil
}

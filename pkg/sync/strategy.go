package sync

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

// Strategy selects how detected conflicts are resolved.
type Strategy string

const (
	// StrategyAuto applies SmartMerge, falling back to interactive
	// resolution for unmergeable conflicts.
	StrategyAuto Strategy = "auto"
	// StrategyLocal keeps the local version of every conflicted task.
	StrategyLocal Strategy = "local"
	// StrategyRemote keeps the remote version of every conflicted task.
	StrategyRemote Strategy = "remote"
	// StrategyInteractive asks for every conflict.
	StrategyInteractive Strategy = "interactive"
)

// ParseStrategy validates a strategy string from CLI or config.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyAuto, StrategyLocal, StrategyRemote, StrategyInteractive:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("invalid conflict strategy %q (want auto, local, remote, or interactive)", s)
}

// InteractiveResolver presents a conflict to a human and returns the
// chosen task. Returning an error aborts the sync of that repository.
type InteractiveResolver interface {
	Resolve(c Conflict) (*task.Task, error)
}

// PromptResolver is a line-oriented InteractiveResolver reading choices
// from In and writing the conflict summary to Out.
type PromptResolver struct {
	In  io.Reader
	Out io.Writer
}

func (p *PromptResolver) Resolve(c Conflict) (*task.Task, error) {
	r := bufio.NewReader(p.In)

	fmt.Fprintf(p.Out, "\nConflict in %s (%s)\n", c.FilePath, c.Local.Title)
	for _, f := range c.Fields {
		fmt.Fprintf(p.Out, "  %-12s local:  %s\n", f, fieldPreview(f, c.Local))
		fmt.Fprintf(p.Out, "  %-12s remote: %s\n", "", fieldPreview(f, c.Remote))
	}

	for {
		fmt.Fprint(p.Out, "Keep [l]ocal, [r]emote, or choose [f]ield by field? ")
		choice, err := readChoice(r)
		if err != nil {
			return nil, err
		}
		switch choice {
		case "l":
			t := c.Local.Clone()
			t.Touch()
			return t, nil
		case "r":
			t := c.Remote.Clone()
			t.Touch()
			return t, nil
		case "f":
			return p.resolveFieldByField(r, c)
		}
		fmt.Fprintln(p.Out, "Please answer l, r, or f.")
	}
}

func (p *PromptResolver) resolveFieldByField(r *bufio.Reader, c Conflict) (*task.Task, error) {
	merged := c.Local.Clone()
	for _, f := range c.Fields {
		for {
			fmt.Fprintf(p.Out, "%s: [l] %s  [r] %s ? ",
				f, fieldPreview(f, c.Local), fieldPreview(f, c.Remote))
			choice, err := readChoice(r)
			if err != nil {
				return nil, err
			}
			if choice == "l" {
				break
			}
			if choice == "r" {
				task.SetField(f, merged, c.Remote)
				break
			}
			fmt.Fprintln(p.Out, "Please answer l or r.")
		}
	}
	merged.Touch()
	return merged, nil
}

func readChoice(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read choice: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

func fieldPreview(name string, t *task.Task) string {
	var v string
	switch name {
	case task.FieldTitle:
		v = t.Title
	case task.FieldStatus:
		v = t.Status
	case task.FieldPriority:
		v = t.Priority
	case task.FieldProject:
		v = t.Project
	case task.FieldAssignees:
		v = strings.Join(t.Assignees, ", ")
	case task.FieldTags:
		v = strings.Join(t.Tags, ", ")
	case task.FieldLinks:
		v = strings.Join(t.Links, ", ")
	case task.FieldDue:
		if t.Due != nil {
			v = t.Due.Format(time.RFC3339)
		}
	case task.FieldDescription:
		v = t.Description
	case task.FieldParent:
		v = t.Parent
	case task.FieldDepends:
		v = strings.Join(t.Depends, ", ")
	}
	v = strings.ReplaceAll(v, "\n", " ")
	// Truncate on runes so multi-byte text is never cut mid-character.
	if r := []rune(v); len(r) > 60 {
		v = string(r[:57]) + "..."
	}
	if v == "" {
		v = "(empty)"
	}
	return v
}

// Package tui is the interactive task browser. It lists every task
// across the discovered repositories and supports quick status changes
// and a sync keybinding without leaving the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/paxcalpt/taskrepo/pkg/config"
	"github.com/paxcalpt/taskrepo/pkg/repo"
	"github.com/paxcalpt/taskrepo/pkg/sorting"
	"github.com/paxcalpt/taskrepo/pkg/sync"
	"github.com/paxcalpt/taskrepo/pkg/task"
)

var (
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d73a4a")).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffc107")).Bold(true)
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4caf50")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Italic(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d73a4a"))
	detailStyle = lipgloss.NewStyle().Padding(1, 2)
)

type item struct {
	task *task.Task
}

func (i item) Title() string {
	checkbox := "[ ]"
	switch i.task.Status {
	case task.StatusCompleted:
		checkbox = "[x]"
	case task.StatusInProgress:
		checkbox = "[>]"
	case task.StatusCancelled:
		checkbox = "[-]"
	}
	var style lipgloss.Style
	switch i.task.Priority {
	case task.PriorityHigh:
		style = highStyle
	case task.PriorityLow:
		style = lowStyle
	default:
		style = mediumStyle
	}
	return fmt.Sprintf("%s %s %s %s",
		checkbox,
		style.Render(i.task.Priority),
		i.task.Title,
		dimStyle.Render("["+i.task.Repo+"]"),
	)
}

func (i item) Description() string {
	var parts []string
	if i.task.Project != "" {
		parts = append(parts, i.task.Project)
	}
	if len(i.task.Assignees) > 0 {
		parts = append(parts, strings.Join(i.task.Assignees, ", "))
	}
	if i.task.Due != nil {
		parts = append(parts, "due "+i.task.Due.Format("2006-01-02"))
	}
	return strings.Join(parts, " · ")
}

func (i item) FilterValue() string { return i.task.Title }

type syncDoneMsg struct {
	reports []*sync.Report
	err     error
}

// Model is the bubbletea model for the task browser.
type Model struct {
	list    list.Model
	manager *repo.Manager
	cfg     *config.Config
	detail  *task.Task
	status  string
	width   int
	height  int
}

// New builds the browser over the repositories under the configured
// parent directory.
func New(manager *repo.Manager, cfg *config.Config) (*Model, error) {
	m := &Model{manager: manager, cfg: cfg}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "TaskRepo"
	l.SetShowStatusBar(false)
	m.list = l
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) reload() error {
	tasks := m.manager.ListAllTasks(context.Background(), false)
	sorting.Sort(tasks, m.cfg.SortBy)
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = item{task: t}
	}
	m.list.SetItems(items)
	return nil
}

func (m *Model) selected() *task.Task {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return nil
	}
	return it.task
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case syncDoneMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("sync failed: " + msg.err.Error())
		} else {
			resolved := 0
			for _, r := range msg.reports {
				resolved += r.Resolved
			}
			m.status = statusStyle.Render(fmt.Sprintf("synced %d repos, %d conflicts resolved",
				len(msg.reports), resolved))
		}
		if err := m.reload(); err != nil {
			m.status = errorStyle.Render(err.Error())
		}
		return m, nil

	case tea.KeyMsg:
		// While filtering, every key belongs to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			if m.detail != nil {
				m.detail = nil
				return m, nil
			}
			return m, tea.Quit
		case "enter":
			if m.detail != nil {
				m.detail = nil
			} else {
				m.detail = m.selected()
			}
			return m, nil
		case "d":
			return m, m.setStatus(task.StatusCompleted)
		case "p":
			return m, m.setStatus(task.StatusInProgress)
		case "P":
			return m, m.cyclePriority()
		case "c":
			return m, m.setStatus(task.StatusCancelled)
		case "s":
			m.status = "syncing..."
			return m, m.syncCmd()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) setStatus(status string) tea.Cmd {
	t := m.selected()
	if t == nil {
		return nil
	}
	t.Status = status
	t.Touch()
	if err := m.saveTask(t); err != nil {
		m.status = errorStyle.Render(err.Error())
		return nil
	}
	m.status = statusStyle.Render(fmt.Sprintf("%s → %s", t.Title, status))
	if err := m.reload(); err != nil {
		m.status = errorStyle.Render(err.Error())
	}
	return nil
}

func (m *Model) cyclePriority() tea.Cmd {
	t := m.selected()
	if t == nil {
		return nil
	}
	switch t.Priority {
	case task.PriorityHigh:
		t.Priority = task.PriorityMedium
	case task.PriorityMedium:
		t.Priority = task.PriorityLow
	default:
		t.Priority = task.PriorityHigh
	}
	t.Touch()
	if err := m.saveTask(t); err != nil {
		m.status = errorStyle.Render(err.Error())
		return nil
	}
	m.status = statusStyle.Render(fmt.Sprintf("%s priority → %s", t.Title, t.Priority))
	if err := m.reload(); err != nil {
		m.status = errorStyle.Render(err.Error())
	}
	return nil
}

func (m *Model) saveTask(t *task.Task) error {
	r, err := m.manager.Get(context.Background(), t.Repo)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("repository not found: %s", t.Repo)
	}
	_, err = r.SaveTask(t)
	return err
}

func (m *Model) syncCmd() tea.Cmd {
	manager := m.manager
	strategy, _ := sync.ParseStrategy(m.cfg.ConflictStrategy)
	return func() tea.Msg {
		ctx := context.Background()
		repos := manager.Discover(ctx)
		// No prompting inside the TUI; unmergeable conflicts surface
		// as an error and are handled from the CLI.
		s := &sync.Syncer{Strategy: strategy, Push: true}
		var reports []*sync.Report
		for _, r := range repos {
			report, err := s.SyncRepository(ctx, r)
			if err != nil {
				return syncDoneMsg{err: fmt.Errorf("%s: %w", r.Name, err)}
			}
			reports = append(reports, report)
		}
		return syncDoneMsg{reports: reports}
	}
}

func (m *Model) View() string {
	if m.detail != nil {
		return detailStyle.Render(renderDetail(m.detail)) +
			"\n" + dimStyle.Render("enter/q: back")
	}
	help := dimStyle.Render("enter: detail · d: done · p: in-progress · P: priority · c: cancel · s: sync · q: quit")
	lines := []string{m.list.View(), help}
	if m.status != "" {
		lines = append(lines, m.status)
	}
	return strings.Join(lines, "\n")
}

func renderDetail(t *task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", lipgloss.NewStyle().Bold(true).Render(t.Title))
	fmt.Fprintf(&b, "ID:       %s\n", t.ID)
	fmt.Fprintf(&b, "Repo:     %s\n", t.Repo)
	fmt.Fprintf(&b, "Status:   %s\n", t.Status)
	fmt.Fprintf(&b, "Priority: %s\n", t.Priority)
	if t.Project != "" {
		fmt.Fprintf(&b, "Project:  %s\n", t.Project)
	}
	if len(t.Assignees) > 0 {
		fmt.Fprintf(&b, "Assignees: %s\n", strings.Join(t.Assignees, ", "))
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:     %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Due != nil {
		fmt.Fprintf(&b, "Due:      %s\n", t.Due.Format("2006-01-02 15:04"))
	}
	if t.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", t.Description)
	}
	return b.String()
}

// Run starts the browser in the alternate screen.
func Run(manager *repo.Manager, cfg *config.Config) error {
	m, err := New(manager, cfg)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

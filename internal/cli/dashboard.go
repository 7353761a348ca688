package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/taskpilot-cli/taskpilot/internal/observability"
)

// Dashboard panel indices.
const (
	panelTasks = iota
	panelActive
	panelEvents
	panelCount
)

// recentEventsLimit caps the events panel.
const recentEventsLimit = 10

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	taskCounts map[string]int
	active     *activeSnapshot
	events     []eventSnapshot

	// State.
	loading bool
	err     error
}

type activeSnapshot struct {
	id     string
	title  string
	branch string
	status string
	dirty  bool
}

type eventSnapshot struct {
	eventType string
	message   string
	time      string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	taskCounts map[string]int
	active     *activeSnapshot
	events     []eventSnapshot
	err        error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusPlanningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCompletedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelTasks,
		loading:     true,
		taskCounts:  make(map[string]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.taskCounts = msg.taskCounts
		m.active = msg.active
		m.events = msg.events
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Taskpilot Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	tasksPanel := m.renderTasksPanel()
	activePanel := m.renderActivePanel()
	eventsPanel := m.renderEventsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		activePanel = m.applyPanelStyle(panelActive, activePanel, colWidth-4)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, activePanel, eventsPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		activePanel = m.applyPanelStyle(panelActive, activePanel, panelWidth)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, tasksPanel, activePanel, eventsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	if len(m.taskCounts) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	// Display in lifecycle order.
	order := []string{"in_progress", "planning", "completed"}
	for _, status := range order {
		count, ok := m.taskCounts[status]
		if !ok || count == 0 {
			continue
		}
		label := fmt.Sprintf("  %-14s %d", status, count)
		b.WriteString(styleForStatus(status).Render(label))
		b.WriteString("\n")
	}

	total := 0
	for _, c := range m.taskCounts {
		total += c
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))

	return b.String()
}

func (m dashboardModel) renderActivePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Active Task"))
	b.WriteString("\n")

	if m.active == nil {
		b.WriteString("  No active task.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %s: %s\n", m.active.id, m.active.title))
	b.WriteString(fmt.Sprintf("  Branch: %s\n", m.active.branch))
	b.WriteString("  " + styleForStatus(m.active.status).Render(m.active.status))
	b.WriteString("\n")
	if m.active.dirty {
		b.WriteString("  Working tree: uncommitted changes")
	} else {
		b.WriteString("  Working tree: clean")
	}

	return b.String()
}

func (m dashboardModel) renderEventsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Recent Events"))
	b.WriteString("\n")

	if len(m.events) == 0 {
		b.WriteString("  No events recorded.")
		return b.String()
	}

	for _, e := range m.events {
		b.WriteString(fmt.Sprintf("  %s  %-16s %s\n", e.time, e.eventType, e.message))
	}

	return b.String()
}

func styleForStatus(status string) lipgloss.Style {
	switch status {
	case "in_progress":
		return statusInProgressStyle
	case "completed":
		return statusCompletedStyle
	case "planning":
		return statusPlanningStyle
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	result := dataLoadedMsg{
		taskCounts: make(map[string]int),
	}

	if Store != nil {
		tasks, err := Store.ListTasks()
		if err != nil {
			result.err = fmt.Errorf("loading tasks: %w", err)
			return result
		}
		for _, t := range tasks {
			result.taskCounts[string(t.Status)]++
		}

		active, err := Store.ActiveTask()
		if err == nil && active != nil {
			snapshot := &activeSnapshot{
				id:     active.ID,
				title:  active.Title,
				branch: active.BranchName,
				status: string(active.Status),
			}
			if GitPort != nil && GitPort.IsRepository() {
				if dirty, err := GitPort.HasUncommittedChanges(); err == nil {
					snapshot.dirty = dirty
				}
			}
			result.active = snapshot
		}
	}

	if EventLog != nil {
		events, err := EventLog.Read(observability.EventFilter{Limit: recentEventsLimit})
		if err != nil {
			result.err = fmt.Errorf("loading events: %w", err)
			return result
		}
		result.events = make([]eventSnapshot, 0, len(events))
		for _, e := range events {
			result.events = append(result.events, eventSnapshot{
				eventType: e.Type,
				message:   e.Message,
				time:      e.Time.Format("15:04"),
			})
		}
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for task state and events",
	Long: `Launch an interactive terminal dashboard showing task counts, the
active task, and recent events.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("task store not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

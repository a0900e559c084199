package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-serialprobe"
	"github.com/allbin/go-serialprobe/internal/tui/components"
	"github.com/allbin/go-serialprobe/internal/tui/keys"
	"github.com/allbin/go-serialprobe/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Scope selects which mappings are shown
type Scope int

const (
	ScopeAll Scope = iota
	ScopeLinks
	ScopePhysical
)

func (s Scope) String() string {
	switch s {
	case ScopeLinks:
		return "links"
	case ScopePhysical:
		return "physical"
	default:
		return "all"
	}
}

// Next cycles all -> links -> physical -> all
func (s Scope) Next() Scope {
	return (s + 1) % 3
}

// Source enumerates the mappings for a scope. It is called on every
// refresh; results are never cached since devices come and go.
type Source func(scope Scope) ([]serial.DeviceMapping, error)

// MappingsMsg carries the result of one enumeration
type MappingsMsg struct {
	Scope    Scope
	Mappings []serial.DeviceMapping
	Err      error
	At       time.Time
}

type tickMsg time.Time

// WatchModel periodically re-enumerates mappings so renumbering after a
// reconnect shows up live
type WatchModel struct {
	source   Source
	interval time.Duration
	scope    Scope

	keys  keys.WatchKeys
	help  help.Model
	table components.MappingTable

	updated time.Time
	err     error
	width   int
}

func NewWatchModel(source Source, devDir string, interval time.Duration) WatchModel {
	return WatchModel{
		source:   source,
		interval: interval,
		keys:     keys.NewWatchKeys(),
		help:     help.New(),
		table:    components.NewMappingTable(devDir, 20),
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m WatchModel) refresh() tea.Cmd {
	source, scope := m.source, m.scope
	return func() tea.Msg {
		mappings, err := source(scope)
		return MappingsMsg{Scope: scope, Mappings: mappings, Err: err, At: time.Now()}
	}
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh()
		case key.Matches(msg, m.keys.Scope):
			m.scope = m.scope.Next()
			return m, m.refresh()
		}
		return m, m.table.Update(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		// title, blank, table header/border, status and help lines
		m.table.SetPageSize(msg.Height - 10)
		return m, nil

	case MappingsMsg:
		// stale result from before a scope change
		if msg.Scope != m.scope {
			return m, nil
		}
		m.err = msg.Err
		m.updated = msg.At
		if msg.Err == nil {
			m.table.SetMappings(msg.Mappings)
		}
		return m, nil

	case tickMsg:
		// manual refreshes do not reschedule, so only one tick chain runs
		return m, tea.Batch(m.refresh(), m.tick())
	}

	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("Serial device mappings"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else {
		status := fmt.Sprintf("%d mapping(s) · scope %s", m.table.RowCount(), m.scope)
		if !m.updated.IsZero() {
			status += " · updated " + m.updated.Format("15:04:05")
		}
		b.WriteString(styles.StatusStyle.Render(status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// Scope returns the current scope
func (m WatchModel) Scope() Scope {
	return m.scope
}

package components

import (
	"github.com/allbin/go-serialprobe"
	"github.com/allbin/go-serialprobe/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyVirtual   = "virtual"
	columnKeyPhysical  = "physical"
	columnKeyInterface = "interface"
)

// MappingTable renders device mappings as a table
type MappingTable struct {
	table  table.Model
	devDir string
	rows   int
}

func NewMappingTable(devDir string, pageSize int) MappingTable {
	columns := []table.Column{
		table.NewColumn(columnKeyVirtual, "Virtual", 20),
		table.NewColumn(columnKeyPhysical, "Physical", 14),
		table.NewColumn(columnKeyInterface, "Interface", 16),
	}

	t := table.New(columns).
		WithPageSize(pageSize).
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(styles.Mauve)).
		WithBaseStyle(lipgloss.NewStyle().Foreground(styles.Text).BorderForeground(styles.Surface1)).
		Focused(true)

	return MappingTable{table: t, devDir: devDir}
}

// SetMappings replaces the rows
func (mt *MappingTable) SetMappings(mappings []serial.DeviceMapping) {
	rows := make([]table.Row, 0, len(mappings))
	for _, m := range mappings {
		virtual := "-"
		if m.Virtual != "" {
			virtual = DevSuffix(mt.devDir, m.Virtual)
		}

		iface := table.NewStyledCell(m.Interface.String(), styles.MissingStyle)
		if m.Interface != serial.NotFound {
			iface = table.NewStyledCell(m.Interface.String(), styles.FoundStyle)
		}

		rows = append(rows, table.NewRow(table.RowData{
			columnKeyVirtual:   virtual,
			columnKeyPhysical:  DevSuffix(mt.devDir, m.Physical),
			columnKeyInterface: iface,
		}))
	}
	mt.table = mt.table.WithRows(rows)
	mt.rows = len(rows)
}

// SetPageSize adapts the number of visible rows to the terminal height
func (mt *MappingTable) SetPageSize(size int) {
	if size < 1 {
		size = 1
	}
	mt.table = mt.table.WithPageSize(size)
}

// Update forwards paging keys to the table
func (mt *MappingTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	mt.table, cmd = mt.table.Update(msg)
	return cmd
}

// RowCount returns the number of rows currently shown
func (mt MappingTable) RowCount() int {
	return mt.rows
}

func (mt MappingTable) View() string {
	return mt.table.View()
}

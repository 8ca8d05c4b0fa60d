package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/pricescope/pkg/scope"
)

// GroupsTableModel lists a dimension's predefined groups. Selecting a group
// replaces the dimension's selection with that group alone.
type GroupsTableModel struct {
	scope         *scope.DimensionScope
	rows          []scope.GroupRow
	filter        string
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewGroupsTableModel creates a table over d's groups.
func NewGroupsTableModel(d *scope.DimensionScope, theme Theme) GroupsTableModel {
	m := GroupsTableModel{scope: d, theme: theme}
	m.Refresh()
	return m
}

// SetSize updates the table dimensions
func (m *GroupsTableModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetFilter narrows the table to groups whose name contains filter.
func (m *GroupsTableModel) SetFilter(filter string) {
	m.filter = filter
	m.selectedIndex = 0
	m.Refresh()
}

// Filter returns the current name filter.
func (m *GroupsTableModel) Filter() string { return m.filter }

// Refresh re-reads the groups and their selection state.
func (m *GroupsTableModel) Refresh() {
	m.rows = m.scope.GroupRows(m.filter)
	if m.selectedIndex >= len(m.rows) {
		m.selectedIndex = len(m.rows) - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

// Rows returns the visible rows.
func (m *GroupsTableModel) Rows() []scope.GroupRow { return m.rows }

// MoveUp moves selection up
func (m *GroupsTableModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *GroupsTableModel) MoveDown() {
	if m.selectedIndex < len(m.rows)-1 {
		m.selectedIndex++
	}
}

// SelectedRow returns the highlighted row.
func (m *GroupsTableModel) SelectedRow() (scope.GroupRow, bool) {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.rows) {
		return m.rows[m.selectedIndex], true
	}
	return scope.GroupRow{}, false
}

// Toggle selects or clears the highlighted group.
func (m *GroupsTableModel) Toggle() bool {
	row, ok := m.SelectedRow()
	if !ok || !row.CanToggle {
		return false
	}
	m.scope.ToggleSelection(row.Group.Key())
	m.Refresh()
	return true
}

// View renders the table.
func (m *GroupsTableModel) View() string {
	t := m.theme
	if len(m.scope.Groups()) == 0 {
		return t.MutedText.Render("No groups defined for " + m.scope.Dimension.Plural() + ".")
	}
	if len(m.rows) == 0 {
		return t.MutedText.Render(fmt.Sprintf("No groups match %q.", m.filter))
	}

	nameWidth := m.width - 30
	if nameWidth < 16 {
		nameWidth = 16
	}

	var lines []string
	header := fmt.Sprintf("    %-*s  %-6s  %8s", nameWidth, "Name", "Type", "Items")
	lines = append(lines, t.PrimaryBold.Render(header))

	for i, row := range m.rows {
		mark := "( )"
		markStyle := t.Renderer.NewStyle()
		if row.Selected {
			mark = "(•)"
			markStyle = t.DirectMark
		} else if !row.CanToggle {
			markStyle = t.MutedText
		}

		name := runewidth.FillRight(runewidth.Truncate(row.Group.Name, nameWidth, "…"), nameWidth)
		kind := t.Renderer.NewStyle().
			Foreground(t.GroupTypeColor(string(row.Group.Type))).
			Render(fmt.Sprintf("%-6s", row.Group.Type))
		line := fmt.Sprintf("%s %s  %s  %8d", markStyle.Render(mark), name, kind, row.Group.Items)

		if i == m.selectedIndex {
			line = t.Selected.Render(line)
		}
		lines = append(lines, line)
	}

	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, "", footerStyle.Render("j/k: navigate | space: select | /: filter | v: tree"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/vanderheijden86/pricescope/pkg/model"
)

// PickerStage says what the picker is choosing.
type PickerStage int

const (
	PickScenario PickerStage = iota
	PickPanel
	PickRule
)

func (s PickerStage) String() string {
	switch s {
	case PickPanel:
		return "panels"
	case PickRule:
		return "rules"
	default:
		return "scenarios"
	}
}

// PickerItem is one choice in the picker.
type PickerItem struct {
	ID     int
	Title  string
	Detail string
}

// PickerChosenMsg is sent when the user confirms an item.
type PickerChosenMsg struct {
	Stage PickerStage
	ID    int
}

// PickerClosedMsg is sent when the user dismisses the picker.
type PickerClosedMsg struct{}

// PickerQueryMsg is sent whenever the filter text changes, so the caller can
// run a remote search for the stage.
type PickerQueryMsg struct {
	Stage PickerStage
	Query string
}

// ScenarioItems converts scenarios for the picker.
func ScenarioItems(scenarios []model.Scenario) []PickerItem {
	items := make([]PickerItem, 0, len(scenarios))
	for _, s := range scenarios {
		items = append(items, PickerItem{ID: s.ID, Title: s.Name, Detail: s.Description})
	}
	return items
}

// PanelItems converts panels for the picker.
func PanelItems(panels []model.Panel) []PickerItem {
	items := make([]PickerItem, 0, len(panels))
	for _, p := range panels {
		items = append(items, PickerItem{ID: p.ID, Title: p.Name, Detail: p.Description})
	}
	return items
}

// RuleItems converts rules for the picker.
func RuleItems(rules []model.Rule) []PickerItem {
	items := make([]PickerItem, 0, len(rules))
	for _, r := range rules {
		title := fmt.Sprintf("#%d %s", r.Rank, r.RuleType)
		if !r.Active {
			title += " (inactive)"
		}
		items = append(items, PickerItem{ID: r.ID, Title: title, Detail: r.Description})
	}
	return items
}

// PanelPickerModel is a modal list for choosing a scenario, panel or rule.
// Typing narrows the list by fuzzy match on the title.
type PanelPickerModel struct {
	stage       PickerStage
	items       []PickerItem
	filtered    []int // indices into items
	cursor      int
	current     int // id of the active choice, 0 when none
	filterInput textinput.Model
	width       int
	height      int
	theme       Theme
}

// NewPanelPicker creates a closed picker.
func NewPanelPicker(theme Theme) PanelPickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 80
	ti.Width = 30
	return PanelPickerModel{filterInput: ti, theme: theme}
}

// Open shows items for stage. current marks the active choice.
func (m *PanelPickerModel) Open(stage PickerStage, items []PickerItem, current int) {
	m.stage = stage
	m.items = items
	m.current = current
	m.cursor = 0
	m.filterInput.SetValue("")
	m.filterInput.Focus()
	m.applyFilter()
	for i, idx := range m.filtered {
		if items[idx].ID == current {
			m.cursor = i
		}
	}
}

// SetItems swaps the list while keeping the filter text, used when remote
// search results arrive.
func (m *PanelPickerModel) SetItems(items []PickerItem) {
	m.items = items
	m.applyFilter()
}

// Stage returns what is being picked.
func (m *PanelPickerModel) Stage() PickerStage { return m.stage }

// Query returns the filter text.
func (m *PanelPickerModel) Query() string { return m.filterInput.Value() }

// SetSize updates the picker dimensions.
func (m *PanelPickerModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update handles keyboard input.
func (m PanelPickerModel) Update(msg tea.Msg) (PanelPickerModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "esc":
		m.filterInput.Blur()
		return m, func() tea.Msg { return PickerClosedMsg{} }
	case "enter":
		item := m.SelectedItem()
		if item == nil {
			return m, nil
		}
		m.filterInput.Blur()
		chosen := PickerChosenMsg{Stage: m.stage, ID: item.ID}
		return m, func() tea.Msg { return chosen }
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	}

	before := m.filterInput.Value()
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if after := m.filterInput.Value(); after != before {
		m.applyFilter()
		query := PickerQueryMsg{Stage: m.stage, Query: after}
		cmd = tea.Batch(cmd, func() tea.Msg { return query })
	}
	return m, cmd
}

// applyFilter updates the filtered indices based on the current filter input.
func (m *PanelPickerModel) applyFilter() {
	query := strings.TrimSpace(m.filterInput.Value())
	if query == "" {
		m.filtered = make([]int, len(m.items))
		for i := range m.items {
			m.filtered[i] = i
		}
	} else {
		titles := make([]string, len(m.items))
		for i, it := range m.items {
			titles[i] = it.Title
		}
		matches := fuzzy.Find(query, titles)
		m.filtered = make([]int, len(matches))
		for i, match := range matches {
			m.filtered[i] = match.Index
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// FilteredCount returns the number of entries matching the current filter.
func (m *PanelPickerModel) FilteredCount() int { return len(m.filtered) }

// Cursor returns the current cursor position.
func (m *PanelPickerModel) Cursor() int { return m.cursor }

// SelectedItem returns the highlighted item, or nil if none.
func (m *PanelPickerModel) SelectedItem() *PickerItem {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	item := m.items[m.filtered[m.cursor]]
	return &item
}

// View renders the picker overlay
func (m *PanelPickerModel) View() string {
	if m.width == 0 {
		m.width = 80
	}
	if m.height == 0 {
		m.height = 24
	}
	t := m.theme

	boxWidth := 60
	if m.width < 70 {
		boxWidth = m.width - 10
	}
	if boxWidth < 30 {
		boxWidth = 30
	}
	textWidth := boxWidth - 8

	var lines []string
	lines = append(lines, t.PrimaryBold.Render(fmt.Sprintf("Choose %s", m.stage))+
		t.MutedText.Render(fmt.Sprintf(" [%d/%d]", len(m.filtered), len(m.items))))
	lines = append(lines, "/ "+m.filterInput.View(), "")

	maxRows := m.height - 12
	if maxRows < 3 {
		maxRows = 3
	}
	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}

	if len(m.filtered) == 0 {
		lines = append(lines, t.MutedText.Italic(true).Render("No "+m.stage.String()+" found"))
	}
	for i := start; i < len(m.filtered) && i < start+maxRows; i++ {
		item := m.items[m.filtered[i]]
		prefix := "  "
		style := t.Renderer.NewStyle().Foreground(t.Base.GetForeground())
		if i == m.cursor {
			prefix = "> "
			style = t.PrimaryBold
		}
		title := runewidth.Truncate(item.Title, textWidth-8, "…")
		line := style.Render(prefix + title)
		if item.ID == m.current {
			line += " " + t.SecondaryText.Render("✓")
		}
		line += t.MutedText.Render(" " + strconv.Itoa(item.ID))
		lines = append(lines, line)
		if i == m.cursor && item.Detail != "" {
			lines = append(lines, t.MutedText.Render("    "+runewidth.Truncate(item.Detail, textWidth-4, "…")))
		}
	}

	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, "", footerStyle.Render("↑/↓: navigate | enter: choose | esc: cancel"))

	box := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

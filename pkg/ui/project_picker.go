package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/vanderheijden86/pricescope/pkg/cache"
	"github.com/vanderheijden86/pricescope/pkg/config"
	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/loader"
	"github.com/vanderheijden86/pricescope/pkg/model"
)

// ProjectEntry holds display data for one workspace in the picker.
type ProjectEntry struct {
	Project     config.Project
	FavoriteNum int  // 0 = no quick-switch key, 1-9 = key
	IsActive    bool // currently loaded workspace
	SKUs        int  // -1 when the products fixture is missing or broken
	Stores      int  // -1 when the locations fixture is missing or broken
	Cached      bool // the payload cache under .pscope/state/ holds entries
}

// SwitchProjectMsg is sent when the user selects a workspace to switch to.
type SwitchProjectMsg struct {
	Project config.Project
}

// ProjectPickerClosedMsg is sent when the picker is dismissed.
type ProjectPickerClosedMsg struct{}

// ProjectEntries describes projects for the picker. The first nine get
// quick-switch keys; activeRoot marks the loaded workspace.
func ProjectEntries(projects []config.Project, activeRoot string) []ProjectEntry {
	entries := make([]ProjectEntry, 0, len(projects))
	for i, p := range projects {
		ws := config.Workspace{Root: p.ResolvedPath()}
		e := ProjectEntry{
			Project:  p,
			IsActive: activeRoot != "" && ws.Root == activeRoot,
			SKUs:     fixtureLeafCount(ws.HierarchyFixture(model.DimensionProduct)),
			Stores:   fixtureLeafCount(ws.HierarchyFixture(model.DimensionLocation)),
		}
		if i < 9 {
			e.FavoriteNum = i + 1
		}
		e.Cached = cachedPayloads(ws.CachePath()) > 0
		entries = append(entries, e)
	}
	return entries
}

// cachedPayloads counts the entries of an existing cache. A missing or
// unreadable cache counts as empty; Open is not allowed to create one here.
func cachedPayloads(path string) int {
	if _, err := os.Stat(path); err != nil {
		return 0
	}
	store, err := cache.Open(path)
	if err != nil {
		debug.Warn("project picker: %v", err)
		return 0
	}
	defer store.Close()
	keys, err := store.Keys(context.Background())
	if err != nil {
		debug.Warn("project picker: listing %s: %v", path, err)
		return 0
	}
	return len(keys)
}

func fixtureLeafCount(path string) int {
	forest, err := loader.LoadHierarchyFile(path)
	if err != nil {
		return -1
	}
	total := 0
	for _, n := range forest {
		total += n.LeafCount()
	}
	return total
}

type projectSource []ProjectEntry

func (s projectSource) String(i int) string { return s[i].Project.Name }
func (s projectSource) Len() int            { return len(s) }

// ProjectPickerModel is a k9s-style workspace switcher: a shortcut bar,
// project chips that wrap at the terminal width, and a title bar.
// Number keys 1-9 switch directly; / narrows the chips by fuzzy match.
type ProjectPickerModel struct {
	entries     []ProjectEntry
	filtered    []int // indices into entries
	cursor      int
	width       int
	height      int
	filterInput textinput.Model
	filtering   bool
	theme       Theme
}

// NewProjectPicker creates a new project picker.
func NewProjectPicker(entries []ProjectEntry, theme Theme) ProjectPickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30

	m := ProjectPickerModel{
		entries:     entries,
		filterInput: ti,
		theme:       theme,
	}
	m.applyFilter()
	for i, idx := range m.filtered {
		if entries[idx].IsActive {
			m.cursor = i
		}
	}
	return m
}

// SetSize updates the picker dimensions.
func (m *ProjectPickerModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update handles keyboard input for the project picker.
func (m ProjectPickerModel) Update(msg tea.Msg) (ProjectPickerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFiltering(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m ProjectPickerModel) updateNormal(msg tea.KeyMsg) (ProjectPickerModel, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "w":
		return m, func() tea.Msg { return ProjectPickerClosedMsg{} }
	case "/":
		m.filtering = true
		m.cursor = 0
		m.filterInput.SetValue("")
		m.filterInput.Focus()
	case "j", "down", "l", "right":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case "k", "up", "h", "left":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		return m, m.choose()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n := int(msg.String()[0] - '0')
		for _, entry := range m.entries {
			if entry.FavoriteNum == n {
				return m, func() tea.Msg {
					return SwitchProjectMsg{Project: entry.Project}
				}
			}
		}
	}
	return m, nil
}

func (m ProjectPickerModel) updateFiltering(msg tea.KeyMsg) (ProjectPickerModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.applyFilter()
		return m, nil
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, m.choose()
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}
}

func (m *ProjectPickerModel) choose() tea.Cmd {
	entry := m.SelectedEntry()
	if entry == nil {
		return nil
	}
	p := entry.Project
	return func() tea.Msg { return SwitchProjectMsg{Project: p} }
}

func (m *ProjectPickerModel) applyFilter() {
	query := strings.TrimSpace(m.filterInput.Value())
	if query == "" {
		m.filtered = make([]int, len(m.entries))
		for i := range m.entries {
			m.filtered[i] = i
		}
	} else {
		matches := fuzzy.FindFrom(query, projectSource(m.entries))
		m.filtered = make([]int, len(matches))
		for i, match := range matches {
			m.filtered[i] = match.Index
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// View renders the shortcut bar, optional filter line, chips and title bar.
func (m *ProjectPickerModel) View() string {
	if m.width == 0 {
		m.width = 80
	}
	w := m.width
	t := m.theme

	var sections []string
	sections = append(sections, m.renderShortcutBar())

	if m.filtering {
		filterStyle := t.Renderer.NewStyle().
			Foreground(t.Primary).
			Width(w)
		sections = append(sections, filterStyle.Render("  / "+m.filterInput.View()))
	}

	if len(m.filtered) == 0 {
		dimStyle := t.Renderer.NewStyle().
			Foreground(t.Secondary).
			Italic(true)
		sections = append(sections, dimStyle.Render("  No workspaces found. Configure discovery.scan_paths in ~/.config/pscope/config.yaml"))
	} else {
		sections = append(sections, m.renderProjectChips(w)...)
	}

	sections = append(sections, m.renderTitleBar(w))

	if sel := m.SelectedEntry(); sel != nil {
		sections = append(sections, t.MutedText.Render("  "+sel.Project.ResolvedPath()))
	}

	out := strings.Join(sections, "\n")
	if m.height > 0 {
		out = lipgloss.Place(w, m.height, lipgloss.Center, lipgloss.Center, out)
	}
	return out
}

func (m *ProjectPickerModel) renderShortcutBar() string {
	t := m.theme

	keyStyle := t.Renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}).
		Bold(true)
	descStyle := t.Renderer.NewStyle().
		Foreground(t.Subtext)

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"<1-9>", "Quick Switch"},
		{"<enter>", "Open"},
		{"</>", "Filter"},
		{"<esc>", "Close"},
	}

	var parts []string
	for _, s := range shortcuts {
		parts = append(parts, keyStyle.Render(s.key)+" "+descStyle.Render(s.desc))
	}
	return " " + strings.Join(parts, "  ")
}

// renderTitleBar shows workspaces(active)[count] centered between rules.
func (m *ProjectPickerModel) renderTitleBar(w int) string {
	t := m.theme

	titleText := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true)
	countText := t.Renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"})

	label := "workspaces"
	if m.filtering && m.filterInput.Value() != "" {
		label = fmt.Sprintf("workspaces(%s)", m.filterInput.Value())
	} else {
		for _, entry := range m.entries {
			if entry.IsActive {
				label = fmt.Sprintf("workspaces(%s)", entry.Project.Name)
				break
			}
		}
	}
	count := fmt.Sprintf("[%d]", len(m.filtered))
	title := titleText.Render(label) + countText.Render(count)

	sepStyle := t.Renderer.NewStyle().Foreground(t.Border)
	titleLen := lipgloss.Width(label) + len(count)
	leftPad := (w - titleLen - 4) / 2
	rightPad := w - titleLen - 4 - leftPad
	if leftPad < 1 {
		leftPad = 1
	}
	if rightPad < 1 {
		rightPad = 1
	}
	return sepStyle.Render(strings.Repeat("─", leftPad)) + " " + title + " " + sepStyle.Render(strings.Repeat("─", rightPad))
}

// renderProjectChips flows chips horizontally, one string per line.
func (m *ProjectPickerModel) renderProjectChips(w int) []string {
	var lines []string
	var line strings.Builder
	lineLen := 0
	const indent = 2

	for i, idx := range m.filtered {
		entry := m.entries[idx]
		text := chipText(entry)
		chipLen := lipgloss.Width(text)

		if lineLen > indent && lineLen+chipLen+2 > w {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}
		if lineLen == 0 {
			line.WriteString(strings.Repeat(" ", indent))
			lineLen = indent
		} else {
			line.WriteString("  ")
			lineLen += 2
		}
		line.WriteString(m.styleChip(entry, text, i == m.cursor))
		lineLen += chipLen
	}
	if lineLen > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

// chipText is "N name(skus/stores)" with a trailing * when cached.
func chipText(entry ProjectEntry) string {
	num := " "
	if entry.FavoriteNum > 0 {
		num = fmt.Sprintf("%d", entry.FavoriteNum)
	}
	text := fmt.Sprintf("%s %s(%s/%s)", num, entry.Project.Name, countLabel(entry.SKUs), countLabel(entry.Stores))
	if entry.Cached {
		text += "*"
	}
	return text
}

func countLabel(n int) string {
	if n < 0 {
		return "?"
	}
	return fmt.Sprintf("%d", n)
}

func (m *ProjectPickerModel) styleChip(entry ProjectEntry, text string, isCursor bool) string {
	t := m.theme
	switch {
	case isCursor:
		return t.Selected.Render(text)
	case entry.IsActive:
		return t.PrimaryBold.Render(text)
	default:
		return t.Base.Render(text)
	}
}

// Filtering returns whether the picker is in filter mode.
func (m *ProjectPickerModel) Filtering() bool {
	return m.filtering
}

// Cursor returns the current cursor position.
func (m *ProjectPickerModel) Cursor() int {
	return m.cursor
}

// FilteredCount returns the number of entries matching the current filter.
func (m *ProjectPickerModel) FilteredCount() int {
	return len(m.filtered)
}

// SelectedEntry returns the highlighted entry, or nil if none.
func (m *ProjectPickerModel) SelectedEntry() *ProjectEntry {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	entry := m.entries[m.filtered[m.cursor]]
	return &entry
}

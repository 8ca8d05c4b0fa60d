// tree.go - Hierarchy view for one dimension's scope
package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/loader"
	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/scope"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

// TreeState is the persisted expansion state of both hierarchy views.
// It is saved to .pscope/state/tree-state.json.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": {
//	    "product":  ["P0", "P1"],
//	    "location": ["L0"]
//	  }
//	}
//
// Corrupted, missing or other-version files fall back to defaults. Unknown
// ids are ignored on restore.
type TreeState struct {
	Version  int                 `json:"version"`
	Expanded map[string][]string `json:"expanded"` // dimension -> expanded node ids
}

// TreeStateVersion is the current schema version for tree persistence
const TreeStateVersion = 1

// DefaultTreeState returns an empty state.
func DefaultTreeState() *TreeState {
	return &TreeState{
		Version:  TreeStateVersion,
		Expanded: make(map[string][]string),
	}
}

// LoadTreeState reads path. It never fails: any problem yields defaults.
func LoadTreeState(path string) *TreeState {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultTreeState()
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		debug.Warn("invalid tree state file %s, using defaults: %v", path, err)
		return DefaultTreeState()
	}
	if state.Version != TreeStateVersion {
		debug.Warn("tree state version %d unsupported, using defaults", state.Version)
		return DefaultTreeState()
	}
	if state.Expanded == nil {
		state.Expanded = make(map[string][]string)
	}
	return &state
}

// SaveTreeState writes state to path, creating the directory.
func SaveTreeState(path string, state *TreeState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tree state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing tree state: %w", err)
	}
	return nil
}

// TreeStateStore persists the expansion sets of a group of scopes. The first
// successful save also makes sure the state directory is gitignored.
type TreeStateStore struct {
	path        string
	projectRoot string
	scopes      []*scope.DimensionScope
	gitignored  bool
}

// NewTreeStateStore persists scopes to path. projectRoot, when set, is the
// directory whose .gitignore gets the state entry.
func NewTreeStateStore(path, projectRoot string, scopes ...*scope.DimensionScope) *TreeStateStore {
	return &TreeStateStore{path: path, projectRoot: projectRoot, scopes: scopes}
}

// Restore applies the persisted state to every scope.
func (s *TreeStateStore) Restore() {
	if s == nil || s.path == "" {
		return
	}
	state := LoadTreeState(s.path)
	for _, d := range s.scopes {
		ids, ok := state.Expanded[string(d.Dimension)]
		if !ok {
			continue
		}
		d.SetExpanded(model.NewIDSet(ids...))
	}
}

// Save writes the current expansion sets. Errors are logged, not returned:
// losing view state must never interrupt the user.
func (s *TreeStateStore) Save() {
	if s == nil || s.path == "" {
		return
	}
	state := DefaultTreeState()
	for _, d := range s.scopes {
		state.Expanded[string(d.Dimension)] = d.Expanded().Sorted()
	}
	if err := SaveTreeState(s.path, state); err != nil {
		debug.Warn("%v", err)
		return
	}
	if !s.gitignored && s.projectRoot != "" {
		if err := loader.EnsureStateInGitignore(s.projectRoot); err != nil {
			debug.Warn("updating .gitignore: %v", err)
		}
		s.gitignored = true
	}
}

// ScopeTreeModel renders and navigates one dimension's hierarchy.
type ScopeTreeModel struct {
	scope          *scope.DimensionScope
	rows           []scope.Row
	cursor         int
	viewportOffset int
	width          int
	height         int
	theme          Theme
	store          *TreeStateStore
}

// NewScopeTreeModel creates a view over d.
func NewScopeTreeModel(d *scope.DimensionScope, theme Theme) ScopeTreeModel {
	t := ScopeTreeModel{scope: d, theme: theme}
	t.Refresh()
	return t
}

// SetStore enables persistence of expand/collapse actions.
func (t *ScopeTreeModel) SetStore(store *TreeStateStore) {
	t.store = store
}

// Scope returns the underlying dimension scope.
func (t *ScopeTreeModel) Scope() *scope.DimensionScope { return t.scope }

// SetSize updates the available dimensions for the tree view
func (t *ScopeTreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Refresh recomputes the visible rows, keeping the cursor on the same node
// when it is still visible.
func (t *ScopeTreeModel) Refresh() {
	selected := t.SelectedID()
	t.rows = t.scope.Rows()
	if selected == "" || !t.SelectByID(selected) {
		t.clampCursor()
	}
	t.ensureCursorVisible()
}

// Rows returns the rows as last computed.
func (t *ScopeTreeModel) Rows() []scope.Row { return t.rows }

// SelectedRow returns the row under the cursor.
func (t *ScopeTreeModel) SelectedRow() (scope.Row, bool) {
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		return t.rows[t.cursor], true
	}
	return scope.Row{}, false
}

// SelectedID returns the node id under the cursor, or empty string.
func (t *ScopeTreeModel) SelectedID() string {
	if row, ok := t.SelectedRow(); ok {
		return row.Node.ID
	}
	return ""
}

// Cursor returns the cursor index.
func (t *ScopeTreeModel) Cursor() int { return t.cursor }

// SelectByID moves the cursor to the node with the given id.
func (t *ScopeTreeModel) SelectByID(id string) bool {
	for i, row := range t.rows {
		if row.Node.ID == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

// MoveDown moves the cursor down in the flat list.
func (t *ScopeTreeModel) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *ScopeTreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

// JumpToTop moves cursor to the first node.
func (t *ScopeTreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom moves cursor to the last node.
func (t *ScopeTreeModel) JumpToBottom() {
	if len(t.rows) > 0 {
		t.cursor = len(t.rows) - 1
	}
	t.ensureCursorVisible()
}

// PageDown moves cursor down by half a viewport.
func (t *ScopeTreeModel) PageDown() {
	t.cursor += t.pageSize()
	t.clampCursor()
	t.ensureCursorVisible()
}

// PageUp moves cursor up by half a viewport.
func (t *ScopeTreeModel) PageUp() {
	t.cursor -= t.pageSize()
	t.clampCursor()
	t.ensureCursorVisible()
}

func (t *ScopeTreeModel) pageSize() int {
	if n := t.height / 2; n >= 1 {
		return n
	}
	return 5
}

// ToggleExpand expands or collapses the node under the cursor.
func (t *ScopeTreeModel) ToggleExpand() {
	row, ok := t.SelectedRow()
	if !ok || !row.HasChildren {
		return
	}
	t.scope.ToggleExpand(row.Node.ID)
	t.Refresh()
	t.store.Save()
}

// ExpandOrMoveToChild expands a collapsed node, or moves into an expanded one.
func (t *ScopeTreeModel) ExpandOrMoveToChild() {
	row, ok := t.SelectedRow()
	if !ok || !row.HasChildren {
		return
	}
	if !row.Expanded {
		t.ToggleExpand()
		return
	}
	if t.cursor+1 < len(t.rows) && t.rows[t.cursor+1].Depth == row.Depth+1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// CollapseOrJumpToParent collapses an expanded node, or moves to its parent.
func (t *ScopeTreeModel) CollapseOrJumpToParent() {
	row, ok := t.SelectedRow()
	if !ok {
		return
	}
	if row.HasChildren && row.Expanded {
		t.ToggleExpand()
		return
	}
	t.JumpToParent()
}

// JumpToParent moves the cursor to the parent of the current row.
func (t *ScopeTreeModel) JumpToParent() {
	row, ok := t.SelectedRow()
	if !ok || row.Depth == 0 {
		return
	}
	for i := t.cursor - 1; i >= 0; i-- {
		if t.rows[i].Depth == row.Depth-1 {
			t.cursor = i
			t.ensureCursorVisible()
			return
		}
	}
}

// ExpandAll expands all nodes in the tree.
func (t *ScopeTreeModel) ExpandAll() {
	t.scope.ExpandAll()
	t.Refresh()
	t.store.Save()
}

// CollapseAll collapses all nodes below the roots.
func (t *ScopeTreeModel) CollapseAll() {
	t.scope.CollapseAll()
	t.Refresh()
	t.store.Save()
}

// ToggleSelection selects or deselects the node under the cursor. Inherited
// rows and locked scopes ignore the toggle.
func (t *ScopeTreeModel) ToggleSelection() bool {
	row, ok := t.SelectedRow()
	if !ok || !t.scope.CanToggle(row.Node.ID) {
		return false
	}
	t.scope.ToggleSelection(row.Node.ID)
	t.Refresh()
	t.store.Save()
	return true
}

func (t *ScopeTreeModel) clampCursor() {
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (t *ScopeTreeModel) visibleCount() int {
	if t.height > 0 {
		return t.height
	}
	return 20
}

func (t *ScopeTreeModel) ensureCursorVisible() {
	n := t.visibleCount()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+n {
		t.viewportOffset = t.cursor - n + 1
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// visibleRange returns the [start, end) slice of rows in the viewport.
func (t *ScopeTreeModel) visibleRange() (start, end int) {
	if len(t.rows) == 0 {
		return 0, 0
	}
	n := t.visibleCount()
	start = t.viewportOffset
	end = start + n
	if end > len(t.rows) {
		end = len(t.rows)
		start = end - n
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// View renders the visible rows.
func (t *ScopeTreeModel) View() string {
	if len(t.rows) == 0 {
		return t.renderEmptyState()
	}

	lastChild := lastChildFlags(t.rows)
	// hasMore[d] reports whether the current ancestor at depth d has later siblings.
	var hasMore []bool

	start, end := t.visibleRange()
	var sb strings.Builder
	for i, row := range t.rows {
		for len(hasMore) <= row.Depth {
			hasMore = append(hasMore, false)
		}
		hasMore[row.Depth] = !lastChild[i]
		if i < start || i >= end {
			continue
		}

		line := t.renderRow(row, hasMore, lastChild[i])
		if i == t.cursor {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// lastChildFlags marks rows that are the last child of their parent in
// render order.
func lastChildFlags(rows []scope.Row) []bool {
	flags := make([]bool, len(rows))
	var seen []bool
	for i := len(rows) - 1; i >= 0; i-- {
		d := rows[i].Depth
		for len(seen) <= d {
			seen = append(seen, false)
		}
		flags[i] = !seen[d]
		seen[d] = true
		for k := d + 1; k < len(seen); k++ {
			seen[k] = false
		}
	}
	return flags
}

func (t *ScopeTreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	title := r.NewStyle().Foreground(t.theme.Primary).Bold(true)
	muted := t.theme.MutedText

	var sb strings.Builder
	sb.WriteString(title.Render(strings.ToUpper(t.scope.Dimension.Plural()[:1]) + t.scope.Dimension.Plural()[1:]))
	sb.WriteString("\n\n")
	if t.scope.Search().IsActive() {
		sb.WriteString(muted.Render(t.scope.Search().StatusLine()))
		sb.WriteString("\n")
		sb.WriteString(muted.Render("Press esc to clear the search."))
	} else {
		sb.WriteString(muted.Render("No hierarchy loaded."))
		sb.WriteString("\n")
		sb.WriteString(muted.Render("Configure a backend or add .pscope/" + t.scope.Dimension.Plural() + ".json."))
	}
	return sb.String()
}

func (t *ScopeTreeModel) renderRow(row scope.Row, hasMore []bool, last bool) string {
	var sb strings.Builder

	prefix := ""
	if row.Depth > 0 {
		var parts []string
		for d := 1; d < row.Depth; d++ {
			if hasMore[d] {
				parts = append(parts, "│   ")
			} else {
				parts = append(parts, "    ")
			}
		}
		if last {
			parts = append(parts, "└── ")
		} else {
			parts = append(parts, "├── ")
		}
		prefix = strings.Join(parts, "")
		sb.WriteString(t.theme.SecondaryText.Render(prefix))
	}

	sb.WriteString(t.theme.SecondaryText.Render(expandIndicator(row)))
	sb.WriteString(" ")
	sb.WriteString(t.renderCheckbox(row.Display))
	sb.WriteString(" ")

	suffix := ""
	if row.Node.Count != nil {
		suffix = fmt.Sprintf(" (%d)", *row.Node.Count)
	}
	maxName := t.width - runewidth.StringWidth(prefix) - runewidth.StringWidth(suffix) - 8
	if maxName < 12 {
		maxName = 12
	}
	for _, seg := range truncateSegments(row.Segments, maxName) {
		if seg.Highlight {
			sb.WriteString(t.theme.MatchText.Render(seg.Text))
		} else {
			sb.WriteString(seg.Text)
		}
	}
	if suffix != "" {
		sb.WriteString(t.theme.MutedText.Render(suffix))
	}
	return sb.String()
}

func (t *ScopeTreeModel) renderCheckbox(d scope.NodeDisplay) string {
	switch {
	case d.Direct:
		return t.theme.DirectMark.Render("[x]")
	case d.Inherited:
		return t.theme.InheritedMark.Render("[~]")
	case !d.CanToggle:
		return t.theme.MutedText.Render("[ ]")
	default:
		return "[ ]"
	}
}

func expandIndicator(row scope.Row) string {
	if !row.HasChildren {
		return "•"
	}
	if row.Expanded {
		return "▾"
	}
	return "▸"
}

// truncateSegments cuts highlighted segments to maxWidth display cells,
// ending in an ellipsis when anything was dropped.
func truncateSegments(segs []tree.Segment, maxWidth int) []tree.Segment {
	total := 0
	for _, s := range segs {
		total += runewidth.StringWidth(s.Text)
	}
	if total <= maxWidth {
		return segs
	}

	budget := maxWidth - 1
	var out []tree.Segment
	for _, s := range segs {
		w := runewidth.StringWidth(s.Text)
		if w <= budget {
			out = append(out, s)
			budget -= w
			continue
		}
		if budget > 0 {
			out = append(out, tree.Segment{Text: runewidth.Truncate(s.Text, budget, ""), Highlight: s.Highlight})
		}
		break
	}
	return append(out, tree.Segment{Text: "…"})
}

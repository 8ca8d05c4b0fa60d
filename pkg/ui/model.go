package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/pricescope/pkg/config"
	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/export"
	"github.com/vanderheijden86/pricescope/pkg/loader"
	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/scope"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

var dimensions = [2]model.Dimension{model.DimensionProduct, model.DimensionLocation}

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayPicker
	overlaySummary
	overlayProjects
)

// Options wires the model to its data sources. Only Session is required.
type Options struct {
	Session   *scope.Session
	Workspace config.Workspace
	Config    config.Config
	Client    *loader.Client // nil when running offline
	Context   context.Context
	Projects  []config.Project // workspaces offered by the switcher
}

type scenariosLoadedMsg struct {
	query string
	items []model.Scenario
}

type panelsLoadedMsg struct {
	scenarioID int
	items      []model.Panel
}

type rulesLoadedMsg struct {
	panelID int
	items   []model.Rule
}

// Model is the root bubbletea model: a products and a locations tab, each
// with a hierarchy tree and a groups table, plus pickers for scenario,
// panel and rule.
type Model struct {
	session *scope.Session
	client  *loader.Client
	ctx     context.Context
	theme   Theme
	keys    keyMap

	active     int // index into dimensions
	trees      [2]ScopeTreeModel
	groups     [2]GroupsTableModel
	showGroups bool
	store      *TreeStateStore

	searchInput textinput.Model
	searching   bool

	overlay  overlay
	picker   PanelPickerModel
	viewport viewport.Model
	renderer *glamour.TermRenderer

	projects      []config.Project
	workspaceRoot string
	projectPicker ProjectPickerModel
	switchTo      *config.Project

	scenarioSearch  *loader.RemoteSearch[model.Scenario]
	scenarioResults chan scenariosLoadedMsg

	statusMsg     string
	statusIsError bool

	ready  bool
	width  int
	height int
}

// NewModel builds the UI over an already populated session.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search name or id"
	ti.CharLimit = 120

	m := Model{
		session:     opts.Session,
		client:      opts.Client,
		ctx:         ctx,
		theme:       theme,
		keys:        defaultKeyMap(),
		searchInput: ti,
		picker:      NewPanelPicker(theme),

		projects:      opts.Projects,
		workspaceRoot: opts.Workspace.Root,
	}

	mode := opts.Config.SearchMode()
	for i, d := range dimensions {
		ds := m.session.Dimension(d)
		ds.Search().SetMode(mode)
		m.trees[i] = NewScopeTreeModel(ds, theme)
		m.groups[i] = NewGroupsTableModel(ds, theme)
	}

	if opts.Workspace.Root != "" {
		m.store = NewTreeStateStore(opts.Workspace.TreeStatePath(), opts.Workspace.Root,
			m.session.Products, m.session.Locations)
		m.store.Restore()
		for i := range m.trees {
			m.trees[i].SetStore(m.store)
		}
	}

	if m.client != nil {
		wait := opts.Config.Search.Debounce
		if wait <= 0 {
			wait = 500 * time.Millisecond
		}
		results := make(chan scenariosLoadedMsg, 4)
		m.scenarioResults = results
		m.scenarioSearch = loader.NewScenarioSearch(ctx, m.client, wait, func(q string, items []model.Scenario) {
			select {
			case results <- scenariosLoadedMsg{query: q, items: items}:
			default:
				debug.Log("ui: dropping scenario results for %q", q)
			}
		})
	}

	m.refreshAll()
	return m
}

// SwitchTarget returns the workspace the user chose before quitting.
func (m Model) SwitchTarget() (config.Project, bool) {
	if m.switchTo == nil {
		return config.Project{}, false
	}
	return *m.switchTo, true
}

// Close stops background searches. Call after the program exits.
func (m Model) Close() {
	if m.scenarioSearch != nil {
		m.scenarioSearch.Stop()
	}
}

func (m Model) Init() tea.Cmd {
	if m.scenarioResults != nil {
		return m.waitForScenarioResults()
	}
	return nil
}

func (m Model) waitForScenarioResults() tea.Cmd {
	ch := m.scenarioResults
	return func() tea.Msg {
		return <-ch
	}
}

func (m *Model) activeScope() *scope.DimensionScope {
	return m.session.Dimension(dimensions[m.active])
}

func (m *Model) activeTree() *ScopeTreeModel { return &m.trees[m.active] }

func (m *Model) activeGroups() *GroupsTableModel { return &m.groups[m.active] }

func (m *Model) refreshAll() {
	for i := range m.trees {
		m.trees[i].Refresh()
		m.groups[i].Refresh()
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case FixturesReadyMsg:
		m.applyFixtures(msg.Snapshot)
		return m, nil

	case FixturesErrorMsg:
		m.setStatus(fmt.Sprintf("Fixture reload error (will retry): %v", msg.Err), true)
		return m, nil

	case scenariosLoadedMsg:
		m.session.SetScenarios(msg.items)
		if m.overlay == overlayPicker && m.picker.Stage() == PickScenario {
			m.picker.SetItems(ScenarioItems(msg.items))
		}
		if m.scenarioResults != nil {
			return m, m.waitForScenarioResults()
		}
		return m, nil

	case panelsLoadedMsg:
		if sc := m.session.Scenario(); sc == nil || sc.ID != msg.scenarioID {
			return m, nil
		}
		m.session.SetPanels(msg.items)
		if m.overlay == overlayPicker && m.picker.Stage() == PickPanel {
			m.picker.SetItems(PanelItems(msg.items))
		}
		return m, nil

	case rulesLoadedMsg:
		if p := m.session.Panel(); p == nil || p.ID != msg.panelID {
			return m, nil
		}
		m.session.SetRules(msg.items)
		if m.overlay == overlayPicker && m.picker.Stage() == PickRule {
			m.picker.SetItems(RuleItems(msg.items))
		}
		return m, nil

	case PickerClosedMsg:
		m.overlay = overlayNone
		return m, nil

	case PickerQueryMsg:
		if msg.Stage == PickScenario && m.scenarioSearch != nil {
			m.scenarioSearch.Query(msg.Query)
		}
		return m, nil

	case PickerChosenMsg:
		m.overlay = overlayNone
		return m, m.applyChoice(msg)

	case ProjectPickerClosedMsg:
		m.overlay = overlayNone
		return m, nil

	case SwitchProjectMsg:
		m.overlay = overlayNone
		if msg.Project.ResolvedPath() == m.workspaceRoot {
			return m, nil
		}
		p := msg.Project
		m.switchTo = &p
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) layout() {
	bodyHeight := m.bodyHeight()
	for i := range m.trees {
		m.trees[i].SetSize(m.width, bodyHeight)
		m.groups[i].SetSize(m.width, bodyHeight)
	}
	m.picker.SetSize(m.width, m.height)
	m.projectPicker.SetSize(m.width, m.height)
	m.searchInput.Width = m.width - 20

	m.viewport = viewport.New(m.width, max(m.height-2, 1))
	wrap := m.width - 4
	if wrap < 40 {
		wrap = 40
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		debug.Warn("glamour renderer: %v", err)
		r = nil
	}
	m.renderer = r
}

// bodyHeight is the space left after the header, search line and footer.
func (m *Model) bodyHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) applyFixtures(snap *FixtureSnapshot) {
	if snap == nil {
		return
	}
	if m.session.Locked() {
		m.setStatus("Fixtures changed; reload deferred while a panel is selected", false)
		return
	}
	m.session.SetHierarchies(snap.Products, snap.Locations)
	m.session.SetGroups(snap.Groups.Products, snap.Groups.Locations)
	m.refreshAll()
	m.setStatus(fmt.Sprintf("Reloaded fixtures (%s)", hashPrefix(snap.DataHash)), false)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.overlay {
	case overlayHelp:
		switch msg.String() {
		case "esc", "?", "q":
			m.overlay = overlayNone
		}
		return m, nil
	case overlayPicker:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	case overlayProjects:
		var cmd tea.Cmd
		m.projectPicker, cmd = m.projectPicker.Update(msg)
		return m, cmd
	case overlaySummary:
		switch {
		case key.Matches(msg, m.keys.Clear), key.Matches(msg, m.keys.Summary), key.Matches(msg, m.keys.Quit):
			m.overlay = overlayNone
		case key.Matches(msg, m.keys.Copy):
			m.copyContext()
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	m.statusMsg = ""
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Help):
		m.overlay = overlayHelp
		return m, nil
	case key.Matches(msg, k.SwitchDim):
		m.active = 1 - m.active
		m.syncSearchInput()
		return m, nil
	case key.Matches(msg, k.SwitchView):
		m.showGroups = !m.showGroups
		m.syncSearchInput()
		return m, nil
	case key.Matches(msg, k.Search):
		m.searching = true
		m.syncSearchInput()
		return m, m.searchInput.Focus()
	case key.Matches(msg, k.ToggleMode):
		m.toggleSearchMode()
		return m, nil
	case key.Matches(msg, k.Clear):
		m.clearSearch()
		return m, nil
	case key.Matches(msg, k.Summary):
		m.openSummary()
		return m, nil
	case key.Matches(msg, k.Copy):
		m.copyContext()
		return m, nil
	case key.Matches(msg, k.PickScenario):
		return m, m.openScenarioPicker()
	case key.Matches(msg, k.PickPanel):
		return m, m.openPanelPicker()
	case key.Matches(msg, k.PickRule):
		return m, m.openRulePicker()
	case key.Matches(msg, k.SwitchWorkspace):
		if len(m.projects) == 0 {
			m.setStatus("No other workspaces configured", true)
			return m, nil
		}
		m.projectPicker = NewProjectPicker(ProjectEntries(m.projects, m.workspaceRoot), m.theme)
		m.projectPicker.SetSize(m.width, m.height)
		m.overlay = overlayProjects
		return m, nil
	case key.Matches(msg, k.ClearPanel):
		if m.session.Locked() {
			m.session.SelectPanel(m.ctx, nil)
			m.refreshAll()
			m.setStatus("Panel cleared; scope unlocked", false)
		}
		return m, nil
	case key.Matches(msg, k.NewChat):
		m.session.Reset()
		m.searchInput.SetValue("")
		for i := range m.groups {
			m.groups[i].SetFilter("")
		}
		m.refreshAll()
		m.store.Save()
		m.setStatus("New chat started", false)
		return m, nil
	}

	if m.showGroups {
		m.handleGroupsKey(msg)
	} else {
		m.handleTreeKey(msg)
	}
	return m, nil
}

func (m *Model) handleTreeKey(msg tea.KeyMsg) {
	t := m.activeTree()
	k := m.keys
	switch {
	case key.Matches(msg, k.Up):
		t.MoveUp()
	case key.Matches(msg, k.Down):
		t.MoveDown()
	case key.Matches(msg, k.Left):
		t.CollapseOrJumpToParent()
	case key.Matches(msg, k.Right):
		t.ExpandOrMoveToChild()
	case key.Matches(msg, k.Top):
		t.JumpToTop()
	case key.Matches(msg, k.Bottom):
		t.JumpToBottom()
	case key.Matches(msg, k.PageUp):
		t.PageUp()
	case key.Matches(msg, k.PageDown):
		t.PageDown()
	case key.Matches(msg, k.Expand):
		t.ToggleExpand()
	case key.Matches(msg, k.ExpandAll):
		t.ExpandAll()
	case key.Matches(msg, k.CollapseAll):
		t.CollapseAll()
	case key.Matches(msg, k.Select):
		if !t.ToggleSelection() {
			m.explainBlockedToggle()
			return
		}
		m.activeGroups().Refresh()
	}
}

func (m *Model) handleGroupsKey(msg tea.KeyMsg) {
	g := m.activeGroups()
	switch {
	case key.Matches(msg, m.keys.Up):
		g.MoveUp()
	case key.Matches(msg, m.keys.Down):
		g.MoveDown()
	case key.Matches(msg, m.keys.Select):
		if !g.Toggle() {
			m.explainBlockedToggle()
			return
		}
		m.activeTree().Refresh()
	}
}

func (m *Model) explainBlockedToggle() {
	if m.activeScope().Selection().Locked() {
		m.setStatus("Scope is fixed by the selected panel (x to unlock)", true)
		return
	}
	if row, ok := m.activeTree().SelectedRow(); ok && !m.showGroups && row.Display.Inherited {
		m.setStatus("Already covered by a selected ancestor", false)
	}
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.clearSearch()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "ctrl+t":
		m.toggleSearchMode()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applySearch(m.searchInput.Value())
	return m, cmd
}

func (m *Model) applySearch(term string) {
	if m.showGroups {
		m.activeGroups().SetFilter(strings.TrimSpace(term))
		return
	}
	m.activeScope().Search().SetTerm(term)
	m.activeTree().Refresh()
}

func (m *Model) clearSearch() {
	m.searchInput.SetValue("")
	if m.showGroups {
		m.activeGroups().SetFilter("")
		return
	}
	m.activeScope().Search().ClearSearch()
	m.activeTree().Refresh()
}

func (m *Model) toggleSearchMode() {
	if m.showGroups {
		return
	}
	s := m.activeScope().Search()
	s.ToggleSearchMode()
	m.activeTree().Refresh()
	m.setStatus("Search mode: "+s.Mode().Description(), false)
}

// syncSearchInput shows the active view's term in the input.
func (m *Model) syncSearchInput() {
	if m.showGroups {
		m.searchInput.SetValue(m.activeGroups().Filter())
	} else {
		m.searchInput.SetValue(m.activeScope().Search().Term())
	}
	m.searchInput.CursorEnd()
}

func (m *Model) copyContext() {
	c := m.session.ChatContext()
	if c.IsEmpty() {
		m.setStatus("Nothing to copy: no scenario, panel or selection", true)
		return
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		m.setStatus(fmt.Sprintf("Encoding context: %v", err), true)
		return
	}
	if err := copyToClipboard(string(data)); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus("Copied chat context to clipboard", false)
}

func (m *Model) openSummary() {
	md := export.GenerateSummary(m.session, "Pricing Scope", time.Now())
	content := md
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(md); err == nil {
			content = rendered
		} else {
			debug.Warn("rendering summary: %v", err)
		}
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
	m.overlay = overlaySummary
}

func (m *Model) openScenarioPicker() tea.Cmd {
	current := 0
	if sc := m.session.Scenario(); sc != nil {
		current = sc.ID
	}
	if m.client == nil && len(m.session.Scenarios()) == 0 {
		m.setStatus("No scenarios available offline", true)
		return nil
	}
	m.picker.Open(PickScenario, ScenarioItems(m.session.Scenarios()), current)
	m.overlay = overlayPicker
	if m.client == nil {
		return nil
	}
	client, ctx := m.client, m.ctx
	return func() tea.Msg {
		return scenariosLoadedMsg{items: client.FetchScenarios(ctx, "")}
	}
}

func (m *Model) openPanelPicker() tea.Cmd {
	sc := m.session.Scenario()
	if sc == nil {
		m.setStatus("Choose a scenario first (p)", true)
		return nil
	}
	current := 0
	if p := m.session.Panel(); p != nil {
		current = p.ID
	}
	m.picker.Open(PickPanel, PanelItems(m.session.Panels()), current)
	m.overlay = overlayPicker
	if m.client == nil {
		return nil
	}
	client, ctx, id := m.client, m.ctx, sc.ID
	return func() tea.Msg {
		return panelsLoadedMsg{scenarioID: id, items: client.FetchPanels(ctx, id, "")}
	}
}

func (m *Model) openRulePicker() tea.Cmd {
	p := m.session.Panel()
	if p == nil {
		m.setStatus("Choose a panel first (P)", true)
		return nil
	}
	current := 0
	if r, ok := m.session.Rule(); ok {
		current = r.ID
	}
	m.picker.Open(PickRule, RuleItems(m.session.Rules()), current)
	m.overlay = overlayPicker
	if m.client == nil {
		return nil
	}
	client, ctx, id := m.client, m.ctx, p.ID
	return func() tea.Msg {
		return rulesLoadedMsg{panelID: id, items: client.FetchRules(ctx, id, "")}
	}
}

func (m *Model) applyChoice(msg PickerChosenMsg) tea.Cmd {
	switch msg.Stage {
	case PickScenario:
		for _, sc := range m.session.Scenarios() {
			if sc.ID == msg.ID {
				m.session.SelectScenario(&sc)
				m.refreshAll()
				m.setStatus("Scenario: "+sc.Name, false)
				return m.openPanelPicker()
			}
		}
	case PickPanel:
		for _, p := range m.session.Panels() {
			if p.ID == msg.ID {
				m.session.SelectPanel(m.ctx, &p)
				m.refreshAll()
				m.setStatus("Panel: "+p.Name+" (scope locked)", false)
				if m.client == nil {
					return nil
				}
				client, ctx, id := m.client, m.ctx, p.ID
				return func() tea.Msg {
					return rulesLoadedMsg{panelID: id, items: client.FetchRules(ctx, id, "")}
				}
			}
		}
	case PickRule:
		m.session.ToggleRule(msg.ID)
		if r, ok := m.session.Rule(); ok {
			m.setStatus(fmt.Sprintf("Rule #%d selected", r.ID), false)
		} else {
			m.setStatus("Rule cleared", false)
		}
	}
	return nil
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.overlay {
	case overlayHelp:
		return RenderContextHelp(m.helpContext(), m.theme, m.width, m.height)
	case overlayPicker:
		return m.picker.View()
	case overlayProjects:
		return m.projectPicker.View()
	case overlaySummary:
		title := m.theme.Header.Render("Scope Summary")
		hint := m.theme.MutedText.Render(" j/k scroll • y copy • esc close")
		return lipgloss.JoinVertical(lipgloss.Left, title+hint, m.viewport.View())
	}

	var body string
	if m.showGroups {
		body = m.activeGroups().View()
	} else {
		body = m.activeTree().View()
	}
	body = lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderSearchLine(),
		body,
		m.renderFooter(),
	)
}

func (m Model) helpContext() Context {
	switch {
	case m.searching:
		return ContextSearch
	case m.showGroups:
		return ContextGroups
	default:
		return ContextTree
	}
}

func (m Model) renderHeader() string {
	t := m.theme
	var tabs []string
	for i, d := range dimensions {
		label := strings.ToUpper(d.Plural()[:1]) + d.Plural()[1:]
		if i == m.active {
			tabs = append(tabs, t.Header.Render(label))
		} else {
			tabs = append(tabs, t.MutedText.Padding(0, 1).Render(label))
		}
	}
	view := "tree"
	if m.showGroups {
		view = "groups"
	}
	left := strings.Join(tabs, " ") + t.SecondaryText.Render(" · "+view)

	var ctxParts []string
	if sc := m.session.Scenario(); sc != nil {
		ctxParts = append(ctxParts, "Scenario: "+sc.Name)
	}
	if p := m.session.Panel(); p != nil {
		ctxParts = append(ctxParts, "Panel: "+p.Name)
	}
	if r, ok := m.session.Rule(); ok {
		ctxParts = append(ctxParts, fmt.Sprintf("Rule: #%d %s", r.Rank, r.RuleType))
	}
	right := t.MutedText.Render(strings.Join(ctxParts, " | "))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderSearchLine() string {
	t := m.theme
	if m.searching {
		return m.searchInput.View()
	}
	if m.showGroups {
		if f := m.activeGroups().Filter(); f != "" {
			return t.MutedText.Render(fmt.Sprintf("filter: %q (esc to clear)", f))
		}
		return ""
	}
	s := m.activeScope().Search()
	if !s.IsActive() {
		return t.MutedText.Render("mode: " + s.Mode().Description())
	}
	return t.MatchText.Render(s.StatusLine())
}

func (m Model) renderFooter() string {
	t := m.theme
	ds := m.activeScope()

	modeLabel := strings.ToUpper(string(ds.Search().Mode()))
	modeSection := t.Header.Render(modeLabel)

	unit := ds.Dimension.UnitLabel()
	countSection := t.PrimaryBold.Padding(0, 1).Render(
		fmt.Sprintf("%d selected · %d %ss", ds.Selection().Len(), ds.Count(), unit))

	viewSection := ""
	if search := ds.Search(); search.IsActive() && search.Mode() == model.SearchFilter {
		viewSection = t.MutedText.Padding(0, 1).Render(fmt.Sprintf("%d of %d nodes",
			tree.CountNodes(search.FilteredTree()), tree.CountNodes(ds.Forest())))
	}

	lockSection := ""
	if m.session.Locked() {
		lockSection = t.LockedBadge.Render("LOCKED")
	}

	var statusSection string
	if m.statusMsg != "" {
		style := t.SecondaryText
		if m.statusIsError {
			style = t.ErrorText
		}
		statusSection = style.Padding(0, 1).Render(m.statusMsg)
	}

	keys := t.MutedText.Padding(0, 1).Render("space select • / search • tab dim • v groups • ? help • q quit")

	left := modeSection + lockSection + countSection + viewSection + statusSection
	remaining := m.width - lipgloss.Width(left) - lipgloss.Width(keys)
	if remaining < 0 {
		return left
	}
	return left + strings.Repeat(" ", remaining) + keys
}

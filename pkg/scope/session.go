package scope

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

// DefaultAgent is the chat agent used when none is configured.
const DefaultAgent = "chat_assistant"

// HierarchySource fetches a hierarchy, optionally rooted at nodeID. An empty
// forest means no data; implementations do not report errors.
type HierarchySource interface {
	FetchHierarchy(ctx context.Context, dim model.Dimension, nodeID string) model.Forest
}

// Session is the scoping state of one chat: scenario, panel and rule
// context plus the product and location scopes.
type Session struct {
	ID     string
	ChatID string
	Agent  string

	Products  *DimensionScope
	Locations *DimensionScope

	source HierarchySource

	fullProducts  model.Forest
	fullLocations model.Forest

	scenarios []model.Scenario
	panels    []model.Panel
	rules     []model.Rule

	scenario *model.Scenario
	panel    *model.Panel
	ruleID   int
	hasRule  bool
}

// NewSession creates an empty session. source may be nil when panel
// selection should reuse the full hierarchies.
func NewSession(source HierarchySource) *Session {
	return &Session{
		ID:        NewSessionID(),
		Agent:     DefaultAgent,
		Products:  NewDimensionScope(model.DimensionProduct),
		Locations: NewDimensionScope(model.DimensionLocation),
		source:    source,
	}
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Dimension returns the scope for d.
func (s *Session) Dimension(d model.Dimension) *DimensionScope {
	if d == model.DimensionLocation {
		return s.Locations
	}
	return s.Products
}

// SetHierarchies installs the full, unfiltered hierarchies.
func (s *Session) SetHierarchies(products, locations model.Forest) {
	s.fullProducts = products
	s.fullLocations = locations
	if s.panel == nil {
		s.Products.SetForest(products)
		s.Locations.SetForest(locations)
	}
}

// SetGroups installs the product and location group lists.
func (s *Session) SetGroups(products, locations []model.Group) {
	s.Products.SetGroups(products)
	s.Locations.SetGroups(locations)
}

// SetScenarios replaces the known scenarios.
func (s *Session) SetScenarios(scenarios []model.Scenario) { s.scenarios = scenarios }

// SetPanels replaces the panels of the current scenario.
func (s *Session) SetPanels(panels []model.Panel) { s.panels = panels }

// SetRules replaces the rules of the current panel.
func (s *Session) SetRules(rules []model.Rule) { s.rules = rules }

// Scenarios returns the known scenarios.
func (s *Session) Scenarios() []model.Scenario { return s.scenarios }

// Panels returns the panels of the current scenario.
func (s *Session) Panels() []model.Panel { return s.panels }

// Rules returns the rules of the current panel.
func (s *Session) Rules() []model.Rule { return s.rules }

// Scenario returns the selected scenario, or nil.
func (s *Session) Scenario() *model.Scenario { return s.scenario }

// Panel returns the selected panel, or nil.
func (s *Session) Panel() *model.Panel { return s.panel }

// Rule returns the selected rule.
func (s *Session) Rule() (model.Rule, bool) {
	if !s.hasRule {
		return model.Rule{}, false
	}
	for _, r := range s.rules {
		if r.ID == s.ruleID {
			return r, true
		}
	}
	return model.Rule{ID: s.ruleID}, true
}

// Locked reports whether a panel currently fixes the scope.
func (s *Session) Locked() bool { return s.panel != nil }

// SelectScenario switches scenario. Panel, rule and both selections are
// cleared and a new chat starts.
func (s *Session) SelectScenario(scenario *model.Scenario) {
	if scenario != nil {
		sc := *scenario
		s.scenario = &sc
	} else {
		s.scenario = nil
	}
	s.panels = nil
	s.clearPanel()
	s.ChatID = ""
	debug.Log("session: scenario=%v", scenarioID(s.scenario))
}

// SelectPanel fixes the scope to the panel's product and location nodes and
// makes both dimensions read-only. The hierarchies are refetched rooted at
// those nodes. A nil panel unlocks and clears the scope.
func (s *Session) SelectPanel(ctx context.Context, panel *model.Panel) {
	if panel == nil {
		s.clearPanel()
		return
	}
	p := *panel
	s.panel = &p
	s.hasRule = false
	s.rules = nil

	products, locations := s.fetchPanelForests(ctx, p)
	s.Products.SetForest(products)
	s.Locations.SetForest(locations)

	applyPanelNode(s.Products, p.ProductNodeID)
	applyPanelNode(s.Locations, p.LocationNodeID)
	debug.Log("session: panel=%d product=%q location=%q", p.ID, p.ProductNodeID, p.LocationNodeID)
}

func applyPanelNode(d *DimensionScope, nodeID string) {
	d.Selection().Unlock()
	if nodeID != "" {
		d.ReplaceSelection(nodeID)
	} else {
		d.ReplaceSelection()
	}
	d.Selection().Lock()
}

func (s *Session) fetchPanelForests(ctx context.Context, p model.Panel) (model.Forest, model.Forest) {
	products, locations := s.fullProducts, s.fullLocations
	if s.source == nil {
		return products, locations
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.ProductNodeID != "" {
		g.Go(func() error {
			if f := s.source.FetchHierarchy(gctx, model.DimensionProduct, p.ProductNodeID); len(f) > 0 {
				products = f
			}
			return nil
		})
	}
	if p.LocationNodeID != "" {
		g.Go(func() error {
			if f := s.source.FetchHierarchy(gctx, model.DimensionLocation, p.LocationNodeID); len(f) > 0 {
				locations = f
			}
			return nil
		})
	}
	_ = g.Wait()
	return products, locations
}

func (s *Session) clearPanel() {
	s.panel = nil
	s.hasRule = false
	s.rules = nil
	for _, d := range []*DimensionScope{s.Products, s.Locations} {
		d.Selection().Unlock()
		d.Selection().Clear()
	}
	s.Products.SetForest(s.fullProducts)
	s.Locations.SetForest(s.fullLocations)
}

// ToggleRule selects a rule, or clears it when it is already selected.
func (s *Session) ToggleRule(id int) {
	if s.hasRule && s.ruleID == id {
		s.hasRule = false
		return
	}
	s.ruleID = id
	s.hasRule = true
}

// Reset starts a new chat: all context is cleared and scopes unlocked.
func (s *Session) Reset() {
	s.scenario = nil
	s.panels = nil
	s.clearPanel()
	s.Products.Reset()
	s.Locations.Reset()
	s.ChatID = ""
	s.ID = NewSessionID()
}

// SetChatID records the conversation id returned by the backend.
func (s *Session) SetChatID(id string) {
	s.ChatID = id
}

// Ref identifies a scenario, panel or group in the chat context.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// NodeRef identifies a hierarchy node in the chat context.
type NodeRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Level string `json:"level,omitempty"`
}

// RuleRef identifies a rule in the chat context.
type RuleRef struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Rank int    `json:"rank,omitempty"`
}

// ChatContext is the scope attached to a chat request. Each dimension
// contributes either a node or a group, never both.
type ChatContext struct {
	Scenario      *Ref     `json:"scenario,omitempty"`
	Panel         *Ref     `json:"panel,omitempty"`
	Rule          *RuleRef `json:"rule,omitempty"`
	ProductNode   *NodeRef `json:"product_node,omitempty"`
	ProductGroup  *Ref     `json:"product_group,omitempty"`
	LocationNode  *NodeRef `json:"location_node,omitempty"`
	LocationGroup *Ref     `json:"location_group,omitempty"`
}

// IsEmpty reports whether no context is set.
func (c ChatContext) IsEmpty() bool {
	return c == ChatContext{}
}

// ChatRequest is the body sent to the external chat transport.
type ChatRequest struct {
	UserInput string       `json:"user_input"`
	SessionID string       `json:"session_id"`
	Agent     string       `json:"agent"`
	ChatID    string       `json:"chat_id,omitempty"`
	Context   *ChatContext `json:"context,omitempty"`
}

// ChatContext assembles the current scope. The earliest selected id of each
// dimension represents it.
func (s *Session) ChatContext() ChatContext {
	var c ChatContext
	if s.scenario != nil {
		c.Scenario = &Ref{ID: strconv.Itoa(s.scenario.ID), Name: s.scenario.Name}
	}
	if s.panel != nil {
		c.Panel = &Ref{ID: strconv.Itoa(s.panel.ID), Name: s.panel.Name}
	}
	if r, ok := s.Rule(); ok {
		c.Rule = &RuleRef{ID: strconv.Itoa(r.ID), Type: r.RuleType, Rank: r.Rank}
	}
	c.ProductNode, c.ProductGroup = dimensionContext(s.Products)
	c.LocationNode, c.LocationGroup = dimensionContext(s.Locations)
	return c
}

func dimensionContext(d *DimensionScope) (*NodeRef, *Ref) {
	id, ok := d.Selection().First()
	if !ok {
		return nil, nil
	}
	if gid, isGroup := model.ParseGroupKey(id); isGroup {
		ref := &Ref{ID: strconv.Itoa(gid)}
		if g, found := model.FindGroup(d.Groups(), gid); found {
			ref.Name = g.Name
		}
		return nil, ref
	}
	ref := &NodeRef{ID: id}
	if n, found := tree.FindNode(d.Forest(), id); found {
		ref.Name = n.Name
		ref.Level = n.Level
	}
	return ref, nil
}

// ChatRequest builds the request body for a user message.
func (s *Session) ChatRequest(input string) ChatRequest {
	req := ChatRequest{
		UserInput: input,
		SessionID: s.ID,
		Agent:     s.Agent,
		ChatID:    s.ChatID,
	}
	if c := s.ChatContext(); !c.IsEmpty() {
		req.Context = &c
	}
	return req
}

func scenarioID(sc *model.Scenario) string {
	if sc == nil {
		return "none"
	}
	return strconv.Itoa(sc.ID)
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/pricescope/pkg/config"
	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/scope"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

// selectionFlags describe a scope on the command line.
type selectionFlags struct {
	products      []string
	locations     []string
	productGroup  int
	locationGroup int
	scenario      int
	panel         int
	rule          int
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVar(&f.products, "product", nil, "product node ids to select")
	fs.StringSliceVar(&f.locations, "location", nil, "location node ids to select")
	fs.IntVar(&f.productGroup, "product-group", 0, "product group id to select")
	fs.IntVar(&f.locationGroup, "location-group", 0, "location group id to select")
	fs.IntVar(&f.scenario, "scenario", 0, "scenario id (needs a backend)")
	fs.IntVar(&f.panel, "panel", 0, "panel id within --scenario; fixes the scope (needs a backend)")
	fs.IntVar(&f.rule, "rule", 0, "rule id within --panel (needs a backend)")
	cmd.MarkFlagsMutuallyExclusive("product", "product-group")
	cmd.MarkFlagsMutuallyExclusive("location", "location-group")
	cmd.MarkFlagsMutuallyExclusive("panel", "product")
	cmd.MarkFlagsMutuallyExclusive("panel", "product-group")
	cmd.MarkFlagsMutuallyExclusive("panel", "location")
	cmd.MarkFlagsMutuallyExclusive("panel", "location-group")
}

// apply selects the flagged scope in s. Unknown ids are errors.
func (f *selectionFlags) apply(ctx context.Context, env *appEnv, s *scope.Session) error {
	if err := f.applyContext(ctx, env, s); err != nil {
		return err
	}
	if s.Locked() {
		return nil
	}
	if err := selectNodes(s.Products, f.products); err != nil {
		return err
	}
	if err := selectNodes(s.Locations, f.locations); err != nil {
		return err
	}
	if err := selectGroup(s.Products, f.productGroup); err != nil {
		return err
	}
	return selectGroup(s.Locations, f.locationGroup)
}

func (f *selectionFlags) applyContext(ctx context.Context, env *appEnv, s *scope.Session) error {
	if f.scenario == 0 {
		if f.panel != 0 || f.rule != 0 {
			return fmt.Errorf("--panel and --rule need --scenario")
		}
		return nil
	}
	if env.client == nil {
		return fmt.Errorf("--scenario needs a backend (set backend.base_url or %s, drop --offline)", config.EnvBackendURL)
	}

	s.SetScenarios(env.client.FetchScenarios(ctx, ""))
	sc, ok := findScenario(s.Scenarios(), f.scenario)
	if !ok {
		return fmt.Errorf("unknown scenario %d", f.scenario)
	}
	s.SelectScenario(&sc)
	if f.panel == 0 {
		if f.rule != 0 {
			return fmt.Errorf("--rule needs --panel")
		}
		return nil
	}

	s.SetPanels(env.client.FetchPanels(ctx, sc.ID, ""))
	p, ok := findPanel(s.Panels(), f.panel)
	if !ok {
		return fmt.Errorf("unknown panel %d in scenario %d", f.panel, sc.ID)
	}
	s.SelectPanel(ctx, &p)
	if f.rule == 0 {
		return nil
	}

	s.SetRules(env.client.FetchRules(ctx, p.ID, ""))
	for _, r := range s.Rules() {
		if r.ID == f.rule {
			s.ToggleRule(r.ID)
			return nil
		}
	}
	return fmt.Errorf("unknown rule %d in panel %d", f.rule, p.ID)
}

func selectNodes(d *scope.DimensionScope, ids []string) error {
	seen := model.NewIDSet()
	for _, id := range ids {
		if seen.Has(id) {
			continue
		}
		seen.Add(id)
		if _, ok := tree.FindNode(d.Forest(), id); !ok {
			return fmt.Errorf("unknown %s node %q", d.Dimension, id)
		}
		if !d.CanToggle(id) {
			return fmt.Errorf("%s node %q is already covered by a selected ancestor", d.Dimension, id)
		}
		d.ToggleSelection(id)
	}
	return nil
}

func selectGroup(d *scope.DimensionScope, id int) error {
	if id == 0 {
		return nil
	}
	if _, ok := model.FindGroup(d.Groups(), id); !ok {
		return fmt.Errorf("unknown %s group %d", d.Dimension, id)
	}
	d.ToggleSelection(model.GroupKey(id))
	return nil
}

func findScenario(list []model.Scenario, id int) (model.Scenario, bool) {
	for _, sc := range list {
		if sc.ID == id {
			return sc, true
		}
	}
	return model.Scenario{}, false
}

func findPanel(list []model.Panel, id int) (model.Panel, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return model.Panel{}, false
}

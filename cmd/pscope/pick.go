package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/pricescope/pkg/config"
)

func newPickCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pick",
		Short: "Choose a scenario and panel interactively and print its context",
		Long: "Prompt for a scenario and one of its panels, apply the panel's fixed scope\n" +
			"and print the resulting chat context JSON. Needs a backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx, root)
			if err != nil {
				return err
			}
			defer env.Close()
			if env.client == nil {
				return fmt.Errorf("pick needs a backend (set backend.base_url or %s, drop --offline)", config.EnvBackendURL)
			}

			s := env.newSession(ctx)
			s.SetScenarios(env.client.FetchScenarios(ctx, ""))
			if len(s.Scenarios()) == 0 {
				return errors.New("backend returned no scenarios")
			}

			var scenarioID int
			opts := make([]huh.Option[int], 0, len(s.Scenarios()))
			for _, sc := range s.Scenarios() {
				opts = append(opts, huh.NewOption(optionLabel(sc.Name, sc.Description), sc.ID))
			}
			if err := newForm(huh.NewGroup(
				huh.NewSelect[int]().
					Title("Scenario").
					Options(opts...).
					Value(&scenarioID),
			)).Run(); err != nil {
				return err
			}
			sc, _ := findScenario(s.Scenarios(), scenarioID)
			s.SelectScenario(&sc)

			s.SetPanels(env.client.FetchPanels(ctx, sc.ID, ""))
			if len(s.Panels()) > 0 {
				var panelID int
				popts := make([]huh.Option[int], 0, len(s.Panels())+1)
				popts = append(popts, huh.NewOption("(no panel)", 0))
				for _, p := range s.Panels() {
					popts = append(popts, huh.NewOption(optionLabel(p.Name, p.Description), p.ID))
				}
				if err := newForm(huh.NewGroup(
					huh.NewSelect[int]().
						Title("Panel").
						Description("A panel fixes the product and location scope").
						Options(popts...).
						Value(&panelID),
				)).Run(); err != nil {
					return err
				}
				if p, ok := findPanel(s.Panels(), panelID); ok {
					s.SelectPanel(ctx, &p)
				}
			}

			data, err := json.MarshalIndent(s.ChatContext(), "", "  ")
			if err != nil {
				return fmt.Errorf("encoding context: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// newForm falls back to accessible prompts when stdin is not a terminal.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		form = form.WithAccessible(true)
	}
	return form
}

func optionLabel(name, desc string) string {
	if desc == "" {
		return name
	}
	return name + " - " + runewidth.Truncate(desc, 48, "…")
}

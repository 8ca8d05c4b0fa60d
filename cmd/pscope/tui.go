package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/pricescope/pkg/config"
	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/ui"
)

func newTUICmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive tree browser (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, root)
		},
	}
}

// runTUI runs the browser until the user quits. Choosing another workspace
// in the switcher quits the program, and the loop reopens it there.
func runTUI(cmd *cobra.Command, root *rootOptions) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("the tree browser needs a terminal; use count, search, context or summary for scripting")
	}
	opts := *root
	for {
		target, err := runTUIOnce(cmd, &opts)
		if err != nil {
			return err
		}
		if target == nil {
			return nil
		}
		debug.Log("switching workspace to %s", target.Name)
		opts.dir = target.ResolvedPath()
	}
}

func runTUIOnce(cmd *cobra.Command, opts *rootOptions) (*config.Project, error) {
	ctx := cmd.Context()
	env, err := openEnv(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	s := env.newSession(ctx)
	m := ui.NewModel(ui.Options{
		Session:   s,
		Workspace: env.ws,
		Config:    env.cfg,
		Client:    env.client,
		Context:   ctx,
		Projects:  config.DiscoverProjects(env.cfg),
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Only fixture-backed hierarchies can change underneath us.
	if env.fromFixtures() && env.ws.Exists() {
		w, err := ui.NewBackgroundWorker(ui.WorkerConfig{
			Workspace:     env.ws,
			DebounceDelay: env.cfg.Search.Debounce,
		})
		if err != nil {
			debug.Warn("fixture watcher unavailable: %v", err)
		} else {
			w.SetProgram(p)
			if err := w.Start(); err != nil {
				debug.Warn("starting fixture watcher: %v", err)
			}
			defer w.Stop()
		}
	}

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running browser: %w", err)
	}
	if fm, ok := final.(ui.Model); ok {
		if target, ok := fm.SwitchTarget(); ok {
			return &target, nil
		}
	}
	return nil, nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/pricescope/pkg/debug"
	"github.com/vanderheijden86/pricescope/pkg/export"
)

func newSummaryCmd(root *rootOptions) *cobra.Command {
	var (
		sel    selectionFlags
		mdPath string
		title  string
	)
	cmd := &cobra.Command{
		Use:     "summary",
		Short:   "Markdown summary of a scope",
		Example: "  pscope summary --product P1,SKU-3 --md scope.md",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := openEnv(ctx, root)
			if err != nil {
				return err
			}
			defer env.Close()

			s := env.newSession(ctx)
			if err := sel.apply(ctx, env, s); err != nil {
				return err
			}

			if mdPath != "" {
				if err := export.SaveSummaryToFile(s, mdPath); err != nil {
					return fmt.Errorf("writing summary: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", mdPath)
				return nil
			}

			md := export.GenerateSummary(s, title, time.Now())
			fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(md, cmd.OutOrStdout() == os.Stdout))
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&mdPath, "md", "", "write markdown to this file instead of stdout")
	cmd.Flags().StringVar(&title, "title", "Pricing Scope", "summary heading")
	return cmd
}

// renderMarkdown styles md for a terminal and leaves it raw when piped.
func renderMarkdown(md string, toStdout bool) string {
	if !toStdout || !term.IsTerminal(int(os.Stdout.Fd())) {
		return md
	}
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w - 2
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		debug.Warn("glamour renderer: %v", err)
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		debug.Warn("rendering summary: %v", err)
		return md
	}
	return out
}

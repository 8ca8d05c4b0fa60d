package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/scope"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		dimension string
		term      string
		mode      string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Print the hierarchy view for a search term",
		Long: "Match node names and ids, ignoring case. In filter mode only matches and\n" +
			"their ancestors are printed. In expand mode every root is printed and only\n" +
			"the branches leading to matches are opened. Matches are marked with *.",
		Example: "  pscope search --term milk\n  pscope search -d location -t oslo --mode expand",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && term == "" {
				term = args[0]
			}
			dim, err := model.ParseDimension(dimension)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			env, err := openEnv(ctx, root)
			if err != nil {
				return err
			}
			defer env.Close()

			s := env.newSession(ctx)
			ds := s.Dimension(dim)
			ds.Search().SetMode(searchModeFlag(mode, env))
			ds.Search().SetTerm(term)

			printSearch(cmd.OutOrStdout(), ds)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dimension, "dimension", "d", "product", "product or location")
	cmd.Flags().StringVarP(&term, "term", "t", "", "search term (or first argument)")
	cmd.Flags().StringVar(&mode, "mode", "", "filter or expand (default from config)")
	return cmd
}

func searchModeFlag(flag string, env *appEnv) model.SearchMode {
	if flag != "" {
		return model.ParseSearchMode(flag)
	}
	return env.cfg.SearchMode()
}

// printSearch writes the search view. Filter mode prints the whole pruned
// tree; expand mode follows the expansion state like the tree browser.
func printSearch(w io.Writer, ds *scope.DimensionScope) {
	sc := ds.Search()
	if len(ds.Forest()) == 0 {
		fmt.Fprintln(w, "No hierarchy loaded.")
		return
	}

	if sc.Mode() == model.SearchExpand || !sc.IsActive() {
		for _, row := range ds.Rows() {
			printNodeLine(w, row.Node, row.Depth, sc.IsActive() && row.Node.IsMatch)
		}
	} else {
		var walk func(nodes []model.TreeNode, depth int)
		walk = func(nodes []model.TreeNode, depth int) {
			for _, n := range nodes {
				printNodeLine(w, n, depth, n.IsMatch)
				walk(n.Children, depth+1)
			}
		}
		walk(sc.FilteredTree(), 0)
	}

	if sc.IsActive() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sc.StatusLine())
	}
}

func printNodeLine(w io.Writer, n model.TreeNode, depth int, match bool) {
	mark := " "
	if match {
		mark = "*"
	}
	line := fmt.Sprintf("%s%s %s [%s]", strings.Repeat("  ", depth), mark, n.Name, n.ID)
	if n.Count != nil {
		line += fmt.Sprintf(" (%d)", *n.Count)
	}
	fmt.Fprintln(w, line)
}

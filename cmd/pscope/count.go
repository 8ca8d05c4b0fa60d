package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

type countResult struct {
	Dimension string         `json:"dimension"`
	Unit      string         `json:"unit"`
	Total     int            `json:"total"`
	ByID      map[string]int `json:"by_id"`
}

func newCountCmd(root *rootOptions) *cobra.Command {
	var (
		dimension string
		ids       []string
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Aggregate leaf count of a selection",
		Long: "Sum the SKU or store counts of the selected node and group ids, applied in\n" +
			"flag order the way clicks apply in the tree. Group ids are written group_<id>;\n" +
			"a group replaces earlier node ids and a node id clears an earlier group. Ids\n" +
			"under an already selected ancestor are skipped with a warning.",
		Example: "  pscope count --dimension product --select P1,SKU-3\n  pscope count -d location -s group_8",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			res := countResult{
				Dimension: string(dim),
				Unit:      dim.UnitLabel(),
				ByID:      make(map[string]int),
			}
			seen := model.NewIDSet()
			for _, id := range ids {
				id = strings.TrimSpace(id)
				if id == "" || seen.Has(id) {
					continue
				}
				seen.Add(id)
				if !ds.CanToggle(id) {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: already covered by a selected ancestor\n", id)
					continue
				}
				ds.ToggleSelection(id)
			}
			selected := ds.Selection().Ordered()
			for _, id := range selected {
				res.ByID[id] = tree.LeafCountFor(id, ds.Forest(), ds.Groups())
			}
			res.Total = ds.Count()

			out := cmd.OutOrStdout()
			if jsonOut {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			for _, id := range selected {
				fmt.Fprintf(out, "%-20s %d\n", id, res.ByID[id])
			}
			fmt.Fprintf(out, "%-20s %d %ss\n", "TOTAL", res.Total, res.Unit)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dimension, "dimension", "d", "product", "product or location")
	cmd.Flags().StringSliceVarP(&ids, "select", "s", nil, "node ids or group_<id> keys")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

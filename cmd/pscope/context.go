package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newContextCmd(root *rootOptions) *cobra.Command {
	var (
		sel     selectionFlags
		message string
	)
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the chat context JSON for a scope",
		Long: "Build the scope attached to a chat request. Each dimension contributes its\n" +
			"first selected node (in flag order) or its selected group. With --message the\n" +
			"full chat request body is printed instead.",
		Example: "  pscope context --product P1 --location-group 8\n  pscope context --scenario 4 --panel 9 --message \"why is milk up?\"",
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

			var v any = s.ChatContext()
			if cmd.Flags().Changed("message") {
				v = s.ChatRequest(message)
			}
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding context: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVarP(&message, "message", "m", "", "wrap the context in a chat request with this user input")
	return cmd
}

// Command pscope scopes pricing-rule chats to product and location
// hierarchies: an interactive tree browser plus scriptable subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/pricescope/pkg/debug"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	dir     string
	offline bool
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "pscope",
		Short:         "Scope pricing-rule chats to product and location hierarchies",
		Long:          "pscope browses product and location hierarchies, selects nodes or groups, and\nbuilds the scope context attached to pricing-rules chat requests.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.debug {
				debug.SetEnabled(true)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "workspace directory (default: nearest .pscope/ above cwd)")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "use only the cache and fixture files")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging (also PSCOPE_DEBUG=1)")

	root.AddCommand(
		newTUICmd(opts),
		newCountCmd(opts),
		newSearchCmd(opts),
		newContextCmd(opts),
		newSummaryCmd(opts),
		newPickCmd(opts),
	)
	return root
}

func main() {
	err := newRootCmd().Execute()
	debug.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pscope: %v\n", err)
		os.Exit(1)
	}
}

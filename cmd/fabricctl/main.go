package main

import (
	"os"

	"github.com/danmuck/fabricctl/internal/logging"
	"github.com/danmuck/fabricctl/internal/observability"
	"github.com/spf13/cobra"
)

func main() {
	logging.ConfigureRuntime()
	observability.InitLogger("fabricctl")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fabricctl",
		Short:         "OpenFlow controller for k-ary tree data-center fabrics",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newServeCmd(),
		newResolveCmd(),
		newPlanCmd(),
		newConfigCmd(),
	)
	return root
}

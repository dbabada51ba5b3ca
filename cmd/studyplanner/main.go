package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "studyplanner",
		Short:         "Course schedule planner with workload reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default ./config.yaml when present)")

	root.AddCommand(newBotCmd(&configPath))
	root.AddCommand(newRegenerateCmd(&configPath))
	root.AddCommand(newWorkloadCmd(&configPath))
	return root
}

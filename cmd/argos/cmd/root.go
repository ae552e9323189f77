package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "argos",
	Short: "Idle-container reaper for Nomad-managed Docker workloads",
	Long: `argos watches running containers for network inactivity and stops the
Nomad job that owns a container once it has been idle past the configured
timeout.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

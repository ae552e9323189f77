package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/argos-watch/argos/pkg/nomad"
)

var checkNameCmd = &cobra.Command{
	Use:   "check-name [container-name]",
	Short: "Show the job name that would be derived from a container name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := nomad.DeriveJobName(args[0])
		if err != nil {
			return fmt.Errorf("no job name derivable from %q", args[0])
		}
		fmt.Println(job)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkNameCmd)
}

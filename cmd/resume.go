package cmd

import (
	"github.com/spf13/cobra"
)

func newResumeCmd(c **container) *cobra.Command {
	return &cobra.Command{
		Use:   "resume [session-id]",
		Short: "Continue a failed release from its last checkpoint",
		Long: `Reload a release session and run only the steps that did not complete.
Without a session id the most recent session is resumed. The working tree is
not checked again since the interrupted run already modified it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer (*c).close()
			sessionID := ""
			if len(args) == 1 {
				sessionID = args[0]
			}
			result, err := (*c).orch.Resume(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

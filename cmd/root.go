package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/razou/dev-ops/internal/domain"
	"github.com/razou/dev-ops/internal/orchestrator"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// skipContainer marks commands that run without configuration or a repository.
const skipContainer = "skip-container"

// releaseTypeValue is a pflag.Value restricted to the supported release types.
type releaseTypeValue domain.ReleaseType

var _ pflag.Value = (*releaseTypeValue)(nil)

func (v *releaseTypeValue) String() string {
	return string(*v)
}

func (v *releaseTypeValue) Set(s string) error {
	rt, err := domain.ParseReleaseType(s)
	if err != nil {
		return err
	}
	*v = releaseTypeValue(rt)
	return nil
}

func (v *releaseTypeValue) Type() string {
	return "release-type"
}

// NewRootCmd creates the release-bump command. The container is built by newC
// after flags are parsed, so invalid flags never touch the repository.
func NewRootCmd(newC containerFactory) *cobra.Command {
	releaseType := releaseTypeValue(domain.ReleaseTypeMicro)
	var c *container
	cmd := &cobra.Command{
		Use:   "release-bump",
		Short: "Bump the project version and publish a release branch",
		Long: `release-bump reads __version__ from the version file, computes the next
version for the requested release type, rewrites the file and commits it on a
new release/<version> branch that is pushed to the remote.

The working tree must be clean. Each step is checkpointed; a failed run can be
continued with the resume command.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipContainer] == "true" {
				return nil
			}
			var err error
			c, err = newC()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer c.close()
			result, err := c.orch.Execute(cmd.Context(), orchestrator.ReleaseConfig{
				ReleaseType: domain.ReleaseType(releaseType),
			})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().Var(&releaseType, "release-type",
		fmt.Sprintf("type of release, one of: %s", domain.ReleaseTypeNames()))
	cmd.AddCommand(newResumeCmd(&c), newVersionCmd())
	return cmd
}

func printResult(out io.Writer, result *orchestrator.Result) {
	fmt.Fprintf(out, "Session:\t%s\n", result.SessionID)
	fmt.Fprintf(out, "Version:\t%s -> %s\n", result.Release.Current, result.Release.Next)
	fmt.Fprintf(out, "Branch:\t%s\n", result.Release.BranchName)
	if result.Remote != "" {
		fmt.Fprintf(out, "Remote:\t%s\n", result.Remote)
	}
	if result.PullRequest != nil {
		fmt.Fprintf(out, "Pull request:\t#%d %s\n", result.PullRequest.Number, result.PullRequest.URL)
	}
	fmt.Fprintln(out, "done")
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd(newContainer).ExecuteContext(ctx)
}

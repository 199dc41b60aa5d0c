package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/signerd/internal/version"
)

const releaseOwner = "mrz1836"
const releaseRepo = "signerd"

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print signerd's version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "signerd %s (commit %s, built %s)\n", build.Version, build.Commit, build.Date)
			if !check {
				return nil
			}
			return reportLatestRelease(cmd)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}

// reportLatestRelease queries GitHub for the newest signerd release and
// prints whether the running build is current. Network failures are
// reported but do not fail the command, since version should always print.
func reportLatestRelease(cmd *cobra.Command) error {
	release, err := version.GetLatestRelease(cmd.Context(), releaseOwner, releaseRepo)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "signerd: could not check for updates: %v\n", err)
		return nil
	}

	if version.IsNewerVersion(build.Version, release.TagName) {
		fmt.Fprintf(cmd.OutOrStdout(), "signerd: a newer release is available: %s\n", release.TagName)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "signerd: up to date")
	return nil
}

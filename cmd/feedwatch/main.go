// Command feedwatch polls GitHub activity feeds and republishes new events.
//
// Usage:
//
//	feedwatch run --target-org acme      # poll until interrupted
//	feedwatch state --target-user octo   # print persisted state
//	feedwatch tail                       # follow the kafka topic
//	feedwatch version
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "feedwatch",
	Short: "Poll GitHub activity feeds and fan out new events",
	Long: `feedwatch polls the GitHub events API for the public timeline, an
organization, a user or a repository. Every event newer than the last one
seen is published on a set of channels derived from its type and, when
enabled, forwarded to Kafka as a CloudEvent.

State (last event id, ETag, poll interval) survives restarts and is keyed
by a fingerprint of the target and credentials.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "feedwatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "path to YAML config file")
	pf.String("target-org", "", "organization to poll")
	pf.String("target-user", "", "user to poll (with --target-repo: that user's repository)")
	pf.String("target-repo", "", "repository to poll, requires --target-user")
	pf.String("github-token", "", "GitHub token")
	pf.String("github-base-url", "", "API base URL (GitHub Enterprise)")
	pf.String("state-backend", "", "file, sqlite or postgres")
	pf.String("state-dir", "", "directory for the file backend")
	pf.String("log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

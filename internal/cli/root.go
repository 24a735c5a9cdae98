package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "liftwatch",
	Short: "Decision engine for Intelligems A/B tests",
	Long: `liftwatch turns Intelligems experiment telemetry into decisions.

Fetch test results, classify them as winners or losers, project the
dollar impact, diagnose funnels and segments, and share the briefs
with your team.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

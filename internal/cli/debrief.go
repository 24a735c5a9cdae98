package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/liftwatch/liftwatch/internal/adapters/slack"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/engine"
)

var debriefCmd = &cobra.Command{
	Use:   "debrief [test-id]",
	Short: "Post-mortem a test: what happened and what to try next",
	Long: `Summarize a test's result, extract customer-behavior insights
from segment and funnel patterns, and propose follow-up tests.

Examples:
  liftwatch debrief <test-id>
  liftwatch debrief <test-id> --slack <webhook-url>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDebrief,
}

var debriefSlackURL string

func init() {
	rootCmd.AddCommand(debriefCmd)
	debriefCmd.Flags().StringVar(&debriefSlackURL, "slack", "", "Slack webhook URL to send the result to")
}

func runDebrief(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	exp, err := selectExperiment(ctx, app.API, args)
	if err != nil {
		return err
	}

	fmt.Println("Fetching analytics...")
	overview, err := app.API.OverviewMetrics(ctx, exp.ID)
	if err != nil {
		return err
	}
	segments := fetchSegments(ctx, app.API, exp.ID)

	debrief, err := engine.BuildDebrief(exp, overview, segments, app.Thresholds, time.Now())
	if err != nil {
		return err
	}

	if err := saveReport(ctx, app, exp.ID, domain.ReportKindDebrief, string(debrief.Outcome), debrief); err != nil {
		return err
	}

	if debriefSlackURL != "" {
		return sendToSlack(ctx, debriefSlackURL, debriefBlocks(debrief),
			fmt.Sprintf("Test Debrief: %s for %s", debrief.Outcome, debrief.ExperimentName))
	}

	renderDebrief(debrief)
	return nil
}

func renderDebrief(d *engine.Debrief) {
	fmt.Printf("\n=== TEST DEBRIEF: %s ===\n", d.ExperimentName)
	fmt.Printf("Category: %s | Runtime: %s | Visitors: %d | Orders: %d\n",
		d.Category, d.RuntimeDisplay, d.Visitors, d.Orders)
	fmt.Printf("Variant: %s | Outcome: %s | %s: %s (%s confidence)\n\n",
		d.VariantName, d.Outcome, d.PrimaryLabel, d.UpliftDisplay, d.ConfidenceDisplay)

	if len(d.Stages) > 0 {
		fmt.Println("--- FUNNEL ---")
		for _, s := range d.Stages {
			fmt.Printf("  %-28s %s (%s confidence)\n", s.Label, s.UpliftDisplay, s.ConfidenceDisplay)
		}
		fmt.Println()
	}

	if len(d.Insights) > 0 {
		fmt.Println("--- WHAT WE LEARNED ---")
		for _, insight := range d.Insights {
			fmt.Printf("  - %s\n", insight)
		}
		fmt.Println()
	}

	fmt.Println("--- WHAT TO TEST NEXT ---")
	for i, s := range d.Suggestions {
		fmt.Printf("  %d. %s\n", i+1, s)
	}
}

func debriefBlocks(d *engine.Debrief) []slack.Block {
	blocks := []slack.Block{
		slack.Header(fmt.Sprintf("%s Test Debrief", slack.VerdictEmoji(string(d.Outcome)))),
		slack.Fields([]string{
			fmt.Sprintf("*Test:* %s", d.ExperimentName),
			fmt.Sprintf("*Outcome:* %s", d.Outcome),
			fmt.Sprintf("*Runtime:* %s", d.RuntimeDisplay),
			fmt.Sprintf("*%s:* %s (%s)", d.PrimaryLabel, d.UpliftDisplay, d.ConfidenceDisplay),
		}),
		slack.Divider(),
	}
	if len(d.Insights) > 0 {
		var lines []string
		for _, insight := range d.Insights {
			lines = append(lines, "- "+insight)
		}
		blocks = append(blocks, slack.Section("*What we learned*\n"+strings.Join(lines, "\n")))
	}
	var next []string
	for _, s := range d.Suggestions {
		next = append(next, "- "+s)
	}
	blocks = append(blocks,
		slack.Section("*What to test next*\n"+strings.Join(next, "\n")),
		slack.Context("Powered by liftwatch"))
	return blocks
}

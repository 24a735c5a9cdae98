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

var rolloutCmd = &cobra.Command{
	Use:   "rollout [test-id]",
	Short: "Build a stakeholder-ready rollout brief",
	Long: `Combine verdict, financial projections, and segment analysis
into one shareable brief with a clear recommendation and next steps.

Examples:
  liftwatch rollout <test-id>
  liftwatch rollout <test-id> --slack <webhook-url>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRollout,
}

var rolloutSlackURL string

func init() {
	rootCmd.AddCommand(rolloutCmd)
	rolloutCmd.Flags().StringVar(&rolloutSlackURL, "slack", "", "Slack webhook URL to send the result to")
}

func runRollout(cmd *cobra.Command, args []string) error {
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

	brief, err := engine.BuildRollout(exp, overview, segments, app.Thresholds, time.Now())
	if err != nil {
		return err
	}

	if err := saveReport(ctx, app, exp.ID, domain.ReportKindRollout, string(brief.Outcome), brief); err != nil {
		return err
	}

	if rolloutSlackURL != "" {
		return sendToSlack(ctx, rolloutSlackURL, rolloutBlocks(brief),
			fmt.Sprintf("Rollout Brief: %s for %s", brief.Outcome, brief.ExperimentName))
	}

	renderRollout(brief)
	return nil
}

func renderRollout(r *engine.RolloutBrief) {
	fmt.Println("\n=== ROLLOUT BRIEF ===")
	fmt.Printf("Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))

	fmt.Println("--- EXECUTIVE SUMMARY ---")
	fmt.Printf("  %s\n\n", r.ExecutiveSummary)

	fmt.Println("--- TEST DETAILS ---")
	fmt.Printf("  Name:     %s\n", r.ExperimentName)
	fmt.Printf("  Type:     %s\n", r.Category)
	fmt.Printf("  Runtime:  %s\n", r.RuntimeDisplay)
	fmt.Printf("  Visitors: %d\n", r.Visitors)
	fmt.Printf("  Orders:   %d\n", r.Orders)
	fmt.Printf("  Variant:  %s\n", r.VariantName)
	fmt.Printf("  Control:  %s\n\n", r.ControlName)

	fmt.Println("--- RESULTS ---")
	fmt.Printf("  VERDICT: %s\n", r.Outcome)
	fmt.Printf("  %s: %s (%s confidence)\n", r.PrimaryLabel, r.UpliftDisplay, r.ConfidenceDisplay)
	if r.ConversionUplift != nil {
		fmt.Printf("  Conversion Rate: %s\n", r.ConversionDisplay)
	}
	fmt.Println()

	if r.Financials.ExpectedAnnual != 0 {
		fmt.Println("--- FINANCIAL IMPACT ---")
		fmt.Printf("  Expected annual:  %s\n", r.Financials.ExpectedDisplay)
		fmt.Printf("  Expected monthly: %s\n", r.Financials.MonthlyDisplay)
		if r.Financials.ConservativeAnnual != 0 {
			fmt.Printf("  Conservative:     %s\n", r.Financials.ConservativeDisplay)
		}
		if r.Financials.OptimisticAnnual != nil {
			fmt.Printf("  Optimistic:       %s\n", r.Financials.OptimisticDisplay)
		}
		if r.Outcome == engine.OutcomeWinner && r.Financials.DailyCostOfWaiting > 0 {
			fmt.Printf("  Daily cost of waiting: %s\n", r.Financials.DailyCostDisplay)
		}
		fmt.Println()
	}

	if len(r.Segments) > 0 {
		fmt.Println("--- SEGMENT ANALYSIS ---")
		hasContradiction := false
		for _, s := range r.Segments {
			flag := ""
			if s.Contradiction {
				flag = " ***"
				hasContradiction = true
			}
			fmt.Printf("  %-18s (%-14s) %-12s %7s (%s)%s\n",
				s.Name, s.Dimension, s.Outcome, s.UpliftDisplay, s.ConfidenceDisplay, flag)
		}
		if hasContradiction {
			fmt.Println("\n  *** = contradicts overall result")
		}
		fmt.Println()
	}

	fmt.Println("--- RECOMMENDATION ---")
	fmt.Printf("  %s\n  %s\n\n", r.Action, r.Reason)

	fmt.Println("--- NEXT STEPS ---")
	for i, step := range r.NextSteps {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
}

func rolloutBlocks(r *engine.RolloutBrief) []slack.Block {
	blocks := []slack.Block{
		slack.Header(fmt.Sprintf("%s Rollout Brief", slack.VerdictEmoji(string(r.Outcome)))),
		slack.Section(fmt.Sprintf("*Executive Summary*\n%s", r.ExecutiveSummary)),
		slack.Divider(),
		slack.Fields([]string{
			fmt.Sprintf("*Test:* %s", r.ExperimentName),
			fmt.Sprintf("*Type:* %s", r.Category),
			fmt.Sprintf("*Runtime:* %s", r.RuntimeDisplay),
			fmt.Sprintf("*Orders:* %d", r.Orders),
		}),
		slack.Section(fmt.Sprintf("*Results*\nVerdict: *%s*\n%s: %s (%s confidence)",
			r.Outcome, r.PrimaryLabel, r.UpliftDisplay, r.ConfidenceDisplay)),
	}

	if r.Financials.ExpectedAnnual != 0 {
		text := fmt.Sprintf("*Financial Impact*\nExpected: %s/yr (%s/mo)",
			r.Financials.ExpectedDisplay, r.Financials.MonthlyDisplay)
		if r.Outcome == engine.OutcomeWinner && r.Financials.DailyCostOfWaiting > 0 {
			text += fmt.Sprintf("\nDaily cost of waiting: %s", r.Financials.DailyCostDisplay)
		}
		blocks = append(blocks, slack.Section(text))
	}

	blocks = append(blocks, slack.Divider())

	if len(r.Segments) > 0 {
		var lines []string
		for _, s := range r.Segments {
			flag := ""
			if s.Contradiction {
				flag = " :warning:"
			}
			lines = append(lines, fmt.Sprintf("*%s* (%s): %s (%s)%s",
				s.Name, s.Dimension, s.UpliftDisplay, s.ConfidenceDisplay, flag))
		}
		blocks = append(blocks, slack.Section("*Segment Analysis*\n"+strings.Join(lines, "\n")))
	}

	var steps []string
	for _, step := range r.NextSteps {
		steps = append(steps, "- "+step)
	}
	blocks = append(blocks,
		slack.Section(fmt.Sprintf("*Recommendation: %s*\n%s", r.Action, r.Reason)),
		slack.Section("*Next Steps*\n"+strings.Join(steps, "\n")),
		slack.Context("Powered by liftwatch"))
	return blocks
}

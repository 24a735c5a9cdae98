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

var impactCmd = &cobra.Command{
	Use:   "impact [test-id]",
	Short: "Project a test's lift into annual dollars",
	Long: `Translate the best variant's lift into expected, conservative,
and optimistic dollar ranges, with break-even and opportunity-cost
framing.

Examples:
  liftwatch impact
  liftwatch impact <test-id>
  liftwatch impact <test-id> --slack <webhook-url>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImpact,
}

var impactSlackURL string

func init() {
	rootCmd.AddCommand(impactCmd)
	impactCmd.Flags().StringVar(&impactSlackURL, "slack", "", "Slack webhook URL to send the result to")
}

func runImpact(cmd *cobra.Command, args []string) error {
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

	impact, err := engine.BuildProfitImpact(exp, overview, app.Thresholds, time.Now())
	if err != nil {
		return err
	}

	if err := saveReport(ctx, app, exp.ID, domain.ReportKindImpact, impact.UpliftDisplay, impact); err != nil {
		return err
	}

	if impactSlackURL != "" {
		return sendToSlack(ctx, impactSlackURL, impactBlocks(impact),
			fmt.Sprintf("Profit Impact: %s for %s", impact.Annual.ExpectedDisplay, impact.ExperimentName))
	}

	renderImpact(impact)
	return nil
}

func renderImpact(p *engine.ProfitImpact) {
	fmt.Printf("\n=== PROFIT IMPACT: %s ===\n", p.ExperimentName)
	fmt.Printf("Category: %s | Runtime: %s | Visitors: %d | Orders: %d\n",
		p.Category, p.RuntimeDisplay, p.Visitors, p.Orders)
	fmt.Printf("Variant: %s vs %s\n", p.VariantName, p.ControlName)
	fmt.Printf("%s: %s (%s confidence)\n\n", p.PrimaryLabel, p.UpliftDisplay, p.ConfidenceDisplay)

	fmt.Println("--- ANNUAL PROJECTION ---")
	fmt.Printf("  Expected:     %s\n", p.Annual.ExpectedDisplay)
	fmt.Printf("  Conservative: %s\n", p.Annual.ConservativeDisplay)
	fmt.Printf("  Optimistic:   %s\n", p.Annual.OptimisticDisplay)
	fmt.Println()
	fmt.Println("--- MONTHLY PROJECTION ---")
	fmt.Printf("  Expected:     %s\n", p.Monthly.ExpectedDisplay)
	fmt.Println()

	if len(p.BreakEven) > 0 {
		fmt.Println("--- BREAK-EVEN ---")
		for _, line := range p.BreakEven {
			fmt.Printf("  %s\n", line)
		}
		fmt.Println()
	}

	if p.OpportunityCost != nil {
		fmt.Println("--- COST OF WAITING ---")
		fmt.Printf("  Daily: %s | Weekly: %s | Monthly: %s\n",
			p.OpportunityCost.DailyDisplay, p.OpportunityCost.WeeklyDisplay, p.OpportunityCost.MonthlyDisplay)
		fmt.Println()
	}
	if p.CACEquivalence != nil {
		fmt.Printf("At a %s CAC, the monthly impact equals ~%d acquired customers.\n\n",
			p.CACEquivalence.CACDisplay, p.CACEquivalence.MonthlyCustomers)
	}

	fmt.Printf("Summary: %s\n", p.Summary)
	for _, warning := range p.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
}

func impactBlocks(p *engine.ProfitImpact) []slack.Block {
	blocks := []slack.Block{
		slack.Header("💰 Profit Impact"),
		slack.Section(fmt.Sprintf("*%s*\n%s: %s (%s confidence)",
			p.ExperimentName, p.PrimaryLabel, p.UpliftDisplay, p.ConfidenceDisplay)),
		slack.Fields([]string{
			fmt.Sprintf("*Annual expected:* %s", p.Annual.ExpectedDisplay),
			fmt.Sprintf("*Annual conservative:* %s", p.Annual.ConservativeDisplay),
			fmt.Sprintf("*Annual optimistic:* %s", p.Annual.OptimisticDisplay),
			fmt.Sprintf("*Monthly expected:* %s", p.Monthly.ExpectedDisplay),
		}),
	}
	if len(p.BreakEven) > 0 {
		blocks = append(blocks, slack.Section("*Break-even*\n"+strings.Join(p.BreakEven, "\n")))
	}
	if p.OpportunityCost != nil {
		blocks = append(blocks, slack.Section(fmt.Sprintf(
			"*Cost of waiting*\nDaily: %s | Weekly: %s | Monthly: %s",
			p.OpportunityCost.DailyDisplay, p.OpportunityCost.WeeklyDisplay, p.OpportunityCost.MonthlyDisplay)))
	}
	blocks = append(blocks, slack.Section(fmt.Sprintf("*Summary*\n%s", p.Summary)))
	for _, warning := range p.Warnings {
		blocks = append(blocks, slack.Context(":warning: "+warning))
	}
	blocks = append(blocks, slack.Context("Powered by liftwatch"))
	return blocks
}

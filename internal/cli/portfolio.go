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

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Program scorecard across your full test history",
	Long: `Compute win rate, test velocity, and coverage gaps across all
ended and active tests, with suggestions for what to test next.

Examples:
  liftwatch portfolio
  liftwatch portfolio --slack <webhook-url>`,
	Args: cobra.NoArgs,
	RunE: runPortfolio,
}

var portfolioSlackURL string

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.Flags().StringVar(&portfolioSlackURL, "slack", "", "Slack webhook URL to send the result to")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	fmt.Println("Fetching active experiments...")
	active, err := app.API.ActiveExperiments(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d active\n", len(active))

	fmt.Println("Fetching ended experiments...")
	endedExps, err := app.API.EndedExperiments(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d ended\n", len(endedExps))

	if len(active)+len(endedExps) == 0 {
		fmt.Println("No experiments found. Your testing program hasn't started yet!")
		return nil
	}

	now := time.Now()
	ended := make([]engine.EndedResult, 0, len(endedExps))
	for _, exp := range endedExps {
		fmt.Printf("  Analyzing: %s...\n", exp.Name)
		overview, err := app.API.OverviewMetrics(ctx, exp.ID)
		if err != nil {
			fmt.Printf("    Warning: could not fetch analytics: %v\n", err)
			ended = append(ended, engine.ErrorResult(exp, now))
			continue
		}
		ended = append(ended, engine.BuildEndedResult(exp, overview, app.Thresholds, now))
	}

	actives := make([]engine.ActiveTest, 0, len(active))
	for _, exp := range active {
		actives = append(actives, engine.ActiveSummary(exp, now))
	}

	portfolio := engine.BuildPortfolio(ended, actives, now)

	if err := saveReport(ctx, app, "", domain.ReportKindPortfolio,
		fmt.Sprintf("%.0f%% win rate", portfolio.WinRate), portfolio); err != nil {
		return err
	}

	if portfolioSlackURL != "" {
		return sendToSlack(ctx, portfolioSlackURL, portfolioBlocks(portfolio), "Test Portfolio Scorecard")
	}

	renderPortfolio(portfolio)
	return nil
}

func renderPortfolio(p *engine.Portfolio) {
	fmt.Println("\n=== TEST PORTFOLIO SCORECARD ===")

	fmt.Println("\n--- PROGRAM SUMMARY ---")
	fmt.Printf("  Total tests: %d (%d ended, %d active)\n", p.TotalTests, p.EndedTests, p.ActiveTests)
	fmt.Printf("  Win rate: %.0f%% (%d winners / %d callable)\n", p.WinRate, p.Winners, p.CallableTests)
	fmt.Printf("  Average runtime: %.0f days\n", p.AvgRuntimeDays)
	fmt.Printf("  Test velocity: %.1f tests/month\n", p.TestsPerMonth)

	fmt.Println("\n--- WIN/LOSS RECORD ---")
	fmt.Printf("  Winners: %d\n", p.Winners)
	fmt.Printf("  Losers:  %d\n", p.Losers)
	fmt.Printf("  Flat:    %d\n", p.Flat)
	if p.Inconclusive > 0 {
		fmt.Printf("  Inconclusive: %d\n", p.Inconclusive)
	}

	if len(p.TopWinners) > 0 {
		fmt.Println("\n  Top winners:")
		for _, w := range p.TopWinners {
			fmt.Printf("    %s (%s): %s lift\n", w.Name, w.Category, w.UpliftDisplay)
		}
	}

	fmt.Println("\n--- COVERAGE MAP ---")
	for _, c := range p.Coverage {
		bar := strings.Repeat("#", min(c.Count, 20))
		if c.Gap {
			fmt.Printf("  %-10s %3d tests  GAP\n", c.Category, c.Count)
		} else {
			fmt.Printf("  %-10s %3d tests  %s\n", c.Category, c.Count, bar)
		}
	}
	if len(p.Gaps) > 0 {
		fmt.Printf("\n  Gaps: %s\n", strings.Join(p.Gaps, ", "))
	}

	if len(p.Velocity) > 0 {
		fmt.Println("\n--- TEST VELOCITY ---")
		velocity := p.Velocity
		if len(velocity) > 6 {
			velocity = velocity[len(velocity)-6:]
		}
		for _, m := range velocity {
			fmt.Printf("  %s  %2d tests  %s\n", m.Month, m.Count, strings.Repeat("#", m.Count))
		}
	}

	if len(p.Active) > 0 {
		fmt.Println("\n--- ACTIVE TESTS ---")
		for _, a := range p.Active {
			fmt.Printf("  %s (%s, %d days)\n", a.Name, a.Category, a.RuntimeDays)
		}
	}

	fmt.Println("\n--- WHAT TO TEST NEXT ---")
	for i, s := range p.Suggestions {
		fmt.Printf("  %d. %s\n", i+1, s)
	}
}

func portfolioBlocks(p *engine.Portfolio) []slack.Block {
	blocks := []slack.Block{
		slack.Header("Test Portfolio Scorecard"),
		slack.Fields([]string{
			fmt.Sprintf("*Total Tests:* %d", p.TotalTests),
			fmt.Sprintf("*Win Rate:* %.0f%%", p.WinRate),
			fmt.Sprintf("*Avg Runtime:* %.0f days", p.AvgRuntimeDays),
			fmt.Sprintf("*Velocity:* %.1f/month", p.TestsPerMonth),
		}),
		slack.Divider(),
		slack.Section(fmt.Sprintf("*Win/Loss Record*\nWinners: %d | Losers: %d | Flat: %d",
			p.Winners, p.Losers, p.Flat)),
	}

	if len(p.TopWinners) > 0 {
		var lines []string
		winners := p.TopWinners
		if len(winners) > 3 {
			winners = winners[:3]
		}
		for _, w := range winners {
			lines = append(lines, fmt.Sprintf("- %s (%s): %s", w.Name, w.Category, w.UpliftDisplay))
		}
		blocks = append(blocks, slack.Section("*Top Winners*\n"+strings.Join(lines, "\n")))
	}

	var coverage []string
	for _, c := range p.Coverage {
		status := fmt.Sprintf("%d tests", c.Count)
		if c.Gap {
			status = ":warning: GAP"
		}
		coverage = append(coverage, fmt.Sprintf("*%s:* %s", c.Category, status))
	}
	blocks = append(blocks,
		slack.Section("*Coverage Map*\n"+strings.Join(coverage, "\n")),
		slack.Divider())

	if len(p.Active) > 0 {
		var lines []string
		for _, a := range p.Active {
			lines = append(lines, fmt.Sprintf("- %s (%s, %dd)", a.Name, a.Category, a.RuntimeDays))
		}
		blocks = append(blocks, slack.Section(
			fmt.Sprintf("*Active Tests (%d)*\n", len(p.Active))+strings.Join(lines, "\n")))
	}

	var next []string
	for _, s := range p.Suggestions {
		next = append(next, "- "+s)
	}
	blocks = append(blocks,
		slack.Section("*What to Test Next*\n"+strings.Join(next, "\n")),
		slack.Context("Powered by liftwatch"))
	return blocks
}

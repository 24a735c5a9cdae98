package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/liftwatch/liftwatch/internal/adapters/slack"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/engine"
	"github.com/liftwatch/liftwatch/internal/format"
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Morning brief: health of every active test",
	Long: `Fetch all active tests, triage each as RED, YELLOW, or GREEN,
and summarize the program pulse. Designed for daily use.

Examples:
  liftwatch brief
  liftwatch brief --slack <webhook-url>`,
	Args: cobra.NoArgs,
	RunE: runBrief,
}

var briefSlackURL string

func init() {
	rootCmd.AddCommand(briefCmd)
	briefCmd.Flags().StringVar(&briefSlackURL, "slack", "", "Slack webhook URL to send the result to")
}

func runBrief(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	fmt.Println("Fetching active experiments...")
	experiments, err := app.API.ActiveExperiments(ctx)
	if err != nil {
		return err
	}
	if len(experiments) == 0 {
		fmt.Println("No active experiments found. All quiet!")
		return nil
	}
	fmt.Printf("Found %d active experiment(s)\n", len(experiments))

	now := time.Now()
	cards := make([]engine.TestCard, 0, len(experiments))
	for _, exp := range experiments {
		fmt.Printf("Analyzing %s...\n", exp.Name)
		overview, err := app.API.OverviewMetrics(ctx, exp.ID)
		if err != nil {
			fmt.Printf("  Warning: could not fetch analytics: %v\n", err)
			overview = nil
		}
		cards = append(cards, engine.BuildTestCard(exp, overview, app.Thresholds, now))
	}

	brief := engine.BuildBrief(cards, app.Thresholds, now)

	if err := saveReport(ctx, app, "", domain.ReportKindBrief, fmt.Sprintf("%d tests", len(brief.Cards)), brief); err != nil {
		return err
	}

	if briefSlackURL != "" {
		return sendToSlack(ctx, briefSlackURL, briefBlocks(brief),
			fmt.Sprintf("Morning Brief: %s", now.Format("2006-01-02")))
	}

	renderBrief(brief)
	return nil
}

func renderBrief(b *engine.MorningBrief) {
	fmt.Println("\n=== MORNING BRIEF ===")
	fmt.Printf("Date: %s\n", b.GeneratedAt.Format("2006-01-02 15:04"))

	for _, card := range b.Cards {
		fmt.Printf("\n--- %s %s ---\n", card.Status, card.Name)
		fmt.Printf("Type: %s | Runtime: %s\n", card.Category, card.RuntimeDisplay)
		fmt.Printf("Visitors: %s (%.0f/day) | Orders: %s (%.0f/day)\n",
			format.Number(card.Visitors), card.DailyVisitors,
			format.Number(card.Orders), card.DailyOrders)

		if card.BestVariant != "" {
			fmt.Printf("Best variant: %s, %s %s (%s confidence)\n",
				card.BestVariant, card.PrimaryLabel, card.PrimaryDisplay,
				format.Confidence(card.PrimaryConfidence))
			fmt.Printf("Conversion: %s (%s)\n",
				format.Lift(card.ConversionLift), format.Confidence(card.ConversionConf))
		} else {
			fmt.Println("Best variant: No variant data available")
		}

		fmt.Printf("Status: %s\n", card.Action)
		if card.ReadyToCall {
			fmt.Println("Est. days to verdict: Ready to call")
		} else if card.DaysToVerdict != nil {
			fmt.Printf("Est. days to verdict: %d\n", *card.DaysToVerdict)
		}
	}

	fmt.Println("\n=== PROGRAM PULSE ===")
	fmt.Printf("Active tests: %d\n", b.Pulse.ActiveTests)
	fmt.Printf("Daily visitors: %s across all tests\n", format.Number(b.Pulse.DailyVisitors))
	fmt.Printf("Daily orders: %s\n", format.Number(b.Pulse.DailyOrders))
	fmt.Printf("Ready to call: %d\n", b.Pulse.ReadyToCall)
	fmt.Printf("Need more time: %d\n", b.Pulse.NeedMoreTime)
}

func briefBlocks(b *engine.MorningBrief) []slack.Block {
	blocks := []slack.Block{
		slack.Header(fmt.Sprintf("Morning Brief: %s", b.GeneratedAt.Format("2006-01-02"))),
		slack.Divider(),
	}

	for _, card := range b.Cards {
		blocks = append(blocks, slack.Section(fmt.Sprintf("%s *%s*",
			slack.StatusEmoji(string(card.Status)), card.Name)))
		blocks = append(blocks, slack.Fields([]string{
			fmt.Sprintf("*Type:* %s", card.Category),
			fmt.Sprintf("*Runtime:* %s", card.RuntimeDisplay),
			fmt.Sprintf("*Visitors:* %s (%.0f/day)", format.Number(card.Visitors), card.DailyVisitors),
			fmt.Sprintf("*Orders:* %s (%.0f/day)", format.Number(card.Orders), card.DailyOrders),
		}))

		text := "*Best variant:* No variant data available"
		if card.BestVariant != "" {
			text = fmt.Sprintf("*Best variant:* %s, %s %s (%s confidence)\n*Conversion:* %s (%s)",
				card.BestVariant, card.PrimaryLabel, card.PrimaryDisplay,
				format.Confidence(card.PrimaryConfidence),
				format.Lift(card.ConversionLift), format.Confidence(card.ConversionConf))
		}
		text += fmt.Sprintf("\n*Status:* %s", card.Action)
		if card.ReadyToCall {
			text += "\n*Est. days to verdict:* Ready to call"
		} else if card.DaysToVerdict != nil {
			text += fmt.Sprintf("\n*Est. days to verdict:* %d", *card.DaysToVerdict)
		}
		blocks = append(blocks, slack.Section(text), slack.Divider())
	}

	blocks = append(blocks,
		slack.Header("Program Pulse"),
		slack.Fields([]string{
			fmt.Sprintf("*Active tests:* %d", b.Pulse.ActiveTests),
			fmt.Sprintf("*Daily visitors:* %s", format.Number(b.Pulse.DailyVisitors)),
			fmt.Sprintf("*Daily orders:* %s", format.Number(b.Pulse.DailyOrders)),
			fmt.Sprintf("*Ready to call:* %d", b.Pulse.ReadyToCall),
			fmt.Sprintf("*Need more time:* %d", b.Pulse.NeedMoreTime),
		}),
		slack.Context("Powered by liftwatch"))
	return blocks
}

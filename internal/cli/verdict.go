package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/liftwatch/liftwatch/internal/adapters/slack"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/engine"
)

var verdictCmd = &cobra.Command{
	Use:   "verdict [test-id]",
	Short: "Call a test: winner, loser, flat, or too early",
	Long: `Classify a test's best variant against the control.

Examples:
  liftwatch verdict                # The single active test
  liftwatch verdict <test-id>      # A specific test
  liftwatch verdict <test-id> --slack <webhook-url>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerdict,
}

var verdictSlackURL string

func init() {
	rootCmd.AddCommand(verdictCmd)
	verdictCmd.Flags().StringVar(&verdictSlackURL, "slack", "", "Slack webhook URL to send the result to")
}

func runVerdict(cmd *cobra.Command, args []string) error {
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
	devices, err := app.API.SegmentMetrics(ctx, exp.ID, "device_type")
	if err != nil {
		fmt.Printf("  Warning: could not fetch device segments: %v\n", err)
		devices = nil
	}

	verdict, err := engine.BuildVerdict(exp, overview, devices, app.Thresholds, time.Now())
	if err != nil {
		return err
	}

	if err := saveReport(ctx, app, exp.ID, domain.ReportKindVerdict, string(verdict.Overall), verdict); err != nil {
		return err
	}

	if verdictSlackURL != "" {
		return sendToSlack(ctx, verdictSlackURL, verdictBlocks(verdict),
			fmt.Sprintf("Verdict: %s for %s", verdict.Overall, verdict.ExperimentName))
	}

	renderVerdict(verdict)
	return nil
}

func renderVerdict(v *engine.Verdict) {
	fmt.Printf("\n=== TEST VERDICT: %s ===\n", v.ExperimentName)
	fmt.Printf("Category: %s | Runtime: %s | Visitors: %d | Orders: %d\n",
		v.Category, v.RuntimeDisplay, v.Visitors, v.Orders)
	fmt.Printf("Primary metric: %s\n\n", v.PrimaryLabel)

	if len(v.MaturityIssues) > 0 {
		fmt.Println("Maturity:")
		for _, issue := range v.MaturityIssues {
			fmt.Printf("  - %s\n", issue)
		}
		fmt.Println()
	}

	fmt.Printf("VERDICT: %s\n\n", v.Overall)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tOUTCOME\tLIFT\tCONFIDENCE\tCI RANGE")
	fmt.Fprintln(w, "-------\t-------\t----\t----------\t--------")
	for _, vr := range v.Variations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s to %s\n",
			vr.Name, vr.Outcome, vr.UpliftDisplay, vr.ConfidenceDisplay,
			vr.CILowDisplay, vr.CIHighDisplay)
	}
	w.Flush()
	fmt.Println()

	if best := v.Best(); best != nil {
		fmt.Printf("Reasoning: %s\n", best.Reasoning)
		if best.Risk != "" {
			fmt.Printf("Risk: %s\n", best.Risk)
		}
		if best.Divergence != "" {
			fmt.Printf("Signals: %s\n", best.Divergence)
		}
		if best.ProfitNote != "" {
			fmt.Printf("Profit: %s\n", best.ProfitNote)
		}
	}
	if len(v.Segments) > 0 {
		fmt.Println("Segment quick check:")
		for _, s := range v.Segments {
			flag := ""
			if s.Contradiction {
				flag = "  *** contradicts overall result"
			}
			fmt.Printf("  %s: %s %s (%s)%s\n", s.Segment, s.Outcome, s.UpliftDisplay, s.ConfidenceDisplay, flag)
		}
	}
	if v.ETANote != "" {
		fmt.Printf("ETA: %s\n", v.ETANote)
	}
	if v.NextTest != "" {
		fmt.Printf("Next test: %s\n", v.NextTest)
	}
}

func verdictBlocks(v *engine.Verdict) []slack.Block {
	blocks := []slack.Block{
		slack.Header(fmt.Sprintf("%s Test Verdict: %s", slack.VerdictEmoji(string(v.Overall)), v.Overall)),
		slack.Fields([]string{
			fmt.Sprintf("*Test:* %s", v.ExperimentName),
			fmt.Sprintf("*Category:* %s", v.Category),
			fmt.Sprintf("*Runtime:* %s", v.RuntimeDisplay),
			fmt.Sprintf("*Orders:* %d", v.Orders),
		}),
		slack.Divider(),
	}

	for _, vr := range v.Variations {
		blocks = append(blocks, slack.Section(fmt.Sprintf(
			"%s *%s*: %s %s (%s confidence)",
			slack.StatusEmoji(string(vr.Outcome)), vr.Name, v.PrimaryLabel,
			vr.UpliftDisplay, vr.ConfidenceDisplay)))
	}

	if best := v.Best(); best != nil {
		blocks = append(blocks, slack.Section(fmt.Sprintf("*Reasoning*\n%s", best.Reasoning)))
	}
	if len(v.Segments) > 0 {
		var lines []string
		for _, s := range v.Segments {
			flag := ""
			if s.Contradiction {
				flag = " :warning:"
			}
			lines = append(lines, fmt.Sprintf("*%s*: %s %s (%s)%s", s.Segment, s.Outcome, s.UpliftDisplay, s.ConfidenceDisplay, flag))
		}
		blocks = append(blocks, slack.Section("*Segment quick check*\n"+strings.Join(lines, "\n")))
	}
	if v.NextTest != "" {
		blocks = append(blocks, slack.Section(fmt.Sprintf("*Next test*\n%s", v.NextTest)))
	}
	blocks = append(blocks, slack.Context("Powered by liftwatch"))
	return blocks
}

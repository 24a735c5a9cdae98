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

var spotlightCmd = &cobra.Command{
	Use:   "spotlight [test-id]",
	Short: "Rank audience segments by revenue opportunity",
	Long: `Break a test's result down by device, visitor type, and traffic
source, rank segments by annualized revenue opportunity, and recommend
a rollout scope.

Examples:
  liftwatch spotlight
  liftwatch spotlight <test-id>
  liftwatch spotlight <test-id> --slack <webhook-url>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSpotlight,
}

var spotlightSlackURL string

func init() {
	rootCmd.AddCommand(spotlightCmd)
	spotlightCmd.Flags().StringVar(&spotlightSlackURL, "slack", "", "Slack webhook URL to send the result to")
}

func runSpotlight(cmd *cobra.Command, args []string) error {
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

	spotlight, err := engine.BuildSpotlight(exp, overview, segments, app.Thresholds, time.Now())
	if err != nil {
		return err
	}

	if err := saveReport(ctx, app, exp.ID, domain.ReportKindSpotlight, spotlight.Action, spotlight); err != nil {
		return err
	}

	if spotlightSlackURL != "" {
		return sendToSlack(ctx, spotlightSlackURL, spotlightBlocks(spotlight),
			fmt.Sprintf("Segment Spotlight: %s for %s", spotlight.Action, spotlight.ExperimentName))
	}

	renderSpotlight(spotlight)
	return nil
}

func renderSpotlight(s *engine.SegmentSpotlight) {
	fmt.Printf("\n=== SEGMENT SPOTLIGHT: %s ===\n", s.ExperimentName)
	fmt.Printf("Variant: %s | Overall: %s (%s confidence)\n\n",
		s.VariantName, s.OverallDisplay, s.ConfidenceDisplay)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEGMENT\tDIMENSION\tOUTCOME\tLIFT\tCONFIDENCE\tVISITORS\tREV OPPORTUNITY")
	fmt.Fprintln(w, "-------\t---------\t-------\t----\t----------\t--------\t---------------")
	for _, seg := range s.Segments {
		name := seg.Name
		if seg.Contradiction {
			name += " ***"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			name, seg.Dimension, seg.Outcome, seg.UpliftDisplay,
			seg.ConfidenceDisplay, seg.Visitors, seg.RevenueDisplay)
	}
	w.Flush()

	for _, seg := range s.Segments {
		if seg.Contradiction {
			fmt.Println("\n*** = contradicts overall result")
			break
		}
	}

	fmt.Printf("\nRECOMMENDATION: %s\n%s\n", s.Action, s.Reason)
}

func spotlightBlocks(s *engine.SegmentSpotlight) []slack.Block {
	blocks := []slack.Block{
		slack.Header("🎯 Segment Spotlight"),
		slack.Section(fmt.Sprintf("*%s*\nOverall: %s (%s confidence)",
			s.ExperimentName, s.OverallDisplay, s.ConfidenceDisplay)),
		slack.Divider(),
	}

	var lines []string
	for _, seg := range s.Segments {
		flag := ""
		if seg.Contradiction {
			flag = " :warning:"
		}
		lines = append(lines, fmt.Sprintf("*%s* (%s): %s %s, opportunity %s%s",
			seg.Name, seg.Dimension, seg.Outcome, seg.UpliftDisplay, seg.RevenueDisplay, flag))
	}
	if len(lines) > 0 {
		blocks = append(blocks, slack.Section("*Segments*\n"+strings.Join(lines, "\n")))
	}

	blocks = append(blocks,
		slack.Section(fmt.Sprintf("*Recommendation: %s*\n%s", s.Action, s.Reason)),
		slack.Context("Powered by liftwatch"))
	return blocks
}

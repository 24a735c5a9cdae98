package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/liftwatch/liftwatch/internal/adapters/slack"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/engine"
)

var funnelCmd = &cobra.Command{
	Use:   "funnel [test-id]",
	Short: "Locate where a test wins or loses in the funnel",
	Long: `Walk the conversion funnel stage by stage and find the biggest
gain, the biggest drop, and the point where the variant's effect flips.

Examples:
  liftwatch funnel
  liftwatch funnel <test-id>
  liftwatch funnel <test-id> --slack <webhook-url>`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFunnel,
}

var funnelSlackURL string

func init() {
	rootCmd.AddCommand(funnelCmd)
	funnelCmd.Flags().StringVar(&funnelSlackURL, "slack", "", "Slack webhook URL to send the result to")
}

func runFunnel(cmd *cobra.Command, args []string) error {
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

	funnel, err := engine.BuildFunnel(exp, overview, app.Thresholds, time.Now())
	if err != nil {
		return err
	}

	if err := saveReport(ctx, app, exp.ID, domain.ReportKindFunnel, funnel.RevenueDisplay, funnel); err != nil {
		return err
	}

	if funnelSlackURL != "" {
		return sendToSlack(ctx, funnelSlackURL, funnelBlocks(funnel),
			fmt.Sprintf("Funnel Diagnosis: %s", funnel.ExperimentName))
	}

	renderFunnel(funnel)
	return nil
}

func renderFunnel(f *engine.FunnelResult) {
	fmt.Printf("\n=== FUNNEL DIAGNOSIS: %s ===\n", f.ExperimentName)
	fmt.Printf("Variant: %s vs %s | Runtime: %s\n", f.VariantName, f.ControlName, f.RuntimeDisplay)
	fmt.Printf("%s: %s (%s confidence)\n\n", f.PrimaryLabel, f.RevenueDisplay, f.ConfidenceDisplay)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tCONTROL\tVARIANT\tLIFT\tCONFIDENCE")
	fmt.Fprintln(w, "-----\t-------\t-------\t----\t----------")
	for _, s := range f.Stages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Label, s.ControlDisplay, s.VariantDisplay, s.UpliftDisplay, s.ConfidenceDisplay)
	}
	w.Flush()
	fmt.Println()

	if f.BiggestGain != nil {
		fmt.Printf("Biggest gain: %s (%s)\n", f.BiggestGain.Label, f.BiggestGain.UpliftDisplay)
	}
	if f.BiggestDrop != nil {
		fmt.Printf("Biggest drop: %s (%s)\n", f.BiggestDrop.Label, f.BiggestDrop.UpliftDisplay)
	}
	if f.Breakpoint != nil {
		fmt.Printf("Breakpoint: %s\n", f.Breakpoint.Label)
	}
	fmt.Printf("\nDiagnosis: %s\n", f.Diagnosis)
}

func funnelBlocks(f *engine.FunnelResult) []slack.Block {
	blocks := []slack.Block{
		slack.Header("🔍 Funnel Diagnosis"),
		slack.Section(fmt.Sprintf("*%s*\n%s vs %s | %s: %s (%s confidence)",
			f.ExperimentName, f.VariantName, f.ControlName,
			f.PrimaryLabel, f.RevenueDisplay, f.ConfidenceDisplay)),
		slack.Divider(),
	}
	for _, s := range f.Stages {
		blocks = append(blocks, slack.Section(fmt.Sprintf(
			"*%s*: %s → %s (%s, %s confidence)",
			s.Label, s.ControlDisplay, s.VariantDisplay, s.UpliftDisplay, s.ConfidenceDisplay)))
	}
	blocks = append(blocks,
		slack.Section(fmt.Sprintf("*Diagnosis*\n%s", f.Diagnosis)),
		slack.Context("Powered by liftwatch"))
	return blocks
}

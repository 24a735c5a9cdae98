package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/format"
)

// Rollout actions, in declining order of enthusiasm.
const (
	RolloutGo          = "ROLL OUT"
	RolloutCaution     = "ROLL OUT WITH CAUTION"
	RolloutEnd         = "END TEST"
	RolloutEndPivot    = "END TEST: TRY SOMETHING DIFFERENT"
	RolloutKeepRunning = "KEEP RUNNING"
	RolloutWait        = "WAIT"
)

// RolloutFinancials holds the dollar projections for the brief. A zero
// Conservative means the confidence interval does not clear zero.
type RolloutFinancials struct {
	ExpectedAnnual      float64  `json:"expected_annual"`
	ExpectedDisplay     string   `json:"expected_display"`
	ExpectedMonthly     float64  `json:"expected_monthly"`
	MonthlyDisplay      string   `json:"monthly_display"`
	ConservativeAnnual  float64  `json:"conservative_annual"`
	ConservativeDisplay string   `json:"conservative_display"`
	OptimisticAnnual    *float64 `json:"optimistic_annual"`
	OptimisticDisplay   string   `json:"optimistic_display"`
	DailyCostOfWaiting  float64  `json:"daily_cost_of_waiting"`
	DailyCostDisplay    string   `json:"daily_cost_display"`
}

// RolloutBrief is the stakeholder-ready summary for a single test.
type RolloutBrief struct {
	ExperimentID      string            `json:"experiment_id"`
	ExperimentName    string            `json:"experiment_name"`
	Category          string            `json:"category"`
	GeneratedAt       time.Time         `json:"generated_at"`
	RuntimeDays       int               `json:"runtime_days"`
	RuntimeDisplay    string            `json:"runtime_display"`
	Visitors          int64             `json:"visitors"`
	Orders            int64             `json:"orders"`
	VariantID         string            `json:"variant_id"`
	VariantName       string            `json:"variant_name"`
	ControlName       string            `json:"control_name"`
	PrimaryMetric     string            `json:"primary_metric"`
	PrimaryLabel      string            `json:"primary_label"`
	Outcome           Outcome           `json:"outcome"`
	Uplift            *float64          `json:"uplift"`
	UpliftDisplay     string            `json:"uplift_display"`
	Confidence        *float64          `json:"confidence"`
	ConfidenceDisplay string            `json:"confidence_display"`
	CILow             *float64          `json:"ci_low"`
	CIHigh            *float64          `json:"ci_high"`
	ConversionUplift  *float64          `json:"conversion_uplift"`
	ConversionDisplay string            `json:"conversion_display"`
	Financials        RolloutFinancials `json:"financials"`
	Segments          []Segment         `json:"segments"`
	ExecutiveSummary  string            `json:"executive_summary"`
	Action            string            `json:"action"`
	Reason            string            `json:"reason"`
	NextSteps         []string          `json:"next_steps"`
}

// HasContradictions reports whether any segment flips against the
// overall result.
func (r *RolloutBrief) HasContradictions() bool {
	for _, s := range r.Segments {
		if s.Contradiction {
			return true
		}
	}
	return false
}

// BuildRollout assembles the full brief: verdict, financial
// projections, segment flags, recommendation, and next steps.
func BuildRollout(exp *domain.Experiment, overview *domain.Snapshot, segments []SegmentSnapshot, t domain.Thresholds, now time.Time) (*RolloutBrief, error) {
	control := exp.Control()
	if control == nil {
		return nil, ErrNoControl
	}
	variants := exp.Variants()
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}
	if overview == nil || overview.Empty() {
		return nil, ErrNoMetrics
	}

	days := exp.RuntimeDays(now)
	visitors := overview.TotalVisitors()
	orders := overview.TotalOrders()
	primary := overview.PrimaryRevenueMetric()

	best := pickBestVariant(variants, overview, primary)
	if best == nil {
		best = &variants[0]
	}

	uplift := overview.UpliftValue(primary, best.ID)
	confidence := overview.Confidence(primary, best.ID)
	ciLow, ciHigh := overview.ConfidenceInterval(primary, best.ID)
	controlValue := overview.Value(primary, control.ID)
	crUplift := overview.UpliftValue(domain.MetricConversionRate, best.ID)

	outcome := OutcomeTooEarly
	if days >= t.MinRuntimeDays && orders >= t.MinOrders {
		outcome = Classify(confidence, uplift, days, t)
	}

	r := &RolloutBrief{
		ExperimentID:      exp.ID,
		ExperimentName:    exp.Name,
		Category:          exp.Category(),
		GeneratedAt:       now,
		RuntimeDays:       days,
		RuntimeDisplay:    exp.RuntimeDisplay(now),
		Visitors:          visitors,
		Orders:            orders,
		VariantID:         best.ID,
		VariantName:       exp.VariationName(best.ID),
		ControlName:       exp.VariationName(control.ID),
		PrimaryMetric:     primary,
		PrimaryLabel:      domain.MetricLabel(primary),
		Outcome:           outcome,
		Uplift:            uplift,
		UpliftDisplay:     format.Lift(uplift),
		Confidence:        confidence,
		ConfidenceDisplay: format.Confidence(confidence),
		CILow:             ciLow,
		CIHigh:            ciHigh,
		ConversionUplift:  crUplift,
		ConversionDisplay: format.Lift(crUplift),
	}

	r.Financials = rolloutFinancials(visitors, days, controlValue, uplift, ciLow, ciHigh)
	r.Segments = rolloutSegments(segments, best.ID, control.ID, primary, uplift, days, t)
	r.ExecutiveSummary = executiveSummary(r)
	r.Action, r.Reason = rolloutRecommendation(r)
	r.NextSteps = rolloutNextSteps(outcome, r.HasContradictions())

	return r, nil
}

func rolloutFinancials(visitors int64, days int, controlValue, uplift, ciLow, ciHigh *float64) RolloutFinancials {
	annualBaseline := 0.0
	if days > 0 {
		annualBaseline = dailyRate(visitors, days) * 365 * deref(controlValue)
	}
	expected := annualBaseline * deref(uplift)

	f := RolloutFinancials{
		ExpectedAnnual:  expected,
		ExpectedDisplay: format.Currency(expected),
		ExpectedMonthly: expected / 12,
		MonthlyDisplay:  format.Currency(expected / 12),
	}
	if ciLow != nil && *ciLow > 0 {
		f.ConservativeAnnual = annualBaseline * *ciLow
	}
	f.ConservativeDisplay = format.Currency(f.ConservativeAnnual)
	if ciHigh != nil {
		f.OptimisticAnnual = ptr(annualBaseline * *ciHigh)
		f.OptimisticDisplay = format.Currency(*f.OptimisticAnnual)
	}
	if expected != 0 {
		f.DailyCostOfWaiting = expected / 365
		f.DailyCostDisplay = format.Currency(math.Abs(f.DailyCostOfWaiting))
	}
	return f
}

func rolloutSegments(segments []SegmentSnapshot, variantID, controlID, primary string, overallUplift *float64, days int, t domain.Thresholds) []Segment {
	var out []Segment
	for _, seg := range segments {
		if seg.Snapshot == nil {
			continue
		}
		for _, g := range seg.Snapshot.SegmentGroups() {
			segUplift := g.Snapshot.UpliftValue(primary, variantID)
			segConf := g.Snapshot.Confidence(primary, variantID)
			out = append(out, Segment{
				Name:              g.Label,
				Dimension:         seg.Dimension.Label,
				Outcome:           ClassifySegment(segConf, segUplift, days, t),
				Uplift:            segUplift,
				UpliftDisplay:     format.Lift(segUplift),
				Confidence:        segConf,
				ConfidenceDisplay: format.Confidence(segConf),
				Visitors:          g.Snapshot.VariationVisitors(variantID) + g.Snapshot.VariationVisitors(controlID),
				Contradiction:     contradicts(overallUplift, segUplift, t),
			})
		}
	}
	return out
}

func executiveSummary(r *RolloutBrief) string {
	category := strings.ToLower(r.Category)
	var parts []string

	switch r.Outcome {
	case OutcomeWinner:
		parts = append(parts, fmt.Sprintf("The %q %s test is a winner: %s is up %s with %s confidence after %d days.",
			r.ExperimentName, category, r.PrimaryLabel, r.UpliftDisplay, r.ConfidenceDisplay, r.RuntimeDays))
		if r.Financials.ExpectedAnnual > 0 {
			parts = append(parts, fmt.Sprintf("Projected annual impact: %s. Recommend rolling out immediately.",
				r.Financials.ExpectedDisplay))
		}
	case OutcomeLoser:
		parts = append(parts, fmt.Sprintf("The %q %s test is underperforming: %s is down %s with %s confidence.",
			r.ExperimentName, category, r.PrimaryLabel, r.UpliftDisplay, r.ConfidenceDisplay))
		if r.Financials.ExpectedAnnual != 0 {
			parts = append(parts, fmt.Sprintf("This variant would cost approximately %s/year if rolled out. Recommend ending the test.",
				format.Currency(math.Abs(r.Financials.ExpectedAnnual))))
		}
	case OutcomeFlat:
		parts = append(parts, fmt.Sprintf("The %q %s test shows no meaningful difference: %s lift is %s after %d days.",
			r.ExperimentName, category, r.PrimaryLabel, r.UpliftDisplay, r.RuntimeDays))
		parts = append(parts, "Recommend ending and testing a different lever.")
	case OutcomeKeepRunning:
		parts = append(parts, fmt.Sprintf("The %q %s test shows %s lift at %s confidence after %d days.",
			r.ExperimentName, category, r.UpliftDisplay, r.ConfidenceDisplay, r.RuntimeDays))
		parts = append(parts, "Not enough data for a confident call yet. Recommend letting it run.")
	default:
		parts = append(parts, fmt.Sprintf("The %q %s test is too early to evaluate: insufficient data after %d days.",
			r.ExperimentName, category, r.RuntimeDays))
		parts = append(parts, "Recommend checking back when minimum thresholds are met.")
	}

	return joinSentences(parts)
}

func rolloutRecommendation(r *RolloutBrief) (string, string) {
	switch r.Outcome {
	case OutcomeWinner:
		if r.HasContradictions() {
			var losers []Segment
			for _, s := range r.Segments {
				if s.Outcome == OutcomeLoser {
					losers = append(losers, s)
				}
			}
			if len(losers) > 0 {
				return RolloutCaution, fmt.Sprintf("Overall winner, but %s underperforming. Consider a segment-specific rollout or investigate the contradiction before full rollout.",
					segmentNames(losers, 2))
			}
		}
		return RolloutGo, "Strong signal across the board. Roll out to all traffic."
	case OutcomeLoser:
		return RolloutEnd, "The variant is hurting performance. End the test and revert to control."
	case OutcomeFlat:
		return RolloutEndPivot, "No meaningful impact. End the test and explore a different lever."
	case OutcomeKeepRunning:
		return RolloutKeepRunning, "Promising signals but not conclusive. Let the test accumulate more data."
	}
	return RolloutWait, "Insufficient data to make any recommendation. Let the test run longer."
}

func rolloutNextSteps(outcome Outcome, hasContradictions bool) []string {
	switch outcome {
	case OutcomeWinner:
		steps := []string{"Implement the winning variant across all traffic."}
		if hasContradictions {
			steps = append(steps, "Investigate segment contradictions before full rollout.")
		}
		return append(steps, "Plan a follow-up test to optimize further.")
	case OutcomeLoser:
		return []string{
			"Revert to control immediately.",
			"Document learnings for the team.",
			"Plan an alternative test with a different approach.",
		}
	case OutcomeFlat:
		return []string{
			"End the test. No action needed on the variant.",
			"Explore a different lever (pricing, shipping, offers, content).",
		}
	}
	return []string{
		"Let the test continue running.",
		"Check back in a few days for updated results.",
	}
}

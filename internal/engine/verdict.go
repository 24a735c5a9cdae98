package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/format"
)

// VariationResult is the classification of one variant against control.
type VariationResult struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Outcome           Outcome  `json:"outcome"`
	Confidence        *float64 `json:"confidence"`
	ConfidenceDisplay string   `json:"confidence_display"`
	Uplift            *float64 `json:"uplift"`
	UpliftDisplay     string   `json:"uplift_display"`
	CILow             *float64 `json:"ci_low"`
	CIHigh            *float64 `json:"ci_high"`
	CILowDisplay      string   `json:"ci_low_display"`
	CIHighDisplay     string   `json:"ci_high_display"`
	PrimaryValue      *float64 `json:"primary_value"`
	ControlValue      *float64 `json:"control_value"`
	RevenueUplift     *float64 `json:"revenue_uplift"`
	ConversionUplift  *float64 `json:"conversion_uplift"`
	Divergence        string   `json:"divergence,omitempty"`
	ProfitNote        string   `json:"profit_note,omitempty"`
	Reasoning         string   `json:"reasoning"`
	Risk              string   `json:"risk"`
}

// SegmentCheck is the device-segment quick check for the best variant.
type SegmentCheck struct {
	Segment           string   `json:"segment"`
	Outcome           Outcome  `json:"outcome"`
	Uplift            *float64 `json:"uplift"`
	UpliftDisplay     string   `json:"uplift_display"`
	Confidence        *float64 `json:"confidence"`
	ConfidenceDisplay string   `json:"confidence_display"`
	Visitors          int64    `json:"visitors"`
	Contradiction     bool     `json:"contradiction"`
}

// Verdict is the full categorical analysis of one experiment.
type Verdict struct {
	ExperimentID   string            `json:"experiment_id"`
	ExperimentName string            `json:"experiment_name"`
	Category       string            `json:"category"`
	RuntimeDays    int               `json:"runtime_days"`
	RuntimeDisplay string            `json:"runtime_display"`
	Visitors       int64             `json:"visitors"`
	Orders         int64             `json:"orders"`
	PrimaryMetric  string            `json:"primary_metric"`
	PrimaryLabel   string            `json:"primary_label"`
	HasCostData    bool              `json:"has_cost_data"`
	Overall        Outcome           `json:"overall"`
	MaturityIssues []string          `json:"maturity_issues,omitempty"`
	Variations     []VariationResult `json:"variations"`
	Segments       []SegmentCheck    `json:"segments,omitempty"`
	ETANote        string            `json:"eta_note,omitempty"`
	NextTest       string            `json:"next_test"`
}

// Best returns the top-ranked variation result.
func (v *Verdict) Best() *VariationResult {
	if len(v.Variations) == 0 {
		return nil
	}
	return &v.Variations[0]
}

// BuildVerdict classifies every variant of an experiment, ranks them,
// and runs the divergence, COGS and device-segment consistency checks.
// deviceSegments may be nil when audience data is unavailable.
func BuildVerdict(exp *domain.Experiment, overview, deviceSegments *domain.Snapshot, t domain.Thresholds, now time.Time) (*Verdict, error) {
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

	v := &Verdict{
		ExperimentID:   exp.ID,
		ExperimentName: exp.Name,
		Category:       exp.Category(),
		RuntimeDays:    days,
		RuntimeDisplay: exp.RuntimeDisplay(now),
		Visitors:       visitors,
		Orders:         orders,
		PrimaryMetric:  primary,
		PrimaryLabel:   domain.MetricLabel(primary),
		HasCostData:    overview.HasCostData(),
		MaturityIssues: MaturityIssues(days, orders, visitors, t),
	}
	tooEarly := len(v.MaturityIssues) > 0

	controlValue := overview.Value(primary, control.ID)
	for _, variant := range variants {
		r := classifyVariant(exp, overview, variant, primary, controlValue, days, orders, tooEarly, t)
		v.Variations = append(v.Variations, r)
	}

	sort.SliceStable(v.Variations, func(i, j int) bool {
		ri, rj := v.Variations[i], v.Variations[j]
		if outcomeRank(ri.Outcome) != outcomeRank(rj.Outcome) {
			return outcomeRank(ri.Outcome) < outcomeRank(rj.Outcome)
		}
		return deref(ri.Confidence) > deref(rj.Confidence)
	})

	best := v.Best()
	v.Overall = best.Outcome

	if !tooEarly && deviceSegments != nil {
		v.Segments = segmentQuickCheck(deviceSegments, primary, best, days, t)
	}

	if best.Outcome == OutcomeTooEarly || best.Outcome == OutcomeKeepRunning {
		v.ETANote = etaNote(orders, days, t)
	}
	v.NextTest = suggestNextTest(v.Category, best.Outcome)

	return v, nil
}

func classifyVariant(exp *domain.Experiment, snap *domain.Snapshot, variant domain.Variation, primary string, controlValue *float64, days int, orders int64, tooEarly bool, t domain.Thresholds) VariationResult {
	p2bb := snap.Confidence(primary, variant.ID)
	uplift := snap.UpliftValue(primary, variant.ID)
	ciLow, ciHigh := snap.ConfidenceInterval(primary, variant.ID)
	rpvUplift := snap.UpliftValue(domain.MetricNetRevenuePerVisitor, variant.ID)
	crUplift := snap.UpliftValue(domain.MetricConversionRate, variant.ID)

	outcome := OutcomeTooEarly
	if !tooEarly {
		outcome = Classify(p2bb, uplift, days, t)
	}

	profitNote := ""
	if snap.HasCostData() {
		gpvUplift := snap.UpliftValue(domain.MetricGrossProfitPerVisitor, variant.ID)
		profitNote = cogsNote(rpvUplift, gpvUplift)
	}

	return VariationResult{
		ID:                variant.ID,
		Name:              exp.VariationName(variant.ID),
		Outcome:           outcome,
		Confidence:        p2bb,
		ConfidenceDisplay: format.Confidence(p2bb),
		Uplift:            uplift,
		UpliftDisplay:     format.Lift(uplift),
		CILow:             ciLow,
		CIHigh:            ciHigh,
		CILowDisplay:      format.Lift(ciLow),
		CIHighDisplay:     format.Lift(ciHigh),
		PrimaryValue:      snap.Value(primary, variant.ID),
		ControlValue:      controlValue,
		RevenueUplift:     rpvUplift,
		ConversionUplift:  crUplift,
		Divergence:        divergenceNote(rpvUplift, crUplift, t),
		ProfitNote:        profitNote,
		Reasoning:         buildReasoning(outcome, exp.VariationName(variant.ID), domain.MetricLabel(primary), uplift, p2bb, days, orders),
		Risk:              buildRisk(p2bb, ciLow, ciHigh, domain.MetricLabel(primary), profitNote),
	}
}

// divergenceNote flags revenue and conversion moving in opposite
// directions. Signals inside the dead zone count as flat and never
// report a divergence.
func divergenceNote(rpvUplift, crUplift *float64, t domain.Thresholds) string {
	if rpvUplift == nil || crUplift == nil {
		return ""
	}
	rpvDir := signalDirection(*rpvUplift, t.SignalDeadZone)
	crDir := signalDirection(*crUplift, t.SignalDeadZone)
	if rpvDir == crDir || rpvDir == dirFlat || crDir == dirFlat {
		return ""
	}
	if rpvDir == dirUp && crDir == dirDown {
		return "Revenue is UP but conversion is DOWN. Fewer people are buying, but those who do spend more. Worth monitoring."
	}
	if rpvDir == dirDown && crDir == dirUp {
		return "Conversion is UP but revenue is DOWN. More people are buying, but they're spending less per order. Check if discounting is too aggressive."
	}
	return fmt.Sprintf("Revenue per visitor (%s) and conversion rate (%s) don't fully align. Investigate further.",
		format.Lift(rpvUplift), format.Lift(crUplift))
}

// cogsNote compares revenue and profit direction when COGS data exists.
func cogsNote(rpvUplift, gpvUplift *float64) string {
	if rpvUplift == nil || gpvUplift == nil {
		return ""
	}
	if (*gpvUplift > 0) != (*rpvUplift > 0) {
		return fmt.Sprintf("Revenue (%s) and profit (%s) are moving in opposite directions. COGS are eating into the gains.",
			format.Lift(rpvUplift), format.Lift(gpvUplift))
	}
	return fmt.Sprintf("Revenue (%s) and profit (%s) are aligned. COGS aren't distorting the picture.",
		format.Lift(rpvUplift), format.Lift(gpvUplift))
}

func segmentQuickCheck(audience *domain.Snapshot, primary string, best *VariationResult, days int, t domain.Thresholds) []SegmentCheck {
	var checks []SegmentCheck
	for _, g := range audience.SegmentGroups() {
		p2bb := g.Snapshot.Confidence(primary, best.ID)
		uplift := g.Snapshot.UpliftValue(primary, best.ID)
		outcome := ClassifySegment(p2bb, uplift, days, t)

		contradiction := (best.Outcome == OutcomeWinner && outcome == OutcomeLoser) ||
			(best.Outcome == OutcomeLoser && outcome == OutcomeWinner)

		checks = append(checks, SegmentCheck{
			Segment:           g.Label,
			Outcome:           outcome,
			Uplift:            uplift,
			UpliftDisplay:     format.Lift(uplift),
			Confidence:        p2bb,
			ConfidenceDisplay: format.Confidence(p2bb),
			Visitors:          g.Snapshot.VariationVisitors(best.ID),
			Contradiction:     contradiction,
		})
	}
	return checks
}

func etaNote(orders int64, days int, t domain.Thresholds) string {
	if days <= 0 || orders >= t.MinOrders {
		return ""
	}
	rate := dailyRate(orders, days)
	eta, ok := daysToTargetOrders(orders, t.MinOrders, rate)
	if !ok || eta == 0 {
		return ""
	}
	return fmt.Sprintf("At the current rate (~%.0f orders/day), you'll hit %d orders in ~%d day(s).", rate, t.MinOrders, eta)
}

func buildReasoning(outcome Outcome, name, metricLabel string, uplift, p2bb *float64, days int, orders int64) string {
	lift := format.Lift(uplift)
	conf := format.Confidence(p2bb)

	switch outcome {
	case OutcomeTooEarly:
		return fmt.Sprintf("%q has been running for %d day(s) with %s orders. There isn't enough data yet to make any call. Let it run longer before drawing conclusions.",
			name, days, format.Number(orders))
	case OutcomeWinner:
		return fmt.Sprintf("%q is beating control by %s on %s, with %s confidence. After %d days and %s orders, the data supports rolling this out.",
			name, lift, metricLabel, conf, days, format.Number(orders))
	case OutcomeLoser:
		return fmt.Sprintf("%q is underperforming control by %s on %s, with %s confidence that control is better. The data says this change is hurting. Consider ending it.",
			name, lift, metricLabel, conf)
	case OutcomeFlat:
		return fmt.Sprintf("%q shows %s lift on %s after %d days. That's within the noise threshold. There's no meaningful difference. Pick whichever is simpler to maintain.",
			name, lift, metricLabel, days)
	default:
		return fmt.Sprintf("%q shows %s lift on %s at %s confidence after %d days. There are signals here, but not enough conviction yet. Keep running.",
			name, lift, metricLabel, conf, days)
	}
}

func buildRisk(p2bb, ciLow, ciHigh *float64, metricLabel, profitNote string) string {
	var parts []string

	if p2bb != nil {
		confPct := *p2bb * 100
		if confPct >= 50 {
			parts = append(parts, fmt.Sprintf("At %.0f%% confidence, there's a %.0f%% chance the control was actually better.",
				confPct, 100-confPct))
		} else {
			parts = append(parts, fmt.Sprintf("At %.0f%% confidence, there's a %.0f%% chance this variation is actually better than control.",
				confPct, confPct))
		}
	} else {
		parts = append(parts, "Not enough data to calculate confidence yet.")
	}

	if ciLow != nil && ciHigh != nil {
		parts = append(parts, fmt.Sprintf("The true %s lift likely falls between %s and %s.",
			metricLabel, format.Lift(ciLow), format.Lift(ciHigh)))
	}

	if profitNote != "" {
		parts = append(parts, profitNote)
	}

	return strings.Join(parts, "\n")
}

// nextTestSuggestions keys a suggestion on (category, outcome) for
// callable verdicts.
var nextTestSuggestions = map[[2]string]string{
	{domain.CategoryPricing, string(OutcomeWinner)}:  "Try testing a slightly higher price point to find the ceiling. Also consider testing price anchoring or bundle pricing.",
	{domain.CategoryPricing, string(OutcomeLoser)}:   "The price change hurt performance. Try a smaller increment, or test perceived-value tactics (strikethrough pricing, limited-time framing).",
	{domain.CategoryPricing, string(OutcomeFlat)}:    "Price didn't matter here. Test something that changes perceived value instead: urgency messaging, social proof, or bundle offers.",
	{domain.CategoryShipping, string(OutcomeWinner)}: "Shipping changes moved the needle. Try testing different free-shipping thresholds to optimize the balance between conversion lift and margin.",
	{domain.CategoryShipping, string(OutcomeLoser)}:  "This shipping approach hurt. Consider testing free shipping with a minimum order threshold, or offering shipping as a value-add at checkout.",
	{domain.CategoryShipping, string(OutcomeFlat)}:   "Shipping wasn't the lever. Test something else: pricing, offer messaging, or checkout flow changes.",
	{domain.CategoryOffer, string(OutcomeWinner)}:    "The offer works. Now optimize it: test the discount level, the qualifying threshold, or the way it's communicated.",
	{domain.CategoryOffer, string(OutcomeLoser)}:     "This offer didn't land. Try a different discount structure (percentage vs. fixed), or test urgency-based offers.",
	{domain.CategoryOffer, string(OutcomeFlat)}:      "The offer didn't move behavior. Test something more visible: homepage messaging, product page layout, or the checkout experience.",
	{domain.CategoryContent, string(OutcomeWinner)}:  "This content change is working. Double down and test further variations of the winning approach on other pages.",
	{domain.CategoryContent, string(OutcomeLoser)}:   "This content didn't resonate. Try a completely different angle or test on a different page in the funnel.",
	{domain.CategoryContent, string(OutcomeFlat)}:    "The messaging change isn't moving the needle. Try a bolder change: layout, imagery, or a fundamentally different value proposition.",
}

func suggestNextTest(category string, outcome Outcome) string {
	if outcome == OutcomeTooEarly || outcome == OutcomeKeepRunning {
		return "Just wait. Let the test accumulate more data before planning the next move."
	}
	if s, ok := nextTestSuggestions[[2]string{category, string(outcome)}]; ok {
		return s
	}
	return "Consider testing a different lever entirely: pricing, shipping, offers, or content."
}

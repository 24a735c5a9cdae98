package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/format"
)

// DollarRange is an annual/monthly projection pair with display
// strings. Conservative and optimistic are nil when the corresponding
// CI bound is unknown.
type DollarRange struct {
	Expected            float64  `json:"expected"`
	ExpectedDisplay     string   `json:"expected_display"`
	Conservative        *float64 `json:"conservative"`
	ConservativeDisplay string   `json:"conservative_display"`
	Optimistic          *float64 `json:"optimistic"`
	OptimisticDisplay   string   `json:"optimistic_display"`
}

// OpportunityCost quantifies the cost of delaying a positive rollout.
type OpportunityCost struct {
	Daily          float64 `json:"daily"`
	DailyDisplay   string  `json:"daily_display"`
	Weekly         float64 `json:"weekly"`
	WeeklyDisplay  string  `json:"weekly_display"`
	Monthly        float64 `json:"monthly"`
	MonthlyDisplay string  `json:"monthly_display"`
}

// CACEquivalence translates a monthly dollar impact into acquired
// customers at the assumed acquisition cost.
type CACEquivalence struct {
	MonthlyCustomers int64   `json:"monthly_customers"`
	AssumedCAC       float64 `json:"assumed_cac"`
	CACDisplay       string  `json:"cac_display"`
}

// ProfitImpact is the dollar-denominated projection of a test's lift.
type ProfitImpact struct {
	ExperimentID      string           `json:"experiment_id"`
	ExperimentName    string           `json:"experiment_name"`
	Category          string           `json:"category"`
	RuntimeDays       int              `json:"runtime_days"`
	RuntimeDisplay    string           `json:"runtime_display"`
	Visitors          int64            `json:"visitors"`
	Orders            int64            `json:"orders"`
	DailyVisitors     float64          `json:"daily_visitors"`
	DailyOrders       float64          `json:"daily_orders"`
	PrimaryMetric     string           `json:"primary_metric"`
	PrimaryLabel      string           `json:"primary_label"`
	HasCostData       bool             `json:"has_cost_data"`
	VariantID         string           `json:"variant_id"`
	VariantName       string           `json:"variant_name"`
	ControlName       string           `json:"control_name"`
	ControlValue      float64          `json:"control_value"`
	Uplift            float64          `json:"uplift"`
	UpliftDisplay     string           `json:"uplift_display"`
	Confidence        *float64         `json:"confidence"`
	ConfidenceDisplay string           `json:"confidence_display"`
	CILow             *float64         `json:"ci_low"`
	CIHigh            *float64         `json:"ci_high"`
	Annual            DollarRange      `json:"annual"`
	Monthly           DollarRange      `json:"monthly"`
	BreakEven         []string         `json:"break_even"`
	OpportunityCost   *OpportunityCost `json:"opportunity_cost,omitempty"`
	CACEquivalence    *CACEquivalence  `json:"cac_equivalence,omitempty"`
	Summary           string           `json:"summary"`
	Warnings          []string         `json:"warnings,omitempty"`
}

// BuildProfitImpact projects the best variant's lift into annualized
// and monthly dollar ranges with break-even and opportunity-cost
// framing.
func BuildProfitImpact(exp *domain.Experiment, overview *domain.Snapshot, t domain.Thresholds, now time.Time) (*ProfitImpact, error) {
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
	if orders == 0 {
		return nil, ErrNoOrders
	}

	primary := overview.PrimaryRevenueMetric()
	best := pickBestVariant(variants, overview, primary)
	if best == nil {
		return nil, ErrInsufficientData
	}

	controlValue := overview.Value(primary, control.ID)
	uplift := overview.UpliftValue(primary, best.ID)
	if controlValue == nil || uplift == nil {
		return nil, ErrInsufficientData
	}
	confidence := overview.Confidence(primary, best.ID)
	ciLow, ciHigh := overview.ConfidenceInterval(primary, best.ID)

	dailyVis := dailyRate(visitors, days)
	annualBaseline := dailyVis * 365 * *controlValue
	expectedAnnual := annualBaseline * *uplift

	var conservativeAnnual, optimisticAnnual *float64
	if ciLow != nil {
		if *ciLow > 0 {
			conservativeAnnual = ptr(annualBaseline * *ciLow)
		} else {
			conservativeAnnual = ptr(0.0)
		}
	}
	if ciHigh != nil {
		optimisticAnnual = ptr(annualBaseline * *ciHigh)
	}

	p := &ProfitImpact{
		ExperimentID:      exp.ID,
		ExperimentName:    exp.Name,
		Category:          exp.Category(),
		RuntimeDays:       days,
		RuntimeDisplay:    exp.RuntimeDisplay(now),
		Visitors:          visitors,
		Orders:            orders,
		DailyVisitors:     dailyVis,
		DailyOrders:       dailyRate(orders, days),
		PrimaryMetric:     primary,
		PrimaryLabel:      domain.MetricLabel(primary),
		HasCostData:       overview.HasCostData(),
		VariantID:         best.ID,
		VariantName:       exp.VariationName(best.ID),
		ControlName:       exp.VariationName(control.ID),
		ControlValue:      *controlValue,
		Uplift:            *uplift,
		UpliftDisplay:     format.Lift(uplift),
		Confidence:        confidence,
		ConfidenceDisplay: format.Confidence(confidence),
		CILow:             ciLow,
		CIHigh:            ciHigh,
		Annual:            dollarRange(expectedAnnual, conservativeAnnual, optimisticAnnual, 1),
		Monthly:           dollarRange(expectedAnnual, conservativeAnnual, optimisticAnnual, 12),
	}

	crUplift := overview.UpliftValue(domain.MetricConversionRate, best.ID)
	rpvUplift := overview.UpliftValue(domain.MetricNetRevenuePerVisitor, best.ID)
	p.BreakEven = breakEvenLines(rpvUplift, crUplift, *uplift, p.Category)

	if *uplift > 0 {
		daily := expectedAnnual / 365
		p.OpportunityCost = &OpportunityCost{
			Daily:          daily,
			DailyDisplay:   format.Currency(math.Abs(daily)),
			Weekly:         daily * 7,
			WeeklyDisplay:  format.Currency(math.Abs(daily * 7)),
			Monthly:        daily * 30,
			MonthlyDisplay: format.Currency(math.Abs(daily * 30)),
		}
	}

	if p.Monthly.Expected != 0 {
		p.CACEquivalence = &CACEquivalence{
			MonthlyCustomers: int64(math.Abs(p.Monthly.Expected) / t.AssumedCAC),
			AssumedCAC:       t.AssumedCAC,
			CACDisplay:       format.Currency(t.AssumedCAC),
		}
	}

	p.Summary = businessSummary(p, t)

	if confidence != nil && *confidence < t.MinConfidence {
		p.Warnings = append(p.Warnings, fmt.Sprintf("Confidence (%s) is below %s. Projections carry higher uncertainty.",
			format.Confidence(confidence), format.Percent(ptr(t.MinConfidence))))
	}
	if days < t.MinRuntimeDays {
		p.Warnings = append(p.Warnings, fmt.Sprintf("Test has only run %d days (minimum recommended: %d). Projections may shift.",
			days, t.MinRuntimeDays))
	}

	return p, nil
}

func dollarRange(expected float64, conservative, optimistic *float64, divisor float64) DollarRange {
	r := DollarRange{
		Expected:            expected / divisor,
		ConservativeDisplay: "Insufficient data",
		OptimisticDisplay:   "Insufficient data",
	}
	r.ExpectedDisplay = format.Currency(r.Expected)
	if conservative != nil {
		r.Conservative = ptr(*conservative / divisor)
		r.ConservativeDisplay = format.Currency(*r.Conservative)
	}
	if optimistic != nil {
		r.Optimistic = ptr(*optimistic / divisor)
		r.OptimisticDisplay = format.Currency(*r.Optimistic)
	}
	return r
}

// breakEvenLines builds the break-even narrative. With a revenue-up /
// conversion-down divergence it states the headroom; for pricing wins
// it states the customer-loss tolerance; otherwise one line per sign.
func breakEvenLines(rpvUplift, crUplift *float64, uplift float64, category string) []string {
	var lines []string

	if rpvUplift != nil && *rpvUplift > 0 && crUplift != nil && *crUplift < 0 {
		rpvGain := *rpvUplift * 100
		crDrop := math.Abs(*crUplift) * 100
		lines = append(lines, fmt.Sprintf("Revenue per visitor is up %.1f%% while conversion rate is down %.1f%%.", rpvGain, crDrop))
		if headroom := rpvGain - crDrop; headroom > 0 {
			lines = append(lines, fmt.Sprintf("You have %.1f%% of headroom. The revenue gain more than absorbs the conversion dip.", headroom))
		}
		lines = append(lines, fmt.Sprintf("You could afford up to ~%.1f%% conversion drop and still come out ahead on revenue.", rpvGain))
	}

	if category == domain.CategoryPricing && uplift > 0 {
		lines = append(lines, fmt.Sprintf("Pricing insight: at this %s lift, you would need to lose more than %.1f%% of your customers to lose money.",
			format.Lift(&uplift), uplift*100))
	}

	if len(lines) == 0 {
		switch {
		case uplift > 0:
			lines = append(lines, "No metric divergence detected. Revenue and conversion are moving in the same direction.")
		case uplift < 0:
			lines = append(lines, "This variant underperforms the control. No break-even scenario exists; the control is the better option.")
		default:
			lines = append(lines, "No meaningful difference detected between variants.")
		}
	}
	return lines
}

// businessSummary is the stakeholder-ready narrative, branching on the
// sign of the lift and whether confidence clears the floor.
func businessSummary(p *ProfitImpact, t domain.Thresholds) string {
	highConf := p.Confidence != nil && *p.Confidence >= t.MinConfidence
	var lines []string

	switch {
	case p.Uplift > 0:
		lines = append(lines, fmt.Sprintf("The %q variant in the %s %s test shows a %s lift in %s (%s confidence).",
			p.VariantName, p.ExperimentName, lowerCategory(p.Category), p.UpliftDisplay, p.PrimaryLabel, p.ConfidenceDisplay))
		switch {
		case highConf && p.Annual.Conservative != nil && *p.Annual.Conservative > 0:
			lines = append(lines, fmt.Sprintf("Projected annual impact ranges from %s (conservative) to %s (optimistic), with an expected value of %s.",
				p.Annual.ConservativeDisplay, p.Annual.OptimisticDisplay, p.Annual.ExpectedDisplay))
		case highConf:
			lines = append(lines, fmt.Sprintf("Expected annual impact: %s. The lower confidence bound crosses zero, so the conservative estimate is break-even.",
				p.Annual.ExpectedDisplay))
		default:
			lines = append(lines, fmt.Sprintf("Estimated annual impact is %s, but confidence is below %s. More data is needed before acting.",
				p.Annual.ExpectedDisplay, format.Percent(ptr(t.MinConfidence))))
		}
		if highConf && p.OpportunityCost != nil && p.OpportunityCost.Daily > 0 {
			lines = append(lines, fmt.Sprintf("Every day without rolling out this winner costs approximately %s.",
				p.OpportunityCost.DailyDisplay))
		}
	case p.Uplift < 0:
		lines = append(lines, fmt.Sprintf("The %q variant in the %s %s test shows a %s decline in %s (%s confidence).",
			p.VariantName, p.ExperimentName, lowerCategory(p.Category), p.UpliftDisplay, p.PrimaryLabel, p.ConfidenceDisplay))
		lines = append(lines, fmt.Sprintf("If this variant were rolled out, it would cost approximately %s/year. This test has protected you from that loss.",
			format.Currency(math.Abs(p.Annual.Expected))))
	default:
		lines = append(lines, fmt.Sprintf("The %q variant in the %s %s test shows no meaningful lift in %s (%s confidence).",
			p.VariantName, p.ExperimentName, lowerCategory(p.Category), p.PrimaryLabel, p.ConfidenceDisplay))
		if p.RuntimeDays < t.MinRuntimeDays {
			lines = append(lines, fmt.Sprintf("The test has only been running %d days. Let it run at least %d days before drawing conclusions.",
				p.RuntimeDays, t.MinRuntimeDays))
		} else {
			lines = append(lines, "Consider iterating on a new variant or testing a different lever.")
		}
	}

	return joinSentences(lines)
}

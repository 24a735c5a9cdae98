package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/format"
)

// HealthStatus flags a running test for the morning brief. RED needs
// attention today, YELLOW needs watching, GREEN is on track.
type HealthStatus string

const (
	HealthRed    HealthStatus = "RED"
	HealthYellow HealthStatus = "YELLOW"
	HealthGreen  HealthStatus = "GREEN"
)

func healthRank(s HealthStatus) int {
	switch s {
	case HealthRed:
		return 0
	case HealthYellow:
		return 1
	case HealthGreen:
		return 2
	}
	return 99
}

// TestCard is the one-glance summary of a single running test.
type TestCard struct {
	ExperimentID      string       `json:"experiment_id"`
	Name              string       `json:"name"`
	Category          string       `json:"category"`
	Status            HealthStatus `json:"status"`
	Action            string       `json:"action"`
	RuntimeDays       int          `json:"runtime_days"`
	RuntimeDisplay    string       `json:"runtime_display"`
	Visitors          int64        `json:"visitors"`
	Orders            int64        `json:"orders"`
	DailyVisitors     float64      `json:"daily_visitors"`
	DailyOrders       float64      `json:"daily_orders"`
	BestVariant       string       `json:"best_variant,omitempty"`
	PrimaryLabel      string       `json:"primary_label"`
	PrimaryLift       *float64     `json:"primary_lift"`
	PrimaryDisplay    string       `json:"primary_display"`
	PrimaryConfidence *float64     `json:"primary_confidence"`
	ConversionLift    *float64     `json:"conversion_lift"`
	ConversionConf    *float64     `json:"conversion_confidence"`
	DaysToVerdict     *int         `json:"days_to_verdict"`
	ReadyToCall       bool         `json:"ready_to_call"`
}

// ProgramPulse aggregates the testing program across all active tests.
type ProgramPulse struct {
	ActiveTests   int   `json:"active_tests"`
	DailyVisitors int64 `json:"daily_visitors"`
	DailyOrders   int64 `json:"daily_orders"`
	ReadyToCall   int   `json:"ready_to_call"`
	NeedMoreTime  int   `json:"need_more_time"`
}

// MorningBrief is the daily prioritized view of every active test.
type MorningBrief struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Cards       []TestCard   `json:"cards"`
	Pulse       ProgramPulse `json:"pulse"`
}

// BuildTestCard computes health and headline numbers for one test.
func BuildTestCard(exp *domain.Experiment, overview *domain.Snapshot, t domain.Thresholds, now time.Time) TestCard {
	days := exp.RuntimeDays(now)

	card := TestCard{
		ExperimentID:   exp.ID,
		Name:           exp.Name,
		Category:       exp.Category(),
		RuntimeDays:    days,
		RuntimeDisplay: exp.RuntimeDisplay(now),
		PrimaryLabel:   "RPV",
	}
	if overview == nil || overview.Empty() {
		card.Status = HealthRed
		card.Action = "No analytics data. Could not evaluate this test."
		return card
	}

	card.Visitors = overview.TotalVisitors()
	card.Orders = overview.TotalOrders()
	card.DailyVisitors = dailyRate(card.Visitors, days)
	card.DailyOrders = dailyRate(card.Orders, days)

	primary := overview.PrimaryRevenueMetric()
	if primary == domain.MetricGrossProfitPerVisitor {
		card.PrimaryLabel = "GPV"
	}

	variants := exp.Variants()
	if best := pickBestVariant(variants, overview, primary); best != nil {
		card.BestVariant = exp.VariationName(best.ID)
		card.PrimaryLift = overview.UpliftValue(primary, best.ID)
		card.PrimaryConfidence = overview.Confidence(primary, best.ID)
	}
	card.PrimaryDisplay = format.Lift(card.PrimaryLift)
	if bestConv := pickBestVariant(variants, overview, domain.MetricConversionRate); bestConv != nil {
		card.ConversionLift = overview.UpliftValue(domain.MetricConversionRate, bestConv.ID)
		card.ConversionConf = overview.Confidence(domain.MetricConversionRate, bestConv.ID)
	}

	card.Status, card.Action = computeHealth(&card, t)

	if card.Orders < t.MinOrders {
		if eta, ok := daysToTargetOrders(card.Orders, t.MinOrders, card.DailyOrders); ok {
			card.DaysToVerdict = &eta
			card.ReadyToCall = eta == 0
		}
	} else {
		card.ReadyToCall = true
	}

	return card
}

// computeHealth applies the triage rules in priority order. The first
// matching rule wins.
func computeHealth(card *TestCard, t domain.Thresholds) (HealthStatus, string) {
	if card.RuntimeDays < 3 {
		return HealthRed, "Just started. Verify test setup is correct."
	}
	if card.Orders == 0 {
		return HealthRed, fmt.Sprintf("Zero orders after %d days. Check test setup.", card.RuntimeDays)
	}
	if card.ConversionLift != nil && card.ConversionConf != nil &&
		*card.ConversionLift < -0.20 && *card.ConversionConf >= t.MinConfidence {
		return HealthRed, fmt.Sprintf("Conversion dropping %s. Consider pausing.", format.Lift(card.ConversionLift))
	}

	if card.RuntimeDays < t.MinRuntimeDays {
		return HealthYellow, fmt.Sprintf("Only %d days in. Needs more data (min %d).", card.RuntimeDays, t.MinRuntimeDays)
	}
	if card.PrimaryLift != nil && card.PrimaryConfidence != nil &&
		*card.PrimaryLift < 0 && *card.PrimaryConfidence >= 0.60 && *card.PrimaryConfidence < t.MinConfidence {
		return HealthYellow, fmt.Sprintf("Trending negative (%s). Monitor closely.", card.PrimaryDisplay)
	}
	if card.DailyVisitors < 50 {
		return HealthYellow, fmt.Sprintf("Low traffic (%.0f visitors/day). Will take longer.", card.DailyVisitors)
	}

	if card.PrimaryLift != nil && card.PrimaryConfidence != nil &&
		*card.PrimaryConfidence >= t.MinConfidence && *card.PrimaryLift > t.NeutralLiftBand &&
		card.Orders >= t.MinOrders {
		return HealthGreen, fmt.Sprintf("Strong signal (%s at %s confidence). Close to callable.",
			card.PrimaryDisplay, format.Confidence(card.PrimaryConfidence))
	}
	if card.PrimaryLift != nil && card.PrimaryConfidence != nil &&
		*card.PrimaryConfidence >= 0.60 && *card.PrimaryLift > t.NeutralLiftBand {
		return HealthGreen, fmt.Sprintf("Emerging winner (%s). Gathering more data.", card.PrimaryDisplay)
	}
	return HealthGreen, "Gathering data on track"
}

// BuildBrief sorts cards by urgency and computes the program pulse.
func BuildBrief(cards []TestCard, t domain.Thresholds, now time.Time) *MorningBrief {
	sorted := make([]TestCard, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		return healthRank(sorted[i].Status) < healthRank(sorted[j].Status)
	})

	pulse := ProgramPulse{ActiveTests: len(sorted)}
	var dailyVis, dailyOrd float64
	for _, c := range sorted {
		dailyVis += c.DailyVisitors
		dailyOrd += c.DailyOrders
		if c.Orders >= t.MinOrders && c.RuntimeDays >= t.MinRuntimeDays {
			pulse.ReadyToCall++
		}
	}
	pulse.DailyVisitors = int64(dailyVis)
	pulse.DailyOrders = int64(dailyOrd)
	pulse.NeedMoreTime = pulse.ActiveTests - pulse.ReadyToCall

	return &MorningBrief{GeneratedAt: now, Cards: sorted, Pulse: pulse}
}

package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/format"
)

// Stage is the control-vs-variant comparison at one funnel step.
type Stage struct {
	Metric            string   `json:"metric"`
	Label             string   `json:"label"`
	Control           *float64 `json:"control"`
	ControlDisplay    string   `json:"control_display"`
	Variant           *float64 `json:"variant"`
	VariantDisplay    string   `json:"variant_display"`
	Uplift            *float64 `json:"uplift"`
	UpliftDisplay     string   `json:"uplift_display"`
	Confidence        *float64 `json:"confidence"`
	ConfidenceDisplay string   `json:"confidence_display"`
	HasData           bool     `json:"has_data"`
}

// FunnelResult locates where the variant diverges from control.
type FunnelResult struct {
	ExperimentID      string   `json:"experiment_id"`
	ExperimentName    string   `json:"experiment_name"`
	Category          string   `json:"category"`
	RuntimeDays       int      `json:"runtime_days"`
	RuntimeDisplay    string   `json:"runtime_display"`
	Visitors          int64    `json:"visitors"`
	Orders            int64    `json:"orders"`
	PrimaryMetric     string   `json:"primary_metric"`
	PrimaryLabel      string   `json:"primary_label"`
	VariantID         string   `json:"variant_id"`
	VariantName       string   `json:"variant_name"`
	ControlName       string   `json:"control_name"`
	RevenueUplift     *float64 `json:"revenue_uplift"`
	RevenueDisplay    string   `json:"revenue_display"`
	Confidence        *float64 `json:"confidence"`
	ConfidenceDisplay string   `json:"confidence_display"`
	Stages            []Stage  `json:"stages"`
	BiggestGain       *Stage   `json:"biggest_gain,omitempty"`
	BiggestDrop       *Stage   `json:"biggest_drop,omitempty"`
	Breakpoint        *Stage   `json:"breakpoint,omitempty"`
	Diagnosis         string   `json:"diagnosis"`
}

// BuildFunnel compares control against the best variant across the
// fixed funnel stages and narrates the largest gain, largest drop and
// the breakpoint where direction flips.
func BuildFunnel(exp *domain.Experiment, overview *domain.Snapshot, t domain.Thresholds, now time.Time) (*FunnelResult, error) {
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

	primary := overview.PrimaryRevenueMetric()
	best := pickBestVariant(variants, overview, primary)
	if best == nil {
		best = &variants[0]
	}

	f := &FunnelResult{
		ExperimentID:   exp.ID,
		ExperimentName: exp.Name,
		Category:       exp.Category(),
		RuntimeDays:    exp.RuntimeDays(now),
		RuntimeDisplay: exp.RuntimeDisplay(now),
		Visitors:       overview.TotalVisitors(),
		Orders:         overview.TotalOrders(),
		PrimaryMetric:  primary,
		PrimaryLabel:   domain.MetricLabel(primary),
		VariantID:      best.ID,
		VariantName:    exp.VariationName(best.ID),
		ControlName:    exp.VariationName(control.ID),
		RevenueUplift:  overview.UpliftValue(primary, best.ID),
		Confidence:     overview.Confidence(primary, best.ID),
	}
	f.RevenueDisplay = format.Lift(f.RevenueUplift)
	f.ConfidenceDisplay = format.Confidence(f.Confidence)

	for _, fs := range domain.FunnelStages {
		controlVal := overview.Value(fs.Metric, control.ID)
		variantVal := overview.Value(fs.Metric, best.ID)
		uplift := overview.UpliftValue(fs.Metric, best.ID)
		confidence := overview.Confidence(fs.Metric, best.ID)
		f.Stages = append(f.Stages, Stage{
			Metric:            fs.Metric,
			Label:             fs.Label,
			Control:           controlVal,
			ControlDisplay:    format.Percent(controlVal),
			Variant:           variantVal,
			VariantDisplay:    format.Percent(variantVal),
			Uplift:            uplift,
			UpliftDisplay:     format.Lift(uplift),
			Confidence:        confidence,
			ConfidenceDisplay: format.Confidence(confidence),
			HasData:           controlVal != nil || variantVal != nil,
		})
	}

	active := activeStages(f.Stages)
	f.BiggestGain = biggestGain(active)
	f.BiggestDrop = biggestDrop(active)
	f.Breakpoint = findBreakpoint(active, t)
	f.Diagnosis = buildDiagnosis(f.BiggestGain, f.BiggestDrop, f.Breakpoint)

	return f, nil
}

func activeStages(stages []Stage) []*Stage {
	var out []*Stage
	for i := range stages {
		if stages[i].HasData {
			out = append(out, &stages[i])
		}
	}
	return out
}

func biggestGain(stages []*Stage) *Stage {
	var best *Stage
	for _, s := range stages {
		if s.Uplift == nil || *s.Uplift <= 0 {
			continue
		}
		if best == nil || *s.Uplift > *best.Uplift {
			best = s
		}
	}
	return best
}

func biggestDrop(stages []*Stage) *Stage {
	var worst *Stage
	for _, s := range stages {
		if s.Uplift == nil || *s.Uplift >= 0 {
			continue
		}
		if worst == nil || *s.Uplift < *worst.Uplift {
			worst = s
		}
	}
	return worst
}

// findBreakpoint scans the stages in funnel order and returns the first
// stage whose direction differs from the last non-flat direction seen,
// with both sides outside the dead zone.
func findBreakpoint(stages []*Stage, t domain.Thresholds) *Stage {
	prev := dirFlat
	havePrev := false
	for _, s := range stages {
		if s.Uplift == nil {
			continue
		}
		dir := signalDirection(*s.Uplift, t.SignalDeadZone)
		if havePrev && dir != prev && dir != dirFlat {
			return s
		}
		if dir != dirFlat {
			prev = dir
			havePrev = true
		}
	}
	return nil
}

func buildDiagnosis(gain, drop, breakpoint *Stage) string {
	var parts []string

	switch {
	case gain != nil && drop != nil:
		parts = append(parts, fmt.Sprintf("The variant improves %s (%s) but hurts %s (%s).",
			gain.Label, gain.UpliftDisplay, drop.Label, drop.UpliftDisplay))
	case gain != nil:
		parts = append(parts, fmt.Sprintf("The variant lifts %s by %s with no negative stages. Clean signal across the funnel.",
			gain.Label, gain.UpliftDisplay))
	case drop != nil:
		parts = append(parts, fmt.Sprintf("The variant hurts %s by %s with no positive stages. The change is making things worse.",
			drop.Label, drop.UpliftDisplay))
	default:
		parts = append(parts, "No meaningful differences across funnel stages. The variant isn't moving behavior.")
	}

	if breakpoint != nil {
		parts = append(parts, fmt.Sprintf("The breakpoint is at %s: behavior diverges here.", breakpoint.Label))
	}

	if drop != nil {
		if hint := stageHint(drop.Label); hint != "" {
			parts = append(parts, hint)
		}
	}

	return strings.Join(parts, " ")
}

// stageHint keys a next-step suggestion on the dropping stage's label;
// the first substring match wins.
func stageHint(label string) string {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "cart"):
		return "Consider testing product page changes to improve add-to-cart conversion."
	case strings.Contains(lower, "checkout"):
		return "Checkout is the bottleneck. Test checkout flow simplification or trust signals."
	case strings.Contains(lower, "contact"), strings.Contains(lower, "address"):
		return "Form friction is the issue. Test reducing required fields or adding progress indicators."
	case strings.Contains(lower, "purchase"):
		return "The final purchase step is weak. Test payment options, shipping clarity, or urgency messaging."
	}
	return ""
}

package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/format"
)

// Segment spread thresholds for insight generation. A device spread
// above 5 points or a new/returning gap above 3 points is noteworthy.
const (
	deviceSpreadThreshold      = 0.05
	visitorTypeSpreadThreshold = 0.03
)

// Debrief is the narrative post-mortem of a test: what happened, what
// it says about customer behavior, and what to try next.
type Debrief struct {
	ExperimentID      string    `json:"experiment_id"`
	ExperimentName    string    `json:"experiment_name"`
	Category          string    `json:"category"`
	RuntimeDays       int       `json:"runtime_days"`
	RuntimeDisplay    string    `json:"runtime_display"`
	Visitors          int64     `json:"visitors"`
	Orders            int64     `json:"orders"`
	PrimaryMetric     string    `json:"primary_metric"`
	PrimaryLabel      string    `json:"primary_label"`
	VariantID         string    `json:"variant_id"`
	VariantName       string    `json:"variant_name"`
	Outcome           Outcome   `json:"outcome"`
	Uplift            *float64  `json:"uplift"`
	UpliftDisplay     string    `json:"uplift_display"`
	Confidence        *float64  `json:"confidence"`
	ConfidenceDisplay string    `json:"confidence_display"`
	Stages            []Stage   `json:"stages"`
	Segments          []Segment `json:"segments"`
	Insights          []string  `json:"insights"`
	Suggestions       []string  `json:"suggestions"`
}

// BuildDebrief derives behavior insights from segment and funnel
// patterns and proposes specific next tests.
func BuildDebrief(exp *domain.Experiment, overview *domain.Snapshot, segments []SegmentSnapshot, t domain.Thresholds, now time.Time) (*Debrief, error) {
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
	orders := overview.TotalOrders()
	primary := overview.PrimaryRevenueMetric()
	best := pickBestVariant(variants, overview, primary)
	if best == nil {
		best = &variants[0]
	}

	uplift := overview.UpliftValue(primary, best.ID)
	confidence := overview.Confidence(primary, best.ID)

	outcome := OutcomeTooEarly
	if days >= t.MinRuntimeDays && orders >= t.MinOrders {
		outcome = Classify(confidence, uplift, days, t)
	}

	d := &Debrief{
		ExperimentID:      exp.ID,
		ExperimentName:    exp.Name,
		Category:          exp.Category(),
		RuntimeDays:       days,
		RuntimeDisplay:    exp.RuntimeDisplay(now),
		Visitors:          overview.TotalVisitors(),
		Orders:            orders,
		PrimaryMetric:     primary,
		PrimaryLabel:      domain.MetricLabel(primary),
		VariantID:         best.ID,
		VariantName:       exp.VariationName(best.ID),
		Outcome:           outcome,
		Uplift:            uplift,
		UpliftDisplay:     format.Lift(uplift),
		Confidence:        confidence,
		ConfidenceDisplay: format.Confidence(confidence),
	}

	d.Stages = debriefStages(overview, control.ID, best.ID)

	for _, seg := range segments {
		if seg.Snapshot == nil {
			continue
		}
		for _, g := range seg.Snapshot.SegmentGroups() {
			segUplift := g.Snapshot.UpliftValue(primary, best.ID)
			segConf := g.Snapshot.Confidence(primary, best.ID)
			d.Segments = append(d.Segments, Segment{
				Name:              g.Label,
				Dimension:         seg.Dimension.Label,
				Outcome:           ClassifySegment(segConf, segUplift, days, t),
				Uplift:            segUplift,
				UpliftDisplay:     format.Lift(segUplift),
				Confidence:        segConf,
				ConfidenceDisplay: format.Confidence(segConf),
				Visitors:          g.Snapshot.VariationVisitors(best.ID) + g.Snapshot.VariationVisitors(control.ID),
			})
		}
	}

	d.Insights = segmentInsights(d.Segments, uplift, t)
	d.Suggestions = nextTestIdeas(outcome, d.Category, d.Stages, d.Segments, t)

	return d, nil
}

// debriefStages keeps only funnel stages that have any data.
func debriefStages(snap *domain.Snapshot, controlID, variantID string) []Stage {
	var stages []Stage
	for _, fs := range domain.FunnelStages {
		controlVal := snap.Value(fs.Metric, controlID)
		variantVal := snap.Value(fs.Metric, variantID)
		if controlVal == nil && variantVal == nil {
			continue
		}
		uplift := snap.UpliftValue(fs.Metric, variantID)
		confidence := snap.Confidence(fs.Metric, variantID)
		stages = append(stages, Stage{
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
			HasData:           true,
		})
	}
	return stages
}

// segmentInsights emits, in order: the strongest positive segment, the
// weakest segment (as an outlier when it contradicts the overall
// direction), a device spread comparison, a new-vs-returning gap, and
// a traffic-source polarity note.
func segmentInsights(segments []Segment, overallUplift *float64, t domain.Thresholds) []string {
	var insights []string

	withData := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Uplift != nil {
			withData = append(withData, s)
		}
	}
	if len(withData) == 0 {
		return insights
	}

	strongest := withData[0]
	weakest := withData[0]
	for _, s := range withData[1:] {
		if *s.Uplift > *strongest.Uplift {
			strongest = s
		}
		if *s.Uplift < *weakest.Uplift {
			weakest = s
		}
	}

	if *strongest.Uplift > t.NeutralLiftBand {
		insights = append(insights, fmt.Sprintf("%s (%s) responded strongest at %s lift.",
			strongest.Name, strongest.Dimension, strongest.UpliftDisplay))
	}

	if overallUplift != nil {
		switch {
		case *overallUplift > 0 && *weakest.Uplift < -t.NeutralLiftBand:
			insights = append(insights, fmt.Sprintf("%s (%s) is the outlier: actually negative at %s while overall is positive.",
				weakest.Name, weakest.Dimension, weakest.UpliftDisplay))
		case *weakest.Uplift < -t.NeutralLiftBand:
			insights = append(insights, fmt.Sprintf("%s (%s) is underperforming at %s.",
				weakest.Name, weakest.Dimension, weakest.UpliftDisplay))
		}
	}

	devices := filterDimension(withData, "Device")
	if len(devices) >= 2 {
		sort.SliceStable(devices, func(i, j int) bool { return *devices[i].Uplift > *devices[j].Uplift })
		bestDev, worstDev := devices[0], devices[len(devices)-1]
		if diff := math.Abs(*bestDev.Uplift - *worstDev.Uplift); diff > deviceSpreadThreshold {
			insights = append(insights, fmt.Sprintf("%s outperforms %s by %s. Consider device-specific optimization.",
				bestDev.Name, worstDev.Name, format.Lift(&diff)))
		}
	}

	visitorTypes := filterDimension(withData, "Visitor Type")
	if len(visitorTypes) >= 2 {
		newSeg := findByName(visitorTypes, "new")
		returning := findByName(visitorTypes, "return")
		if newSeg != nil && returning != nil {
			if math.Abs(*newSeg.Uplift-*returning.Uplift) > visitorTypeSpreadThreshold {
				if *newSeg.Uplift > *returning.Uplift {
					insights = append(insights, fmt.Sprintf("New visitors drove more of the lift (%s) vs returning (%s).",
						newSeg.UpliftDisplay, returning.UpliftDisplay))
				} else {
					insights = append(insights, fmt.Sprintf("Returning visitors responded more (%s) vs new visitors (%s).",
						returning.UpliftDisplay, newSeg.UpliftDisplay))
				}
			}
		}
	}

	sources := filterDimension(withData, "Traffic Source")
	var positive, negative []Segment
	for _, s := range sources {
		switch {
		case *s.Uplift > t.NeutralLiftBand:
			positive = append(positive, s)
		case *s.Uplift < -t.NeutralLiftBand:
			negative = append(negative, s)
		}
	}
	if len(positive) > 0 && len(negative) > 0 {
		insights = append(insights, fmt.Sprintf("Works for %s traffic but not %s. Audience intent may differ.",
			segmentNames(positive, 2), segmentNames(negative, 2)))
	}

	return insights
}

func filterDimension(segments []Segment, dimension string) []Segment {
	var out []Segment
	for _, s := range segments {
		if s.Dimension == dimension {
			out = append(out, s)
		}
	}
	return out
}

func findByName(segments []Segment, substr string) *Segment {
	for i := range segments {
		if strings.Contains(strings.ToLower(segments[i].Name), substr) {
			return &segments[i]
		}
	}
	return nil
}

// categoryIdeas keys a follow-up test on the category for callable
// WINNER/FLAT outcomes.
var categoryIdeas = map[string]string{
	domain.CategoryPricing:  "Test a different price point or pricing display format.",
	domain.CategoryShipping: "Test shipping threshold messaging or delivery speed options.",
	domain.CategoryOffer:    "Test a different discount structure or qualifying criteria.",
	domain.CategoryContent:  "Test a completely different messaging angle or visual approach.",
}

func nextTestIdeas(outcome Outcome, category string, stages []Stage, segments []Segment, t domain.Thresholds) []string {
	var suggestions []string

	var worstDrop, bestGain *Stage
	for i := range stages {
		s := &stages[i]
		if s.Uplift == nil {
			continue
		}
		if *s.Uplift < -t.NeutralLiftBand && (worstDrop == nil || *s.Uplift < *worstDrop.Uplift) {
			worstDrop = s
		}
		if *s.Uplift > t.NeutralLiftBand && (bestGain == nil || *s.Uplift > *bestGain.Uplift) {
			bestGain = s
		}
	}
	if worstDrop != nil {
		suggestions = append(suggestions, fmt.Sprintf("Fix the %s stage (%s): test changes specifically targeting this step.",
			worstDrop.Label, worstDrop.UpliftDisplay))
	}
	if bestGain != nil {
		suggestions = append(suggestions, fmt.Sprintf("Double down on %s (%s): this stage is working, push it further.",
			bestGain.Label, bestGain.UpliftDisplay))
	}

	var worstSeg *Segment
	for i := range segments {
		s := &segments[i]
		if s.Uplift == nil || *s.Uplift >= -t.NeutralLiftBand {
			continue
		}
		if worstSeg == nil || *s.Uplift < *worstSeg.Uplift {
			worstSeg = s
		}
	}
	if worstSeg != nil {
		suggestions = append(suggestions, fmt.Sprintf("Investigate why %s (%s) underperforms. Consider a %s-specific test.",
			worstSeg.Name, worstSeg.Dimension, worstSeg.Name))
	}

	if outcome == OutcomeWinner || outcome == OutcomeFlat {
		if idea, ok := categoryIdeas[category]; ok {
			suggestions = append(suggestions, idea)
		}
	}
	if outcome == OutcomeLoser {
		suggestions = append(suggestions, "Consider reversing the approach: test the opposite direction.")
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Run a broader discovery test to identify the next high-impact lever.")
	}
	return suggestions
}

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

// Rollout scope actions for the segment recommendation.
const (
	ActionRollOut         = "ROLL OUT"
	ActionSegmentSpecific = "SEGMENT-SPECIFIC"
	ActionDontRollOut     = "DON'T ROLL OUT"
	ActionHold            = "HOLD"
)

// Segment is one audience slice ranked by revenue opportunity.
type Segment struct {
	Name               string   `json:"name"`
	Dimension          string   `json:"dimension"`
	Outcome            Outcome  `json:"outcome"`
	Uplift             *float64 `json:"uplift"`
	UpliftDisplay      string   `json:"uplift_display"`
	Confidence         *float64 `json:"confidence"`
	ConfidenceDisplay  string   `json:"confidence_display"`
	Visitors           int64    `json:"visitors"`
	RevenueOpportunity float64  `json:"revenue_opportunity"`
	RevenueDisplay     string   `json:"revenue_display"`
	Contradiction      bool     `json:"contradiction"`
}

// SegmentSnapshot pairs an audience dimension with its metrics.
type SegmentSnapshot struct {
	Dimension domain.SegmentDimension
	Snapshot  *domain.Snapshot
}

// SegmentSpotlight ranks all segments by revenue opportunity and
// derives a rollout scope recommendation.
type SegmentSpotlight struct {
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
	OverallUplift     *float64  `json:"overall_uplift"`
	OverallDisplay    string    `json:"overall_display"`
	Confidence        *float64  `json:"confidence"`
	ConfidenceDisplay string    `json:"confidence_display"`
	Segments          []Segment `json:"segments"`
	Action            string    `json:"action"`
	Reason            string    `json:"reason"`
}

// BuildSpotlight computes per-segment lift, verdict and annualized
// revenue opportunity across the supplied dimensions, sorted by
// opportunity magnitude.
func BuildSpotlight(exp *domain.Experiment, overview *domain.Snapshot, segments []SegmentSnapshot, t domain.Thresholds, now time.Time) (*SegmentSpotlight, error) {
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
	primary := overview.PrimaryRevenueMetric()
	best := pickBestVariant(variants, overview, primary)
	if best == nil {
		best = &variants[0]
	}

	sp := &SegmentSpotlight{
		ExperimentID:   exp.ID,
		ExperimentName: exp.Name,
		Category:       exp.Category(),
		RuntimeDays:    days,
		RuntimeDisplay: exp.RuntimeDisplay(now),
		Visitors:       overview.TotalVisitors(),
		Orders:         overview.TotalOrders(),
		PrimaryMetric:  primary,
		PrimaryLabel:   domain.MetricLabel(primary),
		VariantID:      best.ID,
		VariantName:    exp.VariationName(best.ID),
		OverallUplift:  overview.UpliftValue(primary, best.ID),
		Confidence:     overview.Confidence(primary, best.ID),
	}
	sp.OverallDisplay = format.Lift(sp.OverallUplift)
	sp.ConfidenceDisplay = format.Confidence(sp.Confidence)

	controlRPV := overview.Value(primary, control.ID)

	for _, seg := range segments {
		if seg.Snapshot == nil {
			continue
		}
		for _, g := range seg.Snapshot.SegmentGroups() {
			uplift := g.Snapshot.UpliftValue(primary, best.ID)
			confidence := g.Snapshot.Confidence(primary, best.ID)
			visitors := g.Snapshot.VariationVisitors(best.ID) + g.Snapshot.VariationVisitors(control.ID)
			opportunity := revenueOpportunity(visitors, uplift, controlRPV, days)

			sp.Segments = append(sp.Segments, Segment{
				Name:               g.Label,
				Dimension:          seg.Dimension.Label,
				Outcome:            ClassifySegment(confidence, uplift, days, t),
				Uplift:             uplift,
				UpliftDisplay:      format.Lift(uplift),
				Confidence:         confidence,
				ConfidenceDisplay:  format.Confidence(confidence),
				Visitors:           visitors,
				RevenueOpportunity: opportunity,
				RevenueDisplay:     format.Currency(opportunity),
				Contradiction:      contradicts(sp.OverallUplift, uplift, t),
			})
		}
	}

	sort.SliceStable(sp.Segments, func(i, j int) bool {
		return math.Abs(sp.Segments[i].RevenueOpportunity) > math.Abs(sp.Segments[j].RevenueOpportunity)
	})

	sp.Action, sp.Reason = rolloutScope(sp.Segments)

	return sp, nil
}

// revenueOpportunity annualizes a segment's observed lift applied to
// its own traffic. Missing or non-positive inputs yield zero.
func revenueOpportunity(segVisitors int64, uplift, controlRPV *float64, days int) float64 {
	if uplift == nil || controlRPV == nil || days <= 0 || segVisitors <= 0 {
		return 0
	}
	segDaily := float64(segVisitors) / float64(days)
	return segDaily * (*controlRPV * *uplift) * 365
}

// contradicts reports a segment moving against the overall result
// beyond the contradiction band on both sides.
func contradicts(overall, seg *float64, t domain.Thresholds) bool {
	if overall == nil || seg == nil {
		return false
	}
	band := t.SegmentContradictionBand
	return (*overall > band && *seg < -band) || (*overall < -band && *seg > band)
}

// rolloutScope evaluates the recommendation policy in order; the first
// matching rule wins.
func rolloutScope(segments []Segment) (string, string) {
	if len(segments) == 0 {
		return ActionHold, "No segment data available for analysis."
	}

	var winners, losers, lowData []Segment
	for _, s := range segments {
		switch s.Outcome {
		case OutcomeWinner:
			winners = append(winners, s)
		case OutcomeLoser:
			losers = append(losers, s)
		case OutcomeLowData:
			lowData = append(lowData, s)
		}
	}
	total := len(segments)

	if len(losers) == 0 && float64(len(winners)) >= float64(total)*0.5 {
		return ActionRollOut, "No losing segments. Roll out to all traffic."
	}

	if len(losers) > 0 && len(winners) > 0 {
		verb := "are"
		if len(losers) == 1 {
			verb = "is"
		}
		return ActionSegmentSpecific, fmt.Sprintf("Consider rolling out to %s only. %s %s underperforming; exclude or investigate.",
			segmentNames(winners, 3), segmentNames(losers, 3), verb)
	}

	if len(losers) > 0 {
		return ActionDontRollOut, "No winning segments found. The variant is hurting performance."
	}

	if float64(len(lowData)) > float64(total)*0.5 {
		return ActionHold, "Most segments have insufficient data. Let the test run longer."
	}

	return ActionHold, "Mixed signals. Monitor for another few days before making a call."
}

func segmentNames(segments []Segment, limit int) string {
	if len(segments) > limit {
		segments = segments[:limit]
	}
	names := make([]string, len(segments))
	for i, s := range segments {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}

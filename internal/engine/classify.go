// Package engine contains the decision logic that turns one
// experiment's metrics snapshot into structured analyses. Every
// function here is pure: no I/O, no shared state, same output for the
// same input.
package engine

import (
	"fmt"
	"math"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/format"
)

// Outcome is the categorical result of classifying a variation or
// segment.
type Outcome string

const (
	OutcomeWinner      Outcome = "WINNER"
	OutcomeLoser       Outcome = "LOSER"
	OutcomeFlat        Outcome = "FLAT"
	OutcomeKeepRunning Outcome = "KEEP RUNNING"
	OutcomeTooEarly    Outcome = "TOO EARLY"
	// OutcomeLowData replaces TOO EARLY at the segment level, where a
	// missing signal means thin traffic rather than an immature test.
	OutcomeLowData Outcome = "LOW DATA"
)

// Classify applies the variation decision table. The rules are ordered;
// the first match wins, and every (p2bb, uplift, days) triple matches
// exactly one rule.
func Classify(p2bb, uplift *float64, days int, t domain.Thresholds) Outcome {
	if p2bb == nil || uplift == nil {
		return OutcomeTooEarly
	}
	if *p2bb >= t.MinConfidence && *uplift > t.NeutralLiftBand {
		return OutcomeWinner
	}
	if (1-*p2bb) >= t.MinConfidence && *uplift < -t.NeutralLiftBand {
		return OutcomeLoser
	}
	if days >= t.FlatAfterDays && math.Abs(*uplift) <= t.NeutralLiftBand {
		return OutcomeFlat
	}
	return OutcomeKeepRunning
}

// ClassifySegment runs the same decision table for a segment, reporting
// LOW DATA instead of TOO EARLY when the signal is absent.
func ClassifySegment(p2bb, uplift *float64, days int, t domain.Thresholds) Outcome {
	if p2bb == nil || uplift == nil {
		return OutcomeLowData
	}
	return Classify(p2bb, uplift, days, t)
}

// outcomeRank orders outcomes best-first for variant ranking.
func outcomeRank(o Outcome) int {
	switch o {
	case OutcomeWinner:
		return 0
	case OutcomeKeepRunning:
		return 1
	case OutcomeFlat:
		return 2
	case OutcomeLoser:
		return 3
	case OutcomeTooEarly:
		return 4
	default:
		return 5
	}
}

// direction buckets a signed signal into up/down/flat using the
// configured dead zone.
type direction int

const (
	dirFlat direction = iota
	dirUp
	dirDown
)

func signalDirection(v, deadZone float64) direction {
	switch {
	case v > deadZone:
		return dirUp
	case v < -deadZone:
		return dirDown
	default:
		return dirFlat
	}
}

// MaturityIssues lists the unmet maturity gates for an experiment, in
// human-readable form. An empty result means the test is mature enough
// for a verdict.
func MaturityIssues(days int, orders, visitors int64, t domain.Thresholds) []string {
	var issues []string
	if days < t.MinRuntimeDays {
		issues = append(issues, maturityRuntimeIssue(days, t))
	}
	if orders < t.MinOrders {
		issues = append(issues, maturityOrdersIssue(orders, t))
	}
	if visitors < t.MinVisitors {
		issues = append(issues, maturityVisitorsIssue(visitors, t))
	}
	return issues
}

func maturityRuntimeIssue(days int, t domain.Thresholds) string {
	return fmt.Sprintf("Only %s of runtime (minimum %d days)", format.Runtime(days), t.MinRuntimeDays)
}

func maturityOrdersIssue(orders int64, t domain.Thresholds) string {
	return fmt.Sprintf("Only %s orders (minimum %d)", format.Number(orders), t.MinOrders)
}

func maturityVisitorsIssue(visitors int64, t domain.Thresholds) string {
	return fmt.Sprintf("Only %s visitors (minimum %d)", format.Number(visitors), t.MinVisitors)
}

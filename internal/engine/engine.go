package engine

import (
	"errors"
	"strings"

	"github.com/liftwatch/liftwatch/internal/domain"
)

// Missing-input conditions that short-circuit an analysis. Anything
// thinner than these degrades to explicit insufficient-data states
// instead of erroring.
var (
	ErrNoControl        = errors.New("experiment has no control variation")
	ErrNoVariants       = errors.New("experiment has no non-control variations")
	ErrNoMetrics        = errors.New("no analytics data for experiment")
	ErrNoOrders         = errors.New("experiment has zero orders")
	ErrInsufficientData = errors.New("insufficient metric data")
	ErrUnknownDimension = errors.New("unknown segment dimension")
)

// pickBestVariant returns the variant with the highest uplift on the
// given metric, or nil when no variant has uplift data.
func pickBestVariant(variants []domain.Variation, snap *domain.Snapshot, metric string) *domain.Variation {
	var best *domain.Variation
	var bestUplift float64
	for i := range variants {
		u := snap.UpliftValue(metric, variants[i].ID)
		if u == nil {
			continue
		}
		if best == nil || *u > bestUplift {
			best = &variants[i]
			bestUplift = *u
		}
	}
	return best
}

// dailyRate is zero-safe: a non-positive runtime yields 0, not a
// division fault.
func dailyRate(total int64, days int) float64 {
	if days <= 0 {
		return 0
	}
	return float64(total) / float64(days)
}

// daysToTargetOrders estimates days until the order count reaches
// target at the current daily rate. Returns (0, true) when the target
// is already met and (_, false) when the rate is zero.
func daysToTargetOrders(current, target int64, dailyOrders float64) (int, bool) {
	if dailyOrders <= 0 {
		return 0, false
	}
	remaining := target - current
	if remaining <= 0 {
		return 0, true
	}
	return int(float64(remaining)/dailyOrders) + 1, true
}

func lowerCategory(category string) string {
	return strings.ToLower(category)
}

func joinSentences(lines []string) string {
	return strings.Join(lines, " ")
}

func ptr(v float64) *float64 {
	return &v
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

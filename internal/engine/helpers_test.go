package engine

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 {
	return &v
}

// testExperiment builds a two-arm shipping test started the given
// number of days before testNow.
func testExperiment(daysAgo int) *domain.Experiment {
	started := testNow.AddDate(0, 0, -daysAgo)
	return &domain.Experiment{
		ID:        "exp-1",
		Name:      "Free Shipping Threshold",
		Type:      "shipping",
		TestTypes: map[string]bool{"hasTestShipping": true},
		StartedAt: &started,
		Variations: []domain.Variation{
			{ID: "ctl", Name: "Control", IsControl: true},
			{ID: "var", Name: "Variant B"},
		},
	}
}

func metric(value float64) domain.MetricValue {
	return domain.MetricValue{Value: fptr(value)}
}

func metricFull(value, uplift, ciLow, ciHigh, p2bb float64) domain.MetricValue {
	return domain.MetricValue{
		Value: fptr(value),
		P2BB:  fptr(p2bb),
		Uplift: domain.Uplift{
			Value:  fptr(uplift),
			CILow:  fptr(ciLow),
			CIHigh: fptr(ciHigh),
		},
	}
}

func row(variationID, segment string, metrics map[string]domain.MetricValue) domain.MetricRow {
	return domain.MetricRow{VariationID: variationID, Segment: segment, Metrics: metrics}
}

// overviewSnapshot builds a control/variant snapshot with visitors,
// orders and the net revenue metric carrying the given uplift stats.
func overviewSnapshot(visitors, orders, controlRPV, uplift, ciLow, ciHigh, p2bb float64) *domain.Snapshot {
	return domain.NewSnapshot([]domain.MetricRow{
		row("ctl", "", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(visitors / 2),
			domain.MetricOrders:               metric(orders / 2),
			domain.MetricNetRevenuePerVisitor: metric(controlRPV),
		}),
		row("var", "", map[string]domain.MetricValue{
			domain.MetricVisitors:             metric(visitors / 2),
			domain.MetricOrders:               metric(orders / 2),
			domain.MetricNetRevenuePerVisitor: metricFull(controlRPV*(1+uplift), uplift, ciLow, ciHigh, p2bb),
		}),
	})
}

func assertNear(t *testing.T, name string, expected, actual float64) {
	t.Helper()
	if math.Abs(expected-actual) > 0.01 {
		t.Errorf("%s: expected %.4f, got %.4f", name, expected, actual)
	}
}

func assertContains(t *testing.T, name, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to contain %q", name, s, substr)
	}
}
